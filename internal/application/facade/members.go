package facade

import (
	"context"
	"time"

	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/member"
)

// MemberFilter narrows GetMembers. Zero values mean no restriction.
type MemberFilter struct {
	Status     string
	MinCreated time.Time
	Limit      int
}

// AddMember creates an active member. Extra fields are stored as given;
// in.Status and in.Clear are ignored.
// PRE: in.Validate() passes
// POST: Member stored with server createdAt/updatedAt; member_added logged
func (f *Facade) AddMember(ctx context.Context, in member.Input) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	fields := document.Fields(in.Fields())
	fields["status"] = member.StatusActive
	fields["createdAt"] = document.ServerTimestamp
	fields["updatedAt"] = document.ServerTimestamp

	return f.add(ctx, member.Collection, fields, audit{
		action:  activity.ActionMemberAdded,
		details: "Added member: " + in.Label(),
	})
}

// GetMembers lists members newest first.
// POST: soft-deleted members are included unless filtered out by status
func (f *Facade) GetMembers(ctx context.Context, filter MemberFilter) ([]member.Member, error) {
	q := document.Query{
		Collection: member.Collection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      filter.Limit,
	}
	if filter.Status != "" {
		q = q.Where("status", document.OpEqual, filter.Status)
	}
	if !filter.MinCreated.IsZero() {
		q = q.Where("createdAt", document.OpGreaterEqual, filter.MinCreated)
	}
	return queryRecords[member.Member](ctx, f.store, q)
}

// GetMember fetches one member by id.
func (f *Facade) GetMember(ctx context.Context, id string) (member.Member, error) {
	return getRecord[member.Member](ctx, f.store, member.Collection, id)
}

// UpdateMember patches the given non-empty fields and removes those named in
// in.Clear. Setting status active also drops deletedAt, which reactivates a
// soft-deleted member.
// PRE: in.Validate() passes
// POST: updatedAt restamped; member_updated logged
func (f *Facade) UpdateMember(ctx context.Context, id string, in member.Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	fields := document.Fields(in.Fields())
	for _, k := range in.Clear {
		fields[k] = nil
	}
	if in.Status != "" {
		fields["status"] = in.Status
		if in.Status == member.StatusActive {
			fields["deletedAt"] = nil
		}
	}
	fields["updatedAt"] = document.ServerTimestamp

	return f.update(ctx, member.Collection, id, fields, audit{
		action:  activity.ActionMemberUpdated,
		details: "Updated member: " + id,
	})
}

// DeleteMember soft-deletes a member.
// POST: record kept with status inactive and deletedAt stamped; member_deleted logged
func (f *Facade) DeleteMember(ctx context.Context, id string) error {
	fields := document.Fields{
		"status":    member.StatusInactive,
		"deletedAt": document.ServerTimestamp,
		"updatedAt": document.ServerTimestamp,
	}
	return f.update(ctx, member.Collection, id, fields, audit{
		action:  activity.ActionMemberDeleted,
		details: "Deleted member: " + id,
	})
}
