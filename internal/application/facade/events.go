package facade

import (
	"context"

	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/event"
)

// DefaultUpcomingLimit is the GetUpcomingEvents limit when none is given.
const DefaultUpcomingLimit = 5

// AddEvent creates an event owned by the caller with no attendees.
// PRE: caller signed in; in.Validate() passes
// POST: createdBy is the caller's uid; event_created logged
func (f *Facade) AddEvent(ctx context.Context, in event.Input) (string, error) {
	user, err := f.caller()
	if err != nil {
		return "", err
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	fields := document.Fields(in.Fields())
	fields["attendees"] = []string{}
	fields["createdBy"] = user.UID
	fields["createdAt"] = document.ServerTimestamp
	fields["updatedAt"] = document.ServerTimestamp

	return f.add(ctx, event.Collection, fields, audit{
		action:  activity.ActionEventCreated,
		details: "Created event: " + in.Title,
	})
}

// GetEvent fetches one event by id.
func (f *Facade) GetEvent(ctx context.Context, id string) (event.Event, error) {
	return getRecord[event.Event](ctx, f.store, event.Collection, id)
}

// UpdateEvent replaces the editable fields of an event.
// PRE: in.Validate() passes
// POST: updatedAt restamped; event_updated logged
func (f *Facade) UpdateEvent(ctx context.Context, id string, in event.Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	fields := document.Fields(in.Fields())
	fields["updatedAt"] = document.ServerTimestamp

	return f.update(ctx, event.Collection, id, fields, audit{
		action:  activity.ActionEventUpdated,
		details: "Updated event: " + in.Title,
	})
}

// RegisterAttendee appends uid to an event's attendees.
// PRE: event exists; uid is non-empty
// POST: uid is the last attendee, or event.ErrAlreadyAttending; attendee_registered logged
func (f *Facade) RegisterAttendee(ctx context.Context, eventID, uid string) error {
	ev, err := f.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := ev.AddAttendee(uid); err != nil {
		return err
	}
	fields := document.Fields{
		"attendees": ev.Attendees,
		"updatedAt": document.ServerTimestamp,
	}
	return f.update(ctx, event.Collection, eventID, fields, audit{
		action:  activity.ActionAttendeeRegistered,
		details: "Registered for event: " + ev.Title,
	})
}

// GetUpcomingEvents lists events dated now or later, soonest first.
// PRE: limit <= 0 means DefaultUpcomingLimit
func (f *Facade) GetUpcomingEvents(ctx context.Context, limit int) ([]event.Event, error) {
	q := document.Query{
		Collection: event.Collection,
		OrderBy:    "date",
		Limit:      withDefault(limit, DefaultUpcomingLimit),
	}.Where("date", document.OpGreaterEqual, f.now())
	return queryRecords[event.Event](ctx, f.store, q)
}
