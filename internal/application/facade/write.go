package facade

import (
	"context"
	"log/slog"

	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
)

// audit is the activity entry appended after a successful write.
type audit struct {
	action  activity.Action
	details string
}

// add inserts fields and records the audit entry.
// PRE: fields carry any server timestamps and attribution already
// POST: Returns the new id; store errors are returned unchanged
func (f *Facade) add(ctx context.Context, collection string, fields document.Fields, a audit) (string, error) {
	id, err := f.store.Add(ctx, collection, fields)
	if err != nil {
		slog.Error("store_event", "event", "add_failed", "collection", collection, "error", err)
		return "", err
	}
	f.LogActivity(ctx, a.action, a.details)
	return id, nil
}

// update patches fields on id and records the audit entry.
// PRE: fields carry any server timestamps already
// POST: store errors, including document.ErrNotFound, are returned unchanged
func (f *Facade) update(ctx context.Context, collection, id string, fields document.Fields, a audit) error {
	if err := f.store.Update(ctx, collection, id, fields); err != nil {
		slog.Error("store_event", "event", "update_failed", "collection", collection, "id", id, "error", err)
		return err
	}
	f.LogActivity(ctx, a.action, a.details)
	return nil
}
