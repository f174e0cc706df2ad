package facade

import (
	"context"
	"log/slog"

	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
)

// DefaultActivityLimit is the GetRecentActivities limit when none is given.
const DefaultActivityLimit = 10

// LogActivity appends an entry attributed to the caller. Failures are
// logged and never returned.
func (f *Facade) LogActivity(ctx context.Context, action activity.Action, details string) {
	user, err := f.caller()
	if err != nil {
		slog.Warn("activity_event", "event", "skipped", "action", action, "reason", "not_signed_in")
		return
	}
	entry := activity.NewEntry(action, details, user.UID, user.Email)
	fields := document.Fields(entry.Fields())
	fields["timestamp"] = document.ServerTimestamp

	if _, err := f.store.Add(ctx, activity.Collection, fields); err != nil {
		slog.Error("activity_event", "event", "log_failed", "action", action, "uid", user.UID, "error", err)
	}
}

// GetRecentActivities lists the newest activity entries.
// PRE: limit <= 0 means DefaultActivityLimit
func (f *Facade) GetRecentActivities(ctx context.Context, limit int) ([]activity.Entry, error) {
	return queryRecords[activity.Entry](ctx, f.store, document.Query{
		Collection: activity.Collection,
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      withDefault(limit, DefaultActivityLimit),
	})
}
