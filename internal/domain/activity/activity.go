package activity

import (
	"time"
)

// Collection is the append-only document collection holding activity entries.
const Collection = "activity_log"

// Action tags the kind of change an entry records.
type Action string

const (
	ActionMemberAdded        Action = "member_added"
	ActionMemberUpdated      Action = "member_updated"
	ActionMemberDeleted      Action = "member_deleted"
	ActionTransactionAdded   Action = "transaction_added"
	ActionEventCreated       Action = "event_created"
	ActionEventUpdated       Action = "event_updated"
	ActionAttendeeRegistered Action = "attendee_registered"
	ActionUserLogin          Action = "user_login"
)

// Entry is a single activity log record. Entries are never updated or deleted.
type Entry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntry creates an entry attributed to the given actor. The timestamp is
// left for the store to assign.
// PRE: action is non-empty
// POST: Returns an Entry with actor fields populated and no timestamp
func NewEntry(action Action, details, userID, userEmail string) Entry {
	return Entry{
		Action:    action,
		Details:   details,
		UserID:    userID,
		UserEmail: userEmail,
	}
}

// Fields returns the entry keyed by stored field names, without the timestamp.
func (e Entry) Fields() map[string]any {
	return map[string]any{
		"action":    string(e.Action),
		"details":   e.Details,
		"userId":    e.UserID,
		"userEmail": e.UserEmail,
	}
}

// SetID sets the entry ID from the document identifier.
func (e *Entry) SetID(id string) {
	e.ID = id
}
