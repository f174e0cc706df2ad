package event

import (
	"errors"
	"time"
)

// Collection is the document collection holding events.
const Collection = "events"

// Max length constants.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxLocationLength    = 200
)

// Domain errors
var (
	ErrEmptyTitle       = errors.New("event title cannot be empty")
	ErrMissingDate      = errors.New("event date is required")
	ErrAlreadyAttending = errors.New("already registered for this event")
)

// Event is an organization event. Attendees holds identity uids in
// registration order and starts empty.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"` // markdown
	Location    string    `json:"location,omitempty"`
	Date        time.Time `json:"date"`
	Attendees   []string  `json:"attendees"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the caller-supplied fields of an event.
type Input struct {
	Title       string
	Description string
	Location    string
	Date        time.Time
}

// Validate checks the event's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (in Input) Validate() error {
	if in.Title == "" {
		return ErrEmptyTitle
	}
	if len(in.Title) > MaxTitleLength {
		return errors.New("event title cannot exceed 200 characters")
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	if len(in.Description) > MaxDescriptionLength {
		return errors.New("event description cannot exceed 2000 characters")
	}
	if len(in.Location) > MaxLocationLength {
		return errors.New("event location cannot exceed 200 characters")
	}
	return nil
}

// Fields returns the input keyed by stored field names.
func (in Input) Fields() map[string]any {
	f := map[string]any{
		"title": in.Title,
		"date":  in.Date,
	}
	if in.Description != "" {
		f["description"] = in.Description
	}
	if in.Location != "" {
		f["location"] = in.Location
	}
	return f
}

// IsUpcoming returns true if the event has not started before now.
// PRE: none
// POST: returns true when Date >= now
func (e *Event) IsUpcoming(now time.Time) bool {
	return !e.Date.Before(now)
}

// HasAttendee returns true if uid is registered.
// INVARIANT: Event fields are not mutated
func (e *Event) HasAttendee(uid string) bool {
	for _, a := range e.Attendees {
		if a == uid {
			return true
		}
	}
	return false
}

// AddAttendee appends uid to the attendee list.
// PRE: uid is non-empty
// POST: uid is the last attendee, or ErrAlreadyAttending if present
func (e *Event) AddAttendee(uid string) error {
	if e.HasAttendee(uid) {
		return ErrAlreadyAttending
	}
	e.Attendees = append(e.Attendees, uid)
	return nil
}

// SetID sets the event ID from the document identifier.
func (e *Event) SetID(id string) {
	e.ID = id
}
