// Package facade is the single entry point for reading and writing
// members, transactions, events and the activity log.
package facade

import (
	"errors"
	"time"

	docStore "memberdesk/internal/adapters/storage/document"
	"memberdesk/internal/domain/session"
)

// ErrNotSignedIn is returned by writes that must be attributed to a caller.
var ErrNotSignedIn = errors.New("no signed-in user")

// CurrentUserSource reports the calling identity.
type CurrentUserSource interface {
	CurrentUser() *session.User
}

// Deps holds dependencies for the facade. Now defaults to time.Now.
type Deps struct {
	Store    docStore.Store
	Identity CurrentUserSource
	Now      func() time.Time
}

// Facade wraps the document store with typed, audited operations.
// INVARIANT: every successful write is followed by one best-effort activity entry
type Facade struct {
	store    docStore.Store
	identity CurrentUserSource
	now      func() time.Time
}

// New creates a facade bound to the caller's identity.
func New(deps Deps) *Facade {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Facade{store: deps.Store, identity: deps.Identity, now: now}
}

// caller returns the signed-in identity or ErrNotSignedIn.
func (f *Facade) caller() (session.User, error) {
	if f.identity == nil {
		return session.User{}, ErrNotSignedIn
	}
	u := f.identity.CurrentUser()
	if u == nil {
		return session.User{}, ErrNotSignedIn
	}
	return *u, nil
}

// withDefault returns n, or def when n is not positive.
func withDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
