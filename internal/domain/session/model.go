package session

import (
	"errors"
	"fmt"
)

// Persistence controls whether a signed-in session survives a browser restart.
type Persistence string

const (
	PersistenceLocal   Persistence = "LOCAL"   // survives browser restart
	PersistenceSession Persistence = "SESSION" // ends with the browser session
)

// Role constants
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Redirect targets
const (
	PathLogin           = "/login"
	PathAdminDashboard  = "/admin/dashboard"
	PathMemberDashboard = "/member/dashboard"
)

// Client storage keys
const (
	KeyUserRole = "userRole"
	KeyUserName = "userName"
)

// User is the opaque identity handle issued by the identity provider.
type User struct {
	UID   string
	Email string
}

// Session holds the transient per-tab sign-in state.
type Session struct {
	CurrentUser *User
	Persistence Persistence
}

// IsSignedIn returns true if the session has a current identity.
// INVARIANT: Session fields are not mutated
func (s Session) IsSignedIn() bool {
	return s.CurrentUser != nil
}

// IsValidRole reports whether role is one a user may sign in as.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// PersistenceFor maps the "remember me" checkbox to a persistence mode.
func PersistenceFor(rememberMe bool) Persistence {
	if rememberMe {
		return PersistenceLocal
	}
	return PersistenceSession
}

// DashboardPath returns the landing page for a role. Anything that is not
// admin lands on the member dashboard.
func DashboardPath(role string) string {
	if role == RoleAdmin {
		return PathAdminDashboard
	}
	return PathMemberDashboard
}

// Phase is a state of the login/session state machine.
type Phase string

const (
	PhaseUnknown         Phase = "unknown"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseRejected        Phase = "rejected"
)

// State is a phase plus the role carried by Authenticated.
type State struct {
	Phase Phase
	Role  string
}

// String renders the state, e.g. "authenticated(admin)".
func (s State) String() string {
	if s.Phase == PhaseAuthenticated {
		return fmt.Sprintf("%s(%s)", s.Phase, s.Role)
	}
	return string(s.Phase)
}

// Transition is delivered to listeners on every state change. Message is
// the user-facing text for Rejected transitions.
type Transition struct {
	From    State
	To      State
	Message string
}

// Identity provider error codes.
const (
	CodeInvalidEmail   = "auth/invalid-email"
	CodeUserDisabled   = "auth/user-disabled"
	CodeUserNotFound   = "auth/user-not-found"
	CodeWrongPassword  = "auth/wrong-password"
	CodeTooManyRequest = "auth/too-many-requests"
	CodeNetworkFailed  = "auth/network-request-failed"
)

// AuthError is a rejection reported by the identity provider.
type AuthError struct {
	Code string
	Err  error
}

// Error implements error.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError builds an AuthError for code, wrapping cause when present.
func NewAuthError(code string, cause error) *AuthError {
	return &AuthError{Code: code, Err: cause}
}

// CodeOf extracts the provider error code from err, or "" when err is not an AuthError.
func CodeOf(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}
