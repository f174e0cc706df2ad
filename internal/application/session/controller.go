// Package session drives sign-in, role verification and redirects for one
// browser tab.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	profileStore "memberdesk/internal/adapters/storage/profile"
	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/profile"
	domain "memberdesk/internal/domain/session"
)

// IdentityProvider is the credential exchange used by the controller.
type IdentityProvider interface {
	SetPersistence(ctx context.Context, p domain.Persistence) error
	SignIn(ctx context.Context, email, password string) (domain.User, error)
	SignOut(ctx context.Context) error
	CurrentUser() *domain.User
	OnIdentityChanged(fn func(*domain.User)) (unsubscribe func())
}

// ProfileStore reads per-identity profiles. A missing profile is reported
// as profileStore.ErrNotFound.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (profile.Profile, error)
}

// ClientStorage holds per-browser values.
type ClientStorage interface {
	Set(key, value string)
	Clear()
}

// Navigator receives redirect decisions.
type Navigator interface {
	Navigate(path string)
}

// ActivityLogger appends to the audit trail. Implementations never fail
// the caller.
type ActivityLogger interface {
	LogActivity(ctx context.Context, action activity.Action, details string)
}

// Deps holds dependencies for the controller. Activity may be nil.
type Deps struct {
	Identity IdentityProvider
	Profiles ProfileStore
	Storage  ClientStorage
	Nav      Navigator
	Activity ActivityLogger
}

// LoginForm carries the login page submission.
type LoginForm struct {
	Email      string
	Password   string
	Role       string
	RememberMe bool
}

// Controller is the login/session state machine for one tab.
// INVARIANT: state changes are serialized by mu; listeners run outside mu
type Controller struct {
	deps Deps

	mu        sync.Mutex
	state     domain.State
	listeners []func(domain.Transition)
}

// New creates a controller in the Unknown state.
func New(deps Deps) *Controller {
	return &Controller{
		deps:  deps,
		state: domain.State{Phase: domain.PhaseUnknown},
	}
}

// State returns the current state.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnTransition registers fn for every subsequent state change.
func (c *Controller) OnTransition(fn func(domain.Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) transition(to domain.State, message string) {
	c.mu.Lock()
	from := c.state
	c.state = to
	fns := append([]func(domain.Transition){}, c.listeners...)
	c.mu.Unlock()

	t := domain.Transition{From: from, To: to, Message: message}
	for _, fn := range fns {
		fn(t)
	}
}

func (c *Controller) phase() domain.Phase {
	return c.State().Phase
}

// Start subscribes to identity changes and settles the initial state. A
// signed-in identity is sent to its dashboard.
// PRE: called once per tab, before Login
// POST: state is Authenticated or Unauthenticated; ErrProfileMissing if the identity has no profile
func (c *Controller) Start(ctx context.Context) (domain.State, error) {
	var startErr error
	c.deps.Identity.OnIdentityChanged(func(u *domain.User) {
		if c.phase() == domain.PhaseAuthenticating {
			return
		}
		if u == nil {
			c.transition(domain.State{Phase: domain.PhaseUnauthenticated}, "")
			return
		}
		p, err := c.deps.Profiles.GetProfile(ctx, u.UID)
		if err != nil {
			if errors.Is(err, profileStore.ErrNotFound) {
				err = ErrProfileMissing
			}
			slog.Error("auth_event", "event", "session_restore_failed", "uid", u.UID, "error", err)
			startErr = err
			c.transition(domain.State{Phase: domain.PhaseRejected}, UserMessage(err))
			return
		}
		c.transition(domain.State{Phase: domain.PhaseAuthenticated, Role: p.Role}, "")
		c.deps.Nav.Navigate(domain.DashboardPath(p.Role))
	})
	return c.State(), startErr
}

// Login validates the form, exchanges credentials and verifies the role.
// PRE: form comes from the login page
// POST: On success state is Authenticated(form.Role), userRole/userName stored, redirect issued
// POST: On failure state is Unauthenticated and the returned error renders via UserMessage
// INVARIANT: Missing fields and unknown roles never reach the identity provider
func (c *Controller) Login(ctx context.Context, form LoginForm) error {
	email := strings.TrimSpace(form.Email)
	if email == "" || form.Password == "" || form.Role == "" {
		c.transition(domain.State{Phase: domain.PhaseRejected}, ErrMissingFields.Error())
		c.transition(domain.State{Phase: domain.PhaseUnauthenticated}, ErrMissingFields.Error())
		return ErrMissingFields
	}
	if !domain.IsValidRole(form.Role) {
		slog.Warn("auth_event", "event", "login_rejected", "email", email, "reason", "invalid_role", "role", form.Role)
		c.transition(domain.State{Phase: domain.PhaseRejected}, ErrInvalidRole.Error())
		c.transition(domain.State{Phase: domain.PhaseUnauthenticated}, ErrInvalidRole.Error())
		return ErrInvalidRole
	}

	c.transition(domain.State{Phase: domain.PhaseAuthenticating}, "")

	if err := c.deps.Identity.SetPersistence(ctx, domain.PersistenceFor(form.RememberMe)); err != nil {
		return c.reject(ctx, err, false)
	}
	user, err := c.deps.Identity.SignIn(ctx, email, form.Password)
	if err != nil {
		slog.Info("auth_event", "event", "login_rejected", "email", email, "code", domain.CodeOf(err))
		return c.reject(ctx, err, false)
	}

	p, err := c.deps.Profiles.GetProfile(ctx, user.UID)
	if errors.Is(err, profileStore.ErrNotFound) {
		slog.Error("auth_event", "event", "login_rejected", "uid", user.UID, "reason", "profile_missing")
		return c.reject(ctx, ErrProfileMissing, true)
	}
	if err != nil {
		return c.reject(ctx, err, true)
	}

	// Only an admin selection is checked against the stored role.
	if form.Role == domain.RoleAdmin && p.Role != domain.RoleAdmin {
		slog.Info("auth_event", "event", "login_rejected", "uid", user.UID, "reason", "not_admin", "profile_role", p.Role)
		return c.reject(ctx, ErrNotAdmin, true)
	}

	c.deps.Storage.Set(domain.KeyUserRole, form.Role)
	c.deps.Storage.Set(domain.KeyUserName, p.DisplayName(user.Email))

	if c.deps.Activity != nil {
		c.deps.Activity.LogActivity(ctx, activity.ActionUserLogin, "User logged in as "+form.Role)
	}

	slog.Info("auth_event", "event", "login_success", "uid", user.UID, "role", form.Role)
	c.transition(domain.State{Phase: domain.PhaseAuthenticated, Role: form.Role}, "")
	c.deps.Nav.Navigate(domain.DashboardPath(form.Role))
	return nil
}

// reject moves through Rejected back to Unauthenticated. signOut drops an
// identity that passed credential exchange but failed authorization.
func (c *Controller) reject(ctx context.Context, err error, signOut bool) error {
	if signOut {
		if soErr := c.deps.Identity.SignOut(ctx); soErr != nil {
			slog.Error("auth_event", "event", "sign_out_failed", "error", soErr)
		}
	}
	msg := UserMessage(err)
	c.transition(domain.State{Phase: domain.PhaseRejected}, msg)
	c.transition(domain.State{Phase: domain.PhaseUnauthenticated}, msg)
	return err
}

// RequireAuth guards a protected page.
// PRE: requiredRole is "" (any signed-in identity) or a role
// POST: Returns the identity, or redirects and returns ErrNotAuthenticated / ErrInsufficientPermissions
func (c *Controller) RequireAuth(ctx context.Context, requiredRole string) (domain.User, error) {
	user := c.deps.Identity.CurrentUser()
	if user == nil {
		c.deps.Nav.Navigate(domain.PathLogin)
		return domain.User{}, ErrNotAuthenticated
	}
	if requiredRole == "" {
		return *user, nil
	}

	role := ""
	p, err := c.deps.Profiles.GetProfile(ctx, user.UID)
	switch {
	case err == nil:
		role = p.Role
	case errors.Is(err, profileStore.ErrNotFound):
	default:
		return domain.User{}, err
	}

	if role != requiredRole {
		slog.Info("auth_event", "event", "access_denied", "uid", user.UID, "role", role, "required", requiredRole)
		c.deps.Nav.Navigate(domain.DashboardPath(role))
		return domain.User{}, ErrInsufficientPermissions
	}
	return *user, nil
}

// Logout signs out, clears client storage and returns to the login page.
// POST: storage cleared and redirect issued even when sign-out fails
func (c *Controller) Logout(ctx context.Context) {
	if err := c.deps.Identity.SignOut(ctx); err != nil {
		slog.Error("auth_event", "event", "sign_out_failed", "error", err)
	} else {
		slog.Info("auth_event", "event", "logout")
	}
	c.deps.Storage.Clear()
	c.transition(domain.State{Phase: domain.PhaseUnauthenticated}, "")
	c.deps.Nav.Navigate(domain.PathLogin)
}
