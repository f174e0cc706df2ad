package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	accountStore "memberdesk/internal/adapters/storage/account"
	"memberdesk/internal/domain/account"
	"memberdesk/internal/domain/session"
)

// Default token lifetimes per persistence mode.
const (
	DefaultSessionTTL  = 12 * time.Hour
	DefaultRememberTTL = 30 * 24 * time.Hour
)

// AccountStore defines the account operations needed by the identity service.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// Config holds identity service settings.
type Config struct {
	Secret      []byte
	SessionTTL  time.Duration
	RememberTTL time.Duration
	Now         func() time.Time
}

// Service verifies credentials against stored accounts and issues signed
// ID tokens. It is shared by all requests; per-tab state lives in Client.
type Service struct {
	accounts    AccountStore
	secret      []byte
	sessionTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewService creates an identity service.
// PRE: accounts is non-nil; cfg.Secret is non-empty
// POST: Zero TTLs and a nil clock are replaced with defaults
func NewService(accounts AccountStore, cfg Config) *Service {
	s := &Service{
		accounts:    accounts,
		secret:      cfg.Secret,
		sessionTTL:  cfg.SessionTTL,
		rememberTTL: cfg.RememberTTL,
		now:         cfg.Now,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.rememberTTL <= 0 {
		s.rememberTTL = DefaultRememberTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TTL returns the token lifetime for a persistence mode.
func (s *Service) TTL(p session.Persistence) time.Duration {
	if p == session.PersistenceLocal {
		return s.rememberTTL
	}
	return s.sessionTTL
}

// Authenticate checks an email and password pair.
// PRE: none
// POST: Returns the identity on success, or a *session.AuthError carrying a provider code
// INVARIANT: Failed password attempts are counted and lock the account at the threshold
func (s *Service) Authenticate(ctx context.Context, email, password string) (session.User, error) {
	if err := account.ValidateEmail(email); err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "invalid_email")
		return session.User{}, session.NewAuthError(session.CodeInvalidEmail, err)
	}

	acct, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accountStore.ErrNotFound) {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return session.User{}, session.NewAuthError(session.CodeUserNotFound, err)
	}
	if err != nil {
		slog.Error("auth_event", "event", "login_failed", "email", email, "reason", "store_error", "error", err)
		return session.User{}, session.NewAuthError(session.CodeNetworkFailed, err)
	}

	now := s.now()
	if acct.Disabled {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "disabled")
		return session.User{}, session.NewAuthError(session.CodeUserDisabled, nil)
	}
	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return session.User{}, session.NewAuthError(session.CodeTooManyRequest, nil)
	}

	if err := acct.CheckPassword(password); err != nil {
		acct.RecordFailedLogin(now)
		if saveErr := s.accounts.Save(ctx, acct); saveErr != nil {
			slog.Error("auth_event", "event", "failed_login_not_recorded", "email", email, "error", saveErr)
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return session.User{}, session.NewAuthError(session.CodeWrongPassword, err)
	}

	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := s.accounts.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "reset_failed_logins", "email", email, "error", err)
		}
	}

	slog.Info("auth_event", "event", "login_success", "uid", acct.ID, "email", acct.Email)
	return session.User{UID: acct.ID, Email: acct.Email}, nil
}

// Issue signs a token for user under persistence p.
// POST: Returns the token and its expiry
func (s *Service) Issue(user session.User, p session.Persistence) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.TTL(p))
	token, err := issueToken(s.secret, user, p, now, expires)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Verify checks a token and returns the identity and persistence it carries.
func (s *Service) Verify(token string) (session.User, session.Persistence, error) {
	user, p, _, err := parseToken(s.secret, token, s.now())
	return user, p, err
}

// NewClient returns a per-tab client restored from token. An empty or
// invalid token yields a signed-out client with session persistence.
func (s *Service) NewClient(token string) *Client {
	c := &Client{svc: s, persistence: session.PersistenceSession}
	if token == "" {
		return c
	}
	user, p, expires, err := parseToken(s.secret, token, s.now())
	if err != nil {
		slog.Debug("auth_event", "event", "token_rejected", "error", err)
		return c
	}
	c.user = &user
	c.persistence = p
	c.token = token
	c.expires = expires
	return c
}
