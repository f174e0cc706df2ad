package identity

import (
	"context"
	"sync"
	"time"

	"memberdesk/internal/domain/session"
)

// Client is one browser tab's view of the identity provider. It holds the
// current user and the token that persists it between requests.
type Client struct {
	svc *Service

	mu          sync.Mutex
	user        *session.User
	persistence session.Persistence
	token       string
	expires     time.Time
	listeners   map[int]func(*session.User)
	nextID      int
}

// SetPersistence selects how long the next sign-in survives.
func (c *Client) SetPersistence(_ context.Context, p session.Persistence) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistence = p
	return nil
}

// SignIn authenticates and makes the identity current.
// PRE: SetPersistence has been called if LOCAL persistence is wanted
// POST: On success CurrentUser is set, a token is issued and listeners are notified
func (c *Client) SignIn(ctx context.Context, email, password string) (session.User, error) {
	user, err := c.svc.Authenticate(ctx, email, password)
	if err != nil {
		return session.User{}, err
	}

	c.mu.Lock()
	token, expires, err := c.svc.Issue(user, c.persistence)
	if err != nil {
		c.mu.Unlock()
		return session.User{}, session.NewAuthError(session.CodeNetworkFailed, err)
	}
	c.user = &user
	c.token = token
	c.expires = expires
	c.mu.Unlock()

	c.notify(&user)
	return user, nil
}

// SignOut clears the current identity.
// POST: CurrentUser is nil, Token is empty, listeners notified with nil
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	wasSignedIn := c.user != nil
	c.user = nil
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()

	if wasSignedIn {
		c.notify(nil)
	}
	return nil
}

// CurrentUser returns the signed-in identity or nil.
func (c *Client) CurrentUser() *session.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// OnIdentityChanged registers fn and calls it once with the current
// identity. The returned function removes the listener.
func (c *Client) OnIdentityChanged(fn func(*session.User)) func() {
	c.mu.Lock()
	if c.listeners == nil {
		c.listeners = make(map[int]func(*session.User))
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	fn(c.CurrentUser())

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) notify(user *session.User) {
	c.mu.Lock()
	fns := make([]func(*session.User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// Token returns the ID token for the current identity, or "" when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Expires returns the current token's expiry.
func (c *Client) Expires() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expires
}

// Persistence returns the selected persistence mode.
func (c *Client) Persistence() session.Persistence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistence
}
