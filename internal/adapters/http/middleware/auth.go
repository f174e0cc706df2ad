package middleware

import (
	"context"
	"net/http"
	"time"

	"memberdesk/internal/adapters/identity"
	"memberdesk/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const identityContextKey contextKey = "identity"

// TokenCookieName holds the ID token between requests.
const TokenCookieName = "memberdesk_token"

// Auth returns middleware that restores the caller's identity client from
// the token cookie. It does NOT block signed-out requests; handlers guard
// pages through the session controller.
func Auth(svc *identity.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(TokenCookieName); err == nil {
				token = cookie.Value
			}
			client := svc.NewClient(token)
			next.ServeHTTP(w, r.WithContext(ContextWithClient(r.Context(), client)))
		})
	}
}

// ClientFromContext returns the identity client set by Auth.
func ClientFromContext(ctx context.Context) (*identity.Client, bool) {
	c, ok := ctx.Value(identityContextKey).(*identity.Client)
	return c, ok
}

// ContextWithClient returns a context carrying client.
func ContextWithClient(ctx context.Context, client *identity.Client) context.Context {
	return context.WithValue(ctx, identityContextKey, client)
}

// WriteTokenCookie mirrors the client's identity into the token cookie.
// LOCAL persistence gets a persistent cookie that expires with the token;
// SESSION persistence gets a browser-session cookie. A signed-out client
// expires the cookie.
// PRE: called before the response body is written
func WriteTokenCookie(w http.ResponseWriter, client *identity.Client, secure bool, now time.Time) {
	cookie := &http.Cookie{
		Name:     TokenCookieName,
		Value:    client.Token(),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case cookie.Value == "":
		cookie.MaxAge = -1
	case client.Persistence() == session.PersistenceLocal:
		cookie.Expires = client.Expires()
		cookie.MaxAge = int(client.Expires().Sub(now).Seconds())
	}
	http.SetCookie(w, cookie)
}
