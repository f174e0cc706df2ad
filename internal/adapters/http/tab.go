package web

import (
	"net/http"

	"memberdesk/internal/adapters/clientstore"
	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/adapters/identity"
	"memberdesk/internal/application/facade"
	"memberdesk/internal/application/session"
	domain "memberdesk/internal/domain/session"
)

// redirector records the controller's last redirect decision.
type redirector struct {
	target string
}

// Navigate implements session.Navigator.
func (r *redirector) Navigate(path string) {
	r.target = path
}

// tab is one request's view of the app, the server-side stand-in for a
// browser tab: its identity client, client storage, session controller
// and a facade bound to the same identity.
type tab struct {
	client  *identity.Client
	storage *clientstore.Cookie
	nav     *redirector
	ctrl    *session.Controller
	data    *facade.Facade
}

// openTab builds the per-request tab. The identity client comes from the
// Auth middleware; a request that skipped it gets a signed-out client.
func (s *Server) openTab(w http.ResponseWriter, r *http.Request) *tab {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		client = s.deps.Identity.NewClient("")
	}
	t := &tab{
		client:  client,
		storage: clientstore.NewCookie(w, r, s.deps.Secure, domain.KeyUserRole, domain.KeyUserName),
		nav:     &redirector{},
	}
	t.data = facade.New(facade.Deps{Store: s.deps.Docs, Identity: client, Now: s.deps.Now})
	t.ctrl = session.New(session.Deps{
		Identity: client,
		Profiles: s.deps.Profiles,
		Storage:  t.storage,
		Nav:      t.nav,
		Activity: t.data,
	})
	return t
}

// persist writes the identity cookie to match the client's current state.
// PRE: nothing has been written to the response body
func (s *Server) persist(w http.ResponseWriter, t *tab) {
	middleware.WriteTokenCookie(w, t.client, s.deps.Secure, s.deps.Now())
}

// userName returns the display name kept in client storage.
func (t *tab) userName() string {
	name, _ := t.storage.Get(domain.KeyUserName)
	return name
}
