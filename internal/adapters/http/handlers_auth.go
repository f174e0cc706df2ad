package web

import (
	"errors"
	"net/http"

	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/application/session"
	domain "memberdesk/internal/domain/session"
)

// loginPage is the view model for login.html.
type loginPage struct {
	Error      string
	Email      string
	Role       string
	RememberMe bool
}

// handleLoginPage serves GET /login. A tab that is already signed in is
// sent to its dashboard.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	t := s.openTab(w, r)
	s.dropStaleToken(w, r, t)

	if _, err := t.ctrl.Start(r.Context()); err != nil {
		renderTemplate(w, r, t, http.StatusOK, "login.html", loginPage{Error: session.UserMessage(err)})
		return
	}
	if t.nav.target != "" {
		http.Redirect(w, r, t.nav.target, http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, t, http.StatusOK, "login.html", loginPage{Role: domain.RoleMember})
}

// handleLoginSubmit serves POST /login.
func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := session.LoginForm{
		Email:      r.PostFormValue("email"),
		Password:   r.PostFormValue("password"),
		Role:       r.PostFormValue("role"),
		RememberMe: r.PostFormValue("remember") != "",
	}

	t := s.openTab(w, r)
	var message string
	t.ctrl.OnTransition(func(tr domain.Transition) {
		message = tr.Message
	})

	if err := t.ctrl.Login(r.Context(), form); err != nil {
		if t.client.Token() == "" {
			s.persist(w, t)
		}
		status := http.StatusUnauthorized
		if errors.Is(err, session.ErrMissingFields) || errors.Is(err, session.ErrInvalidRole) {
			status = http.StatusBadRequest
		}
		renderTemplate(w, r, t, status, "login.html", loginPage{
			Error:      message,
			Email:      form.Email,
			Role:       form.Role,
			RememberMe: form.RememberMe,
		})
		return
	}

	s.persist(w, t)
	http.Redirect(w, r, t.nav.target, http.StatusSeeOther)
}

// handleLogout serves POST /logout. It always ends on the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	t := s.openTab(w, r)
	t.ctrl.Logout(r.Context())
	s.persist(w, t)
	http.Redirect(w, r, t.nav.target, http.StatusSeeOther)
}

// dropStaleToken expires a token cookie that no longer restores an identity.
func (s *Server) dropStaleToken(w http.ResponseWriter, r *http.Request, t *tab) {
	if _, err := r.Cookie(middleware.TokenCookieName); err != nil {
		return
	}
	if t.client.CurrentUser() == nil {
		s.persist(w, t)
	}
}

// guardPage runs RequireAuth for a server-rendered page. On failure the
// response has been written and ok is false.
func (s *Server) guardPage(w http.ResponseWriter, r *http.Request, t *tab, role string) (domain.User, bool) {
	user, err := t.ctrl.RequireAuth(r.Context(), role)
	if err == nil {
		return user, true
	}
	if t.nav.target != "" {
		s.dropStaleToken(w, r, t)
		http.Redirect(w, r, t.nav.target, http.StatusSeeOther)
		return domain.User{}, false
	}
	internalError(w, err)
	return domain.User{}, false
}
