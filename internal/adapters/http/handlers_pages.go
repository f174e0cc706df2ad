package web

import (
	"errors"
	"net/http"

	"memberdesk/internal/application/facade"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/event"
	domain "memberdesk/internal/domain/session"
)

// adminDashboardPage is the view model for admin_dashboard.html.
type adminDashboardPage struct {
	Stats facade.DashboardStats
}

// memberEvent pairs an upcoming event with the viewer's registration.
type memberEvent struct {
	event.Event
	Attending bool
}

// memberDashboardPage is the view model for member_dashboard.html.
type memberDashboardPage struct {
	Events []memberEvent
}

// handleAdminDashboard serves GET /admin/dashboard.
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	t := s.openTab(w, r)
	if _, ok := s.guardPage(w, r, t, domain.RoleAdmin); !ok {
		return
	}
	stats, err := t.data.GetDashboardStats(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, t, http.StatusOK, "admin_dashboard.html", adminDashboardPage{Stats: stats})
}

// handleMemberDashboard serves GET /member/dashboard. Any signed-in
// identity may view it, including an admin who signed in as a member.
func (s *Server) handleMemberDashboard(w http.ResponseWriter, r *http.Request) {
	t := s.openTab(w, r)
	user, ok := s.guardPage(w, r, t, "")
	if !ok {
		return
	}
	upcoming, err := t.data.GetUpcomingEvents(r.Context(), facade.DefaultUpcomingLimit)
	if err != nil {
		internalError(w, err)
		return
	}
	page := memberDashboardPage{Events: make([]memberEvent, 0, len(upcoming))}
	for _, ev := range upcoming {
		page.Events = append(page.Events, memberEvent{Event: ev, Attending: ev.HasAttendee(user.UID)})
	}
	renderTemplate(w, r, t, http.StatusOK, "member_dashboard.html", page)
}

// handleMemberRegister serves POST /member/events/{id}/register for the
// signed-in identity. Registering twice is not an error for the viewer.
func (s *Server) handleMemberRegister(w http.ResponseWriter, r *http.Request) {
	t := s.openTab(w, r)
	user, ok := s.guardPage(w, r, t, "")
	if !ok {
		return
	}
	err := t.data.RegisterAttendee(r.Context(), r.PathValue("id"), user.UID)
	switch {
	case err == nil, errors.Is(err, event.ErrAlreadyAttending):
		http.Redirect(w, r, domain.PathMemberDashboard, http.StatusSeeOther)
	case errors.Is(err, document.ErrNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	default:
		internalError(w, err)
	}
}
