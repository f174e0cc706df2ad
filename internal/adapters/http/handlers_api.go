package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"memberdesk/internal/application/facade"
	"memberdesk/internal/application/session"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/member"
	domain "memberdesk/internal/domain/session"
	"memberdesk/internal/domain/transaction"
)

// dateLayout is the short form accepted wherever a timestamp is.
const dateLayout = "2006-01-02"

type apiError struct {
	Error string `json:"error"`
}

type createdResponse struct {
	ID string `json:"id"`
}

// decodeMember reads a member body. Members are free-form, so the body is
// decoded as an object rather than strictly.
func decodeMember(w http.ResponseWriter, r *http.Request) (member.Input, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		badRequest(w, "invalid JSON")
		return member.Input{}, false
	}
	in, err := member.ParseInput(body)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		badRequest(w, err.Error())
		return member.Input{}, false
	}
	return in, true
}

type transactionRequest struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
}

type attendeeRequest struct {
	UID string `json:"uid"`
}

// admin guards an API handler with RequireAuth(admin). Redirect decisions
// become status codes.
func (s *Server) admin(h func(http.ResponseWriter, *http.Request, *tab)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := s.openTab(w, r)
		_, err := t.ctrl.RequireAuth(r.Context(), domain.RoleAdmin)
		switch {
		case err == nil:
			h(w, r, t)
		case errors.Is(err, session.ErrNotAuthenticated):
			writeJSON(w, http.StatusUnauthorized, apiError{Error: err.Error()})
		case errors.Is(err, session.ErrInsufficientPermissions):
			writeJSON(w, http.StatusForbidden, apiError{Error: err.Error()})
		default:
			internalError(w, err)
		}
	}
}

// writeStoreError maps facade errors to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	case errors.Is(err, event.ErrAlreadyAttending):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	case errors.Is(err, facade.ErrNotSignedIn):
		writeJSON(w, http.StatusUnauthorized, apiError{Error: err.Error()})
	default:
		internalError(w, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: msg})
}

// parseTime accepts RFC 3339 or a bare date. dateOnly reports the latter.
func parseTime(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.Parse(dateLayout, s)
	return t, err == nil, err
}

// queryInt reads a non-negative integer query parameter; missing means 0.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

// handleListMembers serves GET /api/members?status=&since=&limit=.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request, t *tab) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	filter := facade.MemberFilter{Status: r.URL.Query().Get("status"), Limit: limit}
	if since := r.URL.Query().Get("since"); since != "" {
		if filter.MinCreated, _, err = parseTime(since); err != nil {
			badRequest(w, "since must be a date (YYYY-MM-DD) or RFC 3339 time")
			return
		}
	}
	members, err := t.data.GetMembers(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// handleAddMember serves POST /api/members.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request, t *tab) {
	in, ok := decodeMember(w, r)
	if !ok {
		return
	}
	id, err := t.data.AddMember(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// handleGetMember serves GET /api/members/{id}.
func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request, t *tab) {
	m, err := t.data.GetMember(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleUpdateMember serves PATCH /api/members/{id}. Absent fields are left
// as they are; an empty string or null removes the field.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request, t *tab) {
	in, ok := decodeMember(w, r)
	if !ok {
		return
	}
	if err := t.data.UpdateMember(r.Context(), r.PathValue("id"), in); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteMember serves DELETE /api/members/{id} as a soft delete.
func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request, t *tab) {
	if err := t.data.DeleteMember(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions serves GET /api/transactions?start=&end=. A bare
// end date covers that whole day.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, t *tab) {
	var start, end time.Time
	if v := r.URL.Query().Get("start"); v != "" {
		var err error
		if start, _, err = parseTime(v); err != nil {
			badRequest(w, "start must be a date (YYYY-MM-DD) or RFC 3339 time")
			return
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, dateOnly, err := parseTime(v)
		if err != nil {
			badRequest(w, "end must be a date (YYYY-MM-DD) or RFC 3339 time")
			return
		}
		end = parsed
		if dateOnly {
			end = end.Add(24*time.Hour - time.Millisecond)
		}
	}
	txns, err := t.data.GetTransactions(r.Context(), start, end)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// handleAddTransaction serves POST /api/transactions.
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, t *tab) {
	var req transactionRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	in := transaction.Input{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Date != "" {
		var err error
		if in.Date, _, err = parseTime(req.Date); err != nil {
			badRequest(w, "date must be a date (YYYY-MM-DD) or RFC 3339 time")
			return
		}
	}
	if err := in.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := t.data.AddTransaction(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// handleFinancialSummary serves GET /api/transactions/summary.
func (s *Server) handleFinancialSummary(w http.ResponseWriter, r *http.Request, t *tab) {
	summary, err := t.data.GetFinancialSummary(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// decodeEvent reads and validates an event body.
func decodeEvent(w http.ResponseWriter, r *http.Request) (event.Input, bool) {
	var req eventRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return event.Input{}, false
	}
	in := event.Input{Title: req.Title, Description: req.Description, Location: req.Location}
	if req.Date != "" {
		var err error
		if in.Date, _, err = parseTime(req.Date); err != nil {
			badRequest(w, "date must be a date (YYYY-MM-DD) or RFC 3339 time")
			return event.Input{}, false
		}
	}
	if err := in.Validate(); err != nil {
		badRequest(w, err.Error())
		return event.Input{}, false
	}
	return in, true
}

// handleAddEvent serves POST /api/events.
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request, t *tab) {
	in, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	id, err := t.data.AddEvent(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// handleGetEvent serves GET /api/events/{id}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request, t *tab) {
	ev, err := t.data.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleUpdateEvent serves PATCH /api/events/{id}.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, t *tab) {
	in, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	if err := t.data.UpdateEvent(r.Context(), r.PathValue("id"), in); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddAttendee serves POST /api/events/{id}/attendees.
func (s *Server) handleAddAttendee(w http.ResponseWriter, r *http.Request, t *tab) {
	var req attendeeRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.UID == "" {
		badRequest(w, "uid is required")
		return
	}
	if err := t.data.RegisterAttendee(r.Context(), r.PathValue("id"), req.UID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpcomingEvents serves GET /api/events/upcoming?limit=.
func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request, t *tab) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	events, err := t.data.GetUpcomingEvents(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleRecentActivity serves GET /api/activity?limit=.
func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request, t *tab) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	entries, err := t.data.GetRecentActivities(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleDashboardStats serves GET /api/dashboard.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request, t *tab) {
	stats, err := t.data.GetDashboardStats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
