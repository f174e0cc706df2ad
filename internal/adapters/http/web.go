package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/adapters/identity"
	docStore "memberdesk/internal/adapters/storage/document"
	"memberdesk/internal/application/session"
)

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Deps holds everything the HTTP surface needs. Gatherer and Metrics may
// be nil; Now defaults to time.Now.
type Deps struct {
	Identity       *identity.Service
	Profiles       session.ProfileStore
	Docs           docStore.Store
	Gatherer       prometheus.Gatherer
	Metrics        *middleware.RequestMetrics
	CSRFKey        []byte
	Secure         bool
	TrustedOrigins []string
	SlowRequest    time.Duration
	Now            func() time.Time
}

// Server serves the login page, the two dashboards and the JSON API.
type Server struct {
	deps Deps
}

// NewServer creates a server. Routes are registered by Handler.
func NewServer(deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{deps: deps}
}

// LoadCSRFKey decodes the hex CSRF secret. In production the key MUST be
// set. In development a random key is generated per startup.
func LoadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("csrf key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, errors.New("csrf key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("config_event", "event", "random_csrf_key", "detail", "form tokens won't survive restart")
	return key, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLoginSubmit)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /admin/dashboard", s.handleAdminDashboard)
	mux.HandleFunc("GET /member/dashboard", s.handleMemberDashboard)
	mux.HandleFunc("POST /member/events/{id}/register", s.handleMemberRegister)

	mux.HandleFunc("GET /api/members", s.admin(s.handleListMembers))
	mux.HandleFunc("POST /api/members", s.admin(s.handleAddMember))
	mux.HandleFunc("GET /api/members/{id}", s.admin(s.handleGetMember))
	mux.HandleFunc("PATCH /api/members/{id}", s.admin(s.handleUpdateMember))
	mux.HandleFunc("DELETE /api/members/{id}", s.admin(s.handleDeleteMember))

	mux.HandleFunc("GET /api/transactions", s.admin(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.admin(s.handleAddTransaction))
	mux.HandleFunc("GET /api/transactions/summary", s.admin(s.handleFinancialSummary))

	mux.HandleFunc("POST /api/events", s.admin(s.handleAddEvent))
	mux.HandleFunc("GET /api/events/upcoming", s.admin(s.handleUpcomingEvents))
	mux.HandleFunc("GET /api/events/{id}", s.admin(s.handleGetEvent))
	mux.HandleFunc("PATCH /api/events/{id}", s.admin(s.handleUpdateEvent))
	mux.HandleFunc("POST /api/events/{id}/attendees", s.admin(s.handleAddAttendee))

	mux.HandleFunc("GET /api/activity", s.admin(s.handleRecentActivity))
	mux.HandleFunc("GET /api/dashboard", s.admin(s.handleDashboardStats))

	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Handler returns the routed mux wrapped in the middleware stack. The rate
// limiter's sweeper stops when ctx is done.
// Order, outermost first: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> mux
func (s *Server) Handler(ctx context.Context) http.Handler {
	limiter := middleware.NewRateLimiter(ctx, RateLimitPerSecond, time.Second)

	return middleware.Chain(s.routes(),
		middleware.SecurityHeaders,
		middleware.CSRF(s.deps.CSRFKey, s.deps.Secure, s.deps.TrustedOrigins...),
		middleware.Auth(s.deps.Identity),
		middleware.RateLimit(limiter),
		middleware.Timing(s.deps.Metrics, s.deps.SlowRequest),
	)
}
