package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/adapters/identity"
	"memberdesk/internal/adapters/storage"
	accountStore "memberdesk/internal/adapters/storage/account"
	docStore "memberdesk/internal/adapters/storage/document"
	profileStore "memberdesk/internal/adapters/storage/profile"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/session"
)

const (
	adminEmail    = "admin@club.org.nz"
	memberEmail   = "member@club.org.nz"
	testPassword  = "correct-horse-battery"
	testCSRFKeyHx = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

var csrfFieldPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// newTestServer starts the full middleware stack over a fresh database
// seeded with one admin and one member account.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	RateLimitPerSecond = 1000

	db, err := storage.Open(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := accountStore.NewSQLiteStore(db)
	docs := docStore.NewSQLiteStore(db)
	profiles := profileStore.NewStore(docs)

	ctx := context.Background()
	deps := orchestrators.CreateAccountDeps{AccountStore: accounts, ProfileStore: profiles}
	for _, in := range []orchestrators.CreateAccountInput{
		{Email: adminEmail, Password: testPassword, Name: "Aroha Admin", Role: session.RoleAdmin},
		{Email: memberEmail, Password: testPassword, Name: "", Role: session.RoleMember},
	} {
		if _, err := orchestrators.ExecuteCreateAccount(ctx, in, deps); err != nil {
			t.Fatalf("ExecuteCreateAccount(%s) failed: %v", in.Email, err)
		}
	}

	key, err := LoadCSRFKey(testCSRFKeyHx, false)
	if err != nil {
		t.Fatalf("LoadCSRFKey() failed: %v", err)
	}
	reg := prometheus.NewRegistry()
	srv := NewServer(Deps{
		Identity: identity.NewService(accounts, identity.Config{Secret: []byte("test-secret")}),
		Profiles: profiles,
		Docs:     docs,
		Gatherer: reg,
		Metrics:  middleware.NewRequestMetrics(reg),
		CSRFKey:  key,
	})

	handlerCtx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(srv.Handler(handlerCtx))
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	token  string
}

func newBrowser(t *testing.T, ts *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() failed: %v", err)
	}
	return &browser{
		t:    t,
		base: ts.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// do sends a request and returns the response with its body read. Any CSRF
// token in an HTML body is remembered for the next form post.
func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		b.t.Fatalf("reading body failed: %v", err)
	}
	if m := csrfFieldPattern.FindStringSubmatch(string(body)); m != nil {
		b.token = m[1]
	}
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest("GET", b.base+path, nil)
	if err != nil {
		b.t.Fatalf("NewRequest failed: %v", err)
	}
	return b.do(req)
}

// postForm submits a form with the last seen CSRF token.
func (b *browser) postForm(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("gorilla.csrf.Token", b.token)
	req, err := http.NewRequest("POST", b.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// api sends a JSON request.
func (b *browser) api(method, path string, body any) (*http.Response, string) {
	b.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			b.t.Fatalf("Marshal failed: %v", err)
		}
		r = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, b.base+path, r)
	if err != nil {
		b.t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

// login loads the login page and submits the form.
func (b *browser) login(email, role string, remember bool) (*http.Response, string) {
	b.t.Helper()
	b.get("/login")
	form := url.Values{"email": {email}, "password": {testPassword}, "role": {role}}
	if remember {
		form.Set("remember", "1")
	}
	return b.postForm("/login", form)
}

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookieName {
			return c
		}
	}
	return nil
}

func expectRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

// TestLogin_AdminRemembered tests a full admin sign-in with remember me.
// PRE: admin account with admin profile
// POST: persistent token cookie, admin dashboard reachable, login page redirects
func TestLogin_AdminRemembered(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)

	resp, _ := b.login(adminEmail, session.RoleAdmin, true)
	expectRedirect(t, resp, session.PathAdminDashboard)

	cookie := tokenCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a token cookie")
	}
	if cookie.MaxAge <= 0 {
		t.Errorf("remembered sign-in should set MaxAge, got %d", cookie.MaxAge)
	}

	resp, body := b.get(session.PathAdminDashboard)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Aroha Admin") {
		t.Error("dashboard should show the stored display name")
	}

	resp, _ = b.get("/login")
	expectRedirect(t, resp, session.PathAdminDashboard)
}

// TestLogin_SessionPersistence tests that an unchecked remember-me box
// yields a browser-session cookie.
func TestLogin_SessionPersistence(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)

	resp, _ := b.login(memberEmail, session.RoleMember, false)
	expectRedirect(t, resp, session.PathMemberDashboard)

	cookie := tokenCookie(resp)
	if cookie == nil {
		t.Fatal("expected a token cookie")
	}
	if cookie.MaxAge != 0 || !cookie.Expires.IsZero() {
		t.Errorf("session cookie should carry no lifetime, got MaxAge=%d Expires=%v", cookie.MaxAge, cookie.Expires)
	}
}

// TestLogin_Rejections tests the inline error text for failed submissions.
func TestLogin_Rejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		form    url.Values
		status  int
		message string
	}{
		{
			name:    "missing role",
			form:    url.Values{"email": {adminEmail}, "password": {testPassword}},
			status:  http.StatusBadRequest,
			message: "Please fill all fields",
		},
		{
			name:    "forged role",
			form:    url.Values{"email": {adminEmail}, "password": {testPassword}, "role": {"superuser"}},
			status:  http.StatusBadRequest,
			message: "Please select a valid role",
		},
		{
			name:    "wrong password",
			form:    url.Values{"email": {adminEmail}, "password": {"not-the-password"}, "role": {"admin"}},
			status:  http.StatusUnauthorized,
			message: "Incorrect password.",
		},
		{
			name:    "unknown account",
			form:    url.Values{"email": {"nobody@club.org.nz"}, "password": {testPassword}, "role": {"member"}},
			status:  http.StatusUnauthorized,
			message: "No account found with this email.",
		},
		{
			name:    "member selects admin",
			form:    url.Values{"email": {memberEmail}, "password": {testPassword}, "role": {"admin"}},
			status:  http.StatusUnauthorized,
			message: "You are not authorized as an administrator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBrowser(t, ts)
			b.get("/login")
			resp, body := b.postForm("/login", tt.form)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(body, tt.message) {
				t.Errorf("body should contain %q", tt.message)
			}
			if c := tokenCookie(resp); c != nil && c.Value != "" {
				t.Error("a rejected login must not leave a token")
			}

			resp, _ = b.get(session.PathMemberDashboard)
			expectRedirect(t, resp, session.PathLogin)
		})
	}
}

// TestLogin_AdminSelectsMember tests that the member choice is never checked
// against the profile.
func TestLogin_AdminSelectsMember(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)

	resp, _ := b.login(adminEmail, session.RoleMember, false)
	expectRedirect(t, resp, session.PathMemberDashboard)

	resp, _ = b.get(session.PathMemberDashboard)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("member dashboard status = %d", resp.StatusCode)
	}
}

// TestGuard_MemberOnAdminDashboard tests the redirect to the actual role's dashboard.
func TestGuard_MemberOnAdminDashboard(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.login(memberEmail, session.RoleMember, false)

	resp, _ := b.get(session.PathAdminDashboard)
	expectRedirect(t, resp, session.PathMemberDashboard)
}

// TestLogout tests that logout clears the identity and returns to login.
func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.login(adminEmail, session.RoleAdmin, true)
	b.get(session.PathAdminDashboard)

	resp, _ := b.postForm("/logout", nil)
	expectRedirect(t, resp, session.PathLogin)
	if c := tokenCookie(resp); c == nil || c.MaxAge >= 0 {
		t.Error("logout should expire the token cookie")
	}

	resp, _ = b.get(session.PathAdminDashboard)
	expectRedirect(t, resp, session.PathLogin)
}

// TestAPI_Guard tests status codes for callers who are not admins.
func TestAPI_Guard(t *testing.T) {
	ts := newTestServer(t)

	anon := newBrowser(t, ts)
	if resp, _ := anon.api("GET", "/api/members", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", resp.StatusCode)
	}

	m := newBrowser(t, ts)
	m.login(memberEmail, session.RoleMember, false)
	if resp, _ := m.api("GET", "/api/members", nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("member status = %d, want 403", resp.StatusCode)
	}
}

// TestAPI_MemberSoftDelete tests create, delete and filtered reads over HTTP.
func TestAPI_MemberSoftDelete(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.login(adminEmail, session.RoleAdmin, false)

	resp, body := b.api("POST", "/api/members", map[string]string{"name": "Tama", "email": "tama@example.com"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var created createdResponse
	if err := json.Unmarshal([]byte(body), &created); err != nil || created.ID == "" {
		t.Fatalf("create response %q: %v", body, err)
	}

	if resp, body := b.api("POST", "/api/members", map[string]string{"createdAt": "2020-01-01"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("server field status = %d: %s", resp.StatusCode, body)
	}

	if resp, _ := b.api("DELETE", "/api/members/"+created.ID, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp, _ := b.api("DELETE", "/api/members/missing", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", resp.StatusCode)
	}

	_, body = b.api("GET", "/api/members?status=active", nil)
	var active []member.Member
	if err := json.Unmarshal([]byte(body), &active); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active members, got %d", len(active))
	}

	_, body = b.api("GET", "/api/members", nil)
	var all []member.Member
	if err := json.Unmarshal([]byte(body), &all); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(all) != 1 || all[0].Status != member.StatusInactive || all[0].DeletedAt == nil {
		t.Errorf("soft-deleted member should remain, got %+v", all)
	}
}

// TestAPI_MemberFreeFormAndReactivate tests extra fields, clearing and
// bringing a soft-deleted member back over HTTP.
func TestAPI_MemberFreeFormAndReactivate(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.login(adminEmail, session.RoleAdmin, false)

	resp, body := b.api("POST", "/api/members", map[string]any{
		"name": "Tama", "phone": "021 555 0101", "dateOfBirth": "2001-04-02",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var created createdResponse
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("create response %q: %v", body, err)
	}
	path := "/api/members/" + created.ID

	getMember := func() map[string]any {
		t.Helper()
		resp, body := b.api("GET", path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get status = %d: %s", resp.StatusCode, body)
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		return m
	}
	if m := getMember(); m["dateOfBirth"] != "2001-04-02" {
		t.Errorf("dateOfBirth not returned: %v", m)
	}

	if resp, body := b.api("PATCH", path, map[string]any{"phone": nil}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status = %d: %s", resp.StatusCode, body)
	}
	if m := getMember(); m["phone"] != nil {
		t.Errorf("phone should be cleared: %v", m)
	}

	if resp, _ := b.api("DELETE", path, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp, body := b.api("PATCH", path, map[string]any{"status": "archived"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status = %d: %s", resp.StatusCode, body)
	}
	if resp, body := b.api("PATCH", path, map[string]any{"status": "active"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reactivate status = %d: %s", resp.StatusCode, body)
	}
	m := getMember()
	if m["status"] != member.StatusActive {
		t.Errorf("status = %v, want active", m["status"])
	}
	if _, ok := m["deletedAt"]; ok {
		t.Errorf("deletedAt should be gone: %v", m)
	}
	if m["name"] != "Tama" || m["dateOfBirth"] != "2001-04-02" {
		t.Errorf("fields lost on reactivation: %v", m)
	}
}

// TestAPI_FinancialSummary tests the month summary over HTTP.
func TestAPI_FinancialSummary(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.login(adminEmail, session.RoleAdmin, false)

	date := time.Now().Add(-time.Second).Format(time.RFC3339)
	for _, tx := range []transactionRequest{
		{Type: "income", Amount: 100, Date: date},
		{Type: "expense", Amount: 30, Date: date},
		{Type: "income", Amount: 20, Date: date},
	} {
		if resp, body := b.api("POST", "/api/transactions", tx); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d: %s", resp.StatusCode, body)
		}
	}
	if resp, _ := b.api("POST", "/api/transactions", transactionRequest{Type: "gift", Amount: 1, Date: date}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want 400", resp.StatusCode)
	}

	_, body := b.api("GET", "/api/transactions/summary", nil)
	want := `{"totalIncome":120,"totalExpenses":30,"balance":90,"transactionsCount":3}`
	if strings.TrimSpace(body) != want {
		t.Errorf("summary = %s, want %s", body, want)
	}
}

// TestMemberDashboard_Register tests event registration from the member page.
func TestMemberDashboard_Register(t *testing.T) {
	ts := newTestServer(t)

	admin := newBrowser(t, ts)
	admin.login(adminEmail, session.RoleAdmin, false)
	future := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	resp, body := admin.api("POST", "/api/events", eventRequest{Title: "Working bee", Description: "Bring **gloves**", Date: future})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event status = %d: %s", resp.StatusCode, body)
	}
	var created createdResponse
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	m := newBrowser(t, ts)
	m.login(memberEmail, session.RoleMember, false)
	_, body = m.get(session.PathMemberDashboard)
	if !strings.Contains(body, "Working bee") || !strings.Contains(body, "<strong>gloves</strong>") {
		t.Fatalf("dashboard should list the event with rendered markdown: %s", body)
	}

	resp, _ = m.postForm(fmt.Sprintf("/member/events/%s/register", created.ID), nil)
	expectRedirect(t, resp, session.PathMemberDashboard)

	_, body = m.get(session.PathMemberDashboard)
	if !strings.Contains(body, "You are registered.") {
		t.Error("dashboard should show the registration")
	}

	resp, _ = admin.api("POST", "/api/events/"+created.ID+"/attendees", attendeeRequest{UID: "someone"})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("add attendee status = %d", resp.StatusCode)
	}
	resp, _ = admin.api("POST", "/api/events/"+created.ID+"/attendees", attendeeRequest{UID: "someone"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate attendee status = %d, want 409", resp.StatusCode)
	}
}

// TestAPI_ActivityAndMetrics tests the audit trail and the metrics endpoint.
func TestAPI_ActivityAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.login(adminEmail, session.RoleAdmin, false)

	_, body := b.api("GET", "/api/activity", nil)
	if !strings.Contains(body, `"action":"user_login"`) {
		t.Errorf("login should be in the activity log: %s", body)
	}

	resp, body := b.get("/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "memberdesk_http_request_duration_seconds") {
		t.Error("metrics should expose request durations")
	}
}

// TestLoadCSRFKey tests key decoding and the production requirement.
func TestLoadCSRFKey(t *testing.T) {
	if key, err := LoadCSRFKey(testCSRFKeyHx, true); err != nil || len(key) != 32 {
		t.Errorf("valid key: len=%d err=%v", len(key), err)
	}
	if _, err := LoadCSRFKey("abc", false); err == nil {
		t.Error("short key should fail")
	}
	if _, err := LoadCSRFKey("", true); err == nil {
		t.Error("missing key should fail in production")
	}
	if key, err := LoadCSRFKey("", false); err != nil || len(key) != 32 {
		t.Errorf("dev key: len=%d err=%v", len(key), err)
	}
}
