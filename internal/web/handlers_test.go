package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"earnpulse/internal/api"
	"earnpulse/internal/coach"
	"earnpulse/internal/core"
	"earnpulse/internal/store"
	"earnpulse/internal/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	state *core.State
}

func (m *memStore) State() *core.State         { return m.state }
func (m *memStore) Save() error                { return nil }
func (m *memStore) Replace(st *core.State) error { m.state = st; return nil }

// testClient wraps a cookie-carrying HTTP client pointed at a full router.
type testClient struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
}

func newTestClient(t *testing.T) (*testClient, *memStore) {
	t.Helper()

	ms := &memStore{state: store.DefaultState()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := core.NewService(ms, logger)
	client := api.NewClient(svc, 0)
	coachClient := coach.NewClient("", "", "", logger)

	srv := web.NewServer(client, svc, coachClient, "test-secret", "http://localhost", t.TempDir(), logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testClient{
		t:      t,
		server: ts,
		http:   &http.Client{Jar: jar},
	}, ms
}

func (c *testClient) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (c *testClient) login(email string) *core.User {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var user core.User
	decode(c.t, resp, &user)
	return &user
}

func TestLoginSetsSessionCookie(t *testing.T) {
	c, _ := newTestClient(t)

	user := c.login("a@x.com")
	assert.Equal(t, "a@x.com", user.ID)
	assert.Equal(t, core.RoleUser, user.Role)

	resp := c.do(http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session core.User
	decode(t, resp, &session)
	assert.Equal(t, "a@x.com", session.ID)
}

func TestSessionWithoutCookie(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodGet, "/api/auth/session", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, bytes.TrimSpace(body))
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "nope"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp web.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "validation_error", errResp.Error)
}

func TestAuthenticatedRoutesRequireCookie(t *testing.T) {
	c, _ := newTestClient(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks/1/complete"},
		{http.MethodPost, "/api/ads/complete"},
		{http.MethodGet, "/api/wallet/history"},
	} {
		resp := c.do(route.method, route.path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
	}
}

func TestCompleteTaskFlow(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tasks []core.Task
	decode(t, resp, &tasks)
	require.Len(t, tasks, 4)

	resp = c.do(http.MethodPost, "/api/tasks/1/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completion struct {
		User        core.User        `json:"user"`
		Transaction core.Transaction `json:"transaction"`
	}
	decode(t, resp, &completion)
	assert.Equal(t, 0.85, completion.User.Balance)
	assert.Equal(t, core.TypeEarning, completion.Transaction.Type)

	resp = c.do(http.MethodGet, "/api/wallet/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []core.Transaction
	decode(t, resp, &history)
	require.Len(t, history, 1)
	assert.Equal(t, completion.Transaction.ID, history[0].ID)
}

func TestCompleteUnknownTask(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodPost, "/api/tasks/ghost/complete", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPayoutInsufficientFunds(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodPost, "/api/wallet/payouts", map[string]interface{}{
		"amount": 50.0,
		"method": "PayPal",
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	var errResp web.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "insufficient_funds", errResp.Error)
}

func TestPayoutApprovalFlow(t *testing.T) {
	c, _ := newTestClient(t)

	// earn, then request a withdrawal
	c.login("a@x.com")
	resp := c.do(http.MethodPost, "/api/tasks/3/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/api/wallet/payouts", map[string]interface{}{
		"amount": 4.50,
		"method": "PayPal",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var payout core.Transaction
	decode(t, resp, &payout)
	assert.Equal(t, core.StatusTxPending, payout.Status)

	// admin settles it
	c.login("admin@earnpulse.com")
	resp = c.do(http.MethodPost, "/api/admin/payouts/"+payout.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settled core.Transaction
	decode(t, resp, &settled)
	assert.Equal(t, core.StatusCompleted, settled.Status)

	// settling twice conflicts
	resp = c.do(http.MethodPost, "/api/admin/payouts/"+payout.ID+"/reject", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp web.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "invalid_transition", errResp.Error)
}

func TestAdminRoutesForbiddenForUsers(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodGet, "/api/admin/stats", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminRoutesUnauthorizedWithoutCookie(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodGet, "/api/admin/stats", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminUserManagement(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")
	c.login("admin@earnpulse.com")

	resp := c.do(http.MethodPost, "/api/admin/users/a@x.com/balance", map[string]float64{"balance": 25})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user core.User
	decode(t, resp, &user)
	assert.Equal(t, 25.0, user.Balance)

	resp = c.do(http.MethodPost, "/api/admin/users/a@x.com/status", map[string]string{"status": "Banned"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &user)
	assert.Equal(t, core.StatusBanned, user.Status)

	// the banned user cannot log back in
	resp = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminTaskManagement(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("admin@earnpulse.com")

	resp := c.do(http.MethodPost, "/api/admin/tasks", core.Task{
		Title:         "Quick Poll",
		Reward:        0.25,
		Category:      core.CategorySurvey,
		EstimatedTime: "1m",
		Difficulty:    core.DifficultyEasy,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var task core.Task
	decode(t, resp, &task)
	require.NotEmpty(t, task.ID)

	resp = c.do(http.MethodDelete, "/api/admin/tasks/"+task.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = c.do(http.MethodDelete, "/api/admin/tasks/"+task.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettingsPatchAndPublicView(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("admin@earnpulse.com")

	resp := c.do(http.MethodPatch, "/api/admin/settings", map[string]interface{}{
		"announcement": "Scheduled downtime Friday",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settings core.Settings
	decode(t, resp, &settings)
	assert.Equal(t, "Scheduled downtime Friday", settings.Announcement)
	// untouched fields survive the patch
	assert.Equal(t, 30.0, settings.GlobalCommission)
	assert.Equal(t, 5.0, settings.AdMob.EstimatedCPM)

	resp = c.do(http.MethodGet, "/api/settings/public", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var public map[string]interface{}
	decode(t, resp, &public)
	assert.Equal(t, "Scheduled downtime Friday", public["announcement"])
	// internals like commission never appear on the public route
	assert.NotContains(t, public, "globalCommission")
	assert.NotContains(t, public, "admob")
}

func TestMaintenanceGate(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("admin@earnpulse.com")

	resp := c.do(http.MethodPatch, "/api/admin/settings", map[string]interface{}{
		"maintenanceMode": true,
		"announcement":    "Back soon",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// admins keep working through maintenance
	resp = c.do(http.MethodGet, "/api/tasks", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// regular users are turned away with the announcement
	c.login("a@x.com")
	resp = c.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var errResp web.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "maintenance", errResp.Error)
	assert.Equal(t, "Back soon", errResp.Message)
}

func TestExportImportOverHTTP(t *testing.T) {
	c, ms := newTestClient(t)
	c.login("a@x.com")
	resp := c.do(http.MethodPost, "/api/tasks/1/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	c.login("admin@earnpulse.com")
	resp = c.do(http.MethodGet, "/api/admin/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	// wipe the in-memory document, then restore from the export
	ms.state = store.DefaultState()
	id := "admin@earnpulse.com"
	ms.state.CurrentUser = &id

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/api/admin/import", bytes.NewReader(exported))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = c.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Contains(t, ms.state.Users, "a@x.com")
	assert.Equal(t, 0.85, ms.state.Users["a@x.com"].Balance)
}

func TestImportRejectsGarbage(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("admin@earnpulse.com")

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/api/admin/import", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCoachFallsBackWithoutUpstream(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodGet, "/api/coach/tips", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var advice coach.Advice
	decode(t, resp, &advice)
	assert.Equal(t, coach.FallbackAdvice(), advice)

	resp = c.do(http.MethodPost, "/api/coach/chat", map[string]string{"message": "how do I earn more?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chat struct {
		Reply string `json:"reply"`
	}
	decode(t, resp, &chat)
	assert.Equal(t, coach.FallbackReply, chat.Reply)
}

func TestCoachChatRequiresMessage(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodPost, "/api/coach/chat", map[string]string{"message": ""})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutClearsSession(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")

	resp := c.do(http.MethodPost, "/api/auth/logout", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = c.do(http.MethodGet, "/api/tasks", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStaleCookieIsDropped(t *testing.T) {
	c, _ := newTestClient(t)

	c.login("a@x.com")
	// a second login elsewhere moves the store-side session on
	c2, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &testClient{t: t, server: c.server, http: &http.Client{Jar: c2}}
	other.login("b@x.com")

	resp := c.do(http.MethodGet, "/api/auth/session", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, bytes.TrimSpace(body))
}

func TestStatsEndpoint(t *testing.T) {
	c, _ := newTestClient(t)
	c.login("a@x.com")
	resp := c.do(http.MethodPost, "/api/tasks/1/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	c.login("admin@earnpulse.com")
	resp = c.do(http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats core.Stats
	decode(t, resp, &stats)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 0.85, stats.TotalBalance)
	assert.Equal(t, 4, stats.ActiveTasks)
}
