package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidzone/internal/auth"
	"kidzone/internal/config"
	"kidzone/internal/game"
	"kidzone/internal/handler"
	"kidzone/internal/model"
	"kidzone/internal/pkg/lock"
	"kidzone/internal/service"
	"kidzone/internal/wheel"
)

const testSecret = "test-secret"

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// newTestServer wires services without stores. Only paths that are decided
// before any store access are exercised here; full flows run against
// postgres in the repository tests.
func newTestServer(t *testing.T, health HealthChecker, opts ...func(*config.ServerConfig)) (*Server, *auth.Verifier) {
	t.Helper()
	return newTestServerWithApprovals(t, health, nil, opts...)
}

func newTestServerWithApprovals(t *testing.T, health HealthChecker, approvalStore service.ApprovalStore, opts ...func(*config.ServerConfig)) (*Server, *auth.Verifier) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"http://localhost:3000"}},
		Admin:  config.AdminConfig{Principals: []string{"admin-1"}},
		Economy: config.EconomyConfig{
			InitialTrophies: 70, GameCost: 10, WelcomeBackReward: 20, WelcomeBackInterval: 24 * time.Hour,
		},
		Activity: config.ActivityConfig{DefaultLimit: 20, MaxLimit: 200},
		Profile:  config.ProfileConfig{MinAge: 5, MaxAge: 12, DefaultScreenTime: 120, DefaultContentFilter: "medium"},
	}
	for _, opt := range opts {
		opt(&cfg.Server)
	}

	w, err := wheel.New(wheel.DefaultSegments, nil)
	require.NoError(t, err)
	locks := lock.NewUserLock()

	approvals := service.NewApprovalService(approvalStore, cfg)
	economy := service.NewEconomyService(nil, nil, locks, nil, cfg.Economy, "Buddy")
	badges := service.NewBadgeService(nil, nil, nil, nil, nil, economy)
	spins := service.NewSpinService(nil, nil, economy, w, locks, wheel.DefaultCooldown)
	activity := service.NewActivityService(nil, nil, game.NewDefaultRegistry(), cfg, nil, cfg.Activity, false)
	profiles := service.NewProfileService(nil, activity, badges, cfg.Profile)
	pets := service.NewPetService(nil, economy, locks)
	gate := service.NewGateService(nil, nil)
	leaderboard := service.NewLeaderboardService(nil, nil)

	h := &handler.Handlers{
		Approval: handler.NewApprovalHandler(approvals),
		Trophy:   handler.NewTrophyHandler(economy, leaderboard),
		Game:     handler.NewGameHandler(activity),
		Spin:     handler.NewSpinHandler(spins),
		Profile:  handler.NewProfileHandler(profiles, pets, badges, gate),
	}

	verifier := auth.NewVerifier(testSecret, "kidzone")
	return New(cfg.Server, verifier, h, health), verifier
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func bearer(t *testing.T, v *auth.Verifier, p model.Principal) string {
	t.Helper()
	token, err := v.Issue(p, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeError(t *testing.T, body []byte) handler.ErrorResponse {
	t.Helper()
	var e handler.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	s, _ = newTestServer(t, healthFunc(func(context.Context) error { return errors.New("db down") }))
	resp, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, httptest.NewRequest(http.MethodGet, "/v1/games", nil))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "kidzone_http_requests_total")
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGamesCatalogIsPublic(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/games", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var games []game.Game
	require.NoError(t, json.Unmarshal(body, &games))
	assert.Len(t, games, len(game.DefaultGames))
}

func TestBootstrapAnonymousIsLogin(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/bootstrap", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state model.GateState
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, model.StageLogin, state.Stage)
}

func TestAnonymousCallerIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/v1/trophies"},
		{http.MethodPost, "/v1/spin"},
		{http.MethodPost, "/v1/approval/request"},
		{http.MethodGet, "/v1/admin/activity"},
	} {
		resp, body := do(t, s, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
		assert.Equal(t, "unauthenticated", decodeError(t, body).Code, route.path)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	s, _ := newTestServer(t, nil)

	other := auth.NewVerifier("another-secret", "kidzone")
	for _, header := range []string{"Bearer not-a-jwt", "Basic abc", bearer(t, other, "kid")} {
		req := httptest.NewRequest(http.MethodGet, "/v1/games", nil)
		req.Header.Set("Authorization", header)
		resp, body := do(t, s, req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, header)
		assert.Equal(t, "unauthenticated", decodeError(t, body).Code)
	}
}

func TestAdminRoutesForbiddenToNonAdmins(t *testing.T) {
	s, v := newTestServer(t, nil)

	for _, route := range []struct{ method, path, body string }{
		{http.MethodGet, "/v1/admin/activity?limit=5", ""},
		{http.MethodGet, "/v1/admin/approvals", ""},
		{http.MethodPut, "/v1/admin/approvals/kid-2", `{"status":"approved"}`},
	} {
		var body io.Reader
		if route.body != "" {
			body = strings.NewReader(route.body)
		}
		req := httptest.NewRequest(route.method, route.path, body)
		req.Header.Set("Authorization", bearer(t, v, "kid"))
		req.Header.Set("Content-Type", "application/json")

		resp, respBody := do(t, s, req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, route.path)
		e := decodeError(t, respBody)
		assert.Equal(t, "unauthorized", e.Code)
		assert.Contains(t, e.Error, "Unauthorized")
	}
}

func TestIsAdmin(t *testing.T) {
	s, v := newTestServer(t, nil)

	for p, want := range map[model.Principal]bool{"admin-1": true, "kid": false} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me/admin", nil)
		req.Header.Set("Authorization", bearer(t, v, p))
		resp, body := do(t, s, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out map[string]bool
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, want, out["is_admin"], p)
	}
}

func TestUnknownGameIsInvalid(t *testing.T) {
	s, v := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/games/not-a-game/play", nil)
	req.Header.Set("Authorization", bearer(t, v, "kid"))
	resp, body := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid", decodeError(t, body).Code)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, body).Code)
}

func TestSpinSegments(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/spin/segments", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var segments []wheel.Segment
	require.NoError(t, json.Unmarshal(body, &segments))
	assert.Len(t, segments, len(wheel.DefaultSegments))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("kid"), "burst request %d", i)
	}
	assert.False(t, rl.Allow("kid"))
	assert.True(t, rl.Allow("other-kid"), "limits are per caller")
}

func TestRateLimitedRequests(t *testing.T) {
	s, v := newTestServer(t, nil, func(cfg *config.ServerConfig) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 2
	})

	var last *http.Response
	var body []byte
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/me/admin", nil)
		req.Header.Set("Authorization", bearer(t, v, "kid"))
		last, body = do(t, s, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	assert.Equal(t, "rate_limited", decodeError(t, body).Code)
}

// recordingApprovals captures the principal each decision is written for.
type recordingApprovals struct {
	service.ApprovalStore
	set []model.Principal
}

func (r *recordingApprovals) Set(_ context.Context, p model.Principal, status model.ApprovalStatus, decidedBy model.Principal) (*model.UserApproval, error) {
	r.set = append(r.set, p)
	return &model.UserApproval{Principal: p, Status: status, DecidedBy: &decidedBy}, nil
}

func TestSetApprovalDecodesPrincipal(t *testing.T) {
	store := &recordingApprovals{}
	s, v := newTestServerWithApprovals(t, nil, store)

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/approvals/auth0%7Ckid%207", strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, v, "admin-1"))

	resp, body := do(t, s, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, []model.Principal{"auth0|kid 7"}, store.set)

	var rec model.UserApproval
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, model.Principal("auth0|kid 7"), rec.Principal)
	assert.Equal(t, model.ApprovalApproved, rec.Status)
}

func TestSetApprovalMalformedPrincipal(t *testing.T) {
	store := &recordingApprovals{}
	s, v := newTestServerWithApprovals(t, nil, store)

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/approvals/placeholder", strings.NewReader(`{"status":"approved"}`))
	// Opaque is written verbatim, so the bad escape reaches the server.
	req.URL.Opaque = "/v1/admin/approvals/kid%zz"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, v, "admin-1"))

	resp, body := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid", decodeError(t, body).Code)
	assert.Empty(t, store.set)
}
