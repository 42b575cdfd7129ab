package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecom-service/config"
	"ecom-service/internal/auth"
	"ecom-service/internal/models"
	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenManager
	feed   *FeedHub
}

func newTestServer(t *testing.T, checks map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	feed := NewFeedHub(nil)
	t.Cleanup(feed.Close)

	h := NewHandler(Services{
		Auth: service.NewAuthService(nil, nil, tokens, nil, config.AuthConfig{}),
	}, feed, checks, Options{PublicSiteURL: "https://shop.example.com", PublicAPIURL: "https://api.example.com"})

	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{router: router, tokens: tokens, feed: feed}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := s.tokens.Issue(11, "user@example.com", role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestReadinessCheck(t *testing.T) {
	s := newTestServer(t, map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("connection refused")}})

	w := s.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	s = newTestServer(t, map[string]Pinger{"postgres": stubPinger{}})
	w = s.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offline-customers", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, models.RoleCustomer))
	w := s.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin access required")
}

func TestCheckAuthNeverFails(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/check", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["is_authenticated"])
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/0/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+s.token(t, models.RoleCustomer))
	w = s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestGoogleLoginDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Services{}, nil, nil, Options{})

	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{service.NotFound("order not found"), http.StatusNotFound, "order not found"},
		{service.Invalid("bad quantity"), http.StatusBadRequest, "bad quantity"},
		{service.Conflict("insufficient stock"), http.StatusConflict, "insufficient stock"},
		{service.Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{service.Unauthorized("Invalid email or password"), http.StatusUnauthorized, "Invalid email or password"},
		{service.TooManyRequests("slow down"), http.StatusTooManyRequests, "slow down"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.respondError(c, tt.err)

		assert.Equal(t, tt.status, w.Code)
		assert.Contains(t, w.Body.String(), tt.msg)
		assert.NotContains(t, w.Body.String(), "connection reset")
	}
}

func TestIsColorImageField(t *testing.T) {
	assert.True(t, isColorImageField("color_images_0"))
	assert.True(t, isColorImageField("model_2_color_images_1"))
	assert.False(t, isColorImageField("product_images"))
	assert.False(t, isColorImageField("model_2_images"))
}
