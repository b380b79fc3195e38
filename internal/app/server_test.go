package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/guard"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type routerFixture struct {
	router  *gin.Engine
	subject guard.Subject
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &routerFixture{}
	cfg := &config.Config{
		GinMode:            gin.TestMode,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		ClientCookieName:   "fitcoach_client",
	}
	sessions := guard.ResolverFunc(func(*gin.Context) (guard.Subject, error) { return f.subject, nil })
	reg := metrics.NewRegistry()
	rec := metrics.NewCollector(reg)
	g := guard.New(sessions, nil, rec, zap.NewNop())

	f.router = NewRouter(cfg, zap.NewNop(), Handlers{Profile: profile.NewHandler(nil, zap.NewNop())}, g, rec, reg)
	return f
}

func (f *routerFixture) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Client-ID", "router-test-client")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"UP"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	w = f.do(http.MethodDelete, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", errorCode(t, w))
}

func TestRouter_MetricsExposeGuardDecisions(t *testing.T) {
	f := newRouterFixture(t)
	f.do(http.MethodGet, "/api/v1/profile/me", nil)

	w := f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
	assert.Contains(t, w.Body.String(), "no_session")
}

func TestRouter_GuardedRoutes(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/v1/profile/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	student := "student"
	f.subject = guard.Subject{
		Session: &auth.Session{ID: uuid.New(), UserID: uuid.New(), Email: "s@example.com", ExpiresAt: time.Now().Add(time.Hour)},
		Profile: &profile.Profile{UserType: &student},
	}
	w = f.do(http.MethodGet, "/api/v1/trainer/students", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ROLE_MISMATCH", errorCode(t, w))
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodOptions, "/api/v1/profile/me", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
