package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/authstate"
	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/guard"
	"fitcoach_backend/internal/middleware"
	"fitcoach_backend/internal/platform/database/dbtest"
	"fitcoach_backend/internal/platform/pubsub"
	"fitcoach_backend/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const password = "secret123"

type webFixture struct {
	router   *gin.Engine
	provider *auth.LocalProvider
	profiles *profile.ServiceImplementation
	handler  *Handler
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := &config.Config{
		JWTSecret:           "test-secret",
		SessionTTL:          time.Hour,
		MinPasswordLength:   6,
		ProfileFetchTimeout: time.Second,
		GuardWait:           2 * time.Second,
		AuthStateIdleTTL:    time.Minute,
	}
	db := dbtest.New(t, &auth.Credential{}, &auth.SessionRecord{}, &profile.Profile{})
	broker := pubsub.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	provider := auth.NewLocalProvider(auth.NewGORMRepository(db), auth.NewTokenSigner(cfg), broker, cfg, nil, logger)
	profiles := profile.NewService(profile.NewGORMRepository(db), provider, provider, nil, logger)
	registry := authstate.NewRegistry(provider, profiles, cfg, nil, logger)
	t.Cleanup(registry.Close)
	g := guard.New(authstate.NewStoreResolver(registry, cfg.GuardWait), nil, nil, logger)

	h := NewHandler(provider, registry, g, cfg.GuardWait, logger)
	h.keepAlive = 50 * time.Millisecond

	router := gin.New()
	router.Use(middleware.ClientIdentity(cfg))
	h.RegisterRoutes(router, nil)
	h.RegisterStateRoutes(router.Group("/api/v1"))
	return &webFixture{router: router, provider: provider, profiles: profiles, handler: h}
}

// account creates credentials and, when userType is set, a profile.
func (f *webFixture) account(t *testing.T, email, userType string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := f.provider.CreateAccount(ctx, email, password)
	require.NoError(t, err)
	if userType != "" {
		_, err = f.profiles.Provision(ctx, id, email, profile.ProvisionInput{Name: "Sam", UserType: userType})
		require.NoError(t, err)
	}
	return id
}

func (f *webFixture) do(t *testing.T, method, path, clientID string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(common.ClientIDHeader, clientID)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *webFixture) login(t *testing.T, clientID, email string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/login", clientID, url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Equal(t, "/", w.Header().Get("Location"))
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, target string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, target, w.Header().Get("Location"))
}

func decodeScreen(t *testing.T, w *httptest.ResponseRecorder) Screen {
	t.Helper()
	var s Screen
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestScreens_SignedOut(t *testing.T) {
	f := newWebFixture(t)
	client := "signed-out-client"

	assertRedirect(t, f.do(t, http.MethodGet, "/", client, nil), "/login")
	assertRedirect(t, f.do(t, http.MethodGet, "/student/dashboard", client, nil), "/login")
	assertRedirect(t, f.do(t, http.MethodGet, "/welcome", client, nil), "/login")

	w := f.do(t, http.MethodGet, "/login", client, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "login", decodeScreen(t, w).Name)
}

func TestScreens_BadCredentialsStayOnLogin(t *testing.T) {
	f := newWebFixture(t)
	f.account(t, "coach@example.com", "trainer")

	w := f.do(t, http.MethodPost, "/login", "bad-creds-client", url.Values{"email": {"coach@example.com"}, "password": {"nope-nope"}})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	s := decodeScreen(t, w)
	assert.Equal(t, "login", s.Name)
	assert.Equal(t, auth.ErrInvalidCredentials.Message, s.Error)

	w = f.do(t, http.MethodPost, "/login", "bad-creds-client", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScreens_TrainerNavigation(t *testing.T) {
	f := newWebFixture(t)
	f.account(t, "coach@example.com", "trainer")
	client := "trainer-client"

	f.login(t, client, "coach@example.com")

	assertRedirect(t, f.do(t, http.MethodGet, "/", client, nil), "/trainer/dashboard")
	assertRedirect(t, f.do(t, http.MethodGet, "/login", client, nil), "/")
	assertRedirect(t, f.do(t, http.MethodGet, "/student/dashboard", client, nil), "/trainer/dashboard")

	w := f.do(t, http.MethodGet, "/trainer/dashboard", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trainer_dashboard", decodeScreen(t, w).Name)

	// A different client id has no session.
	assertRedirect(t, f.do(t, http.MethodGet, "/trainer/dashboard", "other-client", nil), "/login")

	assertRedirect(t, f.do(t, http.MethodPost, "/logout", client, nil), "/login")
	assertRedirect(t, f.do(t, http.MethodGet, "/trainer/dashboard", client, nil), "/login")
}

func TestScreens_AccountWithoutProfileLandsOnWelcome(t *testing.T) {
	f := newWebFixture(t)
	f.account(t, "new@example.com", "")
	client := "no-profile-client"

	f.login(t, client, "new@example.com")

	assertRedirect(t, f.do(t, http.MethodGet, "/", client, nil), "/welcome")
	assertRedirect(t, f.do(t, http.MethodGet, "/student/dashboard", client, nil), "/welcome")
	assertRedirect(t, f.do(t, http.MethodGet, "/trainer/dashboard", client, nil), "/welcome")

	w := f.do(t, http.MethodGet, "/welcome", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	content := decodeScreen(t, w).Content.(map[string]interface{})
	assert.Equal(t, true, content["needs_profile"])
	assert.Equal(t, "new@example.com", content["email"])
}

type stateEnvelope struct {
	Data StatePayload `json:"data"`
}

func TestState_ReportsDecisionForRole(t *testing.T) {
	f := newWebFixture(t)
	f.account(t, "coach@example.com", "trainer")
	client := "state-client"
	f.login(t, client, "coach@example.com")

	w := f.do(t, http.MethodGet, "/api/v1/auth/state?role=student", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env stateEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, authstate.StatusResolved, env.Data.Status)
	assert.Equal(t, "trainer", env.Data.Role)
	assert.Equal(t, guard.StateRoleMismatch, env.Data.Decision.State)
	assert.Equal(t, "/trainer/dashboard", env.Data.Decision.Target)

	w = f.do(t, http.MethodGet, "/api/v1/auth/state?role=admin", client, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStateStream_RevokesOnBackgroundSignOut(t *testing.T) {
	f := newWebFixture(t)
	f.account(t, "coach@example.com", "trainer")
	client := "stream-client"
	f.login(t, client, "coach@example.com")

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/auth/state/stream?role=trainer", nil)
	require.NoError(t, err)
	req.Header.Set(common.ClientIDHeader, client)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	events := make(chan StatePayload, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(res.Body)
		event := ""
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && event == "state":
				var p StatePayload
				if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &p) == nil {
					events <- p
				}
			}
		}
	}()

	next := func() StatePayload {
		select {
		case p, ok := <-events:
			require.True(t, ok, "stream ended")
			return p
		case <-ctx.Done():
			t.Fatal("timed out waiting for state event")
			return StatePayload{}
		}
	}

	first := next()
	assert.Equal(t, guard.StateRoleMatches, first.Decision.State)

	// Sign-out from somewhere else, e.g. the expiry job or another tab.
	require.NoError(t, f.provider.SignOut(context.Background(), client))

	for {
		p := next()
		if p.Decision.State == guard.StateNoSession {
			assert.Equal(t, "/login", p.Decision.Target)
			assert.Equal(t, authstate.StatusSignedOut, p.Status)
			return
		}
	}
}
