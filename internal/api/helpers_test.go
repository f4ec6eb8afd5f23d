package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npezzotti/go-curio/internal/adapter"
	"github.com/npezzotti/go-curio/internal/auth"
	"github.com/npezzotti/go-curio/internal/config"
	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/feedback"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/server"
	"github.com/npezzotti/go-curio/internal/stats"
	"github.com/npezzotti/go-curio/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

type mockFeedback struct {
	mock.Mock
}

func (m *mockFeedback) Send(ctx context.Context, msg feedback.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

type testEnv struct {
	app   *CurioApp
	h     http.Handler
	repo  database.CurioRepository
	auth  *auth.Service
	guard *guard.MemoryGuard
	vs    *server.ViewServer
}

type envOption func(*Services)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	logger := testutil.TestLogger(t)
	repo := testutil.SQLiteRepository(t)
	authSvc := auth.NewService(repo, testSigningKey, logger)
	entities := adapter.New(repo, logger)
	g := guard.NewMemoryGuard()

	su := stats.NewPermissiveMock()

	vs := server.NewViewServer(logger, entities, g, su)
	vs.Subscribe(authSvc)
	go vs.Run()
	t.Cleanup(vs.Shutdown)

	svc := Services{
		Auth:     authSvc,
		Entities: entities,
		Guard:    g,
		Health:   repo,
		Views:    vs,
		Stats:    su,
	}
	for _, opt := range opts {
		opt(&svc)
	}

	app := NewCurioApp(http.NewServeMux(), logger, svc, &config.Config{
		ServerAddr:     "localhost:8000",
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	return &testEnv{app: app, h: app.Handler(), repo: repo, auth: authSvc, guard: g, vs: vs}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

// signUp creates an account and returns its session cookie.
func (e *testEnv) signUp(t *testing.T, email string) *http.Cookie {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/api/auth/signup", CredentialsRequest{Email: email, Password: "password"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	return tokenCookie(t, rr)
}

func tokenCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == tokenCookieKey {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", tokenCookieKey)
	return nil
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
