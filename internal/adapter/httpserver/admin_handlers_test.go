package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solislegal/leadbot/internal/adapter/httpserver"
	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
)

type fixedMeter int64

func (m fixedMeter) TokensConsumed() int64 { return int64(m) }

func adminRouter(t *testing.T, srv *httpserver.Server) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	srv.MountAdmin(r)
	return r
}

func adminReq(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAdmin_RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{AdminToken: "hunter2"})
	r := adminRouter(t, srv)

	for _, token := range []string{"", "wrong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, adminReq(http.MethodGet, "/admin/faults", token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestAdmin_FaultsSnapshotAndReset(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{AdminToken: "hunter2"})
	r := adminRouter(t, srv)

	// Drive one fault through the boundary so a counter exists.
	srv.Dispatcher.Boundary.Invoke(context.Background(), domain.Event{CallerID: 1, ChatID: 1},
		func(context.Context, domain.Event) error { return errors.New("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminReq(http.MethodGet, "/admin/faults", "hunter2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unclassified")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, adminReq(http.MethodPost, "/admin/faults/reset", "hunter2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.Dispatcher.Boundary.Counters())
}

func TestAdmin_Throttle(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{AdminToken: "hunter2"})
	srv.Dispatcher.Gate.Admit(42, time.Now())
	r := adminRouter(t, srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminReq(http.MethodGet, "/admin/throttle", "hunter2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tracked_callers":1`)
	assert.Contains(t, rec.Body.String(), `"active_bans":0`)
}

func TestAdmin_Tokens(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{AdminToken: "hunter2"})
	srv.Tokens = fixedMeter(1234)
	r := adminRouter(t, srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminReq(http.MethodGet, "/admin/tokens", "hunter2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tokens_consumed":1234`)
}

func TestVerifyToken_Plaintext(t *testing.T) {
	assert.True(t, httpserver.VerifyToken("hunter2", "hunter2"))
	assert.False(t, httpserver.VerifyToken("hunter3", "hunter2"))
	assert.False(t, httpserver.VerifyToken("", "hunter2"))
	assert.False(t, httpserver.VerifyToken("hunter2", ""))
}

func TestVerifyToken_Argon2(t *testing.T) {
	encoded, err := httpserver.HashToken("hunter2", httpserver.Argon2Params{
		Memory: 16 * 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32,
	})
	require.NoError(t, err)

	assert.True(t, httpserver.VerifyToken("hunter2", encoded))
	assert.False(t, httpserver.VerifyToken("wrong", encoded))
	assert.False(t, httpserver.VerifyToken("hunter2", "argon2id$bogus"))
}
