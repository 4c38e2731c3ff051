package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/auth"
	"github.com/sumo47/exam-prep-back/internal/config"
)

type stubVerifier map[string]*auth.Identity

func (s stubVerifier) Verify(_ context.Context, credential string) (*auth.Identity, error) {
	id, ok := s[credential]
	if !ok {
		return nil, apperror.Unauthorized("invalid Google credential", nil)
	}
	copied := *id
	return &copied, nil
}

func testConfig() config.Config {
	return config.Config{
		Port:              5000,
		DBPath:            ":memory:",
		JWTSecret:         "test-secret-at-least-16-chars!!",
		SessionTTL:        time.Hour,
		GoogleClientID:    "client-id",
		GoogleCertsURL:    "http://127.0.0.1:0/unused",
		FrontendURL:       "http://localhost:5173",
		RateLimitRequests: 100,
		RateLimitWindow:   15 * time.Minute,
		MaxBodyBytes:      1 << 20,
		LogLevel:          "error",
	}
}

func newTestServer(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := stubVerifier{"cred": {Subject: "g-1", Email: "ada@example.com", Name: "Ada"}}

	s, err := New(cfg, logger, WithIdentityVerifier(v))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.Handler()
}

func send(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNew_RejectsBadSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "short"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestServer_EndToEnd(t *testing.T) {
	h := newTestServer(t, testConfig())

	rr := send(t, h, http.MethodPost, "/api/auth/google", "", `{"credential":"cred"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))

	rr = send(t, h, http.MethodPost, "/api/questions", login.Token,
		`{"title":"Limits","description":"What is lim sin(x)/x?","subject":"Calculus"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var q struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))

	rr = send(t, h, http.MethodPost, "/api/questions/"+q.ID+"/answers", login.Token, `{"text":"1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = send(t, h, http.MethodGet, "/api/questions", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, float64(1), list[0]["answerCount"])
	assert.Equal(t, []any{}, list[0]["answers"])

	rr = send(t, h, http.MethodGet, "/api/auth/me", login.Token, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = send(t, h, http.MethodGet, "/api/users/"+login.User.ID, "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t, testConfig())

	rr := send(t, h, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestServer_RateLimitOnAPI(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRequests = 2
	h := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, send(t, h, http.MethodGet, "/api/health", "", "").Code)
	assert.Equal(t, http.StatusOK, send(t, h, http.MethodGet, "/api/questions", "", "").Code)

	rr := send(t, h, http.MethodGet, "/api/questions", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestServer_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 64
	h := newTestServer(t, cfg)

	big := `{"credential":"` + strings.Repeat("a", 200) + `"}`
	rr := send(t, h, http.MethodPost, "/api/auth/google", "", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
}

func TestServer_CORSPreflight(t *testing.T) {
	h := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/questions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestServer_CompressesJSON(t *testing.T) {
	h := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/questions", bytes.NewReader(nil))
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}

func TestServer_UnknownRoute(t *testing.T) {
	h := newTestServer(t, testConfig())

	rr := send(t, h, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNew_LogsSessionTTL(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := New(testConfig(), logger, WithIdentityVerifier(stubVerifier{}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	assert.Contains(t, buf.String(), "session tokens configured")
	assert.Contains(t, buf.String(), "ttl=1h0m0s")
}
