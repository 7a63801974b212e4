package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	users map[string]*models.User
	err   error
}

func (f *fakeAuth) Authenticate(_ context.Context, apiKey string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[apiKey]; ok {
		return u, nil
	}
	return nil, services.ErrAuthenticationFailed
}

func (f *fakeAuth) ValidateAdminToken(token string) (*services.AdminClaims, error) {
	if token == "admin-token" {
		return &services.AdminClaims{Role: services.RoleAdmin}, nil
	}
	return nil, services.ErrAuthenticationFailed
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !assert.True(t, ok) {
			return
		}
		_, _ = w.Write([]byte(user.Name))
	})
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]*models.User{"sk-good": {ID: 1, Name: "kim", TeamID: 2}}}
}

func TestAuthenticateBearer(t *testing.T) {
	h := Authenticate(newFakeAuth(), false)(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer sk-good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kim", rec.Body.String())
}

func TestAuthenticateRejects(t *testing.T) {
	h := Authenticate(newFakeAuth(), false)(echoUser(t))

	for _, header := range []string{"", "sk-good", "Basic sk-good", "Bearer sk-bad"} {
		req := httptest.NewRequest(http.MethodGet, "/api/events?token=sk-good", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestAuthenticateQueryFallback(t *testing.T) {
	h := Authenticate(newFakeAuth(), true)(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/ws?token=sk-good", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kim", rec.Body.String())
}

func TestAuthenticateBackendFailure(t *testing.T) {
	auth := newFakeAuth()
	auth.err = errors.New("db down")
	h := Authenticate(auth, false)(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer sk-good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(newFakeAuth())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminFromContext(r.Context())
		if assert.True(t, ok) {
			assert.Equal(t, services.RoleAdmin, claims.Role)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/teams", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/teams", nil)
	req.Header.Set("Authorization", "Bearer sk-good")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var inner *slog.Logger
	h := chiMiddleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NotNil(t, inner)
	assert.NotSame(t, slog.Default(), inner)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/health"`)
	assert.Contains(t, buf.String(), `"request_id"`)
}
