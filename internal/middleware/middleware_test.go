package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"furrchum-vet/internal/middleware"
	"furrchum-vet/internal/platform/logger"
	"furrchum-vet/internal/ports/auth"

	"github.com/stretchr/testify/assert"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if token == "good" {
		return auth.Claims{UserID: "u-1"}, nil
	}
	return auth.Claims{}, errors.New("bad token")
}

func whoAmI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := middleware.Sessions{}.CurrentSession(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(c.UserID))
	})
}

func TestAuthContext(t *testing.T) {
	cases := []struct {
		name     string
		verifier auth.AuthVerifier
		headers  map[string]string
		wantCode int
		wantUser string
	}{
		{"dev header", nil, map[string]string{"X-Debug-User-ID": "dev-1"}, http.StatusOK, "dev-1"},
		{"dev without header", nil, nil, http.StatusUnauthorized, ""},
		{"valid bearer", stubVerifier{}, map[string]string{"Authorization": "Bearer good"}, http.StatusOK, "u-1"},
		{"invalid bearer", stubVerifier{}, map[string]string{"Authorization": "Bearer bad"}, http.StatusUnauthorized, ""},
		{"debug ignored with verifier", stubVerifier{}, map[string]string{"X-Debug-User-ID": "dev-1"}, http.StatusUnauthorized, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			middleware.AuthContext(tc.verifier)(whoAmI()).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantUser, rec.Body.String())
		})
	}
}

func TestRequireAdminKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	serve := func(key, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/x", nil)
		if header != "" {
			req.Header.Set("X-Admin-Key", header)
		}
		rec := httptest.NewRecorder()
		middleware.RequireAdminKey(key)(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, serve("", "anything"))
	assert.Equal(t, http.StatusForbidden, serve("secret", "wrong"))
	assert.Equal(t, http.StatusNoContent, serve("secret", "secret"))
}

func TestRateLimit_PerClient(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	// 4/min => burst 1
	h := middleware.RateLimit(4, logger.Nop())(ok)

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1").Code)
	limited := serve("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve("10.0.0.2").Code)
}

func TestRecover_Returns500(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	middleware.Recover(logger.Nop())(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
