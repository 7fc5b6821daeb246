package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
	"github.com/Dosada05/checked/storage"
)

type stubTokens map[string]*models.Player

func (s stubTokens) Authenticate(_ context.Context, token string) (*models.Player, error) {
	switch token {
	case "disabled":
		return nil, services.ErrAccountDisabled
	case "broken":
		return nil, errors.New("database is locked")
	}
	p, ok := s[token]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return p, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if p, ok := PlayerFromContext(r.Context()); ok {
		w.Header().Set("X-Player", p.ID)
	}
	w.WriteHeader(http.StatusOK)
})

func newAuth() *Auth {
	return NewAuth(stubTokens{
		"player-token": {ID: "p1", IsActive: true},
		"admin-token":  {ID: "a1", IsActive: true, IsAdmin: true},
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		status    int
		playerID  string
		challenge bool
	}{
		{name: "missing header", status: http.StatusUnauthorized, challenge: true},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, challenge: true},
		{name: "unknown token", header: "Bearer nope", status: http.StatusUnauthorized, challenge: true},
		{name: "disabled account", header: "Bearer disabled", status: http.StatusForbidden},
		{name: "lookup failure", header: "Bearer broken", status: http.StatusInternalServerError},
		{name: "valid", header: "Bearer player-token", status: http.StatusOK, playerID: "p1"},
		{name: "case-insensitive scheme", header: "bearer player-token", status: http.StatusOK, playerID: "p1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			newAuth().Authenticate(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.playerID, rec.Header().Get("X-Player"))
			if tt.challenge {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	auth := newAuth()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tournaments/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	auth.Optional(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Player"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tournaments/", nil)
	req.Header.Set("Authorization", "Bearer player-token")
	auth.Optional(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, "p1", rec.Header().Get("X-Player"))
}

func TestRequireAdmin(t *testing.T) {
	r := chi.NewRouter()
	r.With(newAuth().Authenticate, RequireAdmin).Post("/admin/optimize", okHandler)

	for token, want := range map[string]int{
		"player-token": http.StatusForbidden,
		"admin-token":  http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodPost, "/admin/optimize", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, token)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "41.90.1.2, 10.0.0.1"}, "10.0.0.9:443", "41.90.1.2"},
		{"real ip", map[string]string{"X-Real-IP": "197.248.3.4"}, "10.0.0.9:443", "197.248.3.4"},
		{"socket", nil, "105.160.7.8:51234", "105.160.7.8"},
		{"no port", nil, "105.160.7.8", "105.160.7.8"},
		{"nothing", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestRateLimit(t *testing.T) {
	m := metrics.New()
	cache := storage.NewMemoryCache()
	t.Cleanup(func() { cache.Close() })

	handler := RateLimit(cache, 3, m, nil)(okHandler)
	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/players/leaderboard/global", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit("41.90.1.2").Code)
	}
	rec := hit("41.90.1.2")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimited.WithLabelValues("api")))

	assert.Equal(t, http.StatusOK, hit("41.90.1.3").Code, "other clients keep their own budget")
}

type failingCache struct{ storage.Cache }

func (failingCache) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func TestRateLimitFailsOpen(t *testing.T) {
	handler := RateLimit(failingCache{}, 1, nil, nil)(okHandler)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/utils/counties", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(storage.NewMemoryCache(), 0, nil, nil)(okHandler)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestInstrumentRecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Get("/api/tournaments/{tournamentID}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tournaments/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/tournaments/{tournamentID}", "200")))
	assert.Equal(t, int64(1), m.TotalRequestsToday())
}
