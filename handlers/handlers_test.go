package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/middleware"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", services.ErrTournamentNotFound, http.StatusNotFound},
		{"not registered", fmt.Errorf("withdraw: %w", services.ErrNotRegistered), http.StatusNotFound},
		{"validation", fmt.Errorf("%w: bad round", services.ErrValidationFailed), http.StatusBadRequest},
		{"already recorded", services.ErrResultAlreadyRecorded, http.StatusBadRequest},
		{"bad credentials", services.ErrAuthenticationFailed, http.StatusUnauthorized},
		{"not a participant", services.ErrNotPairingParticipant, http.StatusForbidden},
		{"disabled", services.ErrAccountDisabled, http.StatusForbidden},
		{"paid", services.ErrPaymentRequired, http.StatusPaymentRequired},
		{"throttled", services.ErrTooManyRequests, http.StatusTooManyRequests},
		{"sms down", services.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			mapServiceErrorToHTTP(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMapServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("sql: connection refused"))

	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestUnauthorizedSetsChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), services.ErrInvalidToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"wanjiru","age":19}`, ""},
		{"empty", ``, "body must not be empty"},
		{"malformed", `{"name":`, "badly-formed JSON"},
		{"wrong type", `{"age":"nineteen"}`, `incorrect JSON type for field "age"`},
		{"two values", `{"name":"a"}{"name":"b"}`, "single JSON value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst payload
			err := readJSON(rec, req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "wanjiru", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPaging(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?skip=-5&limit=500", nil)
	offset, limit, err := paging(req, 50, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 100, limit)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	offset, limit, err = paging(req, 50, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 50, limit)

	req = httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
	_, _, err = paging(req, 50, 100)
	assert.Error(t, err)
}

func TestCurrentPlayer(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := currentPlayer(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	player := &models.Player{ID: "p1", ChessComUsername: "kamau"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithPlayer(req.Context(), player))
	rec = httptest.NewRecorder()
	got, ok := currentPlayer(rec, req)
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
}

func TestCalculateRounds(t *testing.T) {
	h := NewUtilsHandler(services.NewCatalogService(nil, nil))

	tests := []struct {
		name   string
		query  string
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "round robin",
			query:  "?format=round_robin&player_count=6",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 5, body["rounds_required"])
				assert.EqualValues(t, 15, body["total_games"])
				assert.EqualValues(t, 3, body["games_per_round"])
			},
		},
		{
			name:   "swiss",
			query:  "?format=swiss&player_count=32",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 5, body["minimum_rounds"])
				assert.EqualValues(t, 6, body["recommended_rounds"])
				assert.EqualValues(t, 8, body["maximum_rounds"])
			},
		},
		{name: "missing format", query: "?player_count=6", status: http.StatusBadRequest},
		{name: "too few players", query: "?format=swiss&player_count=1", status: http.StatusBadRequest},
		{name: "unknown format", query: "?format=arena&player_count=8", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CalculateRounds(rec, httptest.NewRequest(http.MethodGet, "/api/utils/calculate-rounds"+tt.query, nil))

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeBody(t, rec))
			}
		})
	}
}

func TestCountiesAreSorted(t *testing.T) {
	h := NewUtilsHandler(services.NewCatalogService(nil, nil))
	rec := httptest.NewRecorder()
	h.Counties(rec, httptest.NewRequest(http.MethodGet, "/api/utils/counties", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var counties []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counties))
	assert.Len(t, counties, 47)
	assert.IsNonDecreasing(t, counties)
}
