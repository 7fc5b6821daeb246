package chesscom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/models"
)

type fakeAPI struct {
	mux   *http.ServeMux
	calls map[string]*int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{mux: http.NewServeMux(), calls: map[string]*int32{}}
}

func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) *int32 {
	var n int32
	f.calls[pattern] = &n
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&n, 1)
		h(w, r)
	})
	return &n
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, api *fakeAPI, now time.Time) *Client {
	t.Helper()
	srv := httptest.NewServer(api.mux)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/pub", WithCallbackURL(srv.URL+"/callback/live/game"), withClock(func() time.Time { return now }))
	c.retryWait = time.Millisecond
	return c
}

func TestProfileIsCachedAndSendsUserAgent(t *testing.T) {
	api := newFakeAPI()
	calls := api.handle("/pub/player/magnus", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		writeJSON(w, map[string]interface{}{
			"username": "Magnus", "avatar": "https://img/a.png", "status": "premium",
			"country": "https://api.chess.com/pub/country/KE", "joined": 1500000000,
		})
	})
	c := newTestClient(t, api, time.Now())

	p, err := c.Profile(context.Background(), "MAGNUS")
	require.NoError(t, err)
	assert.Equal(t, "Magnus", p.Username)
	assert.Equal(t, "KE", p.CountryCode())
	assert.Equal(t, int64(1500000000), p.Joined)

	_, err = c.Profile(context.Background(), "magnus")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestProfileNotFound(t *testing.T) {
	api := newFakeAPI()
	api.handle("/pub/player/ghost", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c := newTestClient(t, api, time.Now())

	_, err := c.Profile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetriesServerErrors(t *testing.T) {
	api := newFakeAPI()
	var n int32
	api.handle("/pub/player/flaky/stats", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]interface{}{
			"chess_rapid": map[string]interface{}{"last": map[string]int{"rating": 1650}},
			"chess_blitz": map[string]interface{}{"last": map[string]int{"rating": 1500}},
			"puzzle_rush": map[string]interface{}{"best": map[string]int{"score": 30}},
		})
	})
	c := newTestClient(t, api, time.Now())

	s, err := c.Stats(context.Background(), "flaky")
	require.NoError(t, err)
	require.NotNil(t, s.Rapid)
	assert.Equal(t, 1650, *s.Rapid)
	assert.Equal(t, 1500, *s.Blitz)
	assert.Nil(t, s.Bullet)
	assert.Equal(t, 30, *s.PuzzleRush)
	assert.Equal(t, int32(3), atomic.LoadInt32(&n))
}

func TestPersistentServerErrorIsUnavailable(t *testing.T) {
	api := newFakeAPI()
	api.handle("/pub/player/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, api, time.Now())

	_, err := c.Profile(context.Background(), "down")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFindGameBetweenSearchesPreviousMonth(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	after := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	api.handle("/pub/player/alice/games/2026/03", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"games": []interface{}{}})
	})
	api.handle("/pub/player/alice/games/2026/02", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"games": []map[string]interface{}{
			{"url": "old", "time_class": "rapid", "end_time": after.Unix() - 60,
				"white": map[string]string{"username": "alice", "result": "win"},
				"black": map[string]string{"username": "Bob", "result": "resigned"}},
			{"url": "blitz", "time_class": "blitz", "end_time": after.Unix() + 60,
				"white": map[string]string{"username": "alice", "result": "win"},
				"black": map[string]string{"username": "bob", "result": "resigned"}},
			{"url": "first", "time_class": "rapid", "end_time": after.Unix() + 100,
				"white": map[string]string{"username": "bob", "result": "win"},
				"black": map[string]string{"username": "alice", "result": "checkmated"}},
			{"url": "latest", "time_class": "rapid", "end_time": after.Unix() + 200,
				"white": map[string]string{"username": "Bob", "result": "agreed"},
				"black": map[string]string{"username": "alice", "result": "agreed"}},
		}})
	})
	c := newTestClient(t, api, now)

	g, err := c.FindGameBetween(context.Background(), "alice", "bob", "rapid", &after)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "latest", g.URL)
	assert.Equal(t, "draw", g.Outcome("alice"))
	assert.Equal(t, models.ResultDraw, PairingResult(g, "alice"))

	none, err := c.FindGameBetween(context.Background(), "alice", "carol", "rapid", &after)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseGameID(t *testing.T) {
	cases := map[string]string{
		"https://www.chess.com/game/164204596142":      "164204596142",
		"https://www.chess.com/game/live/164204596142": "164204596142",
		"https://www.chess.com/live#g=164204596142":    "164204596142",
		"https://www.chess.com/analysis?g=42&tab=x":    "42",
		" 164204596142 ":                               "164204596142",
	}
	for in, want := range cases {
		got, ok := ParseGameID(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseGameID("https://www.chess.com/member/bob")
	assert.False(t, ok)
}

func liveGame(white, black, whiteResult, blackResult, status string, endTime int64) map[string]interface{} {
	return map[string]interface{}{
		"game": map[string]interface{}{"id": 777, "status": status, "endTime": endTime, "timeControl": "600"},
		"players": map[string]interface{}{
			"top":    map[string]string{"username": black, "color": "black", "result": blackResult},
			"bottom": map[string]string{"username": white, "color": "white", "result": whiteResult},
		},
	}
}

func TestVerifyGameResult(t *testing.T) {
	created := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	payload := map[string]map[string]interface{}{}
	api := newFakeAPI()
	api.handle("/callback/live/game/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/callback/live/game/"):]
		p, ok := payload[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, p)
	})
	c := newTestClient(t, api, created)
	ctx := context.Background()
	later := created.Add(time.Hour)

	payload["1"] = liveGame("Alice", "bob", "win", "resigned", "finished", later.UnixMilli())
	v, err := c.VerifyGameResult(ctx, "https://www.chess.com/game/live/1", "alice", "bob", &created)
	require.NoError(t, err)
	require.True(t, v.Valid, v.Error)
	assert.Equal(t, models.ResultWhiteWins, v.Result)
	assert.Equal(t, "777", v.GameID)
	assert.Equal(t, "600", v.TimeControl)
	assert.True(t, v.PlayedAt.Equal(later.Truncate(time.Millisecond)))

	payload["2"] = liveGame("bob", "alice", "win", "checkmated", "finished", later.Unix())
	v, err = c.VerifyGameResult(ctx, "https://www.chess.com/game/2", "alice", "bob", &created)
	require.NoError(t, err)
	require.True(t, v.Valid)
	assert.Equal(t, models.ResultBlackWins, v.Result, "swapped colours flip the result")

	payload["3"] = liveGame("alice", "carol", "win", "resigned", "finished", later.Unix())
	v, _ = c.VerifyGameResult(ctx, "3", "alice", "bob", &created)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "Players don't match")

	payload["4"] = liveGame("alice", "bob", "", "", "in_progress", 0)
	v, _ = c.VerifyGameResult(ctx, "4", "alice", "bob", &created)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "not finished")

	payload["5"] = liveGame("alice", "bob", "stalemate", "stalemate", "finished", created.Add(-time.Hour).Unix())
	v, _ = c.VerifyGameResult(ctx, "5", "alice", "bob", &created)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "before the pairing")

	payload["6"] = liveGame("alice", "bob", "repetition", "repetition", "resolved", later.Unix())
	v, _ = c.VerifyGameResult(ctx, "6", "alice", "bob", &created)
	require.True(t, v.Valid)
	assert.Equal(t, models.ResultDraw, v.Result)

	v, err = c.VerifyGameResult(ctx, "https://www.chess.com/game/999", "alice", "bob", &created)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "Could not fetch game")
}
