package services

import (
	"context"
	"errors"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/chesscom"
	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
)

// expectGames makes chess.com report a white win for every pending board of
// the round.
func (e *testEnv) expectGames(t *testing.T, tournamentID string, round int, byID map[string]*models.Player) {
	t.Helper()
	for _, p := range e.roundPairings(t, tournamentID, round) {
		if p.IsBye() {
			continue
		}
		white, black := byID[*p.WhitePlayerID].ChessComUsername, byID[*p.BlackPlayerID].ChessComUsername
		game := &chesscom.Game{
			URL:       "https://www.chess.com/game/live/" + p.ID,
			TimeClass: "rapid",
			EndTime:   time.Now().Unix(),
			White:     chesscom.Side{Username: white, Result: "win"},
			Black:     chesscom.Side{Username: black, Result: "resigned"},
		}
		e.chess.On("FindGameBetween", mock.Anything, white, black, "rapid", mock.Anything).Return(game, nil).Once()
	}
}

func byPlayerID(players []*models.Player) map[string]*models.Player {
	out := make(map[string]*models.Player, len(players))
	for _, p := range players {
		out[p.ID] = p
	}
	return out
}

func (e *testEnv) automation(m *metrics.Metrics) AutomationService {
	return NewAutomationService(e.tournaments, e.pairings, e.players, e.pairingService(), nil, nil, e.chess, m, e.logger)
}

func TestAutomationDetectsResultsAndAdvances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := metrics.New()
	auto := env.automation(m)

	players := env.fourPlayers(t)
	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(2)}, players...)
	_, err := env.pairingService().GenerateRound(ctx, tour.ID)
	require.NoError(t, err)

	env.expectGames(t, tour.ID, 1, byPlayerID(players))
	reports, err := auto.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].ResultsDetected)
	assert.True(t, reports[0].RoundGenerated)
	assert.False(t, reports[0].Finalized)
	env.chess.AssertExpectations(t)

	for _, p := range env.roundPairings(t, tour.ID, 1) {
		assert.Equal(t, models.ResultWhiteWins, p.Result)
		require.NotNil(t, p.ChessComGameURL)
		assert.NotNil(t, p.PlayedAt)
	}
	assert.Len(t, env.roundPairings(t, tour.ID, 2), 2)

	env.expectGames(t, tour.ID, 2, byPlayerID(players))
	reports, err = auto.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Finalized)

	got, err := env.tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	assert.Equal(t, 4.0, promtest.ToFloat64(m.ResultsAutoDetected))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.AutomationRuns.WithLabelValues("success")))

	reports, err = auto.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports, "completed tournaments are skipped")
}

func TestAutomationLeavesUnplayedGamesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auto := env.automation(nil)

	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(3)}, env.fourPlayers(t)...)
	_, err := env.pairingService().GenerateRound(ctx, tour.ID)
	require.NoError(t, err)

	env.chess.On("FindGameBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil).Once()
	env.chess.On("FindGameBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("chess.com is down")).Once()

	reports, err := auto.RunOnce(ctx)
	require.NoError(t, err, "lookup failures are logged, not returned")
	require.Len(t, reports, 1)
	assert.Zero(t, reports[0].ResultsDetected)
	assert.False(t, reports[0].RoundGenerated)

	got, err := env.tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentRound)
}

func TestAutomationForfeitsExpiredGames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auto := NewAutomationService(env.tournaments, env.pairings, env.players, env.pairingService(), nil, nil, nil, nil, env.logger)

	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(3)}, env.fourPlayers(t)...)
	_, err := env.pairingService().GenerateRound(ctx, tour.ID)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	for _, p := range env.roundPairings(t, tour.ID, 1) {
		p.Deadline = &past
		require.NoError(t, env.pairings.Save(ctx, nil, p))
	}

	reports, err := auto.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Forfeits)
	assert.True(t, reports[0].RoundGenerated)
}

func TestAutomationRunStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	auto := env.automation(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		auto.Run(ctx, time.Hour, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
