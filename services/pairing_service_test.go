package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/models"
)

func (e *testEnv) fourPlayers(t *testing.T) []*models.Player {
	return []*models.Player{
		e.player(t, "kamau", 1800),
		e.player(t, "otieno", 1700),
		e.player(t, "njeri", 1600),
		e.player(t, "achieng", 1500),
	}
}

func (e *testEnv) roundPairings(t *testing.T, tournamentID string, round int) []*models.Pairing {
	t.Helper()
	list, err := e.pairings.ListByTournament(context.Background(), nil, tournamentID, &round)
	require.NoError(t, err)
	return list
}

func TestSwissTournamentRunsToCompletion(t *testing.T) {
	env := newTestEnv(t)
	svc := env.pairingService()
	ctx := context.Background()

	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(2)}, env.fourPlayers(t)...)

	for round := 1; round <= 2; round++ {
		views, err := svc.GenerateRound(ctx, tour.ID)
		require.NoError(t, err)
		require.Len(t, views, 2)
		for _, v := range views {
			assert.Equal(t, round, v.RoundNumber)
			assert.Equal(t, models.ResultPending, v.Result)
			assert.NotNil(t, v.Deadline, "online games get a deadline")
		}

		_, err = svc.GenerateRound(ctx, tour.ID)
		assert.ErrorIs(t, err, ErrValidationFailed, "round %d is still being played", round)

		for _, v := range views {
			got, err := svc.UpdateResult(ctx, env.admin, tour.ID, v.ID, ResultUpdate{Result: models.ResultWhiteWins})
			require.NoError(t, err)
			assert.Equal(t, models.ResultWhiteWins, got.Result)
		}
	}

	_, err := svc.GenerateRound(ctx, tour.ID)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.EqualError(t, err, "All rounds completed")

	got, err := env.tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	standings, err := env.tournamentService().Standings(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, standings.Standings, 4)
	leader := standings.Standings[0]
	assert.Equal(t, 1, leader.Rank)
	require.NotNil(t, leader.FinalRank)
	assert.Equal(t, 1, *leader.FinalRank)
	assert.Equal(t, 2.0, leader.Score)
	assert.Equal(t, 2, leader.Wins)
}

func TestFinalRoundMustFinishBeforeCompletion(t *testing.T) {
	env := newTestEnv(t)
	svc := env.pairingService()
	ctx := context.Background()

	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(1)}, env.fourPlayers(t)...)

	views, err := svc.GenerateRound(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	_, err = svc.GenerateRound(ctx, tour.ID)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.EqualError(t, err, "Round 1 has unfinished games")

	got, err := env.tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, 1, got.CurrentRound)

	for _, v := range views {
		_, err := svc.UpdateResult(ctx, env.admin, tour.ID, v.ID, ResultUpdate{Result: models.ResultDraw})
		require.NoError(t, err)
	}

	_, err = svc.GenerateRound(ctx, tour.ID)
	assert.EqualError(t, err, "All rounds completed")
	got, err = env.tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestUpdateResultPermissions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.pairingService()
	ctx := context.Background()

	players := env.fourPlayers(t)
	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(3)}, players...)
	_, err := svc.GenerateRound(ctx, tour.ID)
	require.NoError(t, err)

	p := env.roundPairings(t, tour.ID, 1)[0]
	var outsider *models.Player
	for _, pl := range players {
		if !p.HasPlayer(pl.ID) {
			outsider = pl
			break
		}
	}
	require.NotNil(t, outsider)

	_, err = svc.UpdateResult(ctx, outsider, tour.ID, p.ID, ResultUpdate{Result: models.ResultDraw})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = svc.UpdateResult(ctx, env.admin, tour.ID, p.ID, ResultUpdate{Result: models.ResultPending})
	assert.ErrorIs(t, err, ErrValidationFailed)

	white := &models.Player{ID: *p.WhitePlayerID}
	_, err = svc.UpdateResult(ctx, white, tour.ID, p.ID, ResultUpdate{Result: models.ResultDraw})
	require.NoError(t, err)

	_, err = svc.UpdateResult(ctx, white, tour.ID, p.ID, ResultUpdate{Result: models.ResultWhiteWins})
	assert.ErrorIs(t, err, ErrResultAlreadyRecorded)

	entry, err := env.entries.Get(ctx, nil, tour.ID, white.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, entry.Score)
	assert.Equal(t, 1, entry.Draws)
}

func TestInPersonResultClaims(t *testing.T) {
	env := newTestEnv(t)
	svc := env.pairingService()
	ctx := context.Background()

	players := env.fourPlayers(t)
	tour := env.tournament(t, TournamentInput{IsOnline: ptr(false), TotalRounds: intPtr(3)}, players...)
	_, err := svc.GenerateRound(ctx, tour.ID)
	require.NoError(t, err)

	boards := env.roundPairings(t, tour.ID, 1)
	require.Len(t, boards, 2)
	assert.Nil(t, boards[0].Deadline, "in-person games have no deadline")

	t.Run("claim and confirm", func(t *testing.T) {
		p := boards[0]
		white := &models.Player{ID: *p.WhitePlayerID, ChessComUsername: "white"}
		black := &models.Player{ID: *p.BlackPlayerID, ChessComUsername: "black"}

		view, err := svc.ClaimResult(ctx, white, tour.ID, p.ID, models.ResultWhiteWins)
		require.NoError(t, err)
		assert.True(t, view.HasPendingClaim)
		require.NotNil(t, view.ConfirmationDeadline)

		_, err = svc.ClaimResult(ctx, black, tour.ID, p.ID, models.ResultBlackWins)
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = svc.ConfirmResult(ctx, white, tour.ID, p.ID)
		assert.ErrorIs(t, err, ErrValidationFailed)

		pending, err := svc.PendingConfirmations(ctx, tour.ID)
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		view, err = svc.ConfirmResult(ctx, black, tour.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ResultWhiteWins, view.Result)
		assert.False(t, view.HasPendingClaim)
	})

	t.Run("dispute and override", func(t *testing.T) {
		p := boards[1]
		white := &models.Player{ID: *p.WhitePlayerID}
		black := &models.Player{ID: *p.BlackPlayerID}

		_, err := svc.ClaimResult(ctx, black, tour.ID, p.ID, models.ResultBlackWins)
		require.NoError(t, err)

		view, err := svc.DisputeResult(ctx, white, tour.ID, p.ID, "I won on time")
		require.NoError(t, err)
		assert.True(t, view.IsDisputed)

		disputed, err := svc.DisputedResults(ctx, tour.ID)
		require.NoError(t, err)
		require.Len(t, disputed, 1)
		assert.Equal(t, "I won on time", *disputed[0].DisputeReason)

		view, err = svc.OverrideResult(ctx, env.admin, tour.ID, p.ID, models.ResultWhiteWins)
		require.NoError(t, err)
		assert.Equal(t, models.ResultWhiteWins, view.Result)
		assert.False(t, view.IsDisputed)

		view, err = svc.OverrideResult(ctx, env.admin, tour.ID, p.ID, models.ResultDraw)
		require.NoError(t, err)
		assert.Equal(t, models.ResultDraw, view.Result)

		entry, err := env.entries.Get(ctx, nil, tour.ID, white.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.5, entry.Score, "overridden result is reverted first")
		assert.Equal(t, 0, entry.Wins)
	})

	t.Run("online tournaments reject claims", func(t *testing.T) {
		online := env.tournament(t, TournamentInput{TotalRounds: intPtr(3)}, players...)
		_, err := svc.GenerateRound(ctx, online.ID)
		require.NoError(t, err)
		p := env.roundPairings(t, online.ID, 1)[0]
		_, err = svc.ClaimResult(ctx, &models.Player{ID: *p.WhitePlayerID}, online.ID, p.ID, models.ResultDraw)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestProcessDeadlines(t *testing.T) {
	env := newTestEnv(t)
	svc := env.pairingService()
	ctx := context.Background()

	tour := env.tournament(t, TournamentInput{TotalRounds: intPtr(3)}, env.fourPlayers(t)...)
	_, err := svc.GenerateRound(ctx, tour.ID)
	require.NoError(t, err)

	boards := env.roundPairings(t, tour.ID, 1)
	past := time.Now().UTC().Add(-time.Hour)

	claimed := boards[0]
	_, err = svc.ClaimNoShow(ctx, &models.Player{ID: *claimed.WhitePlayerID, ChessComUsername: "white"}, tour.ID, claimed.ID)
	require.NoError(t, err)
	claimed, err = env.pairings.GetByID(ctx, nil, tour.ID, claimed.ID)
	require.NoError(t, err)
	for _, p := range []*models.Pairing{claimed, boards[1]} {
		p.Deadline = &past
		require.NoError(t, env.pairings.Save(ctx, nil, p))
	}

	expired, err := svc.ExpiredPairings(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, expired.Count)

	report, err := svc.ProcessDeadlines(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ProcessedCount)
	assert.Equal(t, 1, report.Forfeits)
	assert.Equal(t, 1, report.DoubleForfeits)

	got, err := env.pairings.GetByID(ctx, nil, tour.ID, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultBlackForfeit, got.Result)

	got, err = env.pairings.GetByID(ctx, nil, tour.ID, boards[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultDoubleForfeit, got.Result)

	again, err := svc.ProcessDeadlines(ctx, tour.ID)
	require.NoError(t, err)
	assert.Zero(t, again.ProcessedCount)
}
