package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/models"
)

func TestTournamentCreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	admin := env.player(t, "arbiter", 2000)
	svc := env.tournamentService()
	ctx := context.Background()

	tour, err := svc.Create(ctx, admin, TournamentInput{
		Name:   strPtr("  Mombasa Rapid  "),
		Status: ptr(models.StatusActive),
	})
	require.NoError(t, err)
	assert.Equal(t, "Mombasa Rapid", tour.Name)
	assert.Equal(t, models.StatusRegistration, tour.Status)
	assert.Equal(t, models.FormatSwiss, tour.Format)
	assert.Equal(t, models.DefaultTotalRounds, tour.TotalRounds)
	assert.Equal(t, models.DefaultTimeControl, tour.TimeControl)
	assert.True(t, tour.IsOnline)

	t.Run("validation", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, TournamentInput{Name: strPtr("ab")})
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = svc.Create(ctx, admin, TournamentInput{Name: strPtr("Bad clock"), TimeControl: strPtr("ten")})
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = svc.Create(ctx, admin, TournamentInput{Name: strPtr("Bad county"), CountyRestrictions: &[]string{"Atlantis"}})
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = svc.Create(ctx, admin, TournamentInput{Name: strPtr("Bad range"), MinRating: intPtr(1800), MaxRating: intPtr(1200)})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("update", func(t *testing.T) {
		got, err := svc.Update(ctx, tour.ID, TournamentInput{EntryFee: ptr(500.0), MaxPlayers: intPtr(16)})
		require.NoError(t, err)
		assert.True(t, got.Paid)
		assert.Equal(t, 16, *got.MaxPlayers)

		_, err = svc.Update(ctx, "missing", TournamentInput{})
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})
}

func TestTournamentJoin(t *testing.T) {
	env := newTestEnv(t)
	svc := env.tournamentService()
	ctx := context.Background()

	alice := env.player(t, "alice", 1500)
	bob := env.player(t, "bob", 1400)
	carol := env.player(t, "carol", 1300)
	tour := env.tournament(t, TournamentInput{MaxPlayers: intPtr(2)})

	env.chess.On("Stats", mock.Anything, "alice").Return(rapidStats(1650), nil)
	env.chess.On("Stats", mock.Anything, "bob").Return(nil, errors.New("timeout"))
	env.chess.On("Stats", mock.Anything, "carol").Return(rapidStats(1300), nil)

	st, err := svc.Join(ctx, alice, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1650, st.SeedRating)
	assert.Equal(t, "alice", st.ChessComUsername)

	_, err = svc.Join(ctx, alice, tour.ID)
	assert.ErrorIs(t, err, ErrConflict)

	st, err = svc.Join(ctx, bob, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1400, st.SeedRating, "stored rating is used when chess.com is down")

	_, err = svc.Join(ctx, carol, tour.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "Tournament is full")

	require.NoError(t, svc.Withdraw(ctx, bob, tour.ID))
	assert.ErrorIs(t, svc.Withdraw(ctx, bob, tour.ID), ErrNotRegistered)

	_, err = svc.Join(ctx, carol, tour.ID)
	require.NoError(t, err)

	ok, err := svc.IsParticipant(ctx, tour.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.IsParticipant(ctx, tour.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	players, err := svc.Players(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, alice.ID, players[0].PlayerID)
}

func TestTournamentJoinRestrictions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.tournamentService()
	ctx := context.Background()

	p := env.player(t, "wanjiku", 1500)
	env.chess.On("Stats", mock.Anything, "wanjiku").Return(rapidStats(1500), nil)

	tests := []struct {
		name   string
		in     TournamentInput
		reason string
	}{
		{
			name:   "gender",
			in:     TournamentInput{GenderRestriction: ptr(models.GenderFemaleOnly)},
			reason: "This tournament is for female players only",
		},
		{
			name:   "rating",
			in:     TournamentInput{MinRating: intPtr(1800)},
			reason: "Minimum rating for this tournament is 1800",
		},
		{
			name:   "county",
			in:     TournamentInput{CountyRestrictions: &[]string{"Coast"}},
			reason: "This tournament is restricted to: Coast",
		},
		{
			name:   "club",
			in:     TournamentInput{AllowedClubs: &[]string{"Kisumu Knights"}},
			reason: "Please update your profile with your club to join this tournament",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := env.tournament(t, tt.in)
			_, err := svc.Join(ctx, p, tour.ID)
			assert.ErrorIs(t, err, ErrForbiddenOperation)
			assert.EqualError(t, err, tt.reason)

			el, err := svc.CheckEligibility(ctx, p, tour.ID)
			require.NoError(t, err)
			assert.False(t, el.Eligible)
			require.NotNil(t, el.Reason)
			assert.Equal(t, tt.reason, *el.Reason)
		})
	}

	t.Run("region expands to counties", func(t *testing.T) {
		coastal := env.player(t, "baraka", 1500)
		coastal.County = strPtr("Kilifi")
		env.chess.On("Stats", mock.Anything, "baraka").Return(rapidStats(1500), nil)

		tour := env.tournament(t, TournamentInput{CountyRestrictions: &[]string{"Coast"}})
		el, err := svc.CheckEligibility(ctx, coastal, tour.ID)
		require.NoError(t, err)
		assert.True(t, el.Eligible)
	})

	t.Run("paid tournament", func(t *testing.T) {
		tour := env.tournament(t, TournamentInput{EntryFee: ptr(1000.0)})
		_, err := svc.Join(ctx, p, tour.ID)
		assert.ErrorIs(t, err, ErrPaymentRequired)

		el, err := svc.CheckEligibility(ctx, p, tour.ID)
		require.NoError(t, err)
		assert.True(t, el.RequiresPayment)
		assert.Equal(t, 1000.0, el.EntryFee)
	})
}

func TestTournamentListFilters(t *testing.T) {
	env := newTestEnv(t)
	svc := env.tournamentService()
	ctx := context.Background()

	env.tournament(t, TournamentInput{Name: strPtr("Open Blitz")})
	env.tournament(t, TournamentInput{Name: strPtr("Ladies Rapid"), GenderRestriction: ptr(models.GenderFemaleOnly)})
	env.tournament(t, TournamentInput{Name: strPtr("Paid Classic"), EntryFee: ptr(200.0)})

	all, err := svc.List(ctx, nil, TournamentListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	free, err := svc.List(ctx, nil, TournamentListFilter{FreeOnly: true})
	require.NoError(t, err)
	assert.Len(t, free, 2)

	men, err := svc.List(ctx, nil, TournamentListFilter{Gender: "male"})
	require.NoError(t, err)
	assert.Len(t, men, 2)

	search, err := svc.List(ctx, nil, TournamentListFilter{Search: "ladies"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Ladies Rapid", search[0].Name)
}
