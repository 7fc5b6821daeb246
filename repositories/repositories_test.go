package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

var phoneSeq int

func createPlayer(t *testing.T, repo PlayerRepository, username string, rapid int) *models.Player {
	t.Helper()
	phoneSeq++
	p := &models.Player{
		ChessComUsername: username,
		RatingRapid:      intPtr(rapid),
		PasswordHash:     "hash",
		Phone:            fmt.Sprintf("+254700%06d", phoneSeq),
		Age:              25,
		Gender:           models.GenderMale,
		County:           strPtr("Nairobi"),
		IsActive:         true,
		PushEnabled:      true,
	}
	require.NoError(t, repo.Create(context.Background(), nil, p))
	return p
}

func createTournament(t *testing.T, repo TournamentRepository, name string, status models.TournamentStatus) *models.Tournament {
	t.Helper()
	tour := &models.Tournament{
		Name:                      name,
		Format:                    models.FormatSwiss,
		TotalRounds:               3,
		TimeControl:               models.DefaultTimeControl,
		Status:                    status,
		IsOnline:                  true,
		ResultConfirmationMinutes: models.DefaultResultConfirmationMinutes,
		GenderRestriction:         models.GenderOpen,
	}
	require.NoError(t, repo.Create(context.Background(), tour))
	return tour
}

func TestPlayerRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewPlayerRepository(conn)
	ctx := context.Background()

	p := createPlayer(t, repo, "magnus", 2800)

	got, err := repo.GetByUsername(ctx, "MAGNUS")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, 2800, *got.RatingRapid)
	assert.Nil(t, got.ChessComCountry)

	t.Run("duplicate username", func(t *testing.T) {
		dup := &models.Player{ChessComUsername: "magnus", PasswordHash: "x", Phone: "+254799999999", Age: 30, Gender: models.GenderMale, IsActive: true}
		err := repo.Create(ctx, nil, dup)
		assert.ErrorIs(t, err, ErrPlayerUsernameConflict)
	})

	t.Run("duplicate phone", func(t *testing.T) {
		dup := &models.Player{ChessComUsername: "other", PasswordHash: "x", Phone: p.Phone, Age: 30, Gender: models.GenderMale, IsActive: true}
		err := repo.Create(ctx, nil, dup)
		assert.ErrorIs(t, err, ErrPlayerPhoneConflict)
	})

	t.Run("ratings keep profile fields when absent", func(t *testing.T) {
		require.NoError(t, repo.UpdateRatings(ctx, p.ID, RatingUpdate{Rapid: intPtr(2810), Avatar: strPtr("a.png"), Country: strPtr("KE")}, time.Now()))
		require.NoError(t, repo.UpdateRatings(ctx, p.ID, RatingUpdate{Rapid: intPtr(2820)}, time.Now()))
		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2820, *got.RatingRapid)
		require.NotNil(t, got.ChessComAvatar)
		assert.Equal(t, "a.png", *got.ChessComAvatar)
		assert.Equal(t, "KE", *got.ChessComCountry)
		assert.NotNil(t, got.RatingsUpdatedAt)
	})

	t.Run("missing player", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
		assert.ErrorIs(t, repo.SetAdmin(ctx, "nope", true), ErrPlayerNotFound)
	})

	t.Run("get many", func(t *testing.T) {
		q := createPlayer(t, repo, "hikaru", 2700)
		found, err := repo.GetMany(ctx, []string{p.ID, q.ID, "missing"})
		require.NoError(t, err)
		assert.Len(t, found, 2)
		assert.Equal(t, "hikaru", found[q.ID].ChessComUsername)
	})
}

func TestClubRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	clubs := NewClubRepository(conn)
	players := NewPlayerRepository(conn)
	ctx := context.Background()

	club := &models.Club{Name: "Nairobi Knights", County: "Nairobi", ClubType: models.ClubTypeCommunity, IsActive: true}
	require.NoError(t, clubs.Create(ctx, club))

	err := clubs.Create(ctx, &models.Club{Name: "Nairobi Knights", ClubType: models.ClubTypeSchool, IsActive: true})
	assert.ErrorIs(t, err, ErrClubNameConflict)

	byName, err := clubs.GetByNameFold(ctx, "nairobi knights")
	require.NoError(t, err)
	assert.Equal(t, club.ID, byName.ID)

	a := createPlayer(t, players, "alice", 1500)
	b := createPlayer(t, players, "bob", 0)
	for _, p := range []*models.Player{a, b} {
		require.NoError(t, players.SetClub(ctx, nil, p.ID, &club.ID, &club.Name))
		require.NoError(t, clubs.AdjustMemberCount(ctx, nil, club.ID, 1))
	}

	count, avg, err := clubs.ComputeMemberStats(ctx, nil, club.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1500, avg, "unrated members do not drag the average down")

	require.NoError(t, clubs.AdjustMemberCount(ctx, nil, club.ID, -5))
	got, err := clubs.GetByID(ctx, nil, club.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MemberCount)

	require.NoError(t, clubs.DetachMembers(ctx, nil, club.ID))
	members, err := players.ListByClub(ctx, club.ID, false)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTournamentPlayerRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	players := NewPlayerRepository(conn)
	tournaments := NewTournamentRepository(conn)
	entries := NewTournamentPlayerRepository(conn)
	ctx := context.Background()

	tour := createTournament(t, tournaments, "Open", models.StatusRegistration)
	low := createPlayer(t, players, "low", 1300)
	high := createPlayer(t, players, "high", 1900)

	for _, p := range []*models.Player{low, high} {
		require.NoError(t, entries.Create(ctx, nil, &models.TournamentPlayer{
			TournamentID: tour.ID, PlayerID: p.ID, SeedRating: p.SeedRating(),
		}))
	}
	err := entries.Create(ctx, nil, &models.TournamentPlayer{TournamentID: tour.ID, PlayerID: low.ID, SeedRating: 1300})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	list, err := entries.ListByTournament(ctx, nil, tour.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, high.ID, list[0].PlayerID)

	delta := ScoreDelta{Score: 1, Wins: 1, GamesAsWhite: 1}
	require.NoError(t, entries.ApplyDelta(ctx, nil, tour.ID, high.ID, delta))
	require.NoError(t, entries.ApplyDelta(ctx, nil, tour.ID, high.ID, delta))
	require.NoError(t, entries.ApplyDelta(ctx, nil, tour.ID, high.ID, delta.Negate()))
	entry, err := entries.Get(ctx, nil, tour.ID, high.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, entry.Score)
	assert.Equal(t, 1, entry.Wins)
	assert.Equal(t, 1, entry.GamesAsWhite)

	lowEntry, err := entries.Get(ctx, nil, tour.ID, low.ID)
	require.NoError(t, err)
	require.NoError(t, entries.Withdraw(ctx, nil, lowEntry.ID))

	n, err := entries.CountActive(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := tournaments.GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PlayerCount)

	ids, err := entries.ActiveTournamentIDs(ctx, high.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tour.ID}, ids)
}

func TestPairingRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	players := NewPlayerRepository(conn)
	tournaments := NewTournamentRepository(conn)
	pairings := NewPairingRepository(conn)
	ctx := context.Background()

	tour := createTournament(t, tournaments, "Blitz Night", models.StatusActive)
	white := createPlayer(t, players, "white", 1600)
	black := createPlayer(t, players, "black", 1500)
	now := time.Now().UTC()

	game := &models.Pairing{
		TournamentID: tour.ID, RoundNumber: 1, BoardNumber: 1,
		WhitePlayerID: &white.ID, BlackPlayerID: &black.ID,
		Result: models.ResultPending, Deadline: timePtr(now.Add(-time.Hour)),
	}
	bye := &models.Pairing{
		TournamentID: tour.ID, RoundNumber: 1, BoardNumber: 0,
		WhitePlayerID: &white.ID, Result: models.ResultBye,
	}
	require.NoError(t, pairings.CreateBatch(ctx, nil, []*models.Pairing{game, bye}))

	expired, err := pairings.ListExpired(ctx, nil, tour.ID, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, game.ID, expired[0].ID)

	pending, err := pairings.CountPending(ctx, nil, tour.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	claimed := models.ResultWhiteWins
	game.ClaimedResult = &claimed
	game.ClaimedBy = &white.ID
	game.ClaimedAt = timePtr(now)
	require.NoError(t, pairings.Save(ctx, nil, game))

	counts, err := pairings.CountActionRequired(ctx, black.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.NeedsConfirmation)
	assert.Equal(t, 1, counts.Total)

	matches, err := pairings.ListMatches(ctx, ListMatchesFilter{PlayerID: black.ID, Status: MatchStatusActionRequired})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].ClaimedResult)
	assert.Equal(t, models.ResultWhiteWins, *matches[0].ClaimedResult)

	all, err := pairings.ListMatches(ctx, ListMatchesFilter{PlayerID: white.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.ResultPending, all[0].Result)

	total, completed, err := pairings.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, completed)

	_, err = pairings.GetByID(ctx, nil, "other-tournament", game.ID)
	assert.ErrorIs(t, err, ErrPairingNotFound)
}

func TestOTPRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewOTPRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &models.OTP{Phone: "+254712345678", Purpose: models.OTPPurposePasswordReset, OTPHash: "a", ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, repo.Create(ctx, nil, first))
	require.NoError(t, repo.InvalidateUnused(ctx, nil, first.Phone, first.Purpose))

	_, err := repo.LatestValid(ctx, first.Phone, first.Purpose, now)
	assert.ErrorIs(t, err, ErrOTPNotFound)

	second := &models.OTP{Phone: first.Phone, Purpose: first.Purpose, OTPHash: "b", ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, repo.Create(ctx, nil, second))
	require.NoError(t, repo.IncrementAttempts(ctx, second.ID))

	got, err := repo.LatestValid(ctx, first.Phone, first.Purpose, now)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 1, got.Attempts)

	recent, err := repo.LatestSince(ctx, first.Phone, first.Purpose, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, second.ID, recent.ID)

	deleted, err := repo.DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestNotificationRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	players := NewPlayerRepository(conn)
	repo := NewNotificationRepository(conn)
	ctx := context.Background()

	owner := createPlayer(t, players, "owner", 1400)
	stranger := createPlayer(t, players, "stranger", 1400)

	n := &models.Notification{PlayerID: owner.ID, Type: models.NotificationPairing, Title: "Round 1", Body: "You are white"}
	require.NoError(t, repo.Create(ctx, n))
	require.NoError(t, repo.Create(ctx, &models.Notification{PlayerID: owner.ID, Type: models.NotificationResult, Title: "Hi", Body: "Welcome"}))

	unread, err := repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	_, err = repo.MarkRead(ctx, stranger.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	read, err := repo.MarkRead(ctx, owner.ID, n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.JSONEq(t, `{}`, string(read.Data))

	list, err := repo.List(ctx, owner.ID, true, 50)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	marked, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)
}

func TestSecurityRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	players := NewPlayerRepository(conn)
	repo := NewSecurityRepository(conn)
	ctx := context.Background()

	p := createPlayer(t, players, "secure", 1400)
	known, err := repo.HasLogins(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, repo.RecordLogin(ctx, &models.LoginHistory{
		PlayerID: p.ID, FingerprintHash: "fp1", IPAddress: "10.0.0.1",
		LoginSuccessful: true, SessionType: models.SessionLogin,
	}, false, 0))
	require.NoError(t, repo.RecordLogin(ctx, &models.LoginHistory{
		PlayerID: p.ID, FingerprintHash: "fp9", IPAddress: "10.0.0.1", LoginSuccessful: false, SessionType: models.SessionLogin,
	}, false, 0))

	device, err := repo.KnownDevice(ctx, p.ID, "fp1")
	require.NoError(t, err)
	assert.True(t, device)
	device, err = repo.KnownDevice(ctx, p.ID, "fp2")
	require.NoError(t, err)
	assert.False(t, device)

	failed, err := repo.CountFailedSince(ctx, p.ID, "10.0.0.1", time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	require.NoError(t, repo.CreateFlag(ctx, &models.SecurityFlag{PlayerID: p.ID, FlagType: "new_device", Severity: "low", Title: "New device"}))
	flags, err := repo.ListFlags(ctx, p.ID, "open")
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "new_device", flags[0].FlagType)
}

func TestStatsRepository(t *testing.T) {
	conn := testutil.NewDB(t)
	players := NewPlayerRepository(conn)
	tournaments := NewTournamentRepository(conn)
	entries := NewTournamentPlayerRepository(conn)
	stats := NewStatsRepository(conn)
	ctx := context.Background()

	done := createTournament(t, tournaments, "Finished", models.StatusCompleted)
	live := createTournament(t, tournaments, "Live", models.StatusActive)
	winner := createPlayer(t, players, "winner", 2000)
	idle := createPlayer(t, players, "idle", 1200)

	for _, tour := range []*models.Tournament{done, live} {
		require.NoError(t, entries.Create(ctx, nil, &models.TournamentPlayer{TournamentID: tour.ID, PlayerID: winner.ID, SeedRating: 2000}))
		require.NoError(t, entries.ApplyDelta(ctx, nil, tour.ID, winner.ID, ScoreDelta{Score: 2.5, Wins: 2, Draws: 1, Losses: 1}))
	}
	entry, err := entries.Get(ctx, nil, done.ID, winner.ID)
	require.NoError(t, err)
	require.NoError(t, entries.SetFinalRank(ctx, nil, entry.ID, 1))

	totals, err := stats.PlayerTotals(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Tournaments)
	assert.Equal(t, 1, totals.Completed)
	assert.Equal(t, 4, totals.Wins)
	assert.Equal(t, 8, totals.Games())
	assert.Equal(t, 50.0, totals.WinRate())
	assert.Equal(t, 5.0, totals.TotalScore)
	assert.Equal(t, 1, totals.FirstPlaces)
	require.NotNil(t, totals.BestRank)
	assert.Equal(t, 1, *totals.BestRank)

	rows, err := stats.LeaderboardRows(ctx, "NAIROBI")
	require.NoError(t, err)
	require.Len(t, rows, 1, "players without entries are left out")
	assert.Equal(t, winner.ID, rows[0].PlayerID)

	none, err := stats.PlayerTotals(ctx, idle.ID)
	require.NoError(t, err)
	assert.Zero(t, none.Tournaments)
	assert.Nil(t, none.BestRank)

	byDay, err := stats.CountByDay(ctx, SeriesRegistrations, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, byDay[time.Now().UTC().Format("2006-01-02")])

	before, err := stats.CountPlayersBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, before)

	summary, err := stats.Summary(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalUsers)
	assert.Equal(t, 2, summary.NewUsersWeek)
	assert.Equal(t, 1, summary.ActiveTournaments)
	assert.Equal(t, 2, summary.TotalTournaments)

	public, err := stats.PublicStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, public.Players)
	assert.Equal(t, 1, public.CompletedTournaments)
	assert.Equal(t, 1, public.Counties)

}
