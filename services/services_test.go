package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/chesscom"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/testutil"
)

type mockChess struct {
	mock.Mock
}

func (m *mockChess) Profile(ctx context.Context, username string) (*chesscom.Profile, error) {
	args := m.Called(ctx, username)
	p, _ := args.Get(0).(*chesscom.Profile)
	return p, args.Error(1)
}

func (m *mockChess) Stats(ctx context.Context, username string) (*chesscom.Stats, error) {
	args := m.Called(ctx, username)
	s, _ := args.Get(0).(*chesscom.Stats)
	return s, args.Error(1)
}

func (m *mockChess) FindGameBetween(ctx context.Context, player1, player2, timeClass string, after *time.Time) (*chesscom.Game, error) {
	args := m.Called(ctx, player1, player2, timeClass, after)
	g, _ := args.Get(0).(*chesscom.Game)
	return g, args.Error(1)
}

func (m *mockChess) VerifyGameResult(ctx context.Context, gameURL, expectedWhite, expectedBlack string, pairingCreatedAt *time.Time) (*chesscom.Verification, error) {
	args := m.Called(ctx, gameURL, expectedWhite, expectedBlack, pairingCreatedAt)
	v, _ := args.Get(0).(*chesscom.Verification)
	return v, args.Error(1)
}

type mockSMS struct {
	mock.Mock
}

func (m *mockSMS) Send(ctx context.Context, phone, message string) error {
	return m.Called(ctx, phone, message).Error(0)
}

func (m *mockSMS) Configured() bool {
	return m.Called().Bool(0)
}

// testEnv wires real repositories over a migrated SQLite database.
type testEnv struct {
	db            *sql.DB
	players       repositories.PlayerRepository
	tournaments   repositories.TournamentRepository
	entries       repositories.TournamentPlayerRepository
	pairings      repositories.PairingRepository
	clubs         repositories.ClubRepository
	stats         repositories.StatsRepository
	otps          repositories.OTPRepository
	security      repositories.SecurityRepository
	notifications repositories.NotificationRepository
	chess         *mockChess
	logger        *slog.Logger
	admin         *models.Player
	phones        int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := testutil.NewDB(t)
	return &testEnv{
		db:            conn,
		players:       repositories.NewPlayerRepository(conn),
		tournaments:   repositories.NewTournamentRepository(conn),
		entries:       repositories.NewTournamentPlayerRepository(conn),
		pairings:      repositories.NewPairingRepository(conn),
		clubs:         repositories.NewClubRepository(conn),
		stats:         repositories.NewStatsRepository(conn),
		otps:          repositories.NewOTPRepository(conn),
		security:      repositories.NewSecurityRepository(conn),
		notifications: repositories.NewNotificationRepository(conn),
		chess:         &mockChess{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func (e *testEnv) player(t *testing.T, username string, rapid int) *models.Player {
	t.Helper()
	e.phones++
	p := &models.Player{
		ChessComUsername: username,
		RatingRapid:      intPtr(rapid),
		PasswordHash:     "hash",
		Phone:            fmt.Sprintf("+254711%06d", e.phones),
		Age:              25,
		Gender:           models.GenderMale,
		County:           strPtr("Nairobi"),
		IsActive:         true,
	}
	require.NoError(t, e.players.Create(context.Background(), nil, p))
	return p
}

func (e *testEnv) tournamentService() TournamentService {
	return NewTournamentService(e.db, e.tournaments, e.entries, e.pairings, e.players, e.chess, e.logger)
}

func (e *testEnv) pairingService() PairingService {
	return NewPairingService(e.db, e.tournaments, e.entries, e.pairings, e.players, e.chess, nil, nil, nil, e.logger)
}

// tournament creates a registration-open tournament and enrols players.
func (e *testEnv) tournament(t *testing.T, in TournamentInput, players ...*models.Player) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	if e.admin == nil {
		e.admin = e.player(t, "arbiter", 2000)
		e.admin.IsAdmin = true
	}
	if in.Name == nil {
		in.Name = strPtr("Nairobi Open")
	}
	tour, err := e.tournamentService().Create(ctx, e.admin, in)
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, e.entries.Create(ctx, nil, &models.TournamentPlayer{
			TournamentID: tour.ID,
			PlayerID:     p.ID,
			SeedRating:   p.SeedRating(),
		}))
	}
	return tour
}

func rapidStats(rating int) *chesscom.Stats {
	return &chesscom.Stats{Rapid: intPtr(rating)}
}
