package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/checked/db"
	"github.com/Dosada05/checked/models"
)

var (
	ErrEntryNotFound     = errors.New("tournament registration not found")
	ErrAlreadyRegistered = errors.New("player already registered for this tournament")
)

// ScoreDelta is added to a registration row when a result is applied or reverted.
type ScoreDelta struct {
	Score        float64
	Wins         int
	Draws        int
	Losses       int
	GamesAsWhite int
	GamesAsBlack int
}

// Negate returns the delta that undoes d.
func (d ScoreDelta) Negate() ScoreDelta {
	return ScoreDelta{
		Score:        -d.Score,
		Wins:         -d.Wins,
		Draws:        -d.Draws,
		Losses:       -d.Losses,
		GamesAsWhite: -d.GamesAsWhite,
		GamesAsBlack: -d.GamesAsBlack,
	}
}

// Participation is a registration together with the tournament it belongs to.
type Participation struct {
	Entry      *models.TournamentPlayer
	Tournament *models.Tournament
}

type ListParticipationsFilter struct {
	PlayerID         string
	Status           *models.TournamentStatus
	ExcludeWithdrawn bool
	Limit            int
	Offset           int
}

type TournamentPlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.TournamentPlayer) error
	Get(ctx context.Context, exec SQLExecutor, tournamentID, playerID string) (*models.TournamentPlayer, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, includeWithdrawn bool) ([]*models.TournamentPlayer, error)
	ListParticipations(ctx context.Context, filter ListParticipationsFilter) ([]Participation, error)
	ActiveTournamentIDs(ctx context.Context, playerID string) ([]string, error)
	CountActive(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error)
	Rejoin(ctx context.Context, exec SQLExecutor, id string, seedRating int) error
	Withdraw(ctx context.Context, exec SQLExecutor, id string) error
	ApplyDelta(ctx context.Context, exec SQLExecutor, tournamentID, playerID string, delta ScoreDelta) error
	SetTiebreaks(ctx context.Context, exec SQLExecutor, id string, buchholz, sonnebornBerger float64) error
	SetFinalRank(ctx context.Context, exec SQLExecutor, id string, rank int) error
}

const entryColumns = `tp.id, tp.tournament_id, tp.player_id, tp.seed_rating, tp.score, tp.wins, tp.draws, tp.losses,
	tp.buchholz, tp.sonneborn_berger, tp.games_as_white, tp.games_as_black, tp.final_rank,
	tp.is_withdrawn, tp.has_paid, tp.joined_at`

type sqliteTournamentPlayerRepository struct {
	db *sql.DB
}

func NewTournamentPlayerRepository(db *sql.DB) TournamentPlayerRepository {
	return &sqliteTournamentPlayerRepository{db: db}
}

func (r *sqliteTournamentPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func entryDest(tp *models.TournamentPlayer) []interface{} {
	return []interface{}{
		&tp.ID, &tp.TournamentID, &tp.PlayerID, &tp.SeedRating, &tp.Score, &tp.Wins, &tp.Draws, &tp.Losses,
		&tp.Buchholz, &tp.SonnebornBerger, &tp.GamesAsWhite, &tp.GamesAsBlack, &tp.FinalRank,
		&tp.IsWithdrawn, &tp.HasPaid, &tp.JoinedAt,
	}
}

func (r *sqliteTournamentPlayerRepository) Create(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error {
	if tp.ID == "" {
		tp.ID = newID()
	}
	tp.JoinedAt = now()
	query := `
		INSERT INTO tournament_players (
			id, tournament_id, player_id, seed_rating, score, wins, draws, losses,
			buchholz, sonneborn_berger, games_as_white, games_as_black, final_rank,
			is_withdrawn, has_paid, joined_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, NULL, 0, ?, ?)`
	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		tp.ID, tp.TournamentID, tp.PlayerID, tp.SeedRating, tp.Score, tp.Wins, tp.Draws, tp.Losses,
		tp.HasPaid, tp.JoinedAt,
	)
	if err != nil {
		if db.IsConstraintError(err, "UNIQUE") {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to create tournament registration: %w", err)
	}
	return nil
}

func (r *sqliteTournamentPlayerRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID, playerID string) (*models.TournamentPlayer, error) {
	query := `SELECT ` + entryColumns + ` FROM tournament_players tp WHERE tp.tournament_id = ? AND tp.player_id = ?`
	tp := &models.TournamentPlayer{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, playerID).Scan(entryDest(tp)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get tournament registration: %w", err)
	}
	return tp, nil
}

func (r *sqliteTournamentPlayerRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, includeWithdrawn bool) ([]*models.TournamentPlayer, error) {
	query := `SELECT ` + entryColumns + ` FROM tournament_players tp WHERE tp.tournament_id = ?`
	if !includeWithdrawn {
		query += " AND tp.is_withdrawn = 0"
	}
	query += " ORDER BY tp.seed_rating DESC, tp.joined_at"

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament registrations: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.TournamentPlayer, 0)
	for rows.Next() {
		tp := &models.TournamentPlayer{}
		if err := rows.Scan(entryDest(tp)...); err != nil {
			return nil, fmt.Errorf("failed to scan tournament registration: %w", err)
		}
		entries = append(entries, tp)
	}
	return entries, rows.Err()
}

func (r *sqliteTournamentPlayerRepository) ListParticipations(ctx context.Context, filter ListParticipationsFilter) ([]Participation, error) {
	query := `SELECT ` + entryColumns + `, ` + tournamentColumns + `
		FROM tournament_players tp
		JOIN tournaments t ON t.id = tp.tournament_id
		WHERE tp.player_id = ?`
	args := []interface{}{filter.PlayerID}

	if filter.ExcludeWithdrawn {
		query += " AND tp.is_withdrawn = 0"
	}
	if filter.Status != nil {
		query += " AND t.status = ?"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY tp.joined_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	defer rows.Close()

	out := make([]Participation, 0)
	for rows.Next() {
		tp := &models.TournamentPlayer{}
		t := &models.Tournament{}
		var counties, clubs sql.NullString
		dest := append(entryDest(tp),
			&t.ID, &t.Name, &t.Description, &t.Format, &t.TotalRounds, &t.CurrentRound,
			&t.TimeControl, &t.Status, &t.MaxPlayers, &t.RegistrationOpen, &t.RegistrationClose,
			&t.StartDate, &t.EndDate, &t.IsOnline, &t.Venue, &t.ResultConfirmationMinutes,
			&counties, &t.MinRating, &t.MaxRating, &t.MinAge, &t.MaxAge,
			&t.GenderRestriction, &clubs, &t.EntryFee, &t.PrizePool, &t.Paid,
			&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.PlayerCount,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		t.CountyRestrictions = decodeList(counties)
		t.AllowedClubs = decodeList(clubs)
		out = append(out, Participation{Entry: tp, Tournament: t})
	}
	return out, rows.Err()
}

// ActiveTournamentIDs lists tournaments in registration or play that the
// player has not withdrawn from.
func (r *sqliteTournamentPlayerRepository) ActiveTournamentIDs(ctx context.Context, playerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id
		FROM tournament_players tp
		JOIN tournaments t ON t.id = tp.tournament_id
		WHERE tp.player_id = ? AND tp.is_withdrawn = 0 AND t.status IN (?, ?)`,
		playerID, models.StatusRegistration, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tournaments: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sqliteTournamentPlayerRepository) CountActive(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error) {
	var n int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_players WHERE tournament_id = ? AND is_withdrawn = 0`, tournamentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func (r *sqliteTournamentPlayerRepository) Rejoin(ctx context.Context, exec SQLExecutor, id string, seedRating int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournament_players SET is_withdrawn = 0, seed_rating = ? WHERE id = ?`, seedRating, id)
	if err != nil {
		return fmt.Errorf("failed to rejoin tournament: %w", err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *sqliteTournamentPlayerRepository) Withdraw(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournament_players SET is_withdrawn = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to withdraw from tournament: %w", err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *sqliteTournamentPlayerRepository) ApplyDelta(ctx context.Context, exec SQLExecutor, tournamentID, playerID string, d ScoreDelta) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `
		UPDATE tournament_players SET
			score = score + ?, wins = wins + ?, draws = draws + ?, losses = losses + ?,
			games_as_white = games_as_white + ?, games_as_black = games_as_black + ?
		WHERE tournament_id = ? AND player_id = ?`,
		d.Score, d.Wins, d.Draws, d.Losses, d.GamesAsWhite, d.GamesAsBlack, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("failed to update score for player %s: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *sqliteTournamentPlayerRepository) SetTiebreaks(ctx context.Context, exec SQLExecutor, id string, buchholz, sb float64) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournament_players SET buchholz = ?, sonneborn_berger = ? WHERE id = ?`, buchholz, sb, id)
	if err != nil {
		return fmt.Errorf("failed to update tiebreaks: %w", err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *sqliteTournamentPlayerRepository) SetFinalRank(ctx context.Context, exec SQLExecutor, id string, rank int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournament_players SET final_rank = ? WHERE id = ?`, rank, id)
	if err != nil {
		return fmt.Errorf("failed to set final rank: %w", err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}
