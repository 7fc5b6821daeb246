package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/checked/models"
)

var ErrPairingNotFound = errors.New("pairing not found")

type MatchStatus string

const (
	MatchStatusPending        MatchStatus = "pending"
	MatchStatusCompleted      MatchStatus = "completed"
	MatchStatusActionRequired MatchStatus = "action_required"
)

type ListMatchesFilter struct {
	PlayerID     string
	TournamentID string
	Status       MatchStatus
	Limit        int
	Offset       int
}

// ActionRequiredCount backs the matches badge.
type ActionRequiredCount struct {
	Total             int `json:"total"`
	NeedsConfirmation int `json:"needs_confirmation"`
	Disputed          int `json:"disputed"`
}

type PairingRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, pairings []*models.Pairing) error
	GetByID(ctx context.Context, exec SQLExecutor, tournamentID, pairingID string) (*models.Pairing, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, round *int) ([]*models.Pairing, error)
	ListForPlayer(ctx context.Context, tournamentID, playerID string) ([]*models.Pairing, error)
	ListExpired(ctx context.Context, exec SQLExecutor, tournamentID string, at time.Time) ([]*models.Pairing, error)
	ListClaimed(ctx context.Context, tournamentID string, disputedOnly bool) ([]*models.Pairing, error)
	ListMatches(ctx context.Context, filter ListMatchesFilter) ([]*models.Pairing, error)
	CountActionRequired(ctx context.Context, playerID string) (*ActionRequiredCount, error)
	CountPending(ctx context.Context, exec SQLExecutor, tournamentID string, round int) (int, error)
	CountAll(ctx context.Context) (total int, completed int, err error)
	Save(ctx context.Context, exec SQLExecutor, pairing *models.Pairing) error
}

const pairingColumns = `p.id, p.tournament_id, p.round_number, p.white_player_id, p.black_player_id,
	p.board_number, p.result, p.chess_com_game_url, p.chess_com_game_id, p.white_notified, p.black_notified,
	p.scheduled_time, p.played_at, p.deadline, p.no_show_claimed_by, p.no_show_claimed_at,
	p.claimed_result, p.claimed_by, p.claimed_at, p.confirmation_deadline, p.confirmed_by, p.confirmed_at,
	COALESCE(p.is_disputed, 0), p.dispute_reason, p.created_at, p.updated_at`

type sqlitePairingRepository struct {
	db *sql.DB
}

func NewPairingRepository(db *sql.DB) PairingRepository {
	return &sqlitePairingRepository{db: db}
}

func (r *sqlitePairingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanPairing(row rowScanner) (*models.Pairing, error) {
	p := &models.Pairing{}
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.RoundNumber, &p.WhitePlayerID, &p.BlackPlayerID,
		&p.BoardNumber, &p.Result, &p.ChessComGameURL, &p.ChessComGameID, &p.WhiteNotified, &p.BlackNotified,
		&p.ScheduledTime, &p.PlayedAt, &p.Deadline, &p.NoShowClaimedBy, &p.NoShowClaimedAt,
		&p.ClaimedResult, &p.ClaimedBy, &p.ClaimedAt, &p.ConfirmationDeadline, &p.ConfirmedBy, &p.ConfirmedAt,
		&p.IsDisputed, &p.DisputeReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *sqlitePairingRepository) CreateBatch(ctx context.Context, exec SQLExecutor, pairings []*models.Pairing) error {
	query := `
		INSERT INTO pairings (
			id, tournament_id, round_number, white_player_id, black_player_id, board_number, result,
			white_notified, black_notified, scheduled_time, played_at, deadline, is_disputed,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, 0, ?, ?)`
	executor := r.getExecutor(exec)
	for _, p := range pairings {
		if p.ID == "" {
			p.ID = newID()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now()
		}
		p.UpdatedAt = p.CreatedAt
		_, err := executor.ExecContext(ctx, query,
			p.ID, p.TournamentID, p.RoundNumber, p.WhitePlayerID, p.BlackPlayerID, p.BoardNumber, p.Result,
			p.ScheduledTime, p.PlayedAt, p.Deadline, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create pairing for round %d board %d: %w", p.RoundNumber, p.BoardNumber, err)
		}
	}
	return nil
}

func (r *sqlitePairingRepository) GetByID(ctx context.Context, exec SQLExecutor, tournamentID, pairingID string) (*models.Pairing, error) {
	query := `SELECT ` + pairingColumns + ` FROM pairings p WHERE p.id = ? AND p.tournament_id = ?`
	p, err := scanPairing(r.getExecutor(exec).QueryRowContext(ctx, query, pairingID, tournamentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairingNotFound
		}
		return nil, fmt.Errorf("failed to get pairing: %w", err)
	}
	return p, nil
}

func (r *sqlitePairingRepository) query(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Pairing, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairings: %w", err)
	}
	defer rows.Close()

	pairings := make([]*models.Pairing, 0)
	for rows.Next() {
		p, err := scanPairing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", err)
		}
		pairings = append(pairings, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pairing rows iteration: %w", err)
	}
	return pairings, nil
}

func (r *sqlitePairingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, round *int) ([]*models.Pairing, error) {
	query := `SELECT ` + pairingColumns + ` FROM pairings p WHERE p.tournament_id = ?`
	args := []interface{}{tournamentID}
	if round != nil {
		query += " AND p.round_number = ?"
		args = append(args, *round)
	}
	query += " ORDER BY p.round_number, p.board_number"
	return r.query(ctx, exec, query, args...)
}

func (r *sqlitePairingRepository) ListForPlayer(ctx context.Context, tournamentID, playerID string) ([]*models.Pairing, error) {
	query := `SELECT ` + pairingColumns + ` FROM pairings p
		WHERE p.tournament_id = ? AND (p.white_player_id = ? OR p.black_player_id = ?)
		ORDER BY p.round_number`
	return r.query(ctx, nil, query, tournamentID, playerID, playerID)
}

// ListExpired returns pending pairings whose deadline passed before at.
func (r *sqlitePairingRepository) ListExpired(ctx context.Context, exec SQLExecutor, tournamentID string, at time.Time) ([]*models.Pairing, error) {
	query := `SELECT ` + pairingColumns + ` FROM pairings p
		WHERE p.tournament_id = ? AND p.result = ? AND p.deadline IS NOT NULL AND p.deadline < ?
		ORDER BY p.round_number, p.board_number`
	return r.query(ctx, exec, query, tournamentID, models.ResultPending, at.UTC())
}

// ListClaimed returns pending pairings that carry a claimed result.
func (r *sqlitePairingRepository) ListClaimed(ctx context.Context, tournamentID string, disputedOnly bool) ([]*models.Pairing, error) {
	query := `SELECT ` + pairingColumns + ` FROM pairings p
		WHERE p.tournament_id = ? AND p.result = ?`
	if disputedOnly {
		query += " AND COALESCE(p.is_disputed, 0) = 1"
	} else {
		query += " AND p.claimed_result IS NOT NULL"
	}
	query += " ORDER BY p.round_number, p.board_number"
	return r.query(ctx, nil, query, tournamentID, models.ResultPending)
}

// ListMatches lists a player's pairings across tournaments, pending first and
// then most recently played.
func (r *sqlitePairingRepository) ListMatches(ctx context.Context, filter ListMatchesFilter) ([]*models.Pairing, error) {
	query := `SELECT ` + pairingColumns + ` FROM pairings p
		WHERE (p.white_player_id = ? OR p.black_player_id = ?)`
	args := []interface{}{filter.PlayerID, filter.PlayerID}

	if filter.TournamentID != "" {
		query += " AND p.tournament_id = ?"
		args = append(args, filter.TournamentID)
	}
	switch filter.Status {
	case MatchStatusPending:
		query += " AND p.result = ?"
		args = append(args, models.ResultPending)
	case MatchStatusCompleted:
		query += " AND p.result != ?"
		args = append(args, models.ResultPending)
	case MatchStatusActionRequired:
		query += ` AND p.result = ? AND (
			(p.claimed_by IS NOT NULL AND p.claimed_by != ?)
			OR (p.claimed_by = ? AND COALESCE(p.is_disputed, 0) = 1))`
		args = append(args, models.ResultPending, filter.PlayerID, filter.PlayerID)
	}

	query += " ORDER BY (p.result = 'pending') DESC, p.played_at IS NOT NULL, p.played_at DESC, p.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return r.query(ctx, nil, query, args...)
}

func (r *sqlitePairingRepository) CountActionRequired(ctx context.Context, playerID string) (*ActionRequiredCount, error) {
	out := &ActionRequiredCount{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pairings
		WHERE result = ? AND (white_player_id = ? OR black_player_id = ?)
			AND claimed_by IS NOT NULL AND claimed_by != ?`,
		models.ResultPending, playerID, playerID, playerID,
	).Scan(&out.NeedsConfirmation)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmations: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pairings
		WHERE result = ? AND claimed_by = ? AND COALESCE(is_disputed, 0) = 1`,
		models.ResultPending, playerID,
	).Scan(&out.Disputed)
	if err != nil {
		return nil, fmt.Errorf("failed to count disputes: %w", err)
	}
	out.Total = out.NeedsConfirmation + out.Disputed
	return out, nil
}

func (r *sqlitePairingRepository) CountPending(ctx context.Context, exec SQLExecutor, tournamentID string, round int) (int, error) {
	var n int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pairings WHERE tournament_id = ? AND round_number = ? AND result = ?`,
		tournamentID, round, models.ResultPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending pairings: %w", err)
	}
	return n, nil
}

func (r *sqlitePairingRepository) CountAll(ctx context.Context) (int, int, error) {
	var total, completed int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN result != ? THEN 1 ELSE 0 END), 0) FROM pairings`,
		models.ResultPending,
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pairings: %w", err)
	}
	return total, completed, nil
}

// Save writes every mutable column of the pairing.
func (r *sqlitePairingRepository) Save(ctx context.Context, exec SQLExecutor, p *models.Pairing) error {
	p.UpdatedAt = now()
	result, err := r.getExecutor(exec).ExecContext(ctx, `
		UPDATE pairings SET
			result = ?, chess_com_game_url = ?, chess_com_game_id = ?,
			white_notified = ?, black_notified = ?, scheduled_time = ?, played_at = ?, deadline = ?,
			no_show_claimed_by = ?, no_show_claimed_at = ?,
			claimed_result = ?, claimed_by = ?, claimed_at = ?, confirmation_deadline = ?,
			confirmed_by = ?, confirmed_at = ?, is_disputed = ?, dispute_reason = ?,
			updated_at = ?
		WHERE id = ?`,
		p.Result, p.ChessComGameURL, p.ChessComGameID,
		p.WhiteNotified, p.BlackNotified, p.ScheduledTime, p.PlayedAt, p.Deadline,
		p.NoShowClaimedBy, p.NoShowClaimedAt,
		p.ClaimedResult, p.ClaimedBy, p.ClaimedAt, p.ConfirmationDeadline,
		p.ConfirmedBy, p.ConfirmedAt, p.IsDisputed, p.DisputeReason,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save pairing %s: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrPairingNotFound)
}
