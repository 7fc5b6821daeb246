package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/checked/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type ListTournamentsFilter struct {
	Status   *models.TournamentStatus
	Format   *models.TournamentFormat
	Search   string
	FreeOnly bool
	PaidOnly bool
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	ListByStatus(ctx context.Context, statuses ...models.TournamentStatus) ([]*models.Tournament, error)
	Upcoming(ctx context.Context, limit int) ([]*models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	SetRound(ctx context.Context, exec SQLExecutor, id string, round int, status models.TournamentStatus) error
	Complete(ctx context.Context, exec SQLExecutor, id string, endDate time.Time) error
}

const tournamentColumns = `t.id, t.name, t.description, t.format, t.total_rounds, t.current_round,
	t.time_control, t.status, t.max_players, t.registration_open, t.registration_close,
	t.start_date, t.end_date, COALESCE(t.is_online, 1), t.venue, COALESCE(t.result_confirmation_minutes, 10),
	t.county_restrictions, t.min_rating, t.max_rating, t.min_age, t.max_age,
	t.gender_restriction, t.allowed_clubs, t.entry_fee, t.prize_pool, t.is_paid,
	t.created_by, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM tournament_players tp WHERE tp.tournament_id = t.id AND tp.is_withdrawn = 0)`

type sqliteTournamentRepository struct {
	db *sql.DB
}

func NewTournamentRepository(db *sql.DB) TournamentRepository {
	return &sqliteTournamentRepository{db: db}
}

func (r *sqliteTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var counties, clubs sql.NullString
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Format, &t.TotalRounds, &t.CurrentRound,
		&t.TimeControl, &t.Status, &t.MaxPlayers, &t.RegistrationOpen, &t.RegistrationClose,
		&t.StartDate, &t.EndDate, &t.IsOnline, &t.Venue, &t.ResultConfirmationMinutes,
		&counties, &t.MinRating, &t.MaxRating, &t.MinAge, &t.MaxAge,
		&t.GenderRestriction, &clubs, &t.EntryFee, &t.PrizePool, &t.Paid,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		&t.PlayerCount,
	)
	if err != nil {
		return nil, err
	}
	t.CountyRestrictions = decodeList(counties)
	t.AllowedClubs = decodeList(clubs)
	return t, nil
}

func (r *sqliteTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	if t.ID == "" {
		t.ID = newID()
	}
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	if t.RegistrationOpen.IsZero() {
		t.RegistrationOpen = ts
	}
	t.Paid = t.IsPaid()

	query := `
		INSERT INTO tournaments (
			id, name, description, format, total_rounds, current_round, time_control, status,
			max_players, registration_open, registration_close, start_date, end_date,
			is_online, venue, result_confirmation_minutes,
			county_restrictions, min_rating, max_rating, min_age, max_age,
			gender_restriction, allowed_clubs, entry_fee, prize_pool, is_paid,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Description, t.Format, t.TotalRounds, t.CurrentRound, t.TimeControl, t.Status,
		t.MaxPlayers, t.RegistrationOpen, t.RegistrationClose, t.StartDate, t.EndDate,
		t.IsOnline, t.Venue, t.ResultConfirmationMinutes,
		encodeList(t.CountyRestrictions), t.MinRating, t.MaxRating, t.MinAge, t.MaxAge,
		t.GenderRestriction, encodeList(t.AllowedClubs), t.EntryFee, t.PrizePool, t.Paid,
		t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *sqliteTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.id = ?`
	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

func (r *sqliteTournamentRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *sqliteTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		query += " AND t.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.Format != nil {
		query += " AND t.format = ?"
		args = append(args, *filter.Format)
	}
	if filter.Search != "" {
		query += " AND (lower(t.name) LIKE ? OR lower(COALESCE(t.description, '')) LIKE ?)"
		pattern := likePattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	if filter.FreeOnly {
		query += " AND t.is_paid = 0"
	} else if filter.PaidOnly {
		query += " AND t.is_paid = 1"
	}

	query += " ORDER BY t.created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return r.query(ctx, query, args...)
}

func (r *sqliteTournamentRepository) ListByStatus(ctx context.Context, statuses ...models.TournamentStatus) ([]*models.Tournament, error) {
	if len(statuses) == 0 {
		return []*models.Tournament{}, nil
	}
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.status IN (` + placeholders(len(statuses)) + `) ORDER BY t.created_at`
	return r.query(ctx, query, args...)
}

// Upcoming lists tournaments open for registration, soonest start first.
func (r *sqliteTournamentRepository) Upcoming(ctx context.Context, limit int) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t
		WHERE t.status = ?
		ORDER BY t.start_date IS NULL, t.start_date ASC
		LIMIT ?`
	return r.query(ctx, query, models.StatusRegistration, limit)
}

func (r *sqliteTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	t.UpdatedAt = now()
	t.Paid = t.IsPaid()
	query := `
		UPDATE tournaments SET
			name = ?, description = ?, format = ?, total_rounds = ?, time_control = ?, status = ?,
			max_players = ?, registration_close = ?, start_date = ?, end_date = ?,
			is_online = ?, venue = ?, result_confirmation_minutes = ?,
			county_restrictions = ?, min_rating = ?, max_rating = ?, min_age = ?, max_age = ?,
			gender_restriction = ?, allowed_clubs = ?, entry_fee = ?, prize_pool = ?, is_paid = ?,
			updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Format, t.TotalRounds, t.TimeControl, t.Status,
		t.MaxPlayers, t.RegistrationClose, t.StartDate, t.EndDate,
		t.IsOnline, t.Venue, t.ResultConfirmationMinutes,
		encodeList(t.CountyRestrictions), t.MinRating, t.MaxRating, t.MinAge, t.MaxAge,
		t.GenderRestriction, encodeList(t.AllowedClubs), t.EntryFee, t.PrizePool, t.Paid,
		t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqliteTournamentRepository) SetRound(ctx context.Context, exec SQLExecutor, id string, round int, status models.TournamentStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournaments SET current_round = ?, status = ?, updated_at = ? WHERE id = ?`,
		round, status, now(), id)
	if err != nil {
		return fmt.Errorf("failed to set tournament round: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqliteTournamentRepository) Complete(ctx context.Context, exec SQLExecutor, id string, endDate time.Time) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE tournaments SET status = ?, end_date = ?, updated_at = ? WHERE id = ?`,
		models.StatusCompleted, endDate.UTC(), now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
