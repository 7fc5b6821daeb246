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
	ErrClubNotFound     = errors.New("club not found")
	ErrClubNameConflict = errors.New("club with this name already exists")
)

type ClubSort string

const (
	ClubSortPerformance ClubSort = "performance"
	ClubSortMembers     ClubSort = "members"
	ClubSortRating      ClubSort = "rating"
	ClubSortName        ClubSort = "name"
)

type ListClubsFilter struct {
	County   string
	ClubType string
	Search   string
	IsActive bool
	SortBy   ClubSort
	Limit    int
	Offset   int
}

// CountyClubCount is one row of the clubs-per-county listing.
type CountyClubCount struct {
	County    string `json:"county"`
	ClubCount int    `json:"club_count"`
}

type ClubRepository interface {
	Create(ctx context.Context, club *models.Club) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Club, error)
	GetByNameFold(ctx context.Context, name string) (*models.Club, error)
	List(ctx context.Context, filter ListClubsFilter) ([]*models.Club, int, error)
	ListActive(ctx context.Context) ([]*models.Club, error)
	CountByCounty(ctx context.Context) ([]CountyClubCount, error)
	Rank(ctx context.Context, totalPoints int) (int, error)
	Update(ctx context.Context, club *models.Club) error
	UpdateLogo(ctx context.Context, id string, logoURL *string) error
	AdjustMemberCount(ctx context.Context, exec SQLExecutor, id string, delta int) error
	SetStats(ctx context.Context, exec SQLExecutor, id string, memberCount, averageRating int) error
	Deactivate(ctx context.Context, exec SQLExecutor, id string) error
	DetachMembers(ctx context.Context, exec SQLExecutor, id string) error
	ComputeMemberStats(ctx context.Context, exec SQLExecutor, id string) (memberCount, averageRating int, err error)
}

const clubColumns = `id, name, logo_url, county, description, club_type, contact_phone, contact_email,
	member_count, tournament_count, total_points, tournament_wins, average_rating,
	is_active, is_verified, created_at, updated_at`

type sqliteClubRepository struct {
	db *sql.DB
}

func NewClubRepository(db *sql.DB) ClubRepository {
	return &sqliteClubRepository{db: db}
}

func (r *sqliteClubRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanClub(row rowScanner) (*models.Club, error) {
	c := &models.Club{}
	err := row.Scan(
		&c.ID, &c.Name, &c.LogoURL, &c.County, &c.Description, &c.ClubType, &c.ContactPhone, &c.ContactEmail,
		&c.MemberCount, &c.TournamentCount, &c.TotalPoints, &c.TournamentWins, &c.AverageRating,
		&c.IsActive, &c.IsVerified, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *sqliteClubRepository) Create(ctx context.Context, c *models.Club) error {
	if c.ID == "" {
		c.ID = newID()
	}
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts
	query := `
		INSERT INTO clubs (
			id, name, logo_url, county, description, club_type, contact_phone, contact_email,
			member_count, tournament_count, total_points, tournament_wins, average_rating,
			is_active, is_verified, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, 0, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.LogoURL, c.County, c.Description, c.ClubType, c.ContactPhone, c.ContactEmail,
		c.IsActive, c.IsVerified, c.CreatedAt, c.UpdatedAt,
	)
	return r.handleClubError(err)
}

func (r *sqliteClubRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Club, error) {
	query := `SELECT ` + clubColumns + ` FROM clubs WHERE id = ?`
	c, err := scanClub(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club: %w", err)
	}
	return c, nil
}

func (r *sqliteClubRepository) GetByNameFold(ctx context.Context, name string) (*models.Club, error) {
	query := `SELECT ` + clubColumns + ` FROM clubs WHERE lower(name) = lower(?)`
	c, err := scanClub(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club by name: %w", err)
	}
	return c, nil
}

func (r *sqliteClubRepository) queryClubs(ctx context.Context, query string, args ...interface{}) ([]*models.Club, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clubs: %w", err)
	}
	defer rows.Close()

	clubs := make([]*models.Club, 0)
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan club: %w", err)
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

func (r *sqliteClubRepository) List(ctx context.Context, filter ListClubsFilter) ([]*models.Club, int, error) {
	where := " WHERE is_active = ?"
	args := []interface{}{filter.IsActive}

	if filter.County != "" {
		where += " AND county = ?"
		args = append(args, filter.County)
	}
	if filter.ClubType != "" {
		where += " AND club_type = ?"
		args = append(args, filter.ClubType)
	}
	if filter.Search != "" {
		where += " AND lower(name) LIKE ?"
		args = append(args, likePattern(filter.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clubs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clubs: %w", err)
	}

	query := `SELECT ` + clubColumns + ` FROM clubs` + where
	switch filter.SortBy {
	case ClubSortMembers:
		query += " ORDER BY member_count DESC, name"
	case ClubSortRating:
		query += " ORDER BY average_rating DESC, name"
	case ClubSortName:
		query += " ORDER BY name"
	default:
		query += " ORDER BY total_points DESC, tournament_wins DESC, average_rating DESC, name"
	}
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	clubs, err := r.queryClubs(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return clubs, total, nil
}

func (r *sqliteClubRepository) ListActive(ctx context.Context) ([]*models.Club, error) {
	return r.queryClubs(ctx, `SELECT `+clubColumns+` FROM clubs WHERE is_active = 1 ORDER BY name`)
}

func (r *sqliteClubRepository) CountByCounty(ctx context.Context) ([]CountyClubCount, error) {
	query := `
		SELECT county, COUNT(id) AS club_count
		FROM clubs
		WHERE is_active = 1
		GROUP BY county
		ORDER BY club_count DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count clubs by county: %w", err)
	}
	defer rows.Close()

	out := make([]CountyClubCount, 0)
	for rows.Next() {
		var c CountyClubCount
		if err := rows.Scan(&c.County, &c.ClubCount); err != nil {
			return nil, fmt.Errorf("failed to scan county count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rank is one plus the number of active clubs with more points.
func (r *sqliteClubRepository) Rank(ctx context.Context, totalPoints int) (int, error) {
	var ahead int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clubs WHERE is_active = 1 AND total_points > ?`, totalPoints,
	).Scan(&ahead)
	if err != nil {
		return 0, fmt.Errorf("failed to rank club: %w", err)
	}
	return ahead + 1, nil
}

func (r *sqliteClubRepository) Update(ctx context.Context, c *models.Club) error {
	c.UpdatedAt = now()
	query := `
		UPDATE clubs SET
			name = ?, logo_url = ?, county = ?, description = ?, club_type = ?,
			contact_phone = ?, contact_email = ?, is_active = ?, is_verified = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.LogoURL, c.County, c.Description, c.ClubType,
		c.ContactPhone, c.ContactEmail, c.IsActive, c.IsVerified, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return r.handleClubError(err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *sqliteClubRepository) UpdateLogo(ctx context.Context, id string, logoURL *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE clubs SET logo_url = ?, updated_at = ? WHERE id = ?`, logoURL, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update club logo: %w", err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

// AdjustMemberCount changes member_count by delta without going below zero.
func (r *sqliteClubRepository) AdjustMemberCount(ctx context.Context, exec SQLExecutor, id string, delta int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE clubs SET member_count = MAX(0, member_count + ?), updated_at = ? WHERE id = ?`, delta, now(), id)
	if err != nil {
		return fmt.Errorf("failed to adjust member count: %w", err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *sqliteClubRepository) SetStats(ctx context.Context, exec SQLExecutor, id string, memberCount, averageRating int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE clubs SET member_count = ?, average_rating = ?, updated_at = ? WHERE id = ?`,
		memberCount, averageRating, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update club stats: %w", err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *sqliteClubRepository) Deactivate(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE clubs SET is_active = 0, member_count = 0, updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate club: %w", err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *sqliteClubRepository) DetachMembers(ctx context.Context, exec SQLExecutor, id string) error {
	_, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE players SET club_id = NULL, updated_at = ? WHERE club_id = ?`, now(), id)
	if err != nil {
		return fmt.Errorf("failed to detach club members: %w", err)
	}
	return nil
}

// ComputeMemberStats counts active members and averages their rapid ratings,
// truncating toward zero.
func (r *sqliteClubRepository) ComputeMemberStats(ctx context.Context, exec SQLExecutor, id string) (int, int, error) {
	var (
		count  int
		avg    sql.NullFloat64
		rating int
	)
	err := r.getExecutor(exec).QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(CASE WHEN rating_rapid > 0 THEN rating_rapid END)
		FROM players
		WHERE club_id = ? AND is_active = 1`, id,
	).Scan(&count, &avg)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute club stats: %w", err)
	}
	if avg.Valid {
		rating = int(avg.Float64)
	}
	return count, rating, nil
}

func (r *sqliteClubRepository) handleClubError(err error) error {
	if err == nil {
		return nil
	}
	if db.IsConstraintError(err, "UNIQUE") {
		return ErrClubNameConflict
	}
	return fmt.Errorf("club query failed: %w", err)
}
