package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/checked/db"
	"github.com/Dosada05/checked/models"
)

var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrPlayerUsernameConflict = errors.New("chess.com username already registered")
	ErrPlayerPhoneConflict    = errors.New("phone number already registered")
)

type ListPlayersFilter struct {
	County     string
	Search     string
	ActiveOnly bool
	AdminsOnly bool
	Limit      int
	Offset     int
}

// RatingUpdate carries the chess.com profile fields refreshed together.
type RatingUpdate struct {
	Rapid   *int
	Blitz   *int
	Bullet  *int
	Avatar  *string
	Status  *string
	Country *string
	Joined  *int64
}

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, id string) (*models.Player, error)
	GetByUsername(ctx context.Context, username string) (*models.Player, error)
	GetByPhone(ctx context.Context, phone string) (*models.Player, error)
	GetMany(ctx context.Context, ids []string) (map[string]*models.Player, error)
	List(ctx context.Context, filter ListPlayersFilter) ([]*models.Player, error)
	ListByClub(ctx context.Context, clubID string, activeOnly bool) ([]*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	UpdateRatings(ctx context.Context, id string, upd RatingUpdate, at time.Time) error
	UpdatePassword(ctx context.Context, exec SQLExecutor, id, passwordHash string) error
	UpdatePush(ctx context.Context, id string, subscription *string, enabled bool) error
	ClearPushSubscription(ctx context.Context, id string) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	SetActive(ctx context.Context, id string, isActive bool) error
	SetClub(ctx context.Context, exec SQLExecutor, id string, clubID, clubName *string) error
	SetFlagged(ctx context.Context, id string, flagged bool) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

const playerColumns = `id, chess_com_username, chess_com_avatar, chess_com_joined, chess_com_status,
	chess_com_country, rating_rapid, rating_blitz, rating_bullet, ratings_updated_at,
	password_hash, phone, age, gender, county, club, club_id, is_active, is_admin,
	push_subscription, push_enabled, is_flagged, last_login_at, registration_ip,
	created_at, updated_at`

type sqlitePlayerRepository struct {
	db *sql.DB
}

func NewPlayerRepository(db *sql.DB) PlayerRepository {
	return &sqlitePlayerRepository{db: db}
}

func (r *sqlitePlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID, &p.ChessComUsername, &p.ChessComAvatar, &p.ChessComJoined, &p.ChessComStatus,
		&p.ChessComCountry, &p.RatingRapid, &p.RatingBlitz, &p.RatingBullet, &p.RatingsUpdatedAt,
		&p.PasswordHash, &p.Phone, &p.Age, &p.Gender, &p.County, &p.Club, &p.ClubID, &p.IsActive, &p.IsAdmin,
		&p.PushSubscription, &p.PushEnabled, &p.IsFlagged, &p.LastLoginAt, &p.RegistrationIP,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *sqlitePlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	if p.ID == "" {
		p.ID = newID()
	}
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts

	query := `
		INSERT INTO players (
			id, chess_com_username, chess_com_avatar, chess_com_joined, chess_com_status,
			chess_com_country, rating_rapid, rating_blitz, rating_bullet, ratings_updated_at,
			password_hash, phone, age, gender, county, club, club_id, is_active, is_admin,
			push_enabled, is_flagged, security_risk_level, registration_ip, registration_fingerprint,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'normal', ?, NULL, ?, ?)`

	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		p.ID, p.ChessComUsername, p.ChessComAvatar, p.ChessComJoined, p.ChessComStatus,
		p.ChessComCountry, p.RatingRapid, p.RatingBlitz, p.RatingBullet, p.RatingsUpdatedAt,
		p.PasswordHash, p.Phone, p.Age, p.Gender, p.County, p.Club, p.ClubID, p.IsActive, p.IsAdmin,
		p.PushEnabled, p.IsFlagged, p.RegistrationIP,
		p.CreatedAt, p.UpdatedAt,
	)
	return r.handlePlayerError(err)
}

func (r *sqlitePlayerRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE ` + where
	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (r *sqlitePlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *sqlitePlayerRepository) GetByUsername(ctx context.Context, username string) (*models.Player, error) {
	return r.getOne(ctx, "chess_com_username = ?", strings.ToLower(username))
}

func (r *sqlitePlayerRepository) GetByPhone(ctx context.Context, phone string) (*models.Player, error) {
	return r.getOne(ctx, "phone = ?", phone)
}

func (r *sqlitePlayerRepository) GetMany(ctx context.Context, ids []string) (map[string]*models.Player, error) {
	out := make(map[string]*models.Player, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + playerColumns + ` FROM players WHERE id IN (` + placeholders(len(ids)) + `)`
	players, err := r.query(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		out[p.ID] = p
	}
	return out, nil
}

func (r *sqlitePlayerRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Player, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *sqlitePlayerRepository) List(ctx context.Context, filter ListPlayersFilter) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE 1=1`
	args := []interface{}{}

	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}
	if filter.AdminsOnly {
		query += " AND is_admin = 1"
	}
	if filter.County != "" {
		query += " AND lower(county) = lower(?)"
		args = append(args, filter.County)
	}
	if filter.Search != "" {
		query += " AND chess_com_username LIKE ?"
		args = append(args, likePattern(filter.Search))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}
	return r.query(ctx, query, args...)
}

func (r *sqlitePlayerRepository) ListByClub(ctx context.Context, clubID string, activeOnly bool) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE club_id = ?`
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY chess_com_username"
	return r.query(ctx, query, clubID)
}

func (r *sqlitePlayerRepository) Update(ctx context.Context, p *models.Player) error {
	p.UpdatedAt = now()
	query := `
		UPDATE players SET
			phone = ?, age = ?, gender = ?, county = ?, club = ?, club_id = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		p.Phone, p.Age, p.Gender, p.County, p.Club, p.ClubID, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *sqlitePlayerRepository) UpdateRatings(ctx context.Context, id string, upd RatingUpdate, at time.Time) error {
	query := `
		UPDATE players SET
			rating_rapid = ?, rating_blitz = ?, rating_bullet = ?,
			chess_com_avatar = COALESCE(?, chess_com_avatar),
			chess_com_status = COALESCE(?, chess_com_status),
			chess_com_country = COALESCE(?, chess_com_country),
			chess_com_joined = COALESCE(?, chess_com_joined),
			ratings_updated_at = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		upd.Rapid, upd.Blitz, upd.Bullet, upd.Avatar, upd.Status, upd.Country, upd.Joined,
		at.UTC(), now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update ratings for player %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *sqlitePlayerRepository) exec(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return r.handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *sqlitePlayerRepository) UpdatePassword(ctx context.Context, exec SQLExecutor, id, passwordHash string) error {
	return r.exec(ctx, exec, `UPDATE players SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, now(), id)
}

func (r *sqlitePlayerRepository) UpdatePush(ctx context.Context, id string, subscription *string, enabled bool) error {
	return r.exec(ctx, nil, `UPDATE players SET push_subscription = ?, push_enabled = ?, updated_at = ? WHERE id = ?`,
		subscription, enabled, now(), id)
}

func (r *sqlitePlayerRepository) ClearPushSubscription(ctx context.Context, id string) error {
	return r.exec(ctx, nil, `UPDATE players SET push_subscription = NULL, updated_at = ? WHERE id = ?`, now(), id)
}

func (r *sqlitePlayerRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return r.exec(ctx, nil, `UPDATE players SET is_admin = ?, updated_at = ? WHERE id = ?`, isAdmin, now(), id)
}

func (r *sqlitePlayerRepository) SetActive(ctx context.Context, id string, isActive bool) error {
	return r.exec(ctx, nil, `UPDATE players SET is_active = ?, updated_at = ? WHERE id = ?`, isActive, now(), id)
}

func (r *sqlitePlayerRepository) SetClub(ctx context.Context, exec SQLExecutor, id string, clubID, clubName *string) error {
	return r.exec(ctx, exec, `UPDATE players SET club_id = ?, club = ?, updated_at = ? WHERE id = ?`, clubID, clubName, now(), id)
}

func (r *sqlitePlayerRepository) SetFlagged(ctx context.Context, id string, flagged bool) error {
	return r.exec(ctx, nil, `UPDATE players SET is_flagged = ?, updated_at = ? WHERE id = ?`, flagged, now(), id)
}

func (r *sqlitePlayerRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, nil, `UPDATE players SET last_login_at = ? WHERE id = ?`, at.UTC(), id)
}

func (r *sqlitePlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if db.IsConstraintError(err, "UNIQUE") {
		switch {
		case strings.Contains(err.Error(), "players.phone"):
			return ErrPlayerPhoneConflict
		case strings.Contains(err.Error(), "players.chess_com_username"):
			return ErrPlayerUsernameConflict
		}
	}
	return fmt.Errorf("player query failed: %w", err)
}
