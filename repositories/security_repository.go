package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/checked/models"
)

type SecurityRepository interface {
	RecordLogin(ctx context.Context, login *models.LoginHistory, isNewLocation bool, riskScore float64) error
	KnownDevice(ctx context.Context, playerID, fingerprintHash string) (bool, error)
	KnownAddress(ctx context.Context, playerID, ip string) (bool, error)
	HasLogins(ctx context.Context, playerID string) (bool, error)
	CountFailedSince(ctx context.Context, playerID, ip string, since time.Time) (int, error)
	ListLogins(ctx context.Context, playerID string, limit int) ([]*models.LoginHistory, error)
	CreateFlag(ctx context.Context, flag *models.SecurityFlag) error
	ListFlags(ctx context.Context, playerID string, status string) ([]*models.SecurityFlag, error)
}

type sqliteSecurityRepository struct {
	db *sql.DB
}

func NewSecurityRepository(db *sql.DB) SecurityRepository {
	return &sqliteSecurityRepository{db: db}
}

func (r *sqliteSecurityRepository) RecordLogin(ctx context.Context, l *models.LoginHistory, isNewLocation bool, riskScore float64) error {
	if l.ID == "" {
		l.ID = newID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_history (
			id, player_id, fingerprint_hash, user_agent, platform, screen_resolution, timezone, language,
			ip_address, login_successful, session_type, is_new_device, is_new_location, risk_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.PlayerID, l.FingerprintHash, l.UserAgent, l.Platform, l.ScreenResolution, l.Timezone, l.Language,
		l.IPAddress, l.LoginSuccessful, l.SessionType, l.IsNewDevice, isNewLocation, riskScore, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

func (r *sqliteSecurityRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found int
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(`+query+`)`, args...).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to query login history: %w", err)
	}
	return found == 1, nil
}

// KnownDevice reports an earlier successful login from the same fingerprint.
func (r *sqliteSecurityRepository) KnownDevice(ctx context.Context, playerID, fingerprintHash string) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM login_history WHERE player_id = ? AND fingerprint_hash = ? AND login_successful = 1`,
		playerID, fingerprintHash)
}

func (r *sqliteSecurityRepository) KnownAddress(ctx context.Context, playerID, ip string) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM login_history WHERE player_id = ? AND ip_address = ?`, playerID, ip)
}

func (r *sqliteSecurityRepository) HasLogins(ctx context.Context, playerID string) (bool, error) {
	return r.exists(ctx,
		`SELECT 1 FROM login_history WHERE player_id = ? AND login_successful = 1`, playerID)
}

func (r *sqliteSecurityRepository) CountFailedSince(ctx context.Context, playerID, ip string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_history
		WHERE player_id = ? AND ip_address = ? AND login_successful = 0 AND created_at > ?`,
		playerID, ip, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed logins: %w", err)
	}
	return n, nil
}

func (r *sqliteSecurityRepository) ListLogins(ctx context.Context, playerID string, limit int) ([]*models.LoginHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, player_id, fingerprint_hash, user_agent, platform, screen_resolution, timezone, language,
			ip_address, login_successful, session_type, is_new_device, created_at
		FROM login_history WHERE player_id = ?
		ORDER BY created_at DESC LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	defer rows.Close()

	out := make([]*models.LoginHistory, 0)
	for rows.Next() {
		l := &models.LoginHistory{}
		if err := rows.Scan(&l.ID, &l.PlayerID, &l.FingerprintHash, &l.UserAgent, &l.Platform,
			&l.ScreenResolution, &l.Timezone, &l.Language, &l.IPAddress, &l.LoginSuccessful,
			&l.SessionType, &l.IsNewDevice, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *sqliteSecurityRepository) CreateFlag(ctx context.Context, f *models.SecurityFlag) error {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.Status == "" {
		f.Status = "open"
	}
	f.CreatedAt = now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_flags (
			id, player_id, flag_type, severity, title, description, extra_data, related_login_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.PlayerID, f.FlagType, f.Severity, f.Title, f.Description, f.ExtraData, f.RelatedID, f.Status, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create security flag: %w", err)
	}
	return nil
}

func (r *sqliteSecurityRepository) ListFlags(ctx context.Context, playerID string, status string) ([]*models.SecurityFlag, error) {
	query := `SELECT id, player_id, flag_type, severity, title, description, extra_data, related_login_id, status, created_at
		FROM security_flags WHERE player_id = ?`
	args := []interface{}{playerID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list security flags: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SecurityFlag, 0)
	for rows.Next() {
		f := &models.SecurityFlag{}
		if err := rows.Scan(&f.ID, &f.PlayerID, &f.FlagType, &f.Severity, &f.Title, &f.Description,
			&f.ExtraData, &f.RelatedID, &f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security flag: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
