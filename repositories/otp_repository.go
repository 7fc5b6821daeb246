package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/checked/models"
)

var ErrOTPNotFound = errors.New("otp not found")

type OTPRepository interface {
	Create(ctx context.Context, exec SQLExecutor, otp *models.OTP) error
	LatestSince(ctx context.Context, phone, purpose string, since time.Time) (*models.OTP, error)
	LatestValid(ctx context.Context, phone, purpose string, at time.Time) (*models.OTP, error)
	InvalidateUnused(ctx context.Context, exec SQLExecutor, phone, purpose string) error
	IncrementAttempts(ctx context.Context, id string) error
	MarkUsed(ctx context.Context, exec SQLExecutor, id string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const otpColumns = `id, phone, purpose, otp_hash, attempts, is_used, created_at, expires_at, used_at`

type sqliteOTPRepository struct {
	db *sql.DB
}

func NewOTPRepository(db *sql.DB) OTPRepository {
	return &sqliteOTPRepository{db: db}
}

func (r *sqliteOTPRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanOTP(row rowScanner) (*models.OTP, error) {
	o := &models.OTP{}
	err := row.Scan(&o.ID, &o.Phone, &o.Purpose, &o.OTPHash, &o.Attempts, &o.IsUsed, &o.CreatedAt, &o.ExpiresAt, &o.UsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to scan otp: %w", err)
	}
	return o, nil
}

func (r *sqliteOTPRepository) Create(ctx context.Context, exec SQLExecutor, o *models.OTP) error {
	if o.ID == "" {
		o.ID = newID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now()
	}
	_, err := r.getExecutor(exec).ExecContext(ctx, `
		INSERT INTO otps (id, phone, purpose, otp_hash, attempts, is_used, created_at, expires_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		o.ID, o.Phone, o.Purpose, o.OTPHash, o.CreatedAt.UTC(), o.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}
	return nil
}

func (r *sqliteOTPRepository) LatestSince(ctx context.Context, phone, purpose string, since time.Time) (*models.OTP, error) {
	query := `SELECT ` + otpColumns + ` FROM otps
		WHERE phone = ? AND purpose = ? AND created_at > ?
		ORDER BY created_at DESC LIMIT 1`
	return scanOTP(r.db.QueryRowContext(ctx, query, phone, purpose, since.UTC()))
}

// LatestValid returns the newest unused, unexpired code.
func (r *sqliteOTPRepository) LatestValid(ctx context.Context, phone, purpose string, at time.Time) (*models.OTP, error) {
	query := `SELECT ` + otpColumns + ` FROM otps
		WHERE phone = ? AND purpose = ? AND is_used = 0 AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`
	return scanOTP(r.db.QueryRowContext(ctx, query, phone, purpose, at.UTC()))
}

func (r *sqliteOTPRepository) InvalidateUnused(ctx context.Context, exec SQLExecutor, phone, purpose string) error {
	_, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE otps SET is_used = 1 WHERE phone = ? AND purpose = ? AND is_used = 0`, phone, purpose)
	if err != nil {
		return fmt.Errorf("failed to invalidate otps: %w", err)
	}
	return nil
}

func (r *sqliteOTPRepository) IncrementAttempts(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE otps SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	return checkAffectedRows(result, ErrOTPNotFound)
}

func (r *sqliteOTPRepository) MarkUsed(ctx context.Context, exec SQLExecutor, id string, at time.Time) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE otps SET is_used = 1, used_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark otp used: %w", err)
	}
	return checkAffectedRows(result, ErrOTPNotFound)
}

func (r *sqliteOTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return result.RowsAffected()
}
