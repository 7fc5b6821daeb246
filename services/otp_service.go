package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

const otpExpiryMinutes = int(models.OTPExpiry / time.Minute)

const resetRequestedMessage = "If this phone is registered, you will receive an OTP"

type ResetRequested struct {
	Message          string `json:"message"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
	DebugOTP         string `json:"debug_otp,omitempty"`
	DebugNote        string `json:"debug_note,omitempty"`
}

// PasswordResetService resets passwords with one-time codes sent by SMS.
type PasswordResetService interface {
	RequestReset(ctx context.Context, phone string) (*ResetRequested, error)
	ResetPassword(ctx context.Context, phone, code, newPassword string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type passwordResetService struct {
	db      *sql.DB
	otps    repositories.OTPRepository
	players repositories.PlayerRepository
	sms     SMSSender
	logger  *slog.Logger
	now     func() time.Time
}

func NewPasswordResetService(
	db *sql.DB,
	otps repositories.OTPRepository,
	players repositories.PlayerRepository,
	sms SMSSender,
	logger *slog.Logger,
) PasswordResetService {
	return &passwordResetService{
		db:      db,
		otps:    otps,
		players: players,
		sms:     sms,
		logger:  orDefaultLogger(logger),
		now:     nowUTC,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, phone string) (*ResetRequested, error) {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	out := &ResetRequested{Message: resetRequestedMessage, ExpiresInMinutes: otpExpiryMinutes}

	if _, err := s.players.GetByPhone(ctx, normalized); errors.Is(err, repositories.ErrPlayerNotFound) {
		return out, nil
	} else if err != nil {
		return nil, err
	}

	now := s.now()
	recent, err := s.otps.LatestSince(ctx, normalized, models.OTPPurposePasswordReset, now.Add(-models.OTPCooldown))
	switch {
	case err == nil:
		wait := int(recent.CreatedAt.Add(models.OTPCooldown).Sub(now).Seconds())
		if wait < 1 {
			wait = 1
		}
		return nil, detail(ErrTooManyRequests, "Please wait %d seconds before requesting another OTP", wait)
	case !errors.Is(err, repositories.ErrOTPNotFound):
		return nil, err
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}
	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := s.otps.InvalidateUnused(ctx, tx, normalized, models.OTPPurposePasswordReset); err != nil {
			return err
		}
		return s.otps.Create(ctx, tx, &models.OTP{
			Phone:     normalized,
			Purpose:   models.OTPPurposePasswordReset,
			OTPHash:   utils.HashOTP(code),
			CreatedAt: now,
			ExpiresAt: now.Add(models.OTPExpiry),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.sms == nil || !s.sms.Configured() {
		out.DebugOTP = code
		out.DebugNote = "SMS not configured. Set AT_USERNAME and AT_API_KEY in .env"
		return out, nil
	}
	if err := s.sms.Send(ctx, normalized, otpMessage(code)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset code", slog.String("phone", utils.MaskPhone(normalized)), slog.Any("error", err))
	}
	return out, nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	if len(newPassword) < 6 {
		return invalid("Password must be at least 6 characters")
	}
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return invalid("Invalid phone number or OTP")
	}
	player, err := s.players.GetByPhone(ctx, normalized)
	if errors.Is(err, repositories.ErrPlayerNotFound) {
		return invalid("Invalid phone number or OTP")
	}
	if err != nil {
		return err
	}

	now := s.now()
	otp, err := s.otps.LatestValid(ctx, normalized, models.OTPPurposePasswordReset, now)
	if errors.Is(err, repositories.ErrOTPNotFound) {
		return invalid("Invalid or expired OTP. Please request a new one.")
	}
	if err != nil {
		return err
	}
	if otp.Attempts >= models.OTPMaxAttempts {
		if err := s.otps.MarkUsed(ctx, nil, otp.ID, now); err != nil {
			return err
		}
		return invalid("Too many failed attempts. Please request a new OTP.")
	}
	if utils.HashOTP(code) != otp.OTPHash {
		if err := s.otps.IncrementAttempts(ctx, otp.ID); err != nil {
			return err
		}
		return invalid("Invalid OTP. %d attempts remaining.", models.OTPMaxAttempts-otp.Attempts-1)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := s.players.UpdatePassword(ctx, tx, player.ID, hash); err != nil {
			return err
		}
		return s.otps.MarkUsed(ctx, tx, otp.ID, now)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password reset", slog.String("player_id", player.ID))
	return nil
}

// PurgeExpired removes codes that expired more than a day ago.
func (s *passwordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.otps.DeleteExpired(ctx, s.now().Add(-24*time.Hour))
}
