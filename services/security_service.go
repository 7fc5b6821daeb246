package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/storage"
	"github.com/Dosada05/checked/utils"
)

const (
	maxFailedLogins = 5
	loginLockout    = 15 * time.Minute

	riskNewDevice   = 20.0
	riskNewLocation = 15.0
)

type LoginRecord struct {
	Login     *models.LoginHistory
	RiskScore float64
}

// RiskLevel buckets a risk score for display.
func RiskLevel(score float64) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	}
	return "low"
}

type SecurityStatus struct {
	IsFlagged   bool `json:"is_flagged"`
	DeviceCount int  `json:"device_count"`
	TotalLogins int  `json:"total_logins"`
	UniqueIPs   int  `json:"unique_ips"`
	OpenFlags   int  `json:"open_flags"`
}

// SecurityService keeps login history, raises new-device flags and guards
// logins against password guessing.
type SecurityService interface {
	RecordLogin(ctx context.Context, player *models.Player, fp *models.DeviceFingerprint, ip, sessionType string) (*LoginRecord, error)
	RecordFailedLogin(ctx context.Context, username, ip string, player *models.Player, userAgent string) error
	// RemainingAttempts returns how many failures are left before the lockout,
	// or ErrTooManyRequests once it is reached.
	RemainingAttempts(ctx context.Context, username, ip string) (int, error)
	ClearFailures(ctx context.Context, username, ip string) error
	Status(ctx context.Context, player *models.Player) (*SecurityStatus, error)
	Logins(ctx context.Context, playerID string, limit int) ([]*models.LoginHistory, error)
	Flags(ctx context.Context, playerID, status string) ([]*models.SecurityFlag, error)
}

type securityService struct {
	security repositories.SecurityRepository
	cache    storage.Cache
	logger   *slog.Logger
}

func NewSecurityService(security repositories.SecurityRepository, cache storage.Cache, logger *slog.Logger) SecurityService {
	if cache == nil {
		cache = storage.NewMemoryCache()
	}
	return &securityService{security: security, cache: cache, logger: orDefaultLogger(logger)}
}

func failureKey(username, ip string) string {
	return fmt.Sprintf("login_fail:%s:%s", normalizeUsername(username), ip)
}

// fingerprintHash hashes the parts of a fingerprint that stay stable across
// browser updates.
func fingerprintHash(fp *models.DeviceFingerprint) string {
	if fp == nil {
		return utils.HashFingerprint("unknown")
	}
	return utils.HashFingerprint(fp.Platform, fp.ScreenResolution, fp.Timezone)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *securityService) RecordLogin(ctx context.Context, player *models.Player, fp *models.DeviceFingerprint, ip, sessionType string) (*LoginRecord, error) {
	hash := fingerprintHash(fp)
	hadLogins, err := s.security.HasLogins(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	knownDevice, err := s.security.KnownDevice(ctx, player.ID, hash)
	if err != nil {
		return nil, err
	}
	knownAddress, err := s.security.KnownAddress(ctx, player.ID, ip)
	if err != nil {
		return nil, err
	}

	isNewDevice := hadLogins && !knownDevice
	isNewLocation := hadLogins && !knownAddress
	risk := 0.0
	if isNewDevice {
		risk += riskNewDevice
	}
	if isNewLocation {
		risk += riskNewLocation
	}

	login := &models.LoginHistory{
		PlayerID:        player.ID,
		FingerprintHash: hash,
		IPAddress:       ip,
		LoginSuccessful: true,
		SessionType:     sessionType,
		IsNewDevice:     isNewDevice,
	}
	if fp != nil {
		login.UserAgent = optional(fp.UserAgent)
		login.Platform = optional(fp.Platform)
		login.ScreenResolution = optional(fp.ScreenResolution)
		login.Timezone = optional(fp.Timezone)
		login.Language = optional(fp.Language)
	}
	if err := s.security.RecordLogin(ctx, login, isNewLocation, risk); err != nil {
		return nil, err
	}

	if isNewDevice {
		flag := &models.SecurityFlag{
			PlayerID:    player.ID,
			FlagType:    "new_device",
			Severity:    "low",
			Title:       "Login from a new device",
			Description: fmt.Sprintf("%s signed in from a device not seen before (ip %s)", player.ChessComUsername, ip),
			RelatedID:   &login.ID,
		}
		if err := s.security.CreateFlag(ctx, flag); err != nil {
			s.logger.WarnContext(ctx, "failed to raise new device flag", slog.String("player_id", player.ID), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "login recorded",
		slog.String("player_id", player.ID),
		slog.String("session_type", sessionType),
		slog.Bool("new_device", isNewDevice),
		slog.Float64("risk_score", risk),
	)
	return &LoginRecord{Login: login, RiskScore: risk}, nil
}

func (s *securityService) RecordFailedLogin(ctx context.Context, username, ip string, player *models.Player, userAgent string) error {
	if _, err := s.cache.Incr(ctx, failureKey(username, ip), loginLockout); err != nil {
		s.logger.WarnContext(ctx, "failed to count login failure", slog.Any("error", err))
	}
	if player == nil {
		return nil
	}
	return s.security.RecordLogin(ctx, &models.LoginHistory{
		PlayerID:        player.ID,
		FingerprintHash: utils.HashFingerprint("failed", userAgent),
		UserAgent:       optional(userAgent),
		IPAddress:       ip,
		SessionType:     models.SessionLogin,
	}, false, 0)
}

func (s *securityService) RemainingAttempts(ctx context.Context, username, ip string) (int, error) {
	n, err := s.cache.Count(ctx, failureKey(username, ip))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read login failures", slog.Any("error", err))
		return maxFailedLogins, nil
	}
	if n >= maxFailedLogins {
		return 0, detail(ErrTooManyRequests, "Too many failed attempts. Try again in %d minutes.", int(loginLockout.Minutes()))
	}
	return maxFailedLogins - int(n), nil
}

func (s *securityService) ClearFailures(ctx context.Context, username, ip string) error {
	return s.cache.Delete(ctx, failureKey(username, ip))
}

func (s *securityService) Status(ctx context.Context, player *models.Player) (*SecurityStatus, error) {
	logins, err := s.security.ListLogins(ctx, player.ID, 500)
	if err != nil {
		return nil, err
	}
	flags, err := s.security.ListFlags(ctx, player.ID, "open")
	if err != nil {
		return nil, err
	}
	devices := make(map[string]bool)
	ips := make(map[string]bool)
	total := 0
	for _, l := range logins {
		if !l.LoginSuccessful {
			continue
		}
		total++
		devices[l.FingerprintHash] = true
		ips[l.IPAddress] = true
	}
	return &SecurityStatus{
		IsFlagged:   player.IsFlagged,
		DeviceCount: len(devices),
		TotalLogins: total,
		UniqueIPs:   len(ips),
		OpenFlags:   len(flags),
	}, nil
}

func (s *securityService) Logins(ctx context.Context, playerID string, limit int) ([]*models.LoginHistory, error) {
	return s.security.ListLogins(ctx, playerID, clampLimit(limit, 20, 100))
}

func (s *securityService) Flags(ctx context.Context, playerID, status string) ([]*models.SecurityFlag, error) {
	return s.security.ListFlags(ctx, playerID, status)
}
