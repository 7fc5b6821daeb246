package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/checked/chesscom"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

var (
	ErrAuthInvalidCredentials = errors.New("Incorrect username or password")
	ErrAuthUsernameTaken      = errors.New("This Chess.com username is already registered")
	ErrAuthPhoneTaken         = errors.New("This phone number is already registered")
)

const kenyaCountryCode = "KE"

type RegisterInput struct {
	ChessComUsername string                    `json:"chess_com_username"`
	Password         string                    `json:"password"`
	Phone            string                    `json:"phone"`
	Age              int                       `json:"age"`
	Gender           string                    `json:"gender"`
	County           *string                   `json:"county"`
	Club             *string                   `json:"club"`
	Fingerprint      *models.DeviceFingerprint `json:"fingerprint,omitempty"`
}

type LoginInput struct {
	ChessComUsername string                    `json:"chess_com_username"`
	Password         string                    `json:"password"`
	Fingerprint      *models.DeviceFingerprint `json:"fingerprint,omitempty"`
}

// ClientInfo describes where a request came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	Player      *models.Player `json:"player"`
}

type UsernameCheck struct {
	Exists   bool            `json:"exists"`
	Message  string          `json:"message,omitempty"`
	Username string          `json:"username,omitempty"`
	Avatar   string          `json:"avatar,omitempty"`
	Status   string          `json:"status,omitempty"`
	Country  string          `json:"country,omitempty"`
	Stats    *chesscom.Stats `json:"stats,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput, client ClientInfo) (*AuthResult, error)
	// Login checks credentials. Limited logins count failures per username
	// and address and refuse further attempts once the lockout is reached.
	Login(ctx context.Context, input LoginInput, client ClientInfo, limited bool) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (*models.Player, error)
	VerifyUsername(ctx context.Context, username string) (*UsernameCheck, error)
	IssueToken(playerID string) (string, error)
	ParseToken(token string) (string, error)
}

type authService struct {
	players  repositories.PlayerRepository
	chess    ChessComClient
	security SecurityService
	secret   []byte
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(
	players repositories.PlayerRepository,
	chess ChessComClient,
	security SecurityService,
	secret string,
	ttl time.Duration,
	logger *slog.Logger,
) AuthService {
	return &authService{
		players:  players,
		chess:    chess,
		security: security,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   orDefaultLogger(logger),
		now:      nowUTC,
	}
}

func (s *authService) IssueToken(playerID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry and returns the player id.
func (s *authService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate resolves a bearer token to an active player.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*models.Player, error) {
	playerID, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	player, err := s.players.GetByID(ctx, playerID)
	if errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !player.IsActive {
		return nil, ErrAccountDisabled
	}
	return player, nil
}

func (in *RegisterInput) validate() error {
	in.ChessComUsername = normalizeUsername(in.ChessComUsername)
	if n := len(in.ChessComUsername); n < 3 || n > 50 {
		return invalid("Chess.com username must be 3-50 characters")
	}
	if len(in.Password) < 6 {
		return invalid("Password must be at least 6 characters")
	}
	phone, err := utils.NormalizePhone(in.Phone)
	if err != nil {
		return invalid("%s", err.Error())
	}
	in.Phone = phone
	if in.Age < 5 || in.Age > 120 {
		return invalid("Age must be between 5 and 120")
	}
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	if !models.Gender(in.Gender).Valid() {
		return invalid("Gender must be one of: male, female, other")
	}
	if in.County != nil && *in.County != "" && !utils.IsCounty(*in.County) {
		return invalid("Unknown county: %s", *in.County)
	}
	return nil
}

func (s *authService) result(player *models.Player) (*AuthResult, error) {
	token, err := s.IssueToken(player.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, TokenType: "bearer", Player: player}, nil
}

func (s *authService) Register(ctx context.Context, input RegisterInput, client ClientInfo) (*AuthResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	if _, err := s.players.GetByUsername(ctx, input.ChessComUsername); err == nil {
		return nil, detail(ErrConflict, "%s", ErrAuthUsernameTaken.Error())
	} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}

	profile, err := s.chess.Profile(ctx, input.ChessComUsername)
	if errors.Is(err, chesscom.ErrNotFound) {
		return nil, invalid("Chess.com username not found. Please check the username and try again.")
	}
	if err != nil {
		return nil, detail(ErrServiceUnavailable, "Could not reach Chess.com. Please try again shortly.")
	}

	if _, err := s.players.GetByPhone(ctx, input.Phone); err == nil {
		return nil, detail(ErrConflict, "%s", ErrAuthPhoneTaken.Error())
	} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}

	country := profile.CountryCode()
	if country != "" && country != kenyaCountryCode {
		return nil, detail(ErrRegistrationBlocked,
			"Registration blocked: Your Chess.com account is registered in %s, not Kenya. Only Kenyan Chess.com accounts are allowed.", country)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	player := &models.Player{
		ChessComUsername: strings.ToLower(profile.Username),
		ChessComAvatar:   optional(profile.Avatar),
		ChessComStatus:   optional(profile.Status),
		ChessComCountry:  optional(country),
		PasswordHash:     hash,
		Phone:            input.Phone,
		Age:              input.Age,
		Gender:           models.Gender(input.Gender),
		County:           input.County,
		Club:             input.Club,
		IsActive:         true,
		RegistrationIP:   optional(client.IP),
	}
	if profile.Joined != 0 {
		player.ChessComJoined = ptr(profile.Joined)
	}
	if stats, err := s.chess.Stats(ctx, player.ChessComUsername); err == nil {
		player.RatingRapid, player.RatingBlitz, player.RatingBullet = stats.Rapid, stats.Blitz, stats.Bullet
		player.RatingsUpdatedAt = ptr(s.now())
	} else {
		s.logger.WarnContext(ctx, "chess.com stats unavailable at registration",
			slog.String("username", player.ChessComUsername), slog.Any("error", err))
	}

	if err := s.players.Create(ctx, nil, player); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerUsernameConflict):
			return nil, detail(ErrConflict, "%s", ErrAuthUsernameTaken.Error())
		case errors.Is(err, repositories.ErrPlayerPhoneConflict):
			return nil, detail(ErrConflict, "%s", ErrAuthPhoneTaken.Error())
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "player registered", slog.String("player_id", player.ID), slog.String("username", player.ChessComUsername))

	if _, err := s.security.RecordLogin(ctx, player, input.Fingerprint, client.IP, models.SessionRegister); err != nil {
		s.logger.WarnContext(ctx, "failed to record registration", slog.String("player_id", player.ID), slog.Any("error", err))
	}
	return s.result(player)
}

func (s *authService) Login(ctx context.Context, input LoginInput, client ClientInfo, limited bool) (*AuthResult, error) {
	username := normalizeUsername(input.ChessComUsername)
	remaining := maxFailedLogins
	if limited {
		var err error
		if remaining, err = s.security.RemainingAttempts(ctx, username, client.IP); err != nil {
			return nil, err
		}
	}

	player, err := s.players.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}
	if player == nil || !utils.CheckPasswordHash(input.Password, player.PasswordHash) {
		if limited {
			if err := s.security.RecordFailedLogin(ctx, username, client.IP, player, client.UserAgent); err != nil {
				s.logger.WarnContext(ctx, "failed to record failed login", slog.Any("error", err))
			}
			if remaining <= 3 {
				return nil, detail(ErrAuthenticationFailed, "%s. %d attempts remaining.", ErrAuthInvalidCredentials.Error(), remaining-1)
			}
		}
		return nil, detail(ErrAuthenticationFailed, "%s", ErrAuthInvalidCredentials.Error())
	}
	if !player.IsActive {
		return nil, ErrAccountDisabled
	}

	if limited {
		if err := s.security.ClearFailures(ctx, username, client.IP); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login failures", slog.Any("error", err))
		}
	}
	if _, err := s.security.RecordLogin(ctx, player, input.Fingerprint, client.IP, models.SessionLogin); err != nil {
		s.logger.WarnContext(ctx, "failed to record login", slog.String("player_id", player.ID), slog.Any("error", err))
	}
	s.refreshAvatar(ctx, player)
	if err := s.players.TouchLogin(ctx, player.ID, s.now()); err != nil {
		s.logger.WarnContext(ctx, "failed to update last login", slog.String("player_id", player.ID), slog.Any("error", err))
	}
	return s.result(player)
}

// refreshAvatar picks up a changed chess.com avatar. Failures are ignored.
func (s *authService) refreshAvatar(ctx context.Context, player *models.Player) {
	profile, err := s.chess.Profile(ctx, player.ChessComUsername)
	if err != nil || profile.Avatar == "" || profile.Avatar == derefString(player.ChessComAvatar) {
		return
	}
	at := s.now()
	if player.RatingsUpdatedAt != nil {
		at = *player.RatingsUpdatedAt
	}
	upd := repositories.RatingUpdate{
		Rapid:  player.RatingRapid,
		Blitz:  player.RatingBlitz,
		Bullet: player.RatingBullet,
		Avatar: &profile.Avatar,
	}
	if err := s.players.UpdateRatings(ctx, player.ID, upd, at); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh avatar", slog.String("player_id", player.ID), slog.Any("error", err))
		return
	}
	player.ChessComAvatar = &profile.Avatar
}

func (s *authService) VerifyUsername(ctx context.Context, username string) (*UsernameCheck, error) {
	profile, err := s.chess.Profile(ctx, username)
	if errors.Is(err, chesscom.ErrNotFound) {
		return &UsernameCheck{Exists: false, Message: "Username not found on Chess.com"}, nil
	}
	if err != nil {
		return nil, detail(ErrServiceUnavailable, "Could not reach Chess.com. Please try again shortly.")
	}
	out := &UsernameCheck{
		Exists:   true,
		Username: profile.Username,
		Avatar:   profile.Avatar,
		Status:   profile.Status,
		Country:  profile.CountryCode(),
	}
	if stats, err := s.chess.Stats(ctx, profile.Username); err == nil {
		out.Stats = stats
	}
	return out, nil
}
