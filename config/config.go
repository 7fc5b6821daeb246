package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Dosada05/checked/db"
)

// Config holds every setting read from the environment.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"ChessKenya"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabasePath string `env:"DATABASE_PATH"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	SecretKey                string `env:"SECRET_KEY"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"10080"`

	ChessComAPIBase    string `env:"CHESS_COM_API_BASE" envDefault:"https://api.chess.com/pub"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	ATUsername string `env:"AT_USERNAME" envDefault:"sandbox"`
	ATAPIKey   string `env:"AT_API_KEY"`
	ATSenderID string `env:"AT_SENDER_ID"`

	VAPIDPublicKey    string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey   string `env:"VAPID_PRIVATE_KEY"`
	VAPIDContactEmail string `env:"VAPID_CONTACT_EMAIL" envDefault:"admin@chesskenya.com"`

	RedisAddr string `env:"REDIS_ADDR"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`

	AutomationInterval     time.Duration `env:"AUTOMATION_INTERVAL" envDefault:"5m"`
	AutomationInitialDelay time.Duration `env:"AUTOMATION_INITIAL_DELAY" envDefault:"30s"`
	RatingSyncInterval     time.Duration `env:"RATING_SYNC_INTERVAL" envDefault:"30m"`

	// GeneratedSecret is set when SECRET_KEY was missing and a random key is in use.
	GeneratedSecret bool `env:"-"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = db.DefaultPath()
	}
	if cfg.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate secret key: %w", err)
		}
		cfg.SecretKey = hex.EncodeToString(key)
		cfg.GeneratedSecret = true
	}
	if cfg.AccessTokenExpireMinutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", cfg.AccessTokenExpireMinutes)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) SMSConfigured() bool {
	return c.ATAPIKey != ""
}

func (c *Config) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// SlogLevel maps LOG_LEVEL onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AllowedOrigins lists CORS origins; outside production every origin is allowed.
func (c *Config) AllowedOrigins() []string {
	if !c.IsProduction() {
		return []string{"*"}
	}
	return []string{
		"https://chesskenya.com",
		"https://www.chesskenya.com",
		"https://checked.co.ke",
		"https://www.checked.co.ke",
		"https://checked-kappa.vercel.app",
	}
}
