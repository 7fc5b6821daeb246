package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationPairing NotificationType = "pairing"
	NotificationResult  NotificationType = "result"
	NotificationNoShow  NotificationType = "no_show"
	NotificationClaim   NotificationType = "claim"
	NotificationConfirm NotificationType = "confirm"
	NotificationDispute NotificationType = "dispute"
)

// Notification is an in-app message. Data holds a JSON object.
type Notification struct {
	ID        string           `json:"id"`
	PlayerID  string           `json:"-"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      json.RawMessage  `json:"data"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

const (
	OTPPurposePasswordReset = "password_reset"
	OTPExpiry               = 10 * time.Minute
	OTPMaxAttempts          = 3
	OTPCooldown             = time.Minute
)

type OTP struct {
	ID        string
	Phone     string
	Purpose   string
	OTPHash   string
	Attempts  int
	IsUsed    bool
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

func (o *OTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// LoginHistory is one authentication attempt.
type LoginHistory struct {
	ID               string    `json:"id"`
	PlayerID         string    `json:"player_id"`
	FingerprintHash  string    `json:"fingerprint_hash"`
	UserAgent        *string   `json:"user_agent"`
	Platform         *string   `json:"platform"`
	ScreenResolution *string   `json:"screen_resolution"`
	Timezone         *string   `json:"timezone"`
	Language         *string   `json:"language"`
	IPAddress        string    `json:"ip_address"`
	LoginSuccessful  bool      `json:"login_successful"`
	SessionType      string    `json:"session_type"`
	IsNewDevice      bool      `json:"is_new_device"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	SessionLogin    = "login"
	SessionRegister = "register"
)

type SecurityFlag struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"player_id"`
	FlagType    string    `json:"flag_type"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExtraData   *string   `json:"extra_data"`
	RelatedID   *string   `json:"related_login_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeviceFingerprint is what the client reports about the browser at login.
type DeviceFingerprint struct {
	UserAgent        string `json:"user_agent"`
	Platform         string `json:"platform,omitempty"`
	ScreenResolution string `json:"screen_resolution,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	Language         string `json:"language,omitempty"`
	CanvasHash       string `json:"canvas_hash,omitempty"`
	WebGLRenderer    string `json:"webgl_renderer,omitempty"`
	WebGLVendor      string `json:"webgl_vendor,omitempty"`
	FontsHash        string `json:"fonts_hash,omitempty"`
	AudioHash        string `json:"audio_hash,omitempty"`
}
