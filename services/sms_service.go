package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dosada05/checked/config"
	"github.com/Dosada05/checked/utils"
)

const (
	atLiveEndpoint    = "https://api.africastalking.com/version1/messaging"
	atSandboxEndpoint = "https://api.sandbox.africastalking.com/version1/messaging"
	atSandboxUsername = "sandbox"
)

var ErrSMSNotConfigured = errors.New("SMS service not configured")

// SMSSender delivers text messages to Kenyan phone numbers.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
	Configured() bool
}

// SMSService talks to the Africa's Talking messaging API.
type SMSService struct {
	username string
	apiKey   string
	senderID string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewSMSService(cfg *config.Config, logger *slog.Logger) *SMSService {
	endpoint := atLiveEndpoint
	if cfg.ATUsername == atSandboxUsername {
		endpoint = atSandboxEndpoint
	}
	return &SMSService{
		username: cfg.ATUsername,
		apiKey:   cfg.ATAPIKey,
		senderID: cfg.ATSenderID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   orDefaultLogger(logger),
	}
}

func (s *SMSService) Configured() bool {
	return s.username != "" && s.apiKey != ""
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
			Cost       string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (s *SMSService) Send(ctx context.Context, phone, message string) error {
	if !s.Configured() {
		s.logger.InfoContext(ctx, "SMS not configured, message dropped", slog.String("phone", utils.MaskPhone(phone)))
		return ErrSMSNotConfigured
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	form := url.Values{}
	form.Set("username", s.username)
	form.Set("to", phone)
	form.Set("message", message)
	// Sender IDs are rejected by the sandbox.
	if s.senderID != "" && s.username != atSandboxUsername {
		form.Set("from", s.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("apiKey", s.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read SMS response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("SMS gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed atResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}
	recipients := parsed.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return errors.New("no recipients in SMS response")
	}
	if recipients[0].Status != "Success" {
		return fmt.Errorf("SMS rejected: %s", recipients[0].Status)
	}
	s.logger.DebugContext(ctx, "SMS sent", slog.String("phone", utils.MaskPhone(phone)), slog.String("message_id", recipients[0].MessageID))
	return nil
}

func otpMessage(code string) string {
	return fmt.Sprintf("Your ChessKenya verification code is: %s\n\nThis code expires in %d minutes. Do not share it with anyone.",
		code, otpExpiryMinutes)
}
