package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/Dosada05/checked/config"
	"github.com/Dosada05/checked/models"
)

var (
	ErrPushNotConfigured = errors.New("Push notifications not configured")
	// ErrSubscriptionGone means the browser subscription expired and should be removed.
	ErrSubscriptionGone = errors.New("push subscription expired")
)

// PushPayload is the JSON document the service worker receives.
type PushPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon"`
	Badge string                 `json:"badge"`
	URL   string                 `json:"url"`
	Tag   string                 `json:"tag,omitempty"`
	Data  map[string]interface{} `json:"data"`
}

// PushSender delivers Web Push messages with VAPID authentication.
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload PushPayload) error
	PublicKey() string
	Configured() bool
}

type webPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
	client     *http.Client
	logger     *slog.Logger
}

func NewPushSender(cfg *config.Config, logger *slog.Logger) PushSender {
	return &webPushSender{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.VAPIDContactEmail,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     orDefaultLogger(logger),
	}
}

func (s *webPushSender) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *webPushSender) PublicKey() string {
	if !s.Configured() {
		return ""
	}
	return s.publicKey
}

func (s *webPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload PushPayload) error {
	if !s.Configured() {
		return ErrPushNotConfigured
	}
	if payload.Icon == "" {
		payload.Icon = "/icon-192.png"
	}
	if payload.Badge == "" {
		payload.Badge = "/badge-72.png"
	}
	if payload.URL == "" {
		payload.URL = "/"
	}
	if payload.Data == nil {
		payload.Data = map[string]interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 300:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

func resultText(result models.GameResult) string {
	switch result {
	case models.ResultWhiteWins:
		return "White wins"
	case models.ResultBlackWins:
		return "Black wins"
	case models.ResultDraw:
		return "Draw"
	case models.ResultWhiteForfeit:
		return "White forfeits"
	case models.ResultBlackForfeit:
		return "Black forfeits"
	case models.ResultDoubleForfeit:
		return "Double forfeit"
	case models.ResultBye:
		return "Bye"
	}
	return string(result)
}

func pairingPush(opponent, tournamentName, colour string, round int, tournamentID, pairingID string) PushPayload {
	return PushPayload{
		Title: fmt.Sprintf("You're playing %s!", opponent),
		Body:  fmt.Sprintf("Round %d of %s. You play as %s.", round, tournamentName, colour),
		URL:   fmt.Sprintf("/tournaments/%s/pairings/%s", tournamentID, pairingID),
		Tag:   "pairing-" + pairingID,
		Data:  map[string]interface{}{"type": "pairing", "tournament_id": tournamentID, "pairing_id": pairingID},
	}
}

func resultPush(tournamentName string, result models.GameResult, tournamentID, pairingID string) PushPayload {
	return PushPayload{
		Title: "Game result recorded",
		Body:  fmt.Sprintf("%s: %s", tournamentName, resultText(result)),
		URL:   "/tournaments/" + tournamentID,
		Tag:   "result-" + pairingID,
		Data:  map[string]interface{}{"type": "result", "tournament_id": tournamentID, "pairing_id": pairingID},
	}
}

func noShowPush(tournamentName, tournamentID, pairingID string) PushPayload {
	return PushPayload{
		Title: "No-show claim against you!",
		Body:  fmt.Sprintf("Your opponent in %s claims you didn't show. Submit game URL to dispute.", tournamentName),
		URL:   fmt.Sprintf("/tournaments/%s/pairings/%s", tournamentID, pairingID),
		Tag:   "noshow-" + pairingID,
		Data:  map[string]interface{}{"type": "no_show", "tournament_id": tournamentID, "pairing_id": pairingID},
	}
}

func claimPush(claimer string, result models.GameResult, tournamentID, pairingID string, minutes int) PushPayload {
	return PushPayload{
		Title: "Confirm game result",
		Body:  fmt.Sprintf("%s claims: %s. Confirm within %d min.", claimer, resultText(result), minutes),
		URL:   "/tournaments/" + tournamentID,
		Tag:   "confirm-" + pairingID,
		Data:  map[string]interface{}{"type": "claim", "tournament_id": tournamentID, "pairing_id": pairingID},
	}
}

func confirmedPush(confirmer string, result models.GameResult, tournamentID string) PushPayload {
	return PushPayload{
		Title: "Result confirmed!",
		Body:  fmt.Sprintf("%s confirmed: %s", confirmer, resultText(result)),
		URL:   "/tournaments/" + tournamentID,
		Tag:   "confirmed-" + tournamentID,
		Data:  map[string]interface{}{"type": "confirm", "tournament_id": tournamentID},
	}
}

func disputedPush(disputer, tournamentID, pairingID string) PushPayload {
	return PushPayload{
		Title: "Result disputed!",
		Body:  fmt.Sprintf("%s disputes your claim. Arbiter will review.", disputer),
		URL:   "/tournaments/" + tournamentID,
		Tag:   "disputed-" + pairingID,
		Data:  map[string]interface{}{"type": "dispute", "tournament_id": tournamentID, "pairing_id": pairingID},
	}
}

func adminDisputePush(tournamentName, white, black, tournamentID, pairingID string) PushPayload {
	return PushPayload{
		Title: "Result dispute needs resolution",
		Body:  fmt.Sprintf("%s: %s vs %s", tournamentName, white, black),
		URL:   "/admin/tournaments/" + tournamentID,
		Tag:   "admin-dispute-" + pairingID,
		Data:  map[string]interface{}{"type": "admin_dispute", "tournament_id": tournamentID, "pairing_id": pairingID},
	}
}
