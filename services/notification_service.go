package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
)

// RealtimeEvents is the part of the websocket hub the services publish to.
type RealtimeEvents interface {
	PairingCreated(tournamentID, whiteID, blackID string, pairing map[string]interface{})
	ResultSubmitted(tournamentID, pairingID, whiteID, blackID, result string)
	NoShowClaimed(tournamentID, pairingID, accusedID string)
	StandingsUpdated(tournamentID string)
	RoundStarted(tournamentID string, round int)
	ResultClaimed(tournamentID, pairingID, opponentID, claimedResult string, deadline time.Time)
	ResultConfirmed(tournamentID, pairingID, claimerID, result string)
	ResultDisputed(tournamentID, pairingID, claimerID, reason string)
	ClaimCancelled(tournamentID, pairingID, opponentID string)
}

type noopEvents struct{}

func (noopEvents) PairingCreated(string, string, string, map[string]interface{}) {}
func (noopEvents) ResultSubmitted(string, string, string, string, string) {}
func (noopEvents) NoShowClaimed(string, string, string) {}
func (noopEvents) StandingsUpdated(string) {}
func (noopEvents) RoundStarted(string, int) {}
func (noopEvents) ResultClaimed(string, string, string, string, time.Time) {}
func (noopEvents) ResultConfirmed(string, string, string, string) {}
func (noopEvents) ResultDisputed(string, string, string, string) {}
func (noopEvents) ClaimCancelled(string, string, string) {}

// Delivery is one message for one player over in-app and push channels.
// An empty Title skips the in-app record; a nil Push skips web push.
type Delivery struct {
	Player *models.Player
	Type   models.NotificationType
	Title  string
	Body   string
	Data   map[string]interface{}
	Push   *PushPayload
}

type PushStatus struct {
	Subscribed bool   `json:"subscribed"`
	Enabled    bool   `json:"enabled"`
	Message    string `json:"message,omitempty"`
}

type NotificationService interface {
	List(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, playerID string) (int, error)
	MarkRead(ctx context.Context, playerID, notificationID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, playerID string) error

	Deliver(ctx context.Context, deliveries ...Delivery)
	PushToAdmins(ctx context.Context, payload PushPayload)

	VAPIDPublicKey() (string, error)
	Subscribe(ctx context.Context, playerID string, sub models.PushSubscription) error
	Unsubscribe(ctx context.Context, playerID string) error
	TogglePush(ctx context.Context, playerID string, enabled bool) (*PushStatus, error)
	PushStatus(ctx context.Context, playerID string) (*PushStatus, error)
}

const (
	notificationFanout    = 8
	notificationTimeout   = 20 * time.Second
	defaultNotificationLn = 50
)

type notificationService struct {
	notifications repositories.NotificationRepository
	players       repositories.PlayerRepository
	push          PushSender
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	players repositories.PlayerRepository,
	push PushSender,
	m *metrics.Metrics,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		players:       players,
		push:          push,
		metrics:       m,
		logger:        orDefaultLogger(logger),
	}
}

func (s *notificationService) List(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.notifications.List(ctx, playerID, unreadOnly, clampLimit(limit, defaultNotificationLn, 100))
}

func (s *notificationService) UnreadCount(ctx context.Context, playerID string) (int, error) {
	return s.notifications.CountUnread(ctx, playerID)
}

func (s *notificationService) MarkRead(ctx context.Context, playerID, notificationID string) (*models.Notification, error) {
	n, err := s.notifications.MarkRead(ctx, playerID, notificationID)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrNotificationNotFound, ErrNotificationNotFound)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, playerID string) error {
	_, err := s.notifications.MarkAllRead(ctx, playerID)
	return err
}

func (s *notificationService) record(channel string, err error) {
	if s.metrics != nil {
		s.metrics.Outcome(s.metrics.NotificationsSent, err, channel)
	}
}

// Deliver fans the messages out concurrently. Failures are logged and never
// reach the caller; the request that triggered them has already succeeded.
func (s *notificationService) Deliver(ctx context.Context, deliveries ...Delivery) {
	if len(deliveries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notificationFanout)
	for _, d := range deliveries {
		d := d
		if d.Player == nil {
			continue
		}
		g.Go(func() error {
			s.deliverOne(gctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *notificationService) deliverOne(ctx context.Context, d Delivery) {
	if d.Title != "" {
		err := s.createInApp(ctx, d)
		s.record("in_app", err)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to store notification",
				slog.String("player_id", d.Player.ID), slog.String("type", string(d.Type)), slog.Any("error", err))
		}
	}
	if d.Push != nil {
		s.sendPush(ctx, d.Player, *d.Push)
	}
}

func (s *notificationService) createInApp(ctx context.Context, d Delivery) error {
	data := d.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}
	return s.notifications.Create(ctx, &models.Notification{
		PlayerID: d.Player.ID,
		Type:     d.Type,
		Title:    d.Title,
		Body:     d.Body,
		Data:     raw,
	})
}

func (s *notificationService) sendPush(ctx context.Context, player *models.Player, payload PushPayload) {
	if s.push == nil || !s.push.Configured() || !player.PushEnabled || player.PushSubscription == nil {
		return
	}
	var sub models.PushSubscription
	if err := json.Unmarshal([]byte(*player.PushSubscription), &sub); err != nil || sub.Endpoint == "" {
		s.logger.WarnContext(ctx, "stored push subscription is unreadable", slog.String("player_id", player.ID))
		return
	}

	err := s.push.Send(ctx, &sub, payload)
	s.record("push", err)
	switch {
	case errors.Is(err, ErrSubscriptionGone):
		s.logger.InfoContext(ctx, "push subscription expired, clearing", slog.String("player_id", player.ID))
		if clearErr := s.players.ClearPushSubscription(ctx, player.ID); clearErr != nil {
			s.logger.WarnContext(ctx, "failed to clear push subscription", slog.String("player_id", player.ID), slog.Any("error", clearErr))
		}
	case err != nil:
		s.logger.WarnContext(ctx, "push delivery failed", slog.String("player_id", player.ID), slog.Any("error", err))
	}
}

func (s *notificationService) PushToAdmins(ctx context.Context, payload PushPayload) {
	admins, err := s.players.List(ctx, repositories.ListPlayersFilter{AdminsOnly: true, ActiveOnly: true})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load admins for push", slog.Any("error", err))
		return
	}
	deliveries := make([]Delivery, 0, len(admins))
	for _, admin := range admins {
		if admin.PushEnabled {
			p := payload
			deliveries = append(deliveries, Delivery{Player: admin, Push: &p})
		}
	}
	s.Deliver(ctx, deliveries...)
}

func (s *notificationService) VAPIDPublicKey() (string, error) {
	if s.push == nil || !s.push.Configured() {
		return "", detail(ErrServiceUnavailable, "Push notifications not configured")
	}
	return s.push.PublicKey(), nil
}

func (s *notificationService) Subscribe(ctx context.Context, playerID string, sub models.PushSubscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return invalid("Invalid subscription: endpoint and keys are required")
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode push subscription: %w", err)
	}
	encoded := string(raw)
	if err := s.players.UpdatePush(ctx, playerID, &encoded, true); err != nil {
		return notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	s.logger.InfoContext(ctx, "push subscription saved", slog.String("player_id", playerID))
	return nil
}

func (s *notificationService) Unsubscribe(ctx context.Context, playerID string) error {
	if err := s.players.UpdatePush(ctx, playerID, nil, false); err != nil {
		return notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	return nil
}

func (s *notificationService) TogglePush(ctx context.Context, playerID string, enabled bool) (*PushStatus, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	if enabled && player.PushSubscription == nil {
		return nil, invalid("No push subscription found. Please subscribe first.")
	}
	if err := s.players.UpdatePush(ctx, playerID, player.PushSubscription, enabled); err != nil {
		return nil, err
	}
	msg := "Push notifications disabled"
	if enabled {
		msg = "Push notifications enabled"
	}
	return &PushStatus{Subscribed: player.PushSubscription != nil, Enabled: enabled, Message: msg}, nil
}

func (s *notificationService) PushStatus(ctx context.Context, playerID string) (*PushStatus, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	return &PushStatus{Subscribed: player.PushSubscription != nil, Enabled: player.PushEnabled}, nil
}
