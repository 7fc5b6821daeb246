package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Dosada05/checked/chesscom"
	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

// AutomationReport summarises one pass over a single tournament.
type AutomationReport struct {
	TournamentID    string `json:"tournament_id"`
	ResultsDetected int    `json:"results_detected"`
	Forfeits        int    `json:"forfeits"`
	RoundGenerated  bool   `json:"round_generated"`
	Finalized       bool   `json:"finalized"`
}

// AutomationService advances active tournaments without an organiser.
type AutomationService interface {
	RunOnce(ctx context.Context) ([]AutomationReport, error)
	ProcessTournament(ctx context.Context, t *models.Tournament) (*AutomationReport, error)
	SyncRatings(ctx context.Context) (*RatingSyncReport, error)
	Run(ctx context.Context, interval, initialDelay time.Duration)
	RunRatingSync(ctx context.Context, interval time.Duration)
}

type automationService struct {
	tournaments repositories.TournamentRepository
	pairings    repositories.PairingRepository
	players     repositories.PlayerRepository
	rounds      PairingService
	playerSvc   PlayerService
	resets      PasswordResetService
	chess       ChessComClient
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewAutomationService(
	tournaments repositories.TournamentRepository,
	pairings repositories.PairingRepository,
	players repositories.PlayerRepository,
	rounds PairingService,
	playerSvc PlayerService,
	resets PasswordResetService,
	chess ChessComClient,
	m *metrics.Metrics,
	logger *slog.Logger,
) AutomationService {
	return &automationService{
		tournaments: tournaments,
		pairings:    pairings,
		players:     players,
		rounds:      rounds,
		playerSvc:   playerSvc,
		resets:      resets,
		chess:       chess,
		metrics:     m,
		logger:      orDefaultLogger(logger).With(slog.String("component", "automation")),
	}
}

// RunOnce processes every active tournament. A failing tournament is
// logged and does not stop the others.
func (s *automationService) RunOnce(ctx context.Context) ([]AutomationReport, error) {
	active, err := s.tournaments.ListByStatus(ctx, models.StatusActive)
	if err != nil {
		s.outcome(err)
		return nil, err
	}

	var (
		reports []AutomationReport
		result  *multierror.Error
	)
	for _, t := range active {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		report, err := s.ProcessTournament(ctx, t)
		if err != nil {
			s.logger.ErrorContext(ctx, "tournament automation failed",
				slog.String("tournament_id", t.ID), slog.Any("error", err))
			result = multierror.Append(result, fmt.Errorf("tournament %s: %w", t.ID, err))
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}

	err = result.ErrorOrNil()
	s.outcome(err)
	return reports, err
}

func (s *automationService) outcome(err error) {
	if s.metrics != nil {
		s.metrics.Outcome(s.metrics.AutomationRuns, err)
	}
}

func (s *automationService) ProcessTournament(ctx context.Context, t *models.Tournament) (*AutomationReport, error) {
	report := &AutomationReport{TournamentID: t.ID}
	log := s.logger.With(slog.String("tournament_id", t.ID))

	detected, err := s.detectResults(ctx, t)
	report.ResultsDetected = detected
	if err != nil {
		return report, err
	}

	deadlines, err := s.rounds.ProcessDeadlines(ctx, t.ID)
	if err != nil {
		return report, err
	}
	report.Forfeits = deadlines.ProcessedCount

	if t.CurrentRound <= 0 {
		return report, nil
	}
	pending, err := s.pairings.CountPending(ctx, nil, t.ID, t.CurrentRound)
	if err != nil {
		return report, err
	}
	if pending > 0 {
		return report, nil
	}

	if t.CurrentRound >= t.TotalRounds {
		if err := s.rounds.FinalizeTournament(ctx, t.ID); err != nil {
			return report, err
		}
		report.Finalized = true
		log.InfoContext(ctx, "tournament finalized", slog.Int("rounds", t.TotalRounds))
		return report, nil
	}

	if _, err := s.rounds.GenerateRound(ctx, t.ID); err != nil {
		return report, err
	}
	report.RoundGenerated = true
	log.InfoContext(ctx, "next round generated", slog.Int("round", t.CurrentRound+1))
	return report, nil
}

// detectResults looks up pending games of the current round in the
// players' chess.com archives.
func (s *automationService) detectResults(ctx context.Context, t *models.Tournament) (int, error) {
	if t.CurrentRound <= 0 || s.chess == nil {
		return 0, nil
	}
	round := t.CurrentRound
	list, err := s.pairings.ListByTournament(ctx, nil, t.ID, &round)
	if err != nil {
		return 0, err
	}
	pending := list[:0]
	for _, p := range list {
		if p.Result == models.ResultPending && !p.IsBye() && p.WhitePlayerID != nil {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if err := attachPlayers(ctx, s.players, pending); err != nil {
		return 0, err
	}

	timeClass := utils.TimeClass(t.TimeControl)
	detected := 0
	for _, p := range pending {
		if p.WhitePlayer == nil || p.BlackPlayer == nil {
			continue
		}
		white, black := p.WhitePlayer.ChessComUsername, p.BlackPlayer.ChessComUsername
		created := p.CreatedAt
		game, err := s.chess.FindGameBetween(ctx, white, black, timeClass, &created)
		if err != nil {
			if !errors.Is(err, chesscom.ErrNotFound) {
				s.logger.WarnContext(ctx, "game lookup failed",
					slog.String("pairing_id", p.ID), slog.Any("error", err))
			}
			continue
		}
		if game == nil {
			continue
		}

		var playedAt *time.Time
		if game.EndTime > 0 {
			playedAt = ptr(time.Unix(game.EndTime, 0).UTC())
		}
		ok, err := s.rounds.RecordDetectedResult(ctx, t.ID, p.ID, chesscom.PairingResult(game, white), game.URL, playedAt)
		if err != nil {
			return detected, err
		}
		if ok {
			detected++
			if s.metrics != nil {
				s.metrics.ResultsAutoDetected.Inc()
			}
		}
	}
	if detected > 0 {
		s.logger.InfoContext(ctx, "results detected", slog.String("tournament_id", t.ID), slog.Int("count", detected))
	}
	return detected, nil
}

// SyncRatings refreshes ratings and clears stale reset codes.
func (s *automationService) SyncRatings(ctx context.Context) (*RatingSyncReport, error) {
	if s.resets != nil {
		if n, err := s.resets.PurgeExpired(ctx); err != nil {
			s.logger.WarnContext(ctx, "purging reset codes failed", slog.Any("error", err))
		} else if n > 0 {
			s.logger.InfoContext(ctx, "expired reset codes purged", slog.Int64("count", n))
		}
	}
	if s.playerSvc == nil {
		return &RatingSyncReport{}, nil
	}
	report, err := s.playerSvc.RefreshAllRatings(ctx)
	if report != nil {
		s.logger.InfoContext(ctx, "ratings synced",
			slog.Int("updated", report.Updated), slog.Int("failed", report.Failed), slog.Int("total", report.Total))
	}
	return report, err
}

// Run blocks until ctx is done, processing tournaments every interval
// after the initial delay.
func (s *automationService) Run(ctx context.Context, interval, initialDelay time.Duration) {
	s.loop(ctx, interval, initialDelay, func(ctx context.Context) {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "automation pass finished with errors", slog.Any("error", err))
		}
	})
}

func (s *automationService) RunRatingSync(ctx context.Context, interval time.Duration) {
	s.loop(ctx, interval, interval, func(ctx context.Context) {
		if _, err := s.SyncRatings(ctx); err != nil {
			s.logger.ErrorContext(ctx, "rating sync finished with errors", slog.Any("error", err))
		}
	})
}

func (s *automationService) loop(ctx context.Context, interval, initialDelay time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	if initialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialDelay):
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
