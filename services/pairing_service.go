package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/checked/brackets"
	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

type ResultUpdate struct {
	Result          models.GameResult `json:"result"`
	ChessComGameURL *string           `json:"chess_com_game_url"`
}

type GameSubmission struct {
	Valid          bool              `json:"valid"`
	Error          string            `json:"error,omitempty"`
	Result         models.GameResult `json:"result,omitempty"`
	GameID         string            `json:"game_id,omitempty"`
	PlayedAt       *time.Time        `json:"played_at,omitempty"`
	PairingUpdated bool              `json:"pairing_updated"`
}

type NoShowClaim struct {
	Message   string     `json:"message"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at"`
}

type ForfeitDetail struct {
	PairingID string            `json:"pairing_id"`
	Round     int               `json:"round"`
	Board     int               `json:"board"`
	Action    string            `json:"action"`
	Reason    string            `json:"reason"`
	Result    models.GameResult `json:"result"`
}

type DeadlineReport struct {
	ProcessedCount int             `json:"processed_count"`
	Forfeits       int             `json:"forfeits"`
	DoubleForfeits int             `json:"double_forfeits"`
	Details        []ForfeitDetail `json:"details"`
}

type ExpiredPairing struct {
	PairingID       string              `json:"pairing_id"`
	Round           int                 `json:"round"`
	Board           int                 `json:"board"`
	White           *models.PlayerBrief `json:"white"`
	Black           *models.PlayerBrief `json:"black"`
	Deadline        *time.Time          `json:"deadline"`
	HoursOverdue    float64             `json:"hours_overdue"`
	NoShowClaimedBy *string             `json:"no_show_claimed_by"`
}

type ExpiredReport struct {
	Count    int              `json:"count"`
	Pairings []ExpiredPairing `json:"pairings"`
}

// PairingService runs rounds and records results for a tournament.
type PairingService interface {
	GenerateRound(ctx context.Context, tournamentID string) ([]models.PairingView, error)
	FinalizeTournament(ctx context.Context, tournamentID string) error
	List(ctx context.Context, tournamentID string, round *int) ([]models.PairingView, error)
	Get(ctx context.Context, tournamentID, pairingID string) (*models.PairingView, error)
	CurrentRound(ctx context.Context, tournamentID string) ([]models.PairingView, error)
	MyPairings(ctx context.Context, tournamentID, playerID string) ([]models.PairingView, error)

	UpdateResult(ctx context.Context, actor *models.Player, tournamentID, pairingID string, upd ResultUpdate) (*models.PairingView, error)
	SubmitGame(ctx context.Context, actor *models.Player, tournamentID, pairingID, gameURL string) (*GameSubmission, error)
	ClaimNoShow(ctx context.Context, actor *models.Player, tournamentID, pairingID string) (*NoShowClaim, error)
	ProcessDeadlines(ctx context.Context, tournamentID string) (*DeadlineReport, error)
	ExpiredPairings(ctx context.Context, tournamentID string) (*ExpiredReport, error)
	RecordDetectedResult(ctx context.Context, tournamentID, pairingID string, result models.GameResult, gameURL string, playedAt *time.Time) (bool, error)

	ClaimResult(ctx context.Context, actor *models.Player, tournamentID, pairingID string, result models.GameResult) (*models.PairingView, error)
	ConfirmResult(ctx context.Context, actor *models.Player, tournamentID, pairingID string) (*models.PairingView, error)
	DisputeResult(ctx context.Context, actor *models.Player, tournamentID, pairingID, reason string) (*models.PairingView, error)
	CancelClaim(ctx context.Context, actor *models.Player, tournamentID, pairingID string) (*models.PairingView, error)
	PendingConfirmations(ctx context.Context, tournamentID string) ([]ClaimSummary, error)
	DisputedResults(ctx context.Context, tournamentID string) ([]ClaimSummary, error)
	OverrideResult(ctx context.Context, admin *models.Player, tournamentID, pairingID string, result models.GameResult) (*models.PairingView, error)
}

type pairingService struct {
	db          *sql.DB
	tournaments repositories.TournamentRepository
	entries     repositories.TournamentPlayerRepository
	pairings    repositories.PairingRepository
	players     repositories.PlayerRepository
	chess       ChessComClient
	notifier    NotificationService
	events      RealtimeEvents
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewPairingService(
	db *sql.DB,
	tournaments repositories.TournamentRepository,
	entries repositories.TournamentPlayerRepository,
	pairings repositories.PairingRepository,
	players repositories.PlayerRepository,
	chess ChessComClient,
	notifier NotificationService,
	events RealtimeEvents,
	m *metrics.Metrics,
	logger *slog.Logger,
) PairingService {
	if events == nil {
		events = noopEvents{}
	}
	return &pairingService{
		db:          db,
		tournaments: tournaments,
		entries:     entries,
		pairings:    pairings,
		players:     players,
		chess:       chess,
		notifier:    notifier,
		events:      events,
		metrics:     m,
		logger:      orDefaultLogger(logger),
		now:         nowUTC,
	}
}

func (s *pairingService) getTournament(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	t, err := s.tournaments.GetByID(ctx, exec, id)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}
	return t, nil
}

func (s *pairingService) getPairing(ctx context.Context, exec repositories.SQLExecutor, tournamentID, pairingID string) (*models.Pairing, error) {
	p, err := s.pairings.GetByID(ctx, exec, tournamentID, pairingID)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrPairingNotFound, ErrPairingNotFound)
	}
	return p, nil
}

func (s *pairingService) view(ctx context.Context, p *models.Pairing) (*models.PairingView, error) {
	if err := attachPlayers(ctx, s.players, []*models.Pairing{p}); err != nil {
		return nil, err
	}
	v := p.View(s.now())
	return &v, nil
}

func (s *pairingService) views(ctx context.Context, pairings []*models.Pairing) ([]models.PairingView, error) {
	if err := attachPlayers(ctx, s.players, pairings); err != nil {
		return nil, err
	}
	return pairingViews(pairings, s.now()), nil
}

func (s *pairingService) deliver(ctx context.Context, deliveries ...Delivery) {
	if s.notifier != nil {
		s.notifier.Deliver(ctx, deliveries...)
	}
}

// GenerateRound pairs the next round. A tournament in registration is
// started; one whose rounds are exhausted is finalized instead.
func (s *pairingService) GenerateRound(ctx context.Context, tournamentID string) ([]models.PairingView, error) {
	var (
		t         *models.Tournament
		created   []*models.Pairing
		exhausted bool
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		t, err = s.getTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		switch t.Status {
		case models.StatusCompleted:
			return invalid("Tournament is already completed")
		case models.StatusCancelled:
			return invalid("Tournament is cancelled")
		}

		if t.CurrentRound > 0 {
			pending, err := s.pairings.CountPending(ctx, tx, tournamentID, t.CurrentRound)
			if err != nil {
				return err
			}
			if pending > 0 {
				return invalid("Round %d has unfinished games", t.CurrentRound)
			}
		}

		next := t.CurrentRound + 1
		if next > t.TotalRounds {
			exhausted = true
			return s.finalize(ctx, tx, t)
		}

		entries, err := s.entries.ListByTournament(ctx, tx, tournamentID, false)
		if err != nil {
			return err
		}
		if len(entries) < 2 {
			return invalid("Need at least 2 players")
		}
		if t.Format == models.FormatRoundRobin && next == 1 {
			if err := brackets.ValidateRoundRobinRounds(len(entries), t.TotalRounds); err != nil {
				return invalid("Round Robin with %d players requires %d rounds. Update tournament settings.",
					len(entries), utils.RoundRobinRounds(len(entries)))
			}
		}

		history, err := s.pairings.ListByTournament(ctx, tx, tournamentID, nil)
		if err != nil {
			return err
		}
		generated, err := brackets.ForFormat(t.Format).GenerateRound(ctx, brackets.GenerateRoundParams{
			Round:   next,
			Players: brackets.FromEntries(entries, history),
		})
		if err != nil {
			if errors.Is(err, brackets.ErrRoundOutOfRange) {
				return invalid("All rounds completed")
			}
			return fmt.Errorf("failed to generate round %d: %w", next, err)
		}

		now := s.now()
		for _, g := range generated {
			p := &models.Pairing{
				TournamentID:  tournamentID,
				RoundNumber:   next,
				WhitePlayerID: ptr(g.WhiteID),
				BoardNumber:   g.Board,
				Result:        models.ResultPending,
				CreatedAt:     now,
			}
			if g.IsBye {
				p.Result = models.ResultBye
				if err := s.entries.ApplyDelta(ctx, tx, tournamentID, g.WhiteID, byeDelta); err != nil {
					return err
				}
			} else {
				p.BlackPlayerID = ptr(g.BlackID)
				if t.IsOnline {
					p.Deadline = ptr(now.Add(models.OnlineGameDeadline))
				}
			}
			created = append(created, p)
		}
		if err := s.pairings.CreateBatch(ctx, tx, created); err != nil {
			return err
		}
		t.CurrentRound = next
		t.Status = models.StatusActive
		return s.tournaments.SetRound(ctx, tx, tournamentID, next, models.StatusActive)
	})
	if err != nil {
		return nil, err
	}
	if exhausted {
		s.events.StandingsUpdated(tournamentID)
		return nil, invalid("All rounds completed")
	}

	if s.metrics != nil {
		s.metrics.RoundsGenerated.Inc()
	}
	s.logger.InfoContext(ctx, "round generated",
		slog.String("tournament_id", tournamentID), slog.Int("round", t.CurrentRound), slog.Int("boards", len(created)))

	views, err := s.views(ctx, created)
	if err != nil {
		return nil, err
	}
	s.announcePairings(ctx, t, created)
	s.events.RoundStarted(tournamentID, t.CurrentRound)
	return views, nil
}

func (s *pairingService) announcePairings(ctx context.Context, t *models.Tournament, created []*models.Pairing) {
	var deliveries []Delivery
	for _, p := range created {
		if p.IsBye() {
			continue
		}
		s.events.PairingCreated(t.ID, *p.WhitePlayerID, *p.BlackPlayerID, map[string]interface{}{
			"pairing_id": p.ID,
			"round":      p.RoundNumber,
			"board":      p.BoardNumber,
			"deadline":   p.Deadline,
		})
		sides := []struct {
			me, opponent *models.Player
			colour       string
		}{
			{p.WhitePlayer, p.BlackPlayer, "white"},
			{p.BlackPlayer, p.WhitePlayer, "black"},
		}
		for _, side := range sides {
			if side.me == nil {
				continue
			}
			opponent := usernameOf(side.opponent)
			var phone *string
			if side.opponent != nil {
				phone = &side.opponent.Phone
			}
			push := pairingPush(opponent, t.Name, side.colour, p.RoundNumber, t.ID, p.ID)
			deliveries = append(deliveries, Delivery{
				Player: side.me,
				Type:   models.NotificationPairing,
				Title:  fmt.Sprintf("Round %d Pairing", p.RoundNumber),
				Body:   fmt.Sprintf("You play as %s vs %s in %s", capitalize(side.colour), opponent, t.Name),
				Data: map[string]interface{}{
					"tournament_id":  t.ID,
					"pairing_id":     p.ID,
					"round_number":   p.RoundNumber,
					"opponent_phone": phone,
				},
				Push: &push,
			})
		}
	}
	s.deliver(ctx, deliveries...)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// finalize stores tiebreaks and final ranks and marks the tournament completed.
func (s *pairingService) finalize(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	entries, err := s.entries.ListByTournament(ctx, exec, t.ID, false)
	if err != nil {
		return err
	}
	history, err := s.pairings.ListByTournament(ctx, exec, t.ID, nil)
	if err != nil {
		return err
	}
	tiebreaks := brackets.ComputeTiebreaks(entries, history)
	for _, e := range entries {
		tb := tiebreaks[e.PlayerID]
		e.Buchholz, e.SonnebornBerger = tb.Buchholz, tb.SonnebornBerger
		if err := s.entries.SetTiebreaks(ctx, exec, e.ID, tb.Buchholz, tb.SonnebornBerger); err != nil {
			return err
		}
	}
	for i, e := range brackets.Rank(entries, tiebreaks, brackets.BuildHeadToHead(history)) {
		if err := s.entries.SetFinalRank(ctx, exec, e.ID, i+1); err != nil {
			return err
		}
	}
	if err := s.tournaments.Complete(ctx, exec, t.ID, s.now()); err != nil {
		return err
	}
	t.Status = models.StatusCompleted
	if s.metrics != nil {
		s.metrics.TournamentsFinalized.Inc()
	}
	s.logger.InfoContext(ctx, "tournament finalized", slog.String("tournament_id", t.ID), slog.Int("players", len(entries)))
	return nil
}

func (s *pairingService) FinalizeTournament(ctx context.Context, tournamentID string) error {
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		t, err := s.getTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status == models.StatusCompleted {
			return invalid("Tournament is already completed")
		}
		return s.finalize(ctx, tx, t)
	})
	if err != nil {
		return err
	}
	s.events.StandingsUpdated(tournamentID)
	return nil
}

func (s *pairingService) List(ctx context.Context, tournamentID string, round *int) ([]models.PairingView, error) {
	pairings, err := s.pairings.ListByTournament(ctx, nil, tournamentID, round)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, pairings)
}

func (s *pairingService) Get(ctx context.Context, tournamentID, pairingID string) (*models.PairingView, error) {
	p, err := s.getPairing(ctx, nil, tournamentID, pairingID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *pairingService) CurrentRound(ctx context.Context, tournamentID string) ([]models.PairingView, error) {
	t, err := s.getTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.CurrentRound == 0 {
		return []models.PairingView{}, nil
	}
	round := t.CurrentRound
	return s.List(ctx, tournamentID, &round)
}

func (s *pairingService) MyPairings(ctx context.Context, tournamentID, playerID string) ([]models.PairingView, error) {
	pairings, err := s.pairings.ListForPlayer(ctx, tournamentID, playerID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, pairings)
}

func (s *pairingService) announceResult(p *models.Pairing) {
	var white, black string
	if p.WhitePlayerID != nil {
		white = *p.WhitePlayerID
	}
	if p.BlackPlayerID != nil {
		black = *p.BlackPlayerID
	}
	s.events.ResultSubmitted(p.TournamentID, p.ID, white, black, string(p.Result))
	s.events.StandingsUpdated(p.TournamentID)
}

func (s *pairingService) UpdateResult(ctx context.Context, actor *models.Player, tournamentID, pairingID string, upd ResultUpdate) (*models.PairingView, error) {
	if !upd.Result.Valid() || upd.Result == models.ResultPending {
		return nil, invalid("Invalid result: %s", upd.Result)
	}
	var p *models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin && !p.HasPlayer(actor.ID) {
			return forbidden("Not authorized to update this result")
		}
		if p.Result != models.ResultPending && p.Result != models.ResultBye {
			return detail(ErrResultAlreadyRecorded, "Result already recorded")
		}
		p.Result = upd.Result
		p.ChessComGameURL = upd.ChessComGameURL
		p.PlayedAt = ptr(s.now())
		if err := ApplyResult(ctx, tx, s.entries, p); err != nil {
			return err
		}
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	s.announceResult(p)
	return s.view(ctx, p)
}

// SubmitGame verifies a chess.com game and records its result. A game that
// fails verification is reported in the response, not as an error.
func (s *pairingService) SubmitGame(ctx context.Context, actor *models.Player, tournamentID, pairingID, gameURL string) (*GameSubmission, error) {
	p, err := s.getPairing(ctx, nil, tournamentID, pairingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !p.HasPlayer(actor.ID) {
		return nil, forbidden("Not authorized to submit result for this pairing")
	}
	if p.Result != models.ResultPending {
		return nil, detail(ErrResultAlreadyRecorded, "Result already recorded for this pairing")
	}
	if err := attachPlayers(ctx, s.players, []*models.Pairing{p}); err != nil {
		return nil, err
	}
	if p.WhitePlayer == nil || p.BlackPlayer == nil {
		return nil, invalid("Could not find players for this pairing")
	}

	createdAt := p.CreatedAt
	verification, err := s.chess.VerifyGameResult(ctx, gameURL, p.WhitePlayer.ChessComUsername, p.BlackPlayer.ChessComUsername, &createdAt)
	if err != nil {
		return nil, detail(ErrServiceUnavailable, "Could not reach Chess.com. Try again later.")
	}
	if !verification.Valid {
		return &GameSubmission{Valid: false, Error: verification.Error}, nil
	}

	playedAt := s.now()
	if verification.PlayedAt != nil {
		playedAt = *verification.PlayedAt
	}
	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		current, err := s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if current.Result != models.ResultPending {
			return detail(ErrResultAlreadyRecorded, "Result already recorded for this pairing")
		}
		current.Result = verification.Result
		current.ChessComGameURL = &gameURL
		if verification.GameID != "" {
			current.ChessComGameID = ptr(verification.GameID)
		}
		current.PlayedAt = &playedAt
		if err := ApplyResult(ctx, tx, s.entries, current); err != nil {
			return err
		}
		if err := s.pairings.Save(ctx, tx, current); err != nil {
			return err
		}
		p = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.announceResult(p)
	return &GameSubmission{
		Valid:          true,
		Result:         verification.Result,
		GameID:         verification.GameID,
		PlayedAt:       verification.PlayedAt,
		PairingUpdated: true,
	}, nil
}

// RecordDetectedResult stores a result found in chess.com archives. It
// reports false when the pairing was resolved in the meantime.
func (s *pairingService) RecordDetectedResult(ctx context.Context, tournamentID, pairingID string, result models.GameResult, gameURL string, playedAt *time.Time) (bool, error) {
	var p *models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if p.Result != models.ResultPending {
			p = nil
			return nil
		}
		p.Result = result
		if gameURL != "" {
			p.ChessComGameURL = &gameURL
		}
		if playedAt == nil {
			playedAt = ptr(s.now())
		}
		p.PlayedAt = playedAt
		if err := ApplyResult(ctx, tx, s.entries, p); err != nil {
			return err
		}
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil || p == nil {
		return false, err
	}
	s.announceResult(p)
	return true, nil
}

func (s *pairingService) ClaimNoShow(ctx context.Context, actor *models.Player, tournamentID, pairingID string) (*NoShowClaim, error) {
	var (
		p       *models.Pairing
		already bool
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if !p.HasPlayer(actor.ID) || p.IsBye() {
			return forbidden("You are not a participant in this pairing")
		}
		if p.Result != models.ResultPending {
			return detail(ErrResultAlreadyRecorded, "Result already recorded")
		}
		if p.NoShowClaimedBy != nil {
			if *p.NoShowClaimedBy == actor.ID {
				already = true
				return nil
			}
			return invalid("Your opponent has claimed you didn't show up. Submit the game URL to dispute.")
		}
		p.NoShowClaimedBy = &actor.ID
		p.NoShowClaimedAt = ptr(s.now())
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	if already {
		return &NoShowClaim{Message: "You have already claimed no-show", ClaimedAt: p.NoShowClaimedAt}, nil
	}

	accusedID := derefString(p.OpponentOf(actor.ID))
	s.events.NoShowClaimed(tournamentID, p.ID, accusedID)
	if t, err := s.getTournament(ctx, nil, tournamentID); err == nil {
		if accused, err := s.players.GetByID(ctx, accusedID); err == nil {
			push := noShowPush(t.Name, t.ID, p.ID)
			s.deliver(ctx, Delivery{
				Player: accused,
				Type:   models.NotificationNoShow,
				Title:  "No-Show Claimed",
				Body:   fmt.Sprintf("%s claims you didn't show up in %s. Submit game URL to dispute.", actor.ChessComUsername, t.Name),
				Data:   map[string]interface{}{"tournament_id": t.ID, "pairing_id": p.ID},
				Push:   &push,
			})
		}
	}
	return &NoShowClaim{
		Message:   "No-show claim recorded. If opponent doesn't submit game URL by deadline, they will be forfeited.",
		Deadline:  p.Deadline,
		ClaimedAt: p.NoShowClaimedAt,
	}, nil
}

// forfeitFor decides the result of a pairing whose deadline passed.
func forfeitFor(p *models.Pairing) (models.GameResult, ForfeitDetail) {
	d := ForfeitDetail{PairingID: p.ID, Round: p.RoundNumber, Board: p.BoardNumber}
	switch {
	case p.NoShowClaimedBy != nil && p.WhitePlayerID != nil && *p.NoShowClaimedBy == *p.WhitePlayerID:
		d.Result, d.Action, d.Reason = models.ResultBlackForfeit, "black_forfeited", "No-show claimed by white, no game submitted"
	case p.NoShowClaimedBy != nil && p.BlackPlayerID != nil && *p.NoShowClaimedBy == *p.BlackPlayerID:
		d.Result, d.Action, d.Reason = models.ResultWhiteForfeit, "white_forfeited", "No-show claimed by black, no game submitted"
	default:
		d.Result, d.Action, d.Reason = models.ResultDoubleForfeit, "double_forfeit", "Neither player submitted result by deadline"
	}
	return d.Result, d
}

func (s *pairingService) ProcessDeadlines(ctx context.Context, tournamentID string) (*DeadlineReport, error) {
	report := &DeadlineReport{Details: []ForfeitDetail{}}
	var processed []*models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.getTournament(ctx, tx, tournamentID); err != nil {
			return err
		}
		now := s.now()
		expired, err := s.pairings.ListExpired(ctx, tx, tournamentID, now)
		if err != nil {
			return err
		}
		for _, p := range expired {
			result, d := forfeitFor(p)
			p.Result = result
			p.PlayedAt = ptr(now)
			if err := ApplyResult(ctx, tx, s.entries, p); err != nil {
				return err
			}
			if err := s.pairings.Save(ctx, tx, p); err != nil {
				return err
			}
			if result == models.ResultDoubleForfeit {
				report.DoubleForfeits++
			} else {
				report.Forfeits++
			}
			report.Details = append(report.Details, d)
			processed = append(processed, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.ProcessedCount = len(processed)
	if len(processed) == 0 {
		return report, nil
	}

	if s.metrics != nil {
		s.metrics.ForfeitsProcessed.Add(float64(len(processed)))
	}
	for _, p := range processed {
		s.events.ResultSubmitted(tournamentID, p.ID, derefString(p.WhitePlayerID), derefString(p.BlackPlayerID), string(p.Result))
	}
	s.events.StandingsUpdated(tournamentID)
	s.logger.InfoContext(ctx, "expired pairings forfeited",
		slog.String("tournament_id", tournamentID), slog.Int("forfeits", report.Forfeits), slog.Int("double_forfeits", report.DoubleForfeits))
	return report, nil
}

func (s *pairingService) ExpiredPairings(ctx context.Context, tournamentID string) (*ExpiredReport, error) {
	if _, err := s.getTournament(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	now := s.now()
	expired, err := s.pairings.ListExpired(ctx, nil, tournamentID, now)
	if err != nil {
		return nil, err
	}
	if err := attachPlayers(ctx, s.players, expired); err != nil {
		return nil, err
	}
	out := &ExpiredReport{Count: len(expired), Pairings: make([]ExpiredPairing, 0, len(expired))}
	for _, p := range expired {
		item := ExpiredPairing{
			PairingID: p.ID,
			Round:     p.RoundNumber,
			Board:     p.BoardNumber,
			White:     p.WhitePlayer.Brief(),
			Black:     p.BlackPlayer.Brief(),
			Deadline:  p.Deadline,
		}
		if p.Deadline != nil {
			item.HoursOverdue = roundTo(now.Sub(*p.Deadline).Hours(), 1)
		}
		if p.NoShowClaimedBy != nil {
			side := "black"
			if p.WhitePlayerID != nil && *p.NoShowClaimedBy == *p.WhitePlayerID {
				side = "white"
			}
			item.NoShowClaimedBy = &side
		}
		out.Pairings = append(out.Pairings, item)
	}
	return out, nil
}
