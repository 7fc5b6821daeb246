package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/checked/models"
)

// ClaimSummary is a claimed in-person result as the arbiter sees it.
type ClaimSummary struct {
	PairingID            string              `json:"pairing_id"`
	TournamentID         string              `json:"tournament_id"`
	TournamentName       string              `json:"tournament_name"`
	RoundNumber          int                 `json:"round_number"`
	BoardNumber          int                 `json:"board_number"`
	WhitePlayer          *models.PlayerBrief `json:"white_player"`
	BlackPlayer          *models.PlayerBrief `json:"black_player"`
	ClaimedResult        *models.GameResult  `json:"claimed_result"`
	ClaimedBy            *string             `json:"claimed_by"`
	ClaimedByUsername    string              `json:"claimed_by_username"`
	ClaimedAt            *time.Time          `json:"claimed_at"`
	ConfirmationDeadline *time.Time          `json:"confirmation_deadline"`
	IsDisputed           bool                `json:"is_disputed"`
	DisputeReason        *string             `json:"dispute_reason"`
}

func claimableResult(r models.GameResult) bool {
	return r == models.ResultWhiteWins || r == models.ResultBlackWins || r == models.ResultDraw
}

// ClaimResult records one player's account of an over-the-board game. The
// opponent then confirms or disputes it.
func (s *pairingService) ClaimResult(ctx context.Context, actor *models.Player, tournamentID, pairingID string, result models.GameResult) (*models.PairingView, error) {
	var (
		t *models.Tournament
		p *models.Pairing
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		t, err = s.getTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.IsOnline {
			return invalid("This is an online tournament. Please submit the Chess.com game URL instead.")
		}
		if t.Status != models.StatusActive {
			return invalid("Tournament is not active")
		}
		p, err = s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if !p.HasPlayer(actor.ID) || p.IsBye() {
			return ErrNotPairingParticipant
		}
		if p.Result != models.ResultPending {
			return detail(ErrResultAlreadyRecorded, "Result already recorded for this game")
		}
		if p.HasPendingClaim() {
			return invalid("A result claim is already pending. Wait for opponent to confirm or dispute.")
		}
		if !claimableResult(result) {
			return invalid("Invalid result. Use white_wins, black_wins, or draw.")
		}

		now := s.now()
		p.ClaimedResult = &result
		p.ClaimedBy = &actor.ID
		p.ClaimedAt = &now
		p.ConfirmationDeadline = ptr(now.Add(time.Duration(t.ResultConfirmationMinutes) * time.Minute))
		p.ConfirmedBy, p.ConfirmedAt = nil, nil
		p.IsDisputed, p.DisputeReason = false, nil
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	opponentID := derefString(p.OpponentOf(actor.ID))
	s.events.ResultClaimed(tournamentID, p.ID, opponentID, string(result), *p.ConfirmationDeadline)
	if opponent, err := s.players.GetByID(ctx, opponentID); err == nil {
		push := claimPush(actor.ChessComUsername, result, t.ID, p.ID, t.ResultConfirmationMinutes)
		s.deliver(ctx, Delivery{
			Player: opponent,
			Type:   models.NotificationClaim,
			Title:  "Result Claimed",
			Body:   fmt.Sprintf("%s claims %s in %s. Please confirm or dispute.", actor.ChessComUsername, resultText(result), t.Name),
			Data: map[string]interface{}{
				"tournament_id":         t.ID,
				"pairing_id":            p.ID,
				"claimed_result":        result,
				"confirmation_deadline": p.ConfirmationDeadline,
			},
			Push: &push,
		})
	}
	return s.view(ctx, p)
}

// loadClaim fetches a pairing with a pending claim that actor may answer.
func (s *pairingService) loadClaim(ctx context.Context, tx *sql.Tx, actor *models.Player, tournamentID, pairingID, verb string) (*models.Pairing, error) {
	p, err := s.getPairing(ctx, tx, tournamentID, pairingID)
	if err != nil {
		return nil, err
	}
	if !p.HasPlayer(actor.ID) {
		return nil, ErrNotPairingParticipant
	}
	if !p.HasPendingClaim() {
		return nil, invalid("No pending result claim to %s", verb)
	}
	if p.ClaimedBy != nil && *p.ClaimedBy == actor.ID {
		return nil, invalid("You cannot %s your own claim", verb)
	}
	return p, nil
}

func (s *pairingService) ConfirmResult(ctx context.Context, actor *models.Player, tournamentID, pairingID string) (*models.PairingView, error) {
	var p *models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.loadClaim(ctx, tx, actor, tournamentID, pairingID, "confirm")
		if err != nil {
			return err
		}
		now := s.now()
		p.Result = *p.ClaimedResult
		p.ConfirmedBy = &actor.ID
		p.ConfirmedAt = &now
		p.PlayedAt = &now
		if err := ApplyResult(ctx, tx, s.entries, p); err != nil {
			return err
		}
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	claimerID := derefString(p.ClaimedBy)
	s.events.ResultConfirmed(tournamentID, p.ID, claimerID, string(p.Result))
	s.events.StandingsUpdated(tournamentID)
	s.notifyClaimer(ctx, tournamentID, claimerID, func(t *models.Tournament) Delivery {
		push := confirmedPush(actor.ChessComUsername, p.Result, t.ID)
		return Delivery{
			Type:  models.NotificationConfirm,
			Title: "Result Confirmed",
			Body:  fmt.Sprintf("%s confirmed %s in %s.", actor.ChessComUsername, resultText(p.Result), t.Name),
			Data:  map[string]interface{}{"tournament_id": t.ID, "pairing_id": p.ID, "result": p.Result},
			Push:  &push,
		}
	})
	return s.view(ctx, p)
}

func (s *pairingService) DisputeResult(ctx context.Context, actor *models.Player, tournamentID, pairingID, reason string) (*models.PairingView, error) {
	var p *models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.loadClaim(ctx, tx, actor, tournamentID, pairingID, "dispute")
		if err != nil {
			return err
		}
		p.IsDisputed = true
		if reason != "" {
			p.DisputeReason = &reason
		}
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	claimerID := derefString(p.ClaimedBy)
	s.events.ResultDisputed(tournamentID, p.ID, claimerID, reason)
	s.notifyClaimer(ctx, tournamentID, claimerID, func(t *models.Tournament) Delivery {
		push := disputedPush(actor.ChessComUsername, t.ID, p.ID)
		return Delivery{
			Type:  models.NotificationDispute,
			Title: "Result Disputed",
			Body:  fmt.Sprintf("%s disputed your result claim in %s.", actor.ChessComUsername, t.Name),
			Data:  map[string]interface{}{"tournament_id": t.ID, "pairing_id": p.ID, "reason": reason},
			Push:  &push,
		}
	})

	view, err := s.view(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if t, err := s.getTournament(ctx, nil, tournamentID); err == nil {
			s.notifier.PushToAdmins(ctx, adminDisputePush(t.Name, usernameOf(p.WhitePlayer), usernameOf(p.BlackPlayer), t.ID, p.ID))
		}
	}
	s.logger.InfoContext(ctx, "result disputed", slog.String("tournament_id", tournamentID), slog.String("pairing_id", p.ID))
	return view, nil
}

func (s *pairingService) notifyClaimer(ctx context.Context, tournamentID, claimerID string, build func(t *models.Tournament) Delivery) {
	t, err := s.getTournament(ctx, nil, tournamentID)
	if err != nil {
		return
	}
	claimer, err := s.players.GetByID(ctx, claimerID)
	if err != nil {
		return
	}
	d := build(t)
	d.Player = claimer
	s.deliver(ctx, d)
}

func (s *pairingService) CancelClaim(ctx context.Context, actor *models.Player, tournamentID, pairingID string) (*models.PairingView, error) {
	var p *models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if !p.HasPendingClaim() {
			return invalid("No pending claim to cancel")
		}
		if p.ClaimedBy == nil || *p.ClaimedBy != actor.ID {
			return forbidden("Only the claimer can cancel the claim")
		}
		if !p.CanCancelClaim(s.now()) {
			return invalid("Cancellation window expired. Claims can only be cancelled within 2 minutes.")
		}
		p.ClaimedResult, p.ClaimedBy, p.ClaimedAt, p.ConfirmationDeadline = nil, nil, nil, nil
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	s.events.ClaimCancelled(tournamentID, p.ID, derefString(p.OpponentOf(actor.ID)))
	return s.view(ctx, p)
}

func (s *pairingService) claimSummaries(ctx context.Context, tournamentID string, disputedOnly bool) ([]ClaimSummary, error) {
	t, err := s.getTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	pairings, err := s.pairings.ListClaimed(ctx, tournamentID, disputedOnly)
	if err != nil {
		return nil, err
	}
	if err := attachPlayers(ctx, s.players, pairings); err != nil {
		return nil, err
	}
	out := make([]ClaimSummary, 0, len(pairings))
	for _, p := range pairings {
		claimer := "Unknown"
		if p.ClaimedBy != nil {
			switch {
			case p.WhitePlayerID != nil && *p.ClaimedBy == *p.WhitePlayerID:
				claimer = usernameOf(p.WhitePlayer)
			case p.BlackPlayerID != nil && *p.ClaimedBy == *p.BlackPlayerID:
				claimer = usernameOf(p.BlackPlayer)
			}
		}
		out = append(out, ClaimSummary{
			PairingID:            p.ID,
			TournamentID:         t.ID,
			TournamentName:       t.Name,
			RoundNumber:          p.RoundNumber,
			BoardNumber:          p.BoardNumber,
			WhitePlayer:          p.WhitePlayer.Brief(),
			BlackPlayer:          p.BlackPlayer.Brief(),
			ClaimedResult:        p.ClaimedResult,
			ClaimedBy:            p.ClaimedBy,
			ClaimedByUsername:    claimer,
			ClaimedAt:            p.ClaimedAt,
			ConfirmationDeadline: p.ConfirmationDeadline,
			IsDisputed:           p.IsDisputed,
			DisputeReason:        p.DisputeReason,
		})
	}
	return out, nil
}

func (s *pairingService) PendingConfirmations(ctx context.Context, tournamentID string) ([]ClaimSummary, error) {
	return s.claimSummaries(ctx, tournamentID, false)
}

func (s *pairingService) DisputedResults(ctx context.Context, tournamentID string) ([]ClaimSummary, error) {
	return s.claimSummaries(ctx, tournamentID, true)
}

// OverrideResult lets an arbiter set or correct a result. A previously
// recorded result is reverted from the standings before the new one counts.
func (s *pairingService) OverrideResult(ctx context.Context, admin *models.Player, tournamentID, pairingID string, result models.GameResult) (*models.PairingView, error) {
	if !result.Valid() || result == models.ResultPending || result == models.ResultBye {
		return nil, invalid("Invalid result: %s", result)
	}
	var p *models.Pairing
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var err error
		p, err = s.getPairing(ctx, tx, tournamentID, pairingID)
		if err != nil {
			return err
		}
		if p.IsBye() {
			return invalid("Cannot override a bye")
		}
		if old := p.Result; old != models.ResultPending {
			if err := RevertResult(ctx, tx, s.entries, p, old); err != nil {
				return err
			}
		}
		now := s.now()
		p.Result = result
		p.PlayedAt = &now
		p.ConfirmedBy = &admin.ID
		p.ConfirmedAt = &now
		p.IsDisputed = false
		p.ClaimedResult, p.ClaimedBy, p.ClaimedAt, p.ConfirmationDeadline = nil, nil, nil, nil
		if err := ApplyResult(ctx, tx, s.entries, p); err != nil {
			return err
		}
		return s.pairings.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "result overridden",
		slog.String("pairing_id", p.ID), slog.String("result", string(result)), slog.String("admin_id", admin.ID))
	s.announceResult(p)
	return s.view(ctx, p)
}
