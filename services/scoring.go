package services

import (
	"context"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
)

var byeDelta = repositories.ScoreDelta{Score: 1, Wins: 1}

// resultDeltas returns the standings change a result causes for each side.
// Pending results and byes produce nothing; the bye point is credited when
// the bye pairing is created.
func resultDeltas(result models.GameResult) (white, black repositories.ScoreDelta, ok bool) {
	win := repositories.ScoreDelta{Score: 1, Wins: 1}
	loss := repositories.ScoreDelta{Losses: 1}
	draw := repositories.ScoreDelta{Score: 0.5, Draws: 1}

	switch result {
	case models.ResultWhiteWins:
		white, black = win, loss
	case models.ResultBlackWins:
		white, black = loss, win
	case models.ResultDraw:
		white, black = draw, draw
	case models.ResultWhiteForfeit:
		return loss, win, true
	case models.ResultBlackForfeit:
		return win, loss, true
	case models.ResultDoubleForfeit:
		return loss, loss, true
	default:
		return white, black, false
	}
	white.GamesAsWhite = 1
	black.GamesAsBlack = 1
	return white, black, true
}

// ApplyResult credits both players of p with its current result.
func ApplyResult(ctx context.Context, exec repositories.SQLExecutor, entries repositories.TournamentPlayerRepository, p *models.Pairing) error {
	return applyDeltas(ctx, exec, entries, p, p.Result, false)
}

// RevertResult undoes what ApplyResult credited for result on p.
func RevertResult(ctx context.Context, exec repositories.SQLExecutor, entries repositories.TournamentPlayerRepository, p *models.Pairing, result models.GameResult) error {
	return applyDeltas(ctx, exec, entries, p, result, true)
}

func applyDeltas(ctx context.Context, exec repositories.SQLExecutor, entries repositories.TournamentPlayerRepository, p *models.Pairing, result models.GameResult, negate bool) error {
	if p.IsBye() || p.WhitePlayerID == nil {
		return nil
	}
	white, black, ok := resultDeltas(result)
	if !ok {
		return nil
	}
	if negate {
		white, black = white.Negate(), black.Negate()
	}
	if err := entries.ApplyDelta(ctx, exec, p.TournamentID, *p.WhitePlayerID, white); err != nil {
		return err
	}
	return entries.ApplyDelta(ctx, exec, p.TournamentID, *p.BlackPlayerID, black)
}
