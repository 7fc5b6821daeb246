package chesscom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/checked/models"
)

// Verification is the outcome of checking a submitted game URL against a pairing.
type Verification struct {
	Valid         bool              `json:"valid"`
	Error         string            `json:"error,omitempty"`
	Result        models.GameResult `json:"result,omitempty"`
	WhiteUsername string            `json:"white_username,omitempty"`
	BlackUsername string            `json:"black_username,omitempty"`
	ActualWhite   string            `json:"actual_white,omitempty"`
	ActualBlack   string            `json:"actual_black,omitempty"`
	GameID        string            `json:"game_id,omitempty"`
	TimeControl   string            `json:"time_control,omitempty"`
	PlayedAt      *time.Time        `json:"played_at,omitempty"`
}

func invalid(format string, args ...interface{}) *Verification {
	return &Verification{Error: fmt.Sprintf(format, args...)}
}

var decisiveLosses = map[string]bool{
	"checkmated": true,
	"timeout":    true,
	"resigned":   true,
	"abandoned":  true,
}

func isDraw(result string) bool {
	return result == "draw" || drawResults[result]
}

// VerifyGameResult checks that the game at gameURL was played between the two
// expected players after the pairing was created, and maps its result onto
// the pairing's colours. Colours in the actual game may be swapped.
func (c *Client) VerifyGameResult(ctx context.Context, gameURL, expectedWhite, expectedBlack string, pairingCreatedAt *time.Time) (*Verification, error) {
	game, err := c.GameByURL(ctx, gameURL)
	if errors.Is(err, ErrNotFound) {
		return invalid("Could not fetch game from Chess.com. Check the URL."), nil
	}
	if err != nil {
		return nil, err
	}

	white, black := game.Sides()
	actualWhite := strings.ToLower(white.Username)
	actualBlack := strings.ToLower(black.Username)
	wantWhite := strings.ToLower(expectedWhite)
	wantBlack := strings.ToLower(expectedBlack)

	straight := actualWhite == wantWhite && actualBlack == wantBlack
	swapped := actualWhite == wantBlack && actualBlack == wantWhite
	if !straight && !swapped {
		return invalid("Players don't match. Game has %s vs %s, expected %s vs %s",
			actualWhite, actualBlack, expectedWhite, expectedBlack), nil
	}

	if status := game.Game.Status; status != "finished" && status != "resolved" {
		return invalid("Game is not finished (status: %s)", status), nil
	}

	var result models.GameResult
	switch {
	case white.Result == "win" || decisiveLosses[black.Result]:
		result = models.ResultWhiteWins
	case black.Result == "win" || decisiveLosses[white.Result]:
		result = models.ResultBlackWins
	case isDraw(white.Result) || isDraw(black.Result):
		result = models.ResultDraw
	default:
		return invalid("Could not determine result. White: %s, Black: %s", white.Result, black.Result), nil
	}

	if swapped {
		switch result {
		case models.ResultWhiteWins:
			result = models.ResultBlackWins
		case models.ResultBlackWins:
			result = models.ResultWhiteWins
		}
	}

	var playedAt *time.Time
	if end := game.Game.EndTime; end > 0 {
		var t time.Time
		if end > 9999999999 {
			t = time.UnixMilli(end).UTC()
		} else {
			t = time.Unix(end, 0).UTC()
		}
		playedAt = &t
	}
	if pairingCreatedAt != nil && playedAt != nil && playedAt.Before(*pairingCreatedAt) {
		return invalid("Game was played before the pairing was created. Game: %s, Pairing: %s",
			playedAt.Format(time.RFC3339), pairingCreatedAt.UTC().Format(time.RFC3339)), nil
	}

	return &Verification{
		Valid:         true,
		Result:        result,
		WhiteUsername: expectedWhite,
		BlackUsername: expectedBlack,
		ActualWhite:   actualWhite,
		ActualBlack:   actualBlack,
		GameID:        game.ID(),
		TimeControl:   rawString(game.Game.TimeControl),
		PlayedAt:      playedAt,
	}, nil
}

// PairingResult maps an archive game onto the pairing's colours, where
// whiteUsername is the player the pairing put on white.
func PairingResult(g *Game, whiteUsername string) models.GameResult {
	switch g.Outcome(whiteUsername) {
	case "win":
		return models.ResultWhiteWins
	case "loss":
		return models.ResultBlackWins
	default:
		return models.ResultDraw
	}
}
