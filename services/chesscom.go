package services

import (
	"context"
	"time"

	"github.com/Dosada05/checked/chesscom"
)

// ChessComClient is the subset of the chess.com client the services use.
type ChessComClient interface {
	Profile(ctx context.Context, username string) (*chesscom.Profile, error)
	Stats(ctx context.Context, username string) (*chesscom.Stats, error)
	FindGameBetween(ctx context.Context, player1, player2, timeClass string, after *time.Time) (*chesscom.Game, error)
	VerifyGameResult(ctx context.Context, gameURL, expectedWhite, expectedBlack string, pairingCreatedAt *time.Time) (*chesscom.Verification, error)
}

var _ ChessComClient = (*chesscom.Client)(nil)
