package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
)

// withTx runs fn inside a transaction, rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T {
	return &v
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func orDefaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// notFoundAs swaps a repository not-found sentinel for the service one.
func notFoundAs(err error, repoErr, svcErr error) error {
	if errors.Is(err, repoErr) {
		return svcErr
	}
	return err
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func pairingPlayerIDs(pairings []*models.Pairing) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(pairings)*2)
	for _, p := range pairings {
		for _, id := range []*string{p.WhitePlayerID, p.BlackPlayerID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	return ids
}

// attachPlayers loads both sides of every pairing in one query.
func attachPlayers(ctx context.Context, players repositories.PlayerRepository, pairings []*models.Pairing) error {
	if len(pairings) == 0 {
		return nil
	}
	byID, err := players.GetMany(ctx, pairingPlayerIDs(pairings))
	if err != nil {
		return fmt.Errorf("failed to load pairing players: %w", err)
	}
	for _, p := range pairings {
		if p.WhitePlayerID != nil {
			p.WhitePlayer = byID[*p.WhitePlayerID]
		}
		if p.BlackPlayerID != nil {
			p.BlackPlayer = byID[*p.BlackPlayerID]
		}
	}
	return nil
}

func pairingViews(pairings []*models.Pairing, now time.Time) []models.PairingView {
	out := make([]models.PairingView, 0, len(pairings))
	for _, p := range pairings {
		out = append(out, p.View(now))
	}
	return out
}

func usernameOf(p *models.Player) string {
	if p == nil {
		return "Unknown"
	}
	return p.ChessComUsername
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
