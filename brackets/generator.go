package brackets

import (
	"context"
	"errors"
	"sort"

	"github.com/Dosada05/checked/models"
)

var (
	ErrNotEnoughPlayers = errors.New("at least 2 active players are required to pair a round")
	ErrRoundOutOfRange  = errors.New("round number is outside the schedule")
)

// Player is the pairing view of a tournament entry.
type Player struct {
	ID           string
	Score        float64
	Rating       int
	Wins         int
	GamesAsWhite int
	GamesAsBlack int
	Opponents    map[string]bool
	Withdrawn    bool
}

// ColorBalance is positive when the player has had white more often.
func (p *Player) ColorBalance() int {
	return p.GamesAsWhite - p.GamesAsBlack
}

func (p *Player) hasMet(id string) bool {
	return p.Opponents[id]
}

// Pairing is one board of a generated round. A bye has no BlackID and sits on board 0.
type Pairing struct {
	WhiteID string
	BlackID string
	Board   int
	IsBye   bool
}

type GenerateRoundParams struct {
	Round   int
	Players []*Player
}

type PairingGenerator interface {
	GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error)

	GetName() string
}

// ForFormat picks the engine for a tournament format. Elimination formats are
// paired with the Swiss engine.
func ForFormat(format models.TournamentFormat) PairingGenerator {
	if format == models.FormatRoundRobin {
		return NewRoundRobinGenerator()
	}
	return NewSwissGenerator()
}

func activePlayers(players []*Player) []*Player {
	out := make([]*Player, 0, len(players))
	for _, p := range players {
		if p != nil && !p.Withdrawn {
			out = append(out, p)
		}
	}
	return out
}

func sortByRating(players []*Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Rating > players[j].Rating
	})
}

// BuildOpponents derives each player's opponent set from earlier pairings. Byes
// do not count as having met anyone.
func BuildOpponents(pairings []*models.Pairing) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	add := func(a, b string) {
		if out[a] == nil {
			out[a] = make(map[string]bool)
		}
		out[a][b] = true
	}
	for _, p := range pairings {
		if p.WhitePlayerID == nil || p.BlackPlayerID == nil {
			continue
		}
		add(*p.WhitePlayerID, *p.BlackPlayerID)
		add(*p.BlackPlayerID, *p.WhitePlayerID)
	}
	return out
}

// FromEntries builds pairing players from registrations and pairing history.
func FromEntries(entries []*models.TournamentPlayer, history []*models.Pairing) []*Player {
	opponents := BuildOpponents(history)
	out := make([]*Player, 0, len(entries))
	for _, e := range entries {
		met := opponents[e.PlayerID]
		if met == nil {
			met = make(map[string]bool)
		}
		out = append(out, &Player{
			ID:           e.PlayerID,
			Score:        e.Score,
			Rating:       e.SeedRating,
			Wins:         e.Wins,
			GamesAsWhite: e.GamesAsWhite,
			GamesAsBlack: e.GamesAsBlack,
			Opponents:    met,
			Withdrawn:    e.IsWithdrawn,
		})
	}
	return out
}
