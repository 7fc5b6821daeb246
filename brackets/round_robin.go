package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/checked/utils"
)

const byePlaceholder = "BYE"

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() PairingGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateRound returns one round of the circle-method schedule. Players are
// seeded by rating; an odd field is padded with a bye slot.
func (g *RoundRobinGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	schedule, err := g.Schedule(params.Players)
	if err != nil {
		return nil, err
	}
	if params.Round < 1 || params.Round > len(schedule) {
		return nil, fmt.Errorf("RoundRobinGenerator: %w: %d of %d", ErrRoundOutOfRange, params.Round, len(schedule))
	}
	return schedule[params.Round-1], nil
}

// Schedule generates every round at once; index 0 is round 1.
func (g *RoundRobinGenerator) Schedule(players []*Player) ([][]Pairing, error) {
	seeded := activePlayers(players)
	if len(seeded) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: %w (found %d)", ErrNotEnoughPlayers, len(seeded))
	}
	sortByRating(seeded)

	ids := make([]string, 0, len(seeded)+1)
	for _, p := range seeded {
		ids = append(ids, p.ID)
	}
	if len(ids)%2 == 1 {
		ids = append(ids, byePlaceholder)
	}
	n := len(ids)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	rounds := make([][]Pairing, 0, n-1)
	for round := 1; round < n; round++ {
		pairings := make([]Pairing, 0, n/2)
		board := 1
		for i := 0; i < n/2; i++ {
			first, second := ids[indices[i]], ids[indices[n-1-i]]

			if first == byePlaceholder || second == byePlaceholder {
				player := first
				if first == byePlaceholder {
					player = second
				}
				pairings = append(pairings, Pairing{WhiteID: player, Board: 0, IsBye: true})
				continue
			}

			white, black := first, second
			if round%2 == 0 {
				white, black = black, white
			}
			if i%2 == 1 {
				white, black = black, white
			}
			pairings = append(pairings, Pairing{WhiteID: white, BlackID: black, Board: board})
			board++
		}
		rounds = append(rounds, pairings)

		rotated := make([]int, 0, n)
		rotated = append(rotated, indices[0], indices[n-1])
		rotated = append(rotated, indices[1:n-1]...)
		indices = rotated
	}
	return rounds, nil
}

// ValidateRoundRobinRounds checks that total matches the rounds a full round
// robin of players needs.
func ValidateRoundRobinRounds(players, total int) error {
	if players < 2 {
		return fmt.Errorf("%w (found %d)", ErrNotEnoughPlayers, players)
	}
	required := utils.RoundRobinRounds(players)
	if total != required {
		return fmt.Errorf("round robin with %d players requires exactly %d rounds, tournament has %d", players, required, total)
	}
	return nil
}
