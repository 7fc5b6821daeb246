package brackets

import (
	"context"
	"fmt"
	"sort"
)

type SwissGenerator struct{}

func NewSwissGenerator() PairingGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GenerateRound pairs round 1 by rating and later rounds by score groups.
func (g *SwissGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	players := activePlayers(params.Players)
	if len(players) < 2 {
		return nil, fmt.Errorf("SwissGenerator: %w (found %d)", ErrNotEnoughPlayers, len(players))
	}
	if params.Round < 1 {
		return nil, fmt.Errorf("SwissGenerator: %w: %d", ErrRoundOutOfRange, params.Round)
	}
	if params.Round == 1 {
		return firstRound(players), nil
	}
	return scoreGroupRound(players), nil
}

// firstRound splits the field by rating: top half takes white against the bottom half.
func firstRound(players []*Player) []Pairing {
	sorted := append([]*Player(nil), players...)
	sortByRating(sorted)

	pairings := make([]Pairing, 0, len(sorted)/2+1)
	if len(sorted)%2 == 1 {
		bye := sorted[len(sorted)-1]
		sorted = sorted[:len(sorted)-1]
		pairings = append(pairings, Pairing{WhiteID: bye.ID, Board: 0, IsBye: true})
	}

	half := len(sorted) / 2
	for i := 0; i < half; i++ {
		pairings = append(pairings, Pairing{
			WhiteID: sorted[i].ID,
			BlackID: sorted[half+i].ID,
			Board:   i + 1,
		})
	}
	return pairings
}

func scoreGroupRound(players []*Player) []Pairing {
	sorted := append([]*Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Rating > sorted[j].Rating
	})

	var groups [][]*Player
	for i, p := range sorted {
		if i == 0 || p.Score != sorted[i-1].Score {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], p)
	}

	pairings := make([]Pairing, 0, len(sorted)/2+1)
	board := 0
	pair := func(a, b *Player) {
		board++
		white, black := assignColors(a, b)
		pairings = append(pairings, Pairing{WhiteID: white.ID, BlackID: black.ID, Board: board})
	}

	var carried []*Player
	for _, group := range groups {
		available := append(carried, group...)
		carried = nil

		for len(available) >= 2 {
			p1 := available[0]
			available = available[1:]

			idx := -1
			for i, p2 := range available {
				if !p1.hasMet(p2.ID) {
					idx = i
					break
				}
			}
			if idx < 0 {
				carried = append(carried, p1)
				continue
			}
			p2 := available[idx]
			available = append(available[:idx:idx], available[idx+1:]...)
			pair(p1, p2)
		}
		carried = append(carried, available...)
	}

	var bye *Player
	if len(carried)%2 == 1 {
		byeIdx := 0
		for i, p := range carried {
			b := carried[byeIdx]
			if p.Score < b.Score || (p.Score == b.Score && p.Rating < b.Rating) {
				byeIdx = i
			}
		}
		bye = carried[byeIdx]
		carried = append(carried[:byeIdx:byeIdx], carried[byeIdx+1:]...)
	}

	// Leftovers prefer a fresh opponent but accept a rematch.
	for len(carried) >= 2 {
		p1 := carried[0]
		carried = carried[1:]
		idx := 0
		for i, p2 := range carried {
			if !p1.hasMet(p2.ID) {
				idx = i
				break
			}
		}
		p2 := carried[idx]
		carried = append(carried[:idx:idx], carried[idx+1:]...)
		pair(p1, p2)
	}

	if bye != nil {
		pairings = append(pairings, Pairing{WhiteID: bye.ID, Board: 0, IsBye: true})
	}
	return pairings
}

// assignColors gives white to a player owed it (more blacks than whites)
// when the opponent is not, then black to a player who has had more whites
// when the opponent has not. Anything else goes to the higher rating.
func assignColors(a, b *Player) (white, black *Player) {
	aw, bw := a.ColorBalance() < 0, b.ColorBalance() < 0
	ab, bb := a.ColorBalance() > 0, b.ColorBalance() > 0
	switch {
	case aw && !bw:
		return a, b
	case bw && !aw:
		return b, a
	case ab && !bb:
		return b, a
	case bb && !ab:
		return a, b
	}
	if b.Rating > a.Rating {
		return b, a
	}
	return a, b
}
