package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/Dosada05/checked/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayers(ratings ...int) []*Player {
	out := make([]*Player, len(ratings))
	for i, r := range ratings {
		out[i] = &Player{ID: fmt.Sprintf("p%d", i+1), Rating: r, Opponents: map[string]bool{}}
	}
	return out
}

func meet(a, b *Player) {
	a.Opponents[b.ID] = true
	b.Opponents[a.ID] = true
}

func seatedOnce(t *testing.T, pairings []Pairing, players []*Player) {
	t.Helper()
	seen := map[string]int{}
	for _, p := range pairings {
		seen[p.WhiteID]++
		if !p.IsBye {
			seen[p.BlackID]++
		}
	}
	for _, p := range players {
		if p.Withdrawn {
			assert.Zero(t, seen[p.ID], "withdrawn player %s was paired", p.ID)
			continue
		}
		assert.Equal(t, 1, seen[p.ID], "player %s", p.ID)
	}
}

func TestSwissFirstRound(t *testing.T) {
	players := newPlayers(1500, 1900, 1200, 1700, 1100)
	pairings, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 1, Players: players})
	require.NoError(t, err)

	require.Len(t, pairings, 3)
	assert.Equal(t, Pairing{WhiteID: "p5", Board: 0, IsBye: true}, pairings[0])
	assert.Equal(t, Pairing{WhiteID: "p2", BlackID: "p1", Board: 1}, pairings[1])
	assert.Equal(t, Pairing{WhiteID: "p4", BlackID: "p3", Board: 2}, pairings[2])
}

func TestSwissRequiresTwoPlayers(t *testing.T) {
	players := newPlayers(1500, 1400)
	players[1].Withdrawn = true
	_, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 1, Players: players})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestSwissAvoidsRematches(t *testing.T) {
	players := newPlayers(2000, 1900, 1800, 1700)
	players[0].Score, players[1].Score = 1, 1
	meet(players[0], players[1])
	meet(players[2], players[3])

	pairings, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 2, Players: players})
	require.NoError(t, err)
	seatedOnce(t, pairings, players)

	for _, p := range pairings {
		w := map[string]*Player{"p1": players[0], "p2": players[1], "p3": players[2], "p4": players[3]}[p.WhiteID]
		assert.False(t, w.hasMet(p.BlackID), "rematch %s-%s", p.WhiteID, p.BlackID)
	}
}

func TestSwissColorBalance(t *testing.T) {
	players := newPlayers(2000, 1500)
	players[0].GamesAsWhite = 2
	players[1].GamesAsBlack = 2

	pairings, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 2, Players: players})
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.Equal(t, "p2", pairings[0].WhiteID, "player owed white gets it despite lower rating")

	players[1].GamesAsBlack = 0
	players[0].GamesAsWhite = 0
	pairings, err = NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 2, Players: players})
	require.NoError(t, err)
	assert.Equal(t, "p1", pairings[0].WhiteID, "equal balance goes to the higher rating")
}

func TestSwissColorBalanceSameSign(t *testing.T) {
	tests := []struct {
		name           string
		white1, black1 int
		white2, black2 int
		want           string
	}{
		{name: "both owed white", black1: 1, black2: 2, want: "p1"},
		{name: "both owed black", white1: 2, white2: 1, want: "p1"},
		{name: "only higher rated owed black", white1: 1, want: "p2"},
		{name: "only lower rated owed black", white2: 1, want: "p1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players := newPlayers(2000, 1500)
			players[0].GamesAsWhite, players[0].GamesAsBlack = tt.white1, tt.black1
			players[1].GamesAsWhite, players[1].GamesAsBlack = tt.white2, tt.black2

			pairings, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 2, Players: players})
			require.NoError(t, err)
			require.Len(t, pairings, 1)
			assert.Equal(t, tt.want, pairings[0].WhiteID)
		})
	}
}

func TestSwissByeGoesToLowestScore(t *testing.T) {
	players := newPlayers(1000, 1800, 1600)
	players[0].Score = 2
	players[1].Score = 1
	players[2].Score = 1

	pairings, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 3, Players: players})
	require.NoError(t, err)
	seatedOnce(t, pairings, players)

	last := pairings[len(pairings)-1]
	assert.True(t, last.IsBye)
	assert.Equal(t, "p3", last.WhiteID)
	assert.Equal(t, 0, last.Board)
}

func TestSwissPairsLeftoversWhenEveryoneHasMet(t *testing.T) {
	players := newPlayers(2000, 1900, 1800, 1700)
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			meet(players[i], players[j])
		}
	}
	pairings, err := NewSwissGenerator().GenerateRound(context.Background(), GenerateRoundParams{Round: 4, Players: players})
	require.NoError(t, err)
	require.Len(t, pairings, 2)
	for _, p := range pairings {
		assert.False(t, p.IsBye)
	}
	seatedOnce(t, pairings, players)
}

func TestRoundRobinSchedule(t *testing.T) {
	for _, n := range []int{4, 5, 6, 7} {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			ratings := make([]int, n)
			for i := range ratings {
				ratings[i] = 2000 - i*50
			}
			players := newPlayers(ratings...)
			rounds, err := NewRoundRobinGenerator().(*RoundRobinGenerator).Schedule(players)
			require.NoError(t, err)

			padded := n + n%2
			require.Len(t, rounds, padded-1)

			met := map[string]int{}
			byes := map[string]int{}
			for _, round := range rounds {
				seatedOnce(t, round, players)
				for _, p := range round {
					if p.IsBye {
						byes[p.WhiteID]++
						continue
					}
					key := p.WhiteID + "-" + p.BlackID
					if p.BlackID < p.WhiteID {
						key = p.BlackID + "-" + p.WhiteID
					}
					met[key]++
				}
			}
			assert.Len(t, met, n*(n-1)/2, "everyone meets everyone")
			for key, count := range met {
				assert.Equal(t, 1, count, key)
			}
			if n%2 == 1 {
				assert.Len(t, byes, n)
			}
		})
	}
}

func TestRoundRobinColorsAlternate(t *testing.T) {
	players := newPlayers(2000, 1900, 1800, 1700)
	gen := NewRoundRobinGenerator()

	r1, err := gen.GenerateRound(context.Background(), GenerateRoundParams{Round: 1, Players: players})
	require.NoError(t, err)
	assert.Equal(t, []Pairing{
		{WhiteID: "p1", BlackID: "p4", Board: 1},
		{WhiteID: "p3", BlackID: "p2", Board: 2},
	}, r1)

	r2, err := gen.GenerateRound(context.Background(), GenerateRoundParams{Round: 2, Players: players})
	require.NoError(t, err)
	assert.Equal(t, []Pairing{
		{WhiteID: "p3", BlackID: "p1", Board: 1},
		{WhiteID: "p4", BlackID: "p2", Board: 2},
	}, r2)

	_, err = gen.GenerateRound(context.Background(), GenerateRoundParams{Round: 4, Players: players})
	assert.ErrorIs(t, err, ErrRoundOutOfRange)
}

func TestValidateRoundRobinRounds(t *testing.T) {
	assert.NoError(t, ValidateRoundRobinRounds(6, 5))
	assert.NoError(t, ValidateRoundRobinRounds(5, 5))
	assert.Error(t, ValidateRoundRobinRounds(6, 4))
	assert.ErrorIs(t, ValidateRoundRobinRounds(1, 0), ErrNotEnoughPlayers)
}

func sp(s string) *string { return &s }

func TestTiebreaksAndRanking(t *testing.T) {
	entries := []*models.TournamentPlayer{
		{PlayerID: "a", Score: 2, Wins: 2},
		{PlayerID: "b", Score: 2, Wins: 2},
		{PlayerID: "c", Score: 1, Wins: 1},
		{PlayerID: "d", Score: 1, Wins: 1},
	}
	pairings := []*models.Pairing{
		{WhitePlayerID: sp("a"), BlackPlayerID: sp("c"), Result: models.ResultWhiteWins},
		{WhitePlayerID: sp("b"), BlackPlayerID: sp("d"), Result: models.ResultWhiteWins},
		{WhitePlayerID: sp("a"), BlackPlayerID: sp("b"), Result: models.ResultBlackWins},
		{WhitePlayerID: sp("c"), BlackPlayerID: sp("d"), Result: models.ResultDraw},
		{WhitePlayerID: sp("a"), Result: models.ResultBye},
	}
	// Scores above are illustrative and not derived from the pairings.
	tb := ComputeTiebreaks(entries, pairings)

	assert.Equal(t, 3.0, tb["a"].Buchholz, "bye adds nothing")
	assert.Equal(t, 3.0, tb["b"].Buchholz)
	assert.Equal(t, 1.0, tb["a"].SonnebornBerger)
	assert.Equal(t, 3.0, tb["b"].SonnebornBerger)
	assert.Equal(t, 0.5, tb["c"].SonnebornBerger)

	ranked := Rank(entries, tb, BuildHeadToHead(pairings))
	ids := make([]string, len(ranked))
	for i, e := range ranked {
		ids[i] = e.PlayerID
	}
	assert.Equal(t, "b", ids[0], "head-to-head breaks the Buchholz tie")
	assert.Equal(t, "a", ids[1])
}

func TestFromEntries(t *testing.T) {
	entries := []*models.TournamentPlayer{
		{PlayerID: "a", SeedRating: 1500, Score: 1},
		{PlayerID: "b", SeedRating: 1400, IsWithdrawn: true},
	}
	history := []*models.Pairing{
		{WhitePlayerID: sp("a"), BlackPlayerID: sp("b"), Result: models.ResultWhiteWins},
		{WhitePlayerID: sp("a"), Result: models.ResultBye},
	}
	players := FromEntries(entries, history)
	require.Len(t, players, 2)
	assert.True(t, players[0].hasMet("b"))
	assert.Len(t, players[0].Opponents, 1)
	assert.True(t, players[1].Withdrawn)
	assert.Equal(t, 1500, players[0].Rating)
}

func TestForFormat(t *testing.T) {
	assert.Equal(t, "RoundRobin", ForFormat(models.FormatRoundRobin).GetName())
	assert.Equal(t, "Swiss", ForFormat(models.FormatSwiss).GetName())
	assert.Equal(t, "Swiss", ForFormat(models.FormatSingleElimination).GetName())
}
