package brackets

import (
	"sort"

	"github.com/Dosada05/checked/models"
)

type Tiebreak struct {
	Buchholz        float64
	SonnebornBerger float64
}

// points returns what each side scored on a decided pairing, and false for
// pending pairings and byes.
func points(p *models.Pairing) (white, black float64, ok bool) {
	switch p.Result {
	case models.ResultWhiteWins, models.ResultBlackForfeit:
		return 1, 0, true
	case models.ResultBlackWins, models.ResultWhiteForfeit:
		return 0, 1, true
	case models.ResultDraw:
		return 0.5, 0.5, true
	case models.ResultDoubleForfeit:
		return 0, 0, true
	}
	return 0, 0, false
}

// ComputeTiebreaks returns Buchholz (sum of opponents' scores) and
// Sonneborn-Berger (scores of beaten opponents plus half of drawn ones) per
// player. Byes contribute nothing.
func ComputeTiebreaks(entries []*models.TournamentPlayer, pairings []*models.Pairing) map[string]Tiebreak {
	scores := make(map[string]float64, len(entries))
	out := make(map[string]Tiebreak, len(entries))
	for _, e := range entries {
		scores[e.PlayerID] = e.Score
		out[e.PlayerID] = Tiebreak{}
	}

	for _, p := range pairings {
		if p.WhitePlayerID == nil || p.BlackPlayerID == nil {
			continue
		}
		white, black := *p.WhitePlayerID, *p.BlackPlayerID
		wp, bp, decided := points(p)

		if tb, ok := out[white]; ok {
			tb.Buchholz += scores[black]
			if decided {
				tb.SonnebornBerger += wp * scores[black]
			}
			out[white] = tb
		}
		if tb, ok := out[black]; ok {
			tb.Buchholz += scores[white]
			if decided {
				tb.SonnebornBerger += bp * scores[white]
			}
			out[black] = tb
		}
	}
	return out
}

// HeadToHead maps player -> opponent -> points scored over the board.
type HeadToHead map[string]map[string]float64

func BuildHeadToHead(pairings []*models.Pairing) HeadToHead {
	h2h := make(HeadToHead)
	set := func(a, b string, v float64) {
		if h2h[a] == nil {
			h2h[a] = make(map[string]float64)
		}
		h2h[a][b] = v
	}
	for _, p := range pairings {
		if p.WhitePlayerID == nil || p.BlackPlayerID == nil || !p.Result.IsOverTheBoard() {
			continue
		}
		wp, bp, _ := points(p)
		set(*p.WhitePlayerID, *p.BlackPlayerID, wp)
		set(*p.BlackPlayerID, *p.WhitePlayerID, bp)
	}
	return h2h
}

// Rank orders entries by score, Buchholz, head-to-head and wins, highest first.
// The returned slice is a sorted copy.
func Rank(entries []*models.TournamentPlayer, tiebreaks map[string]Tiebreak, h2h HeadToHead) []*models.TournamentPlayer {
	ranked := append([]*models.TournamentPlayer(nil), entries...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ta, tb := tiebreaks[a.PlayerID].Buchholz, tiebreaks[b.PlayerID].Buchholz; ta != tb {
			return ta > tb
		}
		if res, ok := h2h[a.PlayerID][b.PlayerID]; ok && res != 0.5 {
			return res == 1
		}
		return a.Wins > b.Wins
	})
	return ranked
}
