package utils

import (
	"math"
	"strconv"
	"strings"
)

type TimeControlOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var TimeControls = map[string][]TimeControlOption{
	"bullet": {
		{Value: "1+0", Label: "1 min (Bullet)"},
		{Value: "1+1", Label: "1|1 (Bullet)"},
		{Value: "2+1", Label: "2|1 (Bullet)"},
	},
	"blitz": {
		{Value: "3+0", Label: "3 min (Blitz)"},
		{Value: "3+2", Label: "3|2 (Blitz)"},
		{Value: "5+0", Label: "5 min (Blitz)"},
		{Value: "5+3", Label: "5|3 (Blitz)"},
	},
	"rapid": {
		{Value: "10+0", Label: "10 min (Rapid)"},
		{Value: "10+5", Label: "10|5 (Rapid)"},
		{Value: "15+10", Label: "15|10 (Rapid)"},
		{Value: "30+0", Label: "30 min (Rapid)"},
	},
	"classical": {
		{Value: "60+0", Label: "60 min (Classical)"},
		{Value: "90+30", Label: "90|30 (Classical)"},
	},
}

// TimeClass maps a "minutes+increment" control to the chess.com time class.
// Unparseable controls are treated as rapid.
func TimeClass(timeControl string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(timeControl), "+")
	minutes, err := strconv.ParseFloat(base, 64)
	if err != nil {
		return "rapid"
	}
	switch {
	case minutes >= 10:
		return "rapid"
	case minutes >= 3:
		return "blitz"
	default:
		return "bullet"
	}
}

// RoundRobinRounds is the number of rounds needed for everyone to meet once.
func RoundRobinRounds(players int) int {
	if players%2 == 0 {
		return players - 1
	}
	return players
}

// SwissMinimumRounds is max(3, ceil(log2 n)).
func SwissMinimumRounds(players int) int {
	if players < 2 {
		return 3
	}
	r := int(math.Ceil(math.Log2(float64(players))))
	if r < 3 {
		return 3
	}
	return r
}

// RecommendedSwissRounds is ceil(log2 n) with a floor of one round.
func RecommendedSwissRounds(players int) int {
	if players < 2 {
		return 1
	}
	r := int(math.Ceil(math.Log2(float64(players))))
	if r < 1 {
		return 1
	}
	return r
}
