package chesscom

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"

	"github.com/Dosada05/checked/utils"
)

type Profile struct {
	Username   string `json:"username"`
	Avatar     string `json:"avatar,omitempty"`
	PlayerID   int64  `json:"player_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Name       string `json:"name,omitempty"`
	Country    string `json:"country,omitempty"`
	Joined     int64  `json:"joined,omitempty"`
	LastOnline int64  `json:"last_online,omitempty"`
	Status     string `json:"status,omitempty"`
}

// CountryCode extracts the ISO code from the country URL chess.com returns,
// e.g. "https://api.chess.com/pub/country/KE" gives "KE".
func (p *Profile) CountryCode() string {
	if p.Country == "" {
		return ""
	}
	return strings.ToUpper(path.Base(strings.TrimSuffix(p.Country, "/")))
}

type Stats struct {
	Rapid      *int `json:"chess_rapid"`
	Blitz      *int `json:"chess_blitz"`
	Bullet     *int `json:"chess_bullet"`
	Daily      *int `json:"chess_daily"`
	Tactics    *int `json:"tactics"`
	PuzzleRush *int `json:"puzzle_rush"`
}

type ratingPoint struct {
	Rating *int `json:"rating"`
	Score  *int `json:"score"`
}

type rawStats struct {
	Rapid  struct{ Last ratingPoint } `json:"chess_rapid"`
	Blitz  struct{ Last ratingPoint } `json:"chess_blitz"`
	Bullet struct{ Last ratingPoint } `json:"chess_bullet"`
	Daily  struct{ Last ratingPoint } `json:"chess_daily"`
	Tactics struct {
		Highest ratingPoint `json:"highest"`
	} `json:"tactics"`
	PuzzleRush struct {
		Best ratingPoint `json:"best"`
	} `json:"puzzle_rush"`
}

func (r rawStats) stats() *Stats {
	return &Stats{
		Rapid:      r.Rapid.Last.Rating,
		Blitz:      r.Blitz.Last.Rating,
		Bullet:     r.Bullet.Last.Rating,
		Daily:      r.Daily.Last.Rating,
		Tactics:    r.Tactics.Highest.Rating,
		PuzzleRush: r.PuzzleRush.Best.Score,
	}
}

type Side struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Game is one entry of a monthly archive.
type Game struct {
	URL         string `json:"url"`
	PGN         string `json:"pgn,omitempty"`
	TimeControl string `json:"time_control"`
	TimeClass   string `json:"time_class"`
	Rated       bool   `json:"rated"`
	EndTime     int64  `json:"end_time"`
	White       Side   `json:"white"`
	Black       Side   `json:"black"`
}

func (g *Game) Involves(username string) bool {
	return strings.EqualFold(g.White.Username, username) || strings.EqualFold(g.Black.Username, username)
}

var drawResults = map[string]bool{
	"agreed":             true,
	"stalemate":          true,
	"repetition":         true,
	"insufficient":       true,
	"50move":             true,
	"timevsinsufficient": true,
}

// Outcome is "win", "draw" or "loss" from username's side of the board.
func (g *Game) Outcome(username string) string {
	result := g.Black.Result
	if strings.EqualFold(g.White.Username, username) {
		result = g.White.Result
	}
	switch {
	case result == "win":
		return "win"
	case drawResults[result] || strings.Contains(strings.ToLower(result), "draw"):
		return "draw"
	default:
		return "loss"
	}
}

type LivePlayer struct {
	Username string `json:"username"`
	Color    string `json:"color"`
	Result   string `json:"result"`
}

// LiveGame is the callback endpoint payload.
type LiveGame struct {
	Game struct {
		ID          json.RawMessage `json:"id"`
		Status      string          `json:"status"`
		EndTime     int64           `json:"endTime"`
		TimeControl json.RawMessage `json:"timeControl"`
	} `json:"game"`
	Players map[string]LivePlayer `json:"players"`
}

// Sides resolves which player record is white and which is black. The payload
// uses top/bottom with a color field, or explicit white/black keys.
func (g *LiveGame) Sides() (white, black LivePlayer) {
	top, bottom := g.Players["top"], g.Players["bottom"]
	if top.Color == "white" {
		white = top
	} else {
		white = bottom
	}
	if bottom.Color == "black" {
		black = bottom
	} else {
		black = top
	}
	if white.Color == "" {
		if w, ok := g.Players["white"]; ok {
			white = w
		} else {
			white = top
		}
		if b, ok := g.Players["black"]; ok {
			black = b
		} else {
			black = bottom
		}
	}
	return white, black
}

func rawString(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func (g *LiveGame) ID() string {
	s := rawString(g.Game.ID)
	if s == "null" {
		return ""
	}
	return s
}

var (
	gamePathPattern  = regexp.MustCompile(`/game(?:/live)?/(\d+)`)
	gameQueryPattern = regexp.MustCompile(`[#?&]g=(\d+)`)
)

// ParseGameID accepts /game/<id>, /game/live/<id>, #g=<id> style URLs and bare ids.
func ParseGameID(gameURL string) (string, bool) {
	gameURL = strings.TrimSpace(gameURL)
	if m := gamePathPattern.FindStringSubmatch(gameURL); m != nil {
		return m[1], true
	}
	if m := gameQueryPattern.FindStringSubmatch(gameURL); m != nil {
		return m[1], true
	}
	if utils.IsNumeric(gameURL) {
		return gameURL, true
	}
	return "", false
}
