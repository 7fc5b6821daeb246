package models

import "math"

// PlayerTotals aggregates a player's non-withdrawn tournament entries.
type PlayerTotals struct {
	Tournaments  int
	Completed    int
	Wins         int
	Draws        int
	Losses       int
	TotalScore   float64
	FirstPlaces  int
	SecondPlaces int
	ThirdPlaces  int
	BestRank     *int
}

func (t PlayerTotals) Games() int {
	return t.Wins + t.Draws + t.Losses
}

// WinRate is the percentage of games won, rounded to one decimal.
func (t PlayerTotals) WinRate() float64 {
	games := t.Games()
	if games == 0 {
		return 0
	}
	return math.Round(float64(t.Wins)/float64(games)*1000) / 10
}

func (t PlayerTotals) Podiums() int {
	return t.FirstPlaces + t.SecondPlaces + t.ThirdPlaces
}

type GameStats struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	Draws   int     `json:"draws"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"`
}

type Achievements struct {
	FirstPlaces    int  `json:"first_places"`
	SecondPlaces   int  `json:"second_places"`
	ThirdPlaces    int  `json:"third_places"`
	PodiumFinishes int  `json:"podium_finishes"`
	BestRank       *int `json:"best_rank,omitempty"`
}

func (t PlayerTotals) GameStats() GameStats {
	return GameStats{Total: t.Games(), Wins: t.Wins, Draws: t.Draws, Losses: t.Losses, WinRate: t.WinRate()}
}

func (t PlayerTotals) Achievements() Achievements {
	return Achievements{
		FirstPlaces:    t.FirstPlaces,
		SecondPlaces:   t.SecondPlaces,
		ThirdPlaces:    t.ThirdPlaces,
		PodiumFinishes: t.Podiums(),
		BestRank:       t.BestRank,
	}
}

type LeaderboardStats struct {
	TournamentsPlayed int     `json:"tournaments_played"`
	TotalGames        int     `json:"total_games"`
	Wins              int     `json:"wins"`
	Draws             int     `json:"draws"`
	Losses            int     `json:"losses"`
	WinRate           float64 `json:"win_rate"`
	TotalScore        float64 `json:"total_score"`
	FirstPlaces       int     `json:"first_places"`
	SecondPlaces      int     `json:"second_places"`
	ThirdPlaces       int     `json:"third_places"`
	PodiumFinishes    int     `json:"podium_finishes"`
}

func (t PlayerTotals) LeaderboardStats() LeaderboardStats {
	return LeaderboardStats{
		TournamentsPlayed: t.Tournaments,
		TotalGames:        t.Games(),
		Wins:              t.Wins,
		Draws:             t.Draws,
		Losses:            t.Losses,
		WinRate:           t.WinRate(),
		TotalScore:        t.TotalScore,
		FirstPlaces:       t.FirstPlaces,
		SecondPlaces:      t.SecondPlaces,
		ThirdPlaces:       t.ThirdPlaces,
		PodiumFinishes:    t.Podiums(),
	}
}

type LeaderboardEntry struct {
	Rank             int              `json:"rank"`
	PlayerID         string           `json:"player_id"`
	ChessComUsername string           `json:"chess_com_username"`
	ChessComAvatar   *string          `json:"chess_com_avatar"`
	County           *string          `json:"county"`
	Club             *string          `json:"club"`
	ChessComStatus   *string          `json:"chess_com_status"`
	Stats            LeaderboardStats `json:"stats"`
}

// DailyCount is one day of an analytics series; Name is the chart label.
type DailyCount struct {
	Date       string `json:"date"`
	Name       string `json:"name"`
	NewUsers   int    `json:"new_users"`
	TotalUsers int    `json:"total_users"`
}

type ActivityDay struct {
	Date        string `json:"date"`
	Name        string `json:"name"`
	Tournaments int    `json:"tournaments"`
	Games       int    `json:"games"`
}

type AnalyticsSummary struct {
	TotalUsers         int     `json:"total_users"`
	NewUsersWeek       int     `json:"new_users_week"`
	NewUsersMonth      int     `json:"new_users_month"`
	GrowthRate         float64 `json:"growth_rate"`
	ActiveTournaments  int     `json:"active_tournaments"`
	TotalTournaments   int     `json:"total_tournaments"`
	GamesThisWeek      int     `json:"games_this_week"`
	TotalRequestsToday int     `json:"total_requests_today"`
}

type PublicStats struct {
	Players              int `json:"players"`
	Tournaments          int `json:"tournaments"`
	CompletedTournaments int `json:"completed_tournaments"`
	ActiveTournaments    int `json:"active_tournaments"`
	OpenTournaments      int `json:"open_tournaments"`
	Counties             int `json:"counties"`
}
