package models

// TournamentStanding is one row of a standings table.
type TournamentStanding struct {
	Rank             int     `json:"rank"`
	PlayerID         string  `json:"player_id"`
	ChessComUsername string  `json:"chess_com_username"`
	ChessComAvatar   *string `json:"chess_com_avatar"`
	County           *string `json:"county"`
	SeedRating       int     `json:"seed_rating"`
	Score            float64 `json:"score"`
	Wins             int     `json:"wins"`
	Draws            int     `json:"draws"`
	Losses           int     `json:"losses"`
	Buchholz         float64 `json:"buchholz"`
	SonnebornBerger  float64 `json:"sonneborn_berger"`
	IsWithdrawn      bool    `json:"is_withdrawn"`
	FinalRank        *int    `json:"final_rank,omitempty"`
}

type Standings struct {
	TournamentID   string               `json:"tournament_id"`
	TournamentName string               `json:"tournament_name"`
	CurrentRound   int                  `json:"current_round"`
	TotalRounds    int                  `json:"total_rounds"`
	Standings      []TournamentStanding `json:"standings"`
}

// TournamentBrief is the compact tournament shape used by match listings.
type TournamentBrief struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	IsOnline    bool             `json:"is_online"`
	TimeControl string           `json:"time_control"`
	Status      TournamentStatus `json:"status"`
}

// MatchView is a pairing with its tournament, as shown on the matches page.
type MatchView struct {
	PairingView
	Tournament TournamentBrief `json:"tournament"`
}
