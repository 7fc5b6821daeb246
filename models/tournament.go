package models

import "time"

// TournamentStatus mirrors the status column of tournaments.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCancelled    TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusRegistration, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type TournamentFormat string

const (
	FormatSwiss             TournamentFormat = "swiss"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSwiss, FormatRoundRobin, FormatSingleElimination, FormatDoubleElimination:
		return true
	}
	return false
}

type GenderRestriction string

const (
	GenderOpen       GenderRestriction = "open"
	GenderMaleOnly   GenderRestriction = "male_only"
	GenderFemaleOnly GenderRestriction = "female_only"
)

func (g GenderRestriction) Valid() bool {
	switch g {
	case GenderOpen, GenderMaleOnly, GenderFemaleOnly:
		return true
	}
	return false
}

const (
	DefaultTotalRounds               = 5
	DefaultTimeControl               = "10+0"
	DefaultResultConfirmationMinutes = 10
	DefaultSeedRating                = 1200
)

type Tournament struct {
	ID                        string            `json:"id"`
	Name                      string            `json:"name"`
	Description               *string           `json:"description"`
	Format                    TournamentFormat  `json:"format"`
	TotalRounds               int               `json:"total_rounds"`
	CurrentRound              int               `json:"current_round"`
	TimeControl               string            `json:"time_control"`
	Status                    TournamentStatus  `json:"status"`
	MaxPlayers                *int              `json:"max_players"`
	RegistrationOpen          time.Time         `json:"registration_open"`
	RegistrationClose         *time.Time        `json:"registration_close"`
	StartDate                 *time.Time        `json:"start_date"`
	EndDate                   *time.Time        `json:"end_date"`
	IsOnline                  bool              `json:"is_online"`
	Venue                     *string           `json:"venue"`
	ResultConfirmationMinutes int               `json:"result_confirmation_minutes"`
	CountyRestrictions        []string          `json:"county_restrictions"`
	MinRating                 *int              `json:"min_rating"`
	MaxRating                 *int              `json:"max_rating"`
	MinAge                    *int              `json:"min_age"`
	MaxAge                    *int              `json:"max_age"`
	GenderRestriction         GenderRestriction `json:"gender_restriction"`
	AllowedClubs              []string          `json:"allowed_clubs"`
	EntryFee                  float64           `json:"entry_fee"`
	PrizePool                 float64           `json:"prize_pool"`
	Paid                      bool              `json:"is_paid"`
	CreatedBy                 *string           `json:"created_by,omitempty"`
	CreatedAt                 time.Time         `json:"created_at"`
	UpdatedAt                 time.Time         `json:"-"`

	PlayerCount int `json:"player_count"`
}

// IsPaid reports whether joining requires an entry fee.
func (t *Tournament) IsPaid() bool {
	return t.EntryFee > 0
}

// TournamentPlayer is a registration row with the running score.
type TournamentPlayer struct {
	ID              string    `json:"id"`
	TournamentID    string    `json:"tournament_id"`
	PlayerID        string    `json:"player_id"`
	SeedRating      int       `json:"seed_rating"`
	Score           float64   `json:"score"`
	Wins            int       `json:"wins"`
	Draws           int       `json:"draws"`
	Losses          int       `json:"losses"`
	Buchholz        float64   `json:"buchholz"`
	SonnebornBerger float64   `json:"sonneborn_berger"`
	GamesAsWhite    int       `json:"games_as_white"`
	GamesAsBlack    int       `json:"games_as_black"`
	FinalRank       *int      `json:"final_rank"`
	IsWithdrawn     bool      `json:"is_withdrawn"`
	HasPaid         bool      `json:"has_paid"`
	JoinedAt        time.Time `json:"joined_at"`

	Player *Player `json:"-"`
}
