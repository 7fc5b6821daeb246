package models

import "time"

type ClubType string

const (
	ClubTypeCorporate ClubType = "corporate"
	ClubTypeSchool    ClubType = "school"
	ClubTypeCommunity ClubType = "community"
	ClubTypeCounty    ClubType = "county"
)

func (t ClubType) Valid() bool {
	switch t {
	case ClubTypeCorporate, ClubTypeSchool, ClubTypeCommunity, ClubTypeCounty:
		return true
	}
	return false
}

// Club is a chess club. An empty County means the club is nationwide.
type Club struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	LogoURL         *string   `json:"logo_url"`
	County          string    `json:"county"`
	Description     *string   `json:"description"`
	ClubType        ClubType  `json:"club_type"`
	ContactPhone    *string   `json:"contact_phone"`
	ContactEmail    *string   `json:"contact_email"`
	MemberCount     int       `json:"member_count"`
	TournamentCount int       `json:"tournament_count"`
	TotalPoints     int       `json:"total_points"`
	TournamentWins  int       `json:"tournament_wins"`
	AverageRating   int       `json:"average_rating"`
	IsActive        bool      `json:"is_active"`
	IsVerified      bool      `json:"is_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
