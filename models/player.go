package models

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Player is a registered account, identified by its chess.com username.
type Player struct {
	ID               string     `json:"id"`
	ChessComUsername string     `json:"chess_com_username"`
	ChessComAvatar   *string    `json:"chess_com_avatar"`
	ChessComJoined   *int64     `json:"chess_com_joined"`
	ChessComStatus   *string    `json:"chess_com_status"`
	ChessComCountry  *string    `json:"chess_com_country"`
	RatingRapid      *int       `json:"rating_rapid"`
	RatingBlitz      *int       `json:"rating_blitz"`
	RatingBullet     *int       `json:"rating_bullet"`
	RatingsUpdatedAt *time.Time `json:"ratings_updated_at"`
	PasswordHash     string     `json:"-"`
	Phone            string     `json:"phone"`
	Age              int        `json:"age"`
	Gender           Gender     `json:"gender"`
	County           *string    `json:"county"`
	Club             *string    `json:"club"`
	ClubID           *string    `json:"club_id,omitempty"`
	IsActive         bool       `json:"is_active"`
	IsAdmin          bool       `json:"is_admin"`
	PushSubscription *string    `json:"-"`
	PushEnabled      bool       `json:"-"`
	IsFlagged        bool       `json:"-"`
	LastLoginAt      *time.Time `json:"-"`
	RegistrationIP   *string    `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"-"`
}

// SeedRating picks rapid, then blitz, then bullet, defaulting to 1200.
func (p *Player) SeedRating() int {
	for _, r := range []*int{p.RatingRapid, p.RatingBlitz, p.RatingBullet} {
		if r != nil && *r > 0 {
			return *r
		}
	}
	return DefaultSeedRating
}

// Brief is the compact player shape embedded in pairings.
func (p *Player) Brief() *PlayerBrief {
	if p == nil {
		return nil
	}
	return &PlayerBrief{
		ID:               p.ID,
		ChessComUsername: p.ChessComUsername,
		ChessComAvatar:   p.ChessComAvatar,
		County:           p.County,
	}
}

type PlayerBrief struct {
	ID               string  `json:"id"`
	ChessComUsername string  `json:"chess_com_username"`
	ChessComAvatar   *string `json:"chess_com_avatar"`
	County           *string `json:"county"`
}

// PushSubscription is the browser subscription object stored as JSON.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}
