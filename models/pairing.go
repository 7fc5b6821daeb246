package models

import "time"

// GameResult is the outcome recorded on a pairing.
type GameResult string

const (
	ResultPending       GameResult = "pending"
	ResultWhiteWins     GameResult = "white_wins"
	ResultBlackWins     GameResult = "black_wins"
	ResultDraw          GameResult = "draw"
	ResultWhiteForfeit  GameResult = "white_forfeit"
	ResultBlackForfeit  GameResult = "black_forfeit"
	ResultDoubleForfeit GameResult = "double_forfeit"
	ResultBye           GameResult = "bye"
)

func (r GameResult) Valid() bool {
	switch r {
	case ResultPending, ResultWhiteWins, ResultBlackWins, ResultDraw,
		ResultWhiteForfeit, ResultBlackForfeit, ResultDoubleForfeit, ResultBye:
		return true
	}
	return false
}

// IsOverTheBoard reports results decided by actually playing the game.
func (r GameResult) IsOverTheBoard() bool {
	return r == ResultWhiteWins || r == ResultBlackWins || r == ResultDraw
}

const (
	OnlineGameDeadline = 24 * time.Hour
	ClaimCancelWindow  = 2 * time.Minute
)

type Pairing struct {
	ID                   string      `json:"id"`
	TournamentID         string      `json:"tournament_id"`
	RoundNumber          int         `json:"round_number"`
	WhitePlayerID        *string     `json:"white_player_id"`
	BlackPlayerID        *string     `json:"black_player_id"`
	BoardNumber          int         `json:"board_number"`
	Result               GameResult  `json:"result"`
	ChessComGameURL      *string     `json:"chess_com_game_url"`
	ChessComGameID       *string     `json:"chess_com_game_id,omitempty"`
	WhiteNotified        bool        `json:"-"`
	BlackNotified        bool        `json:"-"`
	ScheduledTime        *time.Time  `json:"scheduled_time"`
	PlayedAt             *time.Time  `json:"played_at"`
	Deadline             *time.Time  `json:"deadline"`
	NoShowClaimedBy      *string     `json:"no_show_claimed_by"`
	NoShowClaimedAt      *time.Time  `json:"no_show_claimed_at,omitempty"`
	ClaimedResult        *GameResult `json:"claimed_result"`
	ClaimedBy            *string     `json:"claimed_by"`
	ClaimedAt            *time.Time  `json:"claimed_at"`
	ConfirmationDeadline *time.Time  `json:"confirmation_deadline"`
	ConfirmedBy          *string     `json:"confirmed_by"`
	ConfirmedAt          *time.Time  `json:"confirmed_at"`
	IsDisputed           bool        `json:"is_disputed"`
	DisputeReason        *string     `json:"dispute_reason"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"-"`

	WhitePlayer *Player `json:"-"`
	BlackPlayer *Player `json:"-"`
}

func (p *Pairing) IsBye() bool {
	return p.BlackPlayerID == nil
}

// HasPendingClaim is true while a claimed result waits for the opponent.
func (p *Pairing) HasPendingClaim() bool {
	return p.ClaimedResult != nil && p.Result == ResultPending && !p.IsDisputed && p.ConfirmedBy == nil
}

// CanCancelClaim is true within two minutes of the claim being made.
func (p *Pairing) CanCancelClaim(now time.Time) bool {
	if p.ClaimedAt == nil || !p.HasPendingClaim() {
		return false
	}
	return now.Before(p.ClaimedAt.Add(ClaimCancelWindow))
}

func (p *Pairing) IsExpired(now time.Time) bool {
	return p.Deadline != nil && now.After(*p.Deadline) && p.Result == ResultPending
}

// HasPlayer reports whether playerID sits on either side of the board.
func (p *Pairing) HasPlayer(playerID string) bool {
	return (p.WhitePlayerID != nil && *p.WhitePlayerID == playerID) ||
		(p.BlackPlayerID != nil && *p.BlackPlayerID == playerID)
}

// OpponentOf returns the other side's player id, or nil for a bye.
func (p *Pairing) OpponentOf(playerID string) *string {
	if p.WhitePlayerID != nil && *p.WhitePlayerID == playerID {
		return p.BlackPlayerID
	}
	return p.WhitePlayerID
}

// PairingView is the API representation of a pairing.
type PairingView struct {
	ID                   string       `json:"id"`
	TournamentID         string       `json:"tournament_id"`
	RoundNumber          int          `json:"round_number"`
	BoardNumber          int          `json:"board_number"`
	WhitePlayer          *PlayerBrief `json:"white_player"`
	BlackPlayer          *PlayerBrief `json:"black_player"`
	Result               GameResult   `json:"result"`
	ChessComGameURL      *string      `json:"chess_com_game_url"`
	ScheduledTime        *time.Time   `json:"scheduled_time"`
	PlayedAt             *time.Time   `json:"played_at"`
	Deadline             *time.Time   `json:"deadline"`
	NoShowClaimedBy      *string      `json:"no_show_claimed_by"`
	IsBye                bool         `json:"is_bye"`
	ClaimedResult        *GameResult  `json:"claimed_result"`
	ClaimedBy            *string      `json:"claimed_by"`
	ClaimedAt            *time.Time   `json:"claimed_at"`
	ConfirmationDeadline *time.Time   `json:"confirmation_deadline"`
	ConfirmedBy          *string      `json:"confirmed_by"`
	ConfirmedAt          *time.Time   `json:"confirmed_at"`
	IsDisputed           bool         `json:"is_disputed"`
	DisputeReason        *string      `json:"dispute_reason"`
	HasPendingClaim      bool         `json:"has_pending_claim"`
	CanCancelClaim       bool         `json:"can_cancel_claim"`
}

func (p *Pairing) View(now time.Time) PairingView {
	return PairingView{
		ID:                   p.ID,
		TournamentID:         p.TournamentID,
		RoundNumber:          p.RoundNumber,
		BoardNumber:          p.BoardNumber,
		WhitePlayer:          p.WhitePlayer.Brief(),
		BlackPlayer:          p.BlackPlayer.Brief(),
		Result:               p.Result,
		ChessComGameURL:      p.ChessComGameURL,
		ScheduledTime:        p.ScheduledTime,
		PlayedAt:             p.PlayedAt,
		Deadline:             p.Deadline,
		NoShowClaimedBy:      p.NoShowClaimedBy,
		IsBye:                p.IsBye(),
		ClaimedResult:        p.ClaimedResult,
		ClaimedBy:            p.ClaimedBy,
		ClaimedAt:            p.ClaimedAt,
		ConfirmationDeadline: p.ConfirmationDeadline,
		ConfirmedBy:          p.ConfirmedBy,
		ConfirmedAt:          p.ConfirmedAt,
		IsDisputed:           p.IsDisputed,
		DisputeReason:        p.DisputeReason,
		HasPendingClaim:      p.HasPendingClaim(),
		CanCancelClaim:       p.CanCancelClaim(now),
	}
}
