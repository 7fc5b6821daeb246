package realtime

import (
	"fmt"
	"time"
)

const (
	EventPairingCreated   = "pairing_created"
	EventResultSubmitted  = "result_submitted"
	EventNoShowClaimed    = "no_show_claimed"
	EventStandingsUpdated = "standings_updated"
	EventRoundStarted     = "round_started"
	EventResultClaimed    = "result_claimed"
	EventResultConfirmed  = "result_confirmed"
	EventResultDisputed   = "result_disputed"
	EventClaimCancelled   = "claim_cancelled"
)

// PairingCreated tells each side of a new pairing which colour they have.
func (h *Hub) PairingCreated(tournamentID, whiteID, blackID string, pairing map[string]interface{}) {
	for id, colour := range map[string]string{whiteID: "white", blackID: "black"} {
		if id == "" {
			continue
		}
		data := make(map[string]interface{}, len(pairing)+1)
		for k, v := range pairing {
			data[k] = v
		}
		data["you_play_as"] = colour
		h.SendToPlayer(id, NewEvent(EventPairingCreated, tournamentID, data))
	}
}

func (h *Hub) ResultSubmitted(tournamentID, pairingID, whiteID, blackID, result string) {
	h.SendToPlayers([]string{whiteID, blackID}, NewEvent(EventResultSubmitted, tournamentID, map[string]string{
		"pairing_id": pairingID,
		"result":     result,
	}))
}

func (h *Hub) NoShowClaimed(tournamentID, pairingID, accusedID string) {
	h.SendToPlayer(accusedID, NewEvent(EventNoShowClaimed, tournamentID, map[string]string{
		"pairing_id": pairingID,
		"message":    "Your opponent claims you didn't show up. Submit the game URL to dispute.",
	}))
}

func (h *Hub) StandingsUpdated(tournamentID string) {
	h.BroadcastToTournament(tournamentID, NewEvent(EventStandingsUpdated, tournamentID, map[string]string{
		"message": "Standings have been updated",
	}))
}

func (h *Hub) RoundStarted(tournamentID string, round int) {
	h.BroadcastToTournament(tournamentID, NewEvent(EventRoundStarted, tournamentID, map[string]interface{}{
		"round":   round,
		"message": fmt.Sprintf("Round %d pairings are ready", round),
	}))
}

func (h *Hub) ResultClaimed(tournamentID, pairingID, opponentID, claimedResult string, deadline time.Time) {
	h.SendToPlayer(opponentID, NewEvent(EventResultClaimed, tournamentID, map[string]string{
		"pairing_id":            pairingID,
		"claimed_result":        claimedResult,
		"confirmation_deadline": deadline.UTC().Format(time.RFC3339),
		"message":               "Your opponent has claimed a result. Please confirm or dispute.",
	}))
}

// ResultConfirmed notifies the claimer and refreshes standings for the room.
func (h *Hub) ResultConfirmed(tournamentID, pairingID, claimerID, result string) {
	h.SendToPlayer(claimerID, NewEvent(EventResultConfirmed, tournamentID, map[string]string{
		"pairing_id": pairingID,
		"result":     result,
		"message":    "Your result claim has been confirmed.",
	}))
	h.StandingsUpdated(tournamentID)
}

func (h *Hub) ResultDisputed(tournamentID, pairingID, claimerID, reason string) {
	h.SendToPlayer(claimerID, NewEvent(EventResultDisputed, tournamentID, map[string]string{
		"pairing_id": pairingID,
		"reason":     reason,
		"message":    "Your result claim has been disputed. An arbiter will review.",
	}))
}

func (h *Hub) ClaimCancelled(tournamentID, pairingID, opponentID string) {
	h.SendToPlayer(opponentID, NewEvent(EventClaimCancelled, tournamentID, map[string]string{
		"pairing_id": pairingID,
		"message":    "The result claim has been cancelled.",
	}))
}
