package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
)

// ErrMatchesListFailed wraps failures while listing a player's matches.
var ErrMatchesListFailed = errors.New("failed to list matches")

type MatchType string

const (
	MatchTypeOnline   MatchType = "online"
	MatchTypeInPerson MatchType = "inperson"
)

type MatchFilter struct {
	Status         repositories.MatchStatus
	TournamentType MatchType
	TournamentID   string
	Offset         int
	Limit          int
}

// MatchService lists a player's games across every tournament.
type MatchService interface {
	MyMatches(ctx context.Context, playerID string, filter MatchFilter) ([]models.MatchView, error)
	ActionRequiredCount(ctx context.Context, playerID string) (*repositories.ActionRequiredCount, error)
}

type matchService struct {
	pairings    repositories.PairingRepository
	tournaments repositories.TournamentRepository
	players     repositories.PlayerRepository
}

func NewMatchService(
	pairings repositories.PairingRepository,
	tournaments repositories.TournamentRepository,
	players repositories.PlayerRepository,
) MatchService {
	return &matchService{
		pairings:    pairings,
		tournaments: tournaments,
		players:     players,
	}
}

func (s *matchService) MyMatches(ctx context.Context, playerID string, filter MatchFilter) ([]models.MatchView, error) {
	switch filter.Status {
	case "", repositories.MatchStatusPending, repositories.MatchStatusCompleted, repositories.MatchStatusActionRequired:
	default:
		return nil, invalid("Invalid status filter: %s", filter.Status)
	}
	switch filter.TournamentType {
	case "", MatchTypeOnline, MatchTypeInPerson:
	default:
		return nil, invalid("Invalid tournament_type filter: %s", filter.TournamentType)
	}

	pairings, err := s.pairings.ListMatches(ctx, repositories.ListMatchesFilter{
		PlayerID:     playerID,
		TournamentID: filter.TournamentID,
		Status:       filter.Status,
		Limit:        clampLimit(filter.Limit, 50, 200),
		Offset:       filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMatchesListFailed, err)
	}
	if err := attachPlayers(ctx, s.players, pairings); err != nil {
		return nil, err
	}

	tournaments := make(map[string]*models.Tournament)
	now := nowUTC()
	out := make([]models.MatchView, 0, len(pairings))
	for _, p := range pairings {
		t, ok := tournaments[p.TournamentID]
		if !ok {
			t, err = s.tournaments.GetByID(ctx, nil, p.TournamentID)
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				t = nil
			} else if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMatchesListFailed, err)
			}
			tournaments[p.TournamentID] = t
		}
		if t == nil {
			continue
		}
		if filter.TournamentType == MatchTypeOnline && !t.IsOnline {
			continue
		}
		if filter.TournamentType == MatchTypeInPerson && t.IsOnline {
			continue
		}
		out = append(out, models.MatchView{
			PairingView: p.View(now),
			Tournament: models.TournamentBrief{
				ID:          t.ID,
				Name:        t.Name,
				IsOnline:    t.IsOnline,
				TimeControl: t.TimeControl,
				Status:      t.Status,
			},
		})
	}
	return out, nil
}

func (s *matchService) ActionRequiredCount(ctx context.Context, playerID string) (*repositories.ActionRequiredCount, error) {
	return s.pairings.CountActionRequired(ctx, playerID)
}
