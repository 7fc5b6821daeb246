package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/checked/brackets"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

var timeControlPattern = regexp.MustCompile(`^\d+\+\d+$`)

// TournamentInput carries the fields of a create request; PATCH requests use
// the same struct with only the set fields non-nil.
type TournamentInput struct {
	Name                      *string                   `json:"name"`
	Description               *string                   `json:"description"`
	Format                    *models.TournamentFormat  `json:"format"`
	TotalRounds               *int                      `json:"total_rounds"`
	TimeControl               *string                   `json:"time_control"`
	MaxPlayers                *int                      `json:"max_players"`
	RegistrationClose         *time.Time                `json:"registration_close"`
	StartDate                 *time.Time                `json:"start_date"`
	Status                    *models.TournamentStatus  `json:"status"`
	IsOnline                  *bool                     `json:"is_online"`
	Venue                     *string                   `json:"venue"`
	ResultConfirmationMinutes *int                      `json:"result_confirmation_minutes"`
	CountyRestrictions        *[]string                 `json:"county_restrictions"`
	MinRating                 *int                      `json:"min_rating"`
	MaxRating                 *int                      `json:"max_rating"`
	MinAge                    *int                      `json:"min_age"`
	MaxAge                    *int                      `json:"max_age"`
	GenderRestriction         *models.GenderRestriction `json:"gender_restriction"`
	AllowedClubs              *[]string                 `json:"allowed_clubs"`
	EntryFee                  *float64                  `json:"entry_fee"`
	PrizePool                 *float64                  `json:"prize_pool"`
}

type TournamentListFilter struct {
	Status       *models.TournamentStatus
	Format       *models.TournamentFormat
	Search       string
	County       string
	MinRating    *int
	MaxRating    *int
	Age          *int
	Gender       string
	FreeOnly     bool
	PaidOnly     bool
	EligibleOnly bool
	Offset       int
	Limit        int
}

type Eligibility struct {
	Eligible        bool    `json:"eligible"`
	Reason          *string `json:"reason"`
	AlreadyJoined   bool    `json:"already_joined"`
	SeedRating      int     `json:"seed_rating"`
	RequiresPayment bool    `json:"requires_payment"`
	EntryFee        float64 `json:"entry_fee"`
}

// TournamentService manages tournaments and their registrations.
type TournamentService interface {
	Create(ctx context.Context, admin *models.Player, in TournamentInput) (*models.Tournament, error)
	List(ctx context.Context, caller *models.Player, filter TournamentListFilter) ([]*models.Tournament, error)
	Get(ctx context.Context, id string) (*models.Tournament, error)
	Update(ctx context.Context, id string, in TournamentInput) (*models.Tournament, error)

	Join(ctx context.Context, player *models.Player, tournamentID string) (*models.TournamentStanding, error)
	CheckEligibility(ctx context.Context, player *models.Player, tournamentID string) (*Eligibility, error)
	Withdraw(ctx context.Context, player *models.Player, tournamentID string) error
	Players(ctx context.Context, tournamentID string) ([]models.TournamentStanding, error)
	Standings(ctx context.Context, tournamentID string) (*models.Standings, error)

	IsParticipant(ctx context.Context, tournamentID, playerID string) (bool, error)
}

type tournamentService struct {
	db          *sql.DB
	tournaments repositories.TournamentRepository
	entries     repositories.TournamentPlayerRepository
	pairings    repositories.PairingRepository
	players     repositories.PlayerRepository
	chess       ChessComClient
	logger      *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournaments repositories.TournamentRepository,
	entries repositories.TournamentPlayerRepository,
	pairings repositories.PairingRepository,
	players repositories.PlayerRepository,
	chess ChessComClient,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:          db,
		tournaments: tournaments,
		entries:     entries,
		pairings:    pairings,
		players:     players,
		chess:       chess,
		logger:      orDefaultLogger(logger),
	}
}

func validateLocations(names []string) error {
	for _, name := range names {
		if _, isRegion := utils.Regions[name]; !isRegion && !utils.IsCounty(name) {
			return invalid("Unknown county or region: %s", name)
		}
	}
	return nil
}

func validateRange(what string, min, max *int, lo, hi int) error {
	for _, v := range []*int{min, max} {
		if v != nil && (*v < lo || *v > hi) {
			return invalid("%s must be between %d and %d", what, lo, hi)
		}
	}
	if min != nil && max != nil && *max < *min {
		return invalid("max_%s must be >= min_%s", strings.ToLower(what), strings.ToLower(what))
	}
	return nil
}

// apply copies the set fields of in onto t and validates the result.
func (in TournamentInput) apply(t *models.Tournament) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) < 3 || len(name) > 200 {
			return invalid("Tournament name must be 3-200 characters")
		}
		t.Name = name
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Format != nil {
		if !in.Format.Valid() {
			return invalid("Invalid tournament format: %s", *in.Format)
		}
		t.Format = *in.Format
	}
	if in.TotalRounds != nil {
		if *in.TotalRounds < 1 || *in.TotalRounds > 15 {
			return invalid("total_rounds must be between 1 and 15")
		}
		t.TotalRounds = *in.TotalRounds
	}
	if in.TimeControl != nil {
		if !timeControlPattern.MatchString(*in.TimeControl) {
			return invalid("time_control must look like 10+0")
		}
		t.TimeControl = *in.TimeControl
	}
	if in.MaxPlayers != nil {
		if *in.MaxPlayers < 2 {
			return invalid("max_players must be at least 2")
		}
		t.MaxPlayers = in.MaxPlayers
	}
	if in.RegistrationClose != nil {
		t.RegistrationClose = ptr(in.RegistrationClose.UTC())
	}
	if in.StartDate != nil {
		t.StartDate = ptr(in.StartDate.UTC())
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return invalid("Invalid tournament status: %s", *in.Status)
		}
		t.Status = *in.Status
	}
	if in.IsOnline != nil {
		t.IsOnline = *in.IsOnline
	}
	if in.Venue != nil {
		if len(*in.Venue) > 200 {
			return invalid("venue must be at most 200 characters")
		}
		t.Venue = in.Venue
	}
	if in.ResultConfirmationMinutes != nil {
		if *in.ResultConfirmationMinutes < 1 || *in.ResultConfirmationMinutes > 60 {
			return invalid("result_confirmation_minutes must be between 1 and 60")
		}
		t.ResultConfirmationMinutes = *in.ResultConfirmationMinutes
	}
	if in.CountyRestrictions != nil {
		if err := validateLocations(*in.CountyRestrictions); err != nil {
			return err
		}
		t.CountyRestrictions = *in.CountyRestrictions
	}
	if in.MinRating != nil {
		t.MinRating = in.MinRating
	}
	if in.MaxRating != nil {
		t.MaxRating = in.MaxRating
	}
	if in.MinAge != nil {
		t.MinAge = in.MinAge
	}
	if in.MaxAge != nil {
		t.MaxAge = in.MaxAge
	}
	if err := validateRange("Rating", t.MinRating, t.MaxRating, 0, 3500); err != nil {
		return err
	}
	if err := validateRange("Age", t.MinAge, t.MaxAge, 5, 120); err != nil {
		return err
	}
	if in.GenderRestriction != nil {
		if !in.GenderRestriction.Valid() {
			return invalid("Invalid gender restriction: %s", *in.GenderRestriction)
		}
		t.GenderRestriction = *in.GenderRestriction
	}
	if in.AllowedClubs != nil {
		t.AllowedClubs = *in.AllowedClubs
	}
	if in.EntryFee != nil {
		if *in.EntryFee < 0 {
			return invalid("entry_fee cannot be negative")
		}
		t.EntryFee = *in.EntryFee
	}
	if in.PrizePool != nil {
		if *in.PrizePool < 0 {
			return invalid("prize_pool cannot be negative")
		}
		t.PrizePool = *in.PrizePool
	}
	t.Paid = t.IsPaid()
	return nil
}

func (s *tournamentService) Create(ctx context.Context, admin *models.Player, in TournamentInput) (*models.Tournament, error) {
	if in.Name == nil {
		return nil, invalid("Tournament name is required")
	}
	t := &models.Tournament{
		Format:                    models.FormatSwiss,
		TotalRounds:               models.DefaultTotalRounds,
		TimeControl:               models.DefaultTimeControl,
		Status:                    models.StatusRegistration,
		IsOnline:                  true,
		ResultConfirmationMinutes: models.DefaultResultConfirmationMinutes,
		GenderRestriction:         models.GenderOpen,
		CreatedBy:                 &admin.ID,
	}
	in.Status = nil
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.tournaments.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament created", slog.String("tournament_id", t.ID), slog.String("name", t.Name), slog.String("admin_id", admin.ID))
	return t, nil
}

// matchesFilter applies the restriction filters that need Go-side logic.
func matchesFilter(t *models.Tournament, f TournamentListFilter) bool {
	for _, r := range []*int{f.MinRating, f.MaxRating} {
		if r == nil {
			continue
		}
		if t.MinRating != nil && *t.MinRating > 0 && *r < *t.MinRating {
			return false
		}
		if t.MaxRating != nil && *t.MaxRating > 0 && *r > *t.MaxRating {
			return false
		}
	}
	if f.Age != nil {
		if t.MinAge != nil && *f.Age < *t.MinAge {
			return false
		}
		if t.MaxAge != nil && *f.Age > *t.MaxAge {
			return false
		}
	}
	if f.Gender != "" {
		if t.GenderRestriction == models.GenderMaleOnly && f.Gender != string(models.GenderMale) {
			return false
		}
		if t.GenderRestriction == models.GenderFemaleOnly && f.Gender != string(models.GenderFemale) {
			return false
		}
	}
	if f.County != "" && len(t.CountyRestrictions) > 0 && !slices.Contains(utils.ExpandRegions(t.CountyRestrictions), f.County) {
		return false
	}
	return true
}

func (s *tournamentService) List(ctx context.Context, caller *models.Player, filter TournamentListFilter) ([]*models.Tournament, error) {
	list, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{
		Status:   filter.Status,
		Format:   filter.Format,
		Search:   filter.Search,
		FreeOnly: filter.FreeOnly,
		PaidOnly: filter.PaidOnly,
		Limit:    clampLimit(filter.Limit, 20, 100),
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Tournament, 0, len(list))
	for _, t := range list {
		if !matchesFilter(t, filter) {
			continue
		}
		if filter.EligibleOnly && caller != nil && checkEligibility(caller, t, caller.SeedRating()) != "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *tournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	t, err := s.tournaments.GetByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}
	return t, nil
}

func (s *tournamentService) Update(ctx context.Context, id string, in TournamentInput) (*models.Tournament, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.tournaments.Update(ctx, t); err != nil {
		return nil, notFoundAs(err, repositories.ErrTournamentNotFound, ErrTournamentNotFound)
	}
	return t, nil
}

// checkEligibility returns the reason player may not join t, or "".
func checkEligibility(player *models.Player, t *models.Tournament, seedRating int) string {
	switch t.GenderRestriction {
	case models.GenderMaleOnly:
		if player.Gender != models.GenderMale {
			return "This tournament is for male players only"
		}
	case models.GenderFemaleOnly:
		if player.Gender != models.GenderFemale {
			return "This tournament is for female players only"
		}
	}

	if t.MinAge != nil && *t.MinAge > 0 && player.Age < *t.MinAge {
		return fmt.Sprintf("Minimum age for this tournament is %d", *t.MinAge)
	}
	if t.MaxAge != nil && *t.MaxAge > 0 && player.Age > *t.MaxAge {
		return fmt.Sprintf("Maximum age for this tournament is %d", *t.MaxAge)
	}

	if t.MinRating != nil && *t.MinRating > 0 && seedRating < *t.MinRating {
		return fmt.Sprintf("Minimum rating for this tournament is %d", *t.MinRating)
	}
	if t.MaxRating != nil && *t.MaxRating > 0 && seedRating > *t.MaxRating {
		return fmt.Sprintf("Maximum rating for this tournament is %d", *t.MaxRating)
	}

	if len(t.CountyRestrictions) > 0 {
		county := derefString(player.County)
		if county == "" {
			return "Please update your profile with your county to join this tournament"
		}
		if !slices.Contains(utils.ExpandRegions(t.CountyRestrictions), county) {
			return "This tournament is restricted to: " + strings.Join(t.CountyRestrictions, ", ")
		}
	}

	if len(t.AllowedClubs) > 0 {
		club := derefString(player.Club)
		if club == "" {
			return "Please update your profile with your club to join this tournament"
		}
		if !slices.Contains(t.AllowedClubs, club) {
			return "This tournament is restricted to clubs: " + strings.Join(t.AllowedClubs, ", ")
		}
	}
	return ""
}

// seedRating prefers live chess.com ratings and falls back to the stored ones.
func (s *tournamentService) seedRating(ctx context.Context, player *models.Player) int {
	if s.chess != nil {
		stats, err := s.chess.Stats(ctx, player.ChessComUsername)
		if err == nil && stats != nil {
			for _, r := range []*int{stats.Rapid, stats.Blitz, stats.Bullet} {
				if r != nil && *r > 0 {
					return *r
				}
			}
			return models.DefaultSeedRating
		}
		s.logger.WarnContext(ctx, "chess.com stats unavailable, using stored rating",
			slog.String("username", player.ChessComUsername), slog.Any("error", err))
	}
	return player.SeedRating()
}

func standingFor(e *models.TournamentPlayer, p *models.Player) models.TournamentStanding {
	st := models.TournamentStanding{
		PlayerID:        e.PlayerID,
		SeedRating:      e.SeedRating,
		Score:           e.Score,
		Wins:            e.Wins,
		Draws:           e.Draws,
		Losses:          e.Losses,
		Buchholz:        e.Buchholz,
		SonnebornBerger: e.SonnebornBerger,
		IsWithdrawn:     e.IsWithdrawn,
		FinalRank:       e.FinalRank,
	}
	if p != nil {
		st.ChessComUsername = p.ChessComUsername
		st.ChessComAvatar = p.ChessComAvatar
		st.County = p.County
	}
	return st
}

func (s *tournamentService) Join(ctx context.Context, player *models.Player, tournamentID string) (*models.TournamentStanding, error) {
	t, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusRegistration {
		return nil, invalid("Tournament registration is closed")
	}
	seed := s.seedRating(ctx, player)
	if reason := checkEligibility(player, t, seed); reason != "" {
		return nil, forbidden("%s", reason)
	}
	if t.IsPaid() {
		return nil, ErrPaymentRequired
	}

	var entry *models.TournamentPlayer
	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		existing, err := s.entries.Get(ctx, tx, tournamentID, player.ID)
		switch {
		case err == nil && !existing.IsWithdrawn:
			return detail(ErrConflict, "You have already joined this tournament")
		case err != nil && !errors.Is(err, repositories.ErrEntryNotFound):
			return err
		}

		if t.MaxPlayers != nil {
			count, err := s.entries.CountActive(ctx, tx, tournamentID)
			if err != nil {
				return err
			}
			if count >= *t.MaxPlayers {
				return detail(ErrConflict, "Tournament is full")
			}
		}

		if existing != nil {
			if err := s.entries.Rejoin(ctx, tx, existing.ID, seed); err != nil {
				return err
			}
			existing.IsWithdrawn = false
			existing.SeedRating = seed
			entry = existing
			return nil
		}
		entry = &models.TournamentPlayer{TournamentID: tournamentID, PlayerID: player.ID, SeedRating: seed}
		if err := s.entries.Create(ctx, tx, entry); err != nil {
			if errors.Is(err, repositories.ErrAlreadyRegistered) {
				return detail(ErrConflict, "You have already joined this tournament")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "player joined tournament",
		slog.String("tournament_id", tournamentID), slog.String("player_id", player.ID), slog.Int("seed_rating", seed))
	st := standingFor(entry, player)
	return &st, nil
}

func (s *tournamentService) CheckEligibility(ctx context.Context, player *models.Player, tournamentID string) (*Eligibility, error) {
	t, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	seed := s.seedRating(ctx, player)
	out := &Eligibility{SeedRating: seed, RequiresPayment: t.IsPaid()}
	if t.IsPaid() {
		out.EntryFee = t.EntryFee
	}
	if reason := checkEligibility(player, t, seed); reason != "" {
		out.Reason = &reason
	} else {
		out.Eligible = true
	}
	entry, err := s.entries.Get(ctx, nil, tournamentID, player.ID)
	switch {
	case err == nil:
		out.AlreadyJoined = !entry.IsWithdrawn
	case !errors.Is(err, repositories.ErrEntryNotFound):
		return nil, err
	}
	return out, nil
}

func (s *tournamentService) Withdraw(ctx context.Context, player *models.Player, tournamentID string) error {
	t, err := s.Get(ctx, tournamentID)
	if err != nil {
		return err
	}
	entry, err := s.entries.Get(ctx, nil, tournamentID, player.ID)
	if err != nil {
		return notFoundAs(err, repositories.ErrEntryNotFound, ErrNotRegistered)
	}
	if entry.IsWithdrawn {
		return ErrNotRegistered
	}
	if t.Status != models.StatusRegistration {
		return invalid("Cannot withdraw once the tournament has started")
	}
	if err := s.entries.Withdraw(ctx, nil, entry.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "player withdrew", slog.String("tournament_id", tournamentID), slog.String("player_id", player.ID))
	return nil
}

func (s *tournamentService) loadEntries(ctx context.Context, tournamentID string) ([]*models.TournamentPlayer, map[string]*models.Player, error) {
	entries, err := s.entries.ListByTournament(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	players, err := s.players.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return entries, players, nil
}

func (s *tournamentService) Players(ctx context.Context, tournamentID string) ([]models.TournamentStanding, error) {
	if _, err := s.Get(ctx, tournamentID); err != nil {
		return nil, err
	}
	entries, players, err := s.loadEntries(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].SeedRating > entries[j].SeedRating })
	out := make([]models.TournamentStanding, 0, len(entries))
	for _, e := range entries {
		out = append(out, standingFor(e, players[e.PlayerID]))
	}
	return out, nil
}

// Standings ranks live by score, Buchholz, Sonneborn-Berger and wins. A
// completed tournament keeps the order of its final ranks.
func (s *tournamentService) Standings(ctx context.Context, tournamentID string) (*models.Standings, error) {
	t, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	entries, players, err := s.loadEntries(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	history, err := s.pairings.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return nil, err
	}
	tiebreaks := brackets.ComputeTiebreaks(entries, history)
	for _, e := range entries {
		tb := tiebreaks[e.PlayerID]
		e.Buchholz, e.SonnebornBerger = tb.Buchholz, tb.SonnebornBerger
	}

	if t.Status == models.StatusCompleted {
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i].FinalRank, entries[j].FinalRank
			if a == nil || b == nil {
				return a != nil
			}
			return *a < *b
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			switch {
			case a.Score != b.Score:
				return a.Score > b.Score
			case a.Buchholz != b.Buchholz:
				return a.Buchholz > b.Buchholz
			case a.SonnebornBerger != b.SonnebornBerger:
				return a.SonnebornBerger > b.SonnebornBerger
			}
			return a.Wins > b.Wins
		})
	}

	out := &models.Standings{
		TournamentID:   t.ID,
		TournamentName: t.Name,
		CurrentRound:   t.CurrentRound,
		TotalRounds:    t.TotalRounds,
		Standings:      make([]models.TournamentStanding, 0, len(entries)),
	}
	for i, e := range entries {
		st := standingFor(e, players[e.PlayerID])
		st.Rank = i + 1
		out.Standings = append(out.Standings, st)
	}
	return out, nil
}

// IsParticipant reports an active registration. It backs the websocket
// subscribe check.
func (s *tournamentService) IsParticipant(ctx context.Context, tournamentID, playerID string) (bool, error) {
	entry, err := s.entries.Get(ctx, nil, tournamentID, playerID)
	if errors.Is(err, repositories.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !entry.IsWithdrawn, nil
}
