package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

const maxAnalyticsDays = 365

type UserGrowth struct {
	PeriodDays int                 `json:"period_days"`
	Data       []models.DailyCount `json:"data"`
}

type TournamentActivity struct {
	PeriodDays int                  `json:"period_days"`
	Data       []models.ActivityDay `json:"data"`
}

// AnalyticsService backs the admin dashboard.
type AnalyticsService interface {
	Summary(ctx context.Context) (*models.AnalyticsSummary, error)
	UserGrowth(ctx context.Context, days int) (*UserGrowth, error)
	TournamentActivity(ctx context.Context, days int) (*TournamentActivity, error)
}

type analyticsService struct {
	stats   repositories.StatsRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAnalyticsService(stats repositories.StatsRepository, m *metrics.Metrics) AnalyticsService {
	return &analyticsService{stats: stats, metrics: m, now: nowUTC}
}

// growthRate compares this week's registrations with the week before.
func growthRate(thisWeek, lastWeek int) float64 {
	switch {
	case lastWeek > 0:
		return roundTo(float64(thisWeek-lastWeek)/float64(lastWeek)*100, 1)
	case thisWeek > 0:
		return 100
	}
	return 0
}

func (s *analyticsService) Summary(ctx context.Context) (*models.AnalyticsSummary, error) {
	c, err := s.stats.Summary(ctx, s.now())
	if err != nil {
		return nil, err
	}
	out := &models.AnalyticsSummary{
		TotalUsers:        c.TotalUsers,
		NewUsersWeek:      c.NewUsersWeek,
		NewUsersMonth:     c.NewUsersMonth,
		GrowthRate:        growthRate(c.NewUsersWeek, c.NewUsersPrevWeek),
		ActiveTournaments: c.ActiveTournaments,
		TotalTournaments:  c.TotalTournaments,
		GamesThisWeek:     c.GamesThisWeek,
	}
	if s.metrics != nil {
		out.TotalRequestsToday = int(s.metrics.TotalRequestsToday())
	}
	return out, nil
}

// days walks the last n days, oldest first, ending today.
func (s *analyticsService) days(n int, fn func(day time.Time, key string)) {
	today := s.now().Truncate(24 * time.Hour)
	for i := n - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		fn(d, d.Format("2006-01-02"))
	}
}

func clampDays(days int) int {
	if days <= 0 {
		return 30
	}
	return min(days, maxAnalyticsDays)
}

func (s *analyticsService) UserGrowth(ctx context.Context, days int) (*UserGrowth, error) {
	days = clampDays(days)
	start := s.now().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	counts, err := s.stats.CountByDay(ctx, repositories.SeriesRegistrations, start)
	if err != nil {
		return nil, err
	}
	total, err := s.stats.CountPlayersBefore(ctx, start)
	if err != nil {
		return nil, err
	}
	out := &UserGrowth{PeriodDays: days, Data: make([]models.DailyCount, 0, days)}
	s.days(days, func(day time.Time, key string) {
		total += counts[key]
		out.Data = append(out.Data, models.DailyCount{
			Date:       key,
			Name:       day.Format("Jan 02"),
			NewUsers:   counts[key],
			TotalUsers: total,
		})
	})
	return out, nil
}

func (s *analyticsService) TournamentActivity(ctx context.Context, days int) (*TournamentActivity, error) {
	days = clampDays(days)
	start := s.now().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	created, err := s.stats.CountByDay(ctx, repositories.SeriesTournamentsCreated, start)
	if err != nil {
		return nil, err
	}
	games, err := s.stats.CountByDay(ctx, repositories.SeriesGamesPlayed, start)
	if err != nil {
		return nil, err
	}
	out := &TournamentActivity{PeriodDays: days, Data: make([]models.ActivityDay, 0, days)}
	s.days(days, func(day time.Time, key string) {
		out.Data = append(out.Data, models.ActivityDay{
			Date:        key,
			Name:        day.Format("Jan 02"),
			Tournaments: created[key],
			Games:       games[key],
		})
	})
	return out, nil
}

type FormatInfo struct {
	Value              models.TournamentFormat `json:"value"`
	Label              string                  `json:"label"`
	Description        string                  `json:"description"`
	RecommendedPlayers string                  `json:"recommended_players"`
	RoundsFormula      string                  `json:"rounds_formula"`
}

var tournamentFormats = []FormatInfo{
	{
		Value:              models.FormatSwiss,
		Label:              "Swiss System",
		Description:        "Players with similar scores are paired. Best for large tournaments (10+ players).",
		RecommendedPlayers: "10-500+",
		RoundsFormula:      "Recommended: log2(players) + 1, e.g., 5-7 rounds for 32 players",
	},
	{
		Value:              models.FormatRoundRobin,
		Label:              "Round Robin",
		Description:        "Everyone plays everyone exactly once. Best for small tournaments.",
		RecommendedPlayers: "4-12",
		RoundsFormula:      "Required: N-1 rounds (N players)",
	},
}

type RoundsPlan struct {
	Format            models.TournamentFormat `json:"format"`
	PlayerCount       int                     `json:"player_count"`
	GamesPerRound     int                     `json:"games_per_round"`
	RoundsRequired    int                     `json:"rounds_required,omitempty"`
	TotalGames        int                     `json:"total_games,omitempty"`
	Warning           *string                 `json:"warning,omitempty"`
	MinimumRounds     int                     `json:"minimum_rounds,omitempty"`
	RecommendedRounds int                     `json:"recommended_rounds,omitempty"`
	MaximumRounds     int                     `json:"maximum_rounds,omitempty"`
	Note              string                  `json:"note,omitempty"`
}

type UpcomingTournament struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Format            models.TournamentFormat `json:"format"`
	TimeControl       string                  `json:"time_control"`
	TotalRounds       int                     `json:"total_rounds"`
	MaxPlayers        *int                    `json:"max_players"`
	StartDate         *time.Time              `json:"start_date"`
	RegistrationClose *time.Time              `json:"registration_close"`
}

// CatalogService serves the reference data and homepage figures.
type CatalogService interface {
	Formats() []FormatInfo
	CalculateRounds(format models.TournamentFormat, players int) (*RoundsPlan, error)
	PublicStats(ctx context.Context) (*models.PublicStats, error)
	Upcoming(ctx context.Context, limit int) ([]UpcomingTournament, error)
}

type catalogService struct {
	stats       repositories.StatsRepository
	tournaments repositories.TournamentRepository
}

func NewCatalogService(stats repositories.StatsRepository, tournaments repositories.TournamentRepository) CatalogService {
	return &catalogService{stats: stats, tournaments: tournaments}
}

func (s *catalogService) Formats() []FormatInfo {
	return tournamentFormats
}

func (s *catalogService) CalculateRounds(format models.TournamentFormat, players int) (*RoundsPlan, error) {
	if players < 2 {
		return nil, invalid("Need at least 2 players")
	}
	plan := &RoundsPlan{Format: format, PlayerCount: players, GamesPerRound: players / 2}
	switch format {
	case models.FormatRoundRobin:
		plan.RoundsRequired = utils.RoundRobinRounds(players)
		plan.TotalGames = players * (players - 1) / 2
		if players > 12 {
			plan.Warning = ptr("Round Robin not recommended for 12+ players")
		}
	case models.FormatSwiss:
		plan.MinimumRounds = utils.SwissMinimumRounds(players)
		plan.RecommendedRounds = plan.MinimumRounds + 1
		plan.MaximumRounds = plan.MinimumRounds + 3
		plan.Note = fmt.Sprintf("With %d rounds, expect a clear winner", plan.RecommendedRounds)
	default:
		return nil, invalid("Unknown format: %s. Use 'swiss' or 'round_robin'", format)
	}
	return plan, nil
}

// PublicStats falls back to the number of counties in Kenya before any
// player has set one.
func (s *catalogService) PublicStats(ctx context.Context) (*models.PublicStats, error) {
	out, err := s.stats.PublicStats(ctx)
	if err != nil {
		return nil, err
	}
	if out.Counties == 0 {
		out.Counties = len(utils.Counties)
	}
	return out, nil
}

func (s *catalogService) Upcoming(ctx context.Context, limit int) ([]UpcomingTournament, error) {
	list, err := s.tournaments.Upcoming(ctx, clampLimit(limit, 3, 20))
	if err != nil {
		return nil, err
	}
	out := make([]UpcomingTournament, 0, len(list))
	for _, t := range list {
		out = append(out, UpcomingTournament{
			ID:                t.ID,
			Name:              t.Name,
			Format:            t.Format,
			TimeControl:       t.TimeControl,
			TotalRounds:       t.TotalRounds,
			MaxPlayers:        t.MaxPlayers,
			StartDate:         t.StartDate,
			RegistrationClose: t.RegistrationClose,
		})
	}
	return out, nil
}
