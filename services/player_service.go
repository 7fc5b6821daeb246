package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/utils"
)

const ratingSyncConcurrency = 4

type PlayerPatch struct {
	Phone  *string `json:"phone"`
	Age    *int    `json:"age"`
	Gender *string `json:"gender"`
	County *string `json:"county"`
	Club   *string `json:"club"`
}

type PlayerListFilter struct {
	County string
	Search string
	Offset int
	Limit  int
}

type RatingSyncReport struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

type EntryStats struct {
	Rank        *int    `json:"rank"`
	Score       float64 `json:"score"`
	Wins        int     `json:"wins"`
	Draws       int     `json:"draws"`
	Losses      int     `json:"losses"`
	IsWithdrawn bool    `json:"is_withdrawn"`
}

type TournamentHistoryEntry struct {
	TournamentID string                  `json:"tournament_id"`
	Name         string                  `json:"name"`
	Format       models.TournamentFormat `json:"format"`
	Status       models.TournamentStatus `json:"status"`
	StartDate    *time.Time              `json:"start_date"`
	EndDate      *time.Time              `json:"end_date"`
	TotalRounds  int                     `json:"total_rounds"`
	CurrentRound int                     `json:"current_round"`
	PlayerStats  EntryStats              `json:"player_stats"`
	JoinedAt     time.Time               `json:"joined_at"`
}

type TournamentCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
}

type PlayerStats struct {
	PlayerID         string              `json:"player_id"`
	ChessComUsername string              `json:"chess_com_username"`
	Tournaments      TournamentCounts    `json:"tournaments"`
	Games            models.GameStats    `json:"games"`
	Achievements     models.Achievements `json:"achievements"`
	TotalScore       float64             `json:"total_score"`
}

type LeaderboardSort string

const (
	SortByWins        LeaderboardSort = "wins"
	SortByWinRate     LeaderboardSort = "win_rate"
	SortByTournaments LeaderboardSort = "tournaments"
	SortByPodiums     LeaderboardSort = "podiums"
	SortByScore       LeaderboardSort = "score"
)

type LeaderboardQuery struct {
	SortBy LeaderboardSort
	County string
	Offset int
	Limit  int
}

type Leaderboard struct {
	SortBy       LeaderboardSort           `json:"sort_by"`
	CountyFilter *string                   `json:"county_filter"`
	Total        int                       `json:"total"`
	Showing      int                       `json:"showing"`
	Entries      []models.LeaderboardEntry `json:"leaderboard"`
}

// PlayerService covers profiles, chess.com rating refreshes and player
// statistics.
type PlayerService interface {
	List(ctx context.Context, filter PlayerListFilter) ([]*models.Player, error)
	Get(ctx context.Context, id string) (*models.Player, error)
	GetByUsername(ctx context.Context, username string) (*models.Player, error)
	UpdateProfile(ctx context.Context, player *models.Player, patch PlayerPatch) (*models.Player, error)

	RefreshAvatar(ctx context.Context, player *models.Player) (*models.Player, error)
	RefreshRatings(ctx context.Context, playerID string) (*models.Player, error)
	RefreshAllRatings(ctx context.Context) (*RatingSyncReport, error)

	ToggleAdmin(ctx context.Context, playerID string) (*models.Player, error)
	ToggleActive(ctx context.Context, playerID string) (*models.Player, error)

	Tournaments(ctx context.Context, playerID string, status *models.TournamentStatus, offset, limit int) ([]TournamentHistoryEntry, error)
	Stats(ctx context.Context, playerID string) (*PlayerStats, error)
	Leaderboard(ctx context.Context, q LeaderboardQuery) (*Leaderboard, error)
}

type playerService struct {
	players repositories.PlayerRepository
	entries repositories.TournamentPlayerRepository
	stats   repositories.StatsRepository
	chess   ChessComClient
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewPlayerService(
	players repositories.PlayerRepository,
	entries repositories.TournamentPlayerRepository,
	stats repositories.StatsRepository,
	chess ChessComClient,
	m *metrics.Metrics,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		players: players,
		entries: entries,
		stats:   stats,
		chess:   chess,
		metrics: m,
		logger:  orDefaultLogger(logger),
		now:     nowUTC,
	}
}

func (s *playerService) List(ctx context.Context, filter PlayerListFilter) ([]*models.Player, error) {
	return s.players.List(ctx, repositories.ListPlayersFilter{
		County: filter.County,
		Search: filter.Search,
		Limit:  clampLimit(filter.Limit, 50, 500),
		Offset: filter.Offset,
	})
}

func (s *playerService) Get(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.players.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	return p, nil
}

func (s *playerService) GetByUsername(ctx context.Context, username string) (*models.Player, error) {
	p, err := s.players.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	return p, nil
}

func (s *playerService) UpdateProfile(ctx context.Context, player *models.Player, patch PlayerPatch) (*models.Player, error) {
	updated := *player
	if patch.Phone != nil {
		phone, err := utils.NormalizePhone(*patch.Phone)
		if err != nil {
			return nil, invalid("%s", err.Error())
		}
		updated.Phone = phone
	}
	if patch.Age != nil {
		if *patch.Age < 5 || *patch.Age > 120 {
			return nil, invalid("Age must be between 5 and 120")
		}
		updated.Age = *patch.Age
	}
	if patch.Gender != nil {
		g := models.Gender(strings.ToLower(strings.TrimSpace(*patch.Gender)))
		if !g.Valid() {
			return nil, invalid("Gender must be one of: male, female, other")
		}
		updated.Gender = g
	}
	if patch.County != nil {
		if *patch.County != "" && !utils.IsCounty(*patch.County) {
			return nil, invalid("Unknown county: %s", *patch.County)
		}
		updated.County = optional(*patch.County)
	}
	if patch.Club != nil {
		updated.Club = optional(strings.TrimSpace(*patch.Club))
	}

	if err := s.players.Update(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrPlayerPhoneConflict) {
			return nil, detail(ErrConflict, "%s", ErrAuthPhoneTaken.Error())
		}
		return nil, notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	return &updated, nil
}

func (s *playerService) RefreshAvatar(ctx context.Context, player *models.Player) (*models.Player, error) {
	profile, err := s.chess.Profile(ctx, player.ChessComUsername)
	if err != nil {
		s.logger.WarnContext(ctx, "chess.com profile unavailable", slog.String("username", player.ChessComUsername), slog.Any("error", err))
		return player, nil
	}
	at := s.now()
	if player.RatingsUpdatedAt != nil {
		at = *player.RatingsUpdatedAt
	}
	upd := repositories.RatingUpdate{
		Rapid:  player.RatingRapid,
		Blitz:  player.RatingBlitz,
		Bullet: player.RatingBullet,
		Avatar: optional(profile.Avatar),
		Status: optional(profile.Status),
	}
	if err := s.players.UpdateRatings(ctx, player.ID, upd, at); err != nil {
		return nil, err
	}
	return s.Get(ctx, player.ID)
}

// syncRatings pulls current chess.com ratings into one player row.
func (s *playerService) syncRatings(ctx context.Context, p *models.Player) error {
	stats, err := s.chess.Stats(ctx, p.ChessComUsername)
	if err != nil {
		return fmt.Errorf("stats for %s: %w", p.ChessComUsername, err)
	}
	upd := repositories.RatingUpdate{Rapid: stats.Rapid, Blitz: stats.Blitz, Bullet: stats.Bullet}
	if err := s.players.UpdateRatings(ctx, p.ID, upd, s.now()); err != nil {
		return fmt.Errorf("update %s: %w", p.ChessComUsername, err)
	}
	return nil
}

func (s *playerService) RefreshRatings(ctx context.Context, playerID string) (*models.Player, error) {
	p, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	err = s.syncRatings(ctx, p)
	if s.metrics != nil {
		s.metrics.Outcome(s.metrics.RatingSyncs, err)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "rating refresh failed", slog.String("player_id", playerID), slog.Any("error", err))
		return p, nil
	}
	return s.Get(ctx, playerID)
}

// RefreshAllRatings syncs every active player with a few requests in flight.
// Individual failures are counted and logged; the combined error is returned
// alongside the report.
func (s *playerService) RefreshAllRatings(ctx context.Context) (*RatingSyncReport, error) {
	players, err := s.players.List(ctx, repositories.ListPlayersFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		errs   *multierror.Error
		report = &RatingSyncReport{Total: len(players)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ratingSyncConcurrency)
	for _, p := range players {
		p := p
		g.Go(func() error {
			err := s.syncRatings(gctx, p)
			if s.metrics != nil {
				s.metrics.Outcome(s.metrics.RatingSyncs, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				errs = multierror.Append(errs, err)
				return nil
			}
			report.Updated++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "ratings refreshed",
		slog.Int("updated", report.Updated), slog.Int("failed", report.Failed), slog.Int("total", report.Total))
	return report, errs.ErrorOrNil()
}

func (s *playerService) ToggleAdmin(ctx context.Context, playerID string) (*models.Player, error) {
	p, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.players.SetAdmin(ctx, p.ID, !p.IsAdmin); err != nil {
		return nil, err
	}
	p.IsAdmin = !p.IsAdmin
	s.logger.InfoContext(ctx, "admin toggled", slog.String("player_id", p.ID), slog.Bool("is_admin", p.IsAdmin))
	return p, nil
}

func (s *playerService) ToggleActive(ctx context.Context, playerID string) (*models.Player, error) {
	p, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.players.SetActive(ctx, p.ID, !p.IsActive); err != nil {
		return nil, err
	}
	p.IsActive = !p.IsActive
	s.logger.InfoContext(ctx, "account status toggled", slog.String("player_id", p.ID), slog.Bool("is_active", p.IsActive))
	return p, nil
}

func (s *playerService) Tournaments(ctx context.Context, playerID string, status *models.TournamentStatus, offset, limit int) ([]TournamentHistoryEntry, error) {
	if status != nil && !status.Valid() {
		status = nil
	}
	list, err := s.entries.ListParticipations(ctx, repositories.ListParticipationsFilter{
		PlayerID: playerID,
		Status:   status,
		Limit:    clampLimit(limit, 20, 100),
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]TournamentHistoryEntry, 0, len(list))
	for _, p := range list {
		t, e := p.Tournament, p.Entry
		out = append(out, TournamentHistoryEntry{
			TournamentID: t.ID,
			Name:         t.Name,
			Format:       t.Format,
			Status:       t.Status,
			StartDate:    t.StartDate,
			EndDate:      t.EndDate,
			TotalRounds:  t.TotalRounds,
			CurrentRound: t.CurrentRound,
			PlayerStats: EntryStats{
				Rank:        e.FinalRank,
				Score:       e.Score,
				Wins:        e.Wins,
				Draws:       e.Draws,
				Losses:      e.Losses,
				IsWithdrawn: e.IsWithdrawn,
			},
			JoinedAt: e.JoinedAt,
		})
	}
	return out, nil
}

func (s *playerService) Stats(ctx context.Context, playerID string) (*PlayerStats, error) {
	p, err := s.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	totals, err := s.stats.PlayerTotals(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &PlayerStats{
		PlayerID:         p.ID,
		ChessComUsername: p.ChessComUsername,
		Tournaments: TournamentCounts{
			Total:     totals.Tournaments,
			Completed: totals.Completed,
			Active:    totals.Tournaments - totals.Completed,
		},
		Games:        totals.GameStats(),
		Achievements: totals.Achievements(),
		TotalScore:   totals.TotalScore,
	}, nil
}

// leaderboardLess orders entries by the primary key of sort, then its
// secondary key.
func leaderboardLess(by LeaderboardSort) func(a, b models.LeaderboardStats) bool {
	switch by {
	case SortByWinRate:
		return func(a, b models.LeaderboardStats) bool {
			if a.WinRate != b.WinRate {
				return a.WinRate > b.WinRate
			}
			return a.TotalGames > b.TotalGames
		}
	case SortByTournaments:
		return func(a, b models.LeaderboardStats) bool {
			if a.TournamentsPlayed != b.TournamentsPlayed {
				return a.TournamentsPlayed > b.TournamentsPlayed
			}
			return a.Wins > b.Wins
		}
	case SortByPodiums:
		return func(a, b models.LeaderboardStats) bool {
			if a.PodiumFinishes != b.PodiumFinishes {
				return a.PodiumFinishes > b.PodiumFinishes
			}
			return a.FirstPlaces > b.FirstPlaces
		}
	case SortByScore:
		return func(a, b models.LeaderboardStats) bool {
			if a.TotalScore != b.TotalScore {
				return a.TotalScore > b.TotalScore
			}
			return a.Wins > b.Wins
		}
	default:
		return func(a, b models.LeaderboardStats) bool {
			if a.Wins != b.Wins {
				return a.Wins > b.Wins
			}
			return a.WinRate > b.WinRate
		}
	}
}

func (s *playerService) Leaderboard(ctx context.Context, q LeaderboardQuery) (*Leaderboard, error) {
	switch q.SortBy {
	case SortByWins, SortByWinRate, SortByTournaments, SortByPodiums, SortByScore:
	default:
		q.SortBy = SortByWins
	}
	rows, err := s.stats.LeaderboardRows(ctx, q.County)
	if err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.LeaderboardEntry{
			PlayerID:         r.PlayerID,
			ChessComUsername: r.ChessComUsername,
			ChessComAvatar:   r.ChessComAvatar,
			County:           r.County,
			Club:             r.Club,
			ChessComStatus:   r.ChessComStatus,
			Stats:            r.Totals.LeaderboardStats(),
		})
	}
	less := leaderboardLess(q.SortBy)
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i].Stats, entries[j].Stats) })
	for i := range entries {
		entries[i].Rank = i + 1
	}

	total := len(entries)
	limit := clampLimit(q.Limit, 50, 200)
	start := min(max(q.Offset, 0), total)
	end := min(start+limit, total)
	page := entries[start:end]

	return &Leaderboard{
		SortBy:       q.SortBy,
		CountyFilter: optional(q.County),
		Total:        total,
		Showing:      len(page),
		Entries:      page,
	}, nil
}
