package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/checked/models"
)

// DaySeries names a timestamp column that analytics can bucket by day.
type DaySeries int

const (
	SeriesRegistrations DaySeries = iota
	SeriesTournamentsCreated
	SeriesGamesPlayed
)

func (s DaySeries) source() (table, column string) {
	switch s {
	case SeriesTournamentsCreated:
		return "tournaments", "created_at"
	case SeriesGamesPlayed:
		return "pairings", "played_at"
	default:
		return "players", "created_at"
	}
}

// LeaderboardRow is a player with the totals of their tournament entries.
type LeaderboardRow struct {
	PlayerID         string
	ChessComUsername string
	ChessComAvatar   *string
	County           *string
	Club             *string
	ChessComStatus   *string
	Totals           models.PlayerTotals
}

type SummaryCounts struct {
	TotalUsers        int
	NewUsersWeek      int
	NewUsersMonth     int
	NewUsersPrevWeek  int
	ActiveTournaments int
	TotalTournaments  int
	GamesThisWeek     int
}

type StatsRepository interface {
	PlayerTotals(ctx context.Context, playerID string) (models.PlayerTotals, error)
	LeaderboardRows(ctx context.Context, county string) ([]LeaderboardRow, error)
	CountByDay(ctx context.Context, series DaySeries, since time.Time) (map[string]int, error)
	CountPlayersBefore(ctx context.Context, before time.Time) (int, error)
	Summary(ctx context.Context, at time.Time) (*SummaryCounts, error)
	PublicStats(ctx context.Context) (*models.PublicStats, error)
}

type sqliteStatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) StatsRepository {
	return &sqliteStatsRepository{db: db}
}

// Placings only count in completed tournaments.
const totalsColumns = `
	COUNT(tp.id),
	COALESCE(SUM(CASE WHEN t.status = 'completed' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(tp.wins), 0),
	COALESCE(SUM(tp.draws), 0),
	COALESCE(SUM(tp.losses), 0),
	COALESCE(SUM(tp.score), 0),
	COALESCE(SUM(CASE WHEN t.status = 'completed' AND tp.final_rank = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN t.status = 'completed' AND tp.final_rank = 2 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN t.status = 'completed' AND tp.final_rank = 3 THEN 1 ELSE 0 END), 0),
	MIN(CASE WHEN t.status = 'completed' THEN tp.final_rank END)`

func totalsDest(t *models.PlayerTotals) []interface{} {
	return []interface{}{
		&t.Tournaments, &t.Completed, &t.Wins, &t.Draws, &t.Losses, &t.TotalScore,
		&t.FirstPlaces, &t.SecondPlaces, &t.ThirdPlaces, &t.BestRank,
	}
}

func (r *sqliteStatsRepository) PlayerTotals(ctx context.Context, playerID string) (models.PlayerTotals, error) {
	var totals models.PlayerTotals
	query := `SELECT ` + totalsColumns + `
		FROM tournament_players tp
		JOIN tournaments t ON t.id = tp.tournament_id
		WHERE tp.player_id = ? AND tp.is_withdrawn = 0`
	if err := r.db.QueryRowContext(ctx, query, playerID).Scan(totalsDest(&totals)...); err != nil {
		return totals, fmt.Errorf("failed to aggregate player stats: %w", err)
	}
	return totals, nil
}

// LeaderboardRows returns active players with at least one non-withdrawn entry.
func (r *sqliteStatsRepository) LeaderboardRows(ctx context.Context, county string) ([]LeaderboardRow, error) {
	query := `SELECT p.id, p.chess_com_username, p.chess_com_avatar, p.county, p.club, p.chess_com_status,` + totalsColumns + `
		FROM players p
		JOIN tournament_players tp ON tp.player_id = p.id AND tp.is_withdrawn = 0
		JOIN tournaments t ON t.id = tp.tournament_id
		WHERE p.is_active = 1`
	var args []interface{}
	if county = strings.TrimSpace(county); county != "" {
		query += " AND LOWER(p.county) = ?"
		args = append(args, strings.ToLower(county))
	}
	query += " GROUP BY p.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0)
	for rows.Next() {
		var row LeaderboardRow
		dest := append([]interface{}{
			&row.PlayerID, &row.ChessComUsername, &row.ChessComAvatar, &row.County, &row.Club, &row.ChessComStatus,
		}, totalsDest(&row.Totals)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountByDay buckets rows by the UTC date (YYYY-MM-DD) of the series column.
func (r *sqliteStatsRepository) CountByDay(ctx context.Context, series DaySeries, since time.Time) (map[string]int, error) {
	table, column := series.source()
	query := fmt.Sprintf(`SELECT substr(%[2]s, 1, 10) AS day, COUNT(*)
		FROM %[1]s
		WHERE %[2]s IS NOT NULL AND %[2]s >= ?
		GROUP BY day`, table, column)

	rows, err := r.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count %s by day: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		out[day] = n
	}
	return out, rows.Err()
}

func (r *sqliteStatsRepository) CountPlayersBefore(ctx context.Context, before time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE created_at < ?`, before.UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func (r *sqliteStatsRepository) Summary(ctx context.Context, at time.Time) (*SummaryCounts, error) {
	at = at.UTC()
	weekAgo := at.AddDate(0, 0, -7)
	monthAgo := at.AddDate(0, 0, -30)
	twoWeeksAgo := at.AddDate(0, 0, -14)

	s := &SummaryCounts{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM players),
			(SELECT COUNT(*) FROM players WHERE created_at >= ?),
			(SELECT COUNT(*) FROM players WHERE created_at >= ?),
			(SELECT COUNT(*) FROM players WHERE created_at >= ? AND created_at < ?),
			(SELECT COUNT(*) FROM tournaments WHERE status = 'active'),
			(SELECT COUNT(*) FROM tournaments),
			(SELECT COUNT(*) FROM pairings WHERE played_at IS NOT NULL AND played_at >= ?)`,
		weekAgo, monthAgo, twoWeeksAgo, weekAgo, weekAgo,
	).Scan(&s.TotalUsers, &s.NewUsersWeek, &s.NewUsersMonth, &s.NewUsersPrevWeek,
		&s.ActiveTournaments, &s.TotalTournaments, &s.GamesThisWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to collect analytics summary: %w", err)
	}
	return s, nil
}

func (r *sqliteStatsRepository) PublicStats(ctx context.Context) (*models.PublicStats, error) {
	s := &models.PublicStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM players WHERE is_active = 1),
			(SELECT COUNT(*) FROM tournaments),
			(SELECT COUNT(*) FROM tournaments WHERE status = 'completed'),
			(SELECT COUNT(*) FROM tournaments WHERE status = 'active'),
			(SELECT COUNT(*) FROM tournaments WHERE status = 'registration'),
			(SELECT COUNT(DISTINCT county) FROM players WHERE county IS NOT NULL AND is_active = 1)`,
	).Scan(&s.Players, &s.Tournaments, &s.CompletedTournaments, &s.ActiveTournaments, &s.OpenTournaments, &s.Counties)
	if err != nil {
		return nil, fmt.Errorf("failed to collect public stats: %w", err)
	}
	return s, nil
}
