package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/utils"
)

func TestGrowthRate(t *testing.T) {
	assert.Equal(t, 50.0, growthRate(3, 2))
	assert.Equal(t, -33.3, growthRate(2, 3))
	assert.Equal(t, 100.0, growthRate(4, 0))
	assert.Equal(t, 0.0, growthRate(0, 0))
}

func TestCalculateRounds(t *testing.T) {
	svc := NewCatalogService(nil, nil)

	plan, err := svc.CalculateRounds(models.FormatRoundRobin, 14)
	require.NoError(t, err)
	assert.Equal(t, 13, plan.RoundsRequired)
	assert.Equal(t, 91, plan.TotalGames)
	assert.NotNil(t, plan.Warning)

	plan, err = svc.CalculateRounds(models.FormatSwiss, 32)
	require.NoError(t, err)
	assert.Equal(t, 5, plan.MinimumRounds)
	assert.Equal(t, 6, plan.RecommendedRounds)
	assert.Equal(t, 8, plan.MaximumRounds)
	assert.Equal(t, "With 6 rounds, expect a clear winner", plan.Note)

	_, err = svc.CalculateRounds(models.FormatSwiss, 1)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.CalculateRounds("knockout", 8)
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Len(t, svc.Formats(), 2)
}

func TestAnalyticsSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewAnalyticsService(env.stats, nil)

	env.player(t, "first", 1500)
	env.player(t, "second", 1500)

	growth, err := svc.UserGrowth(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, growth.PeriodDays)
	require.Len(t, growth.Data, 7)
	today := growth.Data[6]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Date)
	assert.Equal(t, 2, today.NewUsers)
	assert.Equal(t, 2, today.TotalUsers)

	growth, err = svc.UserGrowth(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxAnalyticsDays, growth.PeriodDays)

	activity, err := svc.TournamentActivity(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, activity.PeriodDays)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalUsers)
	assert.Equal(t, 2, summary.NewUsersWeek)
	assert.Equal(t, 100.0, summary.GrowthRate)
}

func TestPublicStatsFallsBackToCountyTotal(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogService(env.stats, env.tournaments)

	stats, err := svc.PublicStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(utils.Counties), stats.Counties)
}
