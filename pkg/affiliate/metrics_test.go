package affiliate

import (
	"context"
	"testing"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestAffiliateMetrics(t *testing.T) {
	ctx := context.Background()
	service, _, fx := setupTestService(t)
	service.now = func() time.Time { return time.Date(2026, 3, 20, 15, 0, 0, 0, time.UTC) }

	aff := fx.Affiliate()
	other := fx.Affiliate()

	// Monday 2 March and Tuesday 3 March, plus one click outside the range
	fx.Click(aff.ID, "v1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	fx.Click(aff.ID, "v2", time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC))
	fx.Click(aff.ID, "v3", time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC))
	fx.Click(aff.ID, "v4", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	fx.Click(aff.ID, "v5", time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC))
	fx.Click(other.ID, "v6", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	// GMV is four times the commission
	fx.Conversion(aff.ID, models.ConversionStatusCleared, "100", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	fx.Conversion(aff.ID, models.ConversionStatusPaid, "50.25", time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))
	fx.Conversion(aff.ID, models.ConversionStatusPending, "999", time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC))
	fx.Conversion(aff.ID, models.ConversionStatusFlagged, "999", time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC))
	fx.Conversion(other.ID, models.ConversionStatusCleared, "999", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	t.Run("Success - Daily series", func(t *testing.T) {
		m, err := service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{StartDate: day("2026-03-02"), EndDate: day("2026-03-03")})
		require.NoError(t, err)

		assert.Equal(t, 3, m.Summary.TotalClicks)
		assert.Equal(t, 2, m.Summary.TotalConversions)
		assert.Equal(t, "601.00", m.Summary.TotalRevenue.StringFixed(2))
		assert.Equal(t, "150.25", m.Summary.TotalCommission.StringFixed(2))
		assert.Equal(t, "66.67", m.Summary.ConversionRate.StringFixed(2))
		assert.Equal(t, "50.08", m.Summary.EarningsPerClick.StringFixed(2))

		require.Len(t, m.DataPoints, 2)
		assert.Equal(t, "2026-03-02", m.DataPoints[0].Date)
		assert.Equal(t, 2, m.DataPoints[0].Clicks)
		assert.Equal(t, 1, m.DataPoints[0].Conversions)
		assert.Equal(t, "100.00", m.DataPoints[0].Commission.StringFixed(2))
		assert.Equal(t, "2026-03-03", m.DataPoints[1].Date)
		assert.Equal(t, 1, m.DataPoints[1].Clicks)
		assert.Equal(t, "201.00", m.DataPoints[1].Revenue.StringFixed(2))
		require.NotNil(t, m.StartDate)
		assert.Equal(t, "2026-03-02", *m.StartDate)
	})

	t.Run("Success - Weekly buckets start on Monday", func(t *testing.T) {
		m, err := service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{StartDate: day("2026-03-01"), EndDate: day("2026-03-10"), GroupBy: GroupByWeek})
		require.NoError(t, err)

		dates := make([]string, len(m.DataPoints))
		for i, p := range m.DataPoints {
			dates[i] = p.Date
		}
		assert.Equal(t, []string{"2026-02-23", "2026-03-02", "2026-03-09"}, dates)
		assert.Equal(t, 0, m.DataPoints[0].Clicks, "clicks before the start date are excluded")
		assert.Equal(t, 4, m.DataPoints[1].Clicks)
		assert.Equal(t, 2, m.DataPoints[1].Conversions)
	})

	t.Run("Success - Monthly grouping", func(t *testing.T) {
		m, err := service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{StartDate: day("2026-02-01"), EndDate: day("2026-03-31"), GroupBy: GroupByMonth})
		require.NoError(t, err)
		require.Len(t, m.DataPoints, 2)
		assert.Equal(t, 1, m.DataPoints[0].Clicks)
		assert.Equal(t, 4, m.DataPoints[1].Clicks)
	})

	t.Run("Success - All time has no series", func(t *testing.T) {
		m, err := service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{})
		require.NoError(t, err)
		assert.Equal(t, 5, m.Summary.TotalClicks)
		assert.Equal(t, 2, m.Summary.TotalConversions)
		assert.Empty(t, m.DataPoints)
		assert.Nil(t, m.StartDate)
		assert.Equal(t, GroupByDay, m.GroupBy)
	})

	t.Run("Success - Missing start defaults to one month before end", func(t *testing.T) {
		m, err := service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{EndDate: day("2026-03-20")})
		require.NoError(t, err)
		assert.Equal(t, "2026-02-20", *m.StartDate)
		assert.Len(t, m.DataPoints, 29)
	})

	t.Run("Success - No clicks gives zero rates", func(t *testing.T) {
		m, err := service.AffiliateMetrics(ctx, other.ID, MetricsFilter{StartDate: day("2026-01-01"), EndDate: day("2026-01-02")})
		require.NoError(t, err)
		assert.True(t, m.Summary.ConversionRate.IsZero())
		assert.True(t, m.Summary.EarningsPerClick.IsZero())
	})

	t.Run("Failure - Invalid filters", func(t *testing.T) {
		_, err := service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{GroupBy: "year"})
		assert.True(t, domain.IsValidation(err))

		_, err = service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{StartDate: day("2026-03-05"), EndDate: day("2026-03-01")})
		assert.True(t, domain.IsValidation(err))

		_, err = service.AffiliateMetrics(ctx, aff.ID, MetricsFilter{StartDate: day("2020-01-01"), EndDate: day("2026-01-01")})
		assert.True(t, domain.IsValidation(err))
	})
}
