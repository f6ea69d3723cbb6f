package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/shopspring/decimal"
)

// GroupBy is the bucket size of a metrics time series
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// DateLayout is the calendar date format used by metrics filters and points
const DateLayout = "2006-01-02"

// maxDataPoints bounds the length of a time series
const maxDataPoints = 400

// MetricsFilter selects the reporting period. Without dates the summary covers
// all time and no series is produced. A missing start defaults to one month
// before the end; a missing end defaults to today.
type MetricsFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	GroupBy   GroupBy
}

// MetricsSummary totals the period. Only cleared and paid conversions count.
type MetricsSummary struct {
	TotalClicks      int             `json:"total_clicks"`
	TotalConversions int             `json:"total_conversions"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
	EarningsPerClick decimal.Decimal `json:"earnings_per_click"`
}

// MetricsPoint is one bucket of the series. Date is the first day of the bucket.
type MetricsPoint struct {
	Date        string          `json:"date"`
	Clicks      int             `json:"clicks"`
	Conversions int             `json:"conversions"`
	Revenue     decimal.Decimal `json:"revenue"`
	Commission  decimal.Decimal `json:"commission"`
}

// Metrics is an affiliate's performance report
type Metrics struct {
	Summary    MetricsSummary `json:"summary"`
	DataPoints []MetricsPoint `json:"data_points"`
	GroupBy    GroupBy        `json:"group_by"`
	StartDate  *string        `json:"start_date,omitempty"`
	EndDate    *string        `json:"end_date,omitempty"`
}

// AffiliateMetrics reports clicks, settled conversions, revenue and commission
// for the affiliate, in total and per day, week or month.
func (s *Service) AffiliateMetrics(ctx context.Context, affiliateID string, f MetricsFilter) (*Metrics, error) {
	if f.GroupBy == "" {
		f.GroupBy = GroupByDay
	}
	switch f.GroupBy {
	case GroupByDay, GroupByWeek, GroupByMonth:
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("group_by must be day, week or month, got %q", f.GroupBy))
	}

	report := &Metrics{DataPoints: []MetricsPoint{}, GroupBy: f.GroupBy}

	var from, to, first, last time.Time
	ranged := f.StartDate != nil || f.EndDate != nil
	if ranged {
		last = truncateDay(s.now())
		if f.EndDate != nil {
			last = truncateDay(*f.EndDate)
		}
		first = last.AddDate(0, -1, 0)
		if f.StartDate != nil {
			first = truncateDay(*f.StartDate)
		}
		if first.After(last) {
			return nil, domain.NewValidationError("start_date must not be after end_date")
		}
		from, to = first, last.AddDate(0, 0, 1)

		for b := bucketStart(first, f.GroupBy); !b.After(last); b = nextBucket(b, f.GroupBy) {
			if len(report.DataPoints) == maxDataPoints {
				return nil, domain.NewValidationError(fmt.Sprintf("date range is too long for %s grouping", f.GroupBy))
			}
			report.DataPoints = append(report.DataPoints, MetricsPoint{
				Date:       b.Format(DateLayout),
				Revenue:    decimal.Zero,
				Commission: decimal.Zero,
			})
		}
		startStr, endStr := first.Format(DateLayout), last.Format(DateLayout)
		report.StartDate, report.EndDate = &startStr, &endStr
	}

	clicks, err := s.repo.ClickTimes(ctx, affiliateID, from, to)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	conversions, err := s.repo.SettledConversions(ctx, affiliateID, from, to)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	index := make(map[string]int, len(report.DataPoints))
	for i, p := range report.DataPoints {
		index[p.Date] = i
	}
	point := func(t time.Time) *MetricsPoint {
		if i, ok := index[bucketStart(t, f.GroupBy).Format(DateLayout)]; ok {
			return &report.DataPoints[i]
		}
		return nil
	}

	sum := &report.Summary
	sum.TotalRevenue, sum.TotalCommission = decimal.Zero, decimal.Zero
	sum.TotalClicks = len(clicks)
	for _, t := range clicks {
		if p := point(t); p != nil {
			p.Clicks++
		}
	}
	for _, c := range conversions {
		commission := decimal.Zero
		if c.CommissionAmount.Valid {
			commission = c.CommissionAmount.Decimal
		}
		sum.TotalConversions++
		sum.TotalRevenue = sum.TotalRevenue.Add(c.GMV)
		sum.TotalCommission = sum.TotalCommission.Add(commission)
		if p := point(c.CreatedAt); p != nil {
			p.Conversions++
			p.Revenue = p.Revenue.Add(c.GMV)
			p.Commission = p.Commission.Add(commission)
		}
	}

	sum.ConversionRate, sum.EarningsPerClick = decimal.Zero, decimal.Zero
	if sum.TotalClicks > 0 {
		clicksDec := decimal.NewFromInt(int64(sum.TotalClicks))
		sum.ConversionRate = decimal.NewFromInt(int64(sum.TotalConversions)).Mul(decimal.NewFromInt(100)).Div(clicksDec).Round(2)
		sum.EarningsPerClick = sum.TotalCommission.Div(clicksDec).Round(2)
	}

	return report, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// bucketStart maps t to the first day of its bucket. Weeks start on Monday.
func bucketStart(t time.Time, g GroupBy) time.Time {
	d := truncateDay(t)
	switch g {
	case GroupByWeek:
		return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
	case GroupByMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

func nextBucket(t time.Time, g GroupBy) time.Time {
	switch g {
	case GroupByWeek:
		return t.AddDate(0, 0, 7)
	case GroupByMonth:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}
