package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

var clickColumns = []string{
	"id", "affiliate_id", "visitor_id", "sub_id", "ip_address", "user_agent", "referral_url",
	"landing_page_url", "utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term", "created_at",
}

// InsertClick records a click. Clicks are never updated.
func (s *Store) InsertClick(ctx context.Context, c *models.Click) error {
	q := s.builder().Insert(clicksTable).Columns(clickColumns...).Values(
		c.ID, c.AffiliateID, c.VisitorID, c.SubID, c.IPAddress, c.UserAgent, c.ReferralURL,
		c.LandingPageURL, c.UTMSource, c.UTMMedium, c.UTMCampaign, c.UTMContent, c.UTMTerm, utc(c.CreatedAt),
	)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

// LatestClick returns the most recent click for the affiliate/visitor pair.
// A zero since disables the lower bound. Ties on created_at are broken by id.
func (s *Store) LatestClick(ctx context.Context, affiliateID, visitorID string, since time.Time) (*models.Click, error) {
	b := s.builder()
	preds := []*sql.Predicate{
		sql.EQ("affiliate_id", affiliateID),
		sql.EQ("visitor_id", visitorID),
	}
	if !since.IsZero() {
		preds = append(preds, sql.GTE("created_at", utc(since)))
	}

	sel := b.Select(clickColumns...).
		From(b.Table(clicksTable)).
		Where(sql.And(preds...)).
		OrderBy(sql.Desc("created_at"), sql.Desc("id")).
		Limit(1)

	var c models.Click
	if err := s.get(ctx, &c, sel); err != nil {
		return nil, err
	}
	return &c, nil
}

// ClickTimes returns the creation times of an affiliate's clicks in [from, to).
// A zero bound is not applied.
func (s *Store) ClickTimes(ctx context.Context, affiliateID string, from, to time.Time) ([]time.Time, error) {
	b := s.builder()
	sel := b.Select("created_at").
		From(b.Table(clicksTable)).
		Where(sql.And(rangePredicates(sql.EQ("affiliate_id", affiliateID), from, to)...)).
		OrderBy("created_at")

	times := []time.Time{}
	if err := s.selectAll(ctx, &times, sel); err != nil {
		return nil, fmt.Errorf("failed to load clicks: %w", err)
	}
	return times, nil
}

func rangePredicates(base *sql.Predicate, from, to time.Time) []*sql.Predicate {
	preds := []*sql.Predicate{base}
	if !from.IsZero() {
		preds = append(preds, sql.GTE("created_at", utc(from)))
	}
	if !to.IsZero() {
		preds = append(preds, sql.LT("created_at", utc(to)))
	}
	return preds
}
