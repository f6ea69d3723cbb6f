package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/shopspring/decimal"
)

var conversionColumns = []string{
	"id", "affiliate_id", "order_id", "click_id", "gmv", "commission_amount", "commission_rate",
	"sub_id", "status", "flag_reason", "cleared_at", "paid_at", "created_at",
}

func (s *Store) conversionsSelect(t *sql.SelectTable) *sql.Selector {
	cols := make([]string, len(conversionColumns))
	for i, c := range conversionColumns {
		cols[i] = t.C(c)
	}
	return s.builder().Select(cols...).From(t)
}

// InsertConversion inserts a conversion unless one already exists for its order.
// It reports false when the order was already recorded.
func (s *Store) InsertConversion(ctx context.Context, c *models.Conversion) (bool, error) {
	q := s.builder().Insert(conversionsTable).Columns(conversionColumns...).Values(
		c.ID, c.AffiliateID, c.OrderID, c.ClickID, c.GMV, c.CommissionAmount, c.CommissionRate,
		c.SubID, string(c.Status), c.FlagReason, utcPtr(c.ClearedAt), utcPtr(c.PaidAt), utc(c.CreatedAt),
	).OnConflict(sql.ConflictColumns("order_id"), sql.DoNothing())

	n, err := s.exec(ctx, q)
	if err != nil {
		return false, fmt.Errorf("failed to insert conversion: %w", err)
	}
	return n > 0, nil
}

// ConversionByID loads a conversion by primary key
func (s *Store) ConversionByID(ctx context.Context, id string) (*models.Conversion, error) {
	t := s.builder().Table(conversionsTable)
	var c models.Conversion
	if err := s.get(ctx, &c, s.conversionsSelect(t).Where(sql.EQ(t.C("id"), id))); err != nil {
		return nil, err
	}
	return &c, nil
}

// ConversionByOrderID loads the conversion recorded for an order
func (s *Store) ConversionByOrderID(ctx context.Context, orderID string) (*models.Conversion, error) {
	t := s.builder().Table(conversionsTable)
	var c models.Conversion
	if err := s.get(ctx, &c, s.conversionsSelect(t).Where(sql.EQ(t.C("order_id"), orderID))); err != nil {
		return nil, err
	}
	return &c, nil
}

// StatusChange describes a guarded conversion status update
type StatusChange struct {
	To     models.ConversionStatus
	Reason *string
	At     time.Time
}

// UpdateConversionStatus moves a conversion to a new status only if its
// current status is an allowed predecessor. It reports whether a row changed.
func (s *Store) UpdateConversionStatus(ctx context.Context, id string, change StatusChange) (bool, error) {
	from := models.PredecessorsOf(change.To)
	if len(from) == 0 {
		return false, nil
	}
	allowed := make([]any, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	upd := s.builder().Update(conversionsTable).Set("status", string(change.To))
	switch change.To {
	case models.ConversionStatusCleared:
		upd.Set("cleared_at", utc(change.At))
	case models.ConversionStatusPaid:
		upd.Set("paid_at", utc(change.At))
	case models.ConversionStatusFlagged:
		upd.Set("flag_reason", change.Reason)
	}

	n, err := s.exec(ctx, upd.Where(sql.And(sql.EQ("id", id), sql.In("status", allowed...))))
	if err != nil {
		return false, fmt.Errorf("failed to update conversion status: %w", err)
	}
	return n > 0, nil
}

// ConversionFilter narrows ListConversions
type ConversionFilter struct {
	AffiliateID string
	Status      models.ConversionStatus
	Limit       int
	Offset      int
}

func (f ConversionFilter) predicate(t *sql.SelectTable) *sql.Predicate {
	preds := []*sql.Predicate{sql.EQ(t.C("affiliate_id"), f.AffiliateID)}
	if f.Status != "" {
		preds = append(preds, sql.EQ(t.C("status"), string(f.Status)))
	}
	return sql.And(preds...)
}

// ListConversions returns one page of an affiliate's conversions, newest
// first, together with the total number of matching rows.
func (s *Store) ListConversions(ctx context.Context, f ConversionFilter) ([]models.Conversion, int, error) {
	b := s.builder()
	t := b.Table(conversionsTable)

	var total int
	if err := s.get(ctx, &total, b.Select(sql.Count("*")).From(t).Where(f.predicate(t))); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversions: %w", err)
	}

	page := s.conversionsSelect(t).
		Where(f.predicate(t)).
		OrderBy(sql.Desc(t.C("created_at")), sql.Desc(t.C("id"))).
		Limit(f.Limit).
		Offset(f.Offset)

	conversions := []models.Conversion{}
	if err := s.selectAll(ctx, &conversions, page); err != nil {
		return nil, 0, fmt.Errorf("failed to list conversions: %w", err)
	}
	return conversions, total, nil
}

// PendingConversionsBefore returns pending conversions created at or before cutoff, oldest first
func (s *Store) PendingConversionsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Conversion, error) {
	t := s.builder().Table(conversionsTable)
	sel := s.conversionsSelect(t).
		Where(sql.And(
			sql.EQ(t.C("status"), string(models.ConversionStatusPending)),
			sql.LTE(t.C("created_at"), utc(cutoff)),
		)).
		OrderBy(t.C("created_at"), t.C("id")).
		Limit(limit)

	var conversions []models.Conversion
	if err := s.selectAll(ctx, &conversions, sel); err != nil {
		return nil, fmt.Errorf("failed to load pending conversions: %w", err)
	}
	return conversions, nil
}

// SettledConversions returns an affiliate's cleared and paid conversions
// created in [from, to), oldest first. A zero bound is not applied.
func (s *Store) SettledConversions(ctx context.Context, affiliateID string, from, to time.Time) ([]models.Conversion, error) {
	t := s.builder().Table(conversionsTable)
	preds := rangePredicates(sql.EQ("affiliate_id", affiliateID), from, to)
	preds = append(preds, sql.In("status", string(models.ConversionStatusCleared), string(models.ConversionStatusPaid)))

	sel := s.conversionsSelect(t).
		Where(sql.And(preds...)).
		OrderBy(t.C("created_at"), t.C("id"))

	conversions := []models.Conversion{}
	if err := s.selectAll(ctx, &conversions, sel); err != nil {
		return nil, fmt.Errorf("failed to load settled conversions: %w", err)
	}
	return conversions, nil
}

// CountAffiliateConversionsBetween counts an affiliate's conversions created in [from, to]
func (s *Store) CountAffiliateConversionsBetween(ctx context.Context, affiliateID string, from, to time.Time) (int, error) {
	b := s.builder()
	sel := b.Select(sql.Count("*")).From(b.Table(conversionsTable)).Where(sql.And(
		sql.EQ("affiliate_id", affiliateID),
		sql.GTE("created_at", utc(from)),
		sql.LTE("created_at", utc(to)),
	))

	var n int
	if err := s.get(ctx, &n, sel); err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return n, nil
}

// ConversionsMissingPostback returns conversions of affiliates with a network
// postback configured that have no network_postbacks row yet.
func (s *Store) ConversionsMissingPostback(ctx context.Context, limit int) ([]models.Conversion, error) {
	b := s.builder()
	c := b.Table(conversionsTable)
	a := b.Table(affiliatesTable).As("a")
	p := b.Table(postbacksTable).As("p")

	sel := s.conversionsSelect(c).
		Join(a).On(c.C("affiliate_id"), a.C("id")).
		LeftJoin(p).On(c.C("id"), p.C("conversion_id")).
		Where(sql.And(
			sql.NotNull(a.C("network_name")),
			sql.NEQ(a.C("network_name"), ""),
			sql.NotNull(a.C("postback_url")),
			sql.NEQ(a.C("postback_url"), ""),
			sql.IsNull(p.C("id")),
		)).
		OrderBy(c.C("created_at")).
		Limit(limit)

	var conversions []models.Conversion
	if err := s.selectAll(ctx, &conversions, sel); err != nil {
		return nil, fmt.Errorf("failed to load conversions missing postbacks: %w", err)
	}
	return conversions, nil
}

// ClearedTotal aggregates an affiliate's cleared conversions
type ClearedTotal struct {
	AffiliateID  string          `db:"affiliate_id"`
	Name         string          `db:"name"`
	Email        string          `db:"email"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	ClearedCount int             `db:"cleared_count"`
}

// ClearedTotals sums cleared commission per affiliate, ordered by name.
// Only cleared rows contribute.
func (s *Store) ClearedTotals(ctx context.Context) ([]ClearedTotal, error) {
	b := s.builder()
	c := b.Table(conversionsTable)
	// Aliased up front: Join would otherwise rename the table after the
	// select list already referenced it.
	a := b.Table(affiliatesTable).As("a")

	sel := b.Select(
		c.C("affiliate_id"),
		a.C("name"),
		a.C("email"),
		fmt.Sprintf("COALESCE(SUM(%s), 0) AS total_amount", c.C("commission_amount")),
		"COUNT(*) AS cleared_count",
	).
		From(c).
		Join(a).On(c.C("affiliate_id"), a.C("id")).
		Where(sql.And(
			sql.EQ(c.C("status"), string(models.ConversionStatusCleared)),
			sql.NotNull(c.C("commission_amount")),
		)).
		GroupBy(c.C("affiliate_id"), a.C("name"), a.C("email")).
		OrderBy(a.C("name"), c.C("affiliate_id"))

	var totals []ClearedTotal
	if err := s.selectAll(ctx, &totals, sel); err != nil {
		return nil, fmt.Errorf("failed to aggregate cleared conversions: %w", err)
	}
	for i := range totals {
		// SQLite sums REAL columns in floating point.
		totals[i].TotalAmount = totals[i].TotalAmount.Round(2)
	}
	return totals, nil
}
