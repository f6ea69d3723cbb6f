package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/shopspring/decimal"
)

var affiliateColumns = []string{
	"id", "user_id", "slug", "name", "email", "status", "membership_level_id",
	"account_holder_name", "account_number", "bank_name", "gcash_number", "gcash_name",
	"bank_account_verified", "gcash_verified", "network_name", "postback_url", "created_at",
}

func affiliateValues(a *models.Affiliate) []any {
	return []any{
		a.ID, a.UserID, a.Slug, a.Name, a.Email, string(a.Status), a.MembershipLevelID,
		a.AccountHolderName, a.AccountNumber, a.BankName, a.GCashNumber, a.GCashName,
		a.BankAccountVerified, a.GCashVerified, a.NetworkName, a.PostbackURL, utc(a.CreatedAt),
	}
}

// CreateAffiliate inserts an affiliate row
func (s *Store) CreateAffiliate(ctx context.Context, a *models.Affiliate) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	q := s.builder().Insert(affiliatesTable).Columns(affiliateColumns...).Values(affiliateValues(a)...)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create affiliate: %w", err)
	}
	return nil
}

func (s *Store) affiliateBy(ctx context.Context, column string, value any) (*models.Affiliate, error) {
	b := s.builder()
	sel := b.Select(affiliateColumns...).From(b.Table(affiliatesTable)).Where(sql.EQ(column, value))

	var a models.Affiliate
	if err := s.get(ctx, &a, sel); err != nil {
		return nil, err
	}
	return &a, nil
}

// AffiliateByID loads an affiliate by primary key
func (s *Store) AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error) {
	return s.affiliateBy(ctx, "id", id)
}

// AffiliateBySlug loads an affiliate by its public link slug
func (s *Store) AffiliateBySlug(ctx context.Context, slug string) (*models.Affiliate, error) {
	return s.affiliateBy(ctx, "slug", slug)
}

// AffiliateByUserID loads the affiliate owned by an auth user
func (s *Store) AffiliateByUserID(ctx context.Context, userID string) (*models.Affiliate, error) {
	return s.affiliateBy(ctx, "user_id", userID)
}

// PayoutDetails are the affiliate-editable disbursement fields
type PayoutDetails struct {
	AccountHolderName string
	AccountNumber     string
	BankName          string
	GCashNumber       string
	GCashName         string
}

// UpdatePayoutDetails replaces the disbursement fields. Verification is reset
// for every method whose details changed.
func (s *Store) UpdatePayoutDetails(ctx context.Context, current *models.Affiliate, d PayoutDetails) error {
	upd := s.builder().Update(affiliatesTable).
		Set("account_holder_name", d.AccountHolderName).
		Set("account_number", d.AccountNumber).
		Set("bank_name", d.BankName).
		Set("gcash_number", d.GCashNumber).
		Set("gcash_name", d.GCashName)

	if d.AccountHolderName != current.AccountHolderName || d.AccountNumber != current.AccountNumber || d.BankName != current.BankName {
		upd.Set("bank_account_verified", false)
	}
	if d.GCashNumber != current.GCashNumber || d.GCashName != current.GCashName {
		upd.Set("gcash_verified", false)
	}

	n, err := s.exec(ctx, upd.Where(sql.EQ("id", current.ID)))
	if err != nil {
		return fmt.Errorf("failed to update payout details: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var membershipLevelColumns = []string{"id", "name", "commission_rate"}

// CreateMembershipLevel inserts a commission tier
func (s *Store) CreateMembershipLevel(ctx context.Context, l *models.MembershipLevel) error {
	q := s.builder().Insert(membershipLevelsTable).
		Columns("id", "name", "commission_rate", "created_at").
		Values(l.ID, l.Name, l.CommissionRate, time.Now().UTC())
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create membership level: %w", err)
	}
	return nil
}

// MembershipLevelByID loads a commission tier
func (s *Store) MembershipLevelByID(ctx context.Context, id string) (*models.MembershipLevel, error) {
	b := s.builder()
	sel := b.Select(membershipLevelColumns...).From(b.Table(membershipLevelsTable)).Where(sql.EQ("id", id))

	var l models.MembershipLevel
	if err := s.get(ctx, &l, sel); err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateMembershipLevelRate changes a tier's rate. Existing conversions keep
// the rate captured when they were recorded.
func (s *Store) UpdateMembershipLevelRate(ctx context.Context, id string, rate decimal.Decimal) error {
	n, err := s.exec(ctx, s.builder().Update(membershipLevelsTable).Set("commission_rate", rate).Where(sql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to update membership level: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPayoutVerification marks the affiliate's bank or GCash details as
// verified or unverified
func (s *Store) SetPayoutVerification(ctx context.Context, id string, method models.PayoutMethod, verified bool) error {
	var column string
	switch method {
	case models.PayoutMethodBankTransfer:
		column = "bank_account_verified"
	case models.PayoutMethodGCash:
		column = "gcash_verified"
	default:
		return fmt.Errorf("unsupported payout method %q", method)
	}

	n, err := s.exec(ctx, s.builder().Update(affiliatesTable).Set(column, verified).Where(sql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to update payout verification: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
