// Package testdata builds realistic records for tests with gofakeit.
package testdata

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Fixtures inserts generated records through the store
type Fixtures struct {
	t     *testing.T
	Store *store.Store
}

// New creates a fixture builder bound to t
func New(t *testing.T, st *store.Store) *Fixtures {
	return &Fixtures{t: t, Store: st}
}

// Tier creates a membership level with the given commission rate, e.g. "0.25"
func (f *Fixtures) Tier(rate string) *models.MembershipLevel {
	f.t.Helper()
	level := &models.MembershipLevel{
		ID:             uuid.NewString(),
		Name:           gofakeit.RandomString([]string{"Course Enrollee", "Network Partner", "Standard", "Network Elite"}),
		CommissionRate: decimal.RequireFromString(rate),
	}
	require.NoError(f.t, f.Store.CreateMembershipLevel(context.Background(), level))
	return level
}

// Affiliate creates an active affiliate. Mutators run before insert.
func (f *Fixtures) Affiliate(mutators ...func(*models.Affiliate)) *models.Affiliate {
	f.t.Helper()
	a := &models.Affiliate{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Slug:      strings.ToLower(gofakeit.Username()) + "-" + gofakeit.LetterN(6),
		Name:      gofakeit.Name(),
		Email:     strings.ToLower(gofakeit.Email()),
		Status:    models.AffiliateStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	for _, m := range mutators {
		m(a)
	}
	require.NoError(f.t, f.Store.CreateAffiliate(context.Background(), a))
	return a
}

// WithTier assigns a membership level
func WithTier(level *models.MembershipLevel) func(*models.Affiliate) {
	return func(a *models.Affiliate) { a.MembershipLevelID = &level.ID }
}

// WithStatus overrides the affiliate status
func WithStatus(status models.AffiliateStatus) func(*models.Affiliate) {
	return func(a *models.Affiliate) { a.Status = status }
}

// WithNetwork configures a network postback
func WithNetwork(name, url string) func(*models.Affiliate) {
	return func(a *models.Affiliate) {
		a.NetworkName = &name
		a.PostbackURL = &url
	}
}

// WithBankDetails fills all three bank fields
func WithBankDetails(verified bool) func(*models.Affiliate) {
	return func(a *models.Affiliate) {
		a.AccountHolderName = a.Name
		a.AccountNumber = gofakeit.Numerify("##########")
		a.BankName = gofakeit.RandomString([]string{"BDO", "BPI", "Metrobank", "Landbank"})
		a.BankAccountVerified = verified
	}
}

// WithGCashDetails fills the GCash fields
func WithGCashDetails(verified bool) func(*models.Affiliate) {
	return func(a *models.Affiliate) {
		a.GCashNumber = "+63917" + gofakeit.Numerify("#######")
		a.GCashName = a.Name
		a.GCashVerified = verified
	}
}

// Click records a click for the affiliate/visitor pair at the given time
func (f *Fixtures) Click(affiliateID, visitorID string, at time.Time) *models.Click {
	f.t.Helper()
	c := &models.Click{
		ID:          uuid.NewString(),
		AffiliateID: affiliateID,
		VisitorID:   visitorID,
		IPAddress:   gofakeit.IPv4Address(),
		UserAgent:   gofakeit.UserAgent(),
		CreatedAt:   at.UTC(),
	}
	require.NoError(f.t, f.Store.InsertClick(context.Background(), c))
	return c
}

// Conversion records a conversion with a fixed commission
func (f *Fixtures) Conversion(affiliateID string, status models.ConversionStatus, commission string, createdAt time.Time) *models.Conversion {
	f.t.Helper()
	amount := decimal.RequireFromString(commission)
	c := &models.Conversion{
		ID:               uuid.NewString(),
		AffiliateID:      affiliateID,
		OrderID:          "order-" + gofakeit.UUID(),
		GMV:              amount.Mul(decimal.NewFromInt(4)),
		CommissionAmount: decimal.NewNullDecimal(amount),
		CommissionRate:   decimal.NewNullDecimal(decimal.RequireFromString("0.25")),
		Status:           status,
		CreatedAt:        createdAt.UTC(),
	}
	inserted, err := f.Store.InsertConversion(context.Background(), c)
	require.NoError(f.t, err)
	require.True(f.t, inserted)
	return c
}

// Lead records a purchase lead created at the given time
func (f *Fixtures) Lead(email string, createdAt time.Time) *models.PurchaseLead {
	f.t.Helper()
	l := &models.PurchaseLead{
		ID:          uuid.NewString(),
		Email:       email,
		FirstName:   gofakeit.FirstName(),
		ProductType: "canva_ebook",
		Status:      "pending",
		CreatedAt:   createdAt.UTC(),
	}
	require.NoError(f.t, f.Store.CreatePurchaseLead(context.Background(), l))
	return l
}

// Enrollment records an enrollment for the email
func (f *Fixtures) Enrollment(email, status string) *models.Enrollment {
	f.t.Helper()
	e := &models.Enrollment{ID: uuid.NewString(), Email: email, Status: status}
	require.NoError(f.t, f.Store.CreateEnrollment(context.Background(), e))
	return e
}
