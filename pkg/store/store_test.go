package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/homeschoolhub/pkg/database/dbtest"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/testdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.Store, *testdata.Fixtures) {
	st := store.New(dbtest.Open(t))
	return st, testdata.New(t, st)
}

func TestLatestClick(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Failure - no clicks", func(t *testing.T) {
		_, err := st.LatestClick(ctx, aff.ID, "visitor-none", time.Time{})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	fx.Click(aff.ID, "visitor-1", base)
	newest := fx.Click(aff.ID, "visitor-1", base.Add(2*time.Hour))
	fx.Click(aff.ID, "visitor-2", base.Add(3*time.Hour))

	t.Run("Success - newest click for the pair", func(t *testing.T) {
		click, err := st.LatestClick(ctx, aff.ID, "visitor-1", time.Time{})
		require.NoError(t, err)
		assert.Equal(t, newest.ID, click.ID)
	})

	t.Run("Success - window excludes older clicks", func(t *testing.T) {
		_, err := st.LatestClick(ctx, aff.ID, "visitor-1", base.Add(3*time.Hour))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestClickTimes(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()
	other := fx.Affiliate()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	fx.Click(aff.ID, "visitor-2", base.Add(26*time.Hour))
	fx.Click(aff.ID, "visitor-1", base.Add(2*time.Hour))
	fx.Click(aff.ID, "visitor-3", base.Add(48*time.Hour))
	fx.Click(other.ID, "visitor-1", base.Add(3*time.Hour))

	t.Run("Success - all time in order", func(t *testing.T) {
		times, err := st.ClickTimes(ctx, aff.ID, time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, times, 3)
		assert.True(t, times[0].Equal(base.Add(2*time.Hour)))
		assert.True(t, times[2].Equal(base.Add(48*time.Hour)))
	})

	t.Run("Success - end bound is exclusive", func(t *testing.T) {
		times, err := st.ClickTimes(ctx, aff.ID, base.Add(24*time.Hour), base.Add(48*time.Hour))
		require.NoError(t, err)
		require.Len(t, times, 1)
		assert.True(t, times[0].Equal(base.Add(26*time.Hour)))
	})
}

func TestSettledConversions(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	paid := fx.Conversion(aff.ID, models.ConversionStatusPaid, "10", base.Add(5*time.Hour))
	cleared := fx.Conversion(aff.ID, models.ConversionStatusCleared, "20", base.Add(time.Hour))
	fx.Conversion(aff.ID, models.ConversionStatusPending, "30", base.Add(2*time.Hour))
	fx.Conversion(aff.ID, models.ConversionStatusFlagged, "40", base.Add(3*time.Hour))
	fx.Conversion(aff.ID, models.ConversionStatusCleared, "50", base.Add(30*time.Hour))

	conversions, err := st.SettledConversions(ctx, aff.ID, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, conversions, 2)
	assert.Equal(t, cleared.ID, conversions[0].ID)
	assert.Equal(t, paid.ID, conversions[1].ID)
	assert.Equal(t, "40.00", conversions[1].GMV.StringFixed(2))

	all, err := st.SettledConversions(ctx, aff.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInsertConversion_IgnoresDuplicateOrder(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()

	first := &models.Conversion{
		ID:               uuid.NewString(),
		AffiliateID:      aff.ID,
		OrderID:          "order-1",
		GMV:              decimal.RequireFromString("1300"),
		CommissionAmount: decimal.NewNullDecimal(decimal.RequireFromString("325")),
		CommissionRate:   decimal.NewNullDecimal(decimal.RequireFromString("0.25")),
		Status:           models.ConversionStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	inserted, err := st.InsertConversion(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *first
	dup.ID = uuid.NewString()
	inserted, err = st.InsertConversion(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := st.ConversionByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.True(t, stored.CommissionAmount.Decimal.Equal(decimal.RequireFromString("325")))
	assert.True(t, stored.GMV.Equal(decimal.RequireFromString("1300")))
}

func TestUpdateConversionStatus_IsGuarded(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()
	now := time.Now().UTC()

	conv := fx.Conversion(aff.ID, models.ConversionStatusPending, "100", now)

	t.Run("Failure - pending cannot be paid", func(t *testing.T) {
		changed, err := st.UpdateConversionStatus(ctx, conv.ID, store.StatusChange{To: models.ConversionStatusPaid, At: now})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("Success - pending to cleared to paid", func(t *testing.T) {
		changed, err := st.UpdateConversionStatus(ctx, conv.ID, store.StatusChange{To: models.ConversionStatusCleared, At: now})
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = st.UpdateConversionStatus(ctx, conv.ID, store.StatusChange{To: models.ConversionStatusPaid, At: now})
		require.NoError(t, err)
		assert.True(t, changed)

		stored, err := st.ConversionByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConversionStatusPaid, stored.Status)
		require.NotNil(t, stored.ClearedAt)
		require.NotNil(t, stored.PaidAt)
	})

	t.Run("Failure - paid is terminal", func(t *testing.T) {
		reason := "chargeback"
		changed, err := st.UpdateConversionStatus(ctx, conv.ID, store.StatusChange{To: models.ConversionStatusFlagged, Reason: &reason, At: now})
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestListConversions(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()
	other := fx.Affiliate()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		fx.Conversion(aff.ID, models.ConversionStatusPending, "10", base.Add(time.Duration(i)*time.Hour))
	}
	fx.Conversion(aff.ID, models.ConversionStatusCleared, "10", base.Add(10*time.Hour))
	fx.Conversion(other.ID, models.ConversionStatusPending, "10", base)

	page, total, err := st.ListConversions(ctx, store.ConversionFilter{AffiliateID: aff.ID, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	pending, total, err := st.ListConversions(ctx, store.ConversionFilter{AffiliateID: aff.ID, Status: models.ConversionStatusPending, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, pending, 5)
}

func TestClearedTotals_OnlyClearedRowsCount(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate()
	now := time.Now().UTC()

	fx.Conversion(aff.ID, models.ConversionStatusCleared, "1000.10", now)
	fx.Conversion(aff.ID, models.ConversionStatusCleared, "999.95", now)
	fx.Conversion(aff.ID, models.ConversionStatusPending, "500", now)
	fx.Conversion(aff.ID, models.ConversionStatusPaid, "700", now)

	totals, err := st.ClearedTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, aff.ID, totals[0].AffiliateID)
	assert.Equal(t, aff.Email, totals[0].Email)
	assert.Equal(t, 2, totals[0].ClearedCount)
	assert.Equal(t, "2000.05", totals[0].TotalAmount.StringFixed(2))
}

func TestClearedTotals_AffiliateColumnsAndOrder(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	now := time.Now().UTC()

	zoe := fx.Affiliate(func(a *models.Affiliate) { a.Name = "Zoe Reyes" })
	ana := fx.Affiliate(func(a *models.Affiliate) { a.Name = "Ana Cruz" })
	fx.Conversion(zoe.ID, models.ConversionStatusCleared, "300", now)
	fx.Conversion(ana.ID, models.ConversionStatusCleared, "150.50", now)
	fx.Conversion(ana.ID, models.ConversionStatusCleared, "49.50", now)

	totals, err := st.ClearedTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, ana.ID, totals[0].AffiliateID)
	assert.Equal(t, "Ana Cruz", totals[0].Name)
	assert.Equal(t, ana.Email, totals[0].Email)
	assert.Equal(t, 2, totals[0].ClearedCount)
	assert.Equal(t, "200.00", totals[0].TotalAmount.StringFixed(2))
	assert.Equal(t, "Zoe Reyes", totals[1].Name)
	assert.Equal(t, zoe.Email, totals[1].Email)
	assert.Equal(t, "300.00", totals[1].TotalAmount.StringFixed(2))
}

func TestConversionsMissingPostback(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	networked := fx.Affiliate(testdata.WithNetwork("impact", "https://impact.example/pb"))
	plain := fx.Affiliate()
	now := time.Now().UTC()

	missing := fx.Conversion(networked.ID, models.ConversionStatusPending, "10", now)
	covered := fx.Conversion(networked.ID, models.ConversionStatusPending, "10", now)
	fx.Conversion(plain.ID, models.ConversionStatusPending, "10", now)

	require.NoError(t, st.InsertNetworkPostback(ctx, &models.NetworkPostback{
		ID:           uuid.NewString(),
		ConversionID: covered.ID,
		NetworkName:  "impact",
		PostbackURL:  "https://impact.example/pb",
		Status:       models.PostbackStatusPending,
		CreatedAt:    now,
	}))

	conversions, err := st.ConversionsMissingPostback(ctx, 100)
	require.NoError(t, err)
	require.Len(t, conversions, 1)
	assert.Equal(t, missing.ID, conversions[0].ID)
}

func TestProgramConfig_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	st, _ := setup(t)

	_, err := st.ProgramConfig(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	cfg := models.DefaultProgramConfig()
	cfg.EnabledPayoutMethods = models.PayoutMethods{models.PayoutMethodBankTransfer}
	require.NoError(t, st.SaveProgramConfig(ctx, cfg))

	cfg.MinPayoutThreshold = decimal.RequireFromString("2500")
	require.NoError(t, st.SaveProgramConfig(ctx, cfg))

	loaded, err := st.ProgramConfig(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.MinPayoutThreshold.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, models.PayoutMethods{models.PayoutMethodBankTransfer}, loaded.EnabledPayoutMethods)
	assert.True(t, loaded.RequireBankVerification)
}

func TestUpdatePayoutDetails_ResetsVerification(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate(testdata.WithBankDetails(true), testdata.WithGCashDetails(true))

	err := st.UpdatePayoutDetails(ctx, aff, store.PayoutDetails{
		AccountHolderName: aff.AccountHolderName,
		AccountNumber:     aff.AccountNumber,
		BankName:          aff.BankName,
		GCashNumber:       "+639171234567",
		GCashName:         aff.GCashName,
	})
	require.NoError(t, err)

	updated, err := st.AffiliateByID(ctx, aff.ID)
	require.NoError(t, err)
	assert.True(t, updated.BankAccountVerified)
	assert.False(t, updated.GCashVerified)
	assert.Equal(t, "+639171234567", updated.GCashNumber)
}

func TestSetPayoutVerification(t *testing.T) {
	ctx := context.Background()
	st, fx := setup(t)
	aff := fx.Affiliate(testdata.WithBankDetails(false), testdata.WithGCashDetails(false))

	t.Run("Success - bank and gcash flags are independent", func(t *testing.T) {
		require.NoError(t, st.SetPayoutVerification(ctx, aff.ID, models.PayoutMethodBankTransfer, true))

		updated, err := st.AffiliateByID(ctx, aff.ID)
		require.NoError(t, err)
		assert.True(t, updated.BankAccountVerified)
		assert.False(t, updated.GCashVerified)

		require.NoError(t, st.SetPayoutVerification(ctx, aff.ID, models.PayoutMethodGCash, true))
		require.NoError(t, st.SetPayoutVerification(ctx, aff.ID, models.PayoutMethodBankTransfer, false))

		updated, err = st.AffiliateByID(ctx, aff.ID)
		require.NoError(t, err)
		assert.False(t, updated.BankAccountVerified)
		assert.True(t, updated.GCashVerified)
	})

	t.Run("Failure - unknown affiliate", func(t *testing.T) {
		err := st.SetPayoutVerification(ctx, "missing", models.PayoutMethodGCash, true)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Failure - unsupported method", func(t *testing.T) {
		assert.Error(t, st.SetPayoutVerification(ctx, aff.ID, models.PayoutMethod("paypal"), true))
	})
}

func TestEmailJobs(t *testing.T) {
	ctx := context.Background()
	st, _ := setup(t)
	now := time.Now().UTC()

	job := &models.EmailJob{
		ID:          uuid.NewString(),
		Email:       "parent@example.com",
		CampaignKey: "abandoned_checkout_reminder",
		Status:      models.EmailJobStatusPending,
		CreatedAt:   now,
	}
	inserted, err := st.InsertEmailJob(ctx, job)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *job
	dup.ID = uuid.NewString()
	inserted, err = st.InsertEmailJob(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := st.HasEmailJob(ctx, "parent@example.com", "abandoned_checkout_reminder")
	require.NoError(t, err)
	assert.True(t, exists)

	pending, err := st.PendingEmailJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, st.MarkEmailJobSent(ctx, job.ID, 1, now))
	pending, err = st.PendingEmailJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
