package payout

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/database/dbtest"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/testdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubConfig struct {
	cfg *models.ProgramConfig
	err error
}

func (s *stubConfig) Get(context.Context) (*models.ProgramConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.cfg
	return &cp, nil
}

type brokenAffiliates struct{}

func (brokenAffiliates) AffiliateByID(context.Context, string) (*models.Affiliate, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func setupValidator(t *testing.T) (*Validator, *stubConfig, *testdata.Fixtures) {
	st := store.New(dbtest.Open(t))
	cfg := &stubConfig{cfg: models.DefaultProgramConfig()}
	return NewValidator(st, cfg, logger.Discard(), nil), cfg, testdata.New(t, st)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidatePayoutEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Eligible GCash payout", func(t *testing.T) {
		v, _, fx := setupValidator(t)
		aff := fx.Affiliate(testdata.WithGCashDetails(false))

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("2500"), models.PayoutMethodGCash)
		assert.True(t, res.IsValid)
		assert.Empty(t, res.Errors)
	})

	t.Run("Failure - Below minimum threshold", func(t *testing.T) {
		v, _, fx := setupValidator(t)
		aff := fx.Affiliate(testdata.WithGCashDetails(true))

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("1500"), models.PayoutMethodGCash)
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"Amount ₱1,500.00 below minimum threshold of ₱2,000.00"}, res.Errors)
	})

	t.Run("Failure - Method not enabled", func(t *testing.T) {
		v, cfg, fx := setupValidator(t)
		cfg.cfg.EnabledPayoutMethods = models.PayoutMethods{models.PayoutMethodBankTransfer}
		aff := fx.Affiliate(testdata.WithGCashDetails(true))

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("5000"), models.PayoutMethodGCash)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Errors, "Payout method GCash is not enabled")
	})

	t.Run("Success - Bank details complete and verification not required", func(t *testing.T) {
		v, cfg, fx := setupValidator(t)
		cfg.cfg.EnabledPayoutMethods = models.PayoutMethods{models.PayoutMethodBankTransfer}
		cfg.cfg.RequireBankVerification = false
		aff := fx.Affiliate(testdata.WithBankDetails(false))

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("2000"), models.PayoutMethodBankTransfer)
		assert.True(t, res.IsValid, res.Errors)
	})

	t.Run("Failure - Collects every failed rule", func(t *testing.T) {
		v, _, fx := setupValidator(t)
		aff := fx.Affiliate()

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("10"), models.PayoutMethodBankTransfer)
		assert.False(t, res.IsValid)
		assert.Len(t, res.Errors, 4)
		assert.Contains(t, res.Errors, "Bank account not verified")
	})

	t.Run("Failure - GCash verification required", func(t *testing.T) {
		v, cfg, fx := setupValidator(t)
		cfg.cfg.RequireGCashVerification = true
		aff := fx.Affiliate(testdata.WithGCashDetails(false))

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("2500"), models.PayoutMethodGCash)
		assert.Equal(t, []string{"GCash not verified"}, res.Errors)
	})

	t.Run("Failure - Unknown affiliate", func(t *testing.T) {
		v, _, _ := setupValidator(t)

		res := v.ValidatePayoutEligibility(ctx, "missing", amount("2500"), models.PayoutMethodGCash)
		assert.Equal(t, ValidationResult{IsValid: false, Errors: []string{MsgAffiliateNotFound}}, res)
	})

	t.Run("Failure - Config unavailable", func(t *testing.T) {
		v, cfg, fx := setupValidator(t)
		aff := fx.Affiliate(testdata.WithGCashDetails(true))
		cfg.err = errors.New("connection refused")

		res := v.ValidatePayoutEligibility(ctx, aff.ID, amount("2500"), models.PayoutMethodGCash)
		assert.Equal(t, []string{MsgUnavailable}, res.Errors)
	})

	t.Run("Failure - Affiliate store unavailable", func(t *testing.T) {
		v := NewValidator(brokenAffiliates{}, &stubConfig{cfg: models.DefaultProgramConfig()}, logger.Discard(), nil)

		res := v.ValidatePayoutEligibility(ctx, "any", amount("2500"), models.PayoutMethodGCash)
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{MsgUnavailable}, res.Errors)
	})

	t.Run("Success - Idempotent", func(t *testing.T) {
		v, _, fx := setupValidator(t)
		aff := fx.Affiliate()

		first := v.ValidatePayoutEligibility(ctx, aff.ID, amount("1500"), models.PayoutMethodBankTransfer)
		second := v.ValidatePayoutEligibility(ctx, aff.ID, amount("1500"), models.PayoutMethodBankTransfer)
		assert.Equal(t, first, second)
	})
}

func TestValidatePayoutBatch(t *testing.T) {
	ctx := context.Background()
	v, _, fx := setupValidator(t)

	good := fx.Affiliate(testdata.WithGCashDetails(true))
	noDetails := fx.Affiliate()

	res := v.ValidatePayoutBatch(ctx, []BatchAffiliate{
		{ID: good.ID, Name: good.Name, Email: good.Email, TotalAmount: amount("3000")},
		{ID: noDetails.ID, Name: noDetails.Name, Email: noDetails.Email, TotalAmount: amount("100")},
	}, models.PayoutMethodGCash)

	assert.False(t, res.IsValid)
	assert.Equal(t, BatchSummary{Total: 2, Valid: 1, Invalid: 1}, res.Summary)
	require.Len(t, res.ValidAffiliates, 1)
	assert.Equal(t, good.ID, res.ValidAffiliates[0].ID)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, noDetails.Name+" ("+noDetails.Email+"): Amount ₱100.00 below minimum threshold of ₱2,000.00", res.Errors[0])

	empty := v.ValidatePayoutBatch(ctx, nil, models.PayoutMethodGCash)
	assert.True(t, empty.IsValid)
	assert.Equal(t, 0, empty.Summary.Total)
}

func TestPreviewBatch(t *testing.T) {
	ctx := context.Background()
	st := store.New(dbtest.Open(t))
	fx := testdata.New(t, st)
	v := NewValidator(st, &stubConfig{cfg: models.DefaultProgramConfig()}, logger.Discard(), nil)
	svc := NewService(st, v)
	now := time.Now().UTC()

	eligible := fx.Affiliate(testdata.WithGCashDetails(true))
	fx.Conversion(eligible.ID, models.ConversionStatusCleared, "1500", now)
	fx.Conversion(eligible.ID, models.ConversionStatusCleared, "750.50", now)
	fx.Conversion(eligible.ID, models.ConversionStatusPending, "5000", now)

	small := fx.Affiliate(testdata.WithGCashDetails(true))
	fx.Conversion(small.ID, models.ConversionStatusCleared, "300", now)
	fx.Conversion(small.ID, models.ConversionStatusPaid, "3000", now)

	preview, err := svc.PreviewBatch(ctx, models.PayoutMethodGCash)
	require.NoError(t, err)
	require.Len(t, preview.Candidates, 2)
	assert.Equal(t, 2, preview.Batch.Summary.Total)
	assert.Equal(t, 1, preview.Batch.Summary.Valid)
	assert.Equal(t, "2250.50", preview.TotalAmount.StringFixed(2))

	byID := map[string]string{}
	for _, c := range preview.Candidates {
		byID[c.AffiliateID] = c.TotalAmount.StringFixed(2)
	}
	assert.Equal(t, "2250.50", byID[eligible.ID], "pending conversions are excluded")
	assert.Equal(t, "300.00", byID[small.ID], "paid conversions are excluded")

	data, err := svc.ExportXLSX(preview)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Payout Preview")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Affiliate ID", rows[0][0])
}

func TestFormatPeso(t *testing.T) {
	v := NewValidator(nil, nil, logger.Discard(), nil)
	assert.Equal(t, "₱2,000.00", v.FormatPeso(amount("2000")))
	assert.Equal(t, "₱1,234,567.89", v.FormatPeso(amount("1234567.891")))
	assert.Equal(t, "₱0.50", v.FormatPeso(amount("0.5")))
}
