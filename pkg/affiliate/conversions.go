package affiliate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jordanlanch/homeschoolhub/pkg/automation"
	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/tasks"
	"github.com/shopspring/decimal"
)

// ConversionInput holds data for recording a sale
type ConversionInput struct {
	OrderID       string
	AffiliateSlug string
	VisitorID     string
	SaleAmount    decimal.Decimal
}

// PostbackResult reports whether a network postback row was queued
type PostbackResult struct {
	Success bool
	Error   error
}

// RecordResult is the outcome of RecordConversion
type RecordResult struct {
	Conversion *models.Conversion
	// Created is false when the order was already recorded
	Created bool
	// Postback is nil when the affiliate has no network postback configured
	Postback *PostbackResult
}

// RecordConversion records a sale for the affiliate named by in.AffiliateSlug.
// Recording the same order twice returns the existing conversion. The
// conversion is kept even when its network postback cannot be queued.
func (s *Service) RecordConversion(ctx context.Context, in ConversionInput) (*RecordResult, error) {
	if strings.TrimSpace(in.OrderID) == "" {
		return nil, domain.NewValidationError("order id is required")
	}
	if in.SaleAmount.IsNegative() {
		return nil, domain.NewValidationError("sale amount must not be negative")
	}

	existing, err := s.repo.ConversionByOrderID(ctx, in.OrderID)
	switch {
	case err == nil:
		return &RecordResult{Conversion: existing}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing conversion: %w", err)
	}

	if strings.TrimSpace(in.AffiliateSlug) == "" {
		return nil, ErrUnattributable
	}
	aff, err := s.repo.AffiliateBySlug(ctx, in.AffiliateSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnattributable
		}
		return nil, fmt.Errorf("failed to get affiliate: %w", err)
	}
	if !aff.IsActive() {
		return nil, ErrAffiliateInactive
	}

	attribution := s.FindAttributableClick(ctx, aff.ID, in.VisitorID)

	conv := &models.Conversion{
		ID:          uuid.NewString(),
		AffiliateID: aff.ID,
		OrderID:     in.OrderID,
		ClickID:     attribution.ClickID,
		SubID:       attribution.SubID,
		GMV:         in.SaleAmount,
		Status:      models.ConversionStatusPending,
		CreatedAt:   s.now(),
	}

	rate, err := s.commissionRate(ctx, aff)
	if err != nil {
		s.log.Warn("commission rate unavailable, flagging conversion",
			"affiliate_id", aff.ID,
			"order_id", in.OrderID,
			"error", err,
		)
		reason := models.FlagReasonCommissionRateUnavailable
		conv.Status = models.ConversionStatusFlagged
		conv.FlagReason = &reason
	} else {
		conv.CommissionRate = decimal.NewNullDecimal(rate)
		conv.CommissionAmount = decimal.NewNullDecimal(CalculateCommission(in.SaleAmount, rate))
	}

	inserted, err := s.repo.InsertConversion(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion: %w", err)
	}
	if !inserted {
		// Lost a race with a concurrent call for the same order.
		winner, err := s.repo.ConversionByOrderID(ctx, in.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load concurrent conversion: %w", err)
		}
		return &RecordResult{Conversion: winner}, nil
	}

	s.metrics.RecordConversion(string(conv.Status))
	s.log.Info("conversion recorded",
		"conversion_id", conv.ID,
		"affiliate_id", aff.ID,
		"order_id", conv.OrderID,
		"status", conv.Status,
		"attributed", conv.ClickID != nil,
	)

	res := &RecordResult{Conversion: conv, Created: true}
	if aff.HasNetworkPostback() {
		pr := s.CreateNetworkPostback(ctx, conv, *aff.NetworkName, *aff.PostbackURL)
		res.Postback = &pr
	}

	s.dispatchConversionEvent(conv)

	return res, nil
}

func (s *Service) commissionRate(ctx context.Context, aff *models.Affiliate) (decimal.Decimal, error) {
	if aff.MembershipLevelID == nil || *aff.MembershipLevelID == "" {
		return decimal.Zero, errors.New("affiliate has no membership level")
	}
	level, err := s.repo.MembershipLevelByID(ctx, *aff.MembershipLevelID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load membership level: %w", err)
	}
	return level.CommissionRate, nil
}

// CreateNetworkPostback queues a postback to the affiliate's network. It
// never fails the caller: errors are logged and reported in the result.
func (s *Service) CreateNetworkPostback(ctx context.Context, conv *models.Conversion, networkName, postbackURL string) PostbackResult {
	pb := &models.NetworkPostback{
		ID:           uuid.NewString(),
		ConversionID: conv.ID,
		NetworkName:  networkName,
		SubID:        conv.SubID,
		PostbackURL:  postbackURL,
		Status:       models.PostbackStatusPending,
		CreatedAt:    s.now(),
	}

	if err := s.repo.InsertNetworkPostback(ctx, pb); err != nil {
		s.log.Error("failed to create network postback",
			"conversion_id", conv.ID,
			"affiliate_id", conv.AffiliateID,
			"network_name", networkName,
			"operation", "create_network_postback",
			"error", err,
		)
		s.metrics.RecordPostbackFailure()
		return PostbackResult{Success: false, Error: err}
	}

	return PostbackResult{Success: true}
}

func (s *Service) dispatchConversionEvent(conv *models.Conversion) {
	if s.dispatcher == nil || s.automation == nil {
		return
	}

	data := map[string]any{
		"conversion_id": conv.ID,
		"affiliate_id":  conv.AffiliateID,
		"order_id":      conv.OrderID,
		"gmv":           conv.GMV.StringFixed(2),
		"status":        string(conv.Status),
	}
	if conv.CommissionAmount.Valid {
		data["commission_amount"] = conv.CommissionAmount.Decimal.StringFixed(2)
	}

	trigger := s.automation
	s.dispatcher.Dispatch(tasks.Task{
		Name:        "automation." + automation.EventAffiliateConversion,
		MaxAttempts: 3,
		Run: func(ctx context.Context) error {
			return trigger.Trigger(ctx, automation.EventAffiliateConversion, data)
		},
	})
}

// StatusUpdate is an admin request to move a conversion
type StatusUpdate struct {
	Status models.ConversionStatus
	Reason string
}

// UpdateConversionStatus moves a conversion forward. Backward moves and
// changes to paid conversions are rejected with a conflict error.
func (s *Service) UpdateConversionStatus(ctx context.Context, id string, upd StatusUpdate) (*models.Conversion, error) {
	if !upd.Status.Valid() || upd.Status == models.ConversionStatusPending {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid target status %q", upd.Status))
	}
	if upd.Status == models.ConversionStatusFlagged && strings.TrimSpace(upd.Reason) == "" {
		return nil, domain.NewValidationError("a reason is required to flag a conversion")
	}

	current, err := s.repo.ConversionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("Conversion")
		}
		return nil, domain.NewInternalError(err)
	}
	if !current.Status.CanTransitionTo(upd.Status) {
		return nil, domain.NewConflictError(fmt.Sprintf("cannot move conversion from %s to %s", current.Status, upd.Status))
	}

	change := store.StatusChange{To: upd.Status, At: s.now()}
	if upd.Reason != "" {
		reason := upd.Reason
		change.Reason = &reason
	}

	changed, err := s.repo.UpdateConversionStatus(ctx, id, change)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !changed {
		return nil, domain.NewConflictError("conversion status changed concurrently")
	}

	updated, err := s.repo.ConversionByID(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return updated, nil
}
