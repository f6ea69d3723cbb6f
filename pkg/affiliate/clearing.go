package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/shopspring/decimal"
)

const (
	clearingBatchSize      = 500
	reconcileBatchSize     = 500
	velocityWindow         = time.Hour
	maxConversionsInWindow = 5
)

var highCommissionThreshold = decimal.NewFromInt(1000)

// ClearingResult summarizes one auto-clearing run
type ClearingResult struct {
	Processed int `json:"processed"`
	Cleared   int `json:"cleared"`
	Flagged   int `json:"flagged"`
	Errors    int `json:"errors"`
}

// ClearEligibleConversions clears pending conversions older than the refund
// period, flagging the ones that look fraudulent instead.
func (s *Service) ClearEligibleConversions(ctx context.Context, now time.Time) (ClearingResult, error) {
	var res ClearingResult

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load program config: %w", err)
	}
	cutoff := now.UTC().AddDate(0, 0, -cfg.RefundPeriodDays)

	pending, err := s.repo.PendingConversionsBefore(ctx, cutoff, clearingBatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to load pending conversions: %w", err)
	}

	for i := range pending {
		conv := &pending[i]
		res.Processed++

		reason, err := s.fraudReason(ctx, conv)
		if err != nil {
			s.log.Error("fraud check failed", "conversion_id", conv.ID, "error", err)
			s.metrics.RecordAutoClearing("error")
			res.Errors++
			continue
		}

		change := store.StatusChange{To: models.ConversionStatusCleared, At: now.UTC()}
		if reason != "" {
			change = store.StatusChange{To: models.ConversionStatusFlagged, Reason: &reason, At: now.UTC()}
		}

		changed, err := s.repo.UpdateConversionStatus(ctx, conv.ID, change)
		if err != nil {
			s.log.Error("failed to update conversion status", "conversion_id", conv.ID, "error", err)
			s.metrics.RecordAutoClearing("error")
			res.Errors++
			continue
		}
		if !changed {
			continue
		}

		if change.To == models.ConversionStatusFlagged {
			s.log.Warn("conversion flagged", "conversion_id", conv.ID, "affiliate_id", conv.AffiliateID, "reason", reason)
			s.metrics.RecordAutoClearing("flagged")
			res.Flagged++
		} else {
			s.metrics.RecordAutoClearing("cleared")
			res.Cleared++
		}
	}

	s.log.Info("auto-clearing finished",
		"processed", res.Processed,
		"cleared", res.Cleared,
		"flagged", res.Flagged,
		"errors", res.Errors,
	)
	return res, nil
}

func (s *Service) fraudReason(ctx context.Context, conv *models.Conversion) (string, error) {
	if conv.CommissionAmount.Valid && conv.CommissionAmount.Decimal.GreaterThan(highCommissionThreshold) {
		return models.FlagReasonHighCommission, nil
	}

	n, err := s.repo.CountAffiliateConversionsBetween(ctx, conv.AffiliateID, conv.CreatedAt.Add(-velocityWindow), conv.CreatedAt)
	if err != nil {
		return "", err
	}
	// n includes conv itself
	if n-1 > maxConversionsInWindow {
		return models.FlagReasonHighVelocity, nil
	}
	return "", nil
}

// ReconcileResult summarizes one postback reconciliation run
type ReconcileResult struct {
	Checked int `json:"checked"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// ReconcilePostbacks queues the postbacks that were lost when recording a
// conversion succeeded but queuing its postback did not.
func (s *Service) ReconcilePostbacks(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	missing, err := s.repo.ConversionsMissingPostback(ctx, reconcileBatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to load conversions missing postbacks: %w", err)
	}

	affiliates := map[string]*models.Affiliate{}
	for i := range missing {
		conv := &missing[i]
		res.Checked++

		aff, ok := affiliates[conv.AffiliateID]
		if !ok {
			aff, err = s.repo.AffiliateByID(ctx, conv.AffiliateID)
			if err != nil {
				s.log.Error("failed to load affiliate for postback", "affiliate_id", conv.AffiliateID, "error", err)
				res.Failed++
				continue
			}
			affiliates[conv.AffiliateID] = aff
		}
		if !aff.HasNetworkPostback() {
			continue
		}

		if pr := s.CreateNetworkPostback(ctx, conv, *aff.NetworkName, *aff.PostbackURL); pr.Success {
			res.Created++
		} else {
			res.Failed++
		}
	}

	if res.Created > 0 || res.Failed > 0 {
		s.log.Info("postback reconciliation finished", "checked", res.Checked, "created", res.Created, "failed", res.Failed)
	}
	return res, nil
}
