package affiliate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
)

// VerificationReview is an admin decision on an affiliate's payout details
type VerificationReview struct {
	Method   models.PayoutMethod
	Verified bool
	// ReviewedBy identifies the admin for the audit log
	ReviewedBy string
}

// ReviewPayoutVerification approves or revokes verification of the bank or
// GCash details an affiliate submitted. Approval needs complete details and an
// affiliate that is not suspended or flagged.
func (s *Service) ReviewPayoutVerification(ctx context.Context, affiliateID string, review VerificationReview) (*models.Affiliate, error) {
	if !review.Method.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported payout method %q", review.Method))
	}

	aff, err := s.repo.AffiliateByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("Affiliate")
		}
		return nil, domain.NewInternalError(err)
	}

	if review.Verified {
		switch aff.Status {
		case models.AffiliateStatusSuspended, models.AffiliateStatusFlagged:
			return nil, domain.NewForbiddenError(fmt.Sprintf("cannot verify payout details of a %s affiliate", aff.Status))
		}
		if missing := missingDetails(aff, review.Method); missing != "" {
			return nil, domain.NewValidationError(missing)
		}
	}

	if err := s.repo.SetPayoutVerification(ctx, aff.ID, review.Method, review.Verified); err != nil {
		return nil, domain.NewInternalError(err)
	}

	s.log.Info("payout verification reviewed",
		"affiliate_id", aff.ID,
		"method", review.Method,
		"verified", review.Verified,
		"reviewed_by", review.ReviewedBy,
	)

	updated, err := s.repo.AffiliateByID(ctx, aff.ID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return updated, nil
}

func missingDetails(aff *models.Affiliate, method models.PayoutMethod) string {
	blank := func(v string) bool { return strings.TrimSpace(v) == "" }
	switch method {
	case models.PayoutMethodBankTransfer:
		if blank(aff.AccountHolderName) || blank(aff.AccountNumber) || blank(aff.BankName) {
			return "bank details are incomplete"
		}
	case models.PayoutMethodGCash:
		if blank(aff.GCashNumber) || blank(aff.GCashName) {
			return "GCash details are incomplete"
		}
	}
	return ""
}
