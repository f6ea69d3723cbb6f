// Package payout decides which affiliates can be paid and prepares payout batches.
package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Messages returned instead of rule failures
const (
	MsgUnavailable       = "Unable to validate payout eligibility at this time"
	MsgAffiliateNotFound = "Affiliate not found"
)

// ValidationResult is the outcome of a single eligibility check
type ValidationResult = models.PayoutValidation

// AffiliateLoader loads the affiliate being paid
type AffiliateLoader interface {
	AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error)
}

// ConfigProvider supplies the program configuration
type ConfigProvider interface {
	Get(ctx context.Context) (*models.ProgramConfig, error)
}

// Validator checks payout eligibility against the program configuration
type Validator struct {
	affiliates AffiliateLoader
	config     ConfigProvider
	log        logger.Logger
	metrics    *metrics.Metrics
	printer    *message.Printer
}

// NewValidator creates a validator
func NewValidator(affiliates AffiliateLoader, config ConfigProvider, log logger.Logger, m *metrics.Metrics) *Validator {
	return &Validator{
		affiliates: affiliates,
		config:     config,
		log:        log,
		metrics:    m,
		printer:    message.NewPrinter(language.English),
	}
}

// ValidatePayoutEligibility runs every payout rule and collects all failures.
// Rule failures are returned as data. Infrastructure failures yield a single
// generic error and are logged.
func (v *Validator) ValidatePayoutEligibility(ctx context.Context, affiliateID string, totalAmount decimal.Decimal, method models.PayoutMethod) ValidationResult {
	res := v.validate(ctx, affiliateID, totalAmount, method)

	outcome := "valid"
	if !res.IsValid {
		outcome = "invalid"
	}
	v.metrics.RecordPayoutValidation(string(method), outcome)
	return res
}

func (v *Validator) validate(ctx context.Context, affiliateID string, totalAmount decimal.Decimal, method models.PayoutMethod) ValidationResult {
	cfg, err := v.config.Get(ctx)
	if err != nil {
		v.log.Error("payout validation failed to load program config",
			"affiliate_id", affiliateID,
			"operation", "validate_payout_eligibility",
			"error", err,
		)
		return invalid(MsgUnavailable)
	}

	aff, err := v.affiliates.AffiliateByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid(MsgAffiliateNotFound)
		}
		v.log.Error("payout validation failed to load affiliate",
			"affiliate_id", affiliateID,
			"operation", "validate_payout_eligibility",
			"error", err,
		)
		return invalid(MsgUnavailable)
	}

	errs := []string{}

	if totalAmount.LessThan(cfg.MinPayoutThreshold) {
		errs = append(errs, fmt.Sprintf("Amount %s below minimum threshold of %s",
			v.FormatPeso(totalAmount), v.FormatPeso(cfg.MinPayoutThreshold)))
	}

	if !cfg.EnabledPayoutMethods.Contains(method) {
		errs = append(errs, fmt.Sprintf("Payout method %s is not enabled", methodLabel(method)))
	}

	switch method {
	case models.PayoutMethodBankTransfer:
		if blank(aff.AccountHolderName) || blank(aff.AccountNumber) || blank(aff.BankName) {
			errs = append(errs, "Missing bank account details (account holder name, account number and bank name are required)")
		}
		if cfg.RequireBankVerification && !aff.BankAccountVerified {
			errs = append(errs, "Bank account not verified")
		}
	case models.PayoutMethodGCash:
		if blank(aff.GCashNumber) || blank(aff.GCashName) {
			errs = append(errs, "Missing GCash details (GCash number and name are required)")
		}
		if cfg.RequireGCashVerification && !aff.GCashVerified {
			errs = append(errs, "GCash not verified")
		}
	default:
		errs = append(errs, fmt.Sprintf("Unsupported payout method %q", string(method)))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// FormatPeso renders an amount as "₱1,500.00"
func (v *Validator) FormatPeso(amount decimal.Decimal) string {
	return "₱" + v.printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

func invalid(msg string) ValidationResult {
	return ValidationResult{IsValid: false, Errors: []string{msg}}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func methodLabel(m models.PayoutMethod) string {
	switch m {
	case models.PayoutMethodBankTransfer:
		return "bank transfer"
	case models.PayoutMethodGCash:
		return "GCash"
	}
	return string(m)
}

// BatchAffiliate is one entry of a payout batch
type BatchAffiliate struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// BatchSummary counts a batch's outcomes
type BatchSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// BatchValidationResult partitions a batch into payable affiliates and errors
type BatchValidationResult struct {
	IsValid         bool             `json:"is_valid"`
	Errors          []string         `json:"errors"`
	ValidAffiliates []BatchAffiliate `json:"valid_affiliates"`
	Summary         BatchSummary     `json:"summary"`
}

// ValidatePayoutBatch validates each affiliate in order. Errors are prefixed
// with "<name> (<email>): ". Nothing is modified.
func (v *Validator) ValidatePayoutBatch(ctx context.Context, affiliates []BatchAffiliate, method models.PayoutMethod) BatchValidationResult {
	res, _ := v.validateBatch(ctx, affiliates, method)
	return res
}

// validateBatch also returns the per-affiliate results, in input order.
func (v *Validator) validateBatch(ctx context.Context, affiliates []BatchAffiliate, method models.PayoutMethod) (BatchValidationResult, []ValidationResult) {
	res := BatchValidationResult{
		Errors:          []string{},
		ValidAffiliates: []BatchAffiliate{},
		Summary:         BatchSummary{Total: len(affiliates)},
	}
	checks := make([]ValidationResult, 0, len(affiliates))

	for _, a := range affiliates {
		check := v.ValidatePayoutEligibility(ctx, a.ID, a.TotalAmount, method)
		checks = append(checks, check)
		if check.IsValid {
			res.ValidAffiliates = append(res.ValidAffiliates, a)
			res.Summary.Valid++
			continue
		}
		res.Summary.Invalid++
		for _, e := range check.Errors {
			res.Errors = append(res.Errors, fmt.Sprintf("%s (%s): %s", a.Name, a.Email, e))
		}
	}

	res.IsValid = res.Summary.Invalid == 0
	return res, checks
}
