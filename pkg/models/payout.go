package models

import "github.com/shopspring/decimal"

// PayoutValidation is the outcome of a payout eligibility check.
// Errors lists every failed rule; it is empty when IsValid.
type PayoutValidation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// PayoutBatchCandidate is an affiliate considered for a payout run. Derived, never persisted.
type PayoutBatchCandidate struct {
	AffiliateID   string           `json:"affiliate_id"`
	AffiliateName string           `json:"affiliate_name"`
	Email         string           `json:"email"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	ClearedCount  int              `json:"cleared_count"`
	Validation    PayoutValidation `json:"validation"`
}
