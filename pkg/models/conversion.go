package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionStatus is the payout lifecycle state of a conversion
type ConversionStatus string

const (
	ConversionStatusPending ConversionStatus = "pending"
	ConversionStatusCleared ConversionStatus = "cleared"
	ConversionStatusPaid    ConversionStatus = "paid"
	ConversionStatusFlagged ConversionStatus = "flagged"
)

// Flag reasons written by the service itself
const (
	FlagReasonCommissionRateUnavailable = "commission_rate_unavailable"
	FlagReasonHighCommission            = "high_commission_amount"
	FlagReasonHighVelocity              = "high_velocity"
)

// Valid reports whether s is a known status
func (s ConversionStatus) Valid() bool {
	switch s {
	case ConversionStatusPending, ConversionStatusCleared, ConversionStatusPaid, ConversionStatusFlagged:
		return true
	}
	return false
}

// CanTransitionTo reports whether a conversion may move from s to next.
// Status only moves forward: pending -> cleared -> paid, and any status
// other than paid may be flagged. Paid is terminal.
func (s ConversionStatus) CanTransitionTo(next ConversionStatus) bool {
	switch next {
	case ConversionStatusCleared:
		return s == ConversionStatusPending
	case ConversionStatusPaid:
		return s == ConversionStatusCleared
	case ConversionStatusFlagged:
		return s == ConversionStatusPending || s == ConversionStatusCleared
	}
	return false
}

// PredecessorsOf lists the statuses a conversion may hold before moving to next
func PredecessorsOf(next ConversionStatus) []ConversionStatus {
	var out []ConversionStatus
	for _, s := range []ConversionStatus{ConversionStatusPending, ConversionStatusCleared, ConversionStatusPaid, ConversionStatusFlagged} {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// Conversion is a completed sale attributed to an affiliate.
// CommissionAmount is null when the tier rate could not be resolved; such rows are flagged.
type Conversion struct {
	ID               string              `db:"id" json:"id"`
	AffiliateID      string              `db:"affiliate_id" json:"affiliate_id"`
	OrderID          string              `db:"order_id" json:"order_id"`
	ClickID          *string             `db:"click_id" json:"click_id,omitempty"`
	GMV              decimal.Decimal     `db:"gmv" json:"gmv"`
	CommissionAmount decimal.NullDecimal `db:"commission_amount" json:"commission_amount"`
	CommissionRate   decimal.NullDecimal `db:"commission_rate" json:"commission_rate"`
	SubID            *string             `db:"sub_id" json:"sub_id,omitempty"`
	Status           ConversionStatus    `db:"status" json:"status"`
	FlagReason       *string             `db:"flag_reason" json:"flag_reason,omitempty"`
	ClearedAt        *time.Time          `db:"cleared_at" json:"cleared_at,omitempty"`
	PaidAt           *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
}

// PostbackStatus is the delivery state of a network postback
type PostbackStatus string

const (
	PostbackStatusPending PostbackStatus = "pending"
	PostbackStatusSent    PostbackStatus = "sent"
	PostbackStatusFailed  PostbackStatus = "failed"
)

// NetworkPostback is a pending notification to an external affiliate network.
// Only inserted here; delivery happens elsewhere.
type NetworkPostback struct {
	ID           string         `db:"id" json:"id"`
	ConversionID string         `db:"conversion_id" json:"conversion_id"`
	NetworkName  string         `db:"network_name" json:"network_name"`
	SubID        *string        `db:"sub_id" json:"sub_id,omitempty"`
	PostbackURL  string         `db:"postback_url" json:"postback_url"`
	Status       PostbackStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
