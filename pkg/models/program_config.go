package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PayoutMethod is a disbursement channel
type PayoutMethod string

const (
	PayoutMethodGCash        PayoutMethod = "gcash"
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
)

// Valid reports whether m is a supported method
func (m PayoutMethod) Valid() bool {
	return m == PayoutMethodGCash || m == PayoutMethodBankTransfer
}

// PayoutMethods is stored as a JSON array column
type PayoutMethods []PayoutMethod

// Contains reports whether m is in the list
func (ms PayoutMethods) Contains(m PayoutMethod) bool {
	for _, v := range ms {
		if v == m {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer
func (ms PayoutMethods) Value() (driver.Value, error) {
	if ms == nil {
		ms = PayoutMethods{}
	}
	b, err := json.Marshal([]PayoutMethod(ms))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (ms *PayoutMethods) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*ms = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported payout methods column type %T", src)
	}
	var out []PayoutMethod
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode payout methods: %w", err)
	}
	*ms = out
	return nil
}

// ProgramConfig is the singleton affiliate program configuration (row id 1)
type ProgramConfig struct {
	ID                       int             `db:"id" json:"-"`
	MinPayoutThreshold       decimal.Decimal `db:"min_payout_threshold" json:"min_payout_threshold"`
	EnabledPayoutMethods     PayoutMethods   `db:"enabled_payout_methods" json:"enabled_payout_methods"`
	RequireBankVerification  bool            `db:"require_verification_for_bank_transfer" json:"require_verification_for_bank_transfer"`
	RequireGCashVerification bool            `db:"require_verification_for_gcash" json:"require_verification_for_gcash"`
	CookieDurationDays       int             `db:"cookie_duration_days" json:"cookie_duration_days"`
	RefundPeriodDays         int             `db:"refund_period_days" json:"refund_period_days"`
	PayoutCurrency           string          `db:"payout_currency" json:"payout_currency"`
}

// ProgramConfigID is the primary key of the singleton row
const ProgramConfigID = 1

// DefaultProgramConfig returns the values used when no row exists
func DefaultProgramConfig() *ProgramConfig {
	return &ProgramConfig{
		ID:                       ProgramConfigID,
		MinPayoutThreshold:       decimal.NewFromInt(2000),
		EnabledPayoutMethods:     PayoutMethods{PayoutMethodGCash},
		RequireBankVerification:  true,
		RequireGCashVerification: false,
		CookieDurationDays:       30,
		RefundPeriodDays:         30,
		PayoutCurrency:           "PHP",
	}
}
