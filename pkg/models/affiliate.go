package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateStatus is the lifecycle state of an affiliate account
type AffiliateStatus string

const (
	AffiliateStatusActive    AffiliateStatus = "active"
	AffiliateStatusPending   AffiliateStatus = "pending"
	AffiliateStatusSuspended AffiliateStatus = "suspended"
	AffiliateStatusFlagged   AffiliateStatus = "flagged"
)

// Affiliate is a partner who earns commission on referred sales.
// Bank and GCash fields are empty strings when not provided.
type Affiliate struct {
	ID                  string          `db:"id" json:"id"`
	UserID              string          `db:"user_id" json:"user_id"`
	Slug                string          `db:"slug" json:"slug"`
	Name                string          `db:"name" json:"name"`
	Email               string          `db:"email" json:"email"`
	Status              AffiliateStatus `db:"status" json:"status"`
	MembershipLevelID   *string         `db:"membership_level_id" json:"membership_level_id,omitempty"`
	AccountHolderName   string          `db:"account_holder_name" json:"account_holder_name,omitempty"`
	AccountNumber       string          `db:"account_number" json:"-"`
	BankName            string          `db:"bank_name" json:"bank_name,omitempty"`
	GCashNumber         string          `db:"gcash_number" json:"gcash_number,omitempty"`
	GCashName           string          `db:"gcash_name" json:"gcash_name,omitempty"`
	BankAccountVerified bool            `db:"bank_account_verified" json:"bank_account_verified"`
	GCashVerified       bool            `db:"gcash_verified" json:"gcash_verified"`
	NetworkName         *string         `db:"network_name" json:"network_name,omitempty"`
	PostbackURL         *string         `db:"postback_url" json:"postback_url,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// IsActive reports whether the affiliate may earn commission
func (a *Affiliate) IsActive() bool {
	return a.Status == AffiliateStatusActive
}

// HasNetworkPostback reports whether conversions must be reported to an external network
func (a *Affiliate) HasNetworkPostback() bool {
	return a.NetworkName != nil && *a.NetworkName != "" &&
		a.PostbackURL != nil && *a.PostbackURL != ""
}

// MembershipLevel is a commission tier
type MembershipLevel struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	CommissionRate decimal.Decimal `db:"commission_rate" json:"commission_rate"`
}

// Click is a single visit through an affiliate link. Written once, never updated.
type Click struct {
	ID             string    `db:"id" json:"id"`
	AffiliateID    string    `db:"affiliate_id" json:"affiliate_id"`
	VisitorID      string    `db:"visitor_id" json:"visitor_id"`
	SubID          *string   `db:"sub_id" json:"sub_id,omitempty"`
	IPAddress      string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent      string    `db:"user_agent" json:"user_agent,omitempty"`
	ReferralURL    string    `db:"referral_url" json:"referral_url,omitempty"`
	LandingPageURL string    `db:"landing_page_url" json:"landing_page_url,omitempty"`
	UTMSource      string    `db:"utm_source" json:"utm_source,omitempty"`
	UTMMedium      string    `db:"utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign    string    `db:"utm_campaign" json:"utm_campaign,omitempty"`
	UTMContent     string    `db:"utm_content" json:"utm_content,omitempty"`
	UTMTerm        string    `db:"utm_term" json:"utm_term,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
