package models

import "time"

// PurchaseLead is a checkout started by a visitor, recorded before payment
type PurchaseLead struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	FirstName   string    `db:"first_name" json:"first_name"`
	ProductType string    `db:"product_type" json:"product_type"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentStatusActive marks a paid, running enrollment
const EnrollmentStatusActive = "active"

// Enrollment is a course enrollment
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EmailJobStatus is the delivery state of a queued email
type EmailJobStatus string

const (
	EmailJobStatusPending EmailJobStatus = "pending"
	EmailJobStatusSent    EmailJobStatus = "sent"
	EmailJobStatusFailed  EmailJobStatus = "failed"
)

// EmailJob is a queued campaign email
type EmailJob struct {
	ID          string         `db:"id" json:"id"`
	Email       string         `db:"email" json:"email"`
	FirstName   string         `db:"first_name" json:"first_name"`
	CampaignKey string         `db:"campaign_key" json:"campaign_key"`
	LeadID      *string        `db:"lead_id" json:"lead_id,omitempty"`
	Status      EmailJobStatus `db:"status" json:"status"`
	Attempts    int            `db:"attempts" json:"attempts"`
	LastError   *string        `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	SentAt      *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
}
