// Package abandonment queues reminder emails for checkouts that were started but not paid.
package abandonment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/homeschoolhub/pkg/email"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

// Leads created in [now-WindowStart, now-WindowEnd) are considered abandoned.
const (
	WindowStart = 45 * time.Minute
	WindowEnd   = 30 * time.Minute
)

// Repository is the storage the notifier needs
type Repository interface {
	LeadsCreatedBetween(ctx context.Context, from, to time.Time) ([]models.PurchaseLead, error)
	HasActiveEnrollment(ctx context.Context, email string) (bool, error)
	HasEmailJob(ctx context.Context, email, campaignKey string) (bool, error)
	InsertEmailJob(ctx context.Context, j *models.EmailJob) (bool, error)
}

// RunResult counts the outcome of one run
type RunResult struct {
	Checked int `json:"checked"`
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Notifier scans recent purchase leads and queues abandoned checkout reminders
type Notifier struct {
	repo    Repository
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewNotifier creates a notifier
func NewNotifier(repo Repository, log logger.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{repo: repo, log: log, metrics: m}
}

// Run processes the leads in the abandonment window ending at now. A failure
// on one lead is logged and counted; only failing to load the leads aborts the run.
func (n *Notifier) Run(ctx context.Context, now time.Time) (RunResult, error) {
	var res RunResult
	now = now.UTC()

	leads, err := n.repo.LeadsCreatedBetween(ctx, now.Add(-WindowStart), now.Add(-WindowEnd))
	if err != nil {
		return res, fmt.Errorf("failed to load purchase leads: %w", err)
	}

	for i := range leads {
		lead := &leads[i]
		res.Checked++

		outcome, err := n.process(ctx, lead, now)
		if err != nil {
			n.log.Error("failed to process abandoned checkout lead",
				"lead_id", lead.ID,
				"operation", "process_abandonment",
				"error", err,
			)
			outcome = "failed"
		}
		n.metrics.RecordAbandonmentLead(outcome)

		switch outcome {
		case "queued":
			res.Queued++
		case "failed":
			res.Failed++
		default:
			res.Skipped++
		}
	}

	n.log.Info("abandonment run finished",
		"checked", res.Checked,
		"queued", res.Queued,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

func (n *Notifier) process(ctx context.Context, lead *models.PurchaseLead, now time.Time) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(lead.Email))
	if addr == "" {
		return "skipped_no_email", nil
	}

	enrolled, err := n.repo.HasActiveEnrollment(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return "skipped_enrolled", nil
	}

	exists, err := n.repo.HasEmailJob(ctx, addr, email.CampaignAbandonedCheckout)
	if err != nil {
		return "", fmt.Errorf("failed to check email job: %w", err)
	}
	if exists {
		return "skipped_already_queued", nil
	}

	leadID := lead.ID
	inserted, err := n.repo.InsertEmailJob(ctx, &models.EmailJob{
		ID:          uuid.NewString(),
		Email:       addr,
		FirstName:   lead.FirstName,
		CampaignKey: email.CampaignAbandonedCheckout,
		LeadID:      &leadID,
		Status:      models.EmailJobStatusPending,
		CreatedAt:   now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to queue email job: %w", err)
	}
	if !inserted {
		return "skipped_already_queued", nil
	}
	return "queued", nil
}
