// Package emailjobs delivers queued campaign emails.
package emailjobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

// MaxAttempts is the number of sends tried before a job is marked failed
const MaxAttempts = 3

// Repository is the storage used by the worker
type Repository interface {
	PendingEmailJobs(ctx context.Context, limit int) ([]models.EmailJob, error)
	MarkEmailJobSent(ctx context.Context, id string, attempts int, at time.Time) error
	MarkEmailJobAttempt(ctx context.Context, id string, attempts int, status models.EmailJobStatus, lastError string) error
}

// Sender sends a rendered campaign email
type Sender interface {
	SendCampaign(toEmail, firstName, campaignKey string) error
}

// Result summarizes one delivery pass
type Result struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
}

// Worker sends pending email jobs
type Worker struct {
	repo    Repository
	sender  Sender
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewWorker creates a worker
func NewWorker(repo Repository, sender Sender, log logger.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		repo:    repo,
		sender:  sender,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DeliverPending sends up to limit pending jobs. Failed sends stay pending
// until MaxAttempts is reached.
func (w *Worker) DeliverPending(ctx context.Context, limit int) (Result, error) {
	var res Result

	jobs, err := w.repo.PendingEmailJobs(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("failed to load pending email jobs: %w", err)
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Processed++

		attempts := job.Attempts + 1
		sendErr := w.sender.SendCampaign(job.Email, job.FirstName, job.CampaignKey)
		if sendErr == nil {
			if err := w.repo.MarkEmailJobSent(ctx, job.ID, attempts, w.now()); err != nil {
				w.log.Error("failed to mark email job sent", "job_id", job.ID, "error", err)
			}
			res.Sent++
			w.metrics.RecordEmailJob(string(models.EmailJobStatusSent))
			continue
		}

		status := models.EmailJobStatusPending
		if attempts >= MaxAttempts {
			status = models.EmailJobStatusFailed
			res.Failed++
		} else {
			res.Retrying++
		}
		w.log.Warn("email job send failed",
			"job_id", job.ID,
			"campaign_key", job.CampaignKey,
			"attempt", attempts,
			"error", sendErr,
		)
		if err := w.repo.MarkEmailJobAttempt(ctx, job.ID, attempts, status, sendErr.Error()); err != nil {
			w.log.Error("failed to record email job attempt", "job_id", job.ID, "error", err)
		}
		w.metrics.RecordEmailJob(string(status))
	}

	return res, nil
}
