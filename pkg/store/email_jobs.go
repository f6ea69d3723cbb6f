package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

var emailJobColumns = []string{
	"id", "email", "first_name", "campaign_key", "lead_id", "status", "attempts", "last_error", "created_at", "sent_at",
}

// HasEmailJob reports whether a job was ever queued for (email, campaign)
func (s *Store) HasEmailJob(ctx context.Context, email, campaignKey string) (bool, error) {
	b := s.builder()
	ok, err := s.exists(ctx, b.Select("id").From(b.Table(emailJobsTable)).Where(sql.And(
		sql.EqualFold("email", email),
		sql.EQ("campaign_key", campaignKey),
	)))
	if err != nil {
		return false, fmt.Errorf("failed to check email job: %w", err)
	}
	return ok, nil
}

// InsertEmailJob queues a job. It reports false when a job for the same
// (email, campaign) already exists.
func (s *Store) InsertEmailJob(ctx context.Context, j *models.EmailJob) (bool, error) {
	q := s.builder().Insert(emailJobsTable).Columns(emailJobColumns...).Values(
		j.ID, j.Email, j.FirstName, j.CampaignKey, j.LeadID, string(j.Status), j.Attempts, j.LastError,
		utc(j.CreatedAt), utcPtr(j.SentAt),
	).OnConflict(sql.ConflictColumns("email", "campaign_key"), sql.DoNothing())

	n, err := s.exec(ctx, q)
	if err != nil {
		return false, fmt.Errorf("failed to insert email job: %w", err)
	}
	return n > 0, nil
}

// PendingEmailJobs returns up to limit pending jobs, oldest first
func (s *Store) PendingEmailJobs(ctx context.Context, limit int) ([]models.EmailJob, error) {
	b := s.builder()
	sel := b.Select(emailJobColumns...).
		From(b.Table(emailJobsTable)).
		Where(sql.EQ("status", string(models.EmailJobStatusPending))).
		OrderBy("created_at", "id").
		Limit(limit)

	var jobs []models.EmailJob
	if err := s.selectAll(ctx, &jobs, sel); err != nil {
		return nil, fmt.Errorf("failed to load pending email jobs: %w", err)
	}
	return jobs, nil
}

// EmailJobByID loads a job
func (s *Store) EmailJobByID(ctx context.Context, id string) (*models.EmailJob, error) {
	b := s.builder()
	var j models.EmailJob
	if err := s.get(ctx, &j, b.Select(emailJobColumns...).From(b.Table(emailJobsTable)).Where(sql.EQ("id", id))); err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkEmailJobSent records a successful delivery
func (s *Store) MarkEmailJobSent(ctx context.Context, id string, attempts int, at time.Time) error {
	q := s.builder().Update(emailJobsTable).
		Set("status", string(models.EmailJobStatusSent)).
		Set("attempts", attempts).
		Set("sent_at", utc(at)).
		SetNull("last_error").
		Where(sql.EQ("id", id))
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to mark email job sent: %w", err)
	}
	return nil
}

// MarkEmailJobAttempt records a failed delivery. The job stays pending
// unless status says otherwise.
func (s *Store) MarkEmailJobAttempt(ctx context.Context, id string, attempts int, status models.EmailJobStatus, lastError string) error {
	q := s.builder().Update(emailJobsTable).
		Set("status", string(status)).
		Set("attempts", attempts).
		Set("last_error", lastError).
		Where(sql.EQ("id", id))
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to record email job attempt: %w", err)
	}
	return nil
}
