package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/abandonment"
	"github.com/jordanlanch/homeschoolhub/pkg/affiliate"
	"github.com/jordanlanch/homeschoolhub/pkg/emailjobs"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// Job names
const (
	JobAbandonment    = "abandonment"
	JobEmailDelivery  = "email_delivery"
	JobAutoClearing   = "auto_clearing"
	JobReconciliation = "postback_reconciliation"
)

const emailBatchSize = 50

// AbandonmentRunner queues abandoned checkout reminders
type AbandonmentRunner interface {
	Run(ctx context.Context, now time.Time) (abandonment.RunResult, error)
}

// EmailDeliverer sends queued emails
type EmailDeliverer interface {
	DeliverPending(ctx context.Context, limit int) (emailjobs.Result, error)
}

// ConversionMaintainer clears conversions and repairs postbacks
type ConversionMaintainer interface {
	ClearEligibleConversions(ctx context.Context, now time.Time) (affiliate.ClearingResult, error)
	ReconcilePostbacks(ctx context.Context) (affiliate.ReconcileResult, error)
}

// Services are the components the scheduled jobs drive
type Services struct {
	Abandonment AbandonmentRunner
	Email       EmailDeliverer
	Conversions ConversionMaintainer
}

type job struct {
	name    string
	spec    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	services Services
	log      logger.Logger
	metrics  *metrics.Metrics
	jobs     map[string]job
	now      func() time.Time
}

// NewCronManager creates a new cron manager. Schedules are evaluated in UTC.
func NewCronManager(services Services, log logger.Logger, m *metrics.Metrics) *CronManager {
	return &CronManager{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		services: services,
		log:      log,
		metrics:  m,
		jobs:     map[string]job{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	jobs := []job{
		{
			// Leads stay in the abandonment window for 15 minutes, so every
			// lead is seen at least twice. Duplicate jobs are skipped.
			name:    JobAbandonment,
			spec:    "*/5 * * * *",
			timeout: 2 * time.Minute,
			run: func(ctx context.Context) error {
				res, err := cm.services.Abandonment.Run(ctx, cm.now())
				if err != nil {
					return err
				}
				if res.Checked > 0 {
					cm.log.Info("abandonment job completed", "checked", res.Checked, "queued", res.Queued, "skipped", res.Skipped, "failed", res.Failed)
				}
				return nil
			},
		},
		{
			name:    JobEmailDelivery,
			spec:    "*/5 * * * *",
			timeout: 4 * time.Minute,
			run: func(ctx context.Context) error {
				res, err := cm.services.Email.DeliverPending(ctx, emailBatchSize)
				if err != nil {
					return err
				}
				if res.Processed > 0 {
					cm.log.Info("email delivery job completed", "processed", res.Processed, "sent", res.Sent, "retrying", res.Retrying, "failed", res.Failed)
				}
				return nil
			},
		},
		{
			name:    JobAutoClearing,
			spec:    "0 3 * * *",
			timeout: 30 * time.Minute,
			run: func(ctx context.Context) error {
				_, err := cm.services.Conversions.ClearEligibleConversions(ctx, cm.now())
				return err
			},
		},
		{
			name:    JobReconciliation,
			spec:    "15 * * * *",
			timeout: 10 * time.Minute,
			run: func(ctx context.Context) error {
				_, err := cm.services.Conversions.ReconcilePostbacks(ctx)
				return err
			},
		},
	}

	for _, j := range jobs {
		j := j
		if _, err := cm.cron.AddFunc(j.spec, func() { _ = cm.execute(j) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		cm.jobs[j.name] = j
	}

	cm.log.Info("cron jobs configured",
		JobAbandonment, "every 5 minutes",
		JobEmailDelivery, "every 5 minutes",
		JobAutoClearing, "daily at 03:00 UTC",
		JobReconciliation, "hourly at :15",
	)
	return nil
}

func (cm *CronManager) execute(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	err := j.run(ctx)
	if err != nil {
		cm.log.Error("cron job failed", "job", j.name, "duration", time.Since(start).String(), "error", err)
		cm.metrics.RecordTask("cron."+j.name, "failed")
		return err
	}
	cm.metrics.RecordTask("cron."+j.name, "success")
	return nil
}

// RunJob runs a configured job immediately
func (cm *CronManager) RunJob(name string) error {
	j, ok := cm.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return cm.execute(j)
}

// Entries returns the number of scheduled jobs
func (cm *CronManager) Entries() int {
	return len(cm.cron.Entries())
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.log.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop stops the cron scheduler and waits for running jobs to finish
func (cm *CronManager) Stop() context.Context {
	cm.log.Info("stopping cron scheduler")
	return cm.cron.Stop()
}
