package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

var programConfigColumns = []string{
	"id", "min_payout_threshold", "enabled_payout_methods", "require_verification_for_bank_transfer",
	"require_verification_for_gcash", "cookie_duration_days", "refund_period_days", "payout_currency",
}

// ProgramConfig loads the singleton program configuration row.
// ErrNotFound means the program still runs on defaults.
func (s *Store) ProgramConfig(ctx context.Context) (*models.ProgramConfig, error) {
	b := s.builder()
	sel := b.Select(programConfigColumns...).
		From(b.Table(programConfigTable)).
		Where(sql.EQ("id", models.ProgramConfigID))

	var cfg models.ProgramConfig
	if err := s.get(ctx, &cfg, sel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveProgramConfig inserts or replaces the singleton row
func (s *Store) SaveProgramConfig(ctx context.Context, cfg *models.ProgramConfig) error {
	q := s.builder().Insert(programConfigTable).Columns(programConfigColumns...).Values(
		models.ProgramConfigID, cfg.MinPayoutThreshold, cfg.EnabledPayoutMethods, cfg.RequireBankVerification,
		cfg.RequireGCashVerification, cfg.CookieDurationDays, cfg.RefundPeriodDays, cfg.PayoutCurrency,
	).OnConflict(sql.ConflictColumns("id"), sql.ResolveWithNewValues())

	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to save program config: %w", err)
	}
	return nil
}
