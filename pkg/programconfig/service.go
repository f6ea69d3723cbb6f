package programconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/cache"
	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/shopspring/decimal"
)

const (
	cacheKey = "affiliate:program_config"
	cacheTTL = 60 * time.Second
)

// Repository persists the singleton configuration row
type Repository interface {
	ProgramConfig(ctx context.Context) (*models.ProgramConfig, error)
	SaveProgramConfig(ctx context.Context, cfg *models.ProgramConfig) error
}

// Cache is the subset of the Redis client the service needs
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service reads and updates the affiliate program configuration
type Service struct {
	repo    Repository
	cache   Cache
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewService creates a program config service. cache may be nil.
func NewService(repo Repository, c Cache, log logger.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, cache: c, log: log, metrics: m}
}

// Get returns the current configuration. Defaults apply when no row exists.
func (s *Service) Get(ctx context.Context) (*models.ProgramConfig, error) {
	if s.cache != nil {
		var cached models.ProgramConfig
		err := s.cache.GetJSON(ctx, cacheKey, &cached)
		switch {
		case err == nil:
			s.metrics.RecordCacheHit("redis")
			return &cached, nil
		case errors.Is(err, cache.ErrMiss):
			s.metrics.RecordCacheMiss("redis")
		default:
			s.log.Warn("program config cache read failed", "error", err)
		}
	}

	cfg, err := s.repo.ProgramConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		cfg = models.DefaultProgramConfig()
	} else if err != nil {
		return nil, fmt.Errorf("failed to load program config: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, cfg, cacheTTL); err != nil {
			s.log.Warn("program config cache write failed", "error", err)
		}
	}
	return cfg, nil
}

// UpdateInput carries an admin's configuration change. Nil fields are left unchanged.
type UpdateInput struct {
	MinPayoutThreshold       *decimal.Decimal      `json:"min_payout_threshold"`
	EnabledPayoutMethods     []models.PayoutMethod `json:"enabled_payout_methods"`
	RequireBankVerification  *bool                 `json:"require_verification_for_bank_transfer"`
	RequireGCashVerification *bool                 `json:"require_verification_for_gcash"`
	CookieDurationDays       *int                  `json:"cookie_duration_days"`
	RefundPeriodDays         *int                  `json:"refund_period_days"`
}

// Update applies in to the stored configuration and invalidates the cache
func (s *Service) Update(ctx context.Context, in UpdateInput) (*models.ProgramConfig, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	if in.MinPayoutThreshold != nil {
		if in.MinPayoutThreshold.IsNegative() {
			return nil, domain.NewValidationError("min_payout_threshold must not be negative")
		}
		cfg.MinPayoutThreshold = in.MinPayoutThreshold.Round(2)
	}
	if in.EnabledPayoutMethods != nil {
		if len(in.EnabledPayoutMethods) == 0 {
			return nil, domain.NewValidationError("at least one payout method must be enabled")
		}
		methods := models.PayoutMethods{}
		for _, m := range in.EnabledPayoutMethods {
			if !m.Valid() {
				return nil, domain.NewValidationError(fmt.Sprintf("unknown payout method %q", m))
			}
			if !methods.Contains(m) {
				methods = append(methods, m)
			}
		}
		cfg.EnabledPayoutMethods = methods
	}
	if in.RequireBankVerification != nil {
		cfg.RequireBankVerification = *in.RequireBankVerification
	}
	if in.RequireGCashVerification != nil {
		cfg.RequireGCashVerification = *in.RequireGCashVerification
	}
	if in.CookieDurationDays != nil {
		if *in.CookieDurationDays < 1 {
			return nil, domain.NewValidationError("cookie_duration_days must be at least 1")
		}
		cfg.CookieDurationDays = *in.CookieDurationDays
	}
	if in.RefundPeriodDays != nil {
		if *in.RefundPeriodDays < 0 {
			return nil, domain.NewValidationError("refund_period_days must not be negative")
		}
		cfg.RefundPeriodDays = *in.RefundPeriodDays
	}

	if err := s.repo.SaveProgramConfig(ctx, cfg); err != nil {
		return nil, domain.NewInternalError(err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			s.log.Warn("program config cache invalidation failed", "error", err)
		}
	}

	s.log.Info("program config updated",
		"min_payout_threshold", cfg.MinPayoutThreshold.String(),
		"enabled_payout_methods", cfg.EnabledPayoutMethods,
	)
	return cfg, nil
}
