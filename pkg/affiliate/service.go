package affiliate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/tasks"
	"github.com/shopspring/decimal"
)

var (
	// ErrMissingSlug is returned when a click has no affiliate slug
	ErrMissingSlug = errors.New("affiliate slug is required")
	// ErrAffiliateNotFound is returned when affiliate doesn't exist
	ErrAffiliateNotFound = domain.NewNotFoundError("Affiliate")
	// ErrAffiliateInactive is returned when the affiliate may not earn commission
	ErrAffiliateInactive = domain.NewForbiddenError("Affiliate is not active")
	// ErrUnattributable is returned when a sale names no known affiliate
	ErrUnattributable = errors.New("sale cannot be attributed to an affiliate")
)

// Repository is the storage the service needs. *store.Store implements it.
type Repository interface {
	AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error)
	AffiliateBySlug(ctx context.Context, slug string) (*models.Affiliate, error)
	MembershipLevelByID(ctx context.Context, id string) (*models.MembershipLevel, error)
	SetPayoutVerification(ctx context.Context, id string, method models.PayoutMethod, verified bool) error

	InsertClick(ctx context.Context, c *models.Click) error
	LatestClick(ctx context.Context, affiliateID, visitorID string, since time.Time) (*models.Click, error)

	InsertConversion(ctx context.Context, c *models.Conversion) (bool, error)
	ConversionByID(ctx context.Context, id string) (*models.Conversion, error)
	ConversionByOrderID(ctx context.Context, orderID string) (*models.Conversion, error)
	UpdateConversionStatus(ctx context.Context, id string, change store.StatusChange) (bool, error)
	ListConversions(ctx context.Context, f store.ConversionFilter) ([]models.Conversion, int, error)
	PendingConversionsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Conversion, error)
	CountAffiliateConversionsBetween(ctx context.Context, affiliateID string, from, to time.Time) (int, error)
	ConversionsMissingPostback(ctx context.Context, limit int) ([]models.Conversion, error)
	SettledConversions(ctx context.Context, affiliateID string, from, to time.Time) ([]models.Conversion, error)
	ClickTimes(ctx context.Context, affiliateID string, from, to time.Time) ([]time.Time, error)

	InsertNetworkPostback(ctx context.Context, p *models.NetworkPostback) error
}

// ConfigProvider supplies the program configuration
type ConfigProvider interface {
	Get(ctx context.Context) (*models.ProgramConfig, error)
}

// Dispatcher runs best-effort work in the background
type Dispatcher interface {
	Dispatch(task tasks.Task) bool
}

// Trigger posts automation events
type Trigger interface {
	Trigger(ctx context.Context, event string, data map[string]any) error
}

// ClickData holds data for tracking a click
type ClickData struct {
	VisitorID   string
	SubID       string
	IPAddress   string
	UserAgent   string
	Referrer    string
	LandingPage string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMContent  string
	UTMTerm     string
}

// Attribution is the click a conversion is credited to. Both fields are nil
// for an unattributed sale.
type Attribution struct {
	ClickID *string
	SubID   *string
}

// Service handles affiliate operations
type Service struct {
	repo              Repository
	config            ConfigProvider
	dispatcher        Dispatcher
	automation        Trigger
	log               logger.Logger
	metrics           *metrics.Metrics
	attributionWindow time.Duration
	now               func() time.Time
}

// NewService creates a new affiliate service
func NewService(repo Repository, config ConfigProvider, log logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		config:  config,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithAttributionWindow limits attribution to clicks newer than d. Zero means unbounded.
func (s *Service) WithAttributionWindow(d time.Duration) *Service {
	s.attributionWindow = d
	return s
}

// WithAutomation enables the conversion automation event
func (s *Service) WithAutomation(d Dispatcher, t Trigger) *Service {
	s.dispatcher = d
	s.automation = t
	return s
}

// TrackClick records a click on an affiliate link. A visitor id is generated
// when data carries none.
func (s *Service) TrackClick(ctx context.Context, slug string, data ClickData) (*models.Click, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrMissingSlug
	}

	aff, err := s.repo.AffiliateBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to get affiliate: %w", err)
	}
	if !aff.IsActive() {
		return nil, ErrAffiliateInactive
	}

	visitorID := data.VisitorID
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	click := &models.Click{
		ID:             uuid.NewString(),
		AffiliateID:    aff.ID,
		VisitorID:      visitorID,
		IPAddress:      data.IPAddress,
		UserAgent:      data.UserAgent,
		ReferralURL:    data.Referrer,
		LandingPageURL: data.LandingPage,
		UTMSource:      data.UTMSource,
		UTMMedium:      data.UTMMedium,
		UTMCampaign:    data.UTMCampaign,
		UTMContent:     data.UTMContent,
		UTMTerm:        data.UTMTerm,
		CreatedAt:      s.now(),
	}
	if data.SubID != "" {
		subID := data.SubID
		click.SubID = &subID
	}

	if err := s.repo.InsertClick(ctx, click); err != nil {
		return nil, fmt.Errorf("failed to create click: %w", err)
	}
	s.metrics.RecordClick()

	return click, nil
}

// FindAttributableClick returns the most recent click by visitorID on the
// affiliate's links. It never fails: lookup errors are logged and yield an
// empty Attribution.
func (s *Service) FindAttributableClick(ctx context.Context, affiliateID, visitorID string) Attribution {
	if affiliateID == "" || visitorID == "" {
		return Attribution{}
	}

	var since time.Time
	if s.attributionWindow > 0 {
		since = s.now().Add(-s.attributionWindow)
	}

	click, err := s.repo.LatestClick(ctx, affiliateID, visitorID, since)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("failed to find attributable click",
				"affiliate_id", affiliateID,
				"operation", "find_attributable_click",
				"error", err,
			)
		}
		return Attribution{}
	}

	id := click.ID
	return Attribution{ClickID: &id, SubID: click.SubID}
}

// CalculateCommission returns sale × rate rounded half-up to two decimal places
func CalculateCommission(sale, rate decimal.Decimal) decimal.Decimal {
	return sale.Mul(rate).Round(2)
}

// ListConversions returns one page of an affiliate's conversions
func (s *Service) ListConversions(ctx context.Context, f store.ConversionFilter) ([]models.Conversion, int, error) {
	conversions, total, err := s.repo.ListConversions(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversions: %w", err)
	}
	return conversions, total, nil
}
