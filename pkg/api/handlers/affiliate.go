package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/homeschoolhub/pkg/affiliate"
	apierrors "github.com/jordanlanch/homeschoolhub/pkg/api/errors"
	custommw "github.com/jordanlanch/homeschoolhub/pkg/api/middleware"
	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/middleware"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/phone"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/labstack/echo/v4"
)

// Tracking cookies
const (
	CookieAffiliate = "gh_aff"
	CookieVisitor   = "gh_vid"

	defaultAffiliateCookieDays = 30
	visitorCookieDays          = 365
)

const (
	defaultConversionsLimit = 10
	maxConversionsLimit     = 100
)

// 1x1 transparent GIF
var trackingPixel, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

// PayoutDetailsStore updates and reloads an affiliate's disbursement fields
type PayoutDetailsStore interface {
	UpdatePayoutDetails(ctx context.Context, current *models.Affiliate, d store.PayoutDetails) error
	AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error)
}

// AffiliateHandler serves the click pixel and the affiliate self-service endpoints
type AffiliateHandler struct {
	service      *affiliate.Service
	config       affiliate.ConfigProvider
	details      PayoutDetailsStore
	secureCookie bool
	log          logger.Logger
	validator    *validator.Validate
}

// NewAffiliateHandler creates a new affiliate handler. Cookies are marked
// Secure when secureCookie is set.
func NewAffiliateHandler(service *affiliate.Service, config affiliate.ConfigProvider, details PayoutDetailsStore, secureCookie bool, log logger.Logger) *AffiliateHandler {
	return &AffiliateHandler{
		service:      service,
		config:       config,
		details:      details,
		secureCookie: secureCookie,
		log:          log,
		validator:    validator.New(),
	}
}

// TrackClick godoc
// @Summary Record an affiliate link click
// @Description Records the visit and answers with a 1x1 GIF that sets the gh_aff and gh_vid cookies
// @Tags Affiliate
// @Produce image/gif
// @Param a query string true "Affiliate slug"
// @Param sub_id query string false "Sub id"
// @Param landingPage query string false "Landing page URL"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /affiliate-click [get]
func (h *AffiliateHandler) TrackClick(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	req := c.Request()
	data := affiliate.ClickData{
		SubID:       c.QueryParam("sub_id"),
		IPAddress:   middleware.ClientIP(req),
		UserAgent:   req.UserAgent(),
		Referrer:    req.Referer(),
		LandingPage: c.QueryParam("landingPage"),
		UTMSource:   c.QueryParam("utm_source"),
		UTMMedium:   c.QueryParam("utm_medium"),
		UTMCampaign: c.QueryParam("utm_campaign"),
		UTMContent:  c.QueryParam("utm_content"),
		UTMTerm:     c.QueryParam("utm_term"),
	}
	if cookie, err := c.Cookie(CookieVisitor); err == nil {
		data.VisitorID = cookie.Value
	}

	slug := c.QueryParam("a")
	click, err := h.service.TrackClick(ctx, slug, data)
	switch {
	case errors.Is(err, affiliate.ErrMissingSlug):
		return apierrors.ValidationError(c, "Missing affiliate slug")
	case domain.IsNotFound(err), domain.IsForbidden(err):
		return apierrors.FromDomain(c, err)
	case err != nil:
		h.log.Error("failed to track click", "slug", slug, "operation", "track_click", "error", err)
		return apierrors.InternalError(c, err)
	}

	affDays := defaultAffiliateCookieDays
	if cfg, err := h.config.Get(ctx); err == nil && cfg.CookieDurationDays > 0 {
		affDays = cfg.CookieDurationDays
	}
	c.SetCookie(h.cookie(CookieAffiliate, strings.TrimSpace(slug), affDays))
	c.SetCookie(h.cookie(CookieVisitor, click.VisitorID, visitorCookieDays))

	res := c.Response().Header()
	res.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	res.Set("Pragma", "no-cache")
	res.Set("Expires", "0")
	return c.Blob(http.StatusOK, "image/gif", trackingPixel)
}

func (h *AffiliateHandler) cookie(name, value string, days int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   days * 24 * 60 * 60,
		Expires:  time.Now().Add(time.Duration(days) * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	}
}

// ConversionsResponse is one page of the caller's conversions
type ConversionsResponse struct {
	Conversions []models.Conversion `json:"conversions"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ListConversions godoc
// @Summary List my conversions
// @Tags Affiliate
// @Produce json
// @Param status query string false "pending, cleared, paid or flagged"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} ConversionsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/affiliate/conversions [get]
func (h *AffiliateHandler) ListConversions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	aff := custommw.AffiliateFrom(c)
	if aff == nil {
		return apierrors.ForbiddenError(c, "not_an_affiliate")
	}

	limit := queryInt(c, "limit", defaultConversionsLimit)
	if limit < 1 {
		limit = defaultConversionsLimit
	}
	if limit > maxConversionsLimit {
		limit = maxConversionsLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	status := models.ConversionStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return apierrors.ValidationError(c, "Invalid status filter")
	}

	conversions, total, err := h.service.ListConversions(ctx, store.ConversionFilter{
		AffiliateID: aff.ID,
		Status:      status,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.log.Error("failed to list conversions", "affiliate_id", aff.ID, "operation", "list_conversions", "error", err)
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, ConversionsResponse{
		Conversions: conversions,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

// Metrics godoc
// @Summary My performance metrics
// @Description Clicks, settled conversions, revenue and commission in total and as a time series. Without dates the summary covers all time.
// @Tags Affiliate
// @Produce json
// @Param group_by query string false "day, week or month (default day)"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} affiliate.Metrics
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/affiliate/metrics [get]
func (h *AffiliateHandler) Metrics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	aff := custommw.AffiliateFrom(c)
	if aff == nil {
		return apierrors.ForbiddenError(c, "not_an_affiliate")
	}

	filter := affiliate.MetricsFilter{GroupBy: affiliate.GroupBy(c.QueryParam("group_by"))}
	for name, dst := range map[string]**time.Time{"start_date": &filter.StartDate, "end_date": &filter.EndDate} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(affiliate.DateLayout, raw)
		if err != nil {
			return apierrors.ValidationError(c, name+" must be formatted as YYYY-MM-DD")
		}
		*dst = &t
	}

	metrics, err := h.service.AffiliateMetrics(ctx, aff.ID, filter)
	if err != nil {
		if domain.HTTPStatus(err) == http.StatusInternalServerError {
			h.log.Error("failed to load metrics", "affiliate_id", aff.ID, "operation", "affiliate_metrics", "error", err)
		}
		return apierrors.FromDomain(c, err)
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.JSON(http.StatusOK, metrics)
}

func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// PayoutDetailsRequest replaces the caller's disbursement details
type PayoutDetailsRequest struct {
	AccountHolderName string `json:"account_holder_name" validate:"max=120"`
	AccountNumber     string `json:"account_number" validate:"omitempty,numeric,min=6,max=20"`
	BankName          string `json:"bank_name" validate:"max=120"`
	GCashNumber       string `json:"gcash_number" validate:"max=20"`
	GCashName         string `json:"gcash_name" validate:"max=120"`
}

// UpdatePayoutDetails godoc
// @Summary Update my payout details
// @Description Replaces bank and GCash details. Verification is reset for every method whose details changed.
// @Tags Affiliate
// @Accept json
// @Produce json
// @Param request body PayoutDetailsRequest true "Payout details"
// @Success 200 {object} models.Affiliate
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/affiliate/payout-details [put]
func (h *AffiliateHandler) UpdatePayoutDetails(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	aff := custommw.AffiliateFrom(c)
	if aff == nil {
		return apierrors.ForbiddenError(c, "not_an_affiliate")
	}

	var req PayoutDetailsRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, "Invalid payout details")
	}

	details := store.PayoutDetails{
		AccountHolderName: strings.TrimSpace(req.AccountHolderName),
		AccountNumber:     strings.TrimSpace(req.AccountNumber),
		BankName:          strings.TrimSpace(req.BankName),
		GCashName:         strings.TrimSpace(req.GCashName),
	}
	if strings.TrimSpace(req.GCashNumber) != "" {
		normalized, err := phone.NormalizeGCash(req.GCashNumber)
		if err != nil {
			return apierrors.ValidationError(c, "GCash number must be a valid Philippine mobile number")
		}
		details.GCashNumber = normalized
	}

	if err := h.details.UpdatePayoutDetails(ctx, aff, details); err != nil {
		h.log.Error("failed to update payout details", "affiliate_id", aff.ID, "operation", "update_payout_details", "error", err)
		return apierrors.InternalError(c, err)
	}

	updated, err := h.details.AffiliateByID(ctx, aff.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}
