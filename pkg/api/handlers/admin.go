package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/homeschoolhub/pkg/affiliate"
	apierrors "github.com/jordanlanch/homeschoolhub/pkg/api/errors"
	custommw "github.com/jordanlanch/homeschoolhub/pkg/api/middleware"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/payout"
	"github.com/jordanlanch/homeschoolhub/pkg/programconfig"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AdminHandler serves payout review, conversion moderation and program settings
type AdminHandler struct {
	payouts     *payout.Service
	conversions *affiliate.Service
	config      *programconfig.Service
	log         logger.Logger
	validator   *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(payouts *payout.Service, conversions *affiliate.Service, config *programconfig.Service, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		payouts:     payouts,
		conversions: conversions,
		config:      config,
		log:         log,
		validator:   validator.New(),
	}
}

// ValidatePayoutRequest asks whether one affiliate can be paid
type ValidatePayoutRequest struct {
	AffiliateID  string              `json:"affiliate_id" validate:"required"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	PayoutMethod models.PayoutMethod `json:"payout_method" validate:"required"`
}

// ValidatePayout godoc
// @Summary Check payout eligibility for one affiliate
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body ValidatePayoutRequest true "Payout"
// @Success 200 {object} models.PayoutValidation
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/payouts/validate [post]
func (h *AdminHandler) ValidatePayout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req ValidatePayoutRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, "affiliate_id and payout_method are required")
	}

	res := h.payouts.Validator().ValidatePayoutEligibility(ctx, req.AffiliateID, req.TotalAmount, req.PayoutMethod)
	return c.JSON(http.StatusOK, res)
}

// ValidateBatchRequest asks whether a set of affiliates can be paid
type ValidateBatchRequest struct {
	PayoutMethod models.PayoutMethod    `json:"payout_method" validate:"required"`
	Affiliates   []payout.BatchAffiliate `json:"affiliates" validate:"dive"`
}

// ValidateBatch godoc
// @Summary Validate a payout batch
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body ValidateBatchRequest true "Batch"
// @Success 200 {object} payout.BatchValidationResult
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/payouts/validate-batch [post]
func (h *AdminHandler) ValidateBatch(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var req ValidateBatchRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, "payout_method is required and every affiliate needs an id")
	}

	return c.JSON(http.StatusOK, h.payouts.Validator().ValidatePayoutBatch(ctx, req.Affiliates, req.PayoutMethod))
}

func (h *AdminHandler) previewFor(c echo.Context) (*payout.Preview, error) {
	method := models.PayoutMethod(c.QueryParam("method"))
	if method == "" {
		method = models.PayoutMethodGCash
	}
	if !method.Valid() {
		return nil, apierrors.ValidationError(c, fmt.Sprintf("Unsupported payout method %q", method))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	preview, err := h.payouts.PreviewBatch(ctx, method)
	if err != nil {
		h.log.Error("failed to preview payout batch", "method", method, "operation", "preview_batch", "error", err)
		return nil, apierrors.InternalError(c, err)
	}
	return preview, nil
}

// PreviewBatch godoc
// @Summary Preview the next payout batch
// @Description Validates every affiliate with cleared commission for the method
// @Tags Admin
// @Produce json
// @Param method query string false "gcash or bank_transfer (default gcash)"
// @Success 200 {object} payout.Preview
// @Security BearerAuth
// @Router /api/v1/admin/payouts/preview [get]
func (h *AdminHandler) PreviewBatch(c echo.Context) error {
	preview, err := h.previewFor(c)
	if preview == nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}

// ExportPreview godoc
// @Summary Download the payout preview as a spreadsheet
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param method query string false "gcash or bank_transfer (default gcash)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /api/v1/admin/payouts/preview.xlsx [get]
func (h *AdminHandler) ExportPreview(c echo.Context) error {
	preview, err := h.previewFor(c)
	if preview == nil {
		return err
	}

	data, err := h.payouts.ExportXLSX(preview)
	if err != nil {
		h.log.Error("failed to export payout preview", "operation", "export_preview", "error", err)
		return apierrors.InternalError(c, err)
	}

	filename := fmt.Sprintf("payout-preview-%s-%s.xlsx", preview.Method, preview.GeneratedAt.Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// UpdateConversionStatusRequest moves a conversion
type UpdateConversionStatusRequest struct {
	Status models.ConversionStatus `json:"status" validate:"required"`
	Reason string                  `json:"reason" validate:"max=500"`
}

// UpdateConversionStatus godoc
// @Summary Clear, pay or flag a conversion
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Conversion ID"
// @Param request body UpdateConversionStatusRequest true "Status change"
// @Success 200 {object} models.Conversion
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/conversions/{id}/status [patch]
func (h *AdminHandler) UpdateConversionStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req UpdateConversionStatusRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, "status is required")
	}

	conv, err := h.conversions.UpdateConversionStatus(ctx, c.Param("id"), affiliate.StatusUpdate{
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	h.log.Info("conversion status updated by admin",
		"conversion_id", conv.ID,
		"status", conv.Status,
		"admin_email", c.Get("user_email"),
	)
	return c.JSON(http.StatusOK, conv)
}

// PayoutVerificationRequest approves or revokes one payout method's details
type PayoutVerificationRequest struct {
	Method   models.PayoutMethod `json:"method" validate:"required"`
	Verified *bool               `json:"verified" validate:"required"`
}

// UpdatePayoutVerification godoc
// @Summary Verify an affiliate's bank or GCash details
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Affiliate ID"
// @Param request body PayoutVerificationRequest true "Verification decision"
// @Success 200 {object} models.Affiliate
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/affiliates/{id}/verification [patch]
func (h *AdminHandler) UpdatePayoutVerification(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req PayoutVerificationRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, "method and verified are required")
	}

	review := affiliate.VerificationReview{Method: req.Method, Verified: *req.Verified}
	if claims := custommw.ClaimsFrom(c); claims != nil {
		review.ReviewedBy = claims.Email
	}

	aff, err := h.conversions.ReviewPayoutVerification(ctx, c.Param("id"), review)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, aff)
}

// GetProgramConfig godoc
// @Summary Get the affiliate program configuration
// @Tags Admin
// @Produce json
// @Success 200 {object} models.ProgramConfig
// @Security BearerAuth
// @Router /api/v1/admin/program-config [get]
func (h *AdminHandler) GetProgramConfig(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.config.Get(ctx)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// UpdateProgramConfig godoc
// @Summary Update the affiliate program configuration
// @Description Omitted fields keep their current value
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body programconfig.UpdateInput true "Changes"
// @Success 200 {object} models.ProgramConfig
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/program-config [put]
func (h *AdminHandler) UpdateProgramConfig(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var in programconfig.UpdateInput
	if err := c.Bind(&in); err != nil {
		return apierrors.BindError(c, err)
	}

	cfg, err := h.config.Update(ctx, in)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}
