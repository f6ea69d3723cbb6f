package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/affiliate"
	apierrors "github.com/jordanlanch/homeschoolhub/pkg/api/errors"
	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ConversionRecorder records a sale against an affiliate
type ConversionRecorder interface {
	RecordConversion(ctx context.Context, in affiliate.ConversionInput) (*affiliate.RecordResult, error)
}

// XenditInvoice is the part of a Xendit invoice callback the tracker reads
type XenditInvoice struct {
	ID         string          `json:"id"`
	ExternalID string          `json:"external_id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Metadata   struct {
		AffiliateTracking *struct {
			AffiliateSlug string `json:"affiliateSlug"`
			VisitorID     string `json:"visitorId"`
		} `json:"affiliateTracking"`
	} `json:"metadata"`
}

// WebhookResponse acknowledges a callback
type WebhookResponse struct {
	Success      bool    `json:"success"`
	Attributed   bool    `json:"attributed"`
	ConversionID *string `json:"conversion_id,omitempty"`
}

// XenditWebhookHandler records conversions for paid invoices
type XenditWebhookHandler struct {
	recorder      ConversionRecorder
	callbackToken string
	log           logger.Logger
}

// NewXenditWebhookHandler creates a new webhook handler
func NewXenditWebhookHandler(recorder ConversionRecorder, callbackToken string, log logger.Logger) *XenditWebhookHandler {
	return &XenditWebhookHandler{recorder: recorder, callbackToken: callbackToken, log: log}
}

// HandleInvoice godoc
// @Summary Xendit invoice callback
// @Description Records an affiliate conversion when a paid invoice carries affiliate tracking metadata
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-callback-token header string true "Xendit callback token"
// @Success 200 {object} WebhookResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/webhooks/xendit [post]
func (h *XenditWebhookHandler) HandleInvoice(c echo.Context) error {
	token := c.Request().Header.Get("x-callback-token")
	if h.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) != 1 {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "invalid_signature",
			Message: "Invalid callback token",
		})
	}

	var inv XenditInvoice
	if err := c.Bind(&inv); err != nil {
		return apierrors.BindError(c, err)
	}

	status := strings.ToUpper(inv.Status)
	tracking := inv.Metadata.AffiliateTracking
	if (status != "PAID" && status != "SETTLED") || tracking == nil || tracking.AffiliateSlug == "" {
		return c.JSON(http.StatusOK, WebhookResponse{Success: true})
	}

	orderID := inv.ExternalID
	if orderID == "" {
		orderID = inv.ID
	}
	sale := inv.PaidAmount
	if sale.IsZero() {
		sale = inv.Amount
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.recorder.RecordConversion(ctx, affiliate.ConversionInput{
		OrderID:       orderID,
		AffiliateSlug: tracking.AffiliateSlug,
		VisitorID:     tracking.VisitorID,
		SaleAmount:    sale,
	})
	switch {
	case errors.Is(err, affiliate.ErrUnattributable), domain.IsForbidden(err):
		h.log.Info("sale not attributed", "order_id", orderID, "slug", tracking.AffiliateSlug, "reason", err.Error())
		return c.JSON(http.StatusOK, WebhookResponse{Success: true})
	case domain.IsValidation(err):
		h.log.Warn("invalid sale in callback", "order_id", orderID, "error", err)
		return c.JSON(http.StatusOK, WebhookResponse{Success: true})
	case err != nil:
		// A 5xx makes Xendit retry the callback; recording is idempotent per order.
		h.log.Error("failed to record conversion", "order_id", orderID, "operation", "record_conversion", "error", err)
		return apierrors.InternalError(c, err)
	}

	id := res.Conversion.ID
	return c.JSON(http.StatusOK, WebhookResponse{Success: true, Attributed: true, ConversionID: &id})
}
