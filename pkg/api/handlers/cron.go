package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/abandonment"
	apierrors "github.com/jordanlanch/homeschoolhub/pkg/api/errors"
	"github.com/labstack/echo/v4"
)

// AbandonmentRunner runs one abandonment scan
type AbandonmentRunner interface {
	Run(ctx context.Context, now time.Time) (abandonment.RunResult, error)
}

// CronHandler exposes scheduled jobs to an external scheduler
type CronHandler struct {
	abandonment AbandonmentRunner
}

// NewCronHandler creates a new cron handler
func NewCronHandler(runner AbandonmentRunner) *CronHandler {
	return &CronHandler{abandonment: runner}
}

// ProcessAbandonment godoc
// @Summary Queue abandoned checkout reminders
// @Description Scans purchase leads created 45 to 30 minutes ago and queues one reminder per email
// @Tags Cron
// @Produce json
// @Success 200 {object} abandonment.RunResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/cron/process-abandonment [get]
func (h *CronHandler) ProcessAbandonment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	res, err := h.abandonment.Run(ctx, time.Now().UTC())
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
