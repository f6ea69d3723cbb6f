package handlers

import (
	custommw "github.com/jordanlanch/homeschoolhub/pkg/api/middleware"
	"github.com/jordanlanch/homeschoolhub/pkg/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Affiliate  *AffiliateHandler
	Admin      *AdminHandler
	Cron       *CronHandler
	Webhook    *XenditWebhookHandler
	Health     *HealthHandler
	Affiliates custommw.AffiliateLoader
}

// RouteConfig carries the secrets and limits the routes are guarded with
type RouteConfig struct {
	JWTSecret    string
	AdminEmails  []string
	CronSecret   string
	Production   bool
	ClickLimiter *middleware.RateLimiter
}

// Register mounts all routes on e
func Register(e *echo.Echo, h Handlers, cfg RouteConfig) {
	e.GET("/health", h.Health.Health)

	click := []echo.MiddlewareFunc{}
	if cfg.ClickLimiter != nil {
		click = append(click, cfg.ClickLimiter.RateLimitMiddleware())
	}
	e.GET("/affiliate-click", h.Affiliate.TrackClick, click...)

	e.GET("/api/cron/process-abandonment", h.Cron.ProcessAbandonment, custommw.CronAuth(cfg.CronSecret, cfg.Production))

	v1 := e.Group("/api/v1")
	v1.POST("/webhooks/xendit", h.Webhook.HandleInvoice)

	aff := v1.Group("/affiliate", custommw.SupabaseAuth(cfg.JWTSecret), custommw.RequireActiveAffiliate(h.Affiliates))
	aff.GET("/conversions", h.Affiliate.ListConversions)
	aff.GET("/metrics", h.Affiliate.Metrics)
	aff.PUT("/payout-details", h.Affiliate.UpdatePayoutDetails)

	admin := v1.Group("/admin", custommw.SupabaseAuth(cfg.JWTSecret), custommw.RequireAdmin(cfg.AdminEmails))
	admin.POST("/payouts/validate", h.Admin.ValidatePayout)
	admin.POST("/payouts/validate-batch", h.Admin.ValidateBatch)
	admin.GET("/payouts/preview", h.Admin.PreviewBatch)
	admin.GET("/payouts/preview.xlsx", h.Admin.ExportPreview)
	admin.PATCH("/conversions/:id/status", h.Admin.UpdateConversionStatus)
	admin.PATCH("/affiliates/:id/verification", h.Admin.UpdatePayoutVerification)
	admin.GET("/program-config", h.Admin.GetProgramConfig)
	admin.PUT("/program-config", h.Admin.UpdateProgramConfig)
}
