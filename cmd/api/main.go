package main

// @title Homeschool Hub Affiliate API
// @version 1.0
// @description Affiliate click tracking, conversion attribution and payout review.

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Supabase access token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/homeschoolhub/config"
	"github.com/jordanlanch/homeschoolhub/pkg/abandonment"
	"github.com/jordanlanch/homeschoolhub/pkg/affiliate"
	"github.com/jordanlanch/homeschoolhub/pkg/api/handlers"
	"github.com/jordanlanch/homeschoolhub/pkg/automation"
	"github.com/jordanlanch/homeschoolhub/pkg/cache"
	"github.com/jordanlanch/homeschoolhub/pkg/database"
	"github.com/jordanlanch/homeschoolhub/pkg/email"
	"github.com/jordanlanch/homeschoolhub/pkg/emailjobs"
	"github.com/jordanlanch/homeschoolhub/pkg/jobs"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
	custommiddleware "github.com/jordanlanch/homeschoolhub/pkg/middleware"
	"github.com/jordanlanch/homeschoolhub/pkg/payout"
	"github.com/jordanlanch/homeschoolhub/pkg/programconfig"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/tasks"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLog := logger.New(cfg.LogLevel).With("service", "affiliate-api")

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
			BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
				// Never ship tokens to Sentry
				if event.Request != nil {
					delete(event.Request.Headers, "Authorization")
					delete(event.Request.Headers, "X-Callback-Token")
				}
				return event
			},
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewClient(startupCtx, cfg.DatabaseURL, sslCfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(startupCtx); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	startupCancel()

	// Redis only caches program config; the API keeps working without it.
	var configCache programconfig.Cache
	healthChecks := map[string]handlers.Pinger{"database": db}
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Printf("⚠️  Redis unavailable, program config cache disabled: %v", err)
	} else {
		defer redisClient.Close()
		configCache = redisClient
		healthChecks["redis"] = redisClient
	}

	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	st := store.New(db)

	dispatcherCfg := tasks.DefaultConfig()
	dispatcherCfg.Workers = cfg.TaskWorkers
	dispatcherCfg.QueueSize = cfg.TaskQueueSize
	dispatcher := tasks.NewDispatcher(dispatcherCfg, appLog, prometheusMetrics)
	dispatcher.Start()

	programConfig := programconfig.NewService(st, configCache, appLog, prometheusMetrics)

	affiliateService := affiliate.NewService(st, programConfig, appLog, prometheusMetrics).
		WithAttributionWindow(time.Duration(cfg.AttributionWindowDays) * 24 * time.Hour)
	automationClient := automation.NewClient(cfg.AutomationTriggerURL, cfg.AutomationTriggerKey)
	if automationClient.Enabled() {
		affiliateService.WithAutomation(dispatcher, automationClient)
		log.Printf("✅ Automation trigger enabled")
	}

	payoutValidator := payout.NewValidator(st, programConfig, appLog, prometheusMetrics)
	payoutService := payout.NewService(st, payoutValidator)

	notifier := abandonment.NewNotifier(st, appLog, prometheusMetrics)
	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.FrontendURL, cfg.SendGridAPIKey, appLog)
	emailWorker := emailjobs.NewWorker(st, emailService, appLog, prometheusMetrics)

	var cronManager *jobs.CronManager
	if cfg.CronEnabled {
		cronManager = jobs.NewCronManager(jobs.Services{
			Abandonment: notifier,
			Email:       emailWorker,
			Conversions: affiliateService,
		}, appLog, prometheusMetrics)
		if err := cronManager.SetupJobs(); err != nil {
			log.Fatalf("❌ Failed to setup cron jobs: %v", err)
		}
		cronManager.Start()
		log.Printf("✅ Cron jobs started successfully")
	} else {
		log.Printf("ℹ️  In-process cron disabled (CRON_ENABLED=false)")
	}

	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	defer globalRateLimiter.Stop()
	clickRateLimiter := custommiddleware.NewRateLimiter(cfg.ClickRateLimitPerMinute, 5)
	defer clickRateLimiter.Stop()

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLog.Info("request", "method", c.Request().Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.FrontendURL)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.SecurityHeadersConfig{}))
	e.Use(middleware.Gzip())
	e.Use(globalRateLimiter.RateLimitMiddleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handlers.Register(e, handlers.Handlers{
		Affiliate:  handlers.NewAffiliateHandler(affiliateService, programConfig, st, cfg.IsProduction(), appLog),
		Admin:      handlers.NewAdminHandler(payoutService, affiliateService, programConfig, appLog),
		Cron:       handlers.NewCronHandler(notifier),
		Webhook:    handlers.NewXenditWebhookHandler(affiliateService, cfg.XenditCallbackToken, appLog),
		Health:     handlers.NewHealthHandler(healthChecks),
		Affiliates: st,
	}, handlers.RouteConfig{
		JWTSecret:    cfg.SupabaseJWTSecret,
		AdminEmails:  cfg.AdminEmails,
		CronSecret:   cfg.CronSecret,
		Production:   cfg.IsProduction(),
		ClickLimiter: clickRateLimiter,
	})

	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 Affiliate API starting on %s", address)
	log.Printf("🌍 CORS: %s", cfg.FrontendURL)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d), clicks: %d req/min", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst, cfg.ClickRateLimitPerMinute)
	log.Printf("🔗 Attribution window: %d days", cfg.AttributionWindowDays)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	if cronManager != nil {
		select {
		case <-cronManager.Stop().Done():
			log.Println("✅ Cron jobs stopped")
		case <-ctx.Done():
			log.Println("⚠️  Timed out waiting for cron jobs")
		}
	}

	if err := dispatcher.Stop(ctx); err != nil {
		log.Printf("⚠️  Background tasks not drained: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
