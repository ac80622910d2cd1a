package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sofiahealth/appointments-api/cmd/mainconfig"
	"github.com/sofiahealth/appointments-api/internal/admin"
	"github.com/sofiahealth/appointments-api/internal/api/router"
	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/calendar"
	appconfig "github.com/sofiahealth/appointments-api/internal/config"
	"github.com/sofiahealth/appointments-api/internal/notify"
	"github.com/sofiahealth/appointments-api/internal/observability/metrics"
	"github.com/sofiahealth/appointments-api/internal/payments"
	"github.com/sofiahealth/appointments-api/internal/providers"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting appointments API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	bookingMetrics := metrics.NewBookingMetrics(nil)

	// Repositories and services.
	providerRepo := providers.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool)
	apptService := appointments.NewService(apptRepo, providerRepo, appointments.FallbackPricing{
		ConsultationCents: int64(cfg.DefaultConsultationCents),
		FollowUpCents:     int64(cfg.DefaultFollowUpCents),
	}, bookingMetrics, logger)

	emailSender := buildEmailSender(ctx, cfg, logger)
	notifier := notify.NewService(emailSender, notify.Config{
		SupportEmail:  cfg.SupportEmail,
		ProviderEmail: cfg.ProviderNotifyEmail,
	}, logger)

	stripeClient := payments.NewStripeClient(cfg.StripeSecretKey, logger).WithBaseURL(cfg.StripeBaseURL)
	paymentService := payments.NewService(apptRepo, stripeClient, notifier, bookingMetrics, logger)

	calendarService := calendar.NewService(calendar.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	},
		apptRepo,
		calendar.NewStateStore(redisClient).WithTTL(cfg.OAuthStateTTL),
		calendar.NewCredentialStore(pool),
		nil,
		bookingMetrics,
		logger,
	)
	calendarService.WithEvents(calendar.NewGoogleEvents(calendarService.OAuthConfig(), logger))

	dashboardRepo := admin.NewDashboardRepository(pool, apptRepo)

	// Background reminder delivery.
	if cfg.ReminderWorkerEnabled {
		worker := notify.NewReminderWorker(apptRepo, notifier, bookingMetrics, logger).
			WithInterval(cfg.ReminderCheckInterval).
			WithWindow(cfg.ReminderWindow)
		go worker.Start(ctx)
	}

	r := router.New(&router.Config{
		Logger:              logger,
		ProvidersHandler:    providers.NewHandler(providerRepo, logger),
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		PaymentsHandler:     payments.NewHandler(paymentService, cfg.StripePublishableKey, cfg.StripeSecretKey, logger),
		CalendarHandler:     calendar.NewHandler(calendarService, apptRepo, logger),
		AdminHandler:        admin.NewHandler(dashboardRepo, apptRepo, notifier, calendarService, logger),
		MetricsHandler:      promhttp.Handler(),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		BookingRateLimit:    2,
		BookingRateBurst:    10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the delivery backend from EMAIL_PROVIDER. Missing
// credentials fall back to the logging stub so local runs still work.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but no API key; using stub email sender")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config; using stub email sender", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger); sender != nil {
			return sender
		}
	case "stub":
	default:
		logger.Warn("unknown email provider; using stub email sender", "provider", cfg.EmailProvider)
	}
	return notify.NewStubEmailSender(logger)
}
