package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/api/router"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/availability"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/bookings"
	appconfig "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/config"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/events"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/http/handlers"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/notify"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/payments"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/reporting"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

const notifierConsumer = "reservation-notifier"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agenda API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, bookingMetrics := setupMetrics()
	loc := cfg.Location()

	st, err := setupStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize stores", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	drafts, redisClient, err := setupDrafts(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize draft store", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	sender, err := notify.NewSender(ctx, notify.SenderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		AWSRegion: cfg.AWSRegion,
		SESFrom:   cfg.SESFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize email sender", "error", err)
		os.Exit(1)
	}
	notifier := notify.NewReservationNotifier(sender, st.patients, st.professionals, st.catalog, loc, bookingMetrics, logger)

	var publisher events.Publisher
	if st.outbox != nil {
		publisher = events.NewOutboxPublisher(st.outbox)
		deliverer := events.NewDeliverer(st.outbox, events.Once(notifierConsumer, st.processed, notifier), logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxPollInterval)
		go deliverer.Start(ctx)
	} else {
		publisher = events.NewInlinePublisher(events.Once(notifierConsumer, st.processed, notifier), logger)
	}

	slotRepo := slots.NewRepository(st.slots, slots.RepositoryConfig{
		Size:         cfg.SlotCacheSize,
		TTL:          cfg.SlotCacheTTL,
		FetchTimeout: cfg.SlotFetchTimeout,
	}, bookingMetrics, logger)
	slotService := slots.NewService(slotRepo, st.professionals, loc, bookingMetrics, logger)
	aggregator := availability.NewAggregator(st.catalog, st.professionals, slotRepo, loc, logger)

	engine := bookings.NewEngine(bookings.Config{
		Store:         st.bookings,
		Slots:         slotRepo,
		Catalog:       st.catalog,
		Professionals: st.professionals,
		Patients:      st.patients,
		Publisher:     publisher,
		Metrics:       bookingMetrics,
		Logger:        logger,
	})

	var reader reporting.Reader
	if st.sqlDB != nil {
		reader = reporting.NewSQLReader(st.sqlDB)
	} else {
		reader = reporting.NewJoinReader(engine, st.patients, st.professionals, st.catalog)
	}

	provider, err := payments.ParseProvider(cfg.PaymentProvider, cfg.AllowFakePayments && !cfg.IsProduction())
	if err != nil {
		logger.Error("invalid payment provider", "error", err)
		os.Exit(1)
	}
	gateway := payments.NewGateway(payments.GatewayConfig{
		Provider:      provider,
		AccessToken:   cfg.PaymentAccessToken,
		BaseURL:       cfg.PaymentBaseURL,
		SuccessURL:    cfg.PaymentSuccessURL,
		FailureURL:    cfg.PaymentFailureURL,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger)
	logger.Info("payments configured", "provider", string(provider))

	r := router.New(&router.Config{
		Logger:             logger,
		Professionals:      handlers.NewProfessionalsHandler(st.professionals, slotService, st.catalog, logger),
		Availability:       handlers.NewAvailabilityHandler(st.catalog, aggregator, logger),
		Patients:           handlers.NewPatientsHandler(st.patients, logger),
		Reservations:       handlers.NewReservationsHandler(engine, reader, reporting.NewCalendar(reader, loc), loc, logger),
		Payments:           handlers.NewPaymentsHandler(gateway, drafts, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		Ready:              readiness(st, redisClient),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
