package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/bookings"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	appconfig "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/config"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/events"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/observability/metrics"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/payments"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// stores bundles the persistence layer. outbox and sqlDB are nil in memory
// mode.
type stores struct {
	pool          *pgxpool.Pool
	sqlDB         *sql.DB
	catalog       *catalog.Index
	slots         slots.Store
	bookings      bookings.Store
	patients      patients.Repository
	professionals professionals.Directory
	outbox        *events.OutboxStore
	processed     events.Deduper
}

func (s *stores) Close() {
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// setupStores uses Postgres when DATABASE_URL is set and process memory
// otherwise.
func setupStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*stores, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return memoryStores(), nil
	}

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	idx, err := catalog.LoadFromPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	logger.Info("connected to postgres", "services", len(idx.List()))

	return &stores{
		pool:          pool,
		sqlDB:         sqlDB,
		catalog:       idx,
		slots:         slots.NewPostgresStore(pool),
		bookings:      bookings.NewPostgresStore(pool),
		patients:      patients.NewPostgresRepository(pool),
		professionals: professionals.NewPostgresDirectory(sqlDB),
		outbox:        events.NewOutboxStore(pool),
		processed:     events.NewProcessedStore(pool),
	}, nil
}

func memoryStores() *stores {
	slotStore := slots.NewMemoryStore()
	return &stores{
		catalog:       catalog.MustNew(catalog.DefaultServices()),
		slots:         slotStore,
		bookings:      bookings.NewMemoryStore(slotStore),
		patients:      patients.NewMemoryRepository(),
		professionals: professionals.NewMemoryDirectory(),
		processed:     events.NewMemoryProcessedStore(),
	}
}

// setupDrafts returns a Redis-backed draft store when REDIS_ADDR is set.
func setupDrafts(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (payments.DraftStore, *redis.Client, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		logger.Warn("REDIS_ADDR not set; booking drafts are kept in memory")
		return payments.NewMemoryDraftStore(cfg.DraftTTL), nil, nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return payments.NewRedisDraftStore(client, cfg.DraftTTL), client, nil
}

func readiness(st *stores, redisClient *redis.Client) func(ctx context.Context) error {
	if st.pool == nil && redisClient == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if st.pool != nil {
			if err := st.pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
