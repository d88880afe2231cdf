package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/config"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/payments"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

func TestSetupMetricsExposesBookingMetrics(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveOperation("create", "success", 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "agenda_bookings_operations_total") {
		t.Fatalf("expected booking operations counter to be exported")
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestSetupStoresWithoutDatabaseUsesMemory(t *testing.T) {
	logger := logging.New("error")
	st, err := setupStores(context.Background(), &appconfig.Config{}, logger)
	if err != nil {
		t.Fatalf("setup stores: %v", err)
	}
	defer st.Close()

	if st.outbox != nil || st.sqlDB != nil {
		t.Fatalf("memory mode should not create an outbox or sql handle")
	}
	if _, err := st.catalog.Get("kine-sesion"); err != nil {
		t.Fatalf("expected seed catalog, got %v", err)
	}
	if readiness(st, nil) != nil {
		t.Fatalf("memory mode needs no readiness probe")
	}
}

func TestSetupDraftsUsesRedisWhenConfigured(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), DraftTTL: time.Minute}

	drafts, client, err := setupDrafts(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("setup drafts: %v", err)
	}
	defer func() { _ = client.Close() }()
	if _, ok := drafts.(*payments.RedisDraftStore); !ok {
		t.Fatalf("expected redis draft store, got %T", drafts)
	}

	st := memoryStores()
	ready := readiness(st, client)
	if ready == nil {
		t.Fatalf("expected readiness probe with redis configured")
	}
	if err := ready(context.Background()); err != nil {
		t.Fatalf("redis should be ready: %v", err)
	}
	mr.Close()
	if err := ready(context.Background()); err == nil {
		t.Fatalf("expected readiness failure after redis stops")
	}
}

func TestSetupDraftsFallsBackToMemory(t *testing.T) {
	drafts, client, err := setupDrafts(context.Background(), &appconfig.Config{DraftTTL: time.Minute}, logging.New("error"))
	if err != nil || client != nil {
		t.Fatalf("unexpected redis setup: client=%v err=%v", client, err)
	}
	if _, ok := drafts.(*payments.MemoryDraftStore); !ok {
		t.Fatalf("expected memory draft store, got %T", drafts)
	}
}
