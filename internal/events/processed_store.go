package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Deduper records which events a consumer already handled.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	// MarkProcessed returns false if the event was already recorded.
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records handled events in processed_events.
type ProcessedStore struct {
	pool rowQuerier
}

func NewProcessedStore(pool rowQuerier) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

// AlreadyProcessed checks if consumer has handled eventID.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE consumer = $1 AND event_id = $2`
	var exists int
	if err := s.pool.QueryRow(ctx, query, consumer, eventID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

func (s *ProcessedStore) MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (consumer, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, consumer, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// MemoryProcessedStore is an in-process Deduper.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: map[string]struct{}{}}
}

func (s *MemoryProcessedStore) AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[consumer+"/"+eventID]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := consumer + "/" + eventID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

// Once wraps handler so each outbox entry reaches it at most once per
// consumer. An entry is recorded only after the handler succeeds.
func Once(consumer string, dedup Deduper, handler DeliveryHandler) DeliveryHandler {
	var mu sync.Mutex
	return HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		mu.Lock()
		defer mu.Unlock()
		id := entry.ID.String()
		done, err := dedup.AlreadyProcessed(ctx, consumer, id)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := handler.Handle(ctx, entry); err != nil {
			return err
		}
		_, err = dedup.MarkProcessed(ctx, consumer, id)
		return err
	})
}
