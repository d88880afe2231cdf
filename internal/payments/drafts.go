package payments

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

// MaxDraftBytes bounds a stored booking-form snapshot.
const MaxDraftBytes = 64 << 10

var (
	ErrDraftNotFound   = apperr.NotFound("draft_not_found", "draft not found or expired")
	ErrInvalidDraftKey = apperr.Validation("invalid_draft_key", "draft key must be a UUID")
	ErrDraftTooLarge   = apperr.Validation("draft_too_large", "draft exceeds 64 KiB")
	ErrDraftNotJSON    = apperr.Validation("draft_not_json", "draft must be a JSON document")
)

// DraftStore keeps an opaque JSON snapshot of an in-progress booking form so
// it survives the round trip through the payment provider.
type DraftStore interface {
	Put(ctx context.Context, key string, data json.RawMessage) error
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Delete(ctx context.Context, key string) error
}

// ValidateDraftKey accepts canonical UUID keys only.
func ValidateDraftKey(key string) error {
	if _, err := uuid.Parse(key); err != nil {
		return ErrInvalidDraftKey
	}
	return nil
}

func validateDraft(key string, data json.RawMessage) error {
	if err := ValidateDraftKey(key); err != nil {
		return err
	}
	if len(data) > MaxDraftBytes {
		return ErrDraftTooLarge
	}
	if !json.Valid(data) {
		return ErrDraftNotJSON
	}
	return nil
}

type memoryDraft struct {
	data      json.RawMessage
	expiresAt time.Time
}

// MemoryDraftStore is a process-local DraftStore with lazy expiry.
type MemoryDraftStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryDraft
}

func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryDraftStore{ttl: ttl, now: time.Now, items: map[string]memoryDraft{}}
}

func (s *MemoryDraftStore) Put(ctx context.Context, key string, data json.RawMessage) error {
	if err := validateDraft(key, data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryDraft{
		data:      append(json.RawMessage(nil), data...),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryDraftStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ValidateDraftKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[key]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if !s.now().Before(d.expiresAt) {
		delete(s.items, key)
		return nil, ErrDraftNotFound
	}
	return append(json.RawMessage(nil), d.data...), nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, key string) error {
	if err := ValidateDraftKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
