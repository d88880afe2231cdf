package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

const draftKeyPrefix = "agenda:draft:"

// RedisDraftStore keeps drafts as plain string values with a TTL.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	if client == nil {
		panic("payments: redis client required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisDraftStore{client: client, ttl: ttl}
}

func (s *RedisDraftStore) Put(ctx context.Context, key string, data json.RawMessage) error {
	if err := validateDraft(key, data); err != nil {
		return err
	}
	if err := s.client.Set(ctx, draftKeyPrefix+key, []byte(data), s.ttl).Err(); err != nil {
		return apperr.Transient("payments: put draft", err)
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ValidateDraftKey(key); err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, draftKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, apperr.Transient("payments: get draft", err)
	}
	return json.RawMessage(raw), nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, key string) error {
	if err := ValidateDraftKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, draftKeyPrefix+key).Err(); err != nil {
		return apperr.Transient("payments: delete draft", err)
	}
	return nil
}
