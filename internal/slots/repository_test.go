package slots

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore blocks ListByProfessional until release is closed.
type gatedStore struct {
	*MemoryStore
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newGatedStore(t *testing.T) *gatedStore {
	store, _ := seededStore(t)
	return &gatedStore{MemoryStore: store, started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatedStore) ListByProfessional(ctx context.Context, professionalID string) ([]Slot, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.MemoryStore.ListByProfessional(ctx, professionalID)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveCacheLookup(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[result]++
}

func (o *countingObserver) get(result string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[result]
}

func TestRepositoryCoalescesConcurrentFetches(t *testing.T) {
	store := newGatedStore(t)
	obs := &countingObserver{}
	repo := NewRepository(store, RepositoryConfig{}, obs, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]Slot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list, err := repo.Slots(context.Background(), "pro-1")
			assert.NoError(t, err)
			results[i] = list
		}(i)
	}

	<-store.started
	// Give the other callers time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, int32(1), store.calls.Load())
	for _, r := range results {
		assert.Len(t, r, 3)
	}
	assert.Equal(t, callers, obs.get("miss")+obs.get("coalesced"))

	// Served from cache now.
	_, err := repo.Slots(context.Background(), "pro-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.calls.Load())
	assert.Equal(t, 1, obs.get("hit"))
}

func TestRepositoryReturnsCopies(t *testing.T) {
	store, _ := seededStore(t)
	repo := NewRepository(store, RepositoryConfig{}, nil, nil)

	first, err := repo.Slots(context.Background(), "pro-1")
	require.NoError(t, err)
	first[0].Reserved = true

	second, err := repo.Slots(context.Background(), "pro-1")
	require.NoError(t, err)
	assert.False(t, second[0].Reserved)
}

func TestRepositoryCancelledCallerDoesNotPoisonCache(t *testing.T) {
	store := newGatedStore(t)
	repo := NewRepository(store, RepositoryConfig{FetchTimeout: time.Second}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := repo.Slots(ctx, "pro-1")
		errCh <- err
	}()
	<-store.started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// The detached fetch finishes and serves the next caller.
	close(store.release)
	list, err := repo.Slots(context.Background(), "pro-1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestRepositoryFailedFetchIsNotCached(t *testing.T) {
	store := newGatedStore(t)
	store.err = errors.New("connection reset")
	close(store.release)
	repo := NewRepository(store, RepositoryConfig{}, nil, nil)

	_, err := repo.Slots(context.Background(), "pro-1")
	require.Error(t, err)
	<-store.started

	store.err = nil
	list, err := repo.Slots(context.Background(), "pro-1")
	require.NoError(t, err)
	<-store.started
	assert.Len(t, list, 3)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestRepositoryInvalidateDuringFetchSkipsCaching(t *testing.T) {
	store := newGatedStore(t)
	repo := NewRepository(store, RepositoryConfig{}, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = repo.Slots(context.Background(), "pro-1")
	}()
	<-store.started

	// A booking lands while the fetch is in flight.
	require.NoError(t, store.Reserve(context.Background(), SlotID("pro-1", testSlotStart()), "pro-1"))
	repo.Invalidate("pro-1")
	close(store.release)
	<-done

	list, err := repo.Slots(context.Background(), "pro-1")
	require.NoError(t, err)
	<-store.started
	assert.Equal(t, int32(2), store.calls.Load())
	assert.True(t, list[0].Reserved)
}

func TestRepositoryInvalidateDropsEntry(t *testing.T) {
	store, generated := seededStore(t)
	repo := NewRepository(store, RepositoryConfig{}, nil, nil)
	ctx := context.Background()

	before, err := repo.Slots(ctx, "pro-1")
	require.NoError(t, err)
	assert.False(t, before[0].Reserved)

	require.NoError(t, store.Reserve(ctx, generated[0].ID, "pro-1"))
	stale, err := repo.Slots(ctx, "pro-1")
	require.NoError(t, err)
	assert.False(t, stale[0].Reserved)

	repo.Invalidate("pro-1", "")
	fresh, err := repo.Slots(ctx, "pro-1")
	require.NoError(t, err)
	assert.True(t, fresh[0].Reserved)
}

func flightCount(r *Repository) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

func TestRepositoryForgetsFinishedFetches(t *testing.T) {
	store, _ := seededStore(t)
	repo := NewRepository(store, RepositoryConfig{}, nil, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		repo.Invalidate(fmt.Sprintf("pro-%d", i))
	}
	assert.Zero(t, flightCount(repo))

	_, err := repo.Slots(ctx, "pro-1")
	require.NoError(t, err)
	repo.Invalidate("pro-1")
	assert.Zero(t, flightCount(repo))

	gated := newGatedStore(t)
	gated.err = errors.New("connection reset")
	repo = NewRepository(gated, RepositoryConfig{}, nil, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = repo.Slots(ctx, "pro-1")
	}()
	<-gated.started
	assert.Equal(t, 1, flightCount(repo))
	close(gated.release)
	<-done
	assert.Zero(t, flightCount(repo))
}

func testSlotStart() time.Time {
	return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}
