package slots

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// CacheObserver receives cache lookup outcomes: "hit", "miss" or "coalesced".
type CacheObserver interface {
	ObserveCacheLookup(result string)
}

// RepositoryConfig tunes the shared slot cache.
type RepositoryConfig struct {
	Size         int
	TTL          time.Duration
	FetchTimeout time.Duration
}

// Repository is the single shared read path for per-professional slot
// lists. Concurrent misses for one professional share a single store fetch,
// and Invalidate drops the entry after any mutation.
//
// Fetches run detached from the first caller's context, bounded by
// FetchTimeout, so a caller that gives up does not cancel the fetch other
// callers are waiting on. A fetch result is cached only if no invalidation
// for that professional happened while it was in flight.
type Repository struct {
	store        Store
	cache        *expirable.LRU[string, []Slot]
	group        singleflight.Group
	fetchTimeout time.Duration
	observer     CacheObserver
	logger       *logging.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight tracks store fetches in progress for one professional. gen is
// bumped by Invalidate; the entry is dropped when the last fetch ends.
type flight struct {
	gen      uint64
	inflight int
}

// NewRepository wraps store with an LRU of cfg.Size entries.
func NewRepository(store Store, cfg RepositoryConfig, observer CacheObserver, logger *logging.Logger) *Repository {
	if store == nil {
		panic("slots: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Size <= 0 {
		cfg.Size = 512
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	return &Repository{
		store:        store,
		cache:        expirable.NewLRU[string, []Slot](cfg.Size, nil, cfg.TTL),
		fetchTimeout: cfg.FetchTimeout,
		observer:     observer,
		logger:       logger,
		flights:      map[string]*flight{},
	}
}

// Slots returns a copy of the professional's slots ordered by start.
func (r *Repository) Slots(ctx context.Context, professionalID string) ([]Slot, error) {
	if cached, ok := r.cache.Get(professionalID); ok {
		r.observe("hit")
		return slices.Clone(cached), nil
	}

	ch := r.group.DoChan(professionalID, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		gen := r.beginFetch(professionalID)
		list, err := r.store.ListByProfessional(fetchCtx, professionalID)
		r.endFetch(professionalID, gen, list, err == nil)
		if err != nil {
			return nil, err
		}
		return list, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("slot fetch failed", "professional_id", professionalID, "error", res.Err)
			return nil, res.Err
		}
		if res.Shared {
			r.observe("coalesced")
		} else {
			r.observe("miss")
		}
		return slices.Clone(res.Val.([]Slot)), nil
	}
}

// Invalidate drops cached entries for the given professionals. Fetches
// already in flight for them will not populate the cache, and later callers
// start a fresh fetch.
func (r *Repository) Invalidate(professionalIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range professionalIDs {
		if id == "" {
			continue
		}
		if f, ok := r.flights[id]; ok {
			f.gen++
		}
		r.cache.Remove(id)
		r.group.Forget(id)
	}
}

// Store exposes the underlying store for uncached reads.
func (r *Repository) Store() Store { return r.store }

func (r *Repository) beginFetch(professionalID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[professionalID]
	if !ok {
		f = &flight{}
		r.flights[professionalID] = f
	}
	f.inflight++
	return f.gen
}

// endFetch caches list unless an invalidation raced the fetch.
func (r *Repository) endFetch(professionalID string, gen uint64, list []Slot, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.flights[professionalID]
	f.inflight--
	if f.inflight == 0 {
		delete(r.flights, professionalID)
	}
	if ok && f.gen == gen {
		r.cache.Add(professionalID, slices.Clone(list))
	}
}

func (r *Repository) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveCacheLookup(result)
	}
}
