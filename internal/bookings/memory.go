package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
)

// MemoryStore keeps reservations in a map and delegates the reserved flag to
// a slots.MemoryStore. One mutex covers both so a reservation and its slot
// never disagree.
type MemoryStore struct {
	mu    sync.Mutex
	slots *slots.MemoryStore
	items map[string]Reservation
}

func NewMemoryStore(slotStore *slots.MemoryStore) *MemoryStore {
	if slotStore == nil {
		panic("bookings: slot store required")
	}
	return &MemoryStore{slots: slotStore, items: map[string]Reservation{}}
}

func (s *MemoryStore) Create(ctx context.Context, r Reservation) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[r.ID]; exists {
		return Reservation{}, fmt.Errorf("bookings: reservation %s already exists", r.ID)
	}
	slot, err := s.slots.Get(ctx, r.SlotID)
	if err != nil {
		return Reservation{}, err
	}
	if err := s.slots.Reserve(ctx, r.SlotID, r.ProfessionalID); err != nil {
		return Reservation{}, err
	}
	r.StartsAt = slot.StartsAt
	r.Status = StatusActive
	s.items[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	return r, nil
}

// List returns matching reservations ordered by start time, then id.
func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Reservation, error) {
	s.mu.Lock()
	out := make([]Reservation, 0, len(s.items))
	for _, r := range s.items {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id string, at time.Time) (Reservation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return Reservation{}, false, ErrReservationNotFound
	}
	if !r.Active() {
		return r, false, nil
	}
	if err := s.slots.Release(ctx, r.SlotID); err != nil && !errors.Is(err, slots.ErrSlotNotReserved) {
		return Reservation{}, false, err
	}
	r.Status = StatusCancelled
	r.UpdatedAt = at
	r.CancelledAt = &at
	s.items[id] = r
	return r, true, nil
}

func (s *MemoryStore) Move(ctx context.Context, id string, m Move) (Reservation, Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[id]
	if !ok {
		return Reservation{}, Reservation{}, ErrReservationNotFound
	}
	if !prev.Active() {
		return Reservation{}, Reservation{}, ErrReservationCancelled
	}
	if m.ExpectedProfessionalID != "" && prev.ProfessionalID != m.ExpectedProfessionalID {
		return Reservation{}, Reservation{}, ErrConcurrentChange
	}

	next := prev
	if m.SlotID != prev.SlotID {
		slot, err := s.slots.Get(ctx, m.SlotID)
		if err != nil {
			return Reservation{}, Reservation{}, err
		}
		if err := s.slots.Move(ctx, prev.SlotID, m.SlotID, m.ProfessionalID); err != nil {
			return Reservation{}, Reservation{}, err
		}
		next.SlotID = m.SlotID
		next.ProfessionalID = m.ProfessionalID
		next.StartsAt = slot.StartsAt
	}
	if m.ServiceID != "" {
		next.ServiceID = m.ServiceID
	}
	if m.Note != nil {
		next.Note = *m.Note
	}
	next.UpdatedAt = m.At
	s.items[id] = next
	return next, prev, nil
}
