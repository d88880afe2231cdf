package slots

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store. Its Reserve, Release and Move methods
// are compare-and-swap operations on the reserved flag used by the
// in-memory booking store.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  map[string]Slot
	byProf map[string]map[int64]string
	blocks map[string]ScheduleBlock
	// used holds every slot id that has ever been reserved; those are
	// never deleted.
	used map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:  map[string]Slot{},
		byProf: map[string]map[int64]string{},
		blocks: map[string]ScheduleBlock{},
		used:   map[string]struct{}{},
	}
}

func (s *MemoryStore) ListByProfessional(ctx context.Context, professionalID string) ([]Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byProf[professionalID]
	out := make([]Slot, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.slots[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return Slot{}, fmt.Errorf("slots: %s: %w", id, ErrSlotNotFound)
	}
	return slot, nil
}

func (s *MemoryStore) InsertBlock(ctx context.Context, block ScheduleBlock, slots []Slot) ([]Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blocks[block.ID]; block.ID != "" && !exists {
		s.blocks[block.ID] = block
	}
	var inserted []Slot
	for _, slot := range slots {
		starts := s.byProf[slot.ProfessionalID]
		if starts == nil {
			starts = map[int64]string{}
			s.byProf[slot.ProfessionalID] = starts
		}
		key := slot.StartsAt.Unix()
		if _, exists := starts[key]; exists {
			continue
		}
		starts[key] = slot.ID
		s.slots[slot.ID] = slot
		inserted = append(inserted, slot)
	}
	return inserted, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return fmt.Errorf("slots: %s: %w", id, ErrSlotNotFound)
	}
	if _, used := s.used[id]; slot.Reserved || used {
		return fmt.Errorf("slots: %s: %w", id, ErrSlotReserved)
	}
	delete(s.slots, id)
	delete(s.byProf[slot.ProfessionalID], slot.StartsAt.Unix())
	return nil
}

// Reserve marks a free slot of professionalID as reserved.
func (s *MemoryStore) Reserve(ctx context.Context, id, professionalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.lookupLocked(id, professionalID)
	if err != nil {
		return err
	}
	if slot.Reserved {
		return fmt.Errorf("slots: %s: %w", id, ErrSlotUnavailable)
	}
	slot.Reserved = true
	s.slots[id] = slot
	s.used[id] = struct{}{}
	return nil
}

// Release frees a reserved slot.
func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return fmt.Errorf("slots: %s: %w", id, ErrSlotNotFound)
	}
	if !slot.Reserved {
		return fmt.Errorf("slots: %s: %w", id, ErrSlotNotReserved)
	}
	slot.Reserved = false
	s.slots[id] = slot
	return nil
}

// Move reserves toID (which must belong to toProfessionalID and be free)
// and frees fromID in one step. On error neither slot changes.
func (s *MemoryStore) Move(ctx context.Context, fromID, toID, toProfessionalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.slots[fromID]
	if !ok {
		return fmt.Errorf("slots: %s: %w", fromID, ErrSlotNotFound)
	}
	to, err := s.lookupLocked(toID, toProfessionalID)
	if err != nil {
		return err
	}
	if to.Reserved {
		return fmt.Errorf("slots: %s: %w", toID, ErrSlotUnavailable)
	}
	to.Reserved = true
	from.Reserved = false
	s.slots[toID] = to
	s.slots[fromID] = from
	s.used[toID] = struct{}{}
	return nil
}

func (s *MemoryStore) lookupLocked(id, professionalID string) (Slot, error) {
	slot, ok := s.slots[id]
	if !ok || (professionalID != "" && slot.ProfessionalID != professionalID) {
		return Slot{}, fmt.Errorf("slots: %s: %w", id, ErrSlotNotFound)
	}
	return slot, nil
}

// Block returns a stored schedule block.
func (s *MemoryStore) Block(id string) (ScheduleBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	return b, ok
}
