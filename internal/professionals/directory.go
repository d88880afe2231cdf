package professionals

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Directory provides professional lookups.
type Directory interface {
	List(ctx context.Context) ([]Professional, error)
	Get(ctx context.Context, id string) (Professional, error)
	Qualified(ctx context.Context, serviceID string) ([]Professional, error)
	Create(ctx context.Context, p Professional) (Professional, error)
}

// MemoryDirectory is an in-memory Directory.
type MemoryDirectory struct {
	mu    sync.RWMutex
	items map[string]Professional
}

// NewMemoryDirectory seeds a directory with the given professionals.
func NewMemoryDirectory(seed ...Professional) *MemoryDirectory {
	d := &MemoryDirectory{items: make(map[string]Professional, len(seed))}
	for _, p := range seed {
		d.items[p.ID] = p
	}
	return d
}

func (d *MemoryDirectory) List(ctx context.Context) ([]Professional, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Professional, 0, len(d.items))
	for _, p := range d.items {
		out = append(out, p)
	}
	sortByName(out)
	return out, nil
}

func (d *MemoryDirectory) Get(ctx context.Context, id string) (Professional, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.items[id]
	if !ok {
		return Professional{}, fmt.Errorf("professionals: %s: %w", id, ErrProfessionalNotFound)
	}
	return p, nil
}

func (d *MemoryDirectory) Qualified(ctx context.Context, serviceID string) ([]Professional, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Professional
	for _, p := range d.items {
		if p.QualifiedFor(serviceID) {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

func (d *MemoryDirectory) Create(ctx context.Context, p Professional) (Professional, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Specialties = normalize(p.Specialties)
	p.Services = normalize(p.Services)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.items[p.ID]; exists {
		return Professional{}, fmt.Errorf("professionals: %s: %w", p.ID, ErrDuplicateProfessional)
	}
	d.items[p.ID] = p
	return p, nil
}
