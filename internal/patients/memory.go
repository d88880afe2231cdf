package patients

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Patient
	byNatID map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]Patient{}, byNatID: map[string]string{}}
}

func (r *MemoryRepository) Create(ctx context.Context, p Patient) (Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNatID[p.NationalID]; exists {
		return Patient{}, fmt.Errorf("patients: %s: %w", p.NationalID, ErrDuplicatePatient)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.byID[p.ID] = p
	r.byNatID[p.NationalID] = p.ID
	return p, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Patient{}, fmt.Errorf("patients: %s: %w", id, ErrPatientNotFound)
	}
	return p, nil
}

func (r *MemoryRepository) GetByNationalID(ctx context.Context, nationalID string) (Patient, error) {
	r.mu.RLock()
	id, ok := r.byNatID[nationalID]
	r.mu.RUnlock()
	if !ok {
		return Patient{}, fmt.Errorf("patients: %s: %w", nationalID, ErrPatientNotFound)
	}
	return r.Get(ctx, id)
}
