package slots

import "context"

// Store persists slots and schedule blocks.
type Store interface {
	// ListByProfessional returns the professional's slots ordered by start.
	ListByProfessional(ctx context.Context, professionalID string) ([]Slot, error)
	Get(ctx context.Context, id string) (Slot, error)
	// InsertBlock stores block and the slots whose (professional, start) is
	// not already present. It returns only the newly inserted slots.
	InsertBlock(ctx context.Context, block ScheduleBlock, slots []Slot) ([]Slot, error)
	// Delete removes an unreserved slot.
	Delete(ctx context.Context, id string) error
}
