package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

var slotsTracer = otel.Tracer("agenda.internal.slots")

// GenerationObserver counts generated slots.
type GenerationObserver interface {
	AddGeneratedSlots(n int)
}

// Service handles operator actions on schedules.
type Service struct {
	repo     *Repository
	dir      professionals.Directory
	loc      *time.Location
	observer GenerationObserver
	logger   *logging.Logger
}

// NewService wires the schedule service. loc is the clinic time zone used to
// interpret block dates and times.
func NewService(repo *Repository, dir professionals.Directory, loc *time.Location, observer GenerationObserver, logger *logging.Logger) *Service {
	if repo == nil {
		panic("slots: repository required")
	}
	if dir == nil {
		panic("slots: professional directory required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, dir: dir, loc: loc, observer: observer, logger: logger}
}

// CreateBlock stores block and the slots it generates. Regenerating an
// existing block is harmless: only slots with new start times are inserted
// and returned.
func (s *Service) CreateBlock(ctx context.Context, block ScheduleBlock) ([]Slot, error) {
	ctx, span := slotsTracer.Start(ctx, "slots.create_block")
	defer span.End()
	span.SetAttributes(
		attribute.String("professional.id", block.ProfessionalID),
		attribute.String("block.date", block.Date.String()),
	)

	generated, err := Generate(block, s.loc)
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.Get(ctx, block.ProfessionalID); err != nil {
		return nil, err
	}
	if block.ID == "" {
		block.ID = uuid.NewString()
		for i := range generated {
			generated[i].BlockID = block.ID
		}
	}

	inserted, err := s.repo.Store().InsertBlock(ctx, block, generated)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("slots: create block: %w", err)
	}
	s.repo.Invalidate(block.ProfessionalID)
	if s.observer != nil {
		s.observer.AddGeneratedSlots(len(inserted))
	}
	span.SetAttributes(attribute.Int("slots.inserted", len(inserted)))

	s.logger.Info("schedule block created",
		"block_id", block.ID,
		"professional_id", block.ProfessionalID,
		"date", block.Date.String(),
		"generated", len(generated),
		"inserted", len(inserted),
	)
	return inserted, nil
}

// ListSlots returns every slot of a known professional.
func (s *Service) ListSlots(ctx context.Context, professionalID string) ([]Slot, error) {
	if _, err := s.dir.Get(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.repo.Slots(ctx, professionalID)
}

// RemoveSlot deletes a slot that has never been reserved or is currently free.
func (s *Service) RemoveSlot(ctx context.Context, id string) error {
	slot, err := s.repo.Store().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Store().Delete(ctx, id); err != nil {
		return err
	}
	s.repo.Invalidate(slot.ProfessionalID)
	s.logger.Info("slot removed", "slot_id", id, "professional_id", slot.ProfessionalID)
	return nil
}
