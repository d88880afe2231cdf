package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/events"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

var bookingsTracer = otel.Tracer("agenda.internal.bookings")

// OperationObserver records the outcome and latency of engine operations.
type OperationObserver interface {
	ObserveOperation(operation, outcome string, seconds float64)
}

// Config wires an Engine. Store, Slots, Catalog, Professionals and Patients
// are required.
type Config struct {
	Store         Store
	Slots         *slots.Repository
	Catalog       *catalog.Index
	Professionals professionals.Directory
	Patients      patients.Repository
	Publisher     events.Publisher
	Metrics       OperationObserver
	Logger        *logging.Logger
	Now           func() time.Time
}

// Engine applies reservation commands. Per-slot and per-reservation locks
// serialize conflicting commands inside the process; the Store enforces the
// same rules atomically across processes.
type Engine struct {
	store     Store
	slots     *slots.Repository
	catalog   *catalog.Index
	dir       professionals.Directory
	patients  patients.Repository
	publisher events.Publisher
	metrics   OperationObserver
	logger    *logging.Logger
	now       func() time.Time
	locks     *keyedMutex
}

func NewEngine(cfg Config) *Engine {
	switch {
	case cfg.Store == nil:
		panic("bookings: store required")
	case cfg.Slots == nil:
		panic("bookings: slot repository required")
	case cfg.Catalog == nil:
		panic("bookings: service catalog required")
	case cfg.Professionals == nil:
		panic("bookings: professional directory required")
	case cfg.Patients == nil:
		panic("bookings: patient repository required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:     cfg.Store,
		slots:     cfg.Slots,
		catalog:   cfg.Catalog,
		dir:       cfg.Professionals,
		patients:  cfg.Patients,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Now,
		locks:     newKeyedMutex(),
	}
}

// Get returns one reservation.
func (e *Engine) Get(ctx context.Context, id string) (Reservation, error) {
	return e.store.Get(ctx, id)
}

// List returns reservations matching filter.
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]Reservation, error) {
	return e.store.List(ctx, filter)
}

// Create books a free slot for a patient. Of several concurrent requests
// for the same slot exactly one succeeds; the rest fail with
// ErrSlotUnavailable.
func (e *Engine) Create(ctx context.Context, in CreateInput) (res Reservation, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer e.finish(span, "create", time.Now(), &err)
	span.SetAttributes(
		attribute.String("professional.id", in.ProfessionalID),
		attribute.String("slot.id", in.SlotID),
		attribute.String("service.id", in.ServiceID),
	)

	if err := in.Validate(); err != nil {
		return Reservation{}, err
	}
	if _, err := e.catalog.Get(in.ServiceID); err != nil {
		return Reservation{}, err
	}
	if _, err := e.patients.Get(ctx, in.PatientID); err != nil {
		return Reservation{}, err
	}
	pro, err := e.dir.Get(ctx, in.ProfessionalID)
	if err != nil {
		return Reservation{}, err
	}
	if !pro.QualifiedFor(in.ServiceID) {
		return Reservation{}, professionals.ErrNotQualified
	}
	if _, err := e.targetSlot(ctx, in.SlotID, pro.ID); err != nil {
		return Reservation{}, err
	}

	unlock := e.locks.Lock("slot:" + in.SlotID)
	now := e.now().UTC()
	res, err = e.store.Create(ctx, Reservation{
		ID:             uuid.NewString(),
		PatientID:      in.PatientID,
		ProfessionalID: pro.ID,
		SlotID:         in.SlotID,
		ServiceID:      in.ServiceID,
		Note:           in.Note,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	unlock()
	if err != nil {
		return Reservation{}, fmt.Errorf("bookings: create: %w", err)
	}
	e.slots.Invalidate(pro.ID)

	span.SetAttributes(attribute.String("reservation.id", res.ID))
	e.publish(ctx, events.TypeReservationCreated, res, Reservation{})
	e.logger.Info("reservation created",
		"reservation_id", res.ID,
		"professional_id", res.ProfessionalID,
		"slot_id", res.SlotID,
		"service_id", res.ServiceID,
	)
	return res, nil
}

// Cancel frees the reservation's slot. Cancelling an already cancelled
// reservation succeeds without side effects.
func (e *Engine) Cancel(ctx context.Context, id string) (res Reservation, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer e.finish(span, "cancel", time.Now(), &err)
	span.SetAttributes(attribute.String("reservation.id", id))

	unlock := e.locks.Lock("reservation:" + id)
	res, changed, err := e.store.Cancel(ctx, id, e.now().UTC())
	unlock()
	if err != nil {
		return Reservation{}, fmt.Errorf("bookings: cancel: %w", err)
	}
	if !changed {
		e.logger.Debug("reservation already cancelled", "reservation_id", id)
		return res, nil
	}
	e.slots.Invalidate(res.ProfessionalID)
	e.publish(ctx, events.TypeReservationCancelled, res, Reservation{})
	e.logger.Info("reservation cancelled",
		"reservation_id", res.ID,
		"professional_id", res.ProfessionalID,
		"slot_id", res.SlotID,
	)
	return res, nil
}

// Reschedule moves an active reservation to another free slot of the same
// professional. The old slot is freed only if the new one was reserved.
func (e *Engine) Reschedule(ctx context.Context, id string, in RescheduleInput) (res Reservation, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer e.finish(span, "reschedule", time.Now(), &err)
	span.SetAttributes(
		attribute.String("reservation.id", id),
		attribute.String("slot.id", in.SlotID),
	)

	if in.SlotID == "" {
		return Reservation{}, apperr.Invalid(map[string]string{"nuevoHorarioId": "required"})
	}
	current, err := e.activeReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	slot, err := e.slots.Store().Get(ctx, in.SlotID)
	if err != nil {
		return Reservation{}, err
	}
	if slot.ProfessionalID != current.ProfessionalID {
		return Reservation{}, ErrDifferentProfessional
	}
	if !slot.StartsAt.After(e.now()) && slot.ID != current.SlotID {
		return Reservation{}, ErrSlotInPast
	}

	return e.move(ctx, id, events.TypeReservationRescheduled, Move{
		SlotID:                 in.SlotID,
		ProfessionalID:         current.ProfessionalID,
		Note:                   in.Note,
		ExpectedProfessionalID: current.ProfessionalID,
	})
}

// Reassign moves an active reservation to a free slot of another
// professional, who must be qualified for the (possibly new) service.
func (e *Engine) Reassign(ctx context.Context, id string, in ReassignInput) (res Reservation, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reassign")
	defer e.finish(span, "reassign", time.Now(), &err)
	span.SetAttributes(
		attribute.String("reservation.id", id),
		attribute.String("professional.id", in.ProfessionalID),
		attribute.String("slot.id", in.SlotID),
	)

	fields := map[string]string{}
	required(fields, "nuevoProfesionalId", in.ProfessionalID)
	required(fields, "nuevoHorarioId", in.SlotID)
	if len(fields) > 0 {
		return Reservation{}, apperr.Invalid(fields)
	}
	current, err := e.activeReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	serviceID := current.ServiceID
	if in.ServiceID != "" {
		if _, err := e.catalog.Get(in.ServiceID); err != nil {
			return Reservation{}, err
		}
		serviceID = in.ServiceID
	}
	pro, err := e.dir.Get(ctx, in.ProfessionalID)
	if err != nil {
		return Reservation{}, err
	}
	if !pro.QualifiedFor(serviceID) {
		return Reservation{}, professionals.ErrNotQualified
	}
	if in.SlotID != current.SlotID || pro.ID != current.ProfessionalID {
		if _, err := e.targetSlot(ctx, in.SlotID, pro.ID); err != nil {
			return Reservation{}, err
		}
	}

	return e.move(ctx, id, events.TypeReservationReassigned, Move{
		SlotID:                 in.SlotID,
		ProfessionalID:         pro.ID,
		ServiceID:              serviceID,
		Note:                   in.Note,
		ExpectedProfessionalID: current.ProfessionalID,
	})
}

func (e *Engine) move(ctx context.Context, id, eventType string, m Move) (Reservation, error) {
	unlock := e.locks.Lock("reservation:"+id, "slot:"+m.SlotID)
	m.At = e.now().UTC()
	updated, previous, err := e.store.Move(ctx, id, m)
	unlock()
	if err != nil {
		return Reservation{}, fmt.Errorf("bookings: move: %w", err)
	}
	if updated.SlotID == previous.SlotID && updated.ServiceID == previous.ServiceID && updated.Note == previous.Note {
		return updated, nil
	}
	e.slots.Invalidate(previous.ProfessionalID, updated.ProfessionalID)
	e.publish(ctx, eventType, updated, previous)
	e.logger.Info("reservation moved",
		"reservation_id", id,
		"event_type", eventType,
		"from_slot_id", previous.SlotID,
		"to_slot_id", updated.SlotID,
		"from_professional_id", previous.ProfessionalID,
		"to_professional_id", updated.ProfessionalID,
	)
	return updated, nil
}

func (e *Engine) activeReservation(ctx context.Context, id string) (Reservation, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !r.Active() {
		return Reservation{}, ErrReservationCancelled
	}
	return r, nil
}

// targetSlot checks that slotID exists, belongs to professionalID, lies in
// the future and is free. The store re-checks the free flag atomically.
func (e *Engine) targetSlot(ctx context.Context, slotID, professionalID string) (slots.Slot, error) {
	slot, err := e.slots.Store().Get(ctx, slotID)
	if err != nil {
		return slots.Slot{}, err
	}
	if slot.ProfessionalID != professionalID {
		return slots.Slot{}, fmt.Errorf("bookings: slot %s: %w", slotID, ErrSlotNotFound)
	}
	if !slot.StartsAt.After(e.now()) {
		return slots.Slot{}, ErrSlotInPast
	}
	if slot.Reserved {
		return slots.Slot{}, fmt.Errorf("bookings: slot %s: %w", slotID, ErrSlotUnavailable)
	}
	return slot, nil
}

// publish emits the event after the store committed. Failures are logged;
// the reservation change stands.
func (e *Engine) publish(ctx context.Context, eventType string, r, previous Reservation) {
	if e.publisher == nil {
		return
	}
	evt := events.ReservationEventV1{
		EventID:        uuid.NewString(),
		ReservationID:  r.ID,
		PatientID:      r.PatientID,
		ProfessionalID: r.ProfessionalID,
		ServiceID:      r.ServiceID,
		SlotID:         r.SlotID,
		StartsAt:       r.StartsAt,
		Note:           r.Note,
		OccurredAt:     e.now().UTC(),
	}
	if previous.ID != "" {
		evt.PreviousSlotID = previous.SlotID
		evt.PreviousStartsAt = previous.StartsAt
		evt.PreviousProfessID = previous.ProfessionalID
	}
	if err := e.publisher.Publish(ctx, eventType, evt); err != nil {
		e.logger.Error("failed to publish reservation event",
			"error", err,
			"event_type", eventType,
			"reservation_id", r.ID,
		)
	}
}

func (e *Engine) finish(span trace.Span, operation string, started time.Time, errp *error) {
	outcome := "success"
	if err := *errp; err != nil {
		outcome = apperr.KindOf(err).String()
		span.RecordError(err)
		if !errors.Is(err, context.Canceled) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	if e.metrics != nil {
		e.metrics.ObserveOperation(operation, outcome, time.Since(started).Seconds())
	}
	span.End()
}
