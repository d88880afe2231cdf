// Package bookings is the transactional core of the clinic agenda: it
// creates, cancels, reschedules and reassigns reservations while keeping
// each slot held by at most one active reservation.
package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

// Status is the reservation lifecycle state. Cancelled is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Reservation is a patient's claim on one slot for one service. Note is the
// free-text reason shown to staff; ServiceID is the only link to the catalog.
type Reservation struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"pacienteId"`
	ProfessionalID string     `json:"profesionalId"`
	SlotID         string     `json:"horarioDisponibleId"`
	ServiceID      string     `json:"servicioId"`
	Note           string     `json:"motivo,omitempty"`
	Status         Status     `json:"estado"`
	StartsAt       time.Time  `json:"fecha"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
}

// Active reports whether the reservation still holds its slot.
func (r Reservation) Active() bool { return r.Status == StatusActive }

// CreateInput is the createReservation payload.
type CreateInput struct {
	PatientID      string `json:"pacienteId"`
	ProfessionalID string `json:"profesionalId"`
	SlotID         string `json:"horarioDisponibleId"`
	ServiceID      string `json:"servicioId"`
	Note           string `json:"motivo"`
}

// Validate checks required selections.
func (in CreateInput) Validate() error {
	fields := map[string]string{}
	required(fields, "pacienteId", in.PatientID)
	required(fields, "profesionalId", in.ProfessionalID)
	required(fields, "horarioDisponibleId", in.SlotID)
	required(fields, "servicioId", in.ServiceID)
	if len(fields) > 0 {
		return apperr.Invalid(fields)
	}
	return nil
}

// RescheduleInput moves a reservation to another slot of the same
// professional.
type RescheduleInput struct {
	SlotID string
	Note   *string
}

// ReassignInput moves a reservation to a slot of another professional,
// optionally switching the service.
type ReassignInput struct {
	ProfessionalID string
	SlotID         string
	ServiceID      string
	Note           *string
}

// Move is the store-level change applied by Reschedule and Reassign.
// ExpectedProfessionalID guards against a concurrent reassignment between
// validation and commit.
type Move struct {
	SlotID                 string
	ProfessionalID         string
	ServiceID              string
	Note                   *string
	ExpectedProfessionalID string
	At                     time.Time
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	ProfessionalID string
	PatientID      string
	Status         Status
	From           time.Time
	To             time.Time
}

// Match reports whether r passes the filter.
func (f ListFilter) Match(r Reservation) bool {
	switch {
	case f.ProfessionalID != "" && r.ProfessionalID != f.ProfessionalID:
		return false
	case f.PatientID != "" && r.PatientID != f.PatientID:
		return false
	case f.Status != "" && r.Status != f.Status:
		return false
	case !f.From.IsZero() && r.StartsAt.Before(f.From):
		return false
	case !f.To.IsZero() && !r.StartsAt.Before(f.To):
		return false
	}
	return true
}

// Store persists reservations together with the reserved flag of their
// slots. Every method is atomic: either the reservation and the slot flags
// change together or nothing changes.
type Store interface {
	// Create reserves r.SlotID (which must belong to r.ProfessionalID and be
	// free) and inserts r.
	Create(ctx context.Context, r Reservation) (Reservation, error)
	Get(ctx context.Context, id string) (Reservation, error)
	List(ctx context.Context, filter ListFilter) ([]Reservation, error)
	// Cancel marks the reservation cancelled and frees its slot. changed is
	// false when it was already cancelled.
	Cancel(ctx context.Context, id string, at time.Time) (r Reservation, changed bool, err error)
	// Move reserves m.SlotID, frees the current slot and updates the
	// reservation. On error nothing changes.
	Move(ctx context.Context, id string, m Move) (updated, previous Reservation, err error)
}

func required(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = "required"
	}
}
