package bookings

import (
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
)

var (
	ErrReservationNotFound   = apperr.NotFound("reservation_not_found", "reservation not found")
	ErrReservationCancelled  = apperr.Conflict("reservation_cancelled", "reservation is cancelled")
	ErrConcurrentChange      = apperr.Conflict("reservation_changed", "reservation changed concurrently")
	ErrSlotInPast            = apperr.Validation("slot_in_past", "slot has already started")
	ErrDifferentProfessional = apperr.Validation("slot_of_other_professional", "slot belongs to another professional; reassign the reservation instead")

	// Slot errors are shared with the slot store so errors.Is works across
	// both layers.
	ErrSlotUnavailable = slots.ErrSlotUnavailable
	ErrSlotNotFound    = slots.ErrSlotNotFound
)
