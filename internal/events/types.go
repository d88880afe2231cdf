package events

import "time"

// Reservation event types.
const (
	TypeReservationCreated     = "reservation.created.v1"
	TypeReservationCancelled   = "reservation.cancelled.v1"
	TypeReservationRescheduled = "reservation.rescheduled.v1"
	TypeReservationReassigned  = "reservation.reassigned.v1"
)

// ReservationEventV1 is emitted after every committed booking mutation.
type ReservationEventV1 struct {
	EventID           string    `json:"event_id"`
	ReservationID     string    `json:"reservation_id"`
	PatientID         string    `json:"patient_id"`
	ProfessionalID    string    `json:"professional_id"`
	ServiceID         string    `json:"service_id"`
	SlotID            string    `json:"slot_id"`
	StartsAt          time.Time `json:"starts_at"`
	PreviousSlotID    string    `json:"previous_slot_id,omitempty"`
	PreviousStartsAt  time.Time `json:"previous_starts_at,omitempty"`
	PreviousProfessID string    `json:"previous_professional_id,omitempty"`
	Note              string    `json:"note,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}
