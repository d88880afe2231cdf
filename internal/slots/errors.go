package slots

import "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"

var (
	ErrSlotNotFound    = apperr.NotFound("slot_not_found", "slot not found")
	ErrSlotUnavailable = apperr.Conflict("slot_unavailable", "slot is already reserved")
	ErrSlotReserved    = apperr.Conflict("slot_reserved", "reserved slots cannot be removed")
	ErrSlotNotReserved = apperr.Conflict("slot_not_reserved", "slot is not reserved")
)

func invalidBlock(fields map[string]string) error {
	err := apperr.Invalid(fields)
	err.Code = "invalid_schedule_block"
	err.Message = "invalid schedule block"
	return err
}
