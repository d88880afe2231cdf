package availability

import "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"

var (
	ErrNoQualifiedProfessional = apperr.NotFound("no_qualified_professional", "no professional delivers this service")
	ErrNoAvailability          = apperr.NotFound("no_availability", "no free slots for this service")
)
