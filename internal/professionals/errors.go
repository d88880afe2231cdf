package professionals

import "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"

var (
	// ErrProfessionalNotFound is returned for unknown professional ids.
	ErrProfessionalNotFound = apperr.NotFound("professional_not_found", "professional not found")

	// ErrNotQualified is returned when a professional does not deliver a service.
	ErrNotQualified = apperr.Validation("professional_not_qualified", "professional is not qualified for the service")

	// ErrDuplicateProfessional is returned when the id is already taken.
	ErrDuplicateProfessional = apperr.Conflict("professional_exists", "a professional with this id already exists")
)
