// Package patients stores the people who book appointments.
package patients

import (
	"context"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/identity"
)

var (
	ErrPatientNotFound  = apperr.NotFound("patient_not_found", "patient not found")
	ErrDuplicatePatient = apperr.Conflict("patient_exists", "a patient with this national id already exists")
)

// Patient is a registered patient. NationalID is stored formatted.
type Patient struct {
	ID         string    `json:"id"`
	NationalID string    `json:"rut"`
	FullName   string    `json:"nombre"`
	Phone      string    `json:"telefono"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	NationalID string `json:"rut"`
	FullName   string `json:"nombre"`
	Phone      string `json:"telefono"`
	Email      string `json:"email"`
}

// Contact converts the request for validation.
func (r RegisterRequest) Contact() identity.Contact {
	return identity.Contact{NationalID: r.NationalID, FullName: r.FullName, Phone: r.Phone, Email: r.Email}
}

// Repository persists patients.
type Repository interface {
	Create(ctx context.Context, p Patient) (Patient, error)
	Get(ctx context.Context, id string) (Patient, error)
	GetByNationalID(ctx context.Context, nationalID string) (Patient, error)
}

// Register validates and normalizes req before storing it.
func Register(ctx context.Context, repo Repository, req RegisterRequest) (Patient, error) {
	contact := req.Contact()
	if err := contact.Validate(); err != nil {
		return Patient{}, err
	}
	c := contact.Normalized()
	return repo.Create(ctx, Patient{
		NationalID: c.NationalID,
		FullName:   c.FullName,
		Phone:      c.Phone,
		Email:      c.Email,
	})
}
