// Package payments creates checkout preferences with the payment provider
// and keeps booking-form drafts alive across the provider redirect.
package payments

import (
	"context"
	"strings"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

// PreferenceRequest describes one line item to charge.
type PreferenceRequest struct {
	Description       string `json:"descripcion"`
	UnitPrice         int64  `json:"precioUnitario"`
	Quantity          int    `json:"cantidad,omitempty"`
	ExternalReference string `json:"referenciaExterna,omitempty"`
}

// Validate checks the request before it reaches a provider.
func (r PreferenceRequest) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.Description) == "" {
		fields["descripcion"] = "required"
	}
	if r.UnitPrice <= 0 {
		fields["precioUnitario"] = "must be greater than zero"
	}
	if r.Quantity < 0 {
		fields["cantidad"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperr.Invalid(fields)
	}
	return nil
}

// Preference is the provider's opaque checkout reference and the URL the
// patient is redirected to.
type Preference struct {
	ID        string `json:"preferenciaId"`
	InitPoint string `json:"initPoint"`
}

// Gateway creates checkout preferences.
type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}
