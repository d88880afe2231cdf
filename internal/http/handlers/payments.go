package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/payments"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// PaymentsHandler creates checkout preferences and stores the booking form
// draft the client restores after the provider redirect.
type PaymentsHandler struct {
	gateway payments.Gateway
	drafts  payments.DraftStore
	logger  *logging.Logger
}

func NewPaymentsHandler(gateway payments.Gateway, drafts payments.DraftStore, logger *logging.Logger) *PaymentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentsHandler{gateway: gateway, drafts: drafts, logger: logger}
}

// CreatePreference handles POST /pagos/preferencias.
func (h *PaymentsHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req payments.PreferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	pref, err := h.gateway.CreatePreference(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pref)
}

// PutDraft handles PUT /borradores/{key}.
func (h *PaymentsHandler) PutDraft(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		if apperr.IsValidation(err) {
			err = payments.ErrDraftNotJSON
		}
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.drafts.Put(r.Context(), chi.URLParam(r, "key"), raw); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDraft handles GET /borradores/{key}.
func (h *PaymentsHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	raw, err := h.drafts.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// DeleteDraft handles DELETE /borradores/{key}.
func (h *PaymentsHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
