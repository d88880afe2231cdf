package handlers

import (
	"net/http"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// PatientsHandler registers patients.
type PatientsHandler struct {
	repo   patients.Repository
	logger *logging.Logger
}

func NewPatientsHandler(repo patients.Repository, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{repo: repo, logger: logger}
}

// Register handles POST /pacientes. RUT, phone and email are validated and
// normalized before storage.
func (h *PatientsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req patients.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := patients.Register(r.Context(), h.repo, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
