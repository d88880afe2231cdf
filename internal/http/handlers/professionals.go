package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// ProfessionalsHandler serves professionals and their schedules.
type ProfessionalsHandler struct {
	dir     professionals.Directory
	slots   *slots.Service
	catalog *catalog.Index
	logger  *logging.Logger
}

func NewProfessionalsHandler(dir professionals.Directory, slotService *slots.Service, idx *catalog.Index, logger *logging.Logger) *ProfessionalsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProfessionalsHandler{dir: dir, slots: slotService, catalog: idx, logger: logger}
}

// List handles GET /profesionales.
func (h *ProfessionalsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.dir.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []professionals.Professional{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /profesionales.
func (h *ProfessionalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p professionals.Professional
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := p.Validate(h.catalog.Has); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	created, err := h.dir.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("professional registered", "professional_id", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// ListSlots handles GET /profesionales/{id}/horarios.
func (h *ProfessionalsHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	list, err := h.slots.ListSlots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []slots.Slot{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateBlock handles POST /bloques.
func (h *ProfessionalsHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var block slots.ScheduleBlock
	if err := decodeJSON(w, r, &block); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	created, err := h.slots.CreateBlock(r.Context(), block)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if created == nil {
		created = []slots.Slot{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"horarios": created})
}

// DeleteSlot handles DELETE /horarios/{id}.
func (h *ProfessionalsHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.slots.RemoveSlot(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
