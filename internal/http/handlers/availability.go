package handlers

import (
	"net/http"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/availability"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// AvailabilityHandler serves the catalog and the aggregated free slots.
type AvailabilityHandler struct {
	catalog    *catalog.Index
	aggregator *availability.Aggregator
	now        func() time.Time
	logger     *logging.Logger
}

func NewAvailabilityHandler(idx *catalog.Index, aggregator *availability.Aggregator, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{catalog: idx, aggregator: aggregator, now: time.Now, logger: logger}
}

// ListServices handles GET /servicios, optionally filtered by ?especialidad=.
func (h *AvailabilityHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	list := h.catalog.List()
	if specialty := r.URL.Query().Get("especialidad"); specialty != "" {
		list = h.catalog.BySpecialty(specialty)
	}
	if list == nil {
		list = []catalog.Service{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Availability handles GET /disponibilidad?servicioId=.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("servicioId")
	if serviceID == "" {
		writeError(w, r, h.logger, apperr.Invalid(map[string]string{"servicioId": "required"}))
		return
	}
	view, err := h.aggregator.ForService(r.Context(), serviceID, h.now())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
