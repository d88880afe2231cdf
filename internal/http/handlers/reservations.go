package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/bookings"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/calendar"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/reporting"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// ReservationsHandler exposes the booking engine and its read models.
type ReservationsHandler struct {
	engine   *bookings.Engine
	reader   reporting.Reader
	calendar *reporting.Calendar
	loc      *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

func NewReservationsHandler(engine *bookings.Engine, reader reporting.Reader, cal *reporting.Calendar, loc *time.Location, logger *logging.Logger) *ReservationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationsHandler{engine: engine, reader: reader, calendar: cal, loc: loc, now: time.Now, logger: logger}
}

// Create handles POST /reservas.
func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in bookings.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.engine.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Cancel handles DELETE /reservas/{id}. Repeating it succeeds.
func (h *ReservationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type rescheduleRequest struct {
	SlotID         string  `json:"nuevoHorarioId"`
	ProfessionalID string  `json:"nuevoProfesionalId"`
	ServiceID      string  `json:"nuevoServicioId"`
	Note           *string `json:"nuevoMotivo"`
}

// Reschedule handles PUT /reservas/{id}/reprogramar. A new professional or
// service turns the request into a reassignment.
func (h *ReservationsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.SlotID == "" {
		writeError(w, r, h.logger, apperr.Invalid(map[string]string{"nuevoHorarioId": "required"}))
		return
	}
	current, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var res bookings.Reservation
	reassign := (req.ProfessionalID != "" && req.ProfessionalID != current.ProfessionalID) ||
		(req.ServiceID != "" && req.ServiceID != current.ServiceID)
	if reassign {
		proID := req.ProfessionalID
		if proID == "" {
			proID = current.ProfessionalID
		}
		res, err = h.engine.Reassign(r.Context(), id, bookings.ReassignInput{
			ProfessionalID: proID,
			SlotID:         req.SlotID,
			ServiceID:      req.ServiceID,
			Note:           req.Note,
		})
	} else {
		res, err = h.engine.Reschedule(r.Context(), id, bookings.RescheduleInput{SlotID: req.SlotID, Note: req.Note})
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Details handles GET /reservas/detalle?profesionalId=&estado=.
func (h *ReservationsHandler) Details(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := bookings.ListFilter{ProfessionalID: q.Get("profesionalId")}
	switch status := bookings.Status(q.Get("estado")); status {
	case "":
	case bookings.StatusActive, bookings.StatusCancelled:
		filter.Status = status
	default:
		writeError(w, r, h.logger, apperr.Invalid(map[string]string{"estado": "must be active or cancelled"}))
		return
	}
	list, err := h.reader.ReservationDetails(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []reporting.ReservationDetails{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Calendar handles GET /calendario?fecha=YYYY-MM-DD&vista=dia|semana|mes.
func (h *ReservationsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := calendar.ParseViewMode(q.Get("vista"))
	if err != nil {
		writeError(w, r, h.logger, apperr.Invalid(map[string]string{"vista": "must be dia, semana or mes"}))
		return
	}
	anchor := calendar.KeyOf(h.now(), h.loc)
	if raw := q.Get("fecha"); raw != "" {
		if anchor, err = calendar.ParseDateKey(raw); err != nil {
			writeError(w, r, h.logger, apperr.Invalid(map[string]string{"fecha": "must be YYYY-MM-DD"}))
			return
		}
	}
	view, err := h.calendar.View(r.Context(), anchor, mode, q.Get("profesionalId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
