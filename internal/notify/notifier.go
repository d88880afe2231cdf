package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/events"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// PatientLookup resolves the recipient.
type PatientLookup interface {
	Get(ctx context.Context, id string) (patients.Patient, error)
}

// ProfessionalLookup resolves the professional's display name.
type ProfessionalLookup interface {
	Get(ctx context.Context, id string) (professionals.Professional, error)
}

// NotificationObserver counts sent, skipped and failed emails.
type NotificationObserver interface {
	ObserveNotification(eventType, status string)
}

// ReservationNotifier turns reservation events into patient emails. It is an
// events.DeliveryHandler: a returned error leaves the event pending for the
// next delivery attempt.
type ReservationNotifier struct {
	email         EmailSender
	patients      PatientLookup
	professionals ProfessionalLookup
	catalog       *catalog.Index
	loc           *time.Location
	metrics       NotificationObserver
	logger        *logging.Logger
}

func NewReservationNotifier(email EmailSender, patientLookup PatientLookup, proLookup ProfessionalLookup, idx *catalog.Index, loc *time.Location, metrics NotificationObserver, logger *logging.Logger) *ReservationNotifier {
	if email == nil {
		panic("notify: email sender required")
	}
	if patientLookup == nil || proLookup == nil {
		panic("notify: patient and professional lookups required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReservationNotifier{
		email:         email,
		patients:      patientLookup,
		professionals: proLookup,
		catalog:       idx,
		loc:           loc,
		metrics:       metrics,
		logger:        logger,
	}
}

func (n *ReservationNotifier) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var evt events.ReservationEventV1
	if err := entry.Decode(&evt); err != nil {
		n.observe(entry.Type, "invalid")
		n.logger.Error("notify: undecodable reservation event", "error", err, "event_id", entry.ID)
		return nil
	}

	patient, err := n.patients.Get(ctx, evt.PatientID)
	if err != nil {
		if apperr.IsNotFound(err) {
			n.observe(entry.Type, "skipped")
			return nil
		}
		return fmt.Errorf("notify: lookup patient: %w", err)
	}
	if strings.TrimSpace(patient.Email) == "" {
		n.observe(entry.Type, "skipped")
		n.logger.Debug("notify: patient has no email", "reservation_id", evt.ReservationID)
		return nil
	}

	proName := evt.ProfessionalID
	if pro, err := n.professionals.Get(ctx, evt.ProfessionalID); err == nil {
		proName = pro.FullName
	}

	msg, ok := n.compose(entry.Type, evt, patient, proName)
	if !ok {
		n.observe(entry.Type, "skipped")
		return nil
	}
	if err := n.email.Send(ctx, msg); err != nil {
		n.observe(entry.Type, "failed")
		n.logger.Error("notify: reservation email failed", "error", err, "reservation_id", evt.ReservationID, "event_type", entry.Type)
		return err
	}
	n.observe(entry.Type, "sent")
	return nil
}

func (n *ReservationNotifier) compose(eventType string, evt events.ReservationEventV1, patient patients.Patient, proName string) (EmailMessage, bool) {
	service := evt.ServiceID
	if n.catalog != nil {
		if svc, err := n.catalog.Get(evt.ServiceID); err == nil {
			service = svc.Label
		}
	}
	when := formatWhen(evt.StartsAt.In(n.loc))

	var subject, lead string
	switch eventType {
	case events.TypeReservationCreated:
		subject = "Tu hora está confirmada"
		lead = "Tu reserva quedó confirmada."
	case events.TypeReservationCancelled:
		subject = "Tu hora fue cancelada"
		lead = "Tu reserva fue cancelada y el horario quedó liberado."
	case events.TypeReservationRescheduled:
		subject = "Tu hora fue reprogramada"
		lead = fmt.Sprintf("Tu reserva del %s fue movida a un nuevo horario.", formatWhen(evt.PreviousStartsAt.In(n.loc)))
	case events.TypeReservationReassigned:
		subject = "Tu hora cambió de profesional"
		lead = "Tu reserva fue asignada a otro profesional."
	default:
		return EmailMessage{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n%s\n\n", patient.FullName, lead)
	fmt.Fprintf(&b, "Servicio: %s\nProfesional: %s\nFecha: %s\n", service, proName, when)
	if evt.Note != "" {
		fmt.Fprintf(&b, "Motivo: %s\n", evt.Note)
	}
	b.WriteString("\nSi necesitas cambiar tu hora, contáctanos.\n")

	return EmailMessage{
		To:      patient.Email,
		ToName:  patient.FullName,
		Subject: subject,
		Body:    b.String(),
	}, true
}

var weekdaysES = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var monthsES = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// formatWhen renders "lunes 2 de marzo de 2026, 10:00".
func formatWhen(t time.Time) string {
	return fmt.Sprintf("%s %d de %s de %d, %s",
		weekdaysES[t.Weekday()], t.Day(), monthsES[t.Month()-1], t.Year(), t.Format("15:04"))
}

func (n *ReservationNotifier) observe(eventType, status string) {
	if n.metrics != nil {
		n.metrics.ObserveNotification(eventType, status)
	}
}
