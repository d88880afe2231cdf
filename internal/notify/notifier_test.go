package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/events"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type statusCounter map[string]int

func (s statusCounter) ObserveNotification(eventType, status string) { s[eventType+"/"+status]++ }

func newNotifierFixture(t *testing.T, email string) (*ReservationNotifier, *captureSender, statusCounter, patients.Patient) {
	t.Helper()
	repo := patients.NewMemoryRepository()
	p, err := repo.Create(context.Background(), patients.Patient{NationalID: "123456785", FullName: "Ana Pérez", Phone: "+56912345678", Email: email})
	require.NoError(t, err)
	dir := professionals.NewMemoryDirectory(professionals.Professional{ID: "pro-ana", FullName: "Ana Rojas"})
	santiago, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	sender := &captureSender{}
	counter := statusCounter{}
	n := NewReservationNotifier(sender, repo, dir, catalog.MustNew(catalog.DefaultServices()), santiago, counter, nil)
	return n, sender, counter, p
}

func entryFor(t *testing.T, eventType string, evt events.ReservationEventV1) events.OutboxEntry {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return events.OutboxEntry{ID: uuid.New(), Type: eventType, Payload: payload}
}

func TestNotifierSendsConfirmation(t *testing.T) {
	n, sender, counter, p := newNotifierFixture(t, "ana@correo.cl")
	evt := events.ReservationEventV1{
		ReservationID: "res-1", PatientID: p.ID, ProfessionalID: "pro-ana", ServiceID: "kine-sesion",
		StartsAt: time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC), Note: "dolor lumbar",
	}

	require.NoError(t, n.Handle(context.Background(), entryFor(t, events.TypeReservationCreated, evt)))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ana@correo.cl", msg.To)
	assert.Equal(t, "Tu hora está confirmada", msg.Subject)
	assert.Contains(t, msg.Body, "Profesional: Ana Rojas")
	assert.Contains(t, msg.Body, "lunes 2 de marzo de 2026, 10:00")
	assert.Contains(t, msg.Body, "Motivo: dolor lumbar")
	assert.Equal(t, 1, counter[events.TypeReservationCreated+"/sent"])
}

func TestNotifierSkipsPatientWithoutEmail(t *testing.T) {
	n, sender, counter, p := newNotifierFixture(t, "")
	err := n.Handle(context.Background(), entryFor(t, events.TypeReservationCancelled, events.ReservationEventV1{PatientID: p.ID}))
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Equal(t, 1, counter[events.TypeReservationCancelled+"/skipped"])
}

func TestNotifierReturnsSendErrorsForRetry(t *testing.T) {
	n, sender, counter, p := newNotifierFixture(t, "ana@correo.cl")
	sender.err = errors.New("smtp down")
	err := n.Handle(context.Background(), entryFor(t, events.TypeReservationRescheduled, events.ReservationEventV1{PatientID: p.ID, ProfessionalID: "pro-ana"}))
	assert.Error(t, err)
	assert.Equal(t, 1, counter[events.TypeReservationRescheduled+"/failed"])
}

func TestNotifierIgnoresUnknownPatientAndPayload(t *testing.T) {
	n, sender, _, _ := newNotifierFixture(t, "ana@correo.cl")
	ctx := context.Background()
	require.NoError(t, n.Handle(ctx, entryFor(t, events.TypeReservationCreated, events.ReservationEventV1{PatientID: "ghost"})))
	require.NoError(t, n.Handle(ctx, events.OutboxEntry{ID: uuid.New(), Type: events.TypeReservationCreated, Payload: []byte("{")}))
	assert.Empty(t, sender.sent)
}

func TestFormatWhen(t *testing.T) {
	assert.Equal(t, "sábado 7 de noviembre de 2026, 09:05", formatWhen(time.Date(2026, 11, 7, 9, 5, 0, 0, time.UTC)))
}
