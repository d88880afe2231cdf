package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/events"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	last   events.ReservationEventV1
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	if evt, ok := payload.(events.ReservationEventV1); ok {
		p.last = evt
	}
	return nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *outcomeRecorder) ObserveOperation(operation, outcome string, seconds float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[operation+"/"+outcome]++
}

type fixture struct {
	engine    *Engine
	slotStore *slots.MemoryStore
	repo      *slots.Repository
	publisher *recordingPublisher
	metrics   *outcomeRecorder
	slotIDs   map[string][]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	slotStore := slots.NewMemoryStore()
	repo := slots.NewRepository(slotStore, slots.RepositoryConfig{}, nil, nil)
	dir := professionals.NewMemoryDirectory(
		professionals.Professional{ID: "pro-ana", FullName: "Ana Rojas", Services: professionals.StringList{"kine-sesion", "kine-evaluacion"}},
		professionals.Professional{ID: "pro-beto", FullName: "Beto Soto", Services: professionals.StringList{"kine-sesion"}},
		professionals.Professional{ID: "pro-carla", FullName: "Carla Díaz", Services: professionals.StringList{"fono-terapia"}},
	)
	patientRepo := patients.NewMemoryRepository()
	_, err := patientRepo.Create(ctx, patients.Patient{ID: "pat-1", NationalID: "123456785", FullName: "Ana Pérez", Phone: "+56912345678"})
	require.NoError(t, err)

	f := &fixture{slotStore: slotStore, repo: repo, publisher: &recordingPublisher{}, metrics: &outcomeRecorder{}, slotIDs: map[string][]string{}}
	for _, pro := range []string{"pro-ana", "pro-beto", "pro-carla"} {
		var generated []slots.Slot
		for i := 0; i < 3; i++ {
			start := time.Date(2026, 3, 2, 10+i, 0, 0, 0, time.UTC)
			generated = append(generated, slots.Slot{
				ID:              slots.SlotID(pro, start),
				ProfessionalID:  pro,
				BlockID:         "block-" + pro,
				StartsAt:        start,
				DurationMinutes: 45,
			})
			f.slotIDs[pro] = append(f.slotIDs[pro], slots.SlotID(pro, start))
		}
		_, err := slotStore.InsertBlock(ctx, slots.ScheduleBlock{ID: "block-" + pro, ProfessionalID: pro}, generated)
		require.NoError(t, err)
	}
	past := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err = slotStore.InsertBlock(ctx, slots.ScheduleBlock{ID: "block-past", ProfessionalID: "pro-ana"}, []slots.Slot{{
		ID: slots.SlotID("pro-ana", past), ProfessionalID: "pro-ana", BlockID: "block-past", StartsAt: past, DurationMinutes: 45,
	}})
	require.NoError(t, err)

	f.engine = NewEngine(Config{
		Store:         NewMemoryStore(slotStore),
		Slots:         repo,
		Catalog:       catalog.MustNew(catalog.DefaultServices()),
		Professionals: dir,
		Patients:      patientRepo,
		Publisher:     f.publisher,
		Metrics:       f.metrics,
		Now:           func() time.Time { return testNow },
	})
	return f
}

func (f *fixture) slot(t *testing.T, pro string, i int) slots.Slot {
	t.Helper()
	s, err := f.slotStore.Get(context.Background(), f.slotIDs[pro][i])
	require.NoError(t, err)
	return s
}

func (f *fixture) book(t *testing.T, pro string, i int) Reservation {
	t.Helper()
	r, err := f.engine.Create(context.Background(), CreateInput{
		PatientID: "pat-1", ProfessionalID: pro, SlotID: f.slotIDs[pro][i], ServiceID: "kine-sesion", Note: "dolor lumbar",
	})
	require.NoError(t, err)
	return r
}

func TestCreateReservesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.repo.Slots(ctx, "pro-ana")
	require.NoError(t, err)
	assert.False(t, before[0].Reserved)

	r := f.book(t, "pro-ana", 0)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, f.slot(t, "pro-ana", 0).StartsAt, r.StartsAt)
	assert.True(t, f.slot(t, "pro-ana", 0).Reserved)

	after, err := f.repo.Slots(ctx, "pro-ana")
	require.NoError(t, err)
	assert.True(t, after[0].Reserved, "cached list must be invalidated")

	assert.Equal(t, []string{events.TypeReservationCreated}, f.publisher.events)
	assert.Equal(t, r.ID, f.publisher.last.ReservationID)
	assert.Equal(t, 1, f.metrics.outcomes["create/success"])
}

func TestCreateConcurrentSameSlotSingleWinner(t *testing.T) {
	f := newFixture(t)
	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Create(context.Background(), CreateInput{
				PatientID: "pat-1", ProfessionalID: "pro-ana", SlotID: f.slotIDs["pro-ana"][1], ServiceID: "kine-sesion",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	active, err := f.engine.List(context.Background(), ListFilter{Status: StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, CreateInput{})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "horarioDisponibleId")

	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"unknown service", CreateInput{PatientID: "pat-1", ProfessionalID: "pro-ana", SlotID: f.slotIDs["pro-ana"][0], ServiceID: "nope"}, catalog.ErrServiceNotFound},
		{"unknown patient", CreateInput{PatientID: "ghost", ProfessionalID: "pro-ana", SlotID: f.slotIDs["pro-ana"][0], ServiceID: "kine-sesion"}, patients.ErrPatientNotFound},
		{"not qualified", CreateInput{PatientID: "pat-1", ProfessionalID: "pro-carla", SlotID: f.slotIDs["pro-carla"][0], ServiceID: "kine-sesion"}, professionals.ErrNotQualified},
		{"foreign slot", CreateInput{PatientID: "pat-1", ProfessionalID: "pro-ana", SlotID: f.slotIDs["pro-beto"][0], ServiceID: "kine-sesion"}, ErrSlotNotFound},
		{"unknown slot", CreateInput{PatientID: "pat-1", ProfessionalID: "pro-ana", SlotID: "missing", ServiceID: "kine-sesion"}, ErrSlotNotFound},
		{"past slot", CreateInput{PatientID: "pat-1", ProfessionalID: "pro-ana", SlotID: slots.SlotID("pro-ana", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)), ServiceID: "kine-sesion"}, ErrSlotInPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.publisher.events)
}

func TestCancelFreesSlotAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "pro-ana", 0)

	cancelled, err := f.engine.Cancel(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.False(t, f.slot(t, "pro-ana", 0).Reserved)

	again, err := f.engine.Cancel(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
	assert.Equal(t, []string{events.TypeReservationCreated, events.TypeReservationCancelled}, f.publisher.events)

	rebooked := f.book(t, "pro-ana", 0)
	assert.NotEqual(t, r.ID, rebooked.ID)

	_, err = f.engine.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestRescheduleMovesWithinProfessional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "pro-ana", 0)

	note := "control"
	moved, err := f.engine.Reschedule(ctx, r.ID, RescheduleInput{SlotID: f.slotIDs["pro-ana"][2], Note: &note})
	require.NoError(t, err)
	assert.Equal(t, f.slotIDs["pro-ana"][2], moved.SlotID)
	assert.Equal(t, "control", moved.Note)
	assert.False(t, f.slot(t, "pro-ana", 0).Reserved)
	assert.True(t, f.slot(t, "pro-ana", 2).Reserved)
	assert.Equal(t, f.slotIDs["pro-ana"][0], f.publisher.last.PreviousSlotID)
	assert.Equal(t, events.TypeReservationRescheduled, f.publisher.events[len(f.publisher.events)-1])
}

func TestRescheduleToReservedSlotKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.book(t, "pro-ana", 0)
	f.book(t, "pro-ana", 1)

	_, err := f.engine.Reschedule(ctx, mine.ID, RescheduleInput{SlotID: f.slotIDs["pro-ana"][1]})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.True(t, apperr.IsConflict(err))

	still, err := f.engine.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, f.slotIDs["pro-ana"][0], still.SlotID)
	assert.True(t, f.slot(t, "pro-ana", 0).Reserved)
}

func TestRescheduleRejectsOtherProfessionalAndCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "pro-ana", 0)

	_, err := f.engine.Reschedule(ctx, r.ID, RescheduleInput{SlotID: f.slotIDs["pro-beto"][0]})
	assert.ErrorIs(t, err, ErrDifferentProfessional)

	_, err = f.engine.Cancel(ctx, r.ID)
	require.NoError(t, err)
	_, err = f.engine.Reschedule(ctx, r.ID, RescheduleInput{SlotID: f.slotIDs["pro-ana"][1]})
	assert.ErrorIs(t, err, ErrReservationCancelled)
}

func TestRescheduleSameSlotIsNoop(t *testing.T) {
	f := newFixture(t)
	r := f.book(t, "pro-ana", 0)

	same, err := f.engine.Reschedule(context.Background(), r.ID, RescheduleInput{SlotID: r.SlotID})
	require.NoError(t, err)
	assert.Equal(t, r.SlotID, same.SlotID)
	assert.True(t, f.slot(t, "pro-ana", 0).Reserved)
	assert.Len(t, f.publisher.events, 1)
}

func TestReassignChecksQualification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "pro-ana", 0)

	_, err := f.engine.Reassign(ctx, r.ID, ReassignInput{ProfessionalID: "pro-carla", SlotID: f.slotIDs["pro-carla"][0]})
	assert.ErrorIs(t, err, professionals.ErrNotQualified)
	assert.True(t, f.slot(t, "pro-ana", 0).Reserved)

	_, err = f.engine.Reassign(ctx, r.ID, ReassignInput{ProfessionalID: "pro-beto", SlotID: f.slotIDs["pro-ana"][1]})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = f.engine.Reassign(ctx, r.ID, ReassignInput{ProfessionalID: "pro-beto", SlotID: r.SlotID})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	moved, err := f.engine.Reassign(ctx, r.ID, ReassignInput{ProfessionalID: "pro-beto", SlotID: f.slotIDs["pro-beto"][1]})
	require.NoError(t, err)
	assert.Equal(t, "pro-beto", moved.ProfessionalID)
	assert.False(t, f.slot(t, "pro-ana", 0).Reserved)
	assert.True(t, f.slot(t, "pro-beto", 1).Reserved)
	assert.Equal(t, "pro-ana", f.publisher.last.PreviousProfessID)
	assert.Equal(t, events.TypeReservationReassigned, f.publisher.events[len(f.publisher.events)-1])
}

func TestReassignWithServiceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "pro-ana", 0)

	_, err := f.engine.Reassign(ctx, r.ID, ReassignInput{ProfessionalID: "pro-carla", SlotID: f.slotIDs["pro-carla"][0], ServiceID: "fono-terapia"})
	require.NoError(t, err)

	got, err := f.engine.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "fono-terapia", got.ServiceID)
	assert.Equal(t, "pro-carla", got.ProfessionalID)
}

func TestConcurrentReschedulesIntoSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, "pro-ana", 0)
	second := f.book(t, "pro-ana", 1)
	target := f.slotIDs["pro-ana"][2]

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.engine.Reschedule(ctx, id, RescheduleInput{SlotID: target})
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	active, err := f.engine.List(ctx, ListFilter{Status: StatusActive, ProfessionalID: "pro-ana"})
	require.NoError(t, err)
	require.Len(t, active, 2)
	reserved := 0
	for i := range f.slotIDs["pro-ana"] {
		if f.slot(t, "pro-ana", i).Reserved {
			reserved++
		}
	}
	assert.Equal(t, 2, reserved)
}

func TestNewEnginePanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewEngine(Config{}) })
}
