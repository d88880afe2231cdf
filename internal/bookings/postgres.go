package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps reservations in the reservations table. Each mutation
// runs in one transaction together with the slot flag update; a partial
// unique index on reservations(slot_id) WHERE status = 'active' backs the
// one-reservation-per-slot rule.
type PostgresStore struct {
	db db
}

func NewPostgresStore(pool db) *PostgresStore {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

const reservationColumns = `id::text, patient_id::text, professional_id, slot_id::text, service_id,
	COALESCE(note, ''), status, starts_at, created_at, updated_at, cancelled_at`

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	var status string
	err := row.Scan(&r.ID, &r.PatientID, &r.ProfessionalID, &r.SlotID, &r.ServiceID,
		&r.Note, &status, &r.StartsAt, &r.CreatedAt, &r.UpdatedAt, &r.CancelledAt)
	r.Status = Status(status)
	return r, err
}

const reserveSlotSQL = `UPDATE slots SET reserved = true
	WHERE id = $1 AND professional_id = $2 AND reserved = false
	RETURNING starts_at`

func (p *PostgresStore) Create(ctx context.Context, r Reservation) (Reservation, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return Reservation{}, apperr.Transient("bookings: begin create", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	startsAt, err := reserveSlot(ctx, tx, r.SlotID, r.ProfessionalID)
	if err != nil {
		return Reservation{}, err
	}
	r.StartsAt = startsAt
	r.Status = StatusActive

	_, err = tx.Exec(ctx, `INSERT INTO reservations
		(id, patient_id, professional_id, slot_id, service_id, note, status, starts_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.PatientID, r.ProfessionalID, r.SlotID, r.ServiceID, r.Note, string(r.Status), r.StartsAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return Reservation{}, classifyWriteError("bookings: insert reservation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, apperr.Transient("bookings: commit create", err)
	}
	return r, nil
}

// parseID rejects ids the uuid column could never hold.
func parseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("bookings: reservation %q: %w", id, ErrReservationNotFound)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Reservation, error) {
	if err := parseID(id); err != nil {
		return Reservation{}, err
	}
	r, err := scanReservation(p.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrReservationNotFound
	}
	if err != nil {
		return Reservation{}, apperr.Transient("bookings: get reservation", err)
	}
	return r, nil
}

func (p *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Reservation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProfessionalID != "" {
		add("professional_id = $%d", filter.ProfessionalID)
	}
	if filter.PatientID != "" {
		add("patient_id = $%d", filter.PatientID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("starts_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("starts_at < $%d", filter.To)
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY starts_at, id`

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("bookings: list reservations", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Reservation, error) {
		return scanReservation(row)
	})
	if err != nil {
		return nil, apperr.Transient("bookings: scan reservations", err)
	}
	return out, nil
}

func (p *PostgresStore) Cancel(ctx context.Context, id string, at time.Time) (Reservation, bool, error) {
	if err := parseID(id); err != nil {
		return Reservation{}, false, err
	}
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return Reservation{}, false, apperr.Transient("bookings: begin cancel", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	r, err := lockReservation(ctx, tx, id)
	if err != nil {
		return Reservation{}, false, err
	}
	if !r.Active() {
		return r, false, nil
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations
		SET status = 'cancelled', updated_at = $2, cancelled_at = $2
		WHERE id = $1`, id, at); err != nil {
		return Reservation{}, false, apperr.Transient("bookings: cancel reservation", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE slots SET reserved = false WHERE id = $1`, r.SlotID); err != nil {
		return Reservation{}, false, apperr.Transient("bookings: release slot", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, false, apperr.Transient("bookings: commit cancel", err)
	}
	r.Status = StatusCancelled
	r.UpdatedAt = at
	r.CancelledAt = &at
	return r, true, nil
}

func (p *PostgresStore) Move(ctx context.Context, id string, m Move) (Reservation, Reservation, error) {
	if err := parseID(id); err != nil {
		return Reservation{}, Reservation{}, err
	}
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return Reservation{}, Reservation{}, apperr.Transient("bookings: begin move", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prev, err := lockReservation(ctx, tx, id)
	if err != nil {
		return Reservation{}, Reservation{}, err
	}
	if !prev.Active() {
		return Reservation{}, Reservation{}, ErrReservationCancelled
	}
	if m.ExpectedProfessionalID != "" && prev.ProfessionalID != m.ExpectedProfessionalID {
		return Reservation{}, Reservation{}, ErrConcurrentChange
	}

	next := prev
	if m.SlotID != prev.SlotID {
		startsAt, err := reserveSlot(ctx, tx, m.SlotID, m.ProfessionalID)
		if err != nil {
			return Reservation{}, Reservation{}, err
		}
		if _, err := tx.Exec(ctx, `UPDATE slots SET reserved = false WHERE id = $1`, prev.SlotID); err != nil {
			return Reservation{}, Reservation{}, apperr.Transient("bookings: release slot", err)
		}
		next.SlotID = m.SlotID
		next.ProfessionalID = m.ProfessionalID
		next.StartsAt = startsAt
	}
	if m.ServiceID != "" {
		next.ServiceID = m.ServiceID
	}
	if m.Note != nil {
		next.Note = *m.Note
	}
	next.UpdatedAt = m.At

	if _, err := tx.Exec(ctx, `UPDATE reservations
		SET professional_id = $2, slot_id = $3, service_id = $4, note = $5, starts_at = $6, updated_at = $7
		WHERE id = $1`,
		id, next.ProfessionalID, next.SlotID, next.ServiceID, next.Note, next.StartsAt, next.UpdatedAt); err != nil {
		return Reservation{}, Reservation{}, classifyWriteError("bookings: update reservation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, Reservation{}, apperr.Transient("bookings: commit move", err)
	}
	return next, prev, nil
}

func lockReservation(ctx context.Context, tx pgx.Tx, id string) (Reservation, error) {
	r, err := scanReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+`
		FROM reservations WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrReservationNotFound
	}
	if err != nil {
		return Reservation{}, apperr.Transient("bookings: lock reservation", err)
	}
	return r, nil
}

// reserveSlot flips a free slot to reserved and returns its start. When no
// row matches it looks the slot up again to tell a missing slot from a taken
// one.
func reserveSlot(ctx context.Context, tx pgx.Tx, slotID, professionalID string) (time.Time, error) {
	var startsAt time.Time
	err := tx.QueryRow(ctx, reserveSlotSQL, slotID, professionalID).Scan(&startsAt)
	if err == nil {
		return startsAt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, apperr.Transient("bookings: reserve slot", err)
	}

	var owner string
	var reserved bool
	err = tx.QueryRow(ctx, `SELECT professional_id, reserved FROM slots WHERE id = $1`, slotID).Scan(&owner, &reserved)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return time.Time{}, fmt.Errorf("bookings: slot %s: %w", slotID, ErrSlotNotFound)
	case err != nil:
		return time.Time{}, apperr.Transient("bookings: inspect slot", err)
	case owner != professionalID:
		return time.Time{}, fmt.Errorf("bookings: slot %s: %w", slotID, ErrSlotNotFound)
	case reserved:
		return time.Time{}, fmt.Errorf("bookings: slot %s: %w", slotID, ErrSlotUnavailable)
	default:
		return time.Time{}, ErrConcurrentChange
	}
}

func classifyWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrSlotUnavailable)
		case "23503":
			return apperr.Validation("unknown_reference", "reservation references an unknown patient, professional or service")
		}
	}
	return apperr.Transient(op, err)
}
