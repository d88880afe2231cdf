package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps slots in the slots table, unique on
// (professional_id, starts_at).
type PostgresStore struct {
	db db
}

// NewPostgresStore creates a store over a pgx pool (or pgxmock).
func NewPostgresStore(pool db) *PostgresStore {
	if pool == nil {
		panic("slots: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

const slotColumns = `id, professional_id, COALESCE(block_id, ''), starts_at, duration_minutes, reserved`

func scanSlot(row pgx.Row) (Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.ProfessionalID, &s.BlockID, &s.StartsAt, &s.DurationMinutes, &s.Reserved)
	return s, err
}

func (p *PostgresStore) ListByProfessional(ctx context.Context, professionalID string) ([]Slot, error) {
	rows, err := p.db.Query(ctx, `SELECT `+slotColumns+`
		FROM slots
		WHERE professional_id = $1
		ORDER BY starts_at`, professionalID)
	if err != nil {
		return nil, apperr.Transient("slots: list", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Slot, error) {
		return scanSlot(row)
	})
	if err != nil {
		return nil, apperr.Transient("slots: scan", err)
	}
	return out, nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Slot, error) {
	s, err := scanSlot(p.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Slot{}, fmt.Errorf("slots: %s: %w", id, ErrSlotNotFound)
	}
	if err != nil {
		return Slot{}, apperr.Transient("slots: get", err)
	}
	return s, nil
}

func (p *PostgresStore) InsertBlock(ctx context.Context, block ScheduleBlock, slots []Slot) ([]Slot, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Transient("slots: begin tx", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO schedule_blocks (id, professional_id, block_date, start_minute, end_minute, slot_minutes, break_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		block.ID, block.ProfessionalID, block.Date.In(time.UTC), int(block.StartTime), int(block.EndTime),
		block.SlotDurationMinutes, block.BreakMinutes)
	if err != nil {
		return nil, apperr.Transient("slots: insert block", err)
	}

	var inserted []Slot
	for _, s := range slots {
		tag, err := tx.Exec(ctx, `
			INSERT INTO slots (id, professional_id, block_id, starts_at, duration_minutes, reserved)
			VALUES ($1, $2, $3, $4, $5, false)
			ON CONFLICT (professional_id, starts_at) DO NOTHING`,
			s.ID, s.ProfessionalID, block.ID, s.StartsAt, s.DurationMinutes)
		if err != nil {
			return nil, apperr.Transient("slots: insert slot", err)
		}
		if tag.RowsAffected() == 1 {
			inserted = append(inserted, s)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Transient("slots: commit", err)
	}
	return inserted, nil
}

// Delete removes a slot that no reservation has ever referenced.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `
		DELETE FROM slots
		WHERE id = $1
		  AND reserved = false
		  AND NOT EXISTS (SELECT 1 FROM reservations WHERE slot_id = $1)`, id)
	if err != nil {
		return apperr.Transient("slots: delete", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := p.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("slots: %s: %w", id, ErrSlotReserved)
}
