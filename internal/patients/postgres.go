package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores patients in the patients table.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository creates a repository over a pgx pool (or pgxmock).
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, p Patient) (Patient, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, national_id, full_name, phone, email)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at`,
		p.ID, p.NationalID, p.FullName, p.Phone, p.Email,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Patient{}, fmt.Errorf("patients: %s: %w", p.NationalID, ErrDuplicatePatient)
		}
		return Patient{}, apperr.Transient("patients: insert", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Patient, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresRepository) GetByNationalID(ctx context.Context, nationalID string) (Patient, error) {
	return r.getBy(ctx, "national_id", nationalID)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (Patient, error) {
	var p Patient
	var email *string
	err := r.db.QueryRow(ctx, `
		SELECT id, national_id, full_name, phone, email, created_at
		FROM patients
		WHERE `+column+` = $1`, value,
	).Scan(&p.ID, &p.NationalID, &p.FullName, &p.Phone, &email, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Patient{}, fmt.Errorf("patients: %s: %w", value, ErrPatientNotFound)
	}
	if err != nil {
		return Patient{}, apperr.Transient("patients: get", err)
	}
	if email != nil {
		p.Email = *email
	}
	return p, nil
}
