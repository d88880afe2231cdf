package professionals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

// PostgresDirectory stores professionals with text[] specialty and service
// columns.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a directory over db.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	if db == nil {
		panic("professionals: sql db required")
	}
	return &PostgresDirectory{db: db}
}

const selectProfessional = `SELECT id, full_name, email, specialties, services FROM professionals`

func scanProfessional(row interface{ Scan(...any) error }) (Professional, error) {
	var (
		p     Professional
		email sql.NullString
		specs []string
		svcs  []string
	)
	if err := row.Scan(&p.ID, &p.FullName, &email, pq.Array(&specs), pq.Array(&svcs)); err != nil {
		return Professional{}, err
	}
	p.Email = email.String
	p.Specialties = normalize(specs)
	p.Services = normalize(svcs)
	return p, nil
}

func (d *PostgresDirectory) query(ctx context.Context, q string, args ...any) ([]Professional, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Transient("professionals: query", err)
	}
	defer rows.Close()

	out := []Professional{}
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, apperr.Transient("professionals: scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("professionals: rows", err)
	}
	return out, nil
}

func (d *PostgresDirectory) List(ctx context.Context) ([]Professional, error) {
	return d.query(ctx, selectProfessional+` ORDER BY full_name, id`)
}

func (d *PostgresDirectory) Qualified(ctx context.Context, serviceID string) ([]Professional, error) {
	return d.query(ctx, selectProfessional+` WHERE $1 = ANY(services) ORDER BY full_name, id`, serviceID)
}

func (d *PostgresDirectory) Get(ctx context.Context, id string) (Professional, error) {
	p, err := scanProfessional(d.db.QueryRowContext(ctx, selectProfessional+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Professional{}, fmt.Errorf("professionals: %s: %w", id, ErrProfessionalNotFound)
	}
	if err != nil {
		return Professional{}, apperr.Transient("professionals: get", err)
	}
	return p, nil
}

func (d *PostgresDirectory) Create(ctx context.Context, p Professional) (Professional, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Specialties = normalize(p.Specialties)
	p.Services = normalize(p.Services)
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO professionals (id, full_name, email, specialties, services)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)`,
		p.ID, p.FullName, p.Email, pq.Array([]string(p.Specialties)), pq.Array([]string(p.Services)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Professional{}, fmt.Errorf("professionals: %s: %w", p.ID, ErrDuplicateProfessional)
		}
		return Professional{}, apperr.Transient("professionals: insert", err)
	}
	return p, nil
}
