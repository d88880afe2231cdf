package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadFromPostgres reads the services table into a new Index.
func LoadFromPostgres(ctx context.Context, db querier) (*Index, error) {
	rows, err := db.Query(ctx, `
		SELECT id, specialty, label, code, price
		FROM services
		ORDER BY specialty, label`)
	if err != nil {
		return nil, apperr.Transient("catalog: load", err)
	}
	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Service, error) {
		var s Service
		err := row.Scan(&s.ID, &s.Specialty, &s.Label, &s.Code, &s.Price)
		return s, err
	})
	if err != nil {
		return nil, apperr.Transient("catalog: scan", err)
	}
	return New(services)
}
