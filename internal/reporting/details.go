// Package reporting builds denormalized read models over reservations for
// staff screens. Nothing here is authoritative: the booking store is.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/bookings"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/patients"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
)

// ReservationDetails is one row of the reservation list with names resolved.
type ReservationDetails struct {
	ID               string          `json:"id"`
	ProfessionalID   string          `json:"profesionalId"`
	PatientName      string          `json:"pacienteNombre"`
	ProfessionalName string          `json:"profesionalNombre"`
	StartsAt         time.Time       `json:"fecha"`
	Note             string          `json:"motivo"`
	ServiceID        string          `json:"servicioId"`
	Service          string          `json:"servicio"`
	Status           bookings.Status `json:"estado"`
}

// Reader lists reservation details ordered by start time.
type Reader interface {
	ReservationDetails(ctx context.Context, filter bookings.ListFilter) ([]ReservationDetails, error)
}

// SQLReader answers with a single join over the booking tables.
type SQLReader struct {
	db *sql.DB
}

func NewSQLReader(db *sql.DB) *SQLReader {
	if db == nil {
		panic("reporting: database required")
	}
	return &SQLReader{db: db}
}

const detailsQuery = `
	SELECT r.id::text, r.professional_id, pa.full_name, pr.full_name, r.starts_at,
		COALESCE(r.note, ''), r.service_id, COALESCE(s.label, r.service_id), r.status
	FROM reservations r
	JOIN patients pa ON pa.id = r.patient_id
	JOIN professionals pr ON pr.id = r.professional_id
	LEFT JOIN services s ON s.id = r.service_id
	WHERE ($1 = '' OR r.professional_id = $1)
	  AND ($2 = '' OR r.status = $2)
	  AND ($3::timestamptz IS NULL OR r.starts_at >= $3)
	  AND ($4::timestamptz IS NULL OR r.starts_at < $4)
	ORDER BY r.starts_at, r.id`

func (r *SQLReader) ReservationDetails(ctx context.Context, filter bookings.ListFilter) ([]ReservationDetails, error) {
	rows, err := r.db.QueryContext(ctx, detailsQuery,
		filter.ProfessionalID, string(filter.Status), nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, apperr.Transient("reporting: query details", err)
	}
	defer rows.Close()

	var out []ReservationDetails
	for rows.Next() {
		var d ReservationDetails
		var status string
		if err := rows.Scan(&d.ID, &d.ProfessionalID, &d.PatientName, &d.ProfessionalName, &d.StartsAt,
			&d.Note, &d.ServiceID, &d.Service, &status); err != nil {
			return nil, apperr.Transient("reporting: scan details", err)
		}
		d.Status = bookings.Status(status)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("reporting: iterate details", err)
	}
	return out, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// ReservationLister is the subset of the booking engine the memory reader
// needs.
type ReservationLister interface {
	List(ctx context.Context, filter bookings.ListFilter) ([]bookings.Reservation, error)
}

// JoinReader resolves names in process. Used when there is no database.
type JoinReader struct {
	reservations ReservationLister
	patients     patients.Repository
	dir          professionals.Directory
	catalog      *catalog.Index
}

func NewJoinReader(reservations ReservationLister, patientRepo patients.Repository, dir professionals.Directory, idx *catalog.Index) *JoinReader {
	if reservations == nil || patientRepo == nil || dir == nil || idx == nil {
		panic("reporting: join reader dependencies required")
	}
	return &JoinReader{reservations: reservations, patients: patientRepo, dir: dir, catalog: idx}
}

func (j *JoinReader) ReservationDetails(ctx context.Context, filter bookings.ListFilter) ([]ReservationDetails, error) {
	list, err := j.reservations.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reporting: list reservations: %w", err)
	}
	names := map[string]string{}
	out := make([]ReservationDetails, 0, len(list))
	for _, r := range list {
		d := ReservationDetails{
			ID:             r.ID,
			ProfessionalID: r.ProfessionalID,
			StartsAt:       r.StartsAt,
			Note:           r.Note,
			ServiceID:      r.ServiceID,
			Service:        r.ServiceID,
			Status:         r.Status,
		}
		if svc, err := j.catalog.Get(r.ServiceID); err == nil {
			d.Service = svc.Label
		}
		if d.PatientName, err = j.patientName(ctx, names, r.PatientID); err != nil {
			return nil, err
		}
		if d.ProfessionalName, err = j.professionalName(ctx, names, r.ProfessionalID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (j *JoinReader) patientName(ctx context.Context, cache map[string]string, id string) (string, error) {
	key := "patient:" + id
	if name, ok := cache[key]; ok {
		return name, nil
	}
	p, err := j.patients.Get(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	cache[key] = p.FullName
	return p.FullName, nil
}

func (j *JoinReader) professionalName(ctx context.Context, cache map[string]string, id string) (string, error) {
	key := "professional:" + id
	if name, ok := cache[key]; ok {
		return name, nil
	}
	p, err := j.dir.Get(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	cache[key] = p.FullName
	return p.FullName, nil
}
