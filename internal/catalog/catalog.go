// Package catalog holds the read-only index of bookable services.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

// ErrServiceNotFound is returned for unknown service ids.
var ErrServiceNotFound = apperr.NotFound("service_not_found", "service not found")

// Service is an immutable catalog entry. Price is in whole pesos.
type Service struct {
	ID        string `json:"id"`
	Specialty string `json:"especialidad"`
	Label     string `json:"nombre"`
	Code      string `json:"codigo"`
	Price     int64  `json:"precio"`
}

// Index is safe for concurrent reads; it is never mutated after New.
type Index struct {
	byID   map[string]Service
	byCode map[string]string
	order  []string
}

// New builds an index, rejecting duplicate ids or codes.
func New(services []Service) (*Index, error) {
	idx := &Index{
		byID:   make(map[string]Service, len(services)),
		byCode: make(map[string]string, len(services)),
	}
	for _, s := range services {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("catalog: service %q has no id", s.Label)
		}
		if _, dup := idx.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate service id %q", s.ID)
		}
		if s.Code != "" {
			code := strings.ToUpper(s.Code)
			if _, dup := idx.byCode[code]; dup {
				return nil, fmt.Errorf("catalog: duplicate service code %q", s.Code)
			}
			idx.byCode[code] = s.ID
		}
		idx.byID[s.ID] = s
		idx.order = append(idx.order, s.ID)
	}
	sort.SliceStable(idx.order, func(i, j int) bool {
		a, b := idx.byID[idx.order[i]], idx.byID[idx.order[j]]
		if a.Specialty != b.Specialty {
			return a.Specialty < b.Specialty
		}
		return a.Label < b.Label
	})
	return idx, nil
}

// MustNew is New for static seed data.
func MustNew(services []Service) *Index {
	idx, err := New(services)
	if err != nil {
		panic(err)
	}
	return idx
}

// Get returns the service with the given id.
func (i *Index) Get(id string) (Service, error) {
	s, ok := i.byID[id]
	if !ok {
		return Service{}, fmt.Errorf("catalog: %s: %w", id, ErrServiceNotFound)
	}
	return s, nil
}

// ByCode looks a service up by its billing code, case-insensitively.
func (i *Index) ByCode(code string) (Service, error) {
	id, ok := i.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Service{}, fmt.Errorf("catalog: code %s: %w", code, ErrServiceNotFound)
	}
	return i.byID[id], nil
}

// List returns every service ordered by specialty then label.
func (i *Index) List() []Service {
	out := make([]Service, 0, len(i.order))
	for _, id := range i.order {
		out = append(out, i.byID[id])
	}
	return out
}

// BySpecialty returns the services of one specialty.
func (i *Index) BySpecialty(specialty string) []Service {
	var out []Service
	for _, id := range i.order {
		if s := i.byID[id]; strings.EqualFold(s.Specialty, specialty) {
			out = append(out, s)
		}
	}
	return out
}

// Specialties returns the distinct specialty names in order.
func (i *Index) Specialties() []string {
	var out []string
	seen := map[string]bool{}
	for _, id := range i.order {
		sp := i.byID[id].Specialty
		if !seen[sp] {
			seen[sp] = true
			out = append(out, sp)
		}
	}
	return out
}

// Has reports whether id exists.
func (i *Index) Has(id string) bool {
	_, ok := i.byID[id]
	return ok
}
