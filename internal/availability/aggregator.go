// Package availability builds the cross-professional, per-date view of free
// slots for one service.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/calendar"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/catalog"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/professionals"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/slots"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// SlotSource returns a professional's slots; slots.Repository satisfies it.
type SlotSource interface {
	Slots(ctx context.Context, professionalID string) ([]slots.Slot, error)
}

// Entry is one professional's free slots on a date.
type Entry struct {
	Professional professionals.Professional `json:"profesional"`
	Slots        []slots.Slot               `json:"horarios"`
}

// Day groups the entries of one calendar date.
type Day struct {
	Date    calendar.DateKey `json:"fecha"`
	Entries []Entry          `json:"profesionales"`
}

// Availability is the aggregated view for a service. Dates are ascending.
type Availability struct {
	Service catalog.Service `json:"servicio"`
	Days    []Day           `json:"dias"`
}

// Aggregator combines the catalog, the directory and the slot repository.
type Aggregator struct {
	catalog *catalog.Index
	dir     professionals.Directory
	source  SlotSource
	loc     *time.Location
	logger  *logging.Logger
}

// NewAggregator wires an aggregator. loc decides which calendar date a slot
// belongs to.
func NewAggregator(idx *catalog.Index, dir professionals.Directory, source SlotSource, loc *time.Location, logger *logging.Logger) *Aggregator {
	if idx == nil || dir == nil || source == nil {
		panic("availability: catalog, directory and slot source required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{catalog: idx, dir: dir, source: source, loc: loc, logger: logger}
}

// ForService computes availability from scratch on every call.
func (a *Aggregator) ForService(ctx context.Context, serviceID string, now time.Time) (Availability, error) {
	service, err := a.catalog.Get(serviceID)
	if err != nil {
		return Availability{}, err
	}
	qualified, err := a.dir.Qualified(ctx, serviceID)
	if err != nil {
		return Availability{}, fmt.Errorf("availability: qualified professionals: %w", err)
	}
	if len(qualified) == 0 {
		return Availability{}, fmt.Errorf("availability: %s: %w", serviceID, ErrNoQualifiedProfessional)
	}

	free, err := a.fetchFree(ctx, qualified, now)
	if err != nil {
		return Availability{}, err
	}

	byDate := map[calendar.DateKey]map[int][]slots.Slot{}
	for i, list := range free {
		for _, s := range list {
			key := calendar.KeyOf(s.StartsAt, a.loc)
			if byDate[key] == nil {
				byDate[key] = map[int][]slots.Slot{}
			}
			byDate[key][i] = append(byDate[key][i], s)
		}
	}
	if len(byDate) == 0 {
		return Availability{}, fmt.Errorf("availability: %s: %w", serviceID, ErrNoAvailability)
	}

	keys := make([]calendar.DateKey, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := Availability{Service: service, Days: make([]Day, 0, len(keys))}
	for _, k := range keys {
		day := Day{Date: k}
		// qualified is already ordered by name, so walk it in order.
		for i, p := range qualified {
			list, ok := byDate[k][i]
			if !ok {
				continue
			}
			sort.Slice(list, func(x, y int) bool { return list[x].StartsAt.Before(list[y].StartsAt) })
			day.Entries = append(day.Entries, Entry{Professional: p, Slots: list})
		}
		out.Days = append(out.Days, day)
	}
	return out, nil
}

// fetchFree loads every professional's slots in parallel and keeps the
// unreserved ones starting after now. The result is indexed like qualified.
func (a *Aggregator) fetchFree(ctx context.Context, qualified []professionals.Professional, now time.Time) ([][]slots.Slot, error) {
	out := make([][]slots.Slot, len(qualified))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range qualified {
		g.Go(func() error {
			list, err := a.source.Slots(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("availability: slots for %s: %w", p.ID, err)
			}
			kept := make([]slots.Slot, 0, len(list))
			for _, s := range list {
				if s.Free(now) {
					kept = append(kept, s)
				}
			}
			out[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("availability fetch failed", "error", err)
		return nil, err
	}
	return out, nil
}
