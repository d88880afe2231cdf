package reporting

import (
	"context"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/bookings"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/calendar"
)

// CalendarDay is one grid cell.
type CalendarDay struct {
	Date         calendar.DateKey     `json:"fecha"`
	InMonth      bool                 `json:"delMes"`
	Reservations []ReservationDetails `json:"reservas"`
}

// CalendarView is the staff calendar around an anchor date.
type CalendarView struct {
	Mode   calendar.ViewMode `json:"vista"`
	Anchor calendar.DateKey  `json:"fecha"`
	Days   []CalendarDay     `json:"dias"`
}

// Calendar places active reservations on the day, week or month grid.
type Calendar struct {
	reader Reader
	loc    *time.Location
}

func NewCalendar(reader Reader, loc *time.Location) *Calendar {
	if reader == nil {
		panic("reporting: reader required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{reader: reader, loc: loc}
}

// View builds the grid for anchor. professionalID narrows it to one agenda
// when set.
func (c *Calendar) View(ctx context.Context, anchor calendar.DateKey, mode calendar.ViewMode, professionalID string) (CalendarView, error) {
	grid := calendar.Grid(anchor, mode)
	details, err := c.reader.ReservationDetails(ctx, bookings.ListFilter{
		ProfessionalID: professionalID,
		Status:         bookings.StatusActive,
		From:           grid[0].In(c.loc),
		To:             grid[len(grid)-1].AddDays(1).In(c.loc),
	})
	if err != nil {
		return CalendarView{}, err
	}
	buckets := calendar.Bucket(grid, details, func(d ReservationDetails) time.Time { return d.StartsAt }, c.loc)

	view := CalendarView{Mode: mode, Anchor: anchor, Days: make([]CalendarDay, 0, len(grid))}
	for _, d := range grid {
		day := CalendarDay{Date: d, InMonth: true, Reservations: buckets[d]}
		if mode == calendar.ViewMonth {
			day.InMonth = d.Month == anchor.Month
		}
		if day.Reservations == nil {
			day.Reservations = []ReservationDetails{}
		}
		view.Days = append(view.Days, day)
	}
	return view, nil
}
