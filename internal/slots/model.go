// Package slots owns the lifecycle of bookable time slots: generation from
// schedule blocks, storage and the shared cached per-professional view.
package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/calendar"
)

// Slot is one bookable unit of a professional's time.
type Slot struct {
	ID              string    `json:"id"`
	ProfessionalID  string    `json:"profesionalId"`
	BlockID         string    `json:"bloqueId,omitempty"`
	StartsAt        time.Time `json:"fecha"`
	DurationMinutes int       `json:"duracion"`
	Reserved        bool      `json:"reservado"`
}

// EndsAt returns the slot end.
func (s Slot) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Free reports whether the slot can be booked at now.
func (s Slot) Free(now time.Time) bool {
	return !s.Reserved && s.StartsAt.After(now)
}

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("slots: invalid time %q", s)
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("slots: invalid time %q", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ScheduleBlock is an operator-defined working window that expands into
// slots of SlotDurationMinutes separated by BreakMinutes.
type ScheduleBlock struct {
	ID                  string           `json:"id"`
	ProfessionalID      string           `json:"profesionalId"`
	Date                calendar.DateKey `json:"fecha"`
	StartTime           ClockTime        `json:"horaInicio"`
	EndTime             ClockTime        `json:"horaFin"`
	SlotDurationMinutes int              `json:"duracionSlot"`
	BreakMinutes        int              `json:"intervalo"`
}

// Validate checks the block shape.
func (b ScheduleBlock) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(b.ProfessionalID) == "" {
		fields["profesionalId"] = "required"
	}
	if b.Date.IsZero() {
		fields["fecha"] = "required"
	}
	if b.EndTime <= b.StartTime {
		fields["horaFin"] = "must be after horaInicio"
	}
	if b.SlotDurationMinutes <= 0 {
		fields["duracionSlot"] = "must be positive"
	} else if int(b.EndTime-b.StartTime) < b.SlotDurationMinutes {
		fields["duracionSlot"] = "longer than the block"
	}
	if b.BreakMinutes < 0 {
		fields["intervalo"] = "must not be negative"
	}
	if len(fields) > 0 {
		return invalidBlock(fields)
	}
	return nil
}
