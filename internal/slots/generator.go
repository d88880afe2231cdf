package slots

import (
	"time"

	"github.com/google/uuid"
)

// slotNamespace seeds the name-based slot ids so the same professional and
// start time always map to the same id.
var slotNamespace = uuid.MustParse("8f6d3a52-2c1e-4b8a-9d0f-5f3c2b7e1a40")

// SlotID returns the deterministic id of a professional's slot at start.
func SlotID(professionalID string, start time.Time) string {
	return uuid.NewSHA1(slotNamespace, []byte(professionalID+"|"+start.UTC().Format(time.RFC3339))).String()
}

// Generate expands block into slots, interpreting its date and times in loc.
// A slot is emitted only if it ends at or before the block end.
func Generate(block ScheduleBlock, loc *time.Location) ([]Slot, error) {
	if err := block.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	d := block.Date
	start := time.Date(d.Year, d.Month, d.Day, 0, int(block.StartTime), 0, 0, loc)
	end := time.Date(d.Year, d.Month, d.Day, 0, int(block.EndTime), 0, 0, loc)
	duration := time.Duration(block.SlotDurationMinutes) * time.Minute
	step := duration + time.Duration(block.BreakMinutes)*time.Minute

	var out []Slot
	for t := start; !t.Add(duration).After(end); t = t.Add(step) {
		out = append(out, Slot{
			ID:              SlotID(block.ProfessionalID, t),
			ProfessionalID:  block.ProfessionalID,
			BlockID:         block.ID,
			StartsAt:        t,
			DurationMinutes: block.SlotDurationMinutes,
		})
	}
	return out, nil
}
