// Package professionals is the directory of clinic staff and the services
// each one is qualified to deliver.
package professionals

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

// Professional is a staff member. Qualification is decided only by Services,
// which holds catalog service ids.
type Professional struct {
	ID          string     `json:"id"`
	FullName    string     `json:"nombreCompleto"`
	Email       string     `json:"email,omitempty"`
	Specialties StringList `json:"especialidades"`
	Services    StringList `json:"servicios"`
}

// QualifiedFor reports whether the professional delivers serviceID.
func (p Professional) QualifiedFor(serviceID string) bool {
	for _, s := range p.Services {
		if s == serviceID {
			return true
		}
	}
	return false
}

// Validate checks required fields. known reports whether a service id exists
// in the catalog; nil skips that check.
func (p Professional) Validate(known func(string) bool) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.FullName) == "" {
		fields["nombreCompleto"] = "required"
	}
	if len(p.Services) == 0 {
		fields["servicios"] = "at least one service is required"
	}
	if known != nil {
		for _, s := range p.Services {
			if !known(s) {
				fields["servicios"] = "unknown service " + s
				break
			}
		}
	}
	if len(fields) > 0 {
		return apperr.Invalid(fields)
	}
	return nil
}

// StringList is a set of strings that decodes from either a JSON array or a
// comma-separated string. Values are trimmed, deduplicated and sorted.
type StringList []string

// ParseList splits a comma-separated value into a normalized StringList.
func ParseList(csv string) StringList {
	return normalize(strings.Split(csv, ","))
}

func normalize(values []string) StringList {
	seen := make(map[string]struct{}, len(values))
	out := make(StringList, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = normalize(list)
		return nil
	}
	var csv string
	if err := json.Unmarshal(data, &csv); err != nil {
		return err
	}
	*l = ParseList(csv)
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func sortByName(list []Professional) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].FullName != list[j].FullName {
			return list[i].FullName < list[j].FullName
		}
		return list[i].ID < list[j].ID
	})
}
