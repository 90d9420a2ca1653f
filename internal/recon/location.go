package recon

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// Location is one store in the reference list.
type Location struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PriceGroupID string `json:"price_group_id,omitempty"`
}

var testLocationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^TEST$`),
	regexp.MustCompile(`(?i)^Template-`),
	regexp.MustCompile(`(?i)^Test\s+\d+$`),
	regexp.MustCompile(`(?i)^Lab\s+Test\s+\d+$`),
	regexp.MustCompile(`(?i)HQ\s+Lab$`),
	regexp.MustCompile(`(?i)New\s+Menu\s+Store$`),
}

// IsTestLocation reports whether name belongs to a test, lab or template
// store.
func IsTestLocation(name string) bool {
	for _, re := range testLocationPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// WithoutTestLocations drops test stores.
func WithoutTestLocations(locs []Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if !IsTestLocation(l.Name) {
			out = append(out, l)
		}
	}
	return out
}

// LoadLocations decodes a location list. Both an array of {id,name} objects
// and the location sync's keyed form {"<id>": {"name": ...}} are accepted.
// The result is sorted by name, then id.
func LoadLocations(r io.Reader) ([]Location, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "recon: read locations")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var locs []Location
	if data[0] == '[' {
		var list []rawLocation
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, eris.Wrap(err, "recon: decode location list")
		}
		for _, l := range list {
			locs = append(locs, l.location(jsonString(l.ID)))
		}
	} else {
		var keyed map[string]rawLocation
		if err := json.Unmarshal(data, &keyed); err != nil {
			return nil, eris.Wrap(err, "recon: decode location map")
		}
		for id, l := range keyed {
			locs = append(locs, l.location(id))
		}
	}

	sort.Slice(locs, func(i, j int) bool {
		if locs[i].Name != locs[j].Name {
			return locs[i].Name < locs[j].Name
		}
		return locs[i].ID < locs[j].ID
	})
	return locs, nil
}

// rawLocation tolerates ids written as JSON numbers.
type rawLocation struct {
	ID           any    `json:"id"`
	Name         string `json:"name"`
	PriceGroupID any    `json:"price_group_id"`
}

func (r rawLocation) location(id string) Location {
	return Location{ID: id, Name: r.Name, PriceGroupID: jsonString(r.PriceGroupID)}
}

func jsonString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
