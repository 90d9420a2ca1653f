// Package pricechange turns price edits into auditable change reports:
// diffing against the baseline model, validating, serializing and
// tracking each report through its lifecycle.
package pricechange

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/pricing"
)

// Change is one edited price.
type Change struct {
	ItemName     string    `json:"itemName"`
	LocationID   string    `json:"locationId"`
	LocationName string    `json:"locationName"`
	OldPrice     float64   `json:"oldPrice"`
	NewPrice     float64   `json:"newPrice"`
	Timestamp    time.Time `json:"timestamp"`
}

// Difference is NewPrice minus OldPrice.
func (c Change) Difference() float64 {
	return c.NewPrice - c.OldPrice
}

// EditKey addresses one cell of the price grid.
type EditKey struct {
	ItemName   string
	LocationID string
}

// String renders the key as "itemName|locationId".
func (k EditKey) String() string {
	return k.ItemName + "|" + k.LocationID
}

// ParseEditKey is the inverse of EditKey.String. The location id is the
// text after the last separator.
func ParseEditKey(s string) (EditKey, error) {
	i := strings.LastIndex(s, "|")
	if i <= 0 || i == len(s)-1 {
		return EditKey{}, eris.Errorf("pricechange: malformed edit key %q", s)
	}
	return EditKey{ItemName: s[:i], LocationID: s[i+1:]}, nil
}

// Diff compares edited prices against the baseline items. Edits whose item
// or location is not in the baseline are skipped, as are edits that leave
// the price unchanged. Changes are ordered by item name, then location id.
func Diff(items []pricing.Item, edits map[EditKey]float64, locations []pricing.LocationInfo, now time.Time) []Change {
	byName := make(map[string]*pricing.Item, len(items))
	for i := range items {
		if _, ok := byName[items[i].Name]; !ok {
			byName[items[i].Name] = &items[i]
		}
	}
	names := make(map[string]string, len(locations))
	for _, l := range locations {
		names[l.ID] = l.DisplayName
	}

	keys := make([]EditKey, 0, len(edits))
	for k := range edits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ItemName != keys[j].ItemName {
			return keys[i].ItemName < keys[j].ItemName
		}
		return keys[i].LocationID < keys[j].LocationID
	})

	var changes []Change
	for _, k := range keys {
		item, ok := byName[k.ItemName]
		if !ok {
			continue
		}
		old, ok := item.Price(k.LocationID)
		if !ok {
			continue
		}
		newPrice := edits[k]
		if old == newPrice {
			continue
		}
		name := names[k.LocationID]
		if name == "" {
			name = fmt.Sprintf("Location %s", k.LocationID)
		}
		changes = append(changes, Change{
			ItemName:     k.ItemName,
			LocationID:   k.LocationID,
			LocationName: name,
			OldPrice:     old,
			NewPrice:     newPrice,
			Timestamp:    now,
		})
	}
	return changes
}

// GroupByLocation buckets changes by location name, preserving order
// within each bucket.
func GroupByLocation(changes []Change) map[string][]Change {
	groups := make(map[string][]Change)
	for _, c := range changes {
		groups[c.LocationName] = append(groups[c.LocationName], c)
	}
	return groups
}
