// Package pricing builds the cross-location price model from a price
// snapshot export.
package pricing

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/csvmap"
	"github.com/sells-group/recon-cli/internal/fetcher"
	"github.com/sells-group/recon-cli/internal/field"
)

// Item is one menu item with its price at every location that sells it.
type Item struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	FriendlyName   string             `json:"friendlyName,omitempty"`
	Category       string             `json:"category"`
	PriceGroupID   string             `json:"priceGroupId,omitempty"`
	PriceGroupName string             `json:"priceGroupName,omitempty"`
	IsOriginal     bool               `json:"isOriginal"`
	SauceUnitCount *int               `json:"sauceUnitCount,omitempty"`
	OriginalID     string             `json:"originalId,omitempty"`
	LocationPrices map[string]float64 `json:"locationPrices"`
}

// Price returns the item's price at a location.
func (it *Item) Price(locationID string) (float64, bool) {
	p, ok := it.LocationPrices[locationID]
	return p, ok
}

// LocationInfo describes a location seen in a snapshot.
type LocationInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Model is the result of a build.
type Model struct {
	Items     []Item         `json:"items"`
	Locations []LocationInfo `json:"locations"`
}

// ItemByName returns the item with the given name.
func (m *Model) ItemByName(name string) (*Item, bool) {
	for i := range m.Items {
		if m.Items[i].Name == name {
			return &m.Items[i], true
		}
	}
	return nil, false
}

// Snapshot columns. Both the legacy single-location layout and the
// multi-location layout resolve through these.
var (
	colGroupID   = field.From("Price Group ID", "price_group_id", "PriceGroupId").As(field.TypeString)
	colGroupName = field.From("Price Group Name", "Price Group", "price_group_name", "PriceGroupName").As(field.TypeString)
	colPriceID   = field.From("Price ID", "price_id", "PriceId", "Item ID", "item_id").As(field.TypeString)
	colName      = field.From("Item Name", "item_name", "Name", "Menu Item").As(field.TypeString)
	colPrice     = field.From("Price", "Current Price", "price", "current_price").As(field.TypeNumber)
	colLocation  = field.From("location_id", "Location ID", "LocationId", "Location").As(field.TypeString)
	colLocations = field.From("location_ids", "Location IDs", "LocationIds").As(field.TypeString)
)

// BuildCrossLocationModel parses a snapshot and builds the model. A
// snapshot that yields no usable rows produces an empty model.
func BuildCrossLocationModel(ctx context.Context, text string) (*Model, error) {
	tbl, err := csvmap.Parse(ctx, strings.NewReader(text), csvmap.Options{HasHeader: true})
	if err != nil {
		return nil, eris.Wrap(err, "pricing: parse snapshot")
	}
	return BuildFromRows(tbl.Rows), nil
}

// BuildFromXLSX builds the model from the first sheet of a workbook
// snapshot.
func BuildFromXLSX(data []byte) (*Model, error) {
	records, err := fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "pricing: read workbook snapshot")
	}
	if len(records) == 0 {
		return BuildFromRows(nil), nil
	}
	header := records[0]
	rows := make([]field.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(field.Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return BuildFromRows(rows), nil
}

// BuildFromRows builds the model from already-parsed rows. Rows without an
// item name, a numeric price or a location are skipped.
func BuildFromRows(rows []field.Row) *Model {
	var (
		order     []string
		byName    = make(map[string]*Item)
		locations = make(map[string]LocationInfo)
	)

	for _, row := range rows {
		name := strings.TrimSpace(colName.String(row))
		price, ok := colPrice.Number(row)
		if name == "" || !ok {
			continue
		}
		locIDs := rowLocations(row)
		if len(locIDs) == 0 {
			continue
		}

		groupName := colGroupName.String(row)
		for _, id := range locIDs {
			if _, seen := locations[id]; !seen {
				locations[id] = locationInfo(id, groupName)
			}
		}

		it, ok := byName[name]
		if !ok {
			it = &Item{Name: name, LocationPrices: make(map[string]float64)}
			byName[name] = it
			order = append(order, name)
		}
		if id := colPriceID.String(row); id != "" {
			it.ID = id
		}
		if g := colGroupID.String(row); g != "" {
			it.PriceGroupID = g
		}
		if groupName != "" {
			it.PriceGroupName = groupName
		}
		for _, id := range locIDs {
			it.LocationPrices[id] = price
		}
	}

	items := make([]*Item, 0, len(order))
	for _, name := range order {
		it := byName[name]
		if it.ID == "" {
			it.ID = name
		}
		it.Category = Classify(it.Name)
		it.IsOriginal = !IsSauced(it.Name)
		if it.IsOriginal {
			if n, ok := SauceUnitCount(it.Name, it.Category); ok {
				it.SauceUnitCount = &n
			}
		}
		items = append(items, it)
	}
	linkOriginals(items)

	m := &Model{Items: make([]Item, len(items)), Locations: make([]LocationInfo, 0, len(locations))}
	for i, it := range items {
		m.Items[i] = *it
	}
	for _, l := range locations {
		m.Locations = append(m.Locations, l)
	}
	sort.Slice(m.Locations, func(i, j int) bool { return lessID(m.Locations[i].ID, m.Locations[j].ID) })
	return m
}

func rowLocations(row field.Row) []string {
	if list := colLocations.String(row); list != "" {
		return splitIDs(list)
	}
	if id := strings.TrimSpace(colLocation.String(row)); id != "" {
		return splitIDs(id)
	}
	return nil
}

func splitIDs(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// locationInfo derives a location's display name from the second segment
// of its price-group name, e.g. "PG-Wildwood" gives "Wildwood".
func locationInfo(id, groupName string) LocationInfo {
	info := LocationInfo{ID: id, Name: id, DisplayName: id}
	if groupName == "" {
		return info
	}
	info.Name = groupName
	if parts := strings.Split(groupName, "-"); len(parts) > 1 {
		if seg := strings.TrimSpace(parts[1]); seg != "" {
			info.DisplayName = seg
		}
	}
	return info
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// ByCategory returns the items in category, given as a value or a display
// label. CategoryAll or "" returns every item.
func (m *Model) ByCategory(category string) []Item {
	if c, ok := CategoryFromLabel(category); ok {
		category = c
	}
	if category == "" || category == CategoryAll {
		return m.Items
	}
	var out []Item
	for _, it := range m.Items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}
