package recon

import (
	"strings"

	"github.com/sells-group/recon-cli/internal/directory"
	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/profile"
)

// LocationNameColumn is added by EnhanceWithLocationNames.
const LocationNameColumn = "Location Name"

// DefaultGuestColumn is filled when a profile has no guest-name accessor.
const DefaultGuestColumn = "Guest Name"

var legacyLocation = field.From("LocationID", "Location ID", "Store").As(field.TypeString)

// EnhanceWithLocationNames adds a Location Name column to rows whose
// location value is a purely numeric id present in locations. Other rows
// are returned as-is.
func EnhanceWithLocationNames(rows []field.Row, locations []Location, cfg *profile.Config) []field.Row {
	if len(rows) == 0 || len(locations) == 0 {
		return rows
	}
	names := make(map[string]string, len(locations))
	for _, l := range locations {
		names[l.ID] = l.Name
	}

	out := make([]field.Row, len(rows))
	for i, row := range rows {
		id := strings.TrimSpace(locationValue(row, cfg))
		name, ok := names[id]
		if !ok || !isDigits(id) {
			out[i] = row
			continue
		}
		enhanced := row.Clone()
		enhanced[LocationNameColumn] = name
		out[i] = enhanced
	}
	return out
}

// EnhanceWithEmployeeNames fills the guest-name column from the employee
// directory. A name that is already resolved is never overwritten; a row
// without an employee id gets the "Unknown (ID: )" sentinel.
func EnhanceWithEmployeeNames(rows []field.Row, dir directory.Directory, cfg *profile.Config) []field.Row {
	if cfg == nil || !cfg.Employee.Present() {
		return rows
	}
	guest := field.From(DefaultGuestColumn)
	if acc, ok := cfg.GuestName.Get(); ok && len(acc.Sources) > 0 {
		guest = acc
	}
	target := guest.Sources[0]

	out := make([]field.Row, len(rows))
	for i, row := range rows {
		id := strings.TrimSpace(cfg.Employee.String(row))
		if !directory.IsUnknown(guest.String(row)) {
			out[i] = row
			continue
		}
		enhanced := row.Clone()
		enhanced[target] = dir.Name(id)
		out[i] = enhanced
	}
	return out
}

func locationValue(row field.Row, cfg *profile.Config) string {
	if cfg != nil && cfg.Location.Present() {
		return cfg.Location.String(row)
	}
	return legacyLocation.String(row)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
