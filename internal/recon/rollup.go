package recon

import (
	"fmt"
	"math"

	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/profile"
)

// RollUpColumns is the column order of RollUp output.
var RollUpColumns = []string{
	"Location ID", "Location Name", "Avg Total Checks", "Avg Loyalty Scans", "Avg Scan Rate", "Days in Period",
}

var (
	rollUpLocation = field.From("Location ID", "Location").As(field.TypeString)
	totalChecks    = field.From("Total Checks").As(field.TypeNumber)
	loyaltyScans   = field.From("Loyalty Scans").As(field.TypeNumber)
)

type rollUpGroup struct {
	id, name      string
	checks, scans float64
	days          int
}

// RollUp collapses daily summary rows into one row per location with the
// average checks, scans and scan rate over the period. Groups appear in the
// order their first row was seen.
func RollUp(rows []field.Row, cfg *profile.Config) []field.Row {
	loc := rollUpLocation
	usage := totalChecks
	if cfg != nil {
		if acc, ok := cfg.Location.Get(); ok {
			loc = acc
		}
		if acc, ok := cfg.Usage.Get(); ok {
			usage = acc
		}
	}

	groups := make(map[string]*rollUpGroup)
	var order []string
	for _, row := range rows {
		id := loc.String(row)
		name := field.From(LocationNameColumn).String(row)
		if name == "" {
			name = id
		}
		key := id + "-" + name
		g, ok := groups[key]
		if !ok {
			g = &rollUpGroup{id: id, name: name}
			groups[key] = g
			order = append(order, key)
		}
		if n, ok := usage.Number(row); ok {
			g.checks += n
		}
		if n, ok := loyaltyScans.Number(row); ok {
			g.scans += n
		}
		g.days++
	}

	out := make([]field.Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		avgChecks := g.checks / float64(g.days)
		avgScans := g.scans / float64(g.days)
		rate := "0%"
		if avgChecks > 0 {
			rate = fmt.Sprintf("%.2f%%", avgScans/avgChecks*100)
		}
		out = append(out, field.Row{
			"Location ID":       g.id,
			"Location Name":     g.name,
			"Avg Total Checks":  round2(avgChecks),
			"Avg Loyalty Scans": round2(avgScans),
			"Avg Scan Rate":     rate,
			"Days in Period":    float64(g.days),
		})
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
