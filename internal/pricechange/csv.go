package pricechange

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/recon-cli/internal/csvmap"
	"github.com/sells-group/recon-cli/internal/field"
)

// Meta is the per-report header repeated on every CSV row.
type Meta struct {
	ReportID      string    `json:"reportId"`
	GroupName     string    `json:"groupName"`
	SubmittedDate time.Time `json:"submittedDate"`
}

// Columns is the report CSV header.
var Columns = []string{
	"Report ID", "Group Name", "Submitted Date", "Item Name", "Location ID",
	"Location Name", "Old Price", "New Price", "Price Difference", "Change Timestamp",
}

// ToCSV renders changes in the report CSV format. Prices are fixed
// two-decimal strings and times are RFC 3339.
func ToCSV(changes []Change, meta Meta) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return "", eris.Wrap(err, "pricechange: write header")
	}
	submitted := meta.SubmittedDate.UTC().Format(time.RFC3339)
	for _, c := range changes {
		if !finite(c.OldPrice) || !finite(c.NewPrice) {
			return "", eris.Errorf("pricechange: non-numeric price for %s at %s", c.ItemName, c.LocationID)
		}
		oldPrice := decimal.NewFromFloat(c.OldPrice)
		newPrice := decimal.NewFromFloat(c.NewPrice)
		rec := []string{
			meta.ReportID,
			meta.GroupName,
			submitted,
			c.ItemName,
			c.LocationID,
			c.LocationName,
			oldPrice.StringFixed(2),
			newPrice.StringFixed(2),
			newPrice.Sub(oldPrice).StringFixed(2),
			c.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if err := w.Write(rec); err != nil {
			return "", eris.Wrap(err, "pricechange: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", eris.Wrap(err, "pricechange: flush")
	}
	return buf.String(), nil
}

var (
	colReportID  = field.From("Report ID").As(field.TypeString)
	colGroup     = field.From("Group Name").As(field.TypeString)
	colSubmitted = field.From("Submitted Date").As(field.TypeString)
	colItem      = field.From("Item Name").As(field.TypeString)
	colLocID     = field.From("Location ID").As(field.TypeString)
	colLocName   = field.From("Location Name").As(field.TypeString)
	colOld       = field.From("Old Price").As(field.TypeString)
	colNew       = field.From("New Price").As(field.TypeString)
	colChangedAt = field.From("Change Timestamp").As(field.TypeString)
)

// ParseCSV reads a report CSV back into its metadata and changes. Meta is
// taken from the first row.
func ParseCSV(ctx context.Context, text string) (Meta, []Change, error) {
	tbl, err := csvmap.Parse(ctx, strings.NewReader(text), csvmap.Options{HasHeader: true})
	if err != nil {
		return Meta{}, nil, eris.Wrap(err, "pricechange: parse report csv")
	}
	if len(tbl.Errors) > 0 {
		return Meta{}, nil, eris.Wrap(tbl.Errors[0], "pricechange: malformed report csv")
	}

	var meta Meta
	changes := make([]Change, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		if i == 0 {
			meta.ReportID = colReportID.String(row)
			meta.GroupName = colGroup.String(row)
			if s := colSubmitted.String(row); s != "" {
				t, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return Meta{}, nil, eris.Wrap(err, "pricechange: submitted date")
				}
				meta.SubmittedDate = t
			}
		}

		c := Change{
			ItemName:     colItem.String(row),
			LocationID:   colLocID.String(row),
			LocationName: colLocName.String(row),
		}
		if c.OldPrice, err = parsePrice(colOld.String(row)); err != nil {
			return Meta{}, nil, eris.Wrapf(err, "pricechange: row %d old price", i+1)
		}
		if c.NewPrice, err = parsePrice(colNew.String(row)); err != nil {
			return Meta{}, nil, eris.Wrapf(err, "pricechange: row %d new price", i+1)
		}
		if s := colChangedAt.String(row); s != "" {
			if c.Timestamp, err = time.Parse(time.RFC3339Nano, s); err != nil {
				return Meta{}, nil, eris.Wrapf(err, "pricechange: row %d timestamp", i+1)
			}
		}
		changes = append(changes, c)
	}
	return meta, changes, nil
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
