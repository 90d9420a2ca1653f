// Package export writes row sets as CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/recon-cli/internal/field"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Report"

// Write encodes rows in format f. Columns fixes the column order; columns
// present in rows but not listed are appended in sorted order.
func Write(w io.Writer, f Format, columns []string, rows []field.Row) error {
	cols := Columns(columns, rows)
	switch f {
	case FormatCSV:
		return WriteCSV(w, cols, rows)
	case FormatXLSX:
		return WriteXLSX(w, cols, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	}
	return eris.Errorf("export: unknown format %q", f)
}

// Columns returns preferred followed by any other keys seen in rows.
func Columns(preferred []string, rows []field.Row) []string {
	seen := make(map[string]bool, len(preferred))
	out := make([]string, 0, len(preferred))
	for _, c := range preferred {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// WriteCSV writes a header row and one record per row.
func WriteCSV(w io.Writer, columns []string, rows []field.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	rec := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			rec[i] = field.Format(row[c])
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single-sheet workbook. Numbers and booleans keep their
// cell types.
func WriteXLSX(w io.Writer, columns []string, rows []field.Row) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return eris.Wrap(err, "export: rename sheet")
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return eris.Wrap(err, "export: write xlsx header")
	}

	for r, row := range rows {
		cells := make([]any, len(columns))
		for i, c := range columns {
			cells[i] = xlsxValue(row[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return eris.Wrap(err, "export: cell name")
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return eris.Wrapf(err, "export: write xlsx row %d", r+1)
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func xlsxValue(v any) any {
	switch v.(type) {
	case float64, int, int64, bool:
		return v
	default:
		return field.Format(v)
	}
}

// WriteJSON writes rows as a JSON array.
func WriteJSON(w io.Writer, rows []field.Row) error {
	if rows == nil {
		rows = []field.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rows), "export: write json")
}
