// Package csvmap turns delimited export text into rows and layers a
// profile's output fields on top of the original columns.
package csvmap

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/fetcher"
	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/profile"
)

// Options configures Parse.
type Options struct {
	HasHeader bool
	Delimiter rune

	// DynamicTyping converts numeric cells to float64 and true/false cells
	// to bool, leaving everything else as strings.
	DynamicTyping bool
}

// DefaultOptions parses comma-separated text with a header row and dynamic
// typing.
func DefaultOptions() Options {
	return Options{HasHeader: true, DynamicTyping: true}
}

// Table is the result of parsing one file.
type Table struct {
	Columns []string
	Rows    []field.Row
	Errors  []error
}

// Parse reads delimited text into rows. Malformed records are skipped and
// collected on Table.Errors; if nothing usable survives and at least one
// error occurred, the table is emptied so a broken file never yields
// fabricated rows.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Table, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter:       opts.Delimiter,
		HasHeader:       opts.HasHeader,
		HeaderCh:        headerCh,
		ContinueOnError: true,
	})

	t := &Table{}
	var header []string
	for rec := range rowCh {
		if header == nil {
			select {
			case h := <-headerCh:
				header = cleanHeader(h)
				t.Columns = header
			default:
			}
		}
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, toRow(header, rec, opts.DynamicTyping))
	}

	for err := range errCh {
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "csvmap: parse")
		}
		t.Errors = append(t.Errors, fetcher.AsParseErrors(err)...)
	}

	if t.Columns == nil {
		select {
		case h := <-headerCh:
			t.Columns = cleanHeader(h)
		default:
		}
	}

	if len(t.Rows) == 0 && len(t.Errors) > 0 {
		t.Rows = nil
	}
	return t, nil
}

// Apply layers cfg's output fields onto each row. Original columns pass
// through untouched; an output field that resolves to nothing is left unset.
func Apply(rows []field.Row, cfg *profile.Config) []field.Row {
	if cfg == nil || len(cfg.Fields) == 0 {
		return rows
	}
	names := cfg.FieldNames()
	out := make([]field.Row, len(rows))
	for i, row := range rows {
		mapped := row.Clone()
		for _, name := range names {
			if v, ok := cfg.Fields[name].Resolve(row); ok {
				mapped[name] = v
			}
		}
		out[i] = mapped
	}
	return out
}

// Map parses text and applies cfg in one step.
func Map(ctx context.Context, text string, cfg *profile.Config, hasHeader bool) (*Table, error) {
	opts := DefaultOptions()
	opts.HasHeader = hasHeader
	t, err := Parse(ctx, strings.NewReader(text), opts)
	if err != nil {
		return nil, err
	}
	t.Rows = Apply(t.Rows, cfg)
	if cfg != nil {
		for _, name := range cfg.FieldNames() {
			if !contains(t.Columns, name) {
				t.Columns = append(t.Columns, name)
			}
		}
	}
	return t, nil
}

// MapRows is Map without the table metadata.
func MapRows(ctx context.Context, text string, cfg *profile.Config, hasHeader bool) ([]field.Row, error) {
	t, err := Map(ctx, text, cfg, hasHeader)
	if err != nil {
		return nil, err
	}
	return t.Rows, nil
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
		}
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func toRow(header, rec []string, dynamic bool) field.Row {
	row := make(field.Row, len(rec))
	for i, cell := range rec {
		key := strconv.Itoa(i)
		if i < len(header) && header[i] != "" {
			key = header[i]
		}
		if dynamic {
			row[key] = typed(cell)
		} else {
			row[key] = cell
		}
	}
	return row
}

// typed mirrors spreadsheet-style dynamic typing. Values that would lose
// information as a float64, like zero-padded ids, stay strings.
func typed(cell string) any {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "":
		return cell
	case "true":
		return true
	case "false":
		return false
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return cell
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "xXpP_iInN") {
		return f
	}
	return cell
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
