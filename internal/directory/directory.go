// Package directory holds the employee reference data used to label
// loyalty rows with people's names.
package directory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/csvmap"
	"github.com/sells-group/recon-cli/internal/field"
)

// UnknownPrefix starts every synthesized name for an unresolved id.
const UnknownPrefix = "Unknown"

// Directory maps loyalty ids to display names.
type Directory map[string]string

var (
	idField    = field.From("loyalty_id", "Loyalty ID", "Employee ID", "employee_id").As(field.TypeString)
	firstField = field.From("first", "First", "First Name", "first_name").As(field.TypeString)
	lastField  = field.From("last", "Last", "Last Name", "last_name").As(field.TypeString)
)

// Name returns the employee's name or an "Unknown (ID: <id>)" sentinel.
func (d Directory) Name(id string) string {
	if name, ok := d[id]; ok {
		return name
	}
	return fmt.Sprintf("%s (ID: %s)", UnknownPrefix, id)
}

// Lookup returns the name for id and whether it is known.
func (d Directory) Lookup(id string) (string, bool) {
	name, ok := d[id]
	return name, ok
}

// IsUnknown reports whether name is empty or a synthesized sentinel.
func IsUnknown(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.HasPrefix(name, UnknownPrefix)
}

// Load parses an employee list export. Rows without an id are ignored.
func Load(ctx context.Context, r io.Reader) (Directory, error) {
	tbl, err := csvmap.Parse(ctx, r, csvmap.Options{HasHeader: true})
	if err != nil {
		return nil, eris.Wrap(err, "directory: parse employee list")
	}
	if len(tbl.Rows) == 0 && len(tbl.Errors) > 0 {
		return nil, eris.Wrap(tbl.Errors[0], "directory: employee list unreadable")
	}

	dir := make(Directory, len(tbl.Rows))
	for _, row := range tbl.Rows {
		id := strings.TrimSpace(idField.String(row))
		if id == "" {
			continue
		}
		name := strings.TrimSpace(strings.TrimSpace(firstField.String(row)) + " " + strings.TrimSpace(lastField.String(row)))
		if name == "" {
			continue
		}
		dir[id] = name
	}
	return dir, nil
}
