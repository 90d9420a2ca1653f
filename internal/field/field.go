// Package field resolves logical fields from loosely-structured rows.
//
// Upstream exports rename columns freely, so every consumer looks fields up
// through an Accessor: an ordered list of candidate column names plus an
// optional semantic type and default.
package field

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Row is one parsed record. Values are string, float64, bool, time.Time or nil.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DataType is the semantic type an accessor coerces to.
type DataType string

// Supported data types. The zero value leaves values uncoerced.
const (
	TypeNone    DataType = ""
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
)

// Accessor declares how to locate and coerce one logical field.
type Accessor struct {
	Sources    []string
	Type       DataType
	Default    any
	HasDefault bool
}

// From builds an untyped accessor over the given candidate names.
func From(sources ...string) Accessor {
	return Accessor{Sources: sources}
}

// As returns a copy of a with the given type.
func (a Accessor) As(t DataType) Accessor {
	a.Type = t
	return a
}

// Or returns a copy of a with a default value.
func (a Accessor) Or(def any) Accessor {
	a.Default = def
	a.HasDefault = true
	return a
}

// Resolve looks the field up in row. The bool reports whether a value was
// produced, either from the row or from the declared default.
func (a Accessor) Resolve(row Row) (any, bool) {
	raw, found := a.lookup(row)
	if !found {
		return a.fallback()
	}
	if a.Type == TypeNone {
		return raw, true
	}
	v, ok := coerce(raw, a.Type)
	if !ok {
		return a.fallback()
	}
	return v, true
}

// String resolves the field and renders it as a string. Missing fields
// yield "".
func (a Accessor) String(row Row) string {
	v, ok := a.Resolve(row)
	if !ok || v == nil {
		return ""
	}
	s, _ := coerce(v, TypeString)
	return s.(string)
}

// Number resolves the field as a float64.
func (a Accessor) Number(row Row) (float64, bool) {
	v, ok := a.Resolve(row)
	if !ok || v == nil {
		return 0, false
	}
	n, ok := coerce(v, TypeNumber)
	if !ok {
		return 0, false
	}
	return n.(float64), true
}

func (a Accessor) lookup(row Row) (any, bool) {
	for _, name := range a.Sources {
		v, ok := row[name]
		if !ok || IsEmpty(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func (a Accessor) fallback() (any, bool) {
	if a.HasDefault {
		return a.Default, true
	}
	return nil, false
}

// IsEmpty reports whether v is nil or renders to a blank string.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case time.Time:
		return t.IsZero()
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"01/02/2006",
	"1/2/2006",
}

func coerce(v any, t DataType) (any, bool) {
	switch t {
	case TypeString:
		return toString(v), true
	case TypeNumber:
		return toNumber(v)
	case TypeBoolean:
		return toBool(v), true
	case TypeDate:
		return toDate(v)
	default:
		return v, true
	}
}

// Format renders a cell value the way string coercion does.
func Format(v any) string { return toString(v) }

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case interface{ String() string }:
		return t.String()
	default:
		return ""
	}
}

func toNumber(v any) (any, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case bool:
		if t {
			f = 1
		}
	case time.Time:
		f = float64(t.UnixMilli())
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		f = parsed
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	}
	s := strings.ToLower(strings.TrimSpace(toString(v)))
	switch s {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	}
	switch t := v.(type) {
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

func toDate(v any) (any, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil, false
		}
		return t, true
	case float64:
		return time.UnixMilli(int64(t)), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return d, true
			}
		}
	}
	return nil, false
}
