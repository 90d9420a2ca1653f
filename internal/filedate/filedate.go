// Package filedate derives calendar dates from export filenames and selects
// the files that fall inside a reporting window.
package filedate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// KnownPrefixes are the report types whose exports use <prefix>_MM-DD-YYYY.csv.
var KnownPrefixes = []string{
	"loyalty_scan_detail",
	"loyalty_scan_summary",
	"loyalty_data",
}

type pattern struct {
	re              *regexp.Regexp
	month, day, yr int // submatch indexes
}

var patterns = buildPatterns()

func buildPatterns() []pattern {
	var ps []pattern
	for _, p := range KnownPrefixes {
		ps = append(ps, pattern{
			re:    regexp.MustCompile(regexp.QuoteMeta(p) + `_(\d{2})-(\d{2})-(\d{4})\.csv$`),
			month: 1, day: 2, yr: 3,
		})
	}
	ps = append(ps,
		pattern{re: regexp.MustCompile(`-(\d{2})-(\d{2})-(\d{4})\.csv$`), month: 1, day: 2, yr: 3},
		pattern{re: regexp.MustCompile(`(\d{2})(\d{2})(\d{4})\.csv$`), month: 1, day: 2, yr: 3},
	)
	return ps
}

// Extract returns the date encoded in name at local midnight. The most
// specific naming convention is tried first and the first match wins.
func Extract(name string) (time.Time, bool) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		return build(m[p.yr], m[p.month], m[p.day])
	}
	return time.Time{}, false
}

func build(y, m, d string) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// Reject rollovers like 02-31.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// Window is an inclusive range of calendar days. A zero bound means the
// bound was not supplied.
type Window struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both bounds are set.
func (w Window) Complete() bool {
	return !w.Start.IsZero() && !w.End.IsZero()
}

// Contains reports whether t falls between the start of Start's day and
// the last millisecond of End's day.
func (w Window) Contains(t time.Time) bool {
	lo := StartOfDay(w.Start)
	hi := EndOfDay(w.End)
	return !t.Before(lo) && !t.After(hi)
}

// Select returns the files starting with typePrefix whose date falls in w,
// preserving input order. An incomplete window selects nothing.
func Select(files []string, w Window, typePrefix string) []string {
	if !w.Complete() {
		return []string{}
	}
	out := []string{}
	for _, f := range files {
		if !strings.HasPrefix(f, typePrefix) {
			continue
		}
		d, ok := Extract(f)
		if !ok || !w.Contains(d) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
