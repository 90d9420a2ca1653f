package filedate

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Preset names a canned reporting window.
type Preset string

// Reporting presets. Every preset ends no later than yesterday because the
// current day's export has not landed yet.
const (
	Yesterday       Preset = "Yesterday"
	WeekToDate      Preset = "Week to date"
	LastWeek        Preset = "Last Week"
	TodayLastWeek   Preset = "Today Last Week"
	MonthToDate     Preset = "Month to date"
	LastMonth       Preset = "Last Month"
	ThisDayLastYear Preset = "This Day Last Year"
	ThisYear        Preset = "This Year"
)

// Presets lists the presets in display order.
var Presets = []Preset{
	Yesterday, WeekToDate, LastWeek, TodayLastWeek,
	MonthToDate, LastMonth, ThisDayLastYear, ThisYear,
}

// ParsePreset matches a preset name case-insensitively.
func ParsePreset(s string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

// Range returns the window for p relative to now. Weeks start on Sunday.
// Unknown presets fall back to Yesterday.
func (p Preset) Range(now time.Time) Window {
	yesterday := EndOfDay(now.AddDate(0, 0, -1))
	weekStart := StartOfDay(now.AddDate(0, 0, -int(now.Weekday())))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var start, end time.Time
	switch p {
	case WeekToDate:
		start, end = weekStart, yesterday
	case LastWeek:
		start = weekStart.AddDate(0, 0, -7)
		end = EndOfDay(weekStart.AddDate(0, 0, -1))
	case TodayLastWeek:
		start = StartOfDay(now.AddDate(0, 0, -7))
		end = EndOfDay(start)
	case MonthToDate:
		start, end = monthStart, yesterday
	case LastMonth:
		start = monthStart.AddDate(0, -1, 0)
		end = EndOfDay(monthStart.AddDate(0, 0, -1))
	case ThisDayLastYear:
		start = StartOfDay(now.AddDate(-1, 0, 0))
		end = EndOfDay(start)
	case ThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end = yesterday
	default:
		start = StartOfDay(now.AddDate(0, 0, -1))
		end = yesterday
	}

	if end.After(yesterday) {
		end = yesterday
	}
	if start.After(end) {
		end = start
	}
	return Window{Start: start, End: end}
}

var dayLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

// ParseDay parses a calendar day in local time. An empty string is the zero
// time.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("filedate: invalid date %q", s)
}

// ResolveWindow builds a window from explicit bounds or a preset name. A
// preset wins when given; missing bounds stay zero so that Select picks
// nothing.
func ResolveWindow(start, end, preset string, now time.Time) (Window, error) {
	if preset != "" {
		p, ok := ParsePreset(preset)
		if !ok {
			return Window{}, eris.Errorf("filedate: unknown preset %q", preset)
		}
		return p.Range(now), nil
	}
	s, err := ParseDay(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}
