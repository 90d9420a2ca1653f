package filedate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		want time.Time
		ok   bool
	}{
		{"loyalty_scan_detail_01-15-2025.csv", day(2025, time.January, 15), true},
		{"loyalty_scan_summary_12-25-2024.csv", day(2024, time.December, 25), true},
		{"loyalty_data_03-20-2025.csv", day(2025, time.March, 20), true},
		{"report-06-15-2025.csv", day(2025, time.June, 15), true},
		{"data01152025.csv", day(2025, time.January, 15), true},
		{"report.csv", time.Time{}, false},
		{"data_file.csv", time.Time{}, false},
		{"", time.Time{}, false},
		{"loyalty_scan_detail_13-01-2025.csv", time.Time{}, false},
		{"loyalty_scan_detail_02-30-2025.csv", time.Time{}, false},
		{"loyalty_scan_detail_01-15-2025.csv.bak", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
				assert.Equal(t, 0, got.Hour())
			}
		})
	}
}

var files = []string{
	"loyalty_scan_detail_01-10-2025.csv",
	"loyalty_scan_detail_01-15-2025.csv",
	"loyalty_scan_detail_01-20-2025.csv",
	"loyalty_scan_summary_01-15-2025.csv",
	"loyalty_data_01-15-2025.csv",
	"other_file.csv",
}

func TestSelect_IncompleteWindowSelectsNothing(t *testing.T) {
	end := day(2025, time.January, 31)
	assert.Empty(t, Select(files, Window{}, "loyalty_scan_detail"))
	assert.Empty(t, Select(files, Window{End: end}, "loyalty_scan_detail"))
	assert.Empty(t, Select(files, Window{Start: end}, "loyalty_scan_detail"))
	assert.NotNil(t, Select(files, Window{}, "x"))
}

func TestSelect_ByType(t *testing.T) {
	w := Window{Start: day(2025, time.January, 1), End: day(2025, time.January, 31)}

	detail := Select(files, w, "loyalty_scan_detail")
	assert.Len(t, detail, 3)

	summary := Select(files, w, "loyalty_scan_summary")
	assert.Equal(t, []string{"loyalty_scan_summary_01-15-2025.csv"}, summary)

	assert.Empty(t, Select(files, w, "other"))
}

func TestSelect_ByRange(t *testing.T) {
	w := Window{Start: day(2025, time.January, 12), End: day(2025, time.January, 18)}
	assert.Equal(t, []string{"loyalty_scan_detail_01-15-2025.csv"}, Select(files, w, "loyalty_scan_detail"))
}

func TestSelect_BoundaryDayIncluded(t *testing.T) {
	// Bounds carry a time of day; the whole boundary day still counts.
	start := time.Date(2025, time.January, 15, 18, 30, 0, 0, time.Local)
	end := time.Date(2025, time.January, 15, 6, 0, 0, 0, time.Local)
	got := Select(files, Window{Start: start, End: end}, "loyalty_scan_detail")
	assert.Equal(t, []string{"loyalty_scan_detail_01-15-2025.csv"}, got)
}

func TestEndOfDay(t *testing.T) {
	e := EndOfDay(day(2025, time.March, 1))
	assert.Equal(t, 23, e.Hour())
	assert.Equal(t, 999*time.Millisecond, time.Duration(e.Nanosecond()))
}

func TestPresetRange(t *testing.T) {
	// Wednesday 2025-01-15 10:00.
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.Local)

	tests := []struct {
		preset     Preset
		start, end time.Time
	}{
		{Yesterday, day(2025, time.January, 14), day(2025, time.January, 14)},
		{WeekToDate, day(2025, time.January, 12), day(2025, time.January, 14)},
		{LastWeek, day(2025, time.January, 5), day(2025, time.January, 11)},
		{TodayLastWeek, day(2025, time.January, 8), day(2025, time.January, 8)},
		{MonthToDate, day(2025, time.January, 1), day(2025, time.January, 14)},
		{LastMonth, day(2024, time.December, 1), day(2024, time.December, 31)},
		{ThisDayLastYear, day(2024, time.January, 15), day(2024, time.January, 15)},
		{ThisYear, day(2025, time.January, 1), day(2025, time.January, 14)},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			w := tt.preset.Range(now)
			assert.True(t, tt.start.Equal(w.Start), "start %v", w.Start)
			assert.True(t, EndOfDay(tt.end).Equal(w.End), "end %v", w.End)
		})
	}
}

func TestPresetRange_FirstOfMonthCollapsesToSingleDay(t *testing.T) {
	now := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.Local)
	w := MonthToDate.Range(now)
	assert.True(t, day(2025, time.February, 1).Equal(w.Start))
	assert.True(t, w.End.Equal(w.Start), "end pulled up to start")
}

func TestParsePreset(t *testing.T) {
	p, ok := ParsePreset("month to date")
	require.True(t, ok)
	assert.Equal(t, MonthToDate, p)

	_, ok = ParsePreset("fortnight")
	assert.False(t, ok)
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2025, time.January, 15, 9, 0, 0, 0, time.Local)

	w, err := ResolveWindow("2025-01-10", "01/12/2025", "", now)
	require.NoError(t, err)
	assert.True(t, day(2025, time.January, 10).Equal(w.Start))
	assert.True(t, day(2025, time.January, 12).Equal(w.End))

	w, err = ResolveWindow("2025-01-10", "", "", now)
	require.NoError(t, err)
	assert.False(t, w.Complete())

	w, err = ResolveWindow("ignored", "", "Yesterday", now)
	require.NoError(t, err)
	assert.True(t, day(2025, time.January, 14).Equal(w.Start))

	_, err = ResolveWindow("", "", "fortnight", now)
	assert.Error(t, err)
	_, err = ResolveWindow("10-01-2025", "", "", now)
	assert.Error(t, err)
}
