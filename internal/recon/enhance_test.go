package recon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/directory"
	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/profile"
)

func TestEnhanceWithLocationNames(t *testing.T) {
	locs := []Location{{ID: "4145", Name: "Wildwood"}}
	rows := []field.Row{
		{"Location ID": 4145.0},
		{"Location ID": "Wildwood"},
		{"Location ID": "9999"},
	}

	got := EnhanceWithLocationNames(rows, locs, summaryProfile())
	require.Len(t, got, 3)
	assert.Equal(t, "Wildwood", got[0][LocationNameColumn])
	_, has := got[1][LocationNameColumn]
	assert.False(t, has, "non-numeric id untouched")
	_, has = got[2][LocationNameColumn]
	assert.False(t, has, "unknown id untouched")
	_, has = rows[0][LocationNameColumn]
	assert.False(t, has, "input not mutated")
}

func TestEnhanceWithLocationNames_LegacyColumns(t *testing.T) {
	got := EnhanceWithLocationNames([]field.Row{{"Store": "12"}}, []Location{{ID: "12", Name: "Ocala"}}, nil)
	assert.Equal(t, "Ocala", got[0][LocationNameColumn])
}

func TestEnhanceWithEmployeeNames(t *testing.T) {
	dir := directory.Directory{"12345": "John Doe"}
	rows := []field.Row{
		{"Employee ID": "12345"},
		{"Employee ID": "12345", "Guest Name": "Jane Guest"},
		{"Employee ID": "12345", "Guest Name": "Unknown (ID: 12345)"},
		{"Employee ID": "777"},
		{"Guest Name": ""},
	}

	got := EnhanceWithEmployeeNames(rows, dir, loyaltyProfile())
	assert.Equal(t, "John Doe", got[0]["Guest Name"])
	assert.Equal(t, "Jane Guest", got[1]["Guest Name"], "resolved names are kept")
	assert.Equal(t, "John Doe", got[2]["Guest Name"])
	assert.Equal(t, "Unknown (ID: 777)", got[3]["Guest Name"])
	assert.Equal(t, "Unknown (ID: )", got[4]["Guest Name"], "missing employee id still gets the sentinel")
}

func TestEnhanceWithEmployeeNames_NoEmployeeAccessor(t *testing.T) {
	rows := []field.Row{{"Employee ID": "1"}}
	got := EnhanceWithEmployeeNames(rows, directory.Directory{"1": "A"}, summaryProfile())
	assert.Equal(t, rows, got)
}

func TestRollUp(t *testing.T) {
	rows := []field.Row{
		{"Location ID": "4145", "Location Name": "Wildwood", "Total Checks": 200.0, "Loyalty Scans": 50.0},
		{"Location ID": "4145", "Location Name": "Wildwood", "Total Checks": 100.0, "Loyalty Scans": 25.0},
		{"Location": "Ocala", "Total Checks": 0.0, "Loyalty Scans": 0.0},
	}
	got := RollUp(rows, profile.Builtins()[profile.ScanRollUp])
	require.Len(t, got, 2)

	assert.Equal(t, "4145", got[0]["Location ID"])
	assert.Equal(t, "Wildwood", got[0]["Location Name"])
	assert.Equal(t, 150.0, got[0]["Avg Total Checks"])
	assert.Equal(t, 37.5, got[0]["Avg Loyalty Scans"])
	assert.Equal(t, "25.00%", got[0]["Avg Scan Rate"])
	assert.Equal(t, 2.0, got[0]["Days in Period"])

	assert.Equal(t, "Ocala", got[1]["Location Name"])
	assert.Equal(t, "0%", got[1]["Avg Scan Rate"])
}

func TestIsTestLocation(t *testing.T) {
	for _, name := range []string{"TEST", "Template-Base", "Test 12", "lab test 3", "Orlando HQ Lab", "Winter Park New Menu Store"} {
		assert.True(t, IsTestLocation(name), name)
	}
	for _, name := range []string{"Wildwood", "Testing Grounds", "Lab Test", "Templates"} {
		assert.False(t, IsTestLocation(name), name)
	}
}

func TestLoadLocations(t *testing.T) {
	t.Run("keyed", func(t *testing.T) {
		in := `{"4145": {"name": "Wildwood", "price_group_id": 77}, "12": {"name": "Ocala"}}`
		locs, err := LoadLocations(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, locs, 2)
		assert.Equal(t, Location{ID: "12", Name: "Ocala"}, locs[0])
		assert.Equal(t, Location{ID: "4145", Name: "Wildwood", PriceGroupID: "77"}, locs[1])
	})

	t.Run("list", func(t *testing.T) {
		in := `[{"id": 7, "name": "TEST"}, {"id": "8", "name": "Lake Mary"}]`
		locs, err := LoadLocations(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, locs, 2)
		assert.Equal(t, "7", locs[1].ID)
		assert.Equal(t, []Location{{ID: "8", Name: "Lake Mary"}}, WithoutTestLocations(locs))
	})

	t.Run("empty", func(t *testing.T) {
		locs, err := LoadLocations(strings.NewReader("  "))
		require.NoError(t, err)
		assert.Empty(t, locs)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := LoadLocations(strings.NewReader("{"))
		assert.Error(t, err)
	})
}
