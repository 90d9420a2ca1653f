// Package profile defines processing profiles: how one report type's columns
// map to the logical roles the filter engine understands.
package profile

import (
	"sort"

	"github.com/sells-group/recon-cli/internal/field"
)

// Config bundles the accessors for one report type. Roles left as
// field.None are not requested; Fields holds extra output columns layered
// on top of the passthrough columns.
type Config struct {
	Name       string
	FilePrefix string
	RollUp     bool

	Location        field.Optional
	Discount        field.Optional
	Employee        field.Optional
	TransactionDate field.Optional
	Usage           field.Optional
	GuestName       field.Optional

	Fields map[string]field.Accessor
}

// FieldNames returns the output field names in sorted order.
func (c *Config) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Built-in report type names.
const (
	ScanDetail  = "loyalty_scan_detail"
	ScanSummary = "loyalty_scan_summary"
	ScanRollUp  = "loyalty_scan_rolled_up"
	LoyaltyData = "loyalty_data"
)

var (
	locationIDs   = []string{"Location ID", "LocationId", "Location_ID"}
	employeeIDs   = []string{"Employee ID", "EmployeeId", "Employee_ID"}
	discountIDs   = []string{"Discount ID", "DiscountId", "DISCL ID"}
	storeLocation = []string{"Store", "Location", "LocationID", "Location ID"}
)

func summaryFields() map[string]field.Accessor {
	return map[string]field.Accessor{
		"Loyalty Scans": field.From("Loyalty Scans").As(field.TypeNumber),
		"Scan Rate":     field.From("Scan Rate").As(field.TypeString),
	}
}

// Builtins returns the profiles for the known export types, keyed by name.
func Builtins() map[string]*Config {
	summaryLocation := append(append([]string{}, locationIDs...), "Location")

	return map[string]*Config{
		ScanDetail: {
			Name:            ScanDetail,
			FilePrefix:      ScanDetail,
			Location:        field.Some(field.From(locationIDs...).As(field.TypeString)),
			Employee:        field.Some(field.From(employeeIDs...).As(field.TypeString)),
			TransactionDate: field.Some(field.From("Date").As(field.TypeString)),
			Usage:           field.Some(field.From("Total Checks").As(field.TypeNumber)),
			Fields:          map[string]field.Accessor{},
		},
		ScanSummary: {
			Name:            ScanSummary,
			FilePrefix:      ScanSummary,
			Location:        field.Some(field.From(summaryLocation...).As(field.TypeString)),
			TransactionDate: field.Some(field.From("Date").As(field.TypeString)),
			Usage:           field.Some(field.From("Total Checks").As(field.TypeNumber)),
			Fields:          summaryFields(),
		},
		ScanRollUp: {
			Name:            ScanRollUp,
			FilePrefix:      ScanSummary,
			RollUp:          true,
			Location:        field.Some(field.From(summaryLocation...).As(field.TypeString)),
			TransactionDate: field.Some(field.From("Date").As(field.TypeString)),
			Usage:           field.Some(field.From("Total Checks").As(field.TypeNumber)),
			Fields:          summaryFields(),
		},
		LoyaltyData: {
			Name:            LoyaltyData,
			FilePrefix:      LoyaltyData,
			Location:        field.Some(field.From(storeLocation...).As(field.TypeString)),
			Discount:        field.Some(field.From(discountIDs...).As(field.TypeNumber)),
			Employee:        field.Some(field.From(employeeIDs...).As(field.TypeString)),
			TransactionDate: field.Some(field.From("Date", "Transaction Date").As(field.TypeString)),
			GuestName:       field.Some(field.From("Guest Name")),
			Fields:          map[string]field.Accessor{},
		},
	}
}
