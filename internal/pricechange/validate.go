package pricechange

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Limits are the business bounds checked by Validate.
type Limits struct {
	MaxPrice    float64
	LargeChange float64
}

// DefaultLimits caps prices at $999.99 and flags moves over $50.
func DefaultLimits() Limits {
	return Limits{MaxPrice: 999.99, LargeChange: 50}
}

// Validation is the outcome of Validate. Errors block submission; Warnings
// need explicit confirmation.
type Validation struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks changes against lim.
func Validate(changes []Change, lim Limits) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}}
	if len(changes) == 0 {
		v.Errors = append(v.Errors, "No price changes detected")
	}

	maxPrice := decimal.NewFromFloat(lim.MaxPrice)
	large := decimal.NewFromFloat(lim.LargeChange)
	for _, c := range changes {
		if !finite(c.OldPrice) || !finite(c.NewPrice) {
			v.Errors = append(v.Errors, fmt.Sprintf("Invalid price for %s at %s: Price must be a number", c.ItemName, c.LocationName))
			continue
		}
		newPrice := decimal.NewFromFloat(c.NewPrice)
		oldPrice := decimal.NewFromFloat(c.OldPrice)

		if newPrice.IsNegative() {
			v.Errors = append(v.Errors, fmt.Sprintf("Invalid price for %s at %s: Price cannot be negative", c.ItemName, c.LocationName))
		}
		if newPrice.GreaterThan(maxPrice) {
			v.Errors = append(v.Errors, fmt.Sprintf("Invalid price for %s at %s: Price too high (max $%s)", c.ItemName, c.LocationName, maxPrice.StringFixed(2)))
		}
		if newPrice.Sub(oldPrice).Abs().GreaterThan(large) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Large price change for %s at %s: %s → %s",
				c.ItemName, c.LocationName, oldPrice.StringFixed(2), newPrice.StringFixed(2)))
		}
	}
	v.IsValid = len(v.Errors) == 0
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
