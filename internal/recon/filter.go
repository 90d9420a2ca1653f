// Package recon filters aggregated report rows against the caller's
// selection and enriches them with reference data.
package recon

import (
	"strconv"
	"strings"

	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/profile"
)

// TotalMarker is the location value of summary rows embedded in exports.
const TotalMarker = "TOTAL"

// Criteria is one filter request.
type Criteria struct {
	LocationIDs []string
	DiscountIDs []string

	// Locations is the reference list used to turn selected ids into names.
	Locations []Location

	// MinUsage, when set and non-negative, drops rows below the threshold.
	MinUsage *float64
}

// Filter applies Criteria to rows under a processing profile.
type Filter struct {
	Matchers         []Matcher
	DefaultDiscounts []string
}

// NewFilter returns a filter using the default matcher chain. Requests whose
// discount ids equal defaults leave the discount filter off.
func NewFilter(defaults []string) *Filter {
	return &Filter{Matchers: DefaultMatchers, DefaultDiscounts: defaults}
}

// Apply returns the rows that pass every predicate, in input order.
func (f *Filter) Apply(rows []field.Row, c Criteria, cfg *profile.Config) []field.Row {
	if cfg == nil {
		cfg = &profile.Config{}
	}
	p := f.compile(c, cfg)

	out := make([]field.Row, 0, len(rows))
	for _, row := range rows {
		if p.keep(row) {
			out = append(out, row)
		}
	}
	return out
}

type predicate struct {
	cfg      *profile.Config
	matchers []Matcher

	locationFilter bool
	candidates     []string

	discounts map[float64]struct{}

	minUsage *float64
}

func (f *Filter) compile(c Criteria, cfg *profile.Config) *predicate {
	chain := f.Matchers
	if len(chain) == 0 {
		chain = DefaultMatchers
	}
	p := &predicate{cfg: cfg, matchers: chain}

	if len(c.LocationIDs) > 0 {
		p.locationFilter = true
		p.candidates = append(p.candidates, c.LocationIDs...)
		p.candidates = append(p.candidates, namesFor(c.LocationIDs, c.Locations)...)
	}

	if len(c.DiscountIDs) > 0 && !IsDefaultDiscountSet(c.DiscountIDs, f.DefaultDiscounts) && cfg.Discount.Present() {
		p.discounts = make(map[float64]struct{}, len(c.DiscountIDs))
		for _, id := range c.DiscountIDs {
			if n, err := strconv.ParseFloat(strings.TrimSpace(id), 64); err == nil {
				p.discounts[n] = struct{}{}
			}
		}
	}

	if c.MinUsage != nil && *c.MinUsage >= 0 && cfg.Usage.Present() {
		p.minUsage = c.MinUsage
	}
	return p
}

func (p *predicate) keep(row field.Row) bool {
	if p.cfg.Location.Present() {
		loc := strings.TrimSpace(p.cfg.Location.String(row))
		if loc == TotalMarker {
			return false
		}
		if p.locationFilter {
			if _, ok := MatchChain(p.matchers, loc, p.candidates); !ok {
				return false
			}
		}
	} else if p.locationFilter {
		return false
	}

	if p.discounts != nil {
		n, ok := p.cfg.Discount.Number(row)
		if !ok {
			return false
		}
		if _, hit := p.discounts[n]; !hit {
			return false
		}
	}

	if p.minUsage != nil {
		n, ok := p.cfg.Usage.Number(row)
		if !ok || n < *p.minUsage {
			return false
		}
	}
	return true
}

// IsDefaultDiscountSet reports whether ids is exactly the default set,
// ignoring order.
func IsDefaultDiscountSet(ids, defaults []string) bool {
	if len(defaults) == 0 || len(ids) != len(defaults) {
		return false
	}
	have := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		have[strings.TrimSpace(id)] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := have[d]; !ok {
			return false
		}
	}
	return true
}

func namesFor(ids []string, locations []Location) []string {
	byID := make(map[string]string, len(locations))
	for _, l := range locations {
		byID[l.ID] = l.Name
	}
	var names []string
	for _, id := range ids {
		if n := byID[id]; n != "" {
			names = append(names, n)
		}
	}
	return names
}
