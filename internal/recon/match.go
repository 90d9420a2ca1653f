package recon

import "strings"

// Matcher compares a row's location value against one selected id or name.
type Matcher struct {
	Name  string
	Match func(value, candidate string) bool
}

var (
	// Exact is byte-for-byte equality.
	Exact = Matcher{Name: "exact", Match: func(v, c string) bool { return v == c }}

	// Fold is case-insensitive equality.
	Fold = Matcher{Name: "fold", Match: strings.EqualFold}

	// Contains is case-insensitive containment in either direction, so
	// "Beaumont/Wildwood, FL" matches "Wildwood" and vice versa.
	Contains = Matcher{Name: "contains", Match: func(v, c string) bool {
		lv, lc := strings.ToLower(v), strings.ToLower(c)
		return strings.Contains(lv, lc) || strings.Contains(lc, lv)
	}}
)

// DefaultMatchers is the fallback chain, most specific first.
var DefaultMatchers = []Matcher{Exact, Fold, Contains}

// MatchChain tries each matcher against every candidate before moving to the
// next tier. It returns the name of the tier that matched.
func MatchChain(chain []Matcher, value string, candidates []string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, m := range chain {
		for _, c := range candidates {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if m.Match(value, c) {
				return m.Name, true
			}
		}
	}
	return "", false
}
