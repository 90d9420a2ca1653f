package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitCountRe   = regexp.MustCompile(`(\d+)\s*(piece|tender|bite|tenders|bites)`)
	saladTenderRe = regexp.MustCompile(`(\d+)\s*tenders`)

	saucedMarkers   = []string{"-sauced", " sauced", " mixed sauce"}
	saucedStripRe   = regexp.MustCompile(`(?i)-sauced| sauced| mixed sauce`)
	originalStripRe = regexp.MustCompile(`(?i)[- ]original\b`)
)

// IsSauced reports whether name is a sauced variant of another item.
func IsSauced(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range saucedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// bundleUnits are catering bundles whose sauce portion is fixed.
var bundleUnits = []struct {
	match func(string) bool
	units int
}{
	{hasPrefix("cat-lunch boxes", "cat-snack wraps", "lunch boxes-ezcatr", "snack wraps-ezcatr", "cat- tender bites box"), 1},
	{containsAny("addon-saladtenders"), 1},
	{containsAny("tailgate box (10)", "tailgate package"), 10},
	{containsAny("50 for $50"), 50},
}

// SauceUnitCount estimates how many portions of sauce an original item
// takes. It returns false when no rule applies.
func SauceUnitCount(name, category string) (int, bool) {
	lower := strings.ToLower(name)

	if m := unitCountRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}

	if strings.Contains(lower, "sandwich") || strings.Contains(lower, "wrap") {
		return 1, true
	}

	if category == CategoryFreshSalads {
		if m := saladTenderRe.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
		if !strings.Contains(lower, "side salad") && !strings.Contains(lower, "mods") {
			return 1, true
		}
	}

	for _, b := range bundleUnits {
		if b.match(lower) {
			return b.units, true
		}
	}
	return 0, false
}

// OriginalName strips the sauced markers from a variant name.
func OriginalName(name string) string {
	return strings.TrimSpace(saucedStripRe.ReplaceAllString(name, ""))
}

// baseName strips an "Original" marker so "MEALS-5 Original" and the
// stripped "MEALS-5" compare equal.
func baseName(name string) string {
	return strings.TrimSpace(originalStripRe.ReplaceAllString(name, ""))
}

// isOriginalOf reports whether org is the original that sauced derives from.
func isOriginalOf(org, sauced *Item) bool {
	if !org.IsOriginal || org.Category != sauced.Category {
		return false
	}
	orgName := strings.ToLower(strings.TrimSpace(org.Name))
	candidate := strings.ToLower(OriginalName(sauced.Name))
	if orgName == candidate || strings.ToLower(baseName(org.Name)) == candidate {
		return true
	}
	lower := strings.ToLower(sauced.Name)
	return strings.HasPrefix(lower, orgName+"-") &&
		(strings.Contains(lower, "sauced") || strings.Contains(lower, "mixed sauce"))
}

// linkOriginals sets OriginalID on every sauced item whose original is in
// items. The first matching original in item order wins.
func linkOriginals(items []*Item) {
	for _, it := range items {
		if it.IsOriginal {
			continue
		}
		for _, org := range items {
			if isOriginalOf(org, it) {
				it.OriginalID = org.ID
				break
			}
		}
	}
}
