package pricing

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Category values.
const (
	CategorySandwichesWraps  = "sandwiches_wraps"
	CategoryLittleMagoos     = "for_the_little_magoos"
	CategoryCraftDrinks      = "craft_drinks"
	CategoryTenderMeals      = "tender_meals"
	CategoryTendersForTheFam = "tenders_for_the_fam"
	CategoryByThePiece       = "by_the_piece"
	CategoryFreshSalads      = "fresh_made_salads"
	CategorySides            = "sides"
	CategoryInStoreCatering  = "instore_catering"
	CategoryEZCater          = "ez_cater"
	Category3PD              = "3pd"
	CategoryOddsAndEnds      = "odds_and_ends"
	CategoryUncategorized    = "uncategorized"

	// CategoryAll is the pseudo-category used by pickers.
	CategoryAll = "all"
)

// categoryLabels maps display names used in exports to category values.
var categoryLabels = map[string]string{
	"Sandwiches & Wraps":     CategorySandwichesWraps,
	"For The Little Magoo's": CategoryLittleMagoos,
	"Craft Drinks":           CategoryCraftDrinks,
	"Tender Meals":           CategoryTenderMeals,
	"Tenders For The Fam":    CategoryTendersForTheFam,
	"By The Piece":           CategoryByThePiece,
	"Fresh-Made Salads":      CategoryFreshSalads,
	"Sides":                  CategorySides,
	"InStore Catering":       CategoryInStoreCatering,
	"EZ Cater":               CategoryEZCater,
	"3PD":                    Category3PD,
	"Odds and Ends":          CategoryOddsAndEnds,
}

// CategoryFromLabel maps a display label to its category value.
func CategoryFromLabel(label string) (string, bool) {
	v, ok := categoryLabels[strings.TrimSpace(label)]
	return v, ok
}

// CategoryLabel returns the display name for a category value.
func CategoryLabel(value string) string {
	for label, v := range categoryLabels {
		if v == value {
			return label
		}
	}
	return cases.Title(language.English).String(strings.ReplaceAll(value, "_", " "))
}

// Rule assigns Category to names that satisfy Match. Match receives the
// lower-cased, trimmed item name.
type Rule struct {
	Name     string
	Category string
	Match    func(lower string) bool
}

func hasSuffix(suffixes ...string) func(string) bool {
	return func(s string) bool {
		for _, x := range suffixes {
			if strings.HasSuffix(s, x) {
				return true
			}
		}
		return false
	}
}

func hasPrefix(prefixes ...string) func(string) bool {
	return func(s string) bool {
		for _, x := range prefixes {
			if strings.HasPrefix(s, x) {
				return true
			}
		}
		return false
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, x := range subs {
			if strings.Contains(s, x) {
				return true
			}
		}
		return false
	}
}

func word(pattern string) func(string) bool {
	re := regexp.MustCompile(`\b(?:` + pattern + `)\b`)
	return re.MatchString
}

// Rules is evaluated top to bottom and the first match wins. Channel suffixes
// must stay ahead of the prefix families, and those ahead of the keyword
// catch-alls.
var Rules = []Rule{
	{"third-party delivery", Category3PD, hasSuffix("-3pd", " 3pd", "(3pd)")},
	{"caterer", CategoryEZCater, containsAny("-ezcatr", " ezcatr", "ezcater", "-caterer", " caterer")},

	{"kids prefix", CategoryLittleMagoos, hasPrefix("meals-kid", "kid-", "kids-", "kid ", "kids ")},
	{"by the piece prefix", CategoryByThePiece, hasPrefix("btp-", "piece-", "pieces-", "by the piece", "ala-")},
	{"catering prefix", CategoryInStoreCatering, hasPrefix("cat-", "cat ", "catering-", "addon-")},
	{"sandwich or wrap prefix", CategorySandwichesWraps, hasPrefix("sand-", "sandwich", "wrap", "sw-")},
	{"meal prefix", CategoryTenderMeals, hasPrefix("meals-", "meal-")},
	{"salad prefix", CategoryFreshSalads, hasPrefix("salad", "sal-")},
	{"side prefix", CategorySides, hasPrefix("side", "sides-")},
	{"drink prefix", CategoryCraftDrinks, hasPrefix("drink", "bev-", "beverage")},
	{"family prefix", CategoryTendersForTheFam, hasPrefix("family", "fam-", "fam ")},

	{"sandwich keyword", CategorySandwichesWraps, word(`sandwich(?:es)?|wraps?`)},
	{"salad keyword", CategoryFreshSalads, word(`salads?`)},
	{"family keyword", CategoryTendersForTheFam, word(`family|fam`)},
	{"drink keyword", CategoryCraftDrinks, word(`lemonade|tea|soda|fountain|drinks?`)},
	{"meal keyword", CategoryTenderMeals, word(`meals?|combo`)},
	{"piece keyword", CategoryByThePiece, word(`\d+\s*(?:pc|piece|pieces|tenders?)`)},
	{"side keyword", CategorySides, word(`fries|mac|slaw|sides?|tots`)},
	{"odds keyword", CategoryOddsAndEnds, word(`sauces?|dressing|extra|cookies?|dessert|bag|utensils?`)},
}

// Classify returns the category of an item name using Rules.
func Classify(name string) string {
	return ClassifyWith(Rules, name)
}

// ClassifyWith dispatches name over rules in order.
func ClassifyWith(rules []Rule, name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return CategoryUncategorized
	}
	for _, r := range rules {
		if r.Match(lower) {
			return r.Category
		}
	}
	return CategoryUncategorized
}

// CategoryOption is one entry of a category picker.
type CategoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Categories returns the distinct categories of items sorted by label,
// preceded by an "All Categories" entry.
func Categories(items []Item) []CategoryOption {
	seen := make(map[string]bool)
	var opts []CategoryOption
	for _, it := range items {
		if it.Category == "" || seen[it.Category] {
			continue
		}
		seen[it.Category] = true
		opts = append(opts, CategoryOption{Value: it.Category, Label: CategoryLabel(it.Category)})
	}

	col := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(opts, func(i, j int) bool {
		return col.CompareString(opts[i].Label, opts[j].Label) < 0
	})

	return append([]CategoryOption{{Value: CategoryAll, Label: "All Categories"}}, opts...)
}
