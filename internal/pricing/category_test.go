package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"MEALS-KID-2 Piece-sauced-3PD", Category3PD},
		{"MEALS-5 Original-3PD", Category3PD},
		{"Lunch Boxes-EZCATR", CategoryEZCater},
		{"Tender Tray Caterer", CategoryEZCater},
		{"MEALS-KID-2 Piece", CategoryLittleMagoos},
		{"BTP-1 Tender", CategoryByThePiece},
		{"CAT-Lunch Boxes", CategoryInStoreCatering},
		{"CAT-Snack Wraps", CategoryInStoreCatering},
		{"Sandwich-Buffalo", CategorySandwichesWraps},
		{"WRAP-Ranch", CategorySandwichesWraps},
		{"MEALS-5 Original", CategoryTenderMeals},
		{"MEALS-5 Sauced", CategoryTenderMeals},
		{"Salad-Cobb 3 Tenders", CategoryFreshSalads},
		{"SIDE-Fries", CategorySides},
		{"DRINKS-Fountain", CategoryCraftDrinks},
		{"FAMILY-20 Tenders", CategoryTendersForTheFam},
		{"Buffalo Chicken Sandwich", CategorySandwichesWraps},
		{"Garden Salad", CategoryFreshSalads},
		{"Sweet Tea", CategoryCraftDrinks},
		{"Steak Fries", CategorySides},
		{"Extra Sauce", CategoryOddsAndEnds},
		{"Gift Card", CategoryUncategorized},
		{"", CategoryUncategorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
			assert.Equal(t, Classify(tt.name), Classify(tt.name), "stable")
		})
	}
}

func TestClassifyWith_OrderDecides(t *testing.T) {
	rules := []Rule{
		{"wide", "wide", containsAny("box")},
		{"narrow", "narrow", hasPrefix("cat-")},
	}
	assert.Equal(t, "wide", ClassifyWith(rules, "CAT-Lunch Box"))
	assert.Equal(t, "narrow", ClassifyWith([]Rule{rules[1], rules[0]}, "CAT-Lunch Box"))
}

func TestCategoryLabels(t *testing.T) {
	v, ok := CategoryFromLabel(" Fresh-Made Salads ")
	assert.True(t, ok)
	assert.Equal(t, CategoryFreshSalads, v)
	_, ok = CategoryFromLabel("Nope")
	assert.False(t, ok)

	assert.Equal(t, "For The Little Magoo's", CategoryLabel(CategoryLittleMagoos))
	assert.Equal(t, "Uncategorized", CategoryLabel(CategoryUncategorized))
	assert.Equal(t, "Seasonal Specials", CategoryLabel("seasonal_specials"))
}

func TestCategories(t *testing.T) {
	items := []Item{
		{Category: CategorySides},
		{Category: Category3PD},
		{Category: CategorySides},
		{Category: CategoryCraftDrinks},
		{Category: CategoryUncategorized},
	}
	got := Categories(items)
	assert.Equal(t, []CategoryOption{
		{Value: CategoryAll, Label: "All Categories"},
		{Value: Category3PD, Label: "3PD"},
		{Value: CategoryCraftDrinks, Label: "Craft Drinks"},
		{Value: CategorySides, Label: "Sides"},
		{Value: CategoryUncategorized, Label: "Uncategorized"},
	}, got)

	assert.Len(t, Categories(nil), 1)
}
