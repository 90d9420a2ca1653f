package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSauced(t *testing.T) {
	for _, name := range []string{"MEALS-5 Sauced", "MEALS-KID-2 Piece-sauced-3PD", "FAMILY-20 Mixed Sauce", "Tenders-SAUCED"} {
		assert.True(t, IsSauced(name), name)
	}
	for _, name := range []string{"MEALS-5 Original", "Sauce Cup", "Saucedish"} {
		assert.False(t, IsSauced(name), name)
	}
}

func TestSauceUnitCount(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     int
		ok       bool
	}{
		{"MEALS-3 Piece", CategoryTenderMeals, 3, true},
		{"BTP-12 bites", CategoryByThePiece, 12, true},
		{"Buffalo Wrap", CategorySandwichesWraps, 1, true},
		{"Salad-Cobb 3 Tenders", CategoryFreshSalads, 3, true},
		{"Salad-Cobb", CategoryFreshSalads, 1, true},
		{"Side Salad", CategoryFreshSalads, 0, false},
		{"Salad Mods", CategoryFreshSalads, 0, false},
		{"CAT-Lunch Boxes", CategoryInStoreCatering, 1, true},
		{"ADDON-SaladTenders", CategoryInStoreCatering, 1, true},
		{"Tailgate Package", CategoryInStoreCatering, 10, true},
		{"50 for $50", CategoryInStoreCatering, 50, true},
		{"DRINKS-Fountain", CategoryCraftDrinks, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := SauceUnitCount(tt.name, tt.category)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestOriginalName(t *testing.T) {
	assert.Equal(t, "MEALS-KID-2 Piece-3PD", OriginalName("MEALS-KID-2 Piece-sauced-3PD"))
	assert.Equal(t, "MEALS-KID-2 Piece", OriginalName("MEALS-KID-2 Piece-Sauced"))
	assert.Equal(t, "FAMILY-20", OriginalName("FAMILY-20 Mixed Sauce"))
}

func TestLinkOriginals(t *testing.T) {
	items := []*Item{
		{ID: "p1", Name: "MEALS-5 Original", Category: CategoryTenderMeals, IsOriginal: true},
		{ID: "p2", Name: "MEALS-5 Sauced", Category: CategoryTenderMeals},
		{ID: "p3", Name: "BTP-Tender", Category: CategoryByThePiece, IsOriginal: true},
		{ID: "p4", Name: "BTP-Tender-Buffalo-Sauced", Category: CategoryByThePiece},
		{ID: "p5", Name: "FAMILY-20 Sauced", Category: CategoryTendersForTheFam},
		{ID: "p6", Name: "MEALS-5 Sauced Extra", Category: CategoryOddsAndEnds},
	}
	linkOriginals(items)

	assert.Equal(t, "p1", items[1].OriginalID)
	assert.Equal(t, "p3", items[3].OriginalID, "prefix plus sauced marker")
	assert.Empty(t, items[4].OriginalID, "no original left unresolved")
	assert.Empty(t, items[5].OriginalID, "category must match")
	assert.Empty(t, items[0].OriginalID)
}
