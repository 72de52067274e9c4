package catalog

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "", 0)
}

func fixtureProducts() []Product {
	return []Product{
		{
			ProductID:      "P001",
			Name:           "Hydra Boost Moisturizer",
			Category:       "moisturizer",
			TopIngredients: "hyaluronic acid; glycerin; ceramides",
			Tags:           "hydrating|acne|oily-skin",
			PriceUSD:       24.99,
			MarginPercent:  32,
		},
		{
			ProductID:      "P002",
			Name:           "Velvet Night Cream",
			Category:       "moisturizer",
			TopIngredients: "shea butter; retinol",
			Tags:           "anti-aging|dry-skin",
			PriceUSD:       39.99,
			MarginPercent:  45,
		},
		{
			ProductID:      "P003",
			Name:           "Citrus Glow Serum",
			Category:       "serum",
			TopIngredients: "vitamin c; niacinamide",
			Tags:           "brightening|hydrating",
			PriceUSD:       29.99,
			MarginPercent:  40,
		},
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	data := `[
		{"product_id":"P001","name":"Hydra Boost Moisturizer","category":"moisturizer","top_ingredients":"hyaluronic acid; glycerin","tags":"hydrating|acne","price_usd":24.99,"margin_percent":32}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s := NewStore(testLogger())
	require.NoError(t, s.LoadFromFile(path))
	assert.Equal(t, 1, s.Len())

	p, ok := s.GetByID("P001")
	require.True(t, ok)
	assert.Equal(t, "Hydra Boost Moisturizer", p.Name)
	assert.Equal(t, []string{"hyaluronic acid", "glycerin"}, p.IngredientList())
	assert.Equal(t, []string{"hydrating", "acne"}, p.TagList())
}

func TestLoadFromFileMissing(t *testing.T) {
	s := NewStore(testLogger())
	err := s.LoadFromFile("does-not-exist.json")
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestGetByIDUnknown(t *testing.T) {
	s := NewStore(testLogger())
	s.Replace(fixtureProducts())

	_, ok := s.GetByID("P999")
	assert.False(t, ok)
}

func TestFilterByKeywordsAndConcerns(t *testing.T) {
	products := fixtureProducts()

	got := Filter(products, Constraints{
		Keywords: []string{"hydrating"},
		Concerns: []string{"acne"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "P001", got[0].ProductID)
}

func TestFilterAvoidIngredients(t *testing.T) {
	products := fixtureProducts()

	got := Filter(products, Constraints{
		Keywords:         []string{"hydrating"},
		AvoidIngredients: []string{"hyaluronic acid"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "P003", got[0].ProductID)
}

func TestFilterNameSubstring(t *testing.T) {
	products := fixtureProducts()

	got := Filter(products, Constraints{Names: []string{"velvet"}})

	require.Len(t, got, 1)
	assert.Equal(t, "P002", got[0].ProductID)
}

// A constraint set that matches nothing must leave the candidate list
// intact: downstream prefers over-inclusive to empty.
func TestFilterOverInclusiveFallback(t *testing.T) {
	products := fixtureProducts()

	got := Filter(products, Constraints{
		Keywords: []string{"nonexistent-tag"},
	})

	assert.Len(t, got, len(products))
}

func TestFilterInactiveConstraints(t *testing.T) {
	products := fixtureProducts()

	got := Filter(products, Constraints{})

	assert.Len(t, got, len(products))
}

func TestFilterEmptyInput(t *testing.T) {
	got := Filter(nil, Constraints{Keywords: []string{"hydrating"}})
	assert.Empty(t, got)
}
