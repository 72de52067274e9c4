package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
)

// Store holds the product catalog in memory. The catalog is small and
// read-only at runtime, so a slice with linear lookups is enough.
type Store struct {
	products []Product
	byID     map[string]int
	logger   *log.Logger
}

func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{byID: map[string]int{}, logger: logger}
}

// LoadFromFile reads the catalog feed. A missing or malformed file leaves
// the store empty rather than failing startup.
func (s *Store) LoadFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		s.logger.Printf("[CATALOG] cannot read %s: %v", path, err)
		return fmt.Errorf("read catalog file: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		s.logger.Printf("[CATALOG] cannot parse %s: %v", path, err)
		return fmt.Errorf("parse catalog file: %w", err)
	}

	s.Replace(products)
	s.logger.Printf("[CATALOG] loaded %d products from %s", len(products), path)
	return nil
}

// Replace swaps the whole catalog. Used by LoadFromFile and by tests.
func (s *Store) Replace(products []Product) {
	s.products = products
	s.byID = make(map[string]int, len(products))
	for i, p := range products {
		s.byID[p.ProductID] = i
	}
}

func (s *Store) Len() int {
	return len(s.products)
}

// GetByID returns the product with the given id, or false when unknown.
func (s *Store) GetByID(productID string) (Product, bool) {
	i, ok := s.byID[productID]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// All returns a copy of every product in the catalog.
func (s *Store) All() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Constraints are the shopper preferences a filter pass enforces.
// Empty lists are inactive and enforce nothing.
type Constraints struct {
	Keywords         []string
	Concerns         []string
	TopIngredients   []string
	AvoidIngredients []string
	Names            []string
}

func (c Constraints) empty() bool {
	return len(c.Keywords) == 0 && len(c.Concerns) == 0 && len(c.TopIngredients) == 0 &&
		len(c.AvoidIngredients) == 0 && len(c.Names) == 0
}

// Filter keeps the products matching every active constraint. When the
// constraints would eliminate everything, the input is returned unchanged:
// an over-inclusive candidate list downstream beats an empty answer.
func Filter(products []Product, c Constraints) []Product {
	if len(products) == 0 || c.empty() {
		return products
	}

	kept := make([]Product, 0, len(products))
	for _, p := range products {
		if matches(&p, c) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return products
	}
	return kept
}

func matches(p *Product, c Constraints) bool {
	tags := p.TagList()
	ingredients := p.IngredientList()

	if len(c.Keywords) > 0 && !intersects(tags, c.Keywords) {
		return false
	}
	if len(c.Concerns) > 0 && !intersects(tags, c.Concerns) {
		return false
	}
	if len(c.TopIngredients) > 0 && !intersects(ingredients, c.TopIngredients) {
		return false
	}
	if len(c.AvoidIngredients) > 0 && intersects(ingredients, c.AvoidIngredients) {
		return false
	}
	if len(c.Names) > 0 && !nameMatches(p.Name, c.Names) {
		return false
	}
	return true
}

func intersects(have, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(strings.TrimSpace(w))
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func nameMatches(name string, wanted []string) bool {
	lower := strings.ToLower(name)
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
