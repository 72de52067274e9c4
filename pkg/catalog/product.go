package catalog

import "strings"

// Product mirrors one row of the catalog feed (products.json).
// TopIngredients is semicolon delimited, Tags is pipe delimited.
type Product struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	TopIngredients string  `json:"top_ingredients"`
	Tags           string  `json:"tags"`
	PriceUSD       float64 `json:"price_usd"`
	MarginPercent  float64 `json:"margin_percent"`
}

// IngredientList returns the normalized ingredient names.
func (p *Product) IngredientList() []string {
	return splitList(p.TopIngredients, ";")
}

// TagList returns the normalized tags.
func (p *Product) TagList() []string {
	return splitList(p.Tags, "|")
}

func splitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
