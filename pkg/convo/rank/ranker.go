package rank

import (
	"log"
	"sort"

	"ai-storefront-be/pkg/catalog"
	"ai-storefront-be/pkg/convo/state"
)

// TopProducts is how many recommendations a turn may surface.
const TopProducts = 3

// Ranker orders candidate products for recommendation turns. Margin is the
// primary sort key and retrieval relevance only breaks ties: surfacing the
// most profitable acceptable products is the store's policy, not an
// accident of scoring.
type Ranker struct {
	catalog *catalog.Store
	logger  *log.Logger
}

func NewRanker(cat *catalog.Store, logger *log.Logger) *Ranker {
	if logger == nil {
		logger = log.Default()
	}
	return &Ranker{
		catalog: cat,
		logger:  logger,
	}
}

// Rank resolves retrieved documents to catalog products, applies the
// shopper's constraints and returns at most TopProducts, most profitable
// first.
func (r *Ranker) Rank(st *state.ChatState) []catalog.Product {
	candidates, scores := r.resolveProducts(st.RetrievedDocs)
	if len(candidates) == 0 {
		r.logger.Printf("[RANK] no catalog products among %d documents", len(st.RetrievedDocs))
		return nil
	}

	if st.Extracted != nil {
		candidates = catalog.Filter(candidates, catalog.Constraints{
			Keywords:         st.Extracted.Keywords,
			Concerns:         st.Extracted.Concerns,
			TopIngredients:   st.Extracted.TopIngredients,
			AvoidIngredients: st.Extracted.AvoidIngredients,
			Names:            st.Extracted.Name,
		})
	}

	ranked := ByMargin(candidates, scores)
	if len(ranked) > TopProducts {
		ranked = ranked[:TopProducts]
	}

	r.logger.Printf("[RANK] %d products ranked from %d candidates", len(ranked), len(candidates))
	return ranked
}

// ResolveProducts maps product documents to catalog entries, deduplicated,
// keeping the best retrieval score per product.
func (r *Ranker) ResolveProducts(docs []state.Document) ([]catalog.Product, map[string]float64) {
	return r.resolveProducts(docs)
}

func (r *Ranker) resolveProducts(docs []state.Document) ([]catalog.Product, map[string]float64) {
	products := make([]catalog.Product, 0, len(docs))
	scores := make(map[string]float64, len(docs))
	seen := make(map[string]bool, len(docs))

	for _, doc := range docs {
		pid := doc.ProductID()
		if pid == "" {
			continue
		}
		if prev, ok := scores[pid]; !ok || doc.Score > prev {
			scores[pid] = doc.Score
		}
		if seen[pid] {
			continue
		}
		product, ok := r.catalog.GetByID(pid)
		if !ok {
			r.logger.Printf("[RANK] document references unknown product %s", pid)
			continue
		}
		seen[pid] = true
		products = append(products, product)
	}
	return products, scores
}

// ByMargin sorts products by margin descending, breaking ties with the
// retrieval score. The sort is stable so equal products keep their
// retrieval order.
func ByMargin(products []catalog.Product, scores map[string]float64) []catalog.Product {
	out := make([]catalog.Product, len(products))
	copy(out, products)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MarginPercent != out[j].MarginPercent {
			return out[i].MarginPercent > out[j].MarginPercent
		}
		return scores[out[i].ProductID] > scores[out[j].ProductID]
	})
	return out
}
