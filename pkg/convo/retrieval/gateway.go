package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"

	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/embedding"
)

// Condition is one filter predicate in the index's native form.
type Condition struct {
	Field  string
	Op     string // OpEq or OpIn
	Value  string
	Values []string
}

const (
	OpEq = "eq"
	OpIn = "in"
)

// ScoredDocument is a raw index hit before it becomes conversation state.
type ScoredDocument struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
	Score    float64
}

// VectorIndex is the native similarity-search surface the gateway talks to.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, conditions []Condition, threshold float64) ([]ScoredDocument, error)
}

// Config bounds one retrieval pass.
type Config struct {
	TopK           int
	ScoreThreshold float64
}

func DefaultConfig() Config {
	return Config{
		TopK:           25,
		ScoreThreshold: 0.3,
	}
}

// Gateway embeds the planned query, translates planner filters into index
// conditions and runs the search. Retrieval failures degrade to an empty
// result set; the conversation continues without grounding.
type Gateway struct {
	index    VectorIndex
	embedder embedding.EmbeddingProvider
	config   Config
	logger   *log.Logger
}

func NewGateway(index VectorIndex, embedder embedding.EmbeddingProvider, config Config, logger *log.Logger) *Gateway {
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	if config.ScoreThreshold <= 0 {
		config.ScoreThreshold = DefaultConfig().ScoreThreshold
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		index:    index,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}
}

// Search runs one retrieval pass for the given query and planner filters.
func (g *Gateway) Search(ctx context.Context, query string, filters map[string]interface{}) []state.Document {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	emb, err := g.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		g.logger.Printf("[RETRIEVAL] embedding failed: %v", err)
		return nil
	}

	conditions := TranslateFilters(filters)

	hits, err := g.index.Search(ctx, emb.Embedding.Values, g.config.TopK, conditions, g.config.ScoreThreshold)
	if err != nil {
		g.logger.Printf("[RETRIEVAL] search failed: %v", err)
		return nil
	}

	// The index returns hits ordered already; keep the guarantee local.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > g.config.TopK {
		hits = hits[:g.config.TopK]
	}

	docs := make([]state.Document, len(hits))
	for i, h := range hits {
		docs[i] = state.Document{
			ID:       h.ID,
			Content:  h.Content,
			Score:    h.Score,
			Metadata: h.Metadata,
		}
	}

	g.logger.Printf("[RETRIEVAL] %d documents for query %q (%d conditions)", len(docs), query, len(conditions))
	return docs
}

// TranslateFilters converts planner filters into native conditions.
// Scalars become equality checks, lists become membership checks, empty
// values are dropped, and price is never pushed down since the index
// cannot range-match.
func TranslateFilters(filters map[string]interface{}) []Condition {
	if len(filters) == 0 {
		return nil
	}

	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	conditions := make([]Condition, 0, len(fields))
	for _, field := range fields {
		if field == "price" || field == "price_usd" {
			continue
		}
		switch v := filters[field].(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			conditions = append(conditions, Condition{Field: field, Op: OpEq, Value: v})
		case []string:
			if len(v) == 0 {
				continue
			}
			if len(v) == 1 {
				conditions = append(conditions, Condition{Field: field, Op: OpEq, Value: v[0]})
				continue
			}
			conditions = append(conditions, Condition{Field: field, Op: OpIn, Values: v})
		case []interface{}:
			strs := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					strs = append(strs, s)
				}
			}
			if len(strs) == 0 {
				continue
			}
			if len(strs) == 1 {
				conditions = append(conditions, Condition{Field: field, Op: OpEq, Value: strs[0]})
				continue
			}
			conditions = append(conditions, Condition{Field: field, Op: OpIn, Values: strs})
		}
	}
	return conditions
}
