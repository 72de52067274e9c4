package contract

import (
	"context"

	"ai-storefront-be/internal/model"
	"ai-storefront-be/pkg/convo/retrieval"
)

type CatalogDocumentRepository interface {
	CreateBulk(ctx context.Context, docs []*model.CatalogDocument) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)

	// Search satisfies retrieval.VectorIndex.
	Search(ctx context.Context, queryVector []float32, limit int, conditions []retrieval.Condition, threshold float64) ([]retrieval.ScoredDocument, error)
}
