package implementation

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-storefront-be/internal/model"
	"ai-storefront-be/internal/repository/contract"
	"ai-storefront-be/pkg/convo/retrieval"
)

type CatalogDocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogDocumentRepository(db *gorm.DB) contract.CatalogDocumentRepository {
	return &CatalogDocumentRepositoryImpl{db: db}
}

func (r *CatalogDocumentRepositoryImpl) CreateBulk(ctx context.Context, docs []*model.CatalogDocument) error {
	if len(docs) == 0 {
		return nil
	}
	// Re-ingesting the same feed upserts instead of duplicating documents.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_id"}},
			UpdateAll: true,
		}).
		Create(docs).Error
}

func (r *CatalogDocumentRepositoryImpl) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.CatalogDocument{}).Error
}

func (r *CatalogDocumentRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CatalogDocument{}).Count(&count).Error
	return count, err
}

// Search runs cosine similarity over the corpus with optional metadata
// conditions pushed into SQL. Cosine distance in pgvector is
// 1 - cosine_similarity, so 1 - (embedding_value <=> query) is the score.
func (r *CatalogDocumentRepositoryImpl) Search(ctx context.Context, queryVector []float32, limit int, conditions []retrieval.Condition, threshold float64) ([]retrieval.ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.CatalogDocument
		Similarity float64
	}
	var results []result

	vec := pgvector.NewVector(queryVector)

	q := r.db.WithContext(ctx).
		Table("catalog_documents").
		Select("catalog_documents.*, 1 - (embedding_value <=> ?) as similarity", vec).
		Where("1 - (embedding_value <=> ?) >= ?", vec, threshold)

	for _, cond := range conditions {
		switch cond.Op {
		case retrieval.OpEq:
			q = q.Where("metadata->>? = ?", cond.Field, cond.Value)
		case retrieval.OpIn:
			q = q.Where("metadata->>? IN ?", cond.Field, cond.Values)
		}
	}

	err := q.Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	docs := make([]retrieval.ScoredDocument, len(results))
	for i, res := range results {
		docs[i] = retrieval.ScoredDocument{
			ID:       res.DocId,
			Content:  res.Content,
			Metadata: res.Metadata,
			Score:    res.Similarity,
		}
	}
	return docs, nil
}
