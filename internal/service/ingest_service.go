package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ai-storefront-be/internal/dto"
	"ai-storefront-be/internal/pkg/logger"
	"ai-storefront-be/pkg/catalog"
)

type IIngestService interface {
	IngestProducts(ctx context.Context, products []catalog.Product) (int, error)
	IngestCorpusFile(ctx context.Context, path string) (int, error)
}

// ingestService turns catalog feeds into indexing messages. The consumer
// side owns embedding and persistence; this side only publishes.
type ingestService struct {
	publisher IPublisherService
	logger    logger.ILogger
}

func NewIngestService(publisher IPublisherService, sysLogger logger.ILogger) IIngestService {
	return &ingestService{
		publisher: publisher,
		logger:    sysLogger,
	}
}

// IngestProducts publishes one "product" document per catalog entry. The
// document text concatenates the searchable fields so a single embedding
// covers name, category, ingredients and tags.
func (s *ingestService) IngestProducts(ctx context.Context, products []catalog.Product) (int, error) {
	published := 0
	for _, p := range products {
		msg := dto.IndexCatalogDocumentMessage{
			DocID:     "product:" + p.ProductID,
			DocType:   "product",
			ProductID: p.ProductID,
			Content:   productDocument(&p),
			Metadata: map[string]interface{}{
				"name":     p.Name,
				"category": p.Category,
			},
		}
		if err := s.publish(ctx, &msg); err != nil {
			return published, fmt.Errorf("publish product %s: %w", p.ProductID, err)
		}
		published++
	}

	s.logger.Info("ingest", "published product documents", map[string]interface{}{
		"count": published,
	})
	return published, nil
}

// corpusEntry is one supporting document in the corpus feed: a review,
// support ticket or usage description.
type corpusEntry struct {
	DocID     string `json:"doc_id"`
	DocType   string `json:"doc_type"`
	ProductID string `json:"product_id"`
	Content   string `json:"content"`
}

// IngestCorpusFile publishes the supporting documents from a JSON array
// file. Entries without an id or content are skipped, not fatal.
func (s *ingestService) IngestCorpusFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read corpus file: %w", err)
	}

	var entries []corpusEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("parse corpus file: %w", err)
	}

	published := 0
	for _, e := range entries {
		if e.DocID == "" || e.Content == "" {
			s.logger.Warn("ingest", "skipping corpus entry without doc_id or content", nil)
			continue
		}
		if e.DocType == "" {
			e.DocType = "description"
		}
		msg := dto.IndexCatalogDocumentMessage{
			DocID:     e.DocID,
			DocType:   e.DocType,
			ProductID: e.ProductID,
			Content:   e.Content,
			Metadata:  map[string]interface{}{},
		}
		if err := s.publish(ctx, &msg); err != nil {
			return published, fmt.Errorf("publish corpus entry %s: %w", e.DocID, err)
		}
		published++
	}

	s.logger.Info("ingest", "published corpus documents", map[string]interface{}{
		"count": published,
		"file":  path,
	})
	return published, nil
}

func (s *ingestService) publish(ctx context.Context, msg *dto.IndexCatalogDocumentMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, payload)
}

func productDocument(p *catalog.Product) string {
	return fmt.Sprintf(`Product: %s
Category: %s
Description: %s
Top Ingredients: %s
Tags: %s
Price (USD): %.2f`,
		p.Name,
		p.Category,
		p.Description,
		p.TopIngredients,
		p.Tags,
		p.PriceUSD,
	)
}
