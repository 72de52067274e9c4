package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"ai-storefront-be/internal/dto"
	"ai-storefront-be/internal/model"
	"ai-storefront-be/internal/repository/contract"
	"ai-storefront-be/pkg/embedding"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the catalog indexing topic: each message is one
// corpus document that gets embedded and persisted to the vector store.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	docRepo           contract.CatalogDocumentRepository
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	docRepo contract.CatalogDocumentRepository,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		docRepo:           docRepo,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexCatalogDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal index message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if payload.DocID == "" || payload.Content == "" {
		log.Printf("[ERROR] Index message missing doc_id or content, dropping")
		msg.Ack()
		return
	}

	res, err := cs.embeddingProvider.Generate(payload.Content, "RETRIEVAL_DOCUMENT")
	if err != nil {
		log.Printf("[ERROR] Failed to embed document %s: %v", payload.DocID, err)
		msg.Nack() // Retriable
		return
	}

	metadata := payload.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["doc_type"] = payload.DocType
	if payload.ProductID != "" {
		metadata["product_id"] = payload.ProductID
	}

	doc := &model.CatalogDocument{
		Id:             uuid.New(),
		DocId:          payload.DocID,
		Content:        payload.Content,
		Metadata:       metadata,
		EmbeddingValue: toVector(res.Embedding.Values),
		DocType:        payload.DocType,
		ProductId:      payload.ProductID,
		CreatedAt:      time.Now(),
	}

	if err := cs.docRepo.CreateBulk(ctx, []*model.CatalogDocument{doc}); err != nil {
		log.Printf("[ERROR] Failed to persist document %s: %v", payload.DocID, err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Indexed document %s (%s)", payload.DocID, payload.DocType)
	msg.Ack()
}

func toVector(values []float32) pgvector.Vector {
	return pgvector.NewVector(values)
}
