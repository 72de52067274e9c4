package dto

// IndexCatalogDocumentMessage travels over the ingestion pubsub topic from
// the publisher to the embedding consumer.
type IndexCatalogDocumentMessage struct {
	DocID     string                 `json:"doc_id"`
	DocType   string                 `json:"doc_type"`
	ProductID string                 `json:"product_id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
}
