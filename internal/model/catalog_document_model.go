package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// CatalogDocument is one indexed corpus entry: a product record, review,
// support ticket or usage description.
type CatalogDocument struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocId          string            `gorm:"type:varchar(128);uniqueIndex;not null"`
	Content        string            `gorm:"type:text"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-004 dimensions
	DocType        string            `gorm:"type:varchar(32);index"`
	ProductId      string            `gorm:"type:varchar(64);index"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (CatalogDocument) TableName() string {
	return "catalog_documents"
}
