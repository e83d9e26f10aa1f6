package vector

import (
	"context"
	"errors"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidK           = errors.New("k must be positive")
	ErrEmptyEmbedding     = errors.New("empty embedding")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnsupportedBackend = errors.New("unsupported vector backend")
)

type Backend string

const (
	BackendChromem Backend = "chromem"
	BackendHNSW    Backend = "hnsw"
	BackendSQLite  Backend = "sqlite"
)

type Config struct {
	Backend    Backend `yaml:"backend" toml:"backend"`
	Persistent bool    `yaml:"persistent" toml:"persistent"`
	Path       string  `yaml:"path" toml:"path"`
}

// VectorDB holds named collections. Collection never creates; only the
// ingestion path is allowed to call GetOrCreateCollection.
type VectorDB interface {
	Collection(name string) (Collection, error)
	GetOrCreateCollection(name string) (Collection, error)
	Close() error
}

// Collection is safe for concurrent use. Upsert replaces a document
// atomically: a concurrent Query sees either the old or the new version.
type Collection interface {
	Upsert(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)
	Count() int
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`

	// Seq is the insertion sequence assigned by the store on first upsert.
	Seq int64 `json:"seq"`
}

type Result struct {
	Document
	Similarity float32 `json:"similarity"`
}
