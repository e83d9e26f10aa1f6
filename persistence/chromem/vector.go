package chromem

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/ragblade/vector"
)

const seqKey = "_seq"

func NewChromemVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{
		db:          db,
		collections: make(map[string]*collection),
	}, nil
}

type chromemVectorDB struct {
	db *chromem.DB

	collections map[string]*collection
	mu          sync.Mutex
}

func (v *chromemVectorDB) Collection(name string) (vector.Collection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.collections[name]; ok {
		return c, nil
	}

	// Embeddings are always supplied by the caller, so the collection never
	// needs an embedding function of its own.
	c := v.db.GetCollection(name, nil)
	if c == nil {
		return nil, vector.ErrCollectionNotFound
	}

	return v.wrap(name, c), nil
}

func (v *chromemVectorDB) GetOrCreateCollection(name string) (vector.Collection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.collections[name]; ok {
		return c, nil
	}

	c, err := v.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	return v.wrap(name, c), nil
}

func (v *chromemVectorDB) wrap(name string, c *chromem.Collection) *collection {
	wrapped := &collection{collection: c}
	wrapped.seq.Store(int64(c.Count()))

	v.collections[name] = wrapped
	return wrapped
}

func (v *chromemVectorDB) Close() error {
	return nil
}

type collection struct {
	collection *chromem.Collection
	seq        atomic.Int64
}

func (c *collection) Upsert(ctx context.Context, doc vector.Document) error {
	if len(doc.Embedding) == 0 {
		return vector.ErrEmptyEmbedding
	}

	var seq int64
	if existing, err := c.collection.GetByID(ctx, doc.ID); err == nil {
		seq = parseSeq(existing.Metadata)
	} else {
		seq = c.seq.Add(1) - 1
	}

	metadata := make(map[string]string, len(doc.Metadata)+1)
	maps.Copy(metadata, doc.Metadata)
	metadata[seqKey] = strconv.FormatInt(seq, 10)

	// chromem may normalize the stored embedding, keep the caller's slice untouched.
	embedding := make([]float32, len(doc.Embedding))
	copy(embedding, doc.Embedding)

	document := chromem.Document{
		ID:        doc.ID,
		Metadata:  metadata,
		Embedding: embedding,
		Content:   doc.Content,
	}

	return c.collection.AddDocument(ctx, document)
}

func (c *collection) Get(ctx context.Context, id string) (vector.Document, error) {
	document, err := c.collection.GetByID(ctx, id)
	if err != nil {
		return vector.Document{}, errors.Join(vector.ErrDocumentNotFound, err)
	}

	return toDocument(document.ID, document.Content, document.Metadata, document.Embedding), nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}

	if len(embedding) == 0 {
		return nil, vector.ErrEmptyEmbedding
	}

	// chromem's own ordering does not break ties by insertion, so every
	// document is scored and ranked here. The scan is exhaustive either way.
	n := c.collection.Count()
	if n == 0 {
		return []vector.Result{}, nil
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)

	results, err := c.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, err
	}

	scored := make([]vector.Result, len(results))
	for i, result := range results {
		scored[i] = vector.Result{
			Document:   toDocument(result.ID, result.Content, result.Metadata, result.Embedding),
			Similarity: result.Similarity,
		}
	}

	return vector.Rank(scored, k), nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}

func toDocument(id, content string, metadata map[string]string, embedding []float32) vector.Document {
	doc := vector.Document{
		ID:        id,
		Content:   content,
		Embedding: embedding,
		Seq:       parseSeq(metadata),
	}

	if len(metadata) > 0 {
		doc.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			if k == seqKey {
				continue
			}

			doc.Metadata[k] = v
		}
	}

	return doc
}

func parseSeq(metadata map[string]string) int64 {
	seq, err := strconv.ParseInt(metadata[seqKey], 10, 64)
	if err != nil {
		return 0
	}

	return seq
}
