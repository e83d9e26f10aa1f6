// Package hnsw keeps collections in in-memory HNSW graphs. Search is
// approximate: on large collections a true nearest neighbour can be missed.
// Documents tied at the k-th score are still ordered by insertion.
package hnsw

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/coder/hnsw"

	"github.com/flarexio/ragblade/vector"
)

func NewHNSWVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	if cfg.Persistent {
		return nil, fmt.Errorf("%w: hnsw backend is memory only", vector.ErrUnsupportedBackend)
	}

	return &hnswVectorDB{
		collections: make(map[string]*collection),
	}, nil
}

type hnswVectorDB struct {
	collections map[string]*collection
	mu          sync.RWMutex
}

func (db *hnswVectorDB) Collection(name string) (vector.Collection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.collections[name]
	if !ok {
		return nil, vector.ErrCollectionNotFound
	}

	return c, nil
}

func (db *hnswVectorDB) GetOrCreateCollection(name string) (vector.Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.collections[name]
	if !ok {
		c = &collection{
			graph:     hnsw.NewGraph[string](),
			documents: make(map[string]vector.Document),
		}

		db.collections[name] = c
	}

	return c, nil
}

func (db *hnswVectorDB) Close() error {
	return nil
}

type collection struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[string]
	documents map[string]vector.Document
	dims      int
	seq       int64
}

func (c *collection) Upsert(ctx context.Context, doc vector.Document) error {
	if len(doc.Embedding) == 0 {
		return vector.ErrEmptyEmbedding
	}

	embedding := make([]float32, len(doc.Embedding))
	copy(embedding, doc.Embedding)
	doc.Embedding = embedding

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dims != 0 && c.dims != len(embedding) {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(embedding), c.dims)
	}

	existing, ok := c.documents[doc.ID]
	switch {
	case !ok:
		doc.Seq = c.seq
		c.seq++

		c.graph.Add(hnsw.MakeNode(doc.ID, embedding))

	case !slices.Equal(existing.Embedding, embedding):
		doc.Seq = existing.Seq

		c.documents[doc.ID] = doc
		c.rebuild()

	default:
		doc.Seq = existing.Seq
	}

	c.documents[doc.ID] = doc
	c.dims = len(embedding)

	return nil
}

// rebuild replaces the graph with one built from the current documents.
// Changed vectors are rare, and a fresh graph avoids deleting nodes that may
// be layer entry points.
func (c *collection) rebuild() {
	nodes := make([]hnsw.Node[string], 0, len(c.documents))
	for id, doc := range c.documents {
		nodes = append(nodes, hnsw.MakeNode(id, doc.Embedding))
	}

	graph := hnsw.NewGraph[string]()
	graph.Add(nodes...)

	c.graph = graph
}

func (c *collection) Get(ctx context.Context, id string) (vector.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.documents[id]
	if !ok {
		return vector.Document{}, vector.ErrDocumentNotFound
	}

	return doc, nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}

	if len(embedding) == 0 {
		return nil, vector.ErrEmptyEmbedding
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph.Len() == 0 {
		return []vector.Result{}, nil
	}

	if len(embedding) != c.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(embedding), c.dims)
	}

	// one extra neighbour shows whether the k-th score is tied
	neighbors := c.graph.Search(embedding, min(k+1, c.graph.Len()))

	seen := make(map[string]struct{}, len(neighbors))
	results := make([]vector.Result, 0, len(neighbors))
	for _, n := range neighbors {
		doc, ok := c.documents[n.Key]
		if !ok {
			continue
		}

		seen[doc.ID] = struct{}{}
		results = append(results, vector.Result{
			Document:   doc,
			Similarity: vector.Cosine(embedding, doc.Embedding),
		})
	}

	results = vector.Rank(results, len(results))
	if len(results) <= k || results[k].Similarity != results[k-1].Similarity {
		return results[:min(k, len(results))], nil
	}

	// The graph returns an arbitrary subset of equally scored nodes. Collect
	// every document tied at the boundary so the earliest inserted wins.
	boundary := results[k-1].Similarity
	for id, doc := range c.documents {
		if _, ok := seen[id]; ok {
			continue
		}

		if similarity := vector.Cosine(embedding, doc.Embedding); similarity == boundary {
			results = append(results, vector.Result{
				Document:   doc,
				Similarity: similarity,
			})
		}
	}

	return vector.Rank(results, k), nil
}

func (c *collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.documents)
}
