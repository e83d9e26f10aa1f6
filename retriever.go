package ragblade

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/vector"
)

// Retriever finds the top_k stored documents most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (RetrievalResult, error)

	// Search runs the similarity query for an already embedded query.
	Search(ctx context.Context, emb Embedding) (RetrievalResult, error)
}

func NewRetriever(embedder Embedder, db vector.VectorDB, cfg Config) Retriever {
	return &retriever{
		embedder:   embedder,
		db:         db,
		collection: cfg.CollectionName,
		topK:       cfg.Retriever.TopK,
		timeout:    cfg.Timeouts.Retrieval.Duration(),
		log: zap.L().With(
			zap.String("component", string(ComponentRetriever)),
			zap.String("collection", cfg.CollectionName),
		),
	}
}

type retriever struct {
	embedder   Embedder
	db         vector.VectorDB
	collection string
	topK       int
	timeout    time.Duration
	log        *zap.Logger
}

func (r *retriever) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return r.Search(ctx, emb)
}

func (r *retriever) Search(ctx context.Context, emb Embedding) (RetrievalResult, error) {
	if r.topK < 1 {
		return nil, newError(ComponentRetriever, ErrConfiguration, fmt.Errorf("top_k must be >= 1, got %d", r.topK))
	}

	// the query path never creates collections
	collection, err := r.db.Collection(r.collection)
	if err != nil {
		return nil, wrapError(ComponentStore, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	results, err := collection.Query(ctx, emb.Vector, r.topK)
	if err != nil {
		return nil, wrapError(ComponentStore, err)
	}

	results = vector.Rank(results, r.topK)

	retrieved := make(RetrievalResult, len(results))
	for i, result := range results {
		retrieved[i] = ScoredDocument{
			Document: DocumentFromVector(result.Document),
			Score:    result.Similarity,
		}
	}

	r.log.Debug("documents retrieved", zap.Int("count", len(retrieved)))
	return retrieved, nil
}
