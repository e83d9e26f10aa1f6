package ragblade

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/provider"
)

// Embedder maps text to vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (Embedding, error)
	EmbedBatch(ctx context.Context, docs []Document) ([]Embedding, error)

	// Dimension is 0 until the first successful call.
	Dimension() int
}

func NewEmbedder(p provider.Embedder, cfg Config) Embedder {
	return newEmbedder(p, cfg)
}

func newEmbedder(p provider.Embedder, cfg Config) *embedder {
	log := zap.L().With(
		zap.String("component", string(ComponentEmbedder)),
		zap.String("provider", cfg.EmbeddingProvider),
		zap.String("model", cfg.EmbeddingModel),
	)

	e := &embedder{
		provider: p,
		retrier:  retrier{cfg.Retry, log},
		timeout:  cfg.Timeouts.Embedding.Duration(),
		log:      log,
	}

	if ttl := cfg.Cache.QueryTTL.Duration(); ttl > 0 {
		e.cache = ttlcache.New(
			ttlcache.WithTTL[string, []float32](ttl),
			ttlcache.WithCapacity[string, []float32](cfg.Cache.Capacity),
			ttlcache.WithDisableTouchOnHit[string, []float32](),
		)
	}

	return e
}

type embedder struct {
	provider provider.Embedder
	retrier  retrier
	timeout  time.Duration
	cache    *ttlcache.Cache[string, []float32]
	started  atomic.Bool
	dim      atomic.Int64
	log      *zap.Logger
}

func (e *embedder) Embed(ctx context.Context, text string) (Embedding, error) {
	if strings.TrimSpace(text) == "" {
		return Embedding{}, newError(ComponentEmbedder, ErrInvalidInput, fmt.Errorf("text is empty"))
	}

	if e.cache != nil {
		if item := e.cache.Get(text); item != nil {
			return Embedding{Vector: item.Value()}, nil
		}
	}

	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}

	if e.cache != nil {
		e.cache.Set(text, vectors[0], ttlcache.DefaultTTL)
	}

	return Embedding{Vector: vectors[0]}, nil
}

func (e *embedder) EmbedBatch(ctx context.Context, docs []Document) ([]Embedding, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			return nil, newError(ComponentEmbedder, ErrInvalidInput, fmt.Errorf("document %q: text is empty", doc.ID))
		}

		texts[i] = doc.Text
	}

	vectors, err := e.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	embeddings := make([]Embedding, len(docs))
	for i, doc := range docs {
		embeddings[i] = Embedding{
			Vector:   vectors[i],
			SourceID: doc.ID,
		}
	}

	return embeddings, nil
}

func (e *embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := retry(ctx, e.retrier, ComponentEmbedder, e.timeout,
		func(ctx context.Context) ([][]float32, error) {
			return e.provider.Embed(ctx, texts)
		},
	)

	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		err := fmt.Errorf("%w: got %d embeddings for %d inputs", provider.ErrEmptyResponse, len(vectors), len(texts))
		return nil, newError(ComponentEmbedder, ErrUpstreamRejected, err)
	}

	for _, v := range vectors {
		if err := e.checkDimension(len(v)); err != nil {
			return nil, err
		}
	}

	return vectors, nil
}

// checkDimension pins the dimension on first use.
func (e *embedder) checkDimension(n int) error {
	if n == 0 {
		return newError(ComponentEmbedder, ErrUpstreamRejected, provider.ErrEmptyResponse)
	}

	if e.dim.CompareAndSwap(0, int64(n)) {
		e.log.Info("embedding dimension fixed", zap.Int("dimension", n))
		return nil
	}

	if dim := e.dim.Load(); dim != int64(n) {
		err := fmt.Errorf("expected dimension %d, got %d", dim, n)
		return newError(ComponentEmbedder, ErrConfigurationMismatch, err)
	}

	return nil
}

func (e *embedder) Dimension() int {
	return int(e.dim.Load())
}

// start runs the expiry loop of the query cache until close is called.
func (e *embedder) start() {
	if e.cache == nil || !e.started.CompareAndSwap(false, true) {
		return
	}

	go e.cache.Start()
}

// close is a no-op unless start ran; Stop blocks without a running loop.
func (e *embedder) close() {
	if e.started.CompareAndSwap(true, false) {
		e.cache.Stop()
	}
}
