package ragblade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/provider"
	"github.com/flarexio/ragblade/vector"
)

type ContextKey string

const (
	RequestID ContextKey = "request_id"
)

// RequestIDFromContext returns the request ID set by a transport or
// middleware, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestID).(string)
	return id
}

// Service defines the core logic of ragblade.
type Service interface {

	// Answer runs the query pipeline: embed, retrieve, assemble, generate.
	Answer(ctx context.Context, query string) (*Answer, error)

	// Ingest embeds a single document and upserts it into the collection.
	Ingest(ctx context.Context, doc Document) error

	// IngestBatch ingests docs in embedding batches and returns how many
	// documents were stored before the first failure.
	IngestBatch(ctx context.Context, docs []Document) (int, error)

	// Retrieve returns the documents most similar to query without generating.
	Retrieve(ctx context.Context, query string) (RetrievalResult, error)

	// Close releases resources held by the service. The vector database is
	// owned by the caller.
	Close() error
}

type ServiceMiddleware func(Service) Service

// StateHook observes every state transition of an Answer request. from is
// empty for the initial RECEIVED state.
type StateHook func(requestID string, from, to State)

type Option func(*service)

func WithStateHook(hook StateHook) Option {
	return func(svc *service) {
		svc.hook = hook
	}
}

func NewService(cfg Config, db vector.VectorDB, providers *provider.Registry, opts ...Option) (Service, error) {
	cfg = cfg.WithDefaults()

	if providers == nil {
		return nil, newError(ComponentConfig, ErrConfiguration, errors.New("provider registry is required"))
	}

	if db == nil {
		return nil, newError(ComponentConfig, ErrConfiguration, errors.New("vector database is required"))
	}

	if err := cfg.Validate(providers); err != nil {
		return nil, err
	}

	ep, err := providers.NewEmbedder(cfg.EmbeddingProvider, cfg.EmbeddingModel, cfg.Provider(cfg.EmbeddingProvider))
	if err != nil {
		return nil, newError(ComponentEmbedder, ErrConfiguration, err)
	}

	gp, err := providers.NewGenerator(cfg.LLMProvider, cfg.LLMModel, cfg.Provider(cfg.LLMProvider))
	if err != nil {
		return nil, newError(ComponentGenerator, ErrConfiguration, err)
	}

	assembler, err := NewPromptAssembler(cfg.Prompt)
	if err != nil {
		return nil, err
	}

	embedder := newEmbedder(ep, cfg)
	embedder.start()

	svc := &service{
		cfg:       cfg,
		db:        db,
		embedder:  embedder,
		retriever: NewRetriever(embedder, db, cfg),
		assembler: assembler,
		generator: NewGenerator(gp, cfg),
		log: zap.L().With(
			zap.String("service", "ragblade"),
			zap.String("collection", cfg.CollectionName),
		),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

type service struct {
	cfg       Config
	db        vector.VectorDB
	embedder  *embedder
	retriever Retriever
	assembler PromptAssembler
	generator Generator
	hook      StateHook
	log       *zap.Logger
}

type run struct {
	id    string
	state State
	hook  StateHook
}

func (r *run) to(state State) {
	from := r.state
	r.state = state

	if r.hook != nil {
		r.hook(r.id, from, state)
	}
}

// enter moves to the next stage unless ctx is already done.
func (r *run) enter(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return wrapError(ComponentPipeline, err)
	}

	r.to(state)
	return nil
}

func (svc *service) Answer(ctx context.Context, query string) (*Answer, error) {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}

	r := &run{id: id, hook: svc.hook}
	r.to(StateReceived)

	answer, err := svc.answer(ctx, r, query)
	if err != nil {
		r.to(StateFailed)
		return nil, err
	}

	r.to(StateComplete)
	return answer, nil
}

func (svc *service) answer(ctx context.Context, r *run, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newError(ComponentPipeline, ErrInvalidInput, errors.New("query is empty"))
	}

	if err := r.enter(ctx, StateEmbeddingQuery); err != nil {
		return nil, err
	}

	emb, err := svc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := r.enter(ctx, StateRetrieving); err != nil {
		return nil, err
	}

	retrieved, err := svc.retriever.Search(ctx, emb)
	if err != nil {
		return nil, err
	}

	if err := r.enter(ctx, StateAssembling); err != nil {
		return nil, err
	}

	prompt, truncated, err := svc.assembler.Assemble(query, retrieved)
	if err != nil {
		return nil, err
	}

	if err := r.enter(ctx, StateGenerating); err != nil {
		return nil, err
	}

	response, err := svc.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &Answer{
		RequestID:      r.id,
		Response:       response,
		RetrievedIDs:   retrieved[:len(retrieved)-truncated].IDs(),
		TruncatedCount: truncated,
	}, nil
}

func (svc *service) Ingest(ctx context.Context, doc Document) error {
	_, err := svc.IngestBatch(ctx, []Document{doc})
	return err
}

func (svc *service) IngestBatch(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			return 0, newError(ComponentIngest, ErrInvalidInput, err)
		}
	}

	collection, err := svc.db.GetOrCreateCollection(svc.cfg.CollectionName)
	if err != nil {
		return 0, wrapError(ComponentStore, err)
	}

	size := svc.cfg.Ingest.BatchSize

	var count int
	for start := 0; start < len(docs); start += size {
		if err := ctx.Err(); err != nil {
			return count, wrapError(ComponentIngest, err)
		}

		batch := docs[start:min(start+size, len(docs))]

		embeddings, err := svc.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return count, err
		}

		for i, doc := range batch {
			if err := collection.Upsert(ctx, DocumentToVector(doc, embeddings[i])); err != nil {
				err = fmt.Errorf("upsert %s: %w", doc.ID, err)
				return count, wrapError(ComponentStore, err)
			}

			count++
		}

		svc.log.Debug("batch ingested",
			zap.Int("batch", len(batch)),
			zap.Int("total", count),
		)
	}

	return count, nil
}

func (svc *service) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newError(ComponentRetriever, ErrInvalidInput, errors.New("query is empty"))
	}

	return svc.retriever.Retrieve(ctx, query)
}

func (svc *service) Close() error {
	svc.embedder.close()
	return nil
}
