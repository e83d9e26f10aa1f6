package ragblade

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ragblade"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

// withRequestID makes sure every logged action can be correlated with the
// answer returned to the caller.
func withRequestID(ctx context.Context) (context.Context, string) {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = context.WithValue(ctx, RequestID, id)
	}

	return ctx, id
}

func (mw *loggingMiddleware) Answer(ctx context.Context, query string) (*Answer, error) {
	ctx, id := withRequestID(ctx)

	log := mw.log.With(
		zap.String("action", "answer"),
		zap.String("request_id", id),
		zap.String("query", query),
	)

	answer, err := mw.next.Answer(ctx, query)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("query answered",
		zap.Strings("retrieved_ids", answer.RetrievedIDs),
		zap.Int("truncated", answer.TruncatedCount),
	)

	return answer, nil
}

func (mw *loggingMiddleware) Ingest(ctx context.Context, doc Document) error {
	ctx, id := withRequestID(ctx)

	log := mw.log.With(
		zap.String("action", "ingest"),
		zap.String("request_id", id),
		zap.String("document_id", doc.ID),
	)

	err := mw.next.Ingest(ctx, doc)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("document ingested")
	return nil
}

func (mw *loggingMiddleware) IngestBatch(ctx context.Context, docs []Document) (int, error) {
	ctx, id := withRequestID(ctx)

	log := mw.log.With(
		zap.String("action", "ingest_batch"),
		zap.String("request_id", id),
		zap.Int("documents", len(docs)),
	)

	count, err := mw.next.IngestBatch(ctx, docs)
	if err != nil {
		log.Error(err.Error(), zap.Int("ingested", count))
		return count, err
	}

	log.Info("documents ingested", zap.Int("ingested", count))
	return count, nil
}

func (mw *loggingMiddleware) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	ctx, id := withRequestID(ctx)

	log := mw.log.With(
		zap.String("action", "retrieve"),
		zap.String("request_id", id),
		zap.String("query", query),
	)

	result, err := mw.next.Retrieve(ctx, query)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents retrieved", zap.Int("count", len(result)))
	return result, nil
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}
