package ragblade

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// InstrumentingMiddleware records request counts, latencies and dropped
// prompt documents into reg.
func InstrumentingMiddleware(reg stdprometheus.Registerer) ServiceMiddleware {
	requestCount := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: "ragblade",
		Name:      "requests_total",
		Help:      "Number of requests received.",
	}, []string{"method", "kind"})

	requestLatency := stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: "ragblade",
		Name:      "request_duration_seconds",
		Help:      "Request latency in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{"method"})

	truncatedDocs := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: "ragblade",
		Name:      "prompt_truncated_documents_total",
		Help:      "Number of retrieved documents dropped to fit the prompt.",
	}, []string{})

	ingestedDocs := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: "ragblade",
		Name:      "ingested_documents_total",
		Help:      "Number of documents stored.",
	}, []string{})

	reg.MustRegister(requestCount, requestLatency, truncatedDocs, ingestedDocs)

	return func(next Service) Service {
		return &instrumentingMiddleware{
			requestCount:   kitprometheus.NewCounter(requestCount),
			requestLatency: kitprometheus.NewHistogram(requestLatency),
			truncatedDocs:  kitprometheus.NewCounter(truncatedDocs),
			ingestedDocs:   kitprometheus.NewCounter(ingestedDocs),
			next:           next,
		}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	truncatedDocs  metrics.Counter
	ingestedDocs   metrics.Counter
	next           Service
}

func (mw *instrumentingMiddleware) observe(method string, begin time.Time, err error) {
	kind := "none"
	if err != nil {
		kind = "unknown"
		if k := KindOf(err); k != nil {
			kind = k.Error()
		}
	}

	mw.requestCount.With("method", method, "kind", kind).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw *instrumentingMiddleware) Answer(ctx context.Context, query string) (answer *Answer, err error) {
	defer func(begin time.Time) {
		mw.observe("answer", begin, err)

		if answer != nil && answer.TruncatedCount > 0 {
			mw.truncatedDocs.Add(float64(answer.TruncatedCount))
		}
	}(time.Now())

	return mw.next.Answer(ctx, query)
}

func (mw *instrumentingMiddleware) Ingest(ctx context.Context, doc Document) (err error) {
	defer func(begin time.Time) {
		mw.observe("ingest", begin, err)

		if err == nil {
			mw.ingestedDocs.Add(1)
		}
	}(time.Now())

	return mw.next.Ingest(ctx, doc)
}

func (mw *instrumentingMiddleware) IngestBatch(ctx context.Context, docs []Document) (count int, err error) {
	defer func(begin time.Time) {
		mw.observe("ingest_batch", begin, err)
		mw.ingestedDocs.Add(float64(count))
	}(time.Now())

	return mw.next.IngestBatch(ctx, docs)
}

func (mw *instrumentingMiddleware) Retrieve(ctx context.Context, query string) (result RetrievalResult, err error) {
	defer func(begin time.Time) {
		mw.observe("retrieve", begin, err)
	}(time.Now())

	return mw.next.Retrieve(ctx, query)
}

func (mw *instrumentingMiddleware) Close() error {
	return mw.next.Close()
}
