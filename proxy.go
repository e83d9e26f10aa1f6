package ragblade

import (
	"context"
	"errors"
)

// ProxyMiddleware turns a remote EndpointSet into a Service. The wrapped
// Service is ignored.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Answer(ctx context.Context, query string) (*Answer, error) {
	resp, err := mw.endpoints.Answer(ctx, AnswerRequest{Query: query})
	if err != nil {
		return nil, err
	}

	answer, ok := resp.(*Answer)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return answer, nil
}

func (mw *proxyMiddleware) Ingest(ctx context.Context, doc Document) error {
	_, err := mw.endpoints.Ingest(ctx, doc)
	return err
}

func (mw *proxyMiddleware) IngestBatch(ctx context.Context, docs []Document) (int, error) {
	resp, err := mw.endpoints.IngestBatch(ctx, IngestBatchRequest{Documents: docs})

	result, ok := resp.(IngestResponse)
	if err != nil {
		if ok {
			return result.Count, err
		}

		return 0, err
	}

	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Count, nil
}

func (mw *proxyMiddleware) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	resp, err := mw.endpoints.Retrieve(ctx, RetrieveRequest{Query: query})
	if err != nil {
		return nil, err
	}

	result, ok := resp.(RetrievalResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result, nil
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}
