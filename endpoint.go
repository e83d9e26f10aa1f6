package ragblade

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Answer      endpoint.Endpoint
	Ingest      endpoint.Endpoint
	IngestBatch endpoint.Endpoint
	Retrieve    endpoint.Endpoint
}

func MakeEndpoints(svc Service) *EndpointSet {
	return &EndpointSet{
		Answer:      AnswerEndpoint(svc),
		Ingest:      IngestEndpoint(svc),
		IngestBatch: IngestBatchEndpoint(svc),
		Retrieve:    RetrieveEndpoint(svc),
	}
}

type AnswerRequest struct {
	Query string `json:"query"`
}

func AnswerEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AnswerRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Answer(ctx, req.Query)
	}
}

type IngestRequest = Document

func IngestEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		doc, ok := request.(IngestRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		// content addressed when the caller leaves the ID out
		if doc.ID == "" {
			doc.ID = GenerateDocumentID(doc.Text, doc.Metadata)
		}

		err := svc.Ingest(ctx, doc)
		if err != nil {
			return nil, err
		}

		return IngestResponse{IDs: []string{doc.ID}, Count: 1}, nil
	}
}

type IngestBatchRequest struct {
	Documents []Document `json:"documents"`
}

type IngestResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func IngestBatchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestBatchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		ids := make([]string, len(req.Documents))
		for i := range req.Documents {
			doc := &req.Documents[i]
			if doc.ID == "" {
				doc.ID = GenerateDocumentID(doc.Text, doc.Metadata)
			}

			ids[i] = doc.ID
		}

		// documents are stored in order, so a partial ingest stored the
		// first count IDs
		count, err := svc.IngestBatch(ctx, req.Documents)
		return IngestResponse{IDs: ids[:count], Count: count}, err
	}
}

type RetrieveRequest struct {
	Query string `json:"query" form:"query"`
}

func RetrieveEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(RetrieveRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Retrieve(ctx, req.Query)
	}
}
