package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"

	"github.com/flarexio/ragblade"
)

// DefaultTimeout bounds a request whose context has no deadline. It covers
// a full answer including generation retries.
var DefaultTimeout = 2 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *ragblade.EndpointSet {
	return &ragblade.EndpointSet{
		Answer:      AnswerEndpoint(nc, prefix+".answer"),
		Ingest:      IngestEndpoint(nc, prefix+".ingest"),
		IngestBatch: IngestBatchEndpoint(nc, prefix+".ingest"),
		Retrieve:    RetrieveEndpoint(nc, prefix+".retrieve"),
	}
}

func doRequest(ctx context.Context, nc *nats.Conn, topic string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	msg := nats.NewMsg(topic)
	msg.Data = data

	if id := ragblade.RequestIDFromContext(ctx); id != "" {
		msg.Header.Set(RequestIDHeader, id)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, &ragblade.Error{
			Component: ragblade.ComponentRemote,
			Kind:      ragblade.ErrUpstreamUnavailable,
			Err:       err,
		}
	}

	return resp, nil
}

func AnswerEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.AnswerRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := doRequest(ctx, nc, topic, req)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var answer *ragblade.Answer
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return answer, nil
	}
}

func IngestEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	batch := IngestBatchEndpoint(nc, topic)

	return func(ctx context.Context, request any) (any, error) {
		doc, ok := request.(ragblade.IngestRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		return batch(ctx, ragblade.IngestBatchRequest{
			Documents: []ragblade.Document{doc},
		})
	}
}

func IngestBatchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.IngestBatchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := doRequest(ctx, nc, topic, req)
		if err != nil {
			return nil, err
		}

		return decodeIngestResponse(resp)
	}
}

// decodeIngestResponse returns the stored count alongside a remote error
// when the reply carries one.
func decodeIngestResponse(msg *nats.Msg) (any, error) {
	var result ragblade.IngestResponse

	if err := Error(msg); err != nil {
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &result) != nil {
			return nil, err
		}

		return result, err
	}

	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func RetrieveEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.RetrieveRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := doRequest(ctx, nc, topic, req)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var result ragblade.RetrievalResult
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}
