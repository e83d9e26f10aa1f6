package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade"
)

// recordedRequest captures the reply of a micro handler as a nats.Msg.
type recordedRequest struct {
	data    []byte
	headers micro.Headers
	reply   *nats.Msg
}

func (r *recordedRequest) Respond(data []byte, opts ...micro.RespondOpt) error {
	r.reply = &nats.Msg{Data: data}
	for _, opt := range opts {
		opt(r.reply)
	}

	return nil
}

func (r *recordedRequest) RespondJSON(v any, opts ...micro.RespondOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return r.Respond(data, opts...)
}

func (r *recordedRequest) Error(code, description string, data []byte, opts ...micro.RespondOpt) error {
	r.reply = &nats.Msg{
		Header: nats.Header{
			micro.ErrorHeader:     []string{description},
			micro.ErrorCodeHeader: []string{code},
		},
	}

	for _, opt := range opts {
		opt(r.reply)
	}

	r.reply.Data = data
	return nil
}

func (r *recordedRequest) Data() []byte           { return r.data }
func (r *recordedRequest) Headers() micro.Headers { return r.headers }
func (r *recordedRequest) Subject() string        { return "edges.test.ragblade.ingest" }
func (r *recordedRequest) Reply() string          { return "_INBOX.test" }

func TestIngestHandlerPartialFailure(t *testing.T) {
	assert := assert.New(t)

	failure := &ragblade.Error{
		Component: ragblade.ComponentStore,
		Kind:      ragblade.ErrUpstreamUnavailable,
		Err:       errors.New("disk full"),
	}

	endpoint := func(ctx context.Context, request any) (any, error) {
		assert.Equal("req-1", ragblade.RequestIDFromContext(ctx))
		return ragblade.IngestResponse{IDs: []string{"a", "b"}, Count: 2}, failure
	}

	data, _ := json.Marshal(ragblade.IngestBatchRequest{
		Documents: []ragblade.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	})

	r := &recordedRequest{
		data:    data,
		headers: micro.Headers{RequestIDHeader: []string{"req-1"}},
	}

	IngestHandler(endpoint)(r)

	if !assert.NotNil(r.reply) {
		return
	}

	resp, err := decodeIngestResponse(r.reply)
	assert.ErrorIs(err, ragblade.ErrUpstreamUnavailable)

	result, ok := resp.(ragblade.IngestResponse)
	if assert.True(ok) {
		assert.Equal(2, result.Count)
		assert.Equal([]string{"a", "b"}, result.IDs)
	}
}

func TestIngestHandlerSuccess(t *testing.T) {
	assert := assert.New(t)

	endpoint := func(ctx context.Context, request any) (any, error) {
		return ragblade.IngestResponse{IDs: []string{"a"}, Count: 1}, nil
	}

	r := &recordedRequest{data: []byte(`{"documents":[{"id":"a","text":"hi"}]}`)}
	IngestHandler(endpoint)(r)

	resp, err := decodeIngestResponse(r.reply)
	assert.NoError(err)
	assert.Equal(ragblade.IngestResponse{IDs: []string{"a"}, Count: 1}, resp)
}

func TestProxyIngestBatchKeepsCount(t *testing.T) {
	assert := assert.New(t)

	failure := &ragblade.Error{
		Component: ragblade.ComponentEmbedder,
		Kind:      ragblade.ErrUpstreamRejected,
		Err:       errors.New("bad request"),
	}

	handler := IngestHandler(func(ctx context.Context, request any) (any, error) {
		return ragblade.IngestResponse{IDs: []string{"a"}, Count: 1}, failure
	})

	endpoints := &ragblade.EndpointSet{
		IngestBatch: func(ctx context.Context, request any) (any, error) {
			data, err := json.Marshal(request)
			if err != nil {
				return nil, err
			}

			r := &recordedRequest{data: data}
			handler(r)

			return decodeIngestResponse(r.reply)
		},
	}

	var svc ragblade.Service
	svc = ragblade.ProxyMiddleware(endpoints)(svc)

	count, err := svc.IngestBatch(context.Background(), []ragblade.Document{{ID: "a"}, {ID: "b"}})
	assert.ErrorIs(err, ragblade.ErrUpstreamRejected)
	assert.Equal(1, count)
}
