package nats

import (
	"context"
	"encoding/json"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
)

func requestContext(r micro.Request) context.Context {
	ctx := context.Background()

	if id := r.Headers().Get(RequestIDHeader); id != "" {
		ctx = context.WithValue(ctx, ragblade.RequestID, id)
	}

	return ctx
}

func AnswerHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.AnswerRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			replyError(r, err, nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func IngestHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.IngestBatchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			// the payload reports the documents stored before the failure
			var data []byte
			if result, ok := resp.(ragblade.IngestResponse); ok {
				data, _ = json.Marshal(&result)
			}

			replyError(r, err, data)
			return
		}

		r.RespondJSON(&resp)
	}
}

func RetrieveHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ragblade.RetrieveRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			replyError(r, err, nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func AddEndpoints(group micro.Group, endpoints *ragblade.EndpointSet) error {
	if err := group.AddEndpoint("answer", AnswerHandler(endpoints.Answer)); err != nil {
		return err
	}

	if err := group.AddEndpoint("ingest", IngestHandler(endpoints.IngestBatch)); err != nil {
		return err
	}

	return group.AddEndpoint("retrieve", RetrieveHandler(endpoints.Retrieve))
}
