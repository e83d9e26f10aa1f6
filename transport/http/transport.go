package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"
	"github.com/google/uuid"

	"github.com/flarexio/ragblade"
)

const RequestIDHeader = "X-Request-ID"

// StatusCode maps an error kind to the HTTP status returned to clients.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ragblade.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ragblade.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ragblade.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ragblade.ErrUpstreamRejected):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// requestContext carries the caller's X-Request-ID, or a fresh one, into the
// service and echoes it back.
func requestContext(c *gin.Context) context.Context {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}

	c.Header(RequestIDHeader, id)

	return context.WithValue(c.Request.Context(), ragblade.RequestID, id)
}

func abort(c *gin.Context, status int, err error) {
	c.String(status, err.Error())
	c.Error(err)
	c.Abort()
}

func AnswerHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := requestContext(c)
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func IngestHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := requestContext(c)
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func IngestBatchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.IngestBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := requestContext(c)
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.RetrieveRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := requestContext(c)
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
