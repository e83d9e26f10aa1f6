package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert := assert.New(t)

	assert.False(IsTransient(nil))
	assert.False(IsTransient(context.Canceled))
	assert.True(IsTransient(context.DeadlineExceeded))
	assert.True(IsTransient(fmt.Errorf("send request: %w", context.DeadlineExceeded)))

	assert.True(IsTransient(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(IsTransient(&StatusError{StatusCode: http.StatusServiceUnavailable}))
	assert.True(IsTransient(&StatusError{StatusCode: http.StatusRequestTimeout}))
	assert.False(IsTransient(&StatusError{StatusCode: http.StatusBadRequest}))
	assert.False(IsTransient(&StatusError{StatusCode: http.StatusUnauthorized}))

	assert.False(IsTransient(errors.New("malformed")))
}

func TestIsTransientRequestErrors(t *testing.T) {
	assert := assert.New(t)

	var out map[string]any

	err := PostJSON(context.Background(), http.DefaultClient, "htp://bad-scheme/embeddings", nil, map[string]string{}, &out)
	if assert.Error(err) {
		assert.False(IsTransient(err))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err = PostJSON(context.Background(), http.DefaultClient, url, nil, map[string]string{}, &out)
	if assert.Error(err) {
		assert.True(IsTransient(err))
	}
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)

	r := NewRegistry()
	r.RegisterEmbedder("fake", func(model string, cfg Config) (Embedder, error) {
		return EmbedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}), nil
	})

	assert.True(r.HasEmbedder("fake"))
	assert.False(r.HasGenerator("fake"))
	assert.Equal([]string{"fake"}, r.Embedders())
	assert.Empty(r.Generators())

	_, err := r.NewEmbedder("fake", "m", Config{})
	assert.NoError(err)

	_, err = r.NewGenerator("missing", "m", Config{})
	assert.ErrorIs(err, ErrUnknownProvider)
}

func TestPostJSON(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"denied"}`))
			return
		}

		w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}

	header := make(http.Header)
	header.Set("X-Test", "yes")

	err := PostJSON(context.Background(), srv.Client(), srv.URL, header, map[string]string{}, &out)
	assert.NoError(err)
	assert.Equal(42, out.Value)

	err = PostJSON(context.Background(), srv.Client(), srv.URL, nil, map[string]string{}, &out)

	var statusErr *StatusError
	if assert.ErrorAs(err, &statusErr) {
		assert.Equal(http.StatusUnauthorized, statusErr.StatusCode)
		assert.Contains(statusErr.Body, "denied")
	}

	assert.False(IsTransient(err))
}
