package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade/provider"
)

func TestModelName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("models/text-embedding-004", modelName("text-embedding-004"))
	assert.Equal("models/text-embedding-004", modelName("models/text-embedding-004"))
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := NewEmbedder("", provider.Config{})
	assert.ErrorIs(t, err, provider.ErrMissingAPIKey)
}

func TestEmbed(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/models/text-embedding-004:batchEmbedContents", r.URL.Path)
		assert.Equal("key", r.Header.Get("x-goog-api-key"))

		var req batchEmbedContentsRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Len(req.Requests, 2)
		assert.Equal("models/text-embedding-004", req.Requests[0].Model)
		assert.Equal("red apple", req.Requests[0].Content.Parts[0].Text)

		w.Write([]byte(`{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`))
	}))
	defer srv.Close()

	embedder, err := NewEmbedder("text-embedding-004", provider.Config{BaseURL: srv.URL, APIKey: "key"})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	vectors, err := embedder.Embed(context.Background(), []string{"red apple", "blue car"})
	assert.NoError(err)
	assert.Equal([][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestGenerate(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/models/gemini-2.0-flash:generateContent", r.URL.Path)

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello, "},{"text":"world"}]}}]}`))
	}))
	defer srv.Close()

	generator, err := NewGenerator("gemini-2.0-flash", provider.Config{BaseURL: srv.URL, APIKey: "key"})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	text, err := generator.Generate(context.Background(), "hi")
	assert.NoError(err)
	assert.Equal("Hello, world", text)
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	generator, _ := NewGenerator("gemini-2.0-flash", provider.Config{BaseURL: srv.URL, APIKey: "key"})

	_, err := generator.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}
