package vertexai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"

	"github.com/flarexio/ragblade/provider"
)

func TestEmbed(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/projects/demo/locations/us-central1/publishers/google/models/text-embedding-004:predict", r.URL.Path)
		assert.Equal("Bearer token-123", r.Header.Get("Authorization"))

		w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.5,0.5]}}]}`))
	}))
	defer srv.Close()

	cfg := provider.Config{
		BaseURL:   srv.URL,
		ProjectID: "demo",
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-123"})

	c, err := NewClient(context.Background(), "", cfg, ts)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	vectors, err := c.Embed(context.Background(), []string{"hello"})
	assert.NoError(err)
	assert.Equal([][]float32{{0.5, 0.5}}, vectors)
}

func TestProjectRequired(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"})

	_, err := NewClient(context.Background(), "", provider.Config{}, ts)
	assert.Error(t, err)
}
