// Package vertexai embeds text through the Vertex AI predict endpoint using
// application default credentials.
package vertexai

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/flarexio/ragblade/provider"
)

const (
	defaultLocation   = "us-central1"
	defaultModel      = "text-embedding-004"
	defaultScopeCloud = "https://www.googleapis.com/auth/cloud-platform"
)

type Client struct {
	ProjectID string
	Location  string
	Model     string
	BaseURL   string

	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

func NewClient(ctx context.Context, model string, cfg provider.Config, ts oauth2.TokenSource) (*Client, error) {
	c := &Client{
		ProjectID:  cfg.ProjectID,
		Location:   cfg.Location,
		Model:      model,
		BaseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
	}

	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	if c.ProjectID == "" {
		return nil, fmt.Errorf("vertexai project id is required")
	}

	if c.Location == "" {
		c.Location = defaultLocation
	}

	if c.Model == "" {
		c.Model = defaultModel
	}

	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", c.Location)
	}

	if ts == nil {
		dts, err := google.DefaultTokenSource(ctx, defaultScopeCloud)
		if err != nil {
			return nil, fmt.Errorf("vertexai token source: %w", err)
		}

		ts = dts
	}

	c.tokenSource = ts
	return c, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.BaseURL, c.ProjectID, c.Location, c.Model)
}

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	Content string `json:"content"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	instances := make([]predictInstance, len(texts))
	for i, t := range texts {
		instances[i] = predictInstance{Content: t}
	}

	token, err := c.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("vertexai token: %w", err)
	}

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+token.AccessToken)

	var resp predictResponse
	err = provider.PostJSON(ctx, c.httpClient, c.endpoint(), header, predictRequest{instances}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", provider.ErrEmptyResponse, len(resp.Predictions), len(texts))
	}

	vectors := make([][]float32, len(resp.Predictions))
	for i, p := range resp.Predictions {
		vectors[i] = p.Embeddings.Values
	}

	return vectors, nil
}

func NewEmbedder(model string, cfg provider.Config) (provider.Embedder, error) {
	c, err := NewClient(context.Background(), model, cfg, nil)
	if err != nil {
		return nil, err
	}

	return c, nil
}
