// Package google talks to the Gemini API with an API key.
package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/flarexio/ragblade/provider"
)

const (
	defaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultEmbeddingModel = "models/text-embedding-004"
)

type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

func NewClient(model string, cfg provider.Config) (*Client, error) {
	c := &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:     cfg.APIKey,
		Model:      modelName(model),
		HTTPClient: &http.Client{},
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	if c.APIKey == "" {
		return nil, fmt.Errorf("google: %w (set GOOGLE_API_KEY)", provider.ErrMissingAPIKey)
	}

	return c, nil
}

// modelName accepts both "text-embedding-004" and "models/text-embedding-004".
func modelName(model string) string {
	if model == "" || strings.HasPrefix(model, "models/") {
		return model
	}

	return "models/" + model
}

func (c *Client) header() http.Header {
	header := make(http.Header)
	header.Set("x-goog-api-key", c.APIKey)
	return header
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type batchEmbedContentsRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchEmbedContentsResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed calls batchEmbedContents so ingestion batches cost one request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := batchEmbedContentsRequest{
		Requests: make([]embedContentRequest, len(texts)),
	}

	for i, text := range texts {
		req.Requests[i] = embedContentRequest{
			Model:   c.Model,
			Content: content{Parts: []part{{Text: text}}},
		}
	}

	url := c.BaseURL + "/" + c.Model + ":batchEmbedContents"

	var resp batchEmbedContentsResponse
	if err := provider.PostJSON(ctx, c.HTTPClient, url, c.header(), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", provider.ErrEmptyResponse, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}

	return vectors, nil
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// Generate calls generateContent and joins the text parts of the first
// candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}

	url := c.BaseURL + "/" + c.Model + ":generateContent"

	var resp generateContentResponse
	if err := provider.PostJSON(ctx, c.HTTPClient, url, c.header(), req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", provider.ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return sb.String(), nil
}

func NewEmbedder(model string, cfg provider.Config) (provider.Embedder, error) {
	if model == "" {
		model = defaultEmbeddingModel
	}

	c, err := NewClient(model, cfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func NewGenerator(model string, cfg provider.Config) (provider.Generator, error) {
	if model == "" {
		return nil, fmt.Errorf("google: model is required")
	}

	c, err := NewClient(model, cfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}
