package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/flarexio/ragblade/provider"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultEmbeddingModel = "text-embedding-3-small"
)

type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

func NewClient(model string, cfg provider.Config) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:     cfg.APIKey,
		Model:      model,
		HTTPClient: &http.Client{},
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return c
}

func (c *Client) header() http.Header {
	header := make(http.Header)
	if c.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.APIKey)
	}

	return header
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed calls the /embeddings API.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{
		Model: c.Model,
		Input: texts,
	}

	var resp embeddingResponse
	if err := provider.PostJSON(ctx, c.HTTPClient, c.BaseURL+"/embeddings", c.header(), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", provider.ErrEmptyResponse, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= len(vectors) {
			idx = i
		}

		vectors[idx] = item.Embedding
	}

	return vectors, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate calls the /chat/completions API with the prompt as a single user
// message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatCompletionsRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	var resp chatCompletionsResponse
	if err := provider.PostJSON(ctx, c.HTTPClient, c.BaseURL+"/chat/completions", c.header(), req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", provider.ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

func NewEmbedder(model string, cfg provider.Config) (provider.Embedder, error) {
	if model == "" {
		model = defaultEmbeddingModel
	}

	return NewClient(model, cfg), nil
}

func NewGenerator(model string, cfg provider.Config) (provider.Generator, error) {
	if model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}

	return NewClient(model, cfg), nil
}
