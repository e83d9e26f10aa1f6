package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/flarexio/ragblade/provider"
)

const defaultBaseURL = "http://localhost:11434"

type Client struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func NewClient(model string, cfg provider.Config) (*Client, error) {
	if model == "" {
		return nil, errors.New("ollama: model is required")
	}

	c := &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Model:      model,
		HTTPClient: &http.Client{},
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}

	return c, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embedRequest{
		Model: c.Model,
		Input: texts,
	}

	var resp embedResponse
	if err := provider.PostJSON(ctx, c.HTTPClient, c.BaseURL+"/api/embed", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("ollama API error: %s", resp.Error)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", provider.ErrEmptyResponse, len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
	}

	var resp generateResponse
	if err := provider.PostJSON(ctx, c.HTTPClient, c.BaseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}

	if resp.Error != "" {
		return "", fmt.Errorf("ollama API error: %s", resp.Error)
	}

	return resp.Response, nil
}

func NewEmbedder(model string, cfg provider.Config) (provider.Embedder, error) {
	c, err := NewClient(model, cfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func NewGenerator(model string, cfg provider.Config) (provider.Generator, error) {
	c, err := NewClient(model, cfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}
