package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrEmptyResponse   = errors.New("empty response")
	ErrMissingAPIKey   = errors.New("missing api key")
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator completes a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config holds the connection settings of one provider.
type Config struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKey    string `yaml:"api_key" toml:"api_key"`
	ProjectID string `yaml:"project_id" toml:"project_id"`
	Location  string `yaml:"location" toml:"location"`
}

type EmbedderFactory func(model string, cfg Config) (Embedder, error)

type GeneratorFactory func(model string, cfg Config) (Generator, error)

// Registry maps provider names to adapter factories. It is built once at
// startup and passed to the service explicitly.
type Registry struct {
	embedders  map[string]EmbedderFactory
	generators map[string]GeneratorFactory
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		embedders:  make(map[string]EmbedderFactory),
		generators: make(map[string]GeneratorFactory),
	}
}

func (r *Registry) RegisterEmbedder(name string, factory EmbedderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.embedders[name] = factory
}

func (r *Registry) RegisterGenerator(name string, factory GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generators[name] = factory
}

func (r *Registry) HasEmbedder(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.embedders[name]
	return ok
}

func (r *Registry) HasGenerator(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.generators[name]
	return ok
}

func (r *Registry) Embedders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.embedders))
	for name := range r.embedders {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func (r *Registry) Generators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func (r *Registry) NewEmbedder(name, model string, cfg Config) (Embedder, error) {
	r.mu.RLock()
	factory, ok := r.embedders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %q", ErrUnknownProvider, name)
	}

	return factory(model, cfg)
}

func (r *Registry) NewGenerator(name, model string, cfg Config) (Generator, error) {
	r.mu.RLock()
	factory, ok := r.generators[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: generation provider %q", ErrUnknownProvider, name)
	}

	return factory(model, cfg)
}
