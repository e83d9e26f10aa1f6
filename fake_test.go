package ragblade

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flarexio/ragblade/provider"
)

// bagOfWords embeds text as token counts over a vocabulary that grows as
// new tokens are seen. Equal texts always give equal vectors.
type bagOfWords struct {
	dim   int
	vocab map[string]int
	calls atomic.Int32
	mu    sync.Mutex

	// fail lets a test inject an error for the n-th call (1-based).
	fail func(call int32) error
}

func newBagOfWords(dim int) *bagOfWords {
	return &bagOfWords{
		dim:   dim,
		vocab: make(map[string]int),
	}
}

func (b *bagOfWords) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	call := b.calls.Add(1)
	if b.fail != nil {
		if err := b.fail(call); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, b.dim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			idx, ok := b.vocab[token]
			if !ok {
				idx = len(b.vocab)
				b.vocab[token] = idx
			}

			v[idx%b.dim]++
		}

		vectors[i] = v
	}

	return vectors, nil
}

// recordingGenerator answers with a fixed string and keeps the last prompt.
type recordingGenerator struct {
	response string
	prompt   atomic.Value
	calls    atomic.Int32
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	g.prompt.Store(prompt)
	return g.response, nil
}

func (g *recordingGenerator) LastPrompt() string {
	prompt, _ := g.prompt.Load().(string)
	return prompt
}

func testRegistry(e provider.Embedder, g provider.Generator) *provider.Registry {
	r := provider.NewRegistry()

	r.RegisterEmbedder("fake", func(model string, cfg provider.Config) (provider.Embedder, error) {
		return e, nil
	})

	r.RegisterGenerator("fake", func(model string, cfg provider.Config) (provider.Generator, error) {
		return g, nil
	})

	return r
}

func testConfig() Config {
	return Config{
		CollectionName:    "product_reviews",
		EmbeddingProvider: "fake",
		EmbeddingModel:    "bag-of-words",
		Retriever: RetrieverConfig{
			TopK: 2,
		},
		LLMProvider: "fake",
		LLMModel:    "recorder",
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: Duration(time.Millisecond),
			MaxInterval:     Duration(5 * time.Millisecond),
		},
	}
}
