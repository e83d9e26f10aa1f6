package ragblade

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/provider"
)

// Generator produces a response for a prompt. It sees only the prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func NewGenerator(p provider.Generator, cfg Config) Generator {
	log := zap.L().With(
		zap.String("component", string(ComponentGenerator)),
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.LLMModel),
	)

	return &generator{
		provider: p,
		retrier:  retrier{cfg.Retry, log},
		timeout:  cfg.Timeouts.Generation.Duration(),
	}
}

type generator struct {
	provider provider.Generator
	retrier  retrier
	timeout  time.Duration
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", newError(ComponentGenerator, ErrInvalidInput, errors.New("prompt is empty"))
	}

	return retry(ctx, g.retrier, ComponentGenerator, g.timeout,
		func(ctx context.Context) (string, error) {
			return g.provider.Generate(ctx, prompt)
		},
	)
}
