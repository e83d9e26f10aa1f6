// Package builtin registers the provider adapters shipped with ragblade.
package builtin

import (
	"github.com/flarexio/ragblade/provider"
	"github.com/flarexio/ragblade/provider/google"
	"github.com/flarexio/ragblade/provider/ollama"
	"github.com/flarexio/ragblade/provider/openai"
	"github.com/flarexio/ragblade/provider/vertexai"
)

func Registry() *provider.Registry {
	r := provider.NewRegistry()

	r.RegisterEmbedder("openai", openai.NewEmbedder)
	r.RegisterEmbedder("google", google.NewEmbedder)
	r.RegisterEmbedder("ollama", ollama.NewEmbedder)
	r.RegisterEmbedder("vertexai", vertexai.NewEmbedder)

	r.RegisterGenerator("openai", openai.NewGenerator)
	r.RegisterGenerator("google", google.NewGenerator)
	r.RegisterGenerator("ollama", ollama.NewGenerator)

	return r
}
