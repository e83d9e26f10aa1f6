package ragblade

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/ragblade/provider"
	"github.com/flarexio/ragblade/vector"
)

type Config struct {
	CollectionName    string          `yaml:"collection_name" toml:"collection_name" validate:"required"`
	EmbeddingProvider string          `yaml:"embedding_provider" toml:"embedding_provider" validate:"required"`
	EmbeddingModel    string          `yaml:"embedding_model" toml:"embedding_model" validate:"required"`
	Retriever         RetrieverConfig `yaml:"retriever" toml:"retriever"`
	LLMProvider       string          `yaml:"llm_provider" toml:"llm_provider" validate:"required"`
	LLMModel          string          `yaml:"llm_model" toml:"llm_model" validate:"required"`

	Vector    vector.Config              `yaml:"vector" toml:"vector"`
	Prompt    PromptConfig               `yaml:"prompt" toml:"prompt"`
	Retry     RetryConfig                `yaml:"retry" toml:"retry"`
	Timeouts  TimeoutConfig              `yaml:"timeouts" toml:"timeouts"`
	Cache     CacheConfig                `yaml:"cache" toml:"cache"`
	Ingest    IngestConfig               `yaml:"ingest" toml:"ingest"`
	Providers map[string]provider.Config `yaml:"providers" toml:"providers"`
}

type RetrieverConfig struct {
	TopK int `yaml:"top_k" toml:"top_k" validate:"gte=1"`
}

type PromptConfig struct {
	// MaxLength is counted in characters, 0 disables truncation.
	MaxLength int    `yaml:"max_length" toml:"max_length" validate:"gte=0"`
	Template  string `yaml:"template" toml:"template"`
}

type RetryConfig struct {
	MaxAttempts     int      `yaml:"max_attempts" toml:"max_attempts" validate:"gte=1"`
	InitialInterval Duration `yaml:"initial_interval" toml:"initial_interval"`
	MaxInterval     Duration `yaml:"max_interval" toml:"max_interval"`
}

type TimeoutConfig struct {
	Embedding  Duration `yaml:"embedding" toml:"embedding"`
	Retrieval  Duration `yaml:"retrieval" toml:"retrieval"`
	Generation Duration `yaml:"generation" toml:"generation"`
}

type CacheConfig struct {
	// QueryTTL enables the query embedding cache when positive.
	QueryTTL Duration `yaml:"query_ttl" toml:"query_ttl"`
	Capacity uint64   `yaml:"capacity" toml:"capacity"`
}

type IngestConfig struct {
	BatchSize int `yaml:"batch_size" toml:"batch_size" validate:"gte=1"`
}

const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second

	DefaultEmbeddingTimeout  = 30 * time.Second
	DefaultRetrievalTimeout  = 10 * time.Second
	DefaultGenerationTimeout = 60 * time.Second

	DefaultCacheCapacity = 1024
	DefaultBatchSize     = 32
)

// WithDefaults fills optional settings. Required settings such as top_k are
// left alone so that Validate can report them.
func (cfg Config) WithDefaults() Config {
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = vector.BackendChromem
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.Retry.InitialInterval == 0 {
		cfg.Retry.InitialInterval = Duration(DefaultInitialInterval)
	}

	if cfg.Retry.MaxInterval == 0 {
		cfg.Retry.MaxInterval = Duration(DefaultMaxInterval)
	}

	if cfg.Timeouts.Embedding == 0 {
		cfg.Timeouts.Embedding = Duration(DefaultEmbeddingTimeout)
	}

	if cfg.Timeouts.Retrieval == 0 {
		cfg.Timeouts.Retrieval = Duration(DefaultRetrievalTimeout)
	}

	if cfg.Timeouts.Generation == 0 {
		cfg.Timeouts.Generation = Duration(DefaultGenerationTimeout)
	}

	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = DefaultCacheCapacity
	}

	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = DefaultBatchSize
	}

	return cfg
}

func (cfg Config) Provider(name string) provider.Config {
	if cfg.Providers == nil {
		return provider.Config{}
	}

	return cfg.Providers[name]
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report violations with the names used in the config file
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return field.Name
		}

		return name
	})

	return v
}

// Validate reports every violation at once. Provider names are checked
// against registry when it is not nil.
func (cfg Config) Validate(registry *provider.Registry) error {
	var violations []error

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return newError(ComponentConfig, ErrConfiguration, err)
		}

		for _, fe := range fieldErrs {
			violations = append(violations, fieldError(fe))
		}
	}

	switch cfg.Vector.Backend {
	case vector.BackendChromem, vector.BackendHNSW, vector.BackendSQLite:
	default:
		violations = append(violations,
			fmt.Errorf("vector.backend: %w %q", vector.ErrUnsupportedBackend, cfg.Vector.Backend))
	}

	if registry != nil {
		if cfg.EmbeddingProvider != "" && !registry.HasEmbedder(cfg.EmbeddingProvider) {
			violations = append(violations,
				fmt.Errorf("embedding_provider: %w %q", provider.ErrUnknownProvider, cfg.EmbeddingProvider))
		}

		if cfg.LLMProvider != "" && !registry.HasGenerator(cfg.LLMProvider) {
			violations = append(violations,
				fmt.Errorf("llm_provider: %w %q", provider.ErrUnknownProvider, cfg.LLMProvider))
		}
	}

	if len(violations) == 0 {
		return nil
	}

	return newError(ComponentConfig, ErrConfiguration, errors.Join(violations...))
}

func fieldError(fe validator.FieldError) error {
	// drop the leading "Config."
	_, field, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		field = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: is required", field)
	case "gte":
		return fmt.Errorf("%s: must be >= %s, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s: failed %q", field, fe.Tag())
	}
}

// LoadConfig decodes a YAML file, or a TOML file when path ends in .toml,
// and applies defaults. The result is not validated.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		return cfg, newError(ComponentConfig, ErrConfiguration, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.NewDecoder(f).Decode(&cfg)
	default:
		err = yaml.NewDecoder(f).Decode(&cfg)
	}

	if err != nil {
		return cfg, newError(ComponentConfig, ErrConfiguration, fmt.Errorf("decode %s: %w", path, err))
	}

	return cfg.WithDefaults(), nil
}
