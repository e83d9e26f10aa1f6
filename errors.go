package ragblade

import (
	"context"
	"errors"
	"fmt"

	"github.com/flarexio/ragblade/vector"
)

// Error kinds. Every error returned by the service wraps exactly one of them,
// except caller cancellation which only wraps the context error.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrConfiguration         = errors.New("configuration error")
	ErrConfigurationMismatch = errors.New("configuration mismatch")
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrUpstreamRejected      = errors.New("upstream rejected")
	ErrCollectionNotFound    = errors.New("collection not found")
)

type Component string

const (
	ComponentConfig    Component = "config"
	ComponentEmbedder  Component = "embedder"
	ComponentStore     Component = "vector_store"
	ComponentRetriever Component = "retriever"
	ComponentPrompt    Component = "prompt_assembler"
	ComponentGenerator Component = "generator"
	ComponentPipeline  Component = "pipeline"
	ComponentIngest    Component = "ingest"
	ComponentRemote    Component = "remote"
)

// Error carries the failing component, the error kind and the underlying
// cause. errors.Is matches both Kind and Err.
type Error struct {
	Component Component
	Kind      error
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == nil:
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Component, e.Kind)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Component, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

func newError(component Component, kind error, err error) *Error {
	return &Error{
		Component: component,
		Kind:      kind,
		Err:       err,
	}
}

// wrapError tags err with component unless it already is an *Error. Store
// level sentinels are mapped onto service kinds.
func wrapError(component Component, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return newError(component, nil, err)

	case errors.Is(err, context.DeadlineExceeded):
		return newError(component, ErrUpstreamUnavailable, err)

	case errors.Is(err, vector.ErrCollectionNotFound):
		return newError(component, ErrCollectionNotFound, err)

	case errors.Is(err, vector.ErrDimensionMismatch):
		return newError(component, ErrConfigurationMismatch, err)

	case errors.Is(err, vector.ErrInvalidK),
		errors.Is(err, vector.ErrEmptyEmbedding):
		return newError(component, ErrInvalidInput, err)
	}

	return newError(component, ErrUpstreamUnavailable, err)
}

// KindOf returns the error kind of err, or nil when err carries none.
func KindOf(err error) error {
	kinds := []error{
		ErrInvalidInput,
		ErrConfiguration,
		ErrConfigurationMismatch,
		ErrUpstreamUnavailable,
		ErrUpstreamRejected,
		ErrCollectionNotFound,
	}

	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}
