package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
)

const (
	RequestIDHeader = "request_id"

	// ErrorKindHeader names the error kind of a failed reply. Codes alone
	// cannot tell configuration errors apart.
	ErrorKindHeader = "Ragblade-Error-Kind"
)

var kinds = map[string]error{
	"invalid_input":          ragblade.ErrInvalidInput,
	"configuration":          ragblade.ErrConfiguration,
	"configuration_mismatch": ragblade.ErrConfigurationMismatch,
	"upstream_unavailable":   ragblade.ErrUpstreamUnavailable,
	"upstream_rejected":      ragblade.ErrUpstreamRejected,
	"collection_not_found":   ragblade.ErrCollectionNotFound,
}

// ErrorCode maps an error kind to the micro service error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ragblade.ErrInvalidInput):
		return "400"
	case errors.Is(err, ragblade.ErrCollectionNotFound):
		return "404"
	case errors.Is(err, ragblade.ErrUpstreamRejected):
		return "502"
	case errors.Is(err, ragblade.ErrUpstreamUnavailable):
		return "503"
	case errors.Is(err, context.Canceled):
		return "499"
	default:
		return "500"
	}
}

// ErrorKind returns the wire name of the error kind of err, or an empty
// string when err carries none.
func ErrorKind(err error) string {
	kind := ragblade.KindOf(err)
	if kind == nil {
		return ""
	}

	for name, k := range kinds {
		if k == kind {
			return name
		}
	}

	return ""
}

func kindOf(name, code string) error {
	if kind, ok := kinds[name]; ok {
		return kind
	}

	switch code {
	case "400":
		return ragblade.ErrInvalidInput
	case "404":
		return ragblade.ErrCollectionNotFound
	case "502":
		return ragblade.ErrUpstreamRejected
	case "503":
		return ragblade.ErrUpstreamUnavailable
	default:
		return nil
	}
}

// replyError answers r with the code and kind of err. data is sent as the
// reply payload.
func replyError(r micro.Request, err error, data []byte) error {
	var opts []micro.RespondOpt
	if kind := ErrorKind(err); kind != "" {
		opts = append(opts, micro.WithHeaders(micro.Headers{
			ErrorKindHeader: []string{kind},
		}))
	}

	return r.Error(ErrorCode(err), err.Error(), data, opts...)
}

// Error decodes a micro service error reply. The returned error keeps the
// remote error kind so errors.Is works across the wire.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	if code == "499" {
		return &ragblade.Error{
			Component: ragblade.ComponentRemote,
			Err:       errors.Join(context.Canceled, errors.New(description)),
		}
	}

	return &ragblade.Error{
		Component: ragblade.ComponentRemote,
		Kind:      kindOf(msg.Header.Get(ErrorKindHeader), code),
		Err:       errors.New(code + ":" + description),
	}
}
