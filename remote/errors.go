package remote

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/tailored-agentic-units/autosave/store"
)

var (
	errMissingURL = errors.New("remote backend requires a url")
	errMissingKey = errors.New("save request missing key")
)

// toConnectError maps store errors onto Connect codes. Missing keys become
// CodeNotFound so clients can restore store.ErrKeyNotFound; everything
// else is reported as retryable.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeUnavailable, err)
	}
}
