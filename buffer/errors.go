package buffer

import "errors"

var (
	// ErrLoading is returned when contents are read or written before the
	// initial load has completed. It signals a caller bug: wait on Ready or
	// Wait before touching contents.
	ErrLoading = errors.New("buffer is still loading")

	// ErrClosed is returned by SetContents after Close.
	ErrClosed = errors.New("buffer is closed")
)
