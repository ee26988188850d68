package directory

import "errors"

// ErrClosed is returned by Select after Close.
var ErrClosed = errors.New("directory is closed")
