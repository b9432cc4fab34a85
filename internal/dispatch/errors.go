package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBound is returned by Handle before the adapter has a dispatcher.
	ErrNotBound = errors.New("dispatch: adapter is not bound to a dispatcher")
	// ErrIO matches every failure raised while forwarding a request.
	ErrIO = errors.New("dispatch: i/o failure")
)

// IOError wraps a failure of the inner dispatcher.
type IOError struct {
	Adapter string
	Path    string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Adapter, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports ErrIO as a match.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
