package agent

import (
	"errors"
	"fmt"
)

// ErrIterationLimit is the error text of an exhausted run.
var ErrIterationLimit = errors.New("iteration limit reached")

// LoopError is a fatal failure of an agent run. It wraps the cause with the
// dialect that was running.
type LoopError struct {
	Dialect string
	Err     error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("Agent Loop Error (%s): %v", e.Dialect, e.Err)
}

func (e *LoopError) Unwrap() error { return e.Err }
