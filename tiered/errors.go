package tiered

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCircularDependency is wrapped by every *CycleError.
	ErrCircularDependency = errors.New("tiered: circular dependency")
	// ErrForeignGoroutine is raised when an owner-checked system is used off its goroutine.
	ErrForeignGoroutine = errors.New("tiered: graph used from a foreign goroutine")
	// ErrDisposed is returned when a disposed effect is asked to run.
	ErrDisposed = errors.New("tiered: effect disposed")
)

// CycleError reports a Computed that was re-entered while it was being recomputed.
// Chain lists the in-flight nodes from the outermost one to the node that closed the cycle.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCircularDependency }
