package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation is returned by Process once the node has terminated.
	ErrContractViolation = errors.New("frame: process called on a terminated node")

	// ErrInitialization matches every *InitError via errors.Is.
	ErrInitialization = errors.New("frame: implementation initialization failed")

	// ErrPortFull is returned when a non-blocking post finds the peer's queue full.
	ErrPortFull = errors.New("frame: message port full")

	// ErrPortClosed is returned when posting on a closed port.
	ErrPortClosed = errors.New("frame: message port closed")
)

// InitError reports an implementation that could not be resolved into a
// per-frame callable. It is raised on the first frame and never retried.
type InitError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame: %s implementation: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("frame: %s implementation: %s", e.Kind, e.Reason)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInitialization.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}
