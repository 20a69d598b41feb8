package physics

import (
	"errors"
	"fmt"
)

// Domain errors for world operations.
var (
	// ErrInvalidHandle indicates a handle that was never issued or whose
	// entity has since been removed.
	ErrInvalidHandle = errors.New("physics: invalid handle")

	// ErrInvalidConfig indicates a rejected descriptor or parameter set.
	ErrInvalidConfig = errors.New("physics: invalid configuration")

	// ErrUnstable indicates non-finite body state was detected and clamped.
	ErrUnstable = errors.New("physics: numerically unstable state clamped")
)

// StepError wraps an error with the step it occurred in.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
