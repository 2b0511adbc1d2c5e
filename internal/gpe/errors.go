package gpe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned during setup, before any stepping,
	// when a grid size, length, period, width or time step is unusable.
	ErrInvalidConfiguration = errors.New("gpe: invalid configuration")

	// ErrNumericalInstability is returned from the time loop when the field
	// decays to zero or picks up non-finite values.
	ErrNumericalInstability = errors.New("gpe: numerical instability")
)

// invalidf wraps ErrInvalidConfiguration with a formatted reason.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// StepError reports a breakdown inside the time loop.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
