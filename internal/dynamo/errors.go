package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration and trajectory processing.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the integration was interrupted.
	ErrContextCanceled = errors.New("dynamo: integration canceled by context")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrTooManySteps indicates MaxSteps ran out before t_end.
	ErrTooManySteps = errors.New("dynamo: step limit exhausted")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrShapeMismatch indicates raw solver arrays with disagreeing lengths.
	ErrShapeMismatch = errors.New("dynamo: solver output arrays have mismatched lengths")

	// ErrInvalidSpan indicates an empty or non-finite time span.
	ErrInvalidSpan = errors.New("dynamo: invalid time span")
)

// StageError names the pipeline stage in which an error occurred.
type StageError struct {
	Stage   string
	Wrapped error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Wrapped)
}

func (e *StageError) Unwrap() error {
	return e.Wrapped
}

// AtStage wraps err with the stage name, or returns nil.
func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) && se.Stage == stage {
		return err
	}
	return &StageError{Stage: stage, Wrapped: err}
}

// SolverError wraps an error with integration context.
type SolverError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SolverError) Unwrap() error {
	return e.Wrapped
}
