package trajectory

import "errors"

var (
	// ErrEventNotFound indicates an event time with no matching sample in
	// the full trajectory.
	ErrEventNotFound = errors.New("trajectory: event time not found in full trajectory")

	// ErrNotIntegrated indicates a read before the first integration.
	ErrNotIntegrated = errors.New("trajectory: no integration has been run")

	// ErrNoSamples indicates a solver result without any samples.
	ErrNoSamples = errors.New("trajectory: solution has no samples")
)

// Pipeline stage names reported in dynamo.StageError.
const (
	StageSolve        = "solve"
	StageFlatten      = "flatten"
	StageMerge        = "merge"
	StageSplit        = "split"
	StageCanonicalize = "canonicalize"
)
