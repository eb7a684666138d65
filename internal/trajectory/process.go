package trajectory

import (
	"fmt"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
)

// Result holds every derived view of one integration run.
type Result struct {
	Full      []Sample
	Segments  []Segment
	Canonical []Segment
	Events    []Event
	Direction Direction
}

// SamplesOf copies the raw samples out of a solver result.
func SamplesOf(sol *dynamo.Solution) ([]Sample, error) {
	if len(sol.States) != len(sol.Times) {
		return nil, fmt.Errorf("%w: %d states for %d times", dynamo.ErrShapeMismatch, len(sol.States), len(sol.Times))
	}
	if len(sol.Times) == 0 {
		return nil, ErrNoSamples
	}
	dim := len(sol.States[0])
	out := make([]Sample, len(sol.Times))
	for i, t := range sol.Times {
		if len(sol.States[i]) != dim {
			return nil, fmt.Errorf("%w: sample %d has %d components, want %d",
				dynamo.ErrDimensionMismatch, i, len(sol.States[i]), dim)
		}
		out[i] = Sample{T: t, X: sol.States[i].Clone()}
	}
	return out, nil
}

// Process runs flatten, sort, merge, split and canonicalize over one solver
// result. Errors name the failing stage.
func Process(sol *dynamo.Solution, dir Direction, data periodic.Data, tol Tolerance) (*Result, error) {
	if sol == nil {
		return nil, dynamo.AtStage(StageMerge, ErrNoSamples)
	}

	flat, err := FlattenEvents(sol.EventStates, sol.EventTimes)
	if err != nil {
		return nil, dynamo.AtStage(StageFlatten, err)
	}

	samples, err := SamplesOf(sol)
	if err != nil {
		return nil, dynamo.AtStage(StageMerge, err)
	}
	dim := len(samples[0].X)
	for _, ev := range flat {
		if len(ev.X) != dim {
			return nil, dynamo.AtStage(StageFlatten, fmt.Errorf("%w: event at t=%g has %d components, want %d",
				dynamo.ErrDimensionMismatch, ev.T, len(ev.X), dim))
		}
	}

	events := SortEvents(flat)
	full := samples
	if len(events) > 0 {
		full = MergeEvents(samples, events, dir)
	}

	segments, err := Split(full, events, dir, tol)
	if err != nil {
		return nil, dynamo.AtStage(StageSplit, err)
	}

	canonical, err := Canonicalize(segments, data)
	if err != nil {
		return nil, dynamo.AtStage(StageCanonicalize, err)
	}

	return &Result{
		Full:      full,
		Segments:  segments,
		Canonical: canonical,
		Events:    events,
		Direction: dir,
	}, nil
}
