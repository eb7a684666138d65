package trajectory

import (
	"context"
	"fmt"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
	"github.com/san-kum/phasespace/internal/periodic"
)

// Solver is the numerical integrator the processor drives.
type Solver interface {
	Solve(ctx context.Context, sys dynamo.System, p dynamo.Params, x0 dynamo.State,
		opts integrators.Options, events []dynamo.EventFunc) (*dynamo.Solution, error)
}

// RunConfig describes one integration run. Zero values fall back to the
// solver defaults.
type RunConfig struct {
	Span     dynamo.Span
	Method   string
	RTol     float64
	ATol     float64
	MaxStep  float64
	Periodic periodic.Data
	Events   []dynamo.EventFunc

	// Tolerance overrides DefaultTolerance(MaxStep) for event matching.
	Tolerance *Tolerance
}

// Options resolves the solver options for this run.
func (rc RunConfig) Options() integrators.Options {
	opts := integrators.DefaultOptions(rc.Span)
	if rc.Method != "" {
		opts.Method = rc.Method
	}
	if rc.RTol > 0 {
		opts.RTol = rc.RTol
	}
	if rc.ATol > 0 {
		opts.ATol = rc.ATol
	}
	if rc.MaxStep > 0 {
		opts.MaxStep = rc.MaxStep
	}
	return opts
}

// Processor owns one trajectory: a system, an initial state and the
// derived views of its latest integration. Each Integrate call replaces the
// previous result. A Processor is not safe for concurrent use; run
// independent trajectories on independent processors.
type Processor struct {
	sys    dynamo.System
	x0     dynamo.State
	sol    *dynamo.Solution
	result *Result
}

func New(sys dynamo.System, x0 dynamo.State) (*Processor, error) {
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d components, system has %d",
			dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	return &Processor{sys: sys, x0: x0.Clone()}, nil
}

func (p *Processor) System() dynamo.System { return p.sys }

func (p *Processor) InitialState() dynamo.State { return p.x0.Clone() }

func (p *Processor) SetInitialState(x0 dynamo.State) error {
	if len(x0) != p.sys.StateDim() {
		return fmt.Errorf("%w: initial state has %d components, system has %d",
			dynamo.ErrDimensionMismatch, len(x0), p.sys.StateDim())
	}
	p.x0 = x0.Clone()
	return nil
}

// LastState returns the final sample of the latest full trajectory.
func (p *Processor) LastState() (dynamo.State, error) {
	if p.result == nil {
		return nil, ErrNotIntegrated
	}
	return p.result.Full[len(p.result.Full)-1].X.Clone(), nil
}

// Integrate runs the solver from the initial state and processes its
// output. On failure the previous result is discarded.
func (p *Processor) Integrate(ctx context.Context, solver Solver, params dynamo.Params, rc RunConfig) error {
	p.sol, p.result = nil, nil

	opts := rc.Options()
	sol, err := solver.Solve(ctx, p.sys, params, p.x0, opts, rc.Events)
	if err != nil {
		return dynamo.AtStage(StageSolve, err)
	}
	if err := sol.Validate(p.sys.StateDim()); err != nil {
		return dynamo.AtStage(StageSolve, err)
	}

	tol := DefaultTolerance(opts.MaxStep)
	if rc.Tolerance != nil {
		tol = *rc.Tolerance
	}
	res, err := Process(sol, DirectionOf(rc.Span.Start, rc.Span.End), rc.Periodic, tol)
	if err != nil {
		return err
	}
	p.sol, p.result = sol, res
	return nil
}

func (p *Processor) Result() (*Result, error) {
	if p.result == nil {
		return nil, ErrNotIntegrated
	}
	return p.result, nil
}

func (p *Processor) Solution() (*dynamo.Solution, error) {
	if p.sol == nil {
		return nil, ErrNotIntegrated
	}
	return p.sol, nil
}

func (p *Processor) Full() ([]Sample, error) {
	if p.result == nil {
		return nil, ErrNotIntegrated
	}
	return p.result.Full, nil
}

func (p *Processor) Segments() ([]Segment, error) {
	if p.result == nil {
		return nil, ErrNotIntegrated
	}
	return p.result.Segments, nil
}

func (p *Processor) Canonical() ([]Segment, error) {
	if p.result == nil {
		return nil, ErrNotIntegrated
	}
	return p.result.Canonical, nil
}

func (p *Processor) Events() ([]Event, error) {
	if p.result == nil {
		return nil, ErrNotIntegrated
	}
	return p.result.Events, nil
}
