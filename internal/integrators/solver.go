package integrators

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/phasespace/internal/dynamo"
)

type Integrator interface {
	Step(sys dynamo.System, x dynamo.State, p dynamo.Params, t float64, dt float64) dynamo.State
}

// AdaptiveIntegrator additionally reports a local error estimate so the
// solver can control the step size.
type AdaptiveIntegrator interface {
	Integrator
	Trial(sys dynamo.System, x dynamo.State, p dynamo.Params, t, dt float64) (dynamo.State, dynamo.State)
	Scale(errNorm float64) float64
}

var methods = map[string]func() Integrator{
	"euler": func() Integrator { return NewEuler() },
	"rk4":   func() Integrator { return NewRK4() },
	"rk45":  func() Integrator { return NewRK45() },
}

// New returns a fresh integrator for a method tag ("Euler", "RK4", "RK45").
func New(method string) (Integrator, error) {
	fn, ok := methods[strings.ToLower(method)]
	if !ok {
		return nil, fmt.Errorf("unknown integration method: %s (available: %v)", method, Methods())
	}
	return fn(), nil
}

func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, strings.ToUpper(name))
	}
	sort.Strings(names)
	return names
}

type Options struct {
	Method    string
	Span      dynamo.Span
	MaxStep   float64
	FirstStep float64
	MinStep   float64
	RTol      float64
	ATol      float64
	MaxSteps  int
}

const (
	DefaultMethod   = "RK45"
	DefaultRTol     = 1e-5
	DefaultATol     = 1e-5
	DefaultMaxSteps = 1_000_000
	DefaultMinStep  = 1e-12

	bisectionIterations = 60
)

func DefaultOptions(span dynamo.Span) Options {
	return Options{
		Method:   DefaultMethod,
		Span:     span,
		MaxStep:  span.MaxStep(),
		MinStep:  DefaultMinStep,
		RTol:     DefaultRTol,
		ATol:     DefaultATol,
		MaxSteps: DefaultMaxSteps,
	}
}

func (o Options) validate() error {
	if err := o.Span.Validate(); err != nil {
		return err
	}
	if o.MaxStep < 0 || math.IsNaN(o.MaxStep) {
		return fmt.Errorf("max step must not be negative, got %g", o.MaxStep)
	}
	if o.RTol <= 0 || o.ATol <= 0 {
		return fmt.Errorf("tolerances must be positive (rtol=%g, atol=%g)", o.RTol, o.ATol)
	}
	return nil
}

// Solver integrates a system over a span and records zero crossings of the
// supplied event functions.
type Solver struct{}

func NewSolver() *Solver {
	return &Solver{}
}

// counted checks derivative lengths and counts evaluations. Integrators
// index the derivative directly, so a short vector must never reach them.
type counted struct {
	sys   dynamo.System
	dim   int
	evals int
	err   error
}

func (c *counted) Derive(x dynamo.State, p dynamo.Params, t float64) dynamo.State {
	c.evals++
	var dx dynamo.State
	if fs, ok := c.sys.(dynamo.FallibleSystem); ok {
		var err error
		if dx, err = fs.DeriveErr(x, p, t); err != nil {
			if c.err == nil {
				c.err = err
			}
			return make(dynamo.State, c.dim)
		}
	} else {
		dx = c.sys.Derive(x, p, t)
	}
	if len(dx) != c.dim {
		if c.err == nil {
			c.err = fmt.Errorf("%w: derivative has %d components, want %d", dynamo.ErrDimensionMismatch, len(dx), c.dim)
		}
		return make(dynamo.State, c.dim)
	}
	return dx
}

func (c *counted) StateDim() int { return c.dim }

func (s *Solver) Solve(ctx context.Context, sys dynamo.System, p dynamo.Params, x0 dynamo.State, opts Options, events []dynamo.EventFunc) (*dynamo.Solution, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d components, system has %d",
			dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if !x0.IsValid() {
		return nil, dynamo.ErrInvalidState
	}
	integ, err := New(opts.Method)
	if err != nil {
		return nil, err
	}
	if opts.MaxStep == 0 {
		opts.MaxStep = opts.Span.MaxStep()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MinStep <= 0 {
		opts.MinStep = DefaultMinStep
	}

	f := &counted{sys: sys, dim: len(x0)}
	sol := &dynamo.Solution{}
	defer func() { sol.Stats.Evaluations = f.evals }()
	span := opts.Span
	dir := 1.0
	if !span.Forward() {
		dir = -1.0
	}

	t := span.Start
	x := x0.Clone()
	if f.Derive(x, p, t); f.err != nil {
		return nil, f.err
	}

	sol.States = []dynamo.State{x.Clone()}
	sol.Times = []float64{t}
	sol.EventStates = make([][]dynamo.State, len(events))
	sol.EventTimes = make([][]float64, len(events))
	for k := range events {
		sol.EventStates[k] = []dynamo.State{}
		sol.EventTimes[k] = []float64{}
	}

	gPrev, err := evalEvents(events, t, x)
	if err != nil {
		return nil, err
	}

	adaptive, isAdaptive := integ.(AdaptiveIntegrator)
	hAbs := opts.MaxStep
	if isAdaptive {
		hAbs = s.initialStep(f, x, p, t, opts)
	}

	for step := 0; (span.End-t)*dir > 0; step++ {
		select {
		case <-ctx.Done():
			return sol, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}
		if step >= opts.MaxSteps {
			return sol, &dynamo.SolverError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrTooManySteps}
		}

		hAbs = math.Min(hAbs, opts.MaxStep)
		last := false
		if remaining := math.Abs(span.End - t); hAbs >= remaining {
			hAbs = remaining
			last = true
		}

		var xNew dynamo.State
		factor := 1.0
		if isAdaptive {
			var errEst dynamo.State
			xNew, errEst = adaptive.Trial(f, x, p, t, dir*hAbs)
			if f.err != nil {
				return sol, &dynamo.SolverError{Step: step, Time: t, State: x, Wrapped: f.err}
			}
			errNorm := normalizedError(errEst, x, xNew, opts.RTol, opts.ATol)
			factor = adaptive.Scale(errNorm)
			if errNorm > 1 || math.IsNaN(errNorm) {
				sol.Stats.Rejected++
				if math.IsNaN(errNorm) {
					factor = 0.2
				}
				hAbs *= factor
				if hAbs < opts.MinStep {
					return sol, &dynamo.SolverError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrStepTooSmall}
				}
				continue
			}
		} else {
			xNew = integ.Step(f, x, p, t, dir*hAbs)
		}
		if f.err != nil {
			return sol, &dynamo.SolverError{Step: step, Time: t, State: x, Wrapped: f.err}
		}
		if !xNew.IsValid() {
			return sol, &dynamo.SolverError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		tNew := t + dir*hAbs
		if last {
			tNew = span.End
		}

		gNew, err := evalEvents(events, tNew, xNew)
		if err != nil {
			return sol, &dynamo.SolverError{Step: step, Time: tNew, State: xNew, Wrapped: err}
		}
		for k := range events {
			if !crossed(gPrev[k], gNew[k]) {
				continue
			}
			te, xe, err := s.locate(integ, f, events[k], x, p, t, tNew, gPrev[k], gNew[k], xNew)
			if err == nil {
				err = f.err
			}
			if err != nil {
				return sol, &dynamo.SolverError{Step: step, Time: t, State: x, Wrapped: err}
			}
			sol.EventTimes[k] = append(sol.EventTimes[k], te)
			sol.EventStates[k] = append(sol.EventStates[k], xe)
		}

		t, x, gPrev = tNew, xNew, gNew
		sol.States = append(sol.States, x.Clone())
		sol.Times = append(sol.Times, t)
		sol.Stats.Steps++
		sol.Stats.LastStep = hAbs

		if isAdaptive {
			hAbs *= factor
		}
	}

	return sol, nil
}

// initialStep picks a first step from the scale of the state and its
// derivative, bounded by MaxStep.
func (s *Solver) initialStep(f *counted, x dynamo.State, p dynamo.Params, t float64, opts Options) float64 {
	if opts.FirstStep > 0 {
		return math.Min(opts.FirstStep, opts.MaxStep)
	}
	dx := f.Derive(x, p, t)
	n := float64(len(x))
	scaledX := make([]float64, len(x))
	scaledDx := make([]float64, len(x))
	for i := range x {
		sc := opts.ATol + opts.RTol*math.Abs(x[i])
		scaledX[i] = x[i] / sc
		scaledDx[i] = dx[i] / sc
	}
	d0 := floats.Norm(scaledX, 2) / math.Sqrt(n)
	d1 := floats.Norm(scaledDx, 2) / math.Sqrt(n)

	h := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h = 0.01 * d0 / d1
	}
	return math.Min(h, opts.MaxStep)
}

// normalizedError is the RMS of the error estimate scaled by the mixed
// absolute/relative tolerance.
func normalizedError(errEst, x, xNew dynamo.State, rtol, atol float64) float64 {
	scaled := make([]float64, len(errEst))
	for i := range errEst {
		sc := atol + rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		scaled[i] = errEst[i] / sc
	}
	return floats.Norm(scaled, 2) / math.Sqrt(float64(len(scaled)))
}

func evalEvents(events []dynamo.EventFunc, t float64, x dynamo.State) ([]float64, error) {
	g := make([]float64, len(events))
	for k, ev := range events {
		v, err := ev(t, x)
		if err != nil {
			return nil, fmt.Errorf("event %d at t=%g: %w", k, t, err)
		}
		g[k] = v
	}
	return g, nil
}

// crossed reports a sign change over a step. A zero at the step start was
// already recorded by the previous step (or is the initial point).
func crossed(gPrev, gNew float64) bool {
	if gPrev == 0 || math.IsNaN(gPrev) || math.IsNaN(gNew) {
		return false
	}
	return gNew == 0 || (gPrev < 0) != (gNew < 0)
}

// locate refines a crossing inside [t, tNew] by bisection on the step
// length, re-stepping from the start of the step each time.
func (s *Solver) locate(integ Integrator, f *counted, ev dynamo.EventFunc, x dynamo.State, p dynamo.Params, t, tNew, gLo, gHi float64, xNew dynamo.State) (float64, dynamo.State, error) {
	if gHi == 0 {
		return tNew, xNew.Clone(), nil
	}
	h := tNew - t
	lo, hi := 0.0, 1.0
	xHi := xNew
	for i := 0; i < bisectionIterations; i++ {
		mid := 0.5 * (lo + hi)
		if mid == lo || mid == hi {
			break
		}
		xm := integ.Step(f, x, p, t, mid*h)
		gm, err := ev(t+mid*h, xm)
		if err != nil {
			return 0, nil, err
		}
		if gm == 0 {
			return t + mid*h, xm, nil
		}
		if (gm < 0) == (gLo < 0) {
			lo, gLo = mid, gm
		} else {
			hi, xHi = mid, xm
		}
		if math.Abs((hi-lo)*h) <= 1e-15*math.Max(1, math.Abs(t)) {
			break
		}
	}
	te := t + hi*h
	if hi == 1.0 {
		te = tNew
	}
	return te, xHi.Clone(), nil
}
