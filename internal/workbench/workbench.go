// Package workbench holds the state of an interactive session: one loaded
// system, its parameter values and a list of trajectory rows. The CLI and
// the TUI both drive it.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/phasespace/internal/analysis"
	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/trajectory"
)

var (
	ErrRowRange     = errors.New("workbench: row index out of range")
	ErrUnknownParam = errors.New("workbench: unknown parameter")
)

// Row is one trajectory: an initial state integrated over a span.
type Row struct {
	Name      string
	Processor *trajectory.Processor
	Span      dynamo.Span
	Show      bool

	// Err is the failure of the latest integration, if any.
	Err error
}

func (r *Row) Direction() trajectory.Direction {
	return trajectory.DirectionOf(r.Span.Start, r.Span.End)
}

// Integrated reports whether the row holds a result.
func (r *Row) Integrated() bool {
	_, err := r.Processor.Result()
	return err == nil
}

// Solver settings shared by every row.
type Settings struct {
	Method string
	RTol   float64
	ATol   float64
}

type Workbench struct {
	def      *dynamo.Definition
	params   dynamo.Params
	rows     []*Row
	solver   trajectory.Solver
	settings Settings
}

func New(def *dynamo.Definition, solver trajectory.Solver) *Workbench {
	params := def.DefaultParams.Clone()
	if len(params) != len(def.ParameterNames) {
		params = make(dynamo.Params, len(def.ParameterNames))
	}
	return &Workbench{def: def, params: params, solver: solver}
}

func (w *Workbench) Definition() *dynamo.Definition { return w.def }

func (w *Workbench) Params() dynamo.Params { return w.params.Clone() }

func (w *Workbench) Settings() Settings { return w.settings }

func (w *Workbench) SetSettings(s Settings) { w.settings = s }

// SetParam sets a parameter by name. Existing results are kept until the
// next integration.
func (w *Workbench) SetParam(name string, v float64) error {
	i := w.def.ParameterIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	w.params[i] = v
	return nil
}

func (w *Workbench) SetParams(p dynamo.Params) error {
	if len(p) != len(w.def.ParameterNames) {
		return fmt.Errorf("%w: %d parameters for %d names",
			dynamo.ErrDimensionMismatch, len(p), len(w.def.ParameterNames))
	}
	w.params = p.Clone()
	return nil
}

// AddRow appends a visible trajectory and returns its index.
func (w *Workbench) AddRow(x0 dynamo.State, span dynamo.Span) (int, error) {
	if err := span.Validate(); err != nil {
		return -1, err
	}
	proc, err := trajectory.New(w.def.System, x0)
	if err != nil {
		return -1, err
	}
	w.rows = append(w.rows, &Row{
		Name:      fmt.Sprintf("#%d", len(w.rows)+1),
		Processor: proc,
		Span:      span,
		Show:      true,
	})
	return len(w.rows) - 1, nil
}

func (w *Workbench) RemoveRow(i int) error {
	if _, err := w.row(i); err != nil {
		return err
	}
	w.rows = append(w.rows[:i], w.rows[i+1:]...)
	return nil
}

func (w *Workbench) Rows() []*Row { return w.rows }

func (w *Workbench) Row(i int) (*Row, error) { return w.row(i) }

func (w *Workbench) row(i int) (*Row, error) {
	if i < 0 || i >= len(w.rows) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrRowRange, i, len(w.rows))
	}
	return w.rows[i], nil
}

func (w *Workbench) SetInitial(i int, x0 dynamo.State) error {
	r, err := w.row(i)
	if err != nil {
		return err
	}
	return r.Processor.SetInitialState(x0)
}

func (w *Workbench) SetSpan(i int, span dynamo.Span) error {
	r, err := w.row(i)
	if err != nil {
		return err
	}
	if err := span.Validate(); err != nil {
		return err
	}
	r.Span = span
	return nil
}

func (w *Workbench) SetShow(i int, show bool) error {
	r, err := w.row(i)
	if err != nil {
		return err
	}
	r.Show = show
	return nil
}

// Reverse swaps the span bounds of row i, flipping its direction.
func (w *Workbench) Reverse(i int) error {
	r, err := w.row(i)
	if err != nil {
		return err
	}
	r.Span.Start, r.Span.End = r.Span.End, r.Span.Start
	return nil
}

// Continue moves the initial state of row i to its last computed state.
func (w *Workbench) Continue(i int) error {
	r, err := w.row(i)
	if err != nil {
		return err
	}
	last, err := r.Processor.LastState()
	if err != nil {
		return err
	}
	return r.Processor.SetInitialState(last)
}

// RunConfig builds the run description for a span with the shared settings
// and the system's periodic data and events.
func (w *Workbench) RunConfig(span dynamo.Span) trajectory.RunConfig {
	return trajectory.RunConfig{
		Span:     span,
		Method:   w.settings.Method,
		RTol:     w.settings.RTol,
		ATol:     w.settings.ATol,
		Periodic: w.def.Periodic,
		Events:   w.def.Events,
	}
}

// Integrate runs a single row.
func (w *Workbench) Integrate(ctx context.Context, i int) error {
	r, err := w.row(i)
	if err != nil {
		return err
	}
	r.Err = r.Processor.Integrate(ctx, w.solver, w.params, w.RunConfig(r.Span))
	return r.Err
}

// IntegrateAll integrates every row concurrently, one goroutine per row.
// Each row keeps its own error; the joined errors are returned.
func (w *Workbench) IntegrateAll(ctx context.Context) error {
	errs := make([]error, len(w.rows))
	params := w.params.Clone()

	var wg sync.WaitGroup
	for i, r := range w.rows {
		wg.Add(1)
		go func(idx int, r *Row) {
			defer wg.Done()
			r.Err = r.Processor.Integrate(ctx, w.solver, params, w.RunConfig(r.Span))
			if r.Err != nil {
				errs[idx] = fmt.Errorf("row %s: %w", r.Name, r.Err)
			}
		}(i, r)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Series returns the canonical segments of every integrated row, skipping
// hidden rows when visibleOnly is set.
func (w *Workbench) Series(visibleOnly bool) []analysis.Series {
	var out []analysis.Series
	for _, r := range w.rows {
		if visibleOnly && !r.Show {
			continue
		}
		segs, err := r.Processor.Canonical()
		if err != nil {
			continue
		}
		out = append(out, analysis.Series{Name: r.Name, Segments: segs})
	}
	return out
}

// AddSeparatrices linearizes the system at an equilibrium and adds one row
// per separatrix seed. Unstable directions run forward over span, stable
// directions backward. The new row indices are returned.
func (w *Workbench) AddSeparatrices(eq dynamo.State, eps float64, span dynamo.Span) ([]int, error) {
	lin, err := analysis.Linearize(w.def.System, w.params, eq, span.Start)
	if err != nil {
		return nil, err
	}
	length := span.Length()
	var added []int
	for _, seed := range lin.SeparatrixSeeds(eps) {
		s := dynamo.Span{Start: span.Start, End: span.Start + length, Steps: span.Steps}
		if seed.Backward {
			s.End = span.Start - length
		}
		i, err := w.AddRow(seed.State, s)
		if err != nil {
			return added, err
		}
		sign := "+"
		if seed.Sign < 0 {
			sign = "-"
		}
		w.rows[i].Name = fmt.Sprintf("sep λ%d%s", seed.Index, sign)
		added = append(added, i)
	}
	return added, nil
}
