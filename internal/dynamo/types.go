package dynamo

import (
	"fmt"
	"math"

	"github.com/san-kum/phasespace/internal/periodic"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Params holds parameter values in the order of Definition.ParameterNames.
type Params []float64

func (p Params) Clone() Params {
	c := make(Params, len(p))
	copy(c, p)
	return c
}

// System is the right-hand side of dX/dt = f(X, p, t).
type System interface {
	Derive(x State, p Params, t float64) State
	StateDim() int
}

// FallibleSystem is a System whose evaluations can fail, such as a scripted
// right-hand side. DeriveErr reports the failure of that one call; Derive
// returns a zero derivative instead.
type FallibleSystem interface {
	System
	DeriveErr(x State, p Params, t float64) (State, error)
}

// SystemFunc adapts a plain function of fixed dimension to System.
type SystemFunc struct {
	Dim int
	Fn  func(x State, p Params, t float64) State
}

func (f SystemFunc) Derive(x State, p Params, t float64) State { return f.Fn(x, p, t) }

func (f SystemFunc) StateDim() int { return f.Dim }

// EventFunc is a scalar function whose sign changes mark events. A non-nil
// error stops the integration.
type EventFunc func(t float64, x State) (float64, error)

// CrossingEvent returns an event that changes sign whenever variable index
// crosses offset + k*period.
func CrossingEvent(index int, spec periodic.Spec) EventFunc {
	offset, period := spec.Offset, spec.Period
	return func(t float64, x State) (float64, error) {
		return math.Sin(math.Pi * (x[index] - offset) / period), nil
	}
}

// CrossingEvents returns one crossing event per periodic variable, in
// ascending index order.
func CrossingEvents(data periodic.Data) []EventFunc {
	events := make([]EventFunc, 0, len(data))
	for _, i := range data.Indices() {
		events = append(events, CrossingEvent(i, data[i]))
	}
	return events
}

// CheckedDerive evaluates sys, surfacing the failure of a FallibleSystem,
// and verifies the result length.
func CheckedDerive(sys System, x State, p Params, t float64) (State, error) {
	var dx State
	if fs, ok := sys.(FallibleSystem); ok {
		var err error
		if dx, err = fs.DeriveErr(x, p, t); err != nil {
			return nil, err
		}
	} else {
		dx = sys.Derive(x, p, t)
	}
	if len(dx) != len(x) {
		return nil, fmt.Errorf("%w: derivative has %d components, state has %d",
			ErrDimensionMismatch, len(dx), len(x))
	}
	return dx, nil
}

// Span is the time interval of one integration run. Steps is the
// approximate number of samples the caller wants.
type Span struct {
	Start float64 `yaml:"t_start" json:"t_start"`
	End   float64 `yaml:"t_end" json:"t_end"`
	Steps int     `yaml:"t_steps" json:"t_steps"`
}

func (s Span) Forward() bool { return s.End > s.Start }

func (s Span) Length() float64 { return math.Abs(s.End - s.Start) }

// MaxStep bounds the solver step so that roughly Steps/5 samples are
// guaranteed over the span.
func (s Span) MaxStep() float64 {
	steps := s.Steps
	if steps <= 0 {
		steps = DefaultSteps
	}
	return s.Length() / float64(steps) * 5
}

func (s Span) Validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0) {
		return fmt.Errorf("%w: span bounds must be finite", ErrInvalidSpan)
	}
	if s.Start == s.End {
		return fmt.Errorf("%w: t_start equals t_end (%g)", ErrInvalidSpan, s.Start)
	}
	if s.Steps < 0 {
		return fmt.Errorf("%w: t_steps must not be negative, got %d", ErrInvalidSpan, s.Steps)
	}
	return nil
}

const DefaultSteps = 1000

// SolverStats mirrors the bookkeeping an adaptive solver reports.
type SolverStats struct {
	Steps       int     `json:"steps"`
	Rejected    int     `json:"rejected"`
	Evaluations int     `json:"evaluations"`
	LastStep    float64 `json:"last_step"`
}

// Solution is the raw output of one integration run. States are
// sample-major: States[i] is the state at Times[i]. EventStates[k] and
// EventTimes[k] hold the samples where event function k crossed zero.
type Solution struct {
	States      []State
	Times       []float64
	EventStates [][]State
	EventTimes  [][]float64
	Stats       SolverStats
}

// Validate checks the array shapes against the state dimension.
func (s *Solution) Validate(dim int) error {
	if s == nil {
		return fmt.Errorf("%w: nil solution", ErrShapeMismatch)
	}
	if len(s.States) != len(s.Times) {
		return fmt.Errorf("%w: %d states for %d times", ErrShapeMismatch, len(s.States), len(s.Times))
	}
	if len(s.EventStates) != len(s.EventTimes) {
		return fmt.Errorf("%w: %d event state lists for %d event time lists",
			ErrShapeMismatch, len(s.EventStates), len(s.EventTimes))
	}
	for i, x := range s.States {
		if len(x) != dim {
			return fmt.Errorf("%w: sample %d has %d components, want %d", ErrDimensionMismatch, i, len(x), dim)
		}
	}
	for k := range s.EventStates {
		if len(s.EventStates[k]) != len(s.EventTimes[k]) {
			return fmt.Errorf("%w: event function %d has %d states for %d times",
				ErrShapeMismatch, k, len(s.EventStates[k]), len(s.EventTimes[k]))
		}
		for i, x := range s.EventStates[k] {
			if len(x) != dim {
				return fmt.Errorf("%w: event %d/%d has %d components, want %d",
					ErrDimensionMismatch, k, i, len(x), dim)
			}
		}
	}
	return nil
}

// Definition is a loaded dynamical system.
type Definition struct {
	Name           string
	Source         string
	Description    string
	VariableNames  []string
	ParameterNames []string
	DefaultParams  Params
	DefaultState   State
	System         System
	Periodic       periodic.Data
	Events         []EventFunc
}

func (d *Definition) Dim() int { return len(d.VariableNames) }

// Validate checks that names, defaults and periodic data agree.
func (d *Definition) Validate() error {
	if len(d.VariableNames) == 0 {
		return fmt.Errorf("%w: no variables", ErrDimensionMismatch)
	}
	if d.System == nil {
		return fmt.Errorf("dynamo: definition %q has no system", d.Name)
	}
	if d.System.StateDim() != len(d.VariableNames) {
		return fmt.Errorf("%w: system dimension %d, %d variable names",
			ErrDimensionMismatch, d.System.StateDim(), len(d.VariableNames))
	}
	if d.DefaultParams != nil && len(d.DefaultParams) != len(d.ParameterNames) {
		return fmt.Errorf("%w: %d default parameters for %d names",
			ErrDimensionMismatch, len(d.DefaultParams), len(d.ParameterNames))
	}
	if d.DefaultState != nil && len(d.DefaultState) != len(d.VariableNames) {
		return fmt.Errorf("%w: default state has %d components for %d variables",
			ErrDimensionMismatch, len(d.DefaultState), len(d.VariableNames))
	}
	return d.Periodic.Validate(d.Dim())
}

// VariableIndex returns the index of a variable by name, or -1.
func (d *Definition) VariableIndex(name string) int {
	for i, n := range d.VariableNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ParameterIndex returns the index of a parameter by name, or -1.
func (d *Definition) ParameterIndex(name string) int {
	for i, n := range d.ParameterNames {
		if n == name {
			return i
		}
	}
	return -1
}
