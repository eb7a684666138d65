package trajectory

import (
	"math"

	"github.com/san-kum/phasespace/internal/dynamo"
)

// Sample is a state paired with the time it was observed.
type Sample struct {
	T float64
	X dynamo.State
}

func (s Sample) Clone() Sample {
	return Sample{T: s.T, X: s.X.Clone()}
}

// Event is a sample produced by an event function crossing zero. Source is
// the index of the event function that produced it.
type Event struct {
	Sample
	Source int
}

// Direction is the time direction of one integration run.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// DirectionOf returns Forward when end > start, Backward otherwise.
func DirectionOf(start, end float64) Direction {
	if end > start {
		return Forward
	}
	return Backward
}

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Reached reports whether time t has reached or passed target in this
// direction.
func (d Direction) Reached(t, target float64) bool {
	if d == Backward {
		return t <= target
	}
	return t >= target
}

// Segment is a contiguous slice of a trajectory. States are sample-major:
// States[i] is the state at Times[i].
type Segment struct {
	Times  []float64
	States []dynamo.State
}

func (s Segment) Len() int { return len(s.Times) }

func (s Segment) Start() float64 {
	if len(s.Times) == 0 {
		return math.NaN()
	}
	return s.Times[0]
}

func (s Segment) End() float64 {
	if len(s.Times) == 0 {
		return math.NaN()
	}
	return s.Times[len(s.Times)-1]
}

// Dim returns the state dimension, or 0 for an empty segment.
func (s Segment) Dim() int {
	if len(s.States) == 0 {
		return 0
	}
	return len(s.States[0])
}

// Column returns the values of variable i over the segment.
func (s Segment) Column(i int) []float64 {
	col := make([]float64, len(s.States))
	for k, x := range s.States {
		col[k] = x[i]
	}
	return col
}

// Rows returns the segment state-major, one row per variable, for plotting.
func (s Segment) Rows() [][]float64 {
	rows := make([][]float64, s.Dim())
	for i := range rows {
		rows[i] = s.Column(i)
	}
	return rows
}

func (s Segment) Samples() []Sample {
	out := make([]Sample, len(s.Times))
	for i := range s.Times {
		out[i] = Sample{T: s.Times[i], X: s.States[i]}
	}
	return out
}

func (s Segment) Clone() Segment {
	c := Segment{
		Times:  make([]float64, len(s.Times)),
		States: make([]dynamo.State, len(s.States)),
	}
	copy(c.Times, s.Times)
	for i, x := range s.States {
		c.States[i] = x.Clone()
	}
	return c
}

// SegmentOf copies a run of samples into a segment.
func SegmentOf(samples []Sample) Segment {
	seg := Segment{
		Times:  make([]float64, len(samples)),
		States: make([]dynamo.State, len(samples)),
	}
	for i, s := range samples {
		seg.Times[i] = s.T
		seg.States[i] = s.X.Clone()
	}
	return seg
}

// Tolerance is the approximate-equality test used to match event times
// against trajectory times: |a-b| <= Abs + Rel*max(|a|,|b|).
type Tolerance struct {
	Abs float64 `yaml:"abs" json:"abs"`
	Rel float64 `yaml:"rel" json:"rel"`
}

const (
	defaultAbsFactor = 1e-6
	defaultRel       = 1e-12
	minAbs           = 1e-12
)

// DefaultTolerance scales the absolute tolerance with the solver's maximum
// step.
func DefaultTolerance(maxStep float64) Tolerance {
	abs := defaultAbsFactor * maxStep
	if !(abs > minAbs) {
		abs = minAbs
	}
	return Tolerance{Abs: abs, Rel: defaultRel}
}

func (tol Tolerance) Match(a, b float64) bool {
	return math.Abs(a-b) <= tol.Abs+tol.Rel*math.Max(math.Abs(a), math.Abs(b))
}
