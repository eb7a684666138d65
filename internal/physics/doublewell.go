package physics

import (
	"math"

	"github.com/san-kum/phasespace/internal/dynamo"
)

// DoubleWell models a damped particle in a bistable potential well.
type DoubleWell struct{}

func (DoubleWell) StateDim() int { return 2 }

func (DoubleWell) Derive(s dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	x, v := s[0], s[1]
	a, b, mass, damping := p[0], p[1], p[2], p[3]
	return dynamo.State{v, (-4*a*x*(x*x-b) - damping*v) / mass}
}

func NewDoubleWell() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "doublewell",
		Description:    "damped particle in a double-well potential",
		VariableNames:  []string{"x", "v"},
		ParameterNames: []string{"A", "B", "mass", "damping"},
		DefaultParams:  dynamo.Params{1.0, 1.0, 1.0, 0.1},
		DefaultState:   dynamo.State{math.Sqrt(1.0) + 0.1, 0},
		System:         DoubleWell{},
	}
}
