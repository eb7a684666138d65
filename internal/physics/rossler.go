package physics

import "github.com/san-kum/phasespace/internal/dynamo"

// Rossler is the Rössler attractor. Parameters: a, b, c.
type Rossler struct{}

func (Rossler) StateDim() int { return 3 }

func (Rossler) Derive(s dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	a, b, c := p[0], p[1], p[2]
	return dynamo.State{-s[1] - s[2], s[0] + a*s[1], b + s[2]*(s[0]-c)}
}

func NewRossler() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "rossler",
		Description:    "Rössler attractor",
		VariableNames:  []string{"x", "y", "z"},
		ParameterNames: []string{"a", "b", "c"},
		DefaultParams:  dynamo.Params{0.2, 0.2, 5.7},
		DefaultState:   dynamo.State{1.0, 1.0, 1.0},
		System:         Rossler{},
	}
}
