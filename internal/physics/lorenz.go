package physics

import "github.com/san-kum/phasespace/internal/dynamo"

// Lorenz is the Lorenz attractor. Parameters: σ, r, b.
type Lorenz struct{}

func (Lorenz) StateDim() int { return 3 }

func (Lorenz) Derive(s dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	sigma, r, b := p[0], p[1], p[2]
	return dynamo.State{sigma * (s[1] - s[0]), s[0]*(r-s[2]) - s[1], s[0]*s[1] - b*s[2]}
}

func NewLorenz() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "lorenz",
		Description:    "Lorenz butterfly attractor",
		VariableNames:  []string{"x", "y", "z"},
		ParameterNames: []string{"σ", "r", "b"},
		DefaultParams:  dynamo.Params{10.0, 28.0, 8.0 / 3.0},
		DefaultState:   dynamo.State{1.0, 1.0, 1.0},
		System:         Lorenz{},
	}
}
