package physics

import "github.com/san-kum/phasespace/internal/dynamo"

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Equations:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
type VanDerPol struct{}

func (VanDerPol) StateDim() int { return 2 }

func (VanDerPol) Derive(state dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	x, y := state[0], state[1]
	mu := p[0]

	dx := y
	dy := mu*(1-x*x)*y - x

	return dynamo.State{dx, dy}
}

func NewVanDerPol() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "vanderpol",
		Description:    "Van der Pol oscillator with a stable limit cycle",
		VariableNames:  []string{"x", "y"},
		ParameterNames: []string{"mu"},
		DefaultParams:  dynamo.Params{1.0}, // classic value for limit cycle
		DefaultState:   dynamo.State{2.0, 0.0},
		System:         VanDerPol{},
	}
}
