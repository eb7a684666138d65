package physics

import (
	"math"

	"github.com/san-kum/phasespace/internal/dynamo"
)

// Duffing implements a nonlinear forced oscillator. The forcing phase is
// carried as a third, periodic state variable so the flow is autonomous.
type Duffing struct{}

func (Duffing) StateDim() int { return 3 }

func (Duffing) Derive(s dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	x, v, phi := s[0], s[1], s[2]
	alpha, beta, delta, gamma, omega := p[0], p[1], p[2], p[3], p[4]
	return dynamo.State{v, -delta*v - alpha*x - beta*x*x*x + gamma*math.Cos(phi), omega}
}

func NewDuffing() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "duffing",
		Description:    "forced Duffing oscillator (periodic forcing phase)",
		VariableNames:  []string{"x", "v", "phi"},
		ParameterNames: []string{"alpha", "beta", "delta", "gamma", "omega"},
		DefaultParams:  dynamo.Params{-1.0, 1.0, 0.3, 0.5, 1.2},
		DefaultState:   dynamo.State{1.0, 0.0, 0.0},
		System:         Duffing{},
		Periodic:       angle(2),
	}
}
