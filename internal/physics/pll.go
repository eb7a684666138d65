package physics

import (
	"math"

	"github.com/san-kum/phasespace/internal/dynamo"
)

// ParallelPLL is a pair of phase-locked loops with ideal filters coupled in
// parallel. Both phase errors are periodic on [-π, π).
type ParallelPLL struct{}

func (ParallelPLL) StateDim() int { return 2 }

func (ParallelPLL) Derive(u dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	p1, p2 := u[0], u[1]
	g1, g2, k, d := p[0], p[1], p[2], p[3]
	return dynamo.State{
		g1 - math.Sin(p1) - k*math.Sin(p2),
		g2 - math.Sin(p2) - d*math.Sin(p1),
	}
}

func NewParallelPLL() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "pll",
		Description:    "parallel phase-locked loops with ideal filters (torus)",
		VariableNames:  []string{"p1", "p2"},
		ParameterNames: []string{"g1", "g2", "k", "d"},
		DefaultParams:  dynamo.Params{0.3, 0.4, 0.5, 0.5},
		DefaultState:   dynamo.State{0.0, 0.0},
		System:         ParallelPLL{},
		Periodic:       angle(0, 1),
	}
}
