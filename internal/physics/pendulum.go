package physics

import (
	"math"

	"github.com/san-kum/phasespace/internal/dynamo"
)

// Pendulum is a damped pendulum driven by a constant torque:
//
//	dφ/dt = y
//	dy/dt = g - μy - sin(φ)
//
// φ is periodic on [-π, π).
type Pendulum struct{}

func (Pendulum) StateDim() int { return 2 }

func (Pendulum) Derive(x dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	phi, y := x[0], x[1]
	g, mu := p[0], p[1]
	return dynamo.State{y, g - mu*y - math.Sin(phi)}
}

func NewPendulum() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "pendulum",
		Description:    "torque-driven damped pendulum (periodic angle)",
		VariableNames:  []string{"phi", "y"},
		ParameterNames: []string{"g", "mu"},
		DefaultParams:  dynamo.Params{0.5, 0.1},
		DefaultState:   dynamo.State{0.0, 2.0},
		System:         Pendulum{},
		Periodic:       angle(0),
	}
}

// CoupledPendulums are two pendulums connected by a spring.
// State: [theta1, omega1, theta2, omega2]; both angles are periodic.
type CoupledPendulums struct{}

func (CoupledPendulums) StateDim() int { return 4 }

func (CoupledPendulums) Derive(state dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	theta1, omega1, theta2, omega2 := state[0], state[1], state[2], state[3]
	l, g, k, m := p[0], p[1], p[2], p[3]

	// coupling force proportional to the angle difference
	coupling := k * math.Sin(theta2-theta1) / m

	alpha1 := -g/l*math.Sin(theta1) + coupling/l
	alpha2 := -g/l*math.Sin(theta2) - coupling/l

	return dynamo.State{omega1, alpha1, omega2, alpha2}
}

func NewCoupledPendulums() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "coupled",
		Description:    "two pendulums coupled by a spring",
		VariableNames:  []string{"theta1", "omega1", "theta2", "omega2"},
		ParameterNames: []string{"l", "g", "k", "m"},
		DefaultParams:  dynamo.Params{1.0, 9.81, 20.0, 1.0},
		DefaultState:   dynamo.State{0.5, 0.0, 0.0, 0.0},
		System:         CoupledPendulums{},
		Periodic:       angle(0, 2),
	}
}
