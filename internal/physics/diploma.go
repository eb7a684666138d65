package physics

import "github.com/san-kum/phasespace/internal/dynamo"

// polynomial coefficients a0..a9 of the current-voltage characteristic
var diplomaCoeffs = [...]float64{
	-0.0014491777067221945,
	0.4047903610420292,
	-8.814345521066247,
	94.05841173048864,
	-593.8071165028581,
	2362.6810193881056,
	-5964.114570853057,
	9209.238555278202,
	-7889.603353342613,
	2861.212170878973,
}

// Diploma is a third-order circuit model with a degree-9 polynomial
// nonlinearity f(u).
type Diploma struct{}

func (Diploma) StateDim() int { return 3 }

func (Diploma) Derive(s dynamo.State, p dynamo.Params, _ float64) dynamo.State {
	u, y, z := s[0], s[1], s[2]
	e, delta, eps, c := p[0], p[1], p[2], p[3]
	return dynamo.State{
		y,
		eps*c*y - e - z + delta*u + characteristic(u),
		z/c + delta*y,
	}
}

// characteristic evaluates the polynomial by Horner's scheme.
func characteristic(u float64) float64 {
	sum := 0.0
	for i := len(diplomaCoeffs) - 1; i >= 0; i-- {
		sum = sum*u + diplomaCoeffs[i]
	}
	return sum
}

func NewDiploma() *dynamo.Definition {
	return &dynamo.Definition{
		Name:           "diploma",
		Description:    "circuit with polynomial characteristic",
		VariableNames:  []string{"u", "y", "z"},
		ParameterNames: []string{"E", "delta", "eps", "c"},
		DefaultParams:  dynamo.Params{0.0, 0.1, 0.1, 1.0},
		DefaultState:   dynamo.State{0.1, 0.0, 0.0},
		System:         Diploma{},
	}
}
