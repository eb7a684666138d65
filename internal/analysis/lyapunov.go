package analysis

import (
	"math"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method. A positive value indicates chaos.
//
// Algorithm:
// 1. Run two nearby trajectories
// 2. Measure their divergence over time
// 3. λ ≈ (1/t) * ln(|δx(t)/δx(0)|)
func LyapunovExponent(
	sys dynamo.System,
	integ integrators.Integrator,
	p dynamo.Params,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
) float64 {
	if len(x0) == 0 {
		return 0
	}
	x0p := x0.Clone()
	x0p[0] += perturbation
	return separationRate(sys, integ, p, x0, x0p, dt, duration, perturbation)
}

// LyapunovSpectrum computes one separation exponent per state dimension by
// perturbing each dimension independently.
func LyapunovSpectrum(
	sys dynamo.System,
	integ integrators.Integrator,
	p dynamo.Params,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
) []float64 {
	n := len(x0)
	spectrum := make([]float64, n)

	for i := 0; i < n; i++ {
		xp := x0.Clone()
		xp[i] += perturbation
		spectrum[i] = separationRate(sys, integ, p, x0, xp, dt, duration, perturbation)
	}

	return spectrum
}

func separationRate(
	sys dynamo.System,
	integ integrators.Integrator,
	p dynamo.Params,
	x0, x0p dynamo.State,
	dt, duration, d0 float64,
) float64 {
	if dt <= 0 || d0 <= 0 {
		return 0
	}
	x := x0.Clone()
	xp := x0p.Clone()
	t := 0.0

	sumLog := 0.0
	count := 0

	for t < duration {
		x = integ.Step(sys, x, p, t, dt)
		xp = integ.Step(sys, xp, p, t, dt)
		t += dt

		sep := xp.Sub(x).Norm()
		if math.IsNaN(sep) || math.IsInf(sep, 0) {
			break
		}
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++

			// renormalize so each log term is a one-step rate
			scale := d0 / sep
			for i := range xp {
				xp[i] = x[i] + (xp[i]-x[i])*scale
			}
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / (float64(count) * dt)
}
