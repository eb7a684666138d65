package analysis

import (
	"strings"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
)

// BifurcationPoint represents the values visited after the transient for one
// parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// BifurcationSweep holds the fixed-step schedule of a parameter sweep.
type BifurcationSweep struct {
	ParamIndex int
	Min, Max   float64
	Steps      int
	StateIndex int
	Dt         float64
	Transient  float64
	Record     float64
}

// BifurcationDiagram sweeps one parameter and records the distinct values
// (quantized to 1e-3) of one state variable once the transient has passed.
// p is not modified.
func BifurcationDiagram(
	sys dynamo.System,
	integ integrators.Integrator,
	p dynamo.Params,
	x0 dynamo.State,
	sweep BifurcationSweep,
) []BifurcationPoint {
	if sweep.ParamIndex < 0 || sweep.ParamIndex >= len(p) || sweep.StateIndex < 0 || sweep.StateIndex >= len(x0) || sweep.Dt <= 0 {
		return nil
	}
	steps := sweep.Steps
	if steps <= 1 {
		steps = 2 // Prevent division by zero
	}
	paramStep := (sweep.Max - sweep.Min) / float64(steps-1)
	results := make([]BifurcationPoint, 0, steps)

	for i := 0; i < steps; i++ {
		params := p.Clone()
		params[sweep.ParamIndex] = sweep.Min + float64(i)*paramStep

		x := x0.Clone()
		t := 0.0

		// Run transient (let system settle)
		for t < sweep.Transient {
			x = integ.Step(sys, x, params, t, sweep.Dt)
			t += sweep.Dt
		}

		values := make([]float64, 0, 100)
		seen := make(map[int]bool)
		for t < sweep.Transient+sweep.Record {
			x = integ.Step(sys, x, params, t, sweep.Dt)
			t += sweep.Dt

			val := x[sweep.StateIndex]
			key := int(val * 1000)
			if !seen[key] {
				seen[key] = true
				values = append(values, val)
			}
		}

		results = append(results, BifurcationPoint{
			Param:  params[sweep.ParamIndex],
			Values: values,
		})
	}

	return results
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
			} else {
				minVal = min(minVal, v)
				maxVal = max(maxVal, v)
			}
		}
	}
	if !foundFirst {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := min(i*width/len(data), width-1)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
