package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/phasespace/internal/analysis"
	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
	"github.com/san-kum/phasespace/internal/loader"
)

// loadWithParams loads a system and applies --param overrides to its
// default parameters.
func loadWithParams(ref string) (*dynamo.Definition, dynamo.Params, error) {
	def, err := loader.Load(ref)
	if err != nil {
		return nil, nil, err
	}
	p := def.DefaultParams.Clone()
	if len(p) != len(def.ParameterNames) {
		p = make(dynamo.Params, len(def.ParameterNames))
	}
	for name, raw := range params {
		i := def.ParameterIndex(name)
		if i < 0 {
			return nil, nil, fmt.Errorf("unknown parameter %s (have %v)", name, def.ParameterNames)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		p[i] = v
	}
	return def, p, nil
}

func startState(def *dynamo.Definition, given []float64) (dynamo.State, error) {
	if len(given) == 0 {
		if len(def.DefaultState) == def.Dim() {
			return def.DefaultState.Clone(), nil
		}
		return make(dynamo.State, def.Dim()), nil
	}
	if len(given) != def.Dim() {
		return nil, fmt.Errorf("%w: got %d values, %s has variables %v",
			dynamo.ErrDimensionMismatch, len(given), def.Name, def.VariableNames)
	}
	return dynamo.State(given).Clone(), nil
}

func findEquilibrium(cmd *cobra.Command, args []string) error {
	def, p, err := loadWithParams(args[0])
	if err != nil {
		return err
	}
	g, err := startState(def, guess)
	if err != nil {
		return err
	}

	eq, err := analysis.FindEquilibrium(def.System, p, g, analysis.DefaultNewtonOptions())
	if err != nil {
		return err
	}
	if err := eq.Fold(def.Periodic); err != nil {
		return err
	}
	lin, err := analysis.Linearize(def.System, p, eq.X, 0)
	if err != nil {
		return err
	}

	fmt.Printf("system: %s\n", def.Name)
	fmt.Printf("equilibrium after %d iterations (residual %.2e):\n", eq.Iterations, eq.Residual)
	for i, name := range def.VariableNames {
		fmt.Printf("  %-8s %.10g\n", name, eq.X[i])
	}
	fmt.Printf("\ntype: %s\n", lin.Kind())
	fmt.Println("eigenvalues:")
	for _, v := range lin.Values {
		fmt.Printf("  %s\n", analysis.FormatEigenvalue(v))
	}

	seeds := lin.SeparatrixSeeds(sepEps)
	if len(seeds) > 0 {
		fmt.Printf("\nseparatrix seeds (eps=%g):\n", sepEps)
		for _, s := range seeds {
			dir := "forward"
			if s.Backward {
				dir = "backward"
			}
			fmt.Printf("  λ=%-10.4g %+d  %-8s %v\n", s.Eigenvalue, s.Sign, dir, s.State)
		}
	}
	return nil
}

func lyapunov(cmd *cobra.Command, args []string) error {
	def, p, err := loadWithParams(args[0])
	if err != nil {
		return err
	}
	start, err := startState(def, x0)
	if err != nil {
		return err
	}
	integ, err := integrators.New(fixedStep)
	if err != nil {
		return err
	}

	fmt.Printf("system: %s  dt=%g  t=%g\n\n", def.Name, dt, duration)
	largest := analysis.LyapunovExponent(def.System, integ, p, start, dt, duration, 1e-8)
	fmt.Printf("largest exponent: %.6f\n", largest)
	if largest > 0.01 {
		fmt.Println("  (positive: sensitive dependence on initial conditions)")
	}

	fmt.Println("\nper-direction separation rates:")
	for i, v := range analysis.LyapunovSpectrum(def.System, integ, p, start, dt, duration, 1e-8) {
		fmt.Printf("  %-8s %.6f\n", def.VariableNames[i], v)
	}
	return nil
}

func bifurcation(cmd *cobra.Command, args []string) error {
	def, p, err := loadWithParams(args[0])
	if err != nil {
		return err
	}
	start, err := startState(def, x0)
	if err != nil {
		return err
	}
	integ, err := integrators.New(fixedStep)
	if err != nil {
		return err
	}
	pi := def.ParameterIndex(sweepParam)
	if pi < 0 {
		return fmt.Errorf("unknown parameter %s (have %v)", sweepParam, def.ParameterNames)
	}
	vi := 0
	if sweepVar != "" {
		if vi = def.VariableIndex(sweepVar); vi < 0 {
			return fmt.Errorf("unknown variable %s (have %v)", sweepVar, def.VariableNames)
		}
	}

	data := analysis.BifurcationDiagram(def.System, integ, p, start, analysis.BifurcationSweep{
		ParamIndex: pi,
		Min:        sweepMin,
		Max:        sweepMax,
		Steps:      sweepSteps,
		StateIndex: vi,
		Dt:         dt,
		Transient:  duration,
		Record:     duration,
	})
	if len(data) == 0 {
		return fmt.Errorf("empty sweep")
	}

	fmt.Printf("%s: %s over %s ∈ [%g, %g]\n\n", def.Name, def.VariableNames[vi], sweepParam, sweepMin, sweepMax)
	fmt.Print(analysis.BifurcationToASCII(data, 70, 24))
	return nil
}
