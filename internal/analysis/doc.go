// Package analysis provides equilibrium, stability and chaos tools for
// loaded systems.
//
//   - [FindEquilibrium]: damped Newton search for rest points
//   - [Linearize]: Jacobian eigen decomposition and [Kind] classification
//   - [Linearization.SeparatrixSeeds]: initial states on eigendirections
//   - [LyapunovExponent], [LyapunovSpectrum]: trajectory separation rates
//   - [BifurcationDiagram]: fixed-step parameter sweep
//   - [PhasePortraitASCII]: terminal phase portrait of processed segments
//
// # Separatrices
//
// Seeds of a saddle traced forward along unstable directions and backward
// along stable ones draw its separatrices:
//
//	eq, _ := analysis.FindEquilibrium(def.System, params, guess, analysis.DefaultNewtonOptions())
//	lin, _ := analysis.Linearize(def.System, params, eq.X, 0)
//	for _, seed := range lin.SeparatrixSeeds(1e-3) {
//	    // integrate from seed.State, backward when seed.Backward
//	}
package analysis
