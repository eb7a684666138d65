package workbench

import (
	"fmt"

	"github.com/san-kum/phasespace/internal/config"
)

// Apply sets parameters, solver settings and rows from a run file. Existing
// rows are replaced. A config without trajectories yields one row from the
// system's default state over the default span.
func (w *Workbench) Apply(cfg *config.Config) error {
	params, err := cfg.ParamValues(w.def.ParameterNames, w.def.DefaultParams)
	if err != nil {
		return err
	}
	if err := w.SetParams(params); err != nil {
		return err
	}
	w.settings = Settings{Method: cfg.Solver.Method, RTol: cfg.Solver.RTol, ATol: cfg.Solver.ATol}

	trajectories := cfg.Trajectories
	if len(trajectories) == 0 {
		trajectories = []config.Trajectory{{Span: config.DefaultSpan()}}
	}
	w.rows = nil
	for i, tr := range trajectories {
		x0, err := tr.InitialState(w.def.VariableNames, w.def.DefaultState)
		if err != nil {
			return fmt.Errorf("trajectory %d: %w", i, err)
		}
		idx, err := w.AddRow(x0, tr.Span)
		if err != nil {
			return fmt.Errorf("trajectory %d: %w", i, err)
		}
		w.rows[idx].Show = !tr.Hidden
	}
	return nil
}

// Config captures the current session as a run file.
func (w *Workbench) Config() *config.Config {
	cfg := &config.Config{
		System:     w.def.Name,
		Parameters: make(map[string]float64, len(w.params)),
		Solver:     config.SolverConfig{Method: w.settings.Method, RTol: w.settings.RTol, ATol: w.settings.ATol},
	}
	for i, name := range w.def.ParameterNames {
		cfg.Parameters[name] = w.params[i]
	}
	for _, r := range w.rows {
		x0 := r.Processor.InitialState()
		initial := make(map[string]float64, len(x0))
		for i, name := range w.def.VariableNames {
			initial[name] = x0[i]
		}
		cfg.Trajectories = append(cfg.Trajectories, config.Trajectory{
			Initial: initial,
			Span:    r.Span,
			Hidden:  !r.Show,
		})
	}
	return cfg
}
