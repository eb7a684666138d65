package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/phasespace/internal/analysis"
	"github.com/san-kum/phasespace/internal/config"
	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
	"github.com/san-kum/phasespace/internal/loader"
	"github.com/san-kum/phasespace/internal/storage"
	"github.com/san-kum/phasespace/internal/tui"
	"github.com/san-kum/phasespace/internal/workbench"
)

// resolveConfig builds the run file from defaults, environment, preset,
// config file and flags, in increasing precedence, and loads its system.
func resolveConfig(cmd *cobra.Command, args []string) (*dynamo.Definition, *config.Config, error) {
	cfg := config.DefaultConfig()
	env.Apply(cfg)
	if len(args) > 0 {
		cfg.System = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.System, preset)
		if p == nil {
			return nil, nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.System))
		}
		cfg.Merge(p)
	}

	if configFile != "" {
		if _, err := config.LoadInto(configFile, cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			cfg.System = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("method") {
		cfg.Solver.Method = method
	}
	if flags.Changed("rtol") {
		cfg.Solver.RTol = rtol
	}
	if flags.Changed("atol") {
		cfg.Solver.ATol = atol
	}
	for name, raw := range params {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		if cfg.Parameters == nil {
			cfg.Parameters = make(map[string]float64)
		}
		cfg.Parameters[name] = v
	}

	def, err := loader.Load(cfg.System)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("loaded system", "name", def.Name, "source", def.Source, "dim", def.Dim())

	if flags.Changed("x0") {
		if len(x0) != def.Dim() {
			return nil, nil, fmt.Errorf("%w: --x0 has %d values, %s has variables %v",
				dynamo.ErrDimensionMismatch, len(x0), def.Name, def.VariableNames)
		}
		initial := make(map[string]float64, len(x0))
		for i, name := range def.VariableNames {
			initial[name] = x0[i]
		}
		cfg.Trajectories = []config.Trajectory{{Initial: initial, Span: config.DefaultSpan()}}
	}
	if flags.Changed("t-start") || flags.Changed("t-end") || flags.Changed("t-steps") || flags.Changed("x0") {
		if len(cfg.Trajectories) == 0 {
			cfg.Trajectories = []config.Trajectory{{Span: config.DefaultSpan()}}
		}
		for i := range cfg.Trajectories {
			sp := &cfg.Trajectories[i].Span
			if flags.Changed("t-start") || flags.Changed("x0") {
				sp.Start = tStart
			}
			if flags.Changed("t-end") || flags.Changed("x0") {
				sp.End = tEnd
			}
			if flags.Changed("t-steps") || flags.Changed("x0") {
				sp.Steps = tSteps
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return def, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runTrajectories(cmd *cobra.Command, args []string) error {
	def, cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	wb := workbench.New(def, integrators.NewSolver())
	if err := wb.Apply(cfg); err != nil {
		return err
	}

	if addSeps {
		if err := addSeparatrices(wb); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("integrating %s (%d trajectories)...\n", def.Name, len(wb.Rows()))
	start := time.Now()
	runErr := wb.IntegrateAll(ctx)
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROW\tDIR\tSAMPLES\tSEGMENTS\tEVENTS\tSTEPS\tRUN")
	for _, r := range wb.Rows() {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\terror: %v\n", r.Name, r.Direction(), r.Err)
			continue
		}
		res, err := r.Processor.Result()
		if err != nil {
			return err
		}
		sol, err := r.Processor.Solution()
		if err != nil {
			return err
		}

		runID := "-"
		if !noSave {
			opts := wb.RunConfig(r.Span).Options()
			meta := storage.RunMetadata{
				System:         cfg.System,
				Source:         def.Source,
				VariableNames:  def.VariableNames,
				ParameterNames: def.ParameterNames,
				Params:         wb.Params(),
				Initial:        r.Processor.InitialState(),
				Span:           r.Span,
				Method:         opts.Method,
				RTol:           opts.RTol,
				ATol:           opts.ATol,
				Periodic:       def.Periodic,
				Stats:          sol.Stats,
			}
			if runID, err = st.Save(meta, res); err != nil {
				return err
			}
			slog.Debug("saved run", "id", runID, "row", r.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Name, r.Direction(), len(res.Full), len(res.Canonical), len(res.Events), sol.Stats.Steps, runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if saveConfig != "" {
		out := wb.Config()
		out.System = cfg.System
		out.Plot = cfg.Plot
		if err := config.Save(saveConfig, out); err != nil {
			return err
		}
		fmt.Printf("\nrun file written to %s\n", saveConfig)
	}
	return runErr
}

// addSeparatrices locates the equilibrium near --guess and adds its
// separatrix rows over the span of the first row.
func addSeparatrices(wb *workbench.Workbench) error {
	def := wb.Definition()
	g := dynamo.State(guess)
	if len(g) == 0 {
		g = def.DefaultState
	}
	eq, err := analysis.FindEquilibrium(def.System, wb.Params(), g, analysis.DefaultNewtonOptions())
	if err != nil {
		return err
	}
	span := config.DefaultSpan()
	if rows := wb.Rows(); len(rows) > 0 {
		span = rows[0].Span
		if span.End < span.Start {
			span.Start, span.End = span.End, span.Start
		}
	}
	added, err := wb.AddSeparatrices(eq.X, sepEps, span)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return errors.New("equilibrium has no real eigendirections")
	}
	slog.Debug("added separatrices", "equilibrium", eq.X, "rows", len(added))
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" && preset == "" {
		cfg := config.DefaultConfig()
		env.Apply(cfg)
		return tui.RunExplorer(tui.Options{Config: cfg})
	}
	def, cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	// loaded systems are keyed by their definition name in the explorer
	cfg.System = def.Name
	return tui.RunExplorer(tui.Options{Definition: def, Config: cfg})
}
