package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/phasespace/internal/config"
	"github.com/san-kum/phasespace/internal/tui"
)

var (
	dataDir string
	verbose bool

	// run / tui
	configFile string
	preset     string
	method     string
	rtol       float64
	atol       float64
	tStart     float64
	tEnd       float64
	tSteps     int
	x0         []float64
	params     map[string]string
	saveConfig string
	noSave     bool

	// plotting
	xAxis     string
	yAxis     string
	section   bool
	outFile   string
	renderOut string
	width     int
	height    int
	what      string

	// analysis
	guess      []float64
	sepEps     float64
	addSeps    bool
	fixedStep  string
	dt         float64
	duration   float64
	sweepParam string
	sweepVar   string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

var env config.Env

func main() {
	var err error
	env, err = config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "phasespace",
		Short: "phase space explorer for dynamical systems",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunExplorer(tui.Options{})
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "run directory (PHASESPACE_DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	runCmd := &cobra.Command{
		Use:   "run [system | folder]",
		Short: "integrate trajectories and save them",
		Long: "Integrate every trajectory of a system and save each as a run.\n" +
			"The system is a built-in name or a folder holding dynamical_system.lua.",
		Args: cobra.MaximumNArgs(1),
		RunE: runTrajectories,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved run file (yaml)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "integrate without saving runs")
	runCmd.Flags().BoolVar(&addSeps, "separatrices", false, "add separatrix rows from the equilibrium near --guess")
	runCmd.Flags().Float64SliceVar(&guess, "guess", nil, "equilibrium guess for --separatrices")
	runCmd.Flags().Float64Var(&sepEps, "eps", 1e-3, "separatrix seed offset")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot every variable of a run over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id...]",
		Short: "ASCII phase portrait of canonical segments",
		Args:  cobra.MinimumNArgs(1),
		RunE:  phasePlot,
	}
	addAxisFlags(phaseCmd)
	phaseCmd.Flags().BoolVar(&section, "section", false, "plot event samples only (Poincaré section)")
	phaseCmd.Flags().IntVar(&width, "width", 70, "plot width")
	phaseCmd.Flags().IntVar(&height, "height", 24, "plot height")

	renderCmd := &cobra.Command{
		Use:   "render [run_id...]",
		Short: "render a phase portrait to PNG, SVG or PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE:  renderRuns,
	}
	addAxisFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "portrait.png", "output file; the extension selects the format")

	systemsCmd := &cobra.Command{
		Use:   "systems",
		Short: "list built-in systems",
		RunE:  listSystems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				cfg := config.GetPreset(args[0], p)
				fmt.Printf("  %-14s %d trajectories\n", p, len(cfg.Trajectories))
			}
			return nil
		},
	}

	eqCmd := &cobra.Command{
		Use:   "equilibrium [system | folder]",
		Short: "find an equilibrium and classify it",
		Args:  cobra.ExactArgs(1),
		RunE:  findEquilibrium,
	}
	eqCmd.Flags().Float64SliceVar(&guess, "guess", nil, "initial guess (defaults to the system's default state)")
	eqCmd.Flags().StringToStringVar(&params, "param", nil, "parameter override name=value")
	eqCmd.Flags().Float64Var(&sepEps, "eps", 1e-3, "separatrix seed offset")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&what, "what", "segments", "full, segments or events")
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id...]",
		Short: "delete saved runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  deleteRuns,
	}

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [system | folder]",
		Short: "estimate Lyapunov exponents",
		Args:  cobra.ExactArgs(1),
		RunE:  lyapunov,
	}
	lyapunovCmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial state")
	lyapunovCmd.Flags().StringToStringVar(&params, "param", nil, "parameter override name=value")
	lyapunovCmd.Flags().StringVar(&fixedStep, "method", "RK4", "fixed-step method")
	lyapunovCmd.Flags().Float64Var(&dt, "dt", 0.01, "timestep")
	lyapunovCmd.Flags().Float64Var(&duration, "time", 100, "duration")

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation [system | folder]",
		Short: "sweep a parameter and plot the visited values",
		Args:  cobra.ExactArgs(1),
		RunE:  bifurcation,
	}
	bifurcationCmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial state")
	bifurcationCmd.Flags().StringToStringVar(&params, "param", nil, "parameter override name=value")
	bifurcationCmd.Flags().StringVar(&fixedStep, "method", "RK4", "fixed-step method")
	bifurcationCmd.Flags().StringVar(&sweepParam, "sweep", "", "parameter to sweep")
	bifurcationCmd.Flags().StringVar(&sweepVar, "var", "", "variable to record (default first)")
	bifurcationCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep start")
	bifurcationCmd.Flags().Float64Var(&sweepMax, "max", 1, "sweep end")
	bifurcationCmd.Flags().IntVar(&sweepSteps, "steps", 60, "sweep steps")
	bifurcationCmd.Flags().Float64Var(&dt, "dt", 0.01, "timestep")
	bifurcationCmd.Flags().Float64Var(&duration, "time", 100, "transient duration; the same again is recorded")
	_ = bifurcationCmd.MarkFlagRequired("sweep")

	tuiCmd := &cobra.Command{
		Use:   "tui [system | folder]",
		Short: "interactive explorer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&configFile, "config", "", "run file (yaml)")
	tuiCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, phaseCmd, renderCmd, systemsCmd, presetsCmd,
		eqCmd, exportCSVCmd, exportJSONCmd, deleteCmd, lyapunovCmd, bifurcationCmd, tuiCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&method, "method", "", "integration method (Euler, RK4, RK45)")
	cmd.Flags().Float64Var(&rtol, "rtol", 0, "relative tolerance")
	cmd.Flags().Float64Var(&atol, "atol", 0, "absolute tolerance")
	cmd.Flags().Float64Var(&tStart, "t-start", config.DefaultTStart, "start time")
	cmd.Flags().Float64Var(&tEnd, "t-end", config.DefaultTEnd, "end time (below t-start integrates backward)")
	cmd.Flags().IntVar(&tSteps, "t-steps", config.DefaultTSteps, "approximate number of samples")
	cmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial state, replaces the configured trajectories")
	cmd.Flags().StringToStringVar(&params, "param", nil, "parameter override name=value")
}

func addAxisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&xAxis, "x", "", "x axis variable name or t (default first variable)")
	cmd.Flags().StringVar(&yAxis, "y", "", "y axis variable name or t (default second variable)")
}
