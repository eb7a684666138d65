package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/phasespace/internal/analysis"
	"github.com/san-kum/phasespace/internal/config"
	"github.com/san-kum/phasespace/internal/physics"
	"github.com/san-kum/phasespace/internal/render"
	"github.com/san-kum/phasespace/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tSPAN\tMETHOD\tSAMPLES\tSEGMENTS\tEVENTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g→%g\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.System,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Span.Start, run.Span.End,
			run.Method,
			run.Samples,
			run.Segments,
			run.Events,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	full, err := st.LoadFull(runID)
	if err != nil {
		return err
	}
	if len(full) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s\n", meta.System)
	fmt.Printf("samples: %d  t: %g → %g\n\n", len(full), full[0].T, full[len(full)-1].T)

	numVars := min(len(full[0].X), 6)
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(full))
		for i, s := range full {
			data[i] = s.X[varIdx]
		}

		caption := fmt.Sprintf("x%d vs time", varIdx)
		if varIdx < len(meta.VariableNames) {
			caption = meta.VariableNames[varIdx] + " vs time"
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

// loadSeries reads the canonical segments (or event samples) of runs and
// resolves the plot axes against the first run's variables.
func loadSeries(runIDs []string, sections bool) ([]analysis.Series, *storage.RunMetadata, int, int, error) {
	st := storage.New(dataDir)
	var series []analysis.Series
	var first *storage.RunMetadata
	for _, id := range runIDs {
		meta, err := st.Load(id)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		if first == nil {
			first = meta
		} else if len(meta.VariableNames) != len(first.VariableNames) {
			return nil, nil, 0, 0, fmt.Errorf("run %s has %d variables, %s has %d",
				id, len(meta.VariableNames), first.ID, len(first.VariableNames))
		}
		if sections {
			events, err := st.LoadEvents(id)
			if err != nil {
				return nil, nil, 0, 0, err
			}
			s := analysis.PoincareSection(events)
			s.Name = id
			series = append(series, s)
			continue
		}
		segs, err := st.LoadSegments(id)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		series = append(series, analysis.Series{Name: id, Segments: segs})
	}

	names := first.VariableNames
	x, err := config.AxisIndex(xAxis, names, 0)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	y, err := config.AxisIndex(yAxis, names, min(1, len(names)))
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return series, first, x, y, nil
}

func axisLabel(names []string, idx int) string {
	if idx == len(names) {
		return config.TimeAxis
	}
	return names[idx]
}

func phasePlot(cmd *cobra.Command, args []string) error {
	series, meta, x, y, err := loadSeries(args, section)
	if err != nil {
		return err
	}

	fmt.Printf("phase space plot: %s\n", strings.Join(args, ", "))
	fmt.Printf("system: %s\n", meta.System)
	fmt.Printf("x-axis: %s, y-axis: %s\n\n", axisLabel(meta.VariableNames, x), axisLabel(meta.VariableNames, y))

	portrait := analysis.PhasePortraitASCII(series, x, y, width, height)
	if portrait == "" {
		return fmt.Errorf("no data to plot")
	}
	fmt.Print(portrait)
	fmt.Println()
	for i, s := range series {
		fmt.Printf("  %c %s (%d segments)\n", analysis.Glyph(i), s.Name, len(s.Segments))
	}
	return nil
}

func renderRuns(cmd *cobra.Command, args []string) error {
	series, meta, x, y, err := loadSeries(args, false)
	if err != nil {
		return err
	}
	axes := render.Axes{
		X: x, Y: y,
		XLabel: axisLabel(meta.VariableNames, x),
		YLabel: axisLabel(meta.VariableNames, y),
	}
	opts := render.DefaultOptions()
	opts.Title = meta.System
	if err := render.Save(renderOut, series, axes, opts); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", renderOut)
	return nil
}

func listSystems(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVARIABLES\tPARAMETERS\tPERIODIC\tDESCRIPTION")
	for _, name := range physics.Default.List() {
		def, err := physics.Default.Get(name)
		if err != nil {
			return err
		}
		var periodicVars []string
		for _, i := range def.Periodic.Indices() {
			periodicVars = append(periodicVars, def.VariableNames[i])
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			name,
			strings.Join(def.VariableNames, ","),
			strings.Join(def.ParameterNames, ","),
			strings.Join(periodicVars, ","),
			def.Description,
		)
	}
	return w.Flush()
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}

	switch what {
	case "full":
		err = storage.WriteSamplesCSV(w, meta.VariableNames, res.Full)
	case "segments":
		err = storage.WriteSegmentsCSV(w, meta.VariableNames, res.Canonical)
	case "events":
		err = storage.WriteEventsCSV(w, meta.VariableNames, res.Events)
	default:
		err = fmt.Errorf("unknown export %q (full, segments, events)", what)
	}
	if cerr := done(); err == nil {
		err = cerr
	}
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	err = storage.ExportJSON(w, *meta, res)
	if cerr := done(); err == nil {
		err = cerr
	}
	return err
}

func deleteRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	for _, id := range args {
		if err := st.Delete(id); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", id)
	}
	return nil
}
