package config

import (
	"sort"

	"github.com/san-kum/phasespace/internal/dynamo"
)

func span(end float64, steps int) dynamo.Span {
	return dynamo.Span{Start: 0, End: end, Steps: steps}
}

func backward(end float64, steps int) dynamo.Span {
	return dynamo.Span{Start: 0, End: -end, Steps: steps}
}

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"oscillating": {
			System:     "pendulum",
			Parameters: map[string]float64{"g": 0.0, "mu": 0.1},
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"phi": 0.5, "y": 0}, Span: span(40, 2000)},
				{Initial: map[string]float64{"phi": 2.5, "y": 0}, Span: span(40, 2000)},
			},
			Plot: PlotConfig{X: "phi", Y: "y"},
		},
		"bistable": {
			System:     "pendulum",
			Parameters: map[string]float64{"g": 0.5, "mu": 0.1},
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"phi": 0, "y": 2}, Span: span(60, 3000)},
				{Initial: map[string]float64{"phi": 0.6, "y": 0.3}, Span: span(60, 3000)},
			},
			Plot: PlotConfig{X: "phi", Y: "y"},
		},
		"running": {
			System:     "pendulum",
			Parameters: map[string]float64{"g": 1.2, "mu": 0.1},
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"phi": 0, "y": 0}, Span: span(60, 3000)},
			},
			Plot: PlotConfig{X: "phi", Y: "y"},
		},
	},
	"lorenz": {
		"classic": {
			System:       "lorenz",
			Parameters:   map[string]float64{"σ": 10, "r": 28, "b": 8.0 / 3.0},
			Trajectories: []Trajectory{{Initial: map[string]float64{"x": 1, "y": 1, "z": 1}, Span: span(50, 5000)}},
			Plot:         PlotConfig{X: "x", Y: "z"},
		},
		"transient": {
			System:       "lorenz",
			Parameters:   map[string]float64{"σ": 10, "r": 20, "b": 8.0 / 3.0},
			Trajectories: []Trajectory{{Initial: map[string]float64{"x": 1, "y": 1, "z": 1}, Span: span(50, 5000)}},
			Plot:         PlotConfig{X: "x", Y: "z"},
		},
	},
	"pll": {
		"locked": {
			System:       "pll",
			Parameters:   map[string]float64{"g1": 0.3, "g2": 0.4, "k": 0.5, "d": 0.5},
			Trajectories: []Trajectory{{Initial: map[string]float64{"p1": 0, "p2": 0}, Span: span(100, 2000)}},
		},
		"drifting": {
			System:       "pll",
			Parameters:   map[string]float64{"g1": 1.2, "g2": 0.9, "k": 0.2, "d": 0.5},
			Trajectories: []Trajectory{{Initial: map[string]float64{"p1": 0, "p2": 0}, Span: span(100, 2000)}},
		},
	},
	"vanderpol": {
		"limit-cycle": {
			System:     "vanderpol",
			Parameters: map[string]float64{"mu": 1},
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"x": 0.1, "y": 0}, Span: span(30, 1500)},
				{Initial: map[string]float64{"x": 4, "y": 0}, Span: span(30, 1500)},
			},
		},
		"relaxation": {
			System:       "vanderpol",
			Parameters:   map[string]float64{"mu": 5},
			Trajectories: []Trajectory{{Initial: map[string]float64{"x": 2, "y": 0}, Span: span(50, 5000)}},
		},
	},
	"duffing": {
		"chaotic": {
			System:       "duffing",
			Parameters:   map[string]float64{"alpha": -1, "beta": 1, "delta": 0.3, "gamma": 0.5, "omega": 1.2},
			Trajectories: []Trajectory{{Initial: map[string]float64{"x": 1, "v": 0, "phi": 0}, Span: span(200, 20000)}},
			Plot:         PlotConfig{X: "x", Y: "v"},
		},
	},
	"doublewell": {
		"wells": {
			System: "doublewell",
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"x": 1.1, "v": 0}, Span: span(40, 2000)},
				{Initial: map[string]float64{"x": -1.1, "v": 0}, Span: span(40, 2000)},
				{Initial: map[string]float64{"x": 0, "v": 1.5}, Span: span(40, 2000)},
			},
		},
	},
	"rossler": {
		"classic": {
			System:       "rossler",
			Parameters:   map[string]float64{"a": 0.2, "b": 0.2, "c": 5.7},
			Trajectories: []Trajectory{{Initial: map[string]float64{"x": 1, "y": 1, "z": 1}, Span: span(200, 10000)}},
		},
	},
	"coupled": {
		"beats": {
			System: "coupled",
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"theta1": 0.5}, Span: span(20, 4000)},
			},
			Plot: PlotConfig{X: TimeAxis, Y: "theta1"},
		},
	},
	"diploma": {
		"both-ways": {
			System: "diploma",
			Trajectories: []Trajectory{
				{Initial: map[string]float64{"u": 0.1}, Span: span(50, 2000)},
				{Initial: map[string]float64{"u": 0.1}, Span: backward(20, 800)},
			},
			Plot: PlotConfig{X: "u", Y: "y"},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge overlays a preset on cfg: the preset's system, parameters,
// trajectories and plot axes replace cfg's, solver settings are kept.
func (c *Config) Merge(preset *Config) {
	c.System = preset.System
	if preset.Parameters != nil {
		c.Parameters = cloneMap(preset.Parameters)
	}
	if preset.Trajectories != nil {
		c.Trajectories = preset.Clone().Trajectories
	}
	if preset.Plot != (PlotConfig{}) {
		c.Plot = preset.Plot
	}
}
