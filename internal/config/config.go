package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
)

const (
	DefaultSystem = "pendulum"
	DefaultTStart = 0.0
	DefaultTEnd   = 10.0
	DefaultTSteps = 1000

	// TimeAxis selects time as a plot axis.
	TimeAxis = "t"
)

var (
	ErrUnknownVariable  = errors.New("config: unknown variable")
	ErrUnknownParameter = errors.New("config: unknown parameter")
	ErrNoSystem         = errors.New("config: no system given")
)

// Config is a YAML run file: which system to load, its parameters, the
// trajectories to integrate and how to plot them.
type Config struct {
	System       string             `yaml:"system"`
	Parameters   map[string]float64 `yaml:"parameters,omitempty"`
	Trajectories []Trajectory       `yaml:"trajectories,omitempty"`
	Solver       SolverConfig       `yaml:"solver"`
	Plot         PlotConfig         `yaml:"plot"`
}

// Trajectory is one row. Variables missing from Initial take the system's
// default state.
type Trajectory struct {
	Initial     map[string]float64 `yaml:"initial,omitempty"`
	dynamo.Span `yaml:",inline"`
	Hidden      bool `yaml:"hidden,omitempty"`
}

type SolverConfig struct {
	Method string  `yaml:"method"`
	RTol   float64 `yaml:"rtol"`
	ATol   float64 `yaml:"atol"`
}

// PlotConfig names the projection axes by variable name, or TimeAxis.
type PlotConfig struct {
	X string `yaml:"x,omitempty"`
	Y string `yaml:"y,omitempty"`
}

func DefaultSpan() dynamo.Span {
	return dynamo.Span{Start: DefaultTStart, End: DefaultTEnd, Steps: DefaultTSteps}
}

func DefaultConfig() *Config {
	return &Config{
		System: DefaultSystem,
		Solver: SolverConfig{
			Method: integrators.DefaultMethod,
			RTol:   integrators.DefaultRTol,
			ATol:   integrators.DefaultATol,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadInto(path, DefaultConfig())
}

// LoadInto decodes path over cfg, so fields absent from the file keep
// their current values.
func LoadInto(path string, cfg *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.Parameters = cloneMap(c.Parameters)
	if c.Trajectories != nil {
		out.Trajectories = make([]Trajectory, len(c.Trajectories))
		for i, tr := range c.Trajectories {
			tr.Initial = cloneMap(tr.Initial)
			out.Trajectories[i] = tr
		}
	}
	return &out
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate checks what can be checked without loading the system.
func (c *Config) Validate() error {
	if c.System == "" {
		return ErrNoSystem
	}
	if c.Solver.Method != "" {
		if _, err := integrators.New(c.Solver.Method); err != nil {
			return err
		}
	}
	if c.Solver.RTol < 0 || c.Solver.ATol < 0 {
		return fmt.Errorf("config: tolerances must not be negative (rtol=%g, atol=%g)", c.Solver.RTol, c.Solver.ATol)
	}
	for i, tr := range c.Trajectories {
		if err := tr.Span.Validate(); err != nil {
			return fmt.Errorf("trajectory %d: %w", i, err)
		}
	}
	return nil
}

// ParamValues orders the configured parameters by names, falling back to
// defaults (or zero) for missing ones.
func (c *Config) ParamValues(names []string, defaults dynamo.Params) (dynamo.Params, error) {
	return valuesFor(c.Parameters, names, defaults, ErrUnknownParameter)
}

// InitialState orders a trajectory's initial values by variable names.
func (tr Trajectory) InitialState(names []string, defaults dynamo.State) (dynamo.State, error) {
	v, err := valuesFor(tr.Initial, names, defaults, ErrUnknownVariable)
	return dynamo.State(v), err
}

func valuesFor(m map[string]float64, names []string, defaults []float64, unknown error) ([]float64, error) {
	out := make([]float64, len(names))
	if len(defaults) == len(names) {
		copy(out, defaults)
	}
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	for k, v := range m {
		i, ok := index[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s (have %v)", unknown, k, names)
		}
		out[i] = v
	}
	return out, nil
}

// AxisIndex resolves an axis name to a variable index; TimeAxis maps to
// len(names). An empty name returns fallback.
func AxisIndex(name string, names []string, fallback int) (int, error) {
	if name == "" {
		return fallback, nil
	}
	if name == TimeAxis {
		return len(names), nil
	}
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s (have %v or %s)", ErrUnknownVariable, name, names, TimeAxis)
}
