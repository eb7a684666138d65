package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings read from the environment.
type Env struct {
	DataDir string  `env:"PHASESPACE_DATA_DIR" envDefault:"runs"`
	Method  string  `env:"PHASESPACE_METHOD"`
	RTol    float64 `env:"PHASESPACE_RTOL"`
	ATol    float64 `env:"PHASESPACE_ATOL"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply overrides the solver settings that are set in the environment.
func (e Env) Apply(cfg *Config) {
	if e.Method != "" {
		cfg.Solver.Method = e.Method
	}
	if e.RTol > 0 {
		cfg.Solver.RTol = e.RTol
	}
	if e.ATol > 0 {
		cfg.Solver.ATol = e.ATol
	}
}
