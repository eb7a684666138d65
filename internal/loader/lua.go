package loader

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
)

// FolderLoader loads a system written in Lua. Path is a folder containing
// dynamical_system.lua or the script itself. The script defines globals:
//
//	variable_names    = {"phi", "y"}
//	parameter_names   = {"g", "mu"}
//	function ODEs(U, p, t) return {U[2], p[1] - p[2]*U[2] - math.sin(U[1])} end
//	periodic_data     = {phi = {-math.pi, 2*math.pi}}   -- optional
//	periodic_events   = {function(t, U) ... end}        -- optional
//	default_parameters, default_state                   -- optional
//
// Tables are 1-based. periodic_data keys are a variable name or a 1-based
// index; values are {offset, period} or {offset=..., period=...}. Without
// periodic_events, a crossing event is generated per periodic variable.
type FolderLoader struct {
	Path string
}

func (f *FolderLoader) script() (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoFile, err)
	}
	if !info.IsDir() {
		return f.Path, nil
	}
	path := filepath.Join(f.Path, ScriptName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoFile, path)
	}
	return path, nil
}

func (f *FolderLoader) Load() (*dynamo.Definition, error) {
	path, err := f.script()
	if err != nil {
		return nil, &LoadError{Path: f.Path, Wrapped: err}
	}
	def, err := loadScript(path)
	if err != nil {
		return nil, &LoadError{Path: path, Wrapped: err}
	}
	return def, nil
}

func loadScript(path string) (*dynamo.Definition, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)

	if err := lua.LoadFile(l, path, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCouldNotImport, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCouldNotImport, err)
	}

	vars, ok := globalStrings(l, "variable_names")
	if !ok || len(vars) == 0 {
		return nil, ErrVariableNamesNotFound
	}
	params, ok := globalStrings(l, "parameter_names")
	if !ok {
		return nil, ErrParameterNamesNotFound
	}
	l.Global("ODEs")
	hasODEs := l.IsFunction(-1)
	l.Pop(1)
	if !hasODEs {
		return nil, ErrODEsNotFound
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if filepath.Base(path) == ScriptName {
		name = filepath.Base(filepath.Dir(path))
	}
	var err error
	sys := &luaSystem{l: l, dim: len(vars)}
	def := &dynamo.Definition{
		Name:           globalString(l, "name", name),
		Source:         path,
		Description:    globalString(l, "description", ""),
		VariableNames:  vars,
		ParameterNames: params,
		System:         sys,
	}

	if def.Periodic, err = periodicData(l, vars); err != nil {
		return nil, err
	}
	if def.DefaultParams, err = globalVector(l, "default_parameters", len(params)); err != nil {
		return nil, err
	}
	if def.DefaultState, err = globalVector(l, "default_state", len(vars)); err != nil {
		return nil, err
	}

	l.Global("periodic_events")
	switch {
	case l.IsTable(-1):
		n := l.RawLength(-1)
		for k := 1; k <= n; k++ {
			l.RawGetInt(-1, k)
			isFn := l.IsFunction(-1)
			l.Pop(1)
			if !isFn {
				l.Pop(1)
				return nil, fmt.Errorf("%w: periodic_events[%d] is not a function", ErrInvalidDefinition, k)
			}
			def.Events = append(def.Events, sys.event(k))
		}
	case l.IsNoneOrNil(-1):
		def.Events = dynamo.CrossingEvents(def.Periodic)
	default:
		l.Pop(1)
		return nil, fmt.Errorf("%w: periodic_events must be a list of functions", ErrInvalidDefinition)
	}
	l.Pop(1)

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return def, nil
}

// luaSystem evaluates ODEs and event functions in a Lua state. A Lua state
// is single-threaded, so every call holds mu. Failures are returned to the
// caller of each evaluation, never kept on the shared state.
type luaSystem struct {
	mu  sync.Mutex
	l   *lua.State
	dim int
}

func (s *luaSystem) StateDim() int { return s.dim }

// Derive returns a zero derivative when the script fails; the solver uses
// DeriveErr.
func (s *luaSystem) Derive(x dynamo.State, p dynamo.Params, t float64) dynamo.State {
	dx, err := s.DeriveErr(x, p, t)
	if err != nil {
		return make(dynamo.State, s.dim)
	}
	return dx
}

func (s *luaSystem) DeriveErr(x dynamo.State, p dynamo.Params, t float64) (dynamo.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.l
	top := l.Top()
	defer l.SetTop(top)

	l.Global("ODEs")
	pushVector(l, x)
	pushVector(l, p)
	l.PushNumber(t)
	if err := l.ProtectedCall(3, 1, 0); err != nil {
		return nil, fmt.Errorf("ODEs at t=%g: %v", t, err)
	}
	dx, err := toVector(l, -1)
	if err != nil {
		return nil, fmt.Errorf("ODEs at t=%g: %w", t, err)
	}
	return dx, nil
}

// event returns periodic_events[k] as an EventFunc.
func (s *luaSystem) event(k int) dynamo.EventFunc {
	return func(t float64, x dynamo.State) (float64, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		l := s.l
		top := l.Top()
		defer l.SetTop(top)

		l.Global("periodic_events")
		l.RawGetInt(-1, k)
		l.PushNumber(t)
		pushVector(l, x)
		if err := l.ProtectedCall(2, 1, 0); err != nil {
			return math.NaN(), fmt.Errorf("periodic_events[%d] at t=%g: %v", k, t, err)
		}
		v, ok := l.ToNumber(-1)
		if !ok {
			return math.NaN(), fmt.Errorf("periodic_events[%d] at t=%g: result is not a number", k, t)
		}
		return v, nil
	}
}

func pushVector(l *lua.State, v []float64) {
	l.CreateTable(len(v), 0)
	for i, x := range v {
		l.PushNumber(x)
		l.RawSetInt(-2, i+1)
	}
}

var errNotList = errors.New("expected a list of numbers")

func toVector(l *lua.State, index int) ([]float64, error) {
	if !l.IsTable(index) {
		return nil, errNotList
	}
	index = l.AbsIndex(index)
	n := l.RawLength(index)
	out := make([]float64, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(index, i)
		v, ok := l.ToNumber(-1)
		l.Pop(1)
		if !ok {
			return nil, fmt.Errorf("%w: element %d", errNotList, i)
		}
		out[i-1] = v
	}
	return out, nil
}

func globalStrings(l *lua.State, name string) ([]string, bool) {
	l.Global(name)
	defer l.Pop(1)
	if !l.IsTable(-1) {
		return nil, false
	}
	n := l.RawLength(-1)
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(-1, i)
		s, ok := l.ToString(-1)
		l.Pop(1)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func globalString(l *lua.State, name, fallback string) string {
	l.Global(name)
	defer l.Pop(1)
	if l.TypeOf(-1) != lua.TypeString {
		return fallback
	}
	s, _ := l.ToString(-1)
	return s
}

// globalVector reads an optional numeric list of length n.
func globalVector(l *lua.State, name string, n int) ([]float64, error) {
	l.Global(name)
	defer l.Pop(1)
	if l.IsNoneOrNil(-1) {
		return nil, nil
	}
	v, err := toVector(l, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, name, err)
	}
	if len(v) != n {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidDefinition, name, len(v), n)
	}
	return v, nil
}

func periodicData(l *lua.State, vars []string) (periodic.Data, error) {
	l.Global("periodic_data")
	defer l.Pop(1)
	data := periodic.Data{}
	if l.IsNoneOrNil(-1) {
		return data, nil
	}
	if !l.IsTable(-1) {
		return nil, fmt.Errorf("%w: periodic_data must be a table", ErrInvalidDefinition)
	}

	table := l.AbsIndex(-1)
	l.PushNil()
	for l.Next(table) {
		idx, err := periodicIndex(l, vars)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		spec, err := periodicSpec(l)
		if err != nil {
			l.Pop(2)
			return nil, fmt.Errorf("%w: periodic_data[%s]: %v", ErrInvalidDefinition, vars[idx], err)
		}
		data[idx] = spec
		l.Pop(1)
	}
	if err := data.Validate(len(vars)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return data, nil
}

// periodicIndex converts the key at -2 into a 0-based variable index.
func periodicIndex(l *lua.State, vars []string) (int, error) {
	switch l.TypeOf(-2) {
	case lua.TypeNumber:
		i, ok := l.ToInteger(-2)
		if !ok || i < 1 || i > len(vars) {
			return 0, fmt.Errorf("%w: periodic_data index out of range", ErrInvalidDefinition)
		}
		return i - 1, nil
	case lua.TypeString:
		name, _ := l.ToString(-2)
		for i, v := range vars {
			if v == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: periodic_data names unknown variable %q", ErrInvalidDefinition, name)
	default:
		return 0, fmt.Errorf("%w: periodic_data keys must be names or indices", ErrInvalidDefinition)
	}
}

// periodicSpec reads the value at -1 as {offset, period} or
// {offset=..., period=...}.
func periodicSpec(l *lua.State) (periodic.Spec, error) {
	if !l.IsTable(-1) {
		return periodic.Spec{}, errors.New("expected {offset, period}")
	}
	var nums [2]float64
	for i, field := range []string{"offset", "period"} {
		l.Field(-1, field)
		if l.IsNil(-1) {
			l.Pop(1)
			l.RawGetInt(-1, i+1)
		}
		v, ok := l.ToNumber(-1)
		l.Pop(1)
		if !ok {
			return periodic.Spec{}, fmt.Errorf("missing %s", field)
		}
		nums[i] = v
	}
	return periodic.Spec{Offset: nums[0], Period: nums[1]}, nil
}
