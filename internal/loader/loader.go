// Package loader turns a system reference into a dynamo.Definition. A
// reference is either a folder holding dynamical_system.lua, a path to a
// .lua file, or the name of a built-in system.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/physics"
)

// ScriptName is the file a system folder must contain.
const ScriptName = "dynamical_system.lua"

var (
	ErrNoFile                 = errors.New("loader: dynamical system file not found")
	ErrCouldNotImport         = errors.New("loader: could not import dynamical system")
	ErrVariableNamesNotFound  = errors.New("loader: variable_names not found")
	ErrParameterNamesNotFound = errors.New("loader: parameter_names not found")
	ErrODEsNotFound           = errors.New("loader: ODEs function not found")
	ErrInvalidDefinition      = errors.New("loader: invalid dynamical system definition")
)

// LoadError records which source failed to load.
type LoadError struct {
	Path    string
	Wrapped error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Wrapped)
}

func (e *LoadError) Unwrap() error {
	return e.Wrapped
}

type Loader interface {
	Load() (*dynamo.Definition, error)
}

// BuiltinLoader loads a system from a physics registry.
type BuiltinLoader struct {
	Name     string
	Registry *physics.Registry
}

func (b BuiltinLoader) Load() (*dynamo.Definition, error) {
	reg := b.Registry
	if reg == nil {
		reg = physics.Default
	}
	def, err := reg.Get(b.Name)
	if err != nil {
		return nil, &LoadError{Path: b.Name, Wrapped: fmt.Errorf("%w: %v", ErrNoFile, err)}
	}
	return def, nil
}

// Resolve picks a loader for ref: existing paths load as Lua scripts,
// anything else is looked up among the built-in systems.
func Resolve(ref string) Loader {
	if _, err := os.Stat(ref); err == nil || strings.HasSuffix(ref, ".lua") || strings.ContainsRune(ref, os.PathSeparator) {
		return &FolderLoader{Path: ref}
	}
	return BuiltinLoader{Name: ref}
}

// Load resolves ref and loads it.
func Load(ref string) (*dynamo.Definition, error) {
	return Resolve(ref).Load()
}
