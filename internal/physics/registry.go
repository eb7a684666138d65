package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
)

type Registry struct {
	systems map[string]func() *dynamo.Definition
}

func NewRegistry() *Registry {
	r := &Registry{
		systems: make(map[string]func() *dynamo.Definition),
	}

	r.Register("lorenz", NewLorenz)
	r.Register("rossler", NewRossler)
	r.Register("vanderpol", NewVanDerPol)
	r.Register("duffing", NewDuffing)
	r.Register("doublewell", NewDoubleWell)
	r.Register("pendulum", NewPendulum)
	r.Register("coupled", NewCoupledPendulums)
	r.Register("pll", NewParallelPLL)
	r.Register("diploma", NewDiploma)

	return r
}

func (r *Registry) Register(name string, fn func() *dynamo.Definition) {
	r.systems[name] = fn
}

// Get returns a fresh definition. Systems with periodic variables get one
// crossing event per periodic variable.
func (r *Registry) Get(name string) (*dynamo.Definition, error) {
	fn, ok := r.systems[name]
	if !ok {
		return nil, fmt.Errorf("unknown system: %s", name)
	}
	def := fn()
	if def.Source == "" {
		def.Source = "builtin:" + name
	}
	if def.Events == nil && len(def.Periodic) > 0 {
		def.Events = dynamo.CrossingEvents(def.Periodic)
	}
	return def, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.systems))
	for name := range r.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the registry of built-in systems.
var Default = NewRegistry()

// angle marks variables as angles on [-π, π).
func angle(indices ...int) periodic.Data {
	d := make(periodic.Data, len(indices))
	for _, i := range indices {
		d[i] = periodic.Spec{Offset: -math.Pi, Period: 2 * math.Pi}
	}
	return d
}
