package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
)

var (
	ErrNoConvergence = errors.New("analysis: equilibrium search did not converge")
	ErrSingular      = errors.New("analysis: jacobian is singular")
	ErrEigen         = errors.New("analysis: eigendecomposition failed")
)

// NewtonOptions controls the equilibrium search.
type NewtonOptions struct {
	Tol     float64 // residual norm accepted as zero
	MaxIter int
	T       float64 // time at which a non-autonomous field is frozen
}

func DefaultNewtonOptions() NewtonOptions {
	return NewtonOptions{Tol: 1e-10, MaxIter: 100}
}

type Equilibrium struct {
	X          dynamo.State
	Residual   float64
	Iterations int
}

// Jacobian returns the central-difference Jacobian of the vector field at x.
func Jacobian(sys dynamo.System, p dynamo.Params, x dynamo.State, t float64) *mat.Dense {
	n := len(x)
	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, func(y, xs []float64) {
		copy(y, sys.Derive(dynamo.State(xs), p, t))
	}, x, &fd.JacobianSettings{Formula: fd.Central})
	return jac
}

// FindEquilibrium solves f(x) = 0 by damped Newton iteration from guess.
func FindEquilibrium(sys dynamo.System, p dynamo.Params, guess dynamo.State, opts NewtonOptions) (*Equilibrium, error) {
	if len(guess) != sys.StateDim() {
		return nil, fmt.Errorf("%w: guess has %d components, system has %d",
			dynamo.ErrDimensionMismatch, len(guess), sys.StateDim())
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultNewtonOptions().Tol
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultNewtonOptions().MaxIter
	}

	x := guess.Clone()
	fx, err := dynamo.CheckedDerive(sys, x, p, opts.T)
	if err != nil {
		return nil, err
	}
	res := floats.Norm(fx, 2)

	for iter := 0; iter < opts.MaxIter; iter++ {
		if res <= opts.Tol {
			return &Equilibrium{X: x, Residual: res, Iterations: iter}, nil
		}

		jac := Jacobian(sys, p, x, opts.T)
		var step mat.VecDense
		if err := step.SolveVec(jac, mat.NewVecDense(len(fx), fx)); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return nil, fmt.Errorf("%w at %v: %v", ErrSingular, x, err)
			}
		}

		// backtrack until the residual decreases
		lambda := 1.0
		for ; lambda > 1e-6; lambda /= 2 {
			trial := x.Clone()
			for i := range trial {
				trial[i] -= lambda * step.AtVec(i)
			}
			ft := sys.Derive(trial, p, opts.T)
			if r := floats.Norm(ft, 2); r < res && !math.IsNaN(r) {
				x, fx, res = trial, ft, r
				break
			}
		}
		if lambda <= 1e-6 {
			return &Equilibrium{X: x, Residual: res, Iterations: iter + 1},
				fmt.Errorf("%w: residual %g stalled", ErrNoConvergence, res)
		}
	}
	if res <= opts.Tol {
		return &Equilibrium{X: x, Residual: res, Iterations: opts.MaxIter}, nil
	}
	return &Equilibrium{X: x, Residual: res, Iterations: opts.MaxIter},
		fmt.Errorf("%w after %d iterations (residual %g)", ErrNoConvergence, opts.MaxIter, res)
}

// Fold maps the periodic coordinates of the equilibrium into their windows.
func (e *Equilibrium) Fold(data periodic.Data) error {
	for _, i := range data.Indices() {
		if i >= len(e.X) {
			return fmt.Errorf("%w: index %d", periodic.ErrIndexRange, i)
		}
		v, err := periodic.TranslateValue(e.X[i], data[i].Offset, data[i].Period)
		if err != nil {
			return err
		}
		e.X[i] = v
	}
	return nil
}

// Kind classifies an equilibrium by the spectrum of its linearization.
type Kind string

const (
	StableNode    Kind = "stable node"
	StableFocus   Kind = "stable focus"
	UnstableNode  Kind = "unstable node"
	UnstableFocus Kind = "unstable focus"
	Saddle        Kind = "saddle"
	Center        Kind = "center"
	NonHyperbolic Kind = "non-hyperbolic"
)

const eigenZeroTol = 1e-9

// Linearization is the Jacobian at a point with its eigen decomposition.
// Vectors[k] is the right eigenvector for Values[k].
type Linearization struct {
	At       dynamo.State
	Jacobian *mat.Dense
	Values   []complex128
	Vectors  [][]complex128
}

func Linearize(sys dynamo.System, p dynamo.Params, x dynamo.State, t float64) (*Linearization, error) {
	if len(x) != sys.StateDim() {
		return nil, fmt.Errorf("%w: point has %d components, system has %d",
			dynamo.ErrDimensionMismatch, len(x), sys.StateDim())
	}
	jac := Jacobian(sys, p, x, t)

	var eig mat.Eigen
	if ok := eig.Factorize(jac, mat.EigenRight); !ok {
		return nil, ErrEigen
	}
	values := eig.Values(nil)
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	n := len(values)
	vectors := make([][]complex128, n)
	for k := 0; k < n; k++ {
		v := make([]complex128, n)
		for i := 0; i < n; i++ {
			v[i] = vecs.At(i, k)
		}
		vectors[k] = v
	}
	return &Linearization{At: x.Clone(), Jacobian: jac, Values: values, Vectors: vectors}, nil
}

func (l *Linearization) Kind() Kind {
	var neg, pos, zero int
	oscillating := false
	for _, v := range l.Values {
		switch re := real(v); {
		case math.Abs(re) <= eigenZeroTol:
			zero++
		case re < 0:
			neg++
		default:
			pos++
		}
		if math.Abs(imag(v)) > eigenZeroTol {
			oscillating = true
		}
	}
	switch {
	case zero == len(l.Values) && oscillating:
		return Center
	case zero > 0:
		return NonHyperbolic
	case neg > 0 && pos > 0:
		return Saddle
	case pos == 0 && oscillating:
		return StableFocus
	case pos == 0:
		return StableNode
	case oscillating:
		return UnstableFocus
	default:
		return UnstableNode
	}
}

// Seed is an initial state on a real eigendirection of an equilibrium.
// Backward is set for stable directions, whose invariant manifold is traced
// by integrating backward in time.
type Seed struct {
	State      dynamo.State
	Eigenvalue float64
	Index      int
	Sign       int
	Backward   bool
}

// SeparatrixSeeds returns x* ± eps·v/|v| for every real eigenvector.
func (l *Linearization) SeparatrixSeeds(eps float64) []Seed {
	var seeds []Seed
	for k, val := range l.Values {
		if math.Abs(imag(val)) > eigenZeroTol || math.Abs(real(val)) <= eigenZeroTol {
			continue
		}
		dir := make([]float64, len(l.Vectors[k]))
		for i, c := range l.Vectors[k] {
			dir[i] = real(c)
		}
		norm := floats.Norm(dir, 2)
		if norm == 0 {
			continue
		}
		for _, sign := range []int{1, -1} {
			x := l.At.Clone()
			for i := range x {
				x[i] += float64(sign) * eps * dir[i] / norm
			}
			seeds = append(seeds, Seed{
				State:      x,
				Eigenvalue: real(val),
				Index:      k,
				Sign:       sign,
				Backward:   real(val) < 0,
			})
		}
	}
	return seeds
}

// FormatEigenvalue prints a complex eigenvalue compactly.
func FormatEigenvalue(v complex128) string {
	if math.Abs(imag(v)) <= eigenZeroTol {
		return fmt.Sprintf("%.6g", real(v))
	}
	return fmt.Sprintf("%.6g%+.6gi (|λ|=%.4g)", real(v), imag(v), cmplx.Abs(v))
}
