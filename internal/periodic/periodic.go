// Package periodic folds values of periodic variables (angles, phases) into
// a canonical window [offset, offset+period).
package periodic

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInvalidPeriod = errors.New("periodic: period must be positive and finite")
	ErrEmptyVector   = errors.New("periodic: cannot translate an empty vector")
	ErrIndexRange    = errors.New("periodic: variable index out of range")
)

// Spec declares that a variable is periodic with the given period and
// canonical window [Offset, Offset+Period).
type Spec struct {
	Offset float64 `yaml:"offset" json:"offset"`
	Period float64 `yaml:"period" json:"period"`
}

func (s Spec) Validate() error {
	return validate(s.Offset, s.Period)
}

// Contains reports whether v lies in the canonical window.
func (s Spec) Contains(v float64) bool {
	return v >= s.Offset && v < s.Offset+s.Period
}

// Data maps variable index to its periodic spec.
type Data map[int]Spec

// Validate checks every entry against a state dimension.
func (d Data) Validate(dim int) error {
	for _, i := range d.Indices() {
		if i < 0 || i >= dim {
			return fmt.Errorf("%w: index %d, dimension %d", ErrIndexRange, i, dim)
		}
		if err := d[i].Validate(); err != nil {
			return fmt.Errorf("variable %d: %w", i, err)
		}
	}
	return nil
}

// Indices returns the periodic variable indices in ascending order.
func (d Data) Indices() []int {
	idx := make([]int, 0, len(d))
	for i := range d {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	c := make(Data, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

func validate(offset, period float64) error {
	if !(period > 0) || math.IsInf(period, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidPeriod, period)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return fmt.Errorf("%w: offset %g is not finite", ErrInvalidPeriod, offset)
	}
	return nil
}

// TranslateValue returns ((value-offset) mod period) + offset using a
// floored modulo, so the result lies in [offset, offset+period).
func TranslateValue(value, offset, period float64) (float64, error) {
	if err := validate(offset, period); err != nil {
		return 0, err
	}
	r := math.Mod(value-offset, period)
	if r < 0 {
		r += period
	}
	// r + period can round up to exactly period for tiny negative r.
	if r >= period {
		r = 0
	}
	return r + offset, nil
}

// Shift returns the multiple of period that moves mean into the window.
func Shift(mean, offset, period float64) float64 {
	k := math.Floor((mean - offset) / period)
	return k * period
}

// TranslateVectorByMean shifts every element of v by the same multiple of
// period so that the mean of the result lies in [offset, offset+period).
// Differences between elements are preserved. v is not modified.
func TranslateVectorByMean(v []float64, offset, period float64) ([]float64, error) {
	if err := validate(offset, period); err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, ErrEmptyVector
	}
	out := make([]float64, len(v))
	copy(out, v)
	if shift := Shift(stat.Mean(v, nil), offset, period); shift != 0 {
		floats.AddConst(-shift, out)
	}
	return out, nil
}
