package workbench

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/phasespace/internal/config"
	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
	"github.com/san-kum/phasespace/internal/physics"
	"github.com/san-kum/phasespace/internal/trajectory"
)

func newPendulumBench(t *testing.T) *Workbench {
	t.Helper()
	def, err := physics.Default.Get("pendulum")
	require.NoError(t, err)
	return New(def, integrators.NewSolver())
}

func TestNew_DefaultParams(t *testing.T) {
	w := newPendulumBench(t)
	assert.Equal(t, dynamo.Params{0.5, 0.1}, w.Params())
	assert.Empty(t, w.Rows())
}

func TestSetParam(t *testing.T) {
	w := newPendulumBench(t)
	require.NoError(t, w.SetParam("mu", 0.3))
	assert.Equal(t, dynamo.Params{0.5, 0.3}, w.Params())

	assert.ErrorIs(t, w.SetParam("nope", 1), ErrUnknownParam)
	assert.ErrorIs(t, w.SetParams(dynamo.Params{1}), dynamo.ErrDimensionMismatch)
}

func TestAddRow_Validation(t *testing.T) {
	w := newPendulumBench(t)

	_, err := w.AddRow(dynamo.State{1, 2, 3}, dynamo.Span{Start: 0, End: 1, Steps: 10})
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)

	_, err = w.AddRow(dynamo.State{0, 0}, dynamo.Span{Start: 1, End: 1})
	assert.ErrorIs(t, err, dynamo.ErrInvalidSpan)

	i, err := w.AddRow(dynamo.State{0, 0}, dynamo.Span{Start: 0, End: 1, Steps: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	assert.ErrorIs(t, w.SetInitial(3, dynamo.State{0, 0}), ErrRowRange)
	assert.ErrorIs(t, w.RemoveRow(-1), ErrRowRange)
}

func TestIntegrateAll(t *testing.T) {
	w := newPendulumBench(t)
	span := dynamo.Span{Start: 0, End: 30, Steps: 600}
	for _, x0 := range []dynamo.State{{0, 2}, {0.5, 0}, {-2, 4}} {
		_, err := w.AddRow(x0, span)
		require.NoError(t, err)
	}

	require.NoError(t, w.IntegrateAll(context.Background()))

	series := w.Series(false)
	require.Len(t, series, 3)
	for _, r := range w.Rows() {
		assert.True(t, r.Integrated())
		assert.NoError(t, r.Err)
	}

	// The running pendulum wraps, so phi stays near the window per segment.
	for _, seg := range series[2].Segments {
		phi := seg.Column(0)
		mean := 0.0
		for _, v := range phi {
			mean += v
		}
		mean /= float64(len(phi))
		assert.GreaterOrEqual(t, mean, -math.Pi)
		assert.Less(t, mean, math.Pi)
	}
	assert.Greater(t, len(series[2].Segments), 1)

	require.NoError(t, w.SetShow(1, false))
	assert.Len(t, w.Series(true), 2)
}

func TestIntegrateAll_RowErrors(t *testing.T) {
	def := &dynamo.Definition{
		Name:          "blowup",
		VariableNames: []string{"x"},
		System: dynamo.SystemFunc{Dim: 1, Fn: func(x dynamo.State, p dynamo.Params, t float64) dynamo.State {
			return dynamo.State{x[0] * x[0]}
		}},
	}
	w := New(def, integrators.NewSolver())
	_, err := w.AddRow(dynamo.State{0}, dynamo.Span{Start: 0, End: 1, Steps: 10})
	require.NoError(t, err)
	_, err = w.AddRow(dynamo.State{1}, dynamo.Span{Start: 0, End: 5, Steps: 10})
	require.NoError(t, err)

	err = w.IntegrateAll(context.Background())
	require.Error(t, err)

	rows := w.Rows()
	assert.NoError(t, rows[0].Err)
	assert.Error(t, rows[1].Err)
	assert.Len(t, w.Series(false), 1)
}

func TestReverseAndContinue(t *testing.T) {
	w := newPendulumBench(t)
	i, err := w.AddRow(dynamo.State{0.5, 0}, dynamo.Span{Start: 0, End: 5, Steps: 100})
	require.NoError(t, err)

	assert.Error(t, w.Continue(i))

	require.NoError(t, w.Integrate(context.Background(), i))
	last, err := w.Rows()[i].Processor.LastState()
	require.NoError(t, err)
	require.NoError(t, w.Continue(i))
	assert.Equal(t, last, w.Rows()[i].Processor.InitialState())

	require.NoError(t, w.Reverse(i))
	row, err := w.Row(i)
	require.NoError(t, err)
	assert.Equal(t, trajectory.Backward, row.Direction())
	require.NoError(t, w.Integrate(context.Background(), i))

	// integrating back returns near the starting state
	back, err := row.Processor.LastState()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, back[0], 1e-3)
	assert.InDelta(t, 0.0, back[1], 1e-3)
}

func TestAddSeparatrices(t *testing.T) {
	w := newPendulumBench(t)
	saddle := dynamo.State{5 * math.Pi / 6, 0}

	added, err := w.AddSeparatrices(saddle, 1e-3, dynamo.Span{Start: 0, End: 10, Steps: 200})
	require.NoError(t, err)
	require.Len(t, added, 4)

	backward := 0
	for _, i := range added {
		row, err := w.Row(i)
		require.NoError(t, err)
		if row.Direction() == trajectory.Backward {
			backward++
			assert.Equal(t, -10.0, row.Span.End)
		}
	}
	assert.Equal(t, 2, backward)
	require.NoError(t, w.IntegrateAll(context.Background()))
}

func TestApplyConfig(t *testing.T) {
	w := newPendulumBench(t)
	cfg := config.GetPreset("pendulum", "bistable")
	cfg.Trajectories[1].Hidden = true

	require.NoError(t, w.Apply(cfg))
	assert.Equal(t, dynamo.Params{0.5, 0.1}, w.Params())
	require.Len(t, w.Rows(), 2)
	assert.Equal(t, dynamo.State{0, 2}, w.Rows()[0].Processor.InitialState())
	assert.False(t, w.Rows()[1].Show)

	back := w.Config()
	assert.Equal(t, "pendulum", back.System)
	assert.Equal(t, cfg.Trajectories[0].Span, back.Trajectories[0].Span)
	assert.True(t, back.Trajectories[1].Hidden)

	// no trajectories: one row from the default state
	require.NoError(t, w.Apply(&config.Config{System: "pendulum"}))
	require.Len(t, w.Rows(), 1)
	assert.Equal(t, config.DefaultSpan(), w.Rows()[0].Span)

	bad := &config.Config{System: "pendulum", Parameters: map[string]float64{"L": 1}}
	assert.ErrorIs(t, w.Apply(bad), config.ErrUnknownParameter)
}
