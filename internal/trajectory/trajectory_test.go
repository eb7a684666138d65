package trajectory_test

import (
	"context"
	"errors"
	"math"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
	"github.com/san-kum/phasespace/internal/periodic"
	"github.com/san-kum/phasespace/internal/trajectory"
)

var angle = periodic.Data{0: {Offset: -math.Pi, Period: 2 * math.Pi}}

// scalarRun builds a one-dimensional solver result with x = f(t).
func scalarRun(times []float64, f func(float64) float64, eventTimes ...[]float64) *dynamo.Solution {
	sol := &dynamo.Solution{Times: slices.Clone(times)}
	for _, t := range times {
		sol.States = append(sol.States, dynamo.State{f(t)})
	}
	for _, ets := range eventTimes {
		states := []dynamo.State{}
		for _, t := range ets {
			states = append(states, dynamo.State{f(t)})
		}
		sol.EventTimes = append(sol.EventTimes, slices.Clone(ets))
		sol.EventStates = append(sol.EventStates, states)
	}
	return sol
}

func reversed(sol *dynamo.Solution) *dynamo.Solution {
	r := &dynamo.Solution{
		Times:       slices.Clone(sol.Times),
		States:      slices.Clone(sol.States),
		EventTimes:  sol.EventTimes,
		EventStates: sol.EventStates,
	}
	slices.Reverse(r.Times)
	slices.Reverse(r.States)
	return r
}

func timesOf(samples []trajectory.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.T
	}
	return out
}

func stageOf(err error) string {
	var se *dynamo.StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func identity(t float64) float64 { return t }

var tol = trajectory.DefaultTolerance(1)

var _ = Describe("FlattenEvents", func() {
	It("returns nothing for empty event lists", func() {
		events, err := trajectory.FlattenEvents([][]dynamo.State{{}, {}}, [][]float64{{}, {}})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("keeps event function order and source tags", func() {
		events, err := trajectory.FlattenEvents(
			[][]dynamo.State{{{1}, {2}}, {{3}}},
			[][]float64{{4, 1}, {2}},
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(trajectory.EventTimes(events)).To(Equal([]float64{4, 1, 2}))
		Expect(events[2].Source).To(Equal(1))
		Expect(events[2].X).To(Equal(dynamo.State{3}))
	})

	It("rejects mismatched sub-array lengths", func() {
		_, err := trajectory.FlattenEvents([][]dynamo.State{{{1}}}, [][]float64{{1, 2}})
		Expect(err).To(MatchError(dynamo.ErrShapeMismatch))

		_, err = trajectory.FlattenEvents([][]dynamo.State{{{1}}}, nil)
		Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
	})
})

var _ = Describe("SortEvents", func() {
	It("sorts by time and breaks ties by flatten order", func() {
		in := []trajectory.Event{
			{Sample: trajectory.Sample{T: 3}, Source: 0},
			{Sample: trajectory.Sample{T: 1}, Source: 1},
			{Sample: trajectory.Sample{T: 3}, Source: 2},
			{Sample: trajectory.Sample{T: 2}, Source: 3},
		}
		out := trajectory.SortEvents(in)
		Expect(trajectory.EventTimes(out)).To(Equal([]float64{1, 2, 3, 3}))
		Expect(out[2].Source).To(Equal(0))
		Expect(out[3].Source).To(Equal(2))
		Expect(in[0].T).To(Equal(3.0))
	})
})

var _ = Describe("MergeEvents", func() {
	raw := func(times ...float64) []trajectory.Sample {
		out := make([]trajectory.Sample, len(times))
		for i, t := range times {
			out[i] = trajectory.Sample{T: t, X: dynamo.State{t}}
		}
		return out
	}
	event := func(t float64) trajectory.Event {
		return trajectory.Event{Sample: trajectory.Sample{T: t, X: dynamo.State{1.0}}}
	}

	It("inserts an event before the first later sample", func() {
		full := trajectory.MergeEvents(raw(0, 1, 2, 3, 4, 5), []trajectory.Event{event(2.5)}, trajectory.Forward)
		Expect(timesOf(full)).To(Equal([]float64{0, 1, 2, 2.5, 3, 4, 5}))
		Expect(full[3].X).To(Equal(dynamo.State{1.0}))
	})

	It("inserts next to a coincident sample without deduplicating", func() {
		full := trajectory.MergeEvents(raw(0, 1, 2, 3), []trajectory.Event{event(2)}, trajectory.Forward)
		Expect(timesOf(full)).To(Equal([]float64{0, 1, 2, 2, 3}))
		Expect(full[2].X).To(Equal(dynamo.State{1.0}))
	})

	It("orders backward runs by decreasing time", func() {
		full := trajectory.MergeEvents(raw(5, 4, 3, 2, 1, 0),
			[]trajectory.Event{event(1.5), event(3.5)}, trajectory.Backward)
		Expect(timesOf(full)).To(Equal([]float64{5, 4, 3.5, 3, 2, 1.5, 1, 0}))
	})

	It("appends events no sample reaches", func() {
		full := trajectory.MergeEvents(raw(0, 1), []trajectory.Event{event(7)}, trajectory.Forward)
		Expect(timesOf(full)).To(Equal([]float64{0, 1, 7}))
	})

	It("does not modify its input", func() {
		in := raw(0, 1, 2)
		full := trajectory.MergeEvents(in, []trajectory.Event{event(0.5)}, trajectory.Forward)
		full[0].X[0] = 99
		Expect(in).To(HaveLen(3))
		Expect(in[0].X[0]).To(Equal(0.0))
	})
})

var _ = Describe("Split", func() {
	full := func(times ...float64) []trajectory.Sample {
		out := make([]trajectory.Sample, len(times))
		for i, t := range times {
			out[i] = trajectory.Sample{T: t, X: dynamo.State{t}}
		}
		return out
	}
	events := func(times ...float64) []trajectory.Event {
		out := make([]trajectory.Event, len(times))
		for i, t := range times {
			out[i] = trajectory.Event{Sample: trajectory.Sample{T: t, X: dynamo.State{t}}}
		}
		return out
	}

	It("returns one segment without events", func() {
		segs, err := trajectory.Split(full(0, 1, 2), nil, trajectory.Forward, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(1))
		Expect(segs[0].Times).To(Equal([]float64{0, 1, 2}))
	})

	It("splits at an inserted event time", func() {
		segs, err := trajectory.Split(full(0, 1, 2, 2.5, 3, 4, 5), events(2.5), trajectory.Forward, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(2))
		Expect(segs[0].Times).To(Equal([]float64{0, 1, 2, 2.5}))
		Expect(segs[1].Times).To(Equal([]float64{2.5, 3, 4, 5}))
	})

	It("produces N+1 segments for N distinct interior event times", func() {
		ts := []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4}
		evs := events(1, 1+1e-9, 2, 3)
		segs, err := trajectory.Split(full(ts...), evs, trajectory.Forward, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(4))
		Expect(segs[0].Start()).To(Equal(0.0))
		Expect(segs[3].End()).To(Equal(4.0))
		for i := 0; i+1 < len(segs); i++ {
			Expect(segs[i].End()).To(Equal(segs[i+1].Start()))
		}
	})

	It("ignores event times at the trajectory ends", func() {
		segs, err := trajectory.Split(full(0, 0, 1, 2, 2), events(0, 2), trajectory.Forward, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(1))
	})

	It("matches event times within tolerance", func() {
		segs, err := trajectory.Split(full(0, 1, 2, 3), events(1+1e-8), trajectory.Forward, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(2))
		Expect(segs[0].End()).To(Equal(1.0))
	})

	It("fails on an event time with no matching sample", func() {
		_, err := trajectory.Split(full(0, 1, 2, 3, 4, 5), events(2.5), trajectory.Forward, tol)
		Expect(err).To(MatchError(trajectory.ErrEventNotFound))
	})

	It("emits backward segments in trajectory order", func() {
		segs, err := trajectory.Split(full(5, 4, 3.5, 3, 2, 1.5, 1, 0), events(1.5, 3.5), trajectory.Backward, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(3))
		Expect(segs[0].Times).To(Equal([]float64{5, 4, 3.5}))
		Expect(segs[1].Times).To(Equal([]float64{3.5, 3, 2, 1.5}))
		Expect(segs[2].Times).To(Equal([]float64{1.5, 1, 0}))
	})
})

var _ = Describe("Canonicalize", func() {
	seg := trajectory.Segment{
		Times:  []float64{0, 1, 2},
		States: []dynamo.State{{3.0, 10}, {3.5, 11}, {4.0, 12}},
	}

	It("shifts a periodic row by whole periods", func() {
		out, err := trajectory.Canonicalize([]trajectory.Segment{seg}, angle)
		Expect(err).NotTo(HaveOccurred())
		col := out[0].Column(0)
		for i, v := range []float64{3.0, 3.5, 4.0} {
			Expect(col[i]).To(BeNumerically("~", v-2*math.Pi, 1e-12))
		}
		mean := (col[0] + col[1] + col[2]) / 3
		Expect(mean).To(BeNumerically(">=", -math.Pi))
		Expect(mean).To(BeNumerically("<", math.Pi))
		Expect(col[0]).To(BeNumerically("<", -math.Pi))
		Expect(col[1] - col[0]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(col[2] - col[1]).To(BeNumerically("~", 0.5, 1e-12))
	})

	It("leaves other rows, times and the input untouched", func() {
		out, err := trajectory.Canonicalize([]trajectory.Segment{seg}, angle)
		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].Column(1)).To(Equal([]float64{10, 11, 12}))
		Expect(out[0].Times).To(Equal(seg.Times))
		Expect(seg.Column(0)).To(Equal([]float64{3.0, 3.5, 4.0}))
	})

	It("computes the shift from each segment alone", func() {
		a := trajectory.Segment{Times: []float64{0, 1}, States: []dynamo.State{{0.1}, {0.2}}}
		b := trajectory.Segment{Times: []float64{1, 2}, States: []dynamo.State{{6.5}, {6.6}}}
		out, err := trajectory.Canonicalize([]trajectory.Segment{a, b}, angle)
		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].Column(0)).To(Equal([]float64{0.1, 0.2}))
		Expect(out[1].Column(0)[0]).To(BeNumerically("~", 6.5-2*math.Pi, 1e-12))
	})

	It("rejects an invalid period", func() {
		_, err := trajectory.Canonicalize([]trajectory.Segment{seg}, periodic.Data{0: {Offset: 0, Period: 0}})
		Expect(err).To(MatchError(periodic.ErrInvalidPeriod))
	})

	It("rejects a periodic index outside the state", func() {
		_, err := trajectory.Canonicalize([]trajectory.Segment{seg}, periodic.Data{5: {Offset: 0, Period: 1}})
		Expect(err).To(MatchError(periodic.ErrIndexRange))
	})

	It("rejects an empty segment", func() {
		_, err := trajectory.Canonicalize([]trajectory.Segment{{}}, angle)
		Expect(err).To(MatchError(periodic.ErrEmptyVector))
	})
})

var _ = Describe("Process", func() {
	grid := []float64{0, 1, 2, 3, 4, 5}

	It("passes the raw samples through when there are no events", func() {
		sol := scalarRun(grid, identity, []float64{}, []float64{})
		res, err := trajectory.Process(sol, trajectory.Forward, nil, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(timesOf(res.Full)).To(Equal(grid))
		for i, s := range res.Full {
			Expect(s.X).To(Equal(sol.States[i]))
		}
		Expect(res.Segments).To(HaveLen(1))
		Expect(res.Canonical).To(HaveLen(1))
		Expect(res.Events).To(BeEmpty())
	})

	It("merges and splits the concrete forward scenario", func() {
		sol := scalarRun(grid, identity)
		sol.EventTimes = [][]float64{{2.5}}
		sol.EventStates = [][]dynamo.State{{{1.0}}}

		res, err := trajectory.Process(sol, trajectory.Forward, nil, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(timesOf(res.Full)).To(Equal([]float64{0, 1, 2, 2.5, 3, 4, 5}))
		Expect(res.Segments).To(HaveLen(2))
		Expect(res.Segments[0].Times).To(Equal([]float64{0, 1, 2, 2.5}))
		Expect(res.Segments[1].Times).To(Equal([]float64{2.5, 3, 4, 5}))
		Expect(res.Events).To(HaveLen(1))
	})

	It("keeps the segment count law and boundary overlap", func() {
		ts := make([]float64, 101)
		for i := range ts {
			ts[i] = float64(i) * 0.1
		}
		sol := scalarRun(ts, func(t float64) float64 { return 2 * t },
			[]float64{7.25, 1.55}, []float64{3.33, 1.55})

		res, err := trajectory.Process(sol, trajectory.Forward, angle, tol)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Segments).To(HaveLen(4))
		Expect(res.Segments[0].Start()).To(Equal(0.0))
		Expect(res.Segments[3].End()).To(BeNumerically("~", 10, 1e-12))
		for i := 0; i+1 < len(res.Segments); i++ {
			Expect(res.Segments[i].End()).To(Equal(res.Segments[i+1].Start()))
			Expect(res.Canonical[i].End()).To(Equal(res.Canonical[i+1].Start()))
		}
		Expect(trajectory.EventTimes(res.Events)).To(Equal([]float64{1.55, 1.55, 3.33, 7.25}))
	})

	It("is symmetric under time reversal", func() {
		ts := make([]float64, 41)
		for i := range ts {
			ts[i] = float64(i) * 0.25
		}
		wind := func(t float64) float64 { return 1.3 * t }
		fwd := scalarRun(ts, wind, []float64{2.1, 6.7})
		bwd := reversed(fwd)

		fr, err := trajectory.Process(fwd, trajectory.Forward, angle, tol)
		Expect(err).NotTo(HaveOccurred())
		br, err := trajectory.Process(bwd, trajectory.Backward, angle, tol)
		Expect(err).NotTo(HaveOccurred())

		Expect(br.Canonical).To(HaveLen(len(fr.Canonical)))
		n := len(fr.Canonical)
		for i := range fr.Canonical {
			f := fr.Canonical[i]
			b := br.Canonical[n-1-i]
			bt := slices.Clone(b.Times)
			slices.Reverse(bt)
			Expect(bt).To(Equal(f.Times))
			bc := b.Column(0)
			slices.Reverse(bc)
			fc := f.Column(0)
			for k := range fc {
				Expect(bc[k]).To(BeNumerically("~", fc[k], 1e-12))
			}
		}
	})

	It("never mutates earlier stages or the raw solution", func() {
		sol := scalarRun(grid, func(t float64) float64 { return t + 10 }, []float64{2.5})
		res, err := trajectory.Process(sol, trajectory.Forward, angle, tol)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Segments[0].Column(0)).To(Equal([]float64{10, 11, 12, 12.5}))
		Expect(res.Canonical[0].Column(0)[0]).NotTo(Equal(10.0))
		Expect(res.Full[0].X[0]).To(Equal(10.0))
		Expect(sol.States[0][0]).To(Equal(10.0))

		res.Canonical[0].States[0][0] = -1
		Expect(res.Segments[0].States[0][0]).To(Equal(10.0))
		Expect(res.Full[0].X[0]).To(Equal(10.0))
	})

	It("names the failing stage", func() {
		bad := scalarRun(grid, identity)
		bad.EventTimes = [][]float64{{1, 2}}
		bad.EventStates = [][]dynamo.State{{{1}}}
		_, err := trajectory.Process(bad, trajectory.Forward, nil, tol)
		Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
		Expect(stageOf(err)).To(Equal(trajectory.StageFlatten))

		short := scalarRun(grid, identity)
		short.Times = short.Times[:3]
		_, err = trajectory.Process(short, trajectory.Forward, nil, tol)
		Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
		Expect(stageOf(err)).To(Equal(trajectory.StageMerge))

		_, err = trajectory.Process(scalarRun(grid, identity, []float64{2.5}), trajectory.Forward,
			periodic.Data{0: {Offset: 0, Period: -1}}, tol)
		Expect(err).To(MatchError(periodic.ErrInvalidPeriod))
		Expect(stageOf(err)).To(Equal(trajectory.StageCanonicalize))
	})

	It("rejects event states of the wrong dimension", func() {
		sol := scalarRun(grid, identity)
		sol.EventTimes = [][]float64{{2.5}}
		sol.EventStates = [][]dynamo.State{{{1, 2}}}
		_, err := trajectory.Process(sol, trajectory.Forward, nil, tol)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})
})

type failingSolver struct{ err error }

func (f failingSolver) Solve(ctx context.Context, sys dynamo.System, p dynamo.Params, x0 dynamo.State,
	opts integrators.Options, events []dynamo.EventFunc) (*dynamo.Solution, error) {
	return nil, f.err
}

var _ = Describe("Processor", func() {
	var (
		sys  dynamo.System
		proc *trajectory.Processor
	)

	BeforeEach(func() {
		sys = dynamo.SystemFunc{Dim: 1, Fn: func(x dynamo.State, p dynamo.Params, t float64) dynamo.State {
			return dynamo.State{p[0]}
		}}
		var err error
		proc, err = trajectory.New(sys, dynamo.State{0})
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports ErrNotIntegrated before the first run", func() {
		_, err := proc.Canonical()
		Expect(err).To(MatchError(trajectory.ErrNotIntegrated))
		_, err = proc.Full()
		Expect(err).To(MatchError(trajectory.ErrNotIntegrated))
		_, err = proc.LastState()
		Expect(err).To(MatchError(trajectory.ErrNotIntegrated))
	})

	It("rejects initial states of the wrong dimension", func() {
		_, err := trajectory.New(sys, dynamo.State{0, 1})
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(proc.SetInitialState(dynamo.State{})).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("splits a winding angle at every window crossing", func() {
		rc := trajectory.RunConfig{
			Span:     dynamo.Span{Start: 0, End: 10, Steps: 1000},
			Periodic: angle,
			Events:   []dynamo.EventFunc{dynamo.CrossingEvent(0, angle[0])},
		}
		Expect(proc.Integrate(context.Background(), integrators.NewSolver(), dynamo.Params{2}, rc)).To(Succeed())

		events, err := proc.Events()
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))

		canon, err := proc.Canonical()
		Expect(err).NotTo(HaveOccurred())
		Expect(canon).To(HaveLen(4))
		Expect(canon[0].Start()).To(Equal(0.0))
		Expect(canon[3].End()).To(Equal(10.0))
		for _, seg := range canon {
			col := seg.Column(0)
			mean := 0.0
			for _, v := range col {
				mean += v
			}
			mean /= float64(len(col))
			Expect(mean).To(BeNumerically(">=", -math.Pi))
			Expect(mean).To(BeNumerically("<", math.Pi))
		}

		last, err := proc.LastState()
		Expect(err).NotTo(HaveOccurred())
		Expect(last[0]).To(BeNumerically("~", 20, 1e-6))
	})

	It("integrates backward runs", func() {
		rc := trajectory.RunConfig{
			Span:     dynamo.Span{Start: 0, End: -4, Steps: 400},
			Periodic: angle,
			Events:   []dynamo.EventFunc{dynamo.CrossingEvent(0, angle[0])},
		}
		Expect(proc.Integrate(context.Background(), integrators.NewSolver(), dynamo.Params{2}, rc)).To(Succeed())

		segs, err := proc.Segments()
		Expect(err).NotTo(HaveOccurred())
		Expect(segs).To(HaveLen(2))
		Expect(segs[0].Start()).To(Equal(0.0))
		Expect(segs[0].End()).To(BeNumerically("~", -math.Pi/2, 1e-8))
		Expect(segs[1].End()).To(Equal(-4.0))
	})

	It("wraps solver failures in the solve stage and drops the old result", func() {
		rc := trajectory.RunConfig{Span: dynamo.Span{Start: 0, End: 1, Steps: 10}}
		Expect(proc.Integrate(context.Background(), integrators.NewSolver(), dynamo.Params{1}, rc)).To(Succeed())

		boom := errors.New("boom")
		err := proc.Integrate(context.Background(), failingSolver{err: boom}, dynamo.Params{1}, rc)
		Expect(err).To(MatchError(boom))
		Expect(stageOf(err)).To(Equal(trajectory.StageSolve))

		_, err = proc.Result()
		Expect(err).To(MatchError(trajectory.ErrNotIntegrated))
	})

	It("keeps its own copy of the initial state", func() {
		x0 := dynamo.State{1}
		Expect(proc.SetInitialState(x0)).To(Succeed())
		x0[0] = 42
		Expect(proc.InitialState()).To(Equal(dynamo.State{1}))
	})
})
