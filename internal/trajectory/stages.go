package trajectory

import (
	"fmt"
	"slices"
	"sort"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
)

// FlattenEvents collects the per-event-function outputs of a solver run
// into one list, in event-function order.
func FlattenEvents(states [][]dynamo.State, times [][]float64) ([]Event, error) {
	if len(states) != len(times) {
		return nil, fmt.Errorf("%w: %d event state lists for %d event time lists",
			dynamo.ErrShapeMismatch, len(states), len(times))
	}
	var events []Event
	for k := range times {
		if len(states[k]) != len(times[k]) {
			return nil, fmt.Errorf("%w: event function %d has %d states for %d times",
				dynamo.ErrShapeMismatch, k, len(states[k]), len(times[k]))
		}
		for i, t := range times[k] {
			events = append(events, Event{
				Sample: Sample{T: t, X: states[k][i].Clone()},
				Source: k,
			})
		}
	}
	return events, nil
}

// SortEvents returns a copy of events ordered by time ascending. Ties keep
// their flatten order.
func SortEvents(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].T < sorted[j].T
	})
	return sorted
}

// EventTimes returns the times of events in order.
func EventTimes(events []Event) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		out[i] = ev.T
	}
	return out
}

// MergeEvents inserts each event, in the order given, immediately before the
// first sample that has reached or passed the event time in direction dir.
// An event that no sample reaches is appended. The input is not modified.
func MergeEvents(samples []Sample, events []Event, dir Direction) []Sample {
	full := make([]Sample, 0, len(samples)+len(events))
	for _, s := range samples {
		full = append(full, s.Clone())
	}
	for _, ev := range events {
		at := len(full)
		for i, s := range full {
			if dir.Reached(s.T, ev.T) {
				at = i
				break
			}
		}
		full = slices.Insert(full, at, ev.Sample.Clone())
	}
	return full
}

// Split partitions full at the event times, which must be sorted ascending.
// Adjacent segments share their boundary sample. Event times within tol of
// each other count once, and event times matching the first or last sample
// add no boundary.
func Split(full []Sample, events []Event, dir Direction, tol Tolerance) ([]Segment, error) {
	if len(full) == 0 {
		return nil, ErrNoSamples
	}
	if len(events) == 0 {
		return []Segment{SegmentOf(full)}, nil
	}

	times := make([]float64, len(full))
	for i, s := range full {
		times[i] = s.T
	}
	first, last := times[0], times[len(times)-1]

	var located []int
	for _, te := range dedupTimes(EventTimes(events), tol) {
		if tol.Match(te, first) || tol.Match(te, last) {
			continue
		}
		idx, ok := locate(times, te, tol)
		if !ok {
			return nil, fmt.Errorf("%w: t=%g", ErrEventNotFound, te)
		}
		located = append(located, idx)
	}
	if dir == Backward {
		slices.Reverse(located)
	}

	bounds := make([]int, 0, len(located)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, located...)
	bounds = append(bounds, len(full)-1)
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	if len(bounds) == 1 {
		return []Segment{SegmentOf(full)}, nil
	}
	segments := make([]Segment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		segments = append(segments, SegmentOf(full[bounds[i]:bounds[i+1]+1]))
	}
	return segments, nil
}

// dedupTimes drops sorted times within tol of the previously kept time.
func dedupTimes(sorted []float64, tol Tolerance) []float64 {
	out := make([]float64, 0, len(sorted))
	for _, t := range sorted {
		if len(out) > 0 && tol.Match(t, out[len(out)-1]) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// locate returns the first index with times[i] == t, or failing that the
// nearest index within tol.
func locate(times []float64, t float64, tol Tolerance) (int, bool) {
	if i := slices.Index(times, t); i >= 0 {
		return i, true
	}
	best, bestDist := -1, 0.0
	for i, ti := range times {
		if !tol.Match(ti, t) {
			continue
		}
		d := ti - t
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// Canonicalize shifts each periodic variable of each segment by a whole
// number of periods so that its mean over the segment lies in the canonical
// window. The input segments are not modified.
func Canonicalize(segments []Segment, data periodic.Data) ([]Segment, error) {
	out := make([]Segment, len(segments))
	indices := data.Indices()
	for k, seg := range segments {
		c := seg.Clone()
		if c.Len() > 0 {
			if err := data.Validate(c.Dim()); err != nil {
				return nil, fmt.Errorf("segment %d: %w", k, err)
			}
		}
		for _, i := range indices {
			spec := data[i]
			shifted, err := periodic.TranslateVectorByMean(c.Column(i), spec.Offset, spec.Period)
			if err != nil {
				return nil, fmt.Errorf("segment %d, variable %d: %w", k, i, err)
			}
			for j := range c.States {
				c.States[j][i] = shifted[j]
			}
		}
		out[k] = c
	}
	return out, nil
}
