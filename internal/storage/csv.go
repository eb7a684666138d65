package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/trajectory"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func header(lead []string, names []string, dim int) []string {
	h := append([]string{}, lead...)
	for i := 0; i < dim; i++ {
		if i < len(names) {
			h = append(h, names[i])
		} else {
			h = append(h, fmt.Sprintf("x%d", i))
		}
	}
	return h
}

func stateFields(x dynamo.State) []string {
	out := make([]string, len(x))
	for i, v := range x {
		out[i] = formatFloat(v)
	}
	return out
}

func writeRows(w io.Writer, head []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(head); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamplesCSV writes one row per sample: t, then the state.
func WriteSamplesCSV(w io.Writer, names []string, samples []trajectory.Sample) error {
	dim := len(names)
	if len(samples) > 0 {
		dim = len(samples[0].X)
	}
	return writeRows(w, header([]string{"t"}, names, dim), len(samples), func(i int) []string {
		return append([]string{formatFloat(samples[i].T)}, stateFields(samples[i].X)...)
	})
}

// WriteSegmentsCSV writes one row per segment sample: segment index, t,
// then the state. Boundary samples appear once per segment they belong to.
func WriteSegmentsCSV(w io.Writer, names []string, segments []trajectory.Segment) error {
	type ref struct{ seg, k int }
	var refs []ref
	dim := len(names)
	for s, seg := range segments {
		if seg.Len() > 0 {
			dim = seg.Dim()
		}
		for k := range seg.Times {
			refs = append(refs, ref{s, k})
		}
	}
	return writeRows(w, header([]string{"segment", "t"}, names, dim), len(refs), func(i int) []string {
		r := refs[i]
		seg := segments[r.seg]
		return append([]string{strconv.Itoa(r.seg), formatFloat(seg.Times[r.k])}, stateFields(seg.States[r.k])...)
	})
}

// WriteEventsCSV writes one row per event: source function, t, state.
func WriteEventsCSV(w io.Writer, names []string, events []trajectory.Event) error {
	dim := len(names)
	if len(events) > 0 {
		dim = len(events[0].X)
	}
	return writeRows(w, header([]string{"source", "t"}, names, dim), len(events), func(i int) []string {
		ev := events[i]
		return append([]string{strconv.Itoa(ev.Source), formatFloat(ev.T)}, stateFields(ev.X)...)
	})
}

// readRows parses every data row into lead integer columns, time and
// state. Header names are returned.
func readRows(r io.Reader, lead int, fn func(ints []int, t float64, x dynamo.State)) ([]string, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", dynamo.ErrShapeMismatch)
	}
	head := records[0]
	if len(head) < lead+1 {
		return nil, fmt.Errorf("%w: header has %d columns", dynamo.ErrShapeMismatch, len(head))
	}
	for line, rec := range records[1:] {
		ints := make([]int, lead)
		for j := 0; j < lead; j++ {
			v, err := strconv.Atoi(rec[j])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line+2, err)
			}
			ints[j] = v
		}
		t, err := strconv.ParseFloat(rec[lead], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}
		x := make(dynamo.State, len(rec)-lead-1)
		for j := range x {
			if x[j], err = strconv.ParseFloat(rec[lead+1+j], 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", line+2, err)
			}
		}
		fn(ints, t, x)
	}
	return head[lead+1:], nil
}

func ReadSamplesCSV(r io.Reader) ([]trajectory.Sample, error) {
	samples := []trajectory.Sample{}
	_, err := readRows(r, 0, func(_ []int, t float64, x dynamo.State) {
		samples = append(samples, trajectory.Sample{T: t, X: x})
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// ReadSegmentsCSV groups rows by their segment column. Segment indices
// must be non-decreasing.
func ReadSegmentsCSV(r io.Reader) ([]trajectory.Segment, error) {
	segments := []trajectory.Segment{}
	var orderErr error
	_, err := readRows(r, 1, func(ints []int, t float64, x dynamo.State) {
		idx := ints[0]
		if idx < len(segments)-1 || idx < 0 {
			if orderErr == nil {
				orderErr = fmt.Errorf("%w: segment %d out of order", dynamo.ErrShapeMismatch, idx)
			}
			return
		}
		for len(segments) <= idx {
			segments = append(segments, trajectory.Segment{})
		}
		seg := &segments[idx]
		seg.Times = append(seg.Times, t)
		seg.States = append(seg.States, x)
	})
	if err != nil {
		return nil, err
	}
	if orderErr != nil {
		return nil, orderErr
	}
	return segments, nil
}

func ReadEventsCSV(r io.Reader) ([]trajectory.Event, error) {
	events := []trajectory.Event{}
	_, err := readRows(r, 1, func(ints []int, t float64, x dynamo.State) {
		events = append(events, trajectory.Event{Sample: trajectory.Sample{T: t, X: x}, Source: ints[0]})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
