package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/phasespace/internal/trajectory"
)

type ExportSample struct {
	T float64   `json:"t"`
	X []float64 `json:"x"`
}

type ExportEvent struct {
	ExportSample
	Source int `json:"source"`
}

type ExportSegment struct {
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// ExportData is the JSON document written by ExportJSON.
type ExportData struct {
	Metadata RunMetadata     `json:"metadata"`
	Full     []ExportSample  `json:"full"`
	Segments []ExportSegment `json:"segments"`
	Events   []ExportEvent   `json:"events"`
}

func NewExportData(meta RunMetadata, res *trajectory.Result) ExportData {
	data := ExportData{
		Metadata: meta,
		Full:     make([]ExportSample, len(res.Full)),
		Segments: make([]ExportSegment, len(res.Canonical)),
		Events:   make([]ExportEvent, len(res.Events)),
	}
	data.Metadata.Direction = res.Direction.String()
	data.Metadata.Samples = len(res.Full)
	data.Metadata.Segments = len(res.Canonical)
	data.Metadata.Events = len(res.Events)
	for i, s := range res.Full {
		data.Full[i] = ExportSample{T: s.T, X: s.X}
	}
	for i, seg := range res.Canonical {
		states := make([][]float64, len(seg.States))
		for k, x := range seg.States {
			states[k] = x
		}
		data.Segments[i] = ExportSegment{Times: seg.Times, States: states}
	}
	for i, ev := range res.Events {
		data.Events[i] = ExportEvent{ExportSample: ExportSample{T: ev.T, X: ev.X}, Source: ev.Source}
	}
	return data
}

// ExportJSON writes the metadata and all stored views as one document.
func ExportJSON(w io.Writer, meta RunMetadata, res *trajectory.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, res))
}
