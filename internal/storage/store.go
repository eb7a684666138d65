// Package storage persists integration runs as a directory per run:
// metadata.json plus CSV files for the full trajectory, the canonical
// segments and the events.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
	"github.com/san-kum/phasespace/internal/trajectory"
)

const (
	MetadataFile = "metadata.json"
	FullFile     = "full.csv"
	SegmentsFile = "segments.csv"
	EventsFile   = "events.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunMetadata describes one saved run. The caller fills in the system and
// solver fields; Save sets ID, Timestamp and the counts.
type RunMetadata struct {
	ID             string             `json:"id"`
	System         string             `json:"system"`
	Source         string             `json:"source,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
	VariableNames  []string           `json:"variable_names"`
	ParameterNames []string           `json:"parameter_names"`
	Params         []float64          `json:"params"`
	Initial        []float64          `json:"initial"`
	Span           dynamo.Span        `json:"span"`
	Direction      string             `json:"direction"`
	Method         string             `json:"method"`
	RTol           float64            `json:"rtol"`
	ATol           float64            `json:"atol"`
	Periodic       periodic.Data      `json:"periodic,omitempty"`
	Stats          dynamo.SolverStats `json:"stats"`
	Samples        int                `json:"samples"`
	Segments       int                `json:"segments"`
	Events         int                `json:"events"`
}

func runID(system string, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, system)
	if name == "" {
		name = "run"
	}
	return fmt.Sprintf("%s_%d", name, now.UnixNano())
}

// Save writes a processed run and returns its ID.
func (s *Store) Save(meta RunMetadata, res *trajectory.Result) (string, error) {
	now := time.Now()
	meta.ID = runID(meta.System, now)
	meta.Timestamp = now
	meta.Direction = res.Direction.String()
	meta.Samples = len(res.Full)
	meta.Segments = len(res.Canonical)
	meta.Events = len(res.Events)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, MetadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, FullFile), func(f *os.File) error {
		return WriteSamplesCSV(f, meta.VariableNames, res.Full)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, SegmentsFile), func(f *os.File) error {
		return WriteSegmentsCSV(f, meta.VariableNames, res.Canonical)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, EventsFile), func(f *os.File) error {
		return WriteEventsCSV(f, meta.VariableNames, res.Events)
	}); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// List returns the metadata of every run, newest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) open(runID, name string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return f, err
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	f, err := s.open(runID, MetadataFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var meta RunMetadata
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadFull(runID string) ([]trajectory.Sample, error) {
	f, err := s.open(runID, FullFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSamplesCSV(f)
}

func (s *Store) LoadSegments(runID string) ([]trajectory.Segment, error) {
	f, err := s.open(runID, SegmentsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSegmentsCSV(f)
}

func (s *Store) LoadEvents(runID string) ([]trajectory.Event, error) {
	f, err := s.open(runID, EventsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEventsCSV(f)
}

// LoadResult rebuilds the stored views of a run. Raw (pre-fold) segments
// are not stored, so Segments is left empty.
func (s *Store) LoadResult(runID string) (*RunMetadata, *trajectory.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	full, err := s.LoadFull(runID)
	if err != nil {
		return nil, nil, err
	}
	segs, err := s.LoadSegments(runID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.LoadEvents(runID)
	if err != nil {
		return nil, nil, err
	}
	dir := trajectory.Forward
	if meta.Direction == trajectory.Backward.String() {
		dir = trajectory.Backward
	}
	return meta, &trajectory.Result{Full: full, Canonical: segs, Events: events, Direction: dir}, nil
}

func (s *Store) Delete(runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}
