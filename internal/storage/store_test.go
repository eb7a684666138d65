package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/periodic"
	"github.com/san-kum/phasespace/internal/trajectory"
)

func sampleResult(t *testing.T) *trajectory.Result {
	t.Helper()
	sol := &dynamo.Solution{
		Times:       []float64{0, 1, 2, 3, 4},
		States:      []dynamo.State{{2.5, 1}, {3.0, 1}, {3.5, 1}, {4.0, 1}, {4.5, 1}},
		EventTimes:  [][]float64{{1.5}},
		EventStates: [][]dynamo.State{{{math.Pi, 1}}},
	}
	data := periodic.Data{0: {Offset: -math.Pi, Period: 2 * math.Pi}}
	res, err := trajectory.Process(sol, trajectory.Forward, data, trajectory.DefaultTolerance(1))
	require.NoError(t, err)
	return res
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		System:         "pendulum",
		Source:         "builtin:pendulum",
		VariableNames:  []string{"phi", "y"},
		ParameterNames: []string{"g", "mu"},
		Params:         []float64{0.5, 0.1},
		Initial:        []float64{2.5, 1},
		Span:           dynamo.Span{Start: 0, End: 4, Steps: 4},
		Method:         "RK45",
		RTol:           1e-5,
		ATol:           1e-5,
		Periodic:       periodic.Data{0: {Offset: -math.Pi, Period: 2 * math.Pi}},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	res := sampleResult(t)
	runID, err := st.Save(sampleMeta(), res)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "pendulum_"))

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "pendulum", meta.System)
	assert.Equal(t, "forward", meta.Direction)
	assert.Equal(t, 6, meta.Samples)
	assert.Equal(t, 2, meta.Segments)
	assert.Equal(t, 1, meta.Events)
	assert.Equal(t, sampleMeta().Periodic, meta.Periodic)

	full, err := st.LoadFull(runID)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Full, full); diff != "" {
		t.Errorf("full trajectory mismatch (-want +got):\n%s", diff)
	}

	segs, err := st.LoadSegments(runID)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Canonical, segs); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	events, err := st.LoadEvents(runID)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Events, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	_, loaded, err := st.LoadResult(runID)
	require.NoError(t, err)
	assert.Equal(t, trajectory.Forward, loaded.Direction)
	assert.Len(t, loaded.Canonical, 2)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	res := sampleResult(t)
	first, err := st.Save(sampleMeta(), res)
	require.NoError(t, err)
	meta := sampleMeta()
	meta.System = "lua/system dir"
	second, err := st.Save(meta, res)
	require.NoError(t, err)
	assert.NotContains(t, second, "/")

	// stray files and directories without metadata are ignored
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "notes.txt"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(st.Dir(), "empty"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
}

func TestStoreList_MissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreNotFound(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.LoadSegments("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, st.Delete("nope"), ErrRunNotFound)
}

func TestStoreDelete(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(sampleMeta(), sampleResult(t))
	require.NoError(t, err)

	require.NoError(t, st.Delete(runID))
	_, err = st.Load(runID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSegmentsCSV(t *testing.T) {
	segs := []trajectory.Segment{
		{Times: []float64{0, 0.5}, States: []dynamo.State{{1, 2}, {1.5, 2}}},
		{Times: []float64{0.5, 1}, States: []dynamo.State{{-1.5, 2}, {-1, 2}}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSegmentsCSV(&buf, []string{"phi", "y"}, segs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "segment,t,phi,y", lines[0])
	assert.Equal(t, "1,0.5,-1.5,2", lines[3])

	back, err := ReadSegmentsCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(segs, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSegmentsCSV_Errors(t *testing.T) {
	_, err := ReadSegmentsCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, dynamo.ErrShapeMismatch)

	_, err = ReadSegmentsCSV(strings.NewReader("segment,t,x\n1,0,1\n0,1,2\n"))
	assert.ErrorIs(t, err, dynamo.ErrShapeMismatch)

	_, err = ReadSegmentsCSV(strings.NewReader("segment,t,x\n0,abc,1\n"))
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult(t)
	require.NoError(t, ExportJSON(&buf, sampleMeta(), res))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "pendulum", data.Metadata.System)
	assert.Equal(t, 2, data.Metadata.Segments)
	assert.Len(t, data.Full, 6)
	assert.Len(t, data.Segments, 2)
	require.Len(t, data.Events, 1)
	assert.Equal(t, 1.5, data.Events[0].T)
}
