package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/phasespace/internal/analysis"
	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/trajectory"
)

func sampleSeries() []analysis.Series {
	a := trajectory.Segment{Times: []float64{0, 1, 2}, States: []dynamo.State{{2, 0}, {3, 1}, {3.1, 2}}}
	b := trajectory.Segment{Times: []float64{2, 3}, States: []dynamo.State{{-3.1, 2}, {-2, 3}}}
	dot := trajectory.Segment{Times: []float64{1}, States: []dynamo.State{{0, 0}}}
	return []analysis.Series{
		{Name: "row 1", Segments: []trajectory.Segment{a, b}},
		{Name: "section", Segments: []trajectory.Segment{dot}},
	}
}

func TestSave_Formats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"portrait.png", "portrait.svg"} {
		path := filepath.Join(dir, name)
		err := Save(path, sampleSeries(), Axes{X: 0, Y: 1, XLabel: "phi", YLabel: "y"}, DefaultOptions())
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestSave_Errors(t *testing.T) {
	dir := t.TempDir()
	err := Save(filepath.Join(dir, "x.bmp"), sampleSeries(), Axes{X: 0, Y: 1}, DefaultOptions())
	assert.ErrorIs(t, err, ErrFormat)

	err = Save(filepath.Join(dir, "x.png"), nil, Axes{X: 0, Y: 1}, DefaultOptions())
	assert.ErrorIs(t, err, ErrNothingToDraw)
}

func TestWrite_SVG(t *testing.T) {
	var buf bytes.Buffer
	// x axis is time (index == dimension)
	require.NoError(t, Write(&buf, "svg", sampleSeries(), Axes{X: 2, Y: 0}, DefaultOptions()))
	assert.Contains(t, buf.String(), "<svg")
}

func TestPlot_OneLinePerSegment(t *testing.T) {
	p, err := Plot(sampleSeries(), Axes{X: 0, Y: 1}, Options{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "t", p.Title.Text)
}

func TestGenerateColors(t *testing.T) {
	colors := generateColors(3)
	require.Len(t, colors, 3)
	assert.NotEqual(t, colors[0], colors[1])
	assert.Nil(t, generateColors(0))
}
