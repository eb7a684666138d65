package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/trajectory"
)

// Series is one trajectory drawn with a single glyph.
type Series struct {
	Name     string
	Segments []trajectory.Segment
}

var glyphs = []rune{'•', '*', 'o', '+', 'x', '#', '@', '%'}

// Glyph returns the marker used for the i-th series.
func Glyph(i int) rune {
	return glyphs[i%len(glyphs)]
}

type point struct{ X, Y float64 }

// AxisValue returns variable idx of sample k, or its time when idx equals
// the state dimension.
func AxisValue(seg trajectory.Segment, k, idx int) float64 {
	if idx == seg.Dim() {
		return seg.Times[k]
	}
	return seg.States[k][idx]
}

func bounds(series []Series, xIdx, yIdx int) (minX, maxX, minY, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range series {
		for _, seg := range s.Segments {
			for k := range seg.Times {
				x, y := AxisValue(seg, k, xIdx), AxisValue(seg, k, yIdx)
				minX, maxX = math.Min(minX, x), math.Max(maxX, x)
				minY, maxY = math.Min(minY, y), math.Max(maxY, y)
			}
		}
	}
	return minX, maxX, minY, maxY, !math.IsInf(minX, 1)
}

// PhasePortraitASCII draws the projection of every series onto the axes
// (xIdx, yIdx). Consecutive samples are joined only inside a segment, so a
// periodic wrap leaves no connecting line.
func PhasePortraitASCII(series []Series, xIdx, yIdx, width, height int) string {
	if width <= 1 || height <= 1 {
		return ""
	}
	minX, maxX, minY, maxY, ok := bounds(series, xIdx, yIdx)
	if !ok {
		return ""
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	minY -= rangeY * 0.05
	maxY += rangeY * 0.05
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	cell := func(p point) (int, int) {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		return row, col
	}
	plot := func(p point, g rune) {
		row, col := cell(p)
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = g
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		_, col := cell(point{0, minY})
		for row := 0; row < height; row++ {
			canvas[row][col] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		row, _ := cell(point{minX, 0})
		for col := 0; col < width; col++ {
			canvas[row][col] = '─'
		}
	}

	for i, s := range series {
		g := Glyph(i)
		for _, seg := range s.Segments {
			var prev point
			for k := range seg.Times {
				p := point{AxisValue(seg, k, xIdx), AxisValue(seg, k, yIdx)}
				if k > 0 {
					pr, pc := cell(prev)
					cr, cc := cell(p)
					steps := max(abs(cr-pr), abs(cc-pc))
					for j := 1; j < steps; j++ {
						f := float64(j) / float64(steps)
						plot(point{prev.X + f*(p.X-prev.X), prev.Y + f*(p.Y-prev.Y)}, g)
					}
				}
				plot(p, g)
				prev = p
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PoincareSection turns event samples into a series of isolated points.
// With a crossing event the points trace a section of the flow.
func PoincareSection(events []trajectory.Event) Series {
	segs := make([]trajectory.Segment, 0, len(events))
	for _, ev := range events {
		segs = append(segs, trajectory.Segment{
			Times:  []float64{ev.T},
			States: []dynamo.State{ev.X},
		})
	}
	return Series{Name: "section", Segments: segs}
}
