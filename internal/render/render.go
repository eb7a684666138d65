// Package render draws phase portraits to image files with gonum/plot.
// Each segment becomes its own line so periodic wraps are not joined.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/phasespace/internal/analysis"
)

var (
	ErrNothingToDraw = errors.New("render: no samples to draw")
	ErrFormat        = errors.New("render: unsupported image format")
)

// Formats lists the file extensions Save understands.
var Formats = []string{"png", "svg", "pdf", "jpg", "jpeg", "eps", "tif", "tiff"}

// Axes picks the projection. An index equal to the state dimension plots
// time.
type Axes struct {
	X, Y           int
	XLabel, YLabel string
}

type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

func DefaultOptions() Options {
	return Options{Width: 8 * vg.Inch, Height: 6 * vg.Inch}
}

// Plot builds a phase portrait with one colour and legend entry per series.
func Plot(series []analysis.Series, axes Axes, opts Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = axes.XLabel
	p.Y.Label.Text = axes.YLabel

	colors := generateColors(len(series))
	drawn := 0
	for i, s := range series {
		var legend plot.Thumbnailer
		for _, seg := range s.Segments {
			pts := make(plotter.XYs, seg.Len())
			for k := range pts {
				pts[k].X = analysis.AxisValue(seg, k, axes.X)
				pts[k].Y = analysis.AxisValue(seg, k, axes.Y)
			}
			switch len(pts) {
			case 0:
				continue
			case 1:
				sc, err := plotter.NewScatter(pts)
				if err != nil {
					return nil, fmt.Errorf("series %q: %w", s.Name, err)
				}
				sc.GlyphStyle.Color = colors[i]
				sc.GlyphStyle.Radius = vg.Points(1.5)
				p.Add(sc)
				legend = sc
			default:
				line, err := plotter.NewLine(pts)
				if err != nil {
					return nil, fmt.Errorf("series %q: %w", s.Name, err)
				}
				line.Color = colors[i]
				line.Width = vg.Points(1)
				p.Add(line)
				legend = line
			}
			drawn++
		}
		if legend != nil && s.Name != "" {
			p.Legend.Add(s.Name, legend)
		}
	}
	if drawn == 0 {
		return nil, ErrNothingToDraw
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func format(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range Formats {
		if f == ext {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrFormat, ext, strings.Join(Formats, ", "))
}

// Save renders to path; the extension selects the format.
func Save(path string, series []analysis.Series, axes Axes, opts Options) error {
	if _, err := format(path); err != nil {
		return err
	}
	p, err := Plot(series, axes, opts)
	if err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Write renders to w in the given format ("png", "svg", ...).
func Write(w io.Writer, formatName string, series []analysis.Series, axes Axes, opts Options) error {
	if _, err := format("x." + formatName); err != nil {
		return err
	}
	p, err := Plot(series, axes, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, formatName)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// generateColors creates a palette of distinct colors for trajectories
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
