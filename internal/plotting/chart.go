package plotting

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Range is a closed axis interval
type Range struct {
	Min float64
	Max float64
}

// Series is one line on a chart. X and Y must have the same length; Err,
// when set, holds symmetric error bar half-widths for each point.
type Series struct {
	Name    string
	X       []float64
	Y       []float64
	Err     []float64
	Color   color.Color
	Markers bool
}

// Chart describes a single panel
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series

	XRange *Range
	YRange *Range

	// XTicks places labelled ticks at fixed values. When empty, IntegerX
	// selects IntegerTicks and otherwise gonum's default ticker is used.
	XTicks   []float64
	IntegerX bool

	// Guides draws dashed vertical lines at every XTicks value
	Guides   bool
	ZeroLine bool
	Legend   bool
}

var (
	black     = color.RGBA{A: 255}
	lightGray = color.RGBA{R: 211, G: 211, B: 211, A: 255}

	// seriesPalette is cycled for series without an explicit color
	seriesPalette = []color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{B: 255, A: 255},
		color.RGBA{G: 128, A: 255},
		color.RGBA{R: 128, B: 128, A: 255},
		color.RGBA{R: 255, G: 165, A: 255},
	}
)

// Black is the default color of single-series charts
func Black() color.Color { return black }

// PaletteColor returns the i-th series color
func PaletteColor(i int) color.Color {
	return seriesPalette[i%len(seriesPalette)]
}

// errorPoints pairs points with their y errors for plotter.NewYErrorBars
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// build turns c into a gonum plot
func (c Chart) build() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel

	for i, s := range c.Series {
		if len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("series %q: %d x values for %d y values", s.Name, len(s.X), len(s.Y))
		}
		if s.Err != nil && len(s.Err) != len(s.Y) {
			return nil, fmt.Errorf("series %q: %d errors for %d points", s.Name, len(s.Err), len(s.Y))
		}

		col := s.Color
		if col == nil {
			col = PaletteColor(i)
		}
		if err := addSeries(p, s, col, c.Legend); err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
	}

	if c.XRange != nil {
		p.X.Min, p.X.Max = c.XRange.Min, c.XRange.Max
	}
	if c.YRange != nil {
		p.Y.Min, p.Y.Max = c.YRange.Min, c.YRange.Max
	}

	switch {
	case len(c.XTicks) > 0:
		p.X.Tick.Marker = fixedTicks(c.XTicks)
	case c.IntegerX:
		p.X.Tick.Marker = IntegerTicks{}
	}

	if c.ZeroLine {
		zero := plotter.NewFunction(func(float64) float64 { return 0 })
		zero.Color = black
		zero.Width = vg.Points(0.8)
		p.Add(zero)
	}
	if c.Guides {
		if err := addGuides(p, c.XTicks); err != nil {
			return nil, err
		}
	}

	if c.Legend {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}
	return p, nil
}

func addSeries(p *plot.Plot, s Series, col color.Color, legend bool) error {
	var first *plotter.Line
	for _, seg := range segments(s.X, s.Y) {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		line.Color = col
		line.Width = vg.Points(1.5)
		p.Add(line)
		if first == nil {
			first = line
		}

		if s.Markers {
			scatter, err := plotter.NewScatter(seg)
			if err != nil {
				return err
			}
			scatter.GlyphStyle.Color = col
			scatter.GlyphStyle.Radius = vg.Points(2)
			scatter.Shape = draw.CircleGlyph{}
			p.Add(scatter)
		}
	}

	if s.Err != nil {
		points := errorBarPoints(s.X, s.Y, s.Err)
		if len(points.XYs) > 0 {
			bars, err := plotter.NewYErrorBars(points)
			if err != nil {
				return err
			}
			bars.LineStyle.Color = col
			if col == black {
				bars.LineStyle.Color = lightGray
			}
			bars.CapWidth = 0
			p.Add(bars)
		}
	}

	if legend && s.Name != "" && first != nil {
		p.Legend.Add(s.Name, first)
	}
	return nil
}

// segments splits a series at missing or non-finite points
func segments(x, y []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range y {
		if !finite(x[i]) || !finite(y[i]) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// errorBarPoints keeps the points whose value and error are both known
func errorBarPoints(x, y, e []float64) errorPoints {
	var pts errorPoints
	for i := range y {
		if !finite(x[i]) || !finite(y[i]) || !finite(e[i]) {
			continue
		}
		pts.XYs = append(pts.XYs, plotter.XY{X: x[i], Y: y[i]})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{e[i], e[i]})
	}
	return pts
}

// addGuides draws dashed vertical lines spanning the current y range
func addGuides(p *plot.Plot, xs []float64) error {
	lo, hi := p.Y.Min, p.Y.Max
	if !finite(lo) || !finite(hi) {
		lo, hi = 0, 1
	}
	for _, x := range xs {
		guide, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return err
		}
		guide.Color = black
		guide.Width = vg.Points(0.8)
		guide.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(guide)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
