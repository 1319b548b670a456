// Package chart renders the risk-over-time chart as SVG.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ContentType of Render output.
const ContentType = "image/svg+xml"

// Reference lines drawn across the chart.
const (
	ThresholdLine = 70.0
	CriticalLine  = 90.0
)

var (
	ErrEmptySeries = errors.New("chart: empty risk series")

	riskColor      = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	thresholdColor = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
	criticalColor  = color.RGBA{R: 0xb0, G: 0x00, B: 0x00, A: 0xff}
)

// Size of the rendered image.
type Size struct {
	Width, Height vg.Length
}

// DefaultSize fits the dashboard column.
var DefaultSize = Size{Width: 8 * vg.Inch, Height: 4 * vg.Inch}

// Render draws risks by row index with dashed lines at ThresholdLine and
// CriticalLine and writes the SVG to w.
func Render(w io.Writer, risks []float64, size Size) error {
	if len(risks) == 0 {
		return ErrEmptySeries
	}
	p, err := build(risks)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(size.Width, size.Height, "svg")
	if err != nil {
		return fmt.Errorf("chart: encode svg: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write svg: %w", err)
	}
	return nil
}

func build(risks []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Failure risk over time"
	p.X.Label.Text = "Record"
	p.Y.Label.Text = "Risk (%)"
	p.X.Min = 0
	p.X.Max = float64(max(len(risks)-1, 1))
	p.Y.Min = 0
	p.Y.Max = 100
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(risks))
	for i, r := range risks {
		pts[i].X = float64(i)
		pts[i].Y = r
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("chart: series: %w", err)
	}
	line.Color = riskColor
	points.Color = riskColor
	points.Shape = draw.CircleGlyph{}

	threshold := reference(ThresholdLine, thresholdColor)
	critical := reference(CriticalLine, criticalColor)

	p.Add(line, points, threshold, critical)
	p.Legend.Add("Risk (%)", line, points)
	p.Legend.Add(fmt.Sprintf("Threshold %.0f%%", ThresholdLine), threshold)
	p.Legend.Add(fmt.Sprintf("Critical %.0f%%", CriticalLine), critical)
	p.Legend.Top = true
	return p, nil
}

func reference(y float64, c color.Color) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.Color = c
	f.Width = vg.Points(1.5)
	f.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return f
}
