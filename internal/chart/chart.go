// Package chart draws survival curves and start counts as PNG images.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/report"
	"github.com/sells-group/retention-cli/internal/survival"
)

// Options controls the canvas. A FontPath enables TrueType labels, needed
// for non-Latin titles; otherwise the built-in bitmap face is used.
type Options struct {
	Width    int
	Height   int
	FontPath string
	FontSize float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.Height <= 0 {
		o.Height = 540
	}
	if o.FontSize <= 0 {
		o.FontSize = 13
	}
	return o
}

// Series is one labelled curve.
type Series struct {
	Label string
	Curve survival.Curve
}

var palette = []color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff}, // blue
	{0xd6, 0x27, 0x28, 0xff}, // red
	{0x2c, 0xa0, 0x2c, 0xff}, // green
	{0xff, 0x7f, 0x0e, 0xff}, // orange
	{0x94, 0x67, 0xbd, 0xff}, // purple
	{0x8c, 0x56, 0x4b, 0xff}, // brown
}

const margin = 60.0

type canvas struct {
	dc         *gg.Context
	opts       Options
	plotW      float64
	plotH      float64
	xMax, yMax float64
}

func newCanvas(opts Options, xMax, yMax float64) (*canvas, error) {
	opts = opts.withDefaults()
	dc := gg.NewContext(opts.Width, opts.Height)
	if opts.FontPath != "" {
		if err := dc.LoadFontFace(opts.FontPath, opts.FontSize); err != nil {
			return nil, eris.Wrapf(err, "chart: load font %s", opts.FontPath)
		}
	}
	dc.SetColor(color.White)
	dc.Clear()

	if xMax <= 0 {
		xMax = 1
	}
	if yMax <= 0 {
		yMax = 1
	}
	return &canvas{
		dc:    dc,
		opts:  opts,
		plotW: float64(opts.Width) - 2*margin,
		plotH: float64(opts.Height) - 2*margin,
		xMax:  xMax,
		yMax:  yMax,
	}, nil
}

func (c *canvas) x(v float64) float64 { return margin + v/c.xMax*c.plotW }
func (c *canvas) y(v float64) float64 { return margin + c.plotH - v/c.yMax*c.plotH }

func (c *canvas) axes(title, xLabel, yLabel string, xTicks, yTicks []float64, yFmt string) {
	dc := c.dc
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin+c.plotH, margin+c.plotW, margin+c.plotH)
	dc.DrawLine(margin, margin, margin, margin+c.plotH)
	dc.Stroke()

	for _, t := range yTicks {
		dc.SetColor(color.Gray{Y: 0x70})
		dc.DrawStringAnchored(fmt.Sprintf(yFmt, t), margin-6, c.y(t), 1, 0.5)
	}
	for _, t := range xTicks {
		dc.DrawStringAnchored(fmt.Sprintf("%g", t), c.x(t), margin+c.plotH+6, 0.5, 1)
	}

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(title, float64(c.opts.Width)/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored(xLabel, margin+c.plotW/2, float64(c.opts.Height)-margin/3, 0.5, 0.5)
	dc.DrawStringAnchored(yLabel, margin/4, margin/2, 0, 0.5)
}

// SurvivalPNG draws one or more step curves over [0, horizon]. A single
// series also has its area shaded.
func SurvivalPNG(w io.Writer, title, xLabel string, horizon float64, series []Series, opts Options) error {
	c, err := newCanvas(opts, horizon, 1)
	if err != nil {
		return err
	}
	c.axes(title, xLabel, "survival", niceTicks(horizon, 6), []float64{0, 0.25, 0.5, 0.75, 1}, "%.2f")

	dc := c.dc
	for i, s := range series {
		tr := s.Curve.Truncate(horizon)
		if tr.Len() == 0 {
			continue
		}
		col := palette[i%len(palette)]

		stepPath(c, tr, horizon)
		if len(series) == 1 {
			dc.LineTo(c.x(horizonEnd(tr, horizon)), c.y(0))
			dc.LineTo(c.x(tr.Times[0]), c.y(0))
			dc.ClosePath()
			dc.SetRGBA255(int(col.R), int(col.G), int(col.B), 0x33)
			dc.Fill()
			stepPath(c, tr, horizon)
		}
		dc.SetColor(col)
		dc.SetLineWidth(2)
		dc.Stroke()

		if s.Label != "" {
			ly := margin + 16 + float64(i)*18
			lx := margin + c.plotW - 150
			dc.DrawLine(lx, ly, lx+20, ly)
			dc.Stroke()
			dc.DrawStringAnchored(s.Label, lx+26, ly, 0, 0.5)
		}
	}

	return eris.Wrap(dc.EncodePNG(w), "chart: encode png")
}

// stepPath traces a right-continuous step function, holding the last value
// out to the horizon.
func stepPath(c *canvas, tr survival.Curve, horizon float64) {
	dc := c.dc
	dc.NewSubPath()
	dc.MoveTo(c.x(tr.Times[0]), c.y(tr.Survival[0]))
	for i := 1; i < tr.Len(); i++ {
		dc.LineTo(c.x(tr.Times[i]), c.y(tr.Survival[i-1]))
		dc.LineTo(c.x(tr.Times[i]), c.y(tr.Survival[i]))
	}
	dc.LineTo(c.x(horizonEnd(tr, horizon)), c.y(tr.Survival[tr.Len()-1]))
}

func horizonEnd(tr survival.Curve, horizon float64) float64 {
	return math.Max(tr.Times[tr.Len()-1], horizon)
}

// BarPNG draws period counts as a bar chart with the count above each bar.
func BarPNG(w io.Writer, title string, counts []report.PeriodCount, opts Options) error {
	peak := 0
	for _, pc := range counts {
		peak = max(peak, pc.Count)
	}
	yMax := float64(peak) * 1.1

	c, err := newCanvas(opts, float64(max(len(counts), 1)), yMax)
	if err != nil {
		return err
	}
	c.axes(title, "period", "starts", nil, niceTicks(c.yMax, 5), "%g")

	dc := c.dc
	slot := c.plotW / float64(max(len(counts), 1))
	labelEvery := max(1, len(counts)/12)
	for i, pc := range counts {
		x0 := margin + float64(i)*slot + slot*0.1
		top := c.y(float64(pc.Count))
		dc.SetColor(palette[0])
		dc.DrawRectangle(x0, top, slot*0.8, margin+c.plotH-top)
		dc.Fill()

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(fmt.Sprint(pc.Count), x0+slot*0.4, top-4, 0.5, 0)
		if i%labelEvery == 0 {
			dc.DrawStringAnchored(pc.Period, x0+slot*0.4, margin+c.plotH+20, 0.5, 1)
		}
	}

	return eris.Wrap(dc.EncodePNG(w), "chart: encode png")
}

// niceTicks returns about n evenly spaced round tick values in [0, hi].
func niceTicks(hi float64, n int) []float64 {
	if hi <= 0 || n <= 0 {
		return []float64{0}
	}
	raw := hi / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}
	var out []float64
	for v := 0.0; v <= hi+step*1e-9; v += step {
		out = append(out, math.Round(v/step)*step)
	}
	return out
}
