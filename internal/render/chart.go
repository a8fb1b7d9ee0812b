package render

import (
	"math"
	"strconv"

	"github.com/tupakrantina/backoffice/internal/report"
)

type point struct{ x, y float64 }

// drawChart plots the daily scatter series with the smoothed total
// trend inside the box (x, y, w, h), legend on top.
func drawChart(c *canvas, ch report.ScatterChart, x, y, w, h float64) {
	legendH := legend(c, ch, x, y, w)

	plotX := x + 40
	plotY := y + legendH + 10
	plotW := w - 50
	plotH := h - legendH - 50

	days := ch.Days
	if days < 1 {
		days = 1
	}
	maxY := niceMax(ch.MaxY)

	px := func(day int) float64 {
		if days == 1 {
			return plotX + plotW/2
		}
		return plotX + float64(day-1)/float64(days-1)*plotW
	}
	py := func(v float64) float64 {
		return plotY + plotH - v/float64(maxY)*plotH
	}

	// grid and y ticks
	step := tickStep(maxY)
	for v := 0; v <= maxY; v += step {
		gy := py(float64(v))
		c.line(plotX, gy, plotX+plotW, gy, 0.5, report.ColorBorder)
		c.text(strconv.Itoa(v), plotX-6, gy, 9, false, report.ColorMuted, 1, 0.5)
	}
	for d := 1; d <= days; d++ {
		c.text(strconv.Itoa(d), px(d), plotY+plotH+12, 8, false, report.ColorMuted, 0.5, 0.5)
	}
	c.line(plotX, plotY, plotX, plotY+plotH, 1, report.ColorMuted)
	c.line(plotX, plotY+plotH, plotX+plotW, plotY+plotH, 1, report.ColorMuted)

	c.text(ch.XLabel, plotX+plotW/2, plotY+plotH+32, 11, true, report.ColorText, 0.5, 0.5)
	c.dc.Push()
	c.dc.RotateAbout(-math.Pi/2, (x+8)*c.s, (plotY+plotH/2)*c.s)
	c.text(ch.YLabel, x+8, plotY+plotH/2, 11, true, report.ColorText, 0.5, 0.5)
	c.dc.Pop()

	if len(ch.Trend.Points) > 0 {
		pts := make([]point, len(ch.Trend.Points))
		for i, p := range ch.Trend.Points {
			pts[i] = point{px(p.X), py(float64(p.Y))}
		}
		c.setHex(ch.Trend.Color)
		c.dc.SetLineWidth(3 * c.s)
		c.dc.SetDash(6*c.s, 4*c.s)
		smoothPath(c, pts, ch.Tension)
		c.dc.Stroke()
		c.dc.SetDash()
	}

	for _, s := range ch.Series {
		for _, p := range s.Points {
			c.circle(px(p.X), py(float64(p.Y)), 5, s.Color)
		}
	}
}

// legend draws one swatch per series plus the trend, wrapping rows; returns its height
func legend(c *canvas, ch report.ScatterChart, x, y, w float64) float64 {
	type entry struct{ label, color string }
	entries := make([]entry, 0, len(ch.Series)+1)
	for _, s := range ch.Series {
		entries = append(entries, entry{s.Label, s.Color})
	}
	if ch.Trend.Label != "" {
		entries = append(entries, entry{ch.Trend.Label, ch.Trend.Color})
	}

	const rowH = 18.0
	cx, cy := x, y
	for _, e := range entries {
		ew := 16 + c.measure(e.label, 10, false) + 18
		if cx+ew > x+w && cx > x {
			cx = x
			cy += rowH
		}
		c.circle(cx+5, cy+rowH/2, 5, e.color)
		c.text(e.label, cx+16, cy+rowH/2, 10, false, report.ColorText, 0, 0.5)
		cx += ew
	}
	if len(entries) == 0 {
		return 0
	}
	return cy - y + rowH
}

// smoothPath traces a cardinal spline through pts. tension 0 draws straight
// segments; 0.3 matches the soft curve of the web dashboards.
func smoothPath(c *canvas, pts []point, tension float64) {
	s := c.s
	c.dc.MoveTo(pts[0].x*s, pts[0].y*s)
	if len(pts) == 1 {
		return
	}
	for i := 0; i < len(pts)-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, len(pts)-1)]

		c1 := point{p1.x + (p2.x-p0.x)*tension/2, p1.y + (p2.y-p0.y)*tension/2}
		c2 := point{p2.x - (p3.x-p1.x)*tension/2, p2.y - (p3.y-p1.y)*tension/2}
		c.dc.CubicTo(c1.x*s, c1.y*s, c2.x*s, c2.y*s, p2.x*s, p2.y*s)
	}
}

// niceMax rounds the axis maximum up so ticks land on whole numbers
func niceMax(v int) int {
	if v < 1 {
		return 1
	}
	step := tickStep(v)
	return ((v + step - 1) / step) * step
}

func tickStep(v int) int {
	switch {
	case v <= 10:
		return 1
	case v <= 25:
		return 5
	case v <= 100:
		return 10
	default:
		return int(math.Pow(10, math.Floor(math.Log10(float64(v)))))
	}
}
