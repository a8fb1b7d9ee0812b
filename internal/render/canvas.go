package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/tupakrantina/backoffice/internal/report"
)

// Layout is expressed in CSS pixels of an A4 sheet at 96 dpi
const (
	PageWidth  = 794.0
	PageHeight = 1123.0
	Margin     = 76.0 // 20mm
	Content    = PageWidth - 2*Margin
)

var (
	fontsOnce sync.Once
	fontSet   struct {
		regular, bold *truetype.Font
	}
	fontsErr error
)

// loadFonts parses the embedded Go fonts once; parsed fonts are read-only
// and shared, faces are per canvas.
func loadFonts() error {
	fontsOnce.Do(func() {
		if fontSet.regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		fontSet.bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	if fontsErr != nil {
		return fmt.Errorf("failed to load fonts: %w", fontsErr)
	}
	return nil
}

type faceKey struct {
	size float64
	bold bool
}

// canvas draws in layout units onto a device context scaled by s.
// Coordinates and font sizes are scaled before drawing so text is
// rasterized at device resolution.
type canvas struct {
	dc    *gg.Context
	s     float64
	faces map[faceKey]font.Face
}

func newCanvas(width, height, scale float64) *canvas {
	dc := gg.NewContext(int(math.Ceil(width*scale)), int(math.Ceil(height*scale)))
	dc.SetColor(color.White)
	dc.Clear()
	return &canvas{dc: dc, s: scale, faces: make(map[faceKey]font.Face)}
}

func (c *canvas) image() image.Image {
	return c.dc.Image()
}

func (c *canvas) face(size float64, bold bool) font.Face {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f
	}
	ttf := fontSet.regular
	if bold {
		ttf = fontSet.bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size * c.s, Hinting: font.HintingFull})
	c.faces[key] = f
	return f
}

func (c *canvas) setHex(hex string) {
	c.dc.SetColor(report.MustHex(hex))
}

func (c *canvas) rect(x, y, w, h float64, hex string) {
	c.setHex(hex)
	c.dc.DrawRectangle(x*c.s, y*c.s, w*c.s, h*c.s)
	c.dc.Fill()
}

func (c *canvas) strokeRect(x, y, w, h, lw float64, hex string) {
	c.setHex(hex)
	c.dc.SetLineWidth(lw * c.s)
	c.dc.DrawRectangle(x*c.s, y*c.s, w*c.s, h*c.s)
	c.dc.Stroke()
}

func (c *canvas) roundRect(x, y, w, h, r float64, fill color.Color) {
	c.dc.SetColor(fill)
	c.dc.DrawRoundedRectangle(x*c.s, y*c.s, w*c.s, h*c.s, r*c.s)
	c.dc.Fill()
}

// gradientRect fills a rounded rectangle with a diagonal gradient
// (gg evaluates gradients in device space)
func (c *canvas) gradientRect(x, y, w, h, r float64, from, to string) {
	g := gg.NewLinearGradient(x*c.s, y*c.s, (x+w)*c.s, (y+h)*c.s)
	g.AddColorStop(0, report.MustHex(from))
	g.AddColorStop(1, report.MustHex(to))
	c.dc.SetFillStyle(g)
	c.dc.DrawRoundedRectangle(x*c.s, y*c.s, w*c.s, h*c.s, r*c.s)
	c.dc.Fill()
}

func (c *canvas) line(x1, y1, x2, y2, lw float64, hex string) {
	c.setHex(hex)
	c.dc.SetLineWidth(lw * c.s)
	c.dc.DrawLine(x1*c.s, y1*c.s, x2*c.s, y2*c.s)
	c.dc.Stroke()
}

func (c *canvas) circle(x, y, r float64, fill string) {
	c.setHex(fill)
	c.dc.DrawCircle(x*c.s, y*c.s, r*c.s)
	c.dc.Fill()
}

// text draws s anchored at (x, y): ax/ay 0 = left/baseline-top, 0.5 = centre, 1 = right/bottom
func (c *canvas) text(s string, x, y, size float64, bold bool, hex string, ax, ay float64) {
	c.dc.SetFontFace(c.face(size, bold))
	c.setHex(hex)
	c.dc.DrawStringAnchored(s, x*c.s, y*c.s, ax, ay)
}

func (c *canvas) textColor(s string, x, y, size float64, bold bool, col color.Color, ax, ay float64) {
	c.dc.SetFontFace(c.face(size, bold))
	c.dc.SetColor(col)
	c.dc.DrawStringAnchored(s, x*c.s, y*c.s, ax, ay)
}

func (c *canvas) measure(s string, size float64, bold bool) float64 {
	c.dc.SetFontFace(c.face(size, bold))
	w, _ := c.dc.MeasureString(s)
	return w / c.s
}

// fit shortens s with an ellipsis until it fits maxW
func (c *canvas) fit(s string, maxW, size float64, bold bool) string {
	if c.measure(s, size, bold) <= maxW {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if c.measure(candidate, size, bold) <= maxW {
			return candidate
		}
	}
	return ""
}

// starPath traces a five-pointed star centred on (cx, cy)
func (c *canvas) starPath(cx, cy, r float64) {
	inner := r * 0.45
	for i := 0; i < 10; i++ {
		radius := r
		if i%2 == 1 {
			radius = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		x := (cx + radius*math.Cos(a)) * c.s
		y := (cy + radius*math.Sin(a)) * c.s
		if i == 0 {
			c.dc.MoveTo(x, y)
		} else {
			c.dc.LineTo(x, y)
		}
	}
	c.dc.ClosePath()
}

func (c *canvas) star(cx, cy, r float64, hex string) {
	c.setHex(hex)
	c.starPath(cx, cy, r)
	c.dc.Fill()
}

// stars draws a 5-star rating left-aligned at x, vertically centred on y.
// The partial star is a gray star with a gold overlay clipped to the fraction.
func (c *canvas) stars(x, y, size float64, rating report.StarRating, on, off string) float64 {
	step := size * 1.15
	r := size / 2
	cx := x + r

	for i := 0; i < rating.Full; i++ {
		c.star(cx, y, r, on)
		cx += step
	}

	if rating.Partial > 0 {
		c.star(cx, y, r, off)
		c.dc.Push()
		c.dc.DrawRectangle((cx-r)*c.s, (y-r)*c.s, 2*r*rating.Partial*c.s, 2*r*c.s)
		c.dc.Clip()
		c.star(cx, y, r, on)
		c.dc.ResetClip()
		c.dc.Pop()
		cx += step
	}

	for i := 0; i < rating.Empty; i++ {
		c.star(cx, y, r, off)
		cx += step
	}
	return cx - r - x
}

// drawImage places a device-resolution img with its top-left at (x, y)
func (c *canvas) drawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, int(float64(x)*c.s), int(float64(y)*c.s))
}

func withAlpha(hex string, a uint8) color.Color {
	col := report.MustHex(hex)
	return color.NRGBA{R: col.R, G: col.G, B: col.B, A: a}
}
