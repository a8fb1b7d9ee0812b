package render

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/tupakrantina/backoffice/internal/report"
)

// Options configures page rasterization
type Options struct {
	Scale       float64     // supersampling factor, >= 1
	OutputWidth int         // final image width in pixels
	Logo        image.Image // optional cover logo
}

// DefaultOptions renders at 2x and downsamples to 1240px (150 dpi A4)
func DefaultOptions() Options {
	return Options{Scale: 2, OutputWidth: 1240}
}

// Rasterizer draws page descriptors onto images
type Rasterizer struct {
	opts Options
}

// NewRasterizer validates options and loads fonts
func NewRasterizer(opts Options) (*Rasterizer, error) {
	if opts.Scale < 1 {
		return nil, fmt.Errorf("scale must be >= 1, got %v", opts.Scale)
	}
	if opts.OutputWidth <= 0 {
		opts.OutputWidth = DefaultOptions().OutputWidth
	}
	if err := loadFonts(); err != nil {
		return nil, err
	}
	return &Rasterizer{opts: opts}, nil
}

// Rasterize draws one page. The canvas is A4 wide and at least A4 tall;
// pages with more content grow instead of clipping.
func (r *Rasterizer) Rasterize(p report.Page) (image.Image, error) {
	height := PageHeight
	if h := pageHeight(p); h > height {
		height = h
	}

	c := newCanvas(PageWidth, height, r.opts.Scale)

	switch page := p.(type) {
	case report.CoverPage:
		r.drawCover(c, page, height)
	case report.SummaryPage:
		drawSummary(c, page)
	case report.ComparisonPage:
		drawComparison(c, page)
	case report.AdvisorPage:
		drawAdvisor(c, page)
	case report.DistributionPage:
		drawDistribution(c, page)
	default:
		return nil, fmt.Errorf("unsupported page type %T", p)
	}

	return imaging.Resize(c.image(), r.opts.OutputWidth, 0, imaging.Lanczos), nil
}

// pageHeight is the layout height a page needs
func pageHeight(p report.Page) float64 {
	switch page := p.(type) {
	case report.AdvisorPage:
		return advisorTableTop + tableHeaderHeight + float64(len(page.Rows))*advisorRowHeight + 20 + 2*(cardHeight+cardGap) + Margin
	case report.ComparisonPage:
		return comparisonTableTop + 2*tableHeaderHeight + float64(len(page.Rows)+1)*comparisonRowHeight + 40 + chartHeight + Margin
	case report.DistributionPage:
		return distributionTableTop + tableHeaderHeight + float64(len(page.Rows))*distributionRowHeight + Margin
	default:
		return PageHeight
	}
}

func (r *Rasterizer) drawCover(c *canvas, p report.CoverPage, height float64) {
	c.gradientRect(0, 0, PageWidth, height, 0, report.ColorPrimary, report.ColorAccent2)

	y := 260.0
	if r.opts.Logo != nil {
		w := int(math.Round(400 * c.s))
		logo := imaging.Resize(r.opts.Logo, w, 0, imaging.Lanczos)
		logoH := float64(logo.Bounds().Dy()) / c.s
		c.drawImage(logo, int((PageWidth-400)/2), int(y-logoH/2))
		y += logoH/2 + 60
	} else {
		y += 60
	}

	c.text(p.Title, PageWidth/2, y, 42, true, report.ColorWhite, 0.5, 0.5)
	c.text(p.PeriodLabel, PageWidth/2, y+60, 28, false, report.ColorWhite, 0.5, 0.5)

	boxY := y + 110
	c.roundRect((PageWidth-520)/2, boxY, 520, 110, 10, withAlpha(report.ColorWhite, 51))
	c.text(fmt.Sprintf("Total de Créditos: %d", p.RecordCount), PageWidth/2, boxY+38, 20, false, report.ColorWhite, 0.5, 0.5)
	c.text("Fecha de generación: "+p.GeneratedOn, PageWidth/2, boxY+76, 20, false, report.ColorWhite, 0.5, 0.5)
}
