package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tupakrantina/backoffice/internal/report"
)

// A4 in millimetres
const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
)

const jpegQuality = 95

// PageRasterizer draws one page descriptor. *Rasterizer is the production implementation.
type PageRasterizer interface {
	Rasterize(p report.Page) (image.Image, error)
}

// ExporterConfig controls page rasterization fan-out
type ExporterConfig struct {
	Workers     int           // concurrent rasterizations, output order is kept
	PageTimeout time.Duration // 0 disables the per-page bound
}

// PageError reports which page failed to render
type PageError struct {
	Index int
	Kind  report.PageKind
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Index+1, e.Kind, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// renderedPage is one encoded page image
type renderedPage struct {
	jpeg   []byte
	width  int
	height int
}

// Exporter turns a composed document into a PDF
type Exporter struct {
	raster PageRasterizer
	cfg    ExporterConfig
	log    zerolog.Logger
}

// NewExporter creates an exporter; workers below 1 mean sequential rendering
func NewExporter(raster PageRasterizer, cfg ExporterConfig, log zerolog.Logger) *Exporter {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Exporter{
		raster: raster,
		cfg:    cfg,
		log:    log.With().Str("component", "render").Logger(),
	}
}

// Render rasterizes every page and assembles them, in document order,
// into a PDF. Any page failure fails the whole document.
// progress, when set, is told how many pages are done; calls are serialized.
func (e *Exporter) Render(ctx context.Context, doc *report.Document, progress func(done, total int)) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	start := time.Now()
	pages, err := e.rasterizeAll(ctx, doc.Pages, progress)
	if err != nil {
		return nil, err
	}

	out, err := assemblePDF(doc, pages)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int("pages", len(pages)).
		Int("bytes", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("Report rendered")

	return out, nil
}

func (e *Exporter) rasterizeAll(ctx context.Context, pages []report.Page, progress func(done, total int)) ([]renderedPage, error) {
	results := make([]renderedPage, len(pages))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i, p := range pages {
		g.Go(func() error {
			rp, err := e.renderPage(gctx, p)
			if err != nil {
				return &PageError{Index: i, Kind: p.Kind(), Err: err}
			}
			results[i] = rp

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(pages))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// renderPage rasterizes and encodes one page. On timeout the drawing
// goroutine is abandoned; its result is discarded.
func (e *Exporter) renderPage(ctx context.Context, p report.Page) (renderedPage, error) {
	if err := ctx.Err(); err != nil {
		return renderedPage{}, err
	}
	if e.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PageTimeout)
		defer cancel()
	}

	type outcome struct {
		page renderedPage
		err  error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("rasterizer panic: %v", r)}
			}
		}()

		img, err := e.raster.Rasterize(p)
		if err != nil {
			ch <- outcome{err: err}
			return
		}
		rp, err := encodePage(img)
		ch <- outcome{page: rp, err: err}
	}()

	select {
	case o := <-ch:
		return o.page, o.err
	case <-ctx.Done():
		return renderedPage{}, fmt.Errorf("rasterization aborted: %w", ctx.Err())
	}
}

func encodePage(img image.Image) (renderedPage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return renderedPage{}, fmt.Errorf("failed to encode page: %w", err)
	}
	b := img.Bounds()
	return renderedPage{jpeg: buf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}

// assemblePDF places each image at the top-left of its own page, full
// A4 width. Pages taller than A4 get a taller sheet.
func assemblePDF(doc *report.Document, pages []renderedPage) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: a4WidthMM, Ht: a4HeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator(doc.System, true)
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
		pdf.SetModificationDate(doc.GeneratedAt)
	}

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for i, p := range pages {
		imgHeight := float64(p.height) * a4WidthMM / float64(p.width)
		sheetHeight := a4HeightMM
		if imgHeight > sheetHeight {
			sheetHeight = imgHeight
		}

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: a4WidthMM, Ht: sheetHeight})
		name := fmt.Sprintf("page-%03d", i+1)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.jpeg))
		pdf.ImageOptions(name, 0, 0, a4WidthMM, imgHeight, false, opts, 0, "")

		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("failed to add page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
