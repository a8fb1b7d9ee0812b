package cartera

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/internal/aggregation"
	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/internal/report"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

const lockTTL = 15 * time.Minute

// Renderer turns a composed document into the output file
type Renderer interface {
	Render(ctx context.Context, doc *report.Document, progress func(done, total int)) ([]byte, error)
}

// Archiver stores a finished report and returns where it lives
type Archiver interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Mailer delivers a finished report
type Mailer interface {
	SendReport(ctx context.Context, subject, htmlBody, fileName string, pdf []byte) error
}

// Deps are the collaborators of a Generator. Archiver, Mailer, Redis and
// Progress are optional.
type Deps struct {
	Engine     contracts.ScoreEngine
	Aggregator contracts.PortfolioAggregator
	Composer   *report.Composer
	Renderer   Renderer
	Archiver   Archiver
	Mailer     Mailer
	Redis      *redis.Client
	Progress   ProgressSink
}

// RunOptions are the per-run choices
type RunOptions struct {
	ReferenceDate time.Time // zero means now
	Archive       bool
	Email         bool
}

// Result is a finished run
type Result struct {
	RunID      string
	FileName   string
	PDF        []byte
	Aggregate  *contracts.AggregateResult
	PageCount  int
	ArchiveURL string
	Emailed    bool
	Elapsed    time.Duration
}

// Generator coordinates one report run at a time.
// ⭐ SSOT: the in-flight flag lives here and nowhere else
type Generator struct {
	deps     Deps
	inFlight atomic.Bool
	now      func() time.Time
	log      zerolog.Logger
}

// NewGenerator creates a Generator
func NewGenerator(deps Deps, log zerolog.Logger) *Generator {
	return &Generator{
		deps: deps,
		now:  time.Now,
		log:  log.With().Str("component", "cartera").Logger(),
	}
}

// Busy reports whether a run is in flight in this process
func (g *Generator) Busy() bool {
	return g.inFlight.Load()
}

// Generate scores, aggregates, composes and renders the portfolio report.
// A second call while one is running fails with ErrInFlight.
func (g *Generator) Generate(ctx context.Context, records []contracts.LoanRecord, opts RunOptions) (*Result, error) {
	if len(records) == 0 {
		g.log.Warn().Msg("No records supplied, report not generated")
		return nil, newError(KindInputEmpty, ErrNoRecords)
	}

	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, newError(KindInFlight, ErrInFlight)
	}
	defer g.inFlight.Store(false)

	runID := uuid.NewString()
	log := g.log.With().Str("run_id", runID).Logger()

	lock := redis.NewLock(g.deps.Redis, "cartera", "report", runID, lockTTL)
	ok, err := lock.TryAcquire(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Report lock unavailable, continuing with local guard")
	} else if !ok {
		return nil, newError(KindInFlight, ErrInFlight)
	} else {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("Failed to release report lock")
			}
		}()
	}

	start := g.now()
	ref := opts.ReferenceDate
	if ref.IsZero() {
		ref = start
	}

	log.Info().
		Int("records", len(records)).
		Str("period", ref.Format("2006-01")).
		Msg("Report generation started")
	g.publish(ProgressEvent{RunID: runID, Stage: StageStarted, Total: len(records)})

	res, err := g.run(ctx, runID, records, ref, opts, log)
	if err != nil {
		log.Error().Err(err).Msg("Report generation failed")
		g.publish(ProgressEvent{RunID: runID, Stage: StageFailed, Message: UserMessage(err)})
		return res, err
	}

	res.Elapsed = time.Since(start)
	log.Info().
		Str("file", res.FileName).
		Int("pages", res.PageCount).
		Dur("elapsed", res.Elapsed).
		Msg("Report generation completed")
	g.publish(ProgressEvent{RunID: runID, Stage: StageDone, Total: res.PageCount, Message: res.FileName})

	return res, nil
}

func (g *Generator) run(ctx context.Context, runID string, records []contracts.LoanRecord, ref time.Time, opts RunOptions, log zerolog.Logger) (*Result, error) {
	agg, doc, err := g.compute(records, ref, func(stage string) {
		g.publish(ProgressEvent{RunID: runID, Stage: stage})
	})
	if err != nil {
		return nil, newError(KindComputation, err)
	}

	g.publish(ProgressEvent{RunID: runID, Stage: StageRendering, Total: len(doc.Pages)})
	pdf, err := g.deps.Renderer.Render(ctx, doc, func(done, total int) {
		g.publish(ProgressEvent{RunID: runID, Stage: StageRendering, Page: done, Total: total})
	})
	if err != nil {
		return nil, newError(KindRendering, err)
	}

	res := &Result{
		RunID:     runID,
		FileName:  doc.FileName,
		PDF:       pdf,
		Aggregate: agg,
		PageCount: len(doc.Pages),
	}

	// the file exists from here on; delivery failures are reported with the result
	if opts.Archive && g.deps.Archiver != nil {
		g.publish(ProgressEvent{RunID: runID, Stage: StageArchiving})
		url, err := g.deps.Archiver.Upload(ctx, ArchiveKey(ref, doc.FileName), pdf, "application/pdf")
		if err != nil {
			return res, newError(KindDelivery, fmt.Errorf("archivo: %w", err))
		}
		res.ArchiveURL = url
		log.Info().Str("url", url).Msg("Report archived")
	}

	if opts.Email && g.deps.Mailer != nil {
		g.publish(ProgressEvent{RunID: runID, Stage: StageMailing})
		subject, body, err := g.deps.Composer.Email(agg)
		if err != nil {
			return res, newError(KindDelivery, fmt.Errorf("correo: %w", err))
		}
		if err := g.deps.Mailer.SendReport(ctx, subject, body, doc.FileName, pdf); err != nil {
			return res, newError(KindDelivery, fmt.Errorf("correo: %w", err))
		}
		res.Emailed = true
	}

	return res, nil
}

// compute runs the pure stages, calling onStage as scoring and composing
// begin. A panic anywhere in them discards the partial result and
// becomes an error.
func (g *Generator) compute(records []contracts.LoanRecord, ref time.Time, onStage func(stage string)) (agg *contracts.AggregateResult, doc *report.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Str("stack", string(debug.Stack())).Msgf("panic during report computation: %v", r)
			agg, doc, err = nil, nil, fmt.Errorf("%v", r)
		}
	}()

	onStage(StageScoring)
	period := PeriodRecords(records, ref)
	scored := g.deps.Engine.Score(period)
	agg = g.deps.Aggregator.Aggregate(scored, records, ref)

	onStage(StageComposing)
	doc = g.deps.Composer.Compose(agg)
	return agg, doc, nil
}

// Score runs scoring and aggregation without rendering. It does not take
// the in-flight guard.
func (g *Generator) Score(records []contracts.LoanRecord, ref time.Time) (*contracts.AggregateResult, error) {
	if len(records) == 0 {
		return nil, newError(KindInputEmpty, ErrNoRecords)
	}
	if ref.IsZero() {
		ref = g.now()
	}
	agg, _, err := g.compute(records, ref, func(string) {})
	if err != nil {
		return nil, newError(KindComputation, err)
	}
	return agg, nil
}

func (g *Generator) publish(ev ProgressEvent) {
	if g.deps.Progress != nil {
		g.deps.Progress.Publish(ev)
	}
}

// PeriodRecords keeps the records created in ref's month
func PeriodRecords(records []contracts.LoanRecord, ref time.Time) []contracts.LoanRecord {
	out := make([]contracts.LoanRecord, 0, len(records))
	for _, r := range records {
		if aggregation.InPeriod(r.CreatedAt, ref) {
			out = append(out, r)
		}
	}
	return out
}

// ArchiveKey is the object key of a report: "2024/03/<file>"
func ArchiveKey(ref time.Time, fileName string) string {
	return fmt.Sprintf("%04d/%02d/%s", ref.Year(), int(ref.Month()), fileName)
}
