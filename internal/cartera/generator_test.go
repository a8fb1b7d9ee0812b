package cartera

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupakrantina/backoffice/internal/aggregation"
	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/internal/report"
	"github.com/tupakrantina/backoffice/internal/scoring"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

var ref = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type stubRenderer struct {
	started chan struct{}
	release chan struct{}
	err     error
	pages   int
}

func (s *stubRenderer) Render(ctx context.Context, doc *report.Document, progress func(done, total int)) ([]byte, error) {
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	s.pages = len(doc.Pages)
	for i := range doc.Pages {
		progress(i+1, len(doc.Pages))
	}
	return []byte("%PDF-stub"), nil
}

type stubArchiver struct {
	key string
	err error
}

func (s *stubArchiver) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.key = key
	if s.err != nil {
		return "", s.err
	}
	return "s3://reportes/" + key, nil
}

type stubMailer struct {
	subject string
	file    string
}

func (s *stubMailer) SendReport(ctx context.Context, subject, body, fileName string, pdf []byte) error {
	s.subject = subject
	s.file = fileName
	return nil
}

type panickyEngine struct{}

func (panickyEngine) Score([]contracts.LoanRecord) []contracts.ScoredRecord {
	panic("index out of range")
}

type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) Publish(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if len(out) == 0 || out[len(out)-1] != ev.Stage {
			out = append(out, ev.Stage)
		}
	}
	return out
}

func newGenerator(renderer Renderer, mutate func(*Deps)) *Generator {
	deps := Deps{
		Engine:     scoring.NewEngine(scoring.DefaultWeightConfig(), logger.Nop()),
		Aggregator: aggregation.NewAggregator(zerolog.Nop()),
		Composer:   report.NewComposer(report.Options{Now: func() time.Time { return ref }}, zerolog.Nop()),
		Renderer:   renderer,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewGenerator(deps, zerolog.Nop())
}

func sampleRecords() []contracts.LoanRecord {
	return []contracts.LoanRecord{
		{Acta: "1", Advisor: "A", Amount: "1000", Term: "12 meses", Rate: "10%", CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{Acta: "2", Advisor: "A", Amount: "2000", Term: "12 meses", Rate: "10%", CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)},
		{Acta: "3", Advisor: "A", Amount: "3000", Term: "12 meses", Rate: "10%", CreatedAt: time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)},
		{Acta: "4", Advisor: "B", Amount: "9000", Term: "24 meses", Rate: "15%", Status: "En mora", CreatedAt: time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC)},
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	g := newGenerator(&stubRenderer{}, nil)

	res, err := g.Generate(context.Background(), nil, RunOptions{ReferenceDate: ref})
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrNoRecords)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindInputEmpty, ce.Kind)
	assert.Equal(t, "No hay datos de créditos para generar el reporte.", UserMessage(err))
}

func TestGenerateSuccess(t *testing.T) {
	rend := &stubRenderer{}
	arch := &stubArchiver{}
	mail := &stubMailer{}
	rec := &recorder{}
	g := newGenerator(rend, func(d *Deps) {
		d.Archiver = arch
		d.Mailer = mail
		d.Progress = rec
	})

	res, err := g.Generate(context.Background(), sampleRecords(), RunOptions{ReferenceDate: ref, Archive: true, Email: true})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "Reporte_Cartera_TupakRantina_2024-03-15.pdf", res.FileName)
	assert.Equal(t, []byte("%PDF-stub"), res.PDF)
	// cover, summary, comparison, one advisor, distribution
	assert.Equal(t, 5, res.PageCount)
	assert.Equal(t, 5, rend.pages)

	assert.Equal(t, 3, res.Aggregate.Totals.PeriodCount)
	assert.Equal(t, 4, res.Aggregate.Totals.AllTimeCount)

	assert.Equal(t, "2024/03/Reporte_Cartera_TupakRantina_2024-03-15.pdf", arch.key)
	assert.Equal(t, "s3://reportes/"+arch.key, res.ArchiveURL)
	assert.True(t, res.Emailed)
	assert.Equal(t, "Reporte de Cartera - Marzo 2024", mail.subject)
	assert.Equal(t, res.FileName, mail.file)

	assert.Equal(t, []string{
		StageStarted, StageScoring, StageComposing, StageRendering, StageArchiving, StageMailing, StageDone,
	}, rec.stages())
	assert.False(t, g.Busy())
}

func TestGenerateStageOrder(t *testing.T) {
	tests := []struct {
		name string
		opts RunOptions
		want []string
	}{
		{"render only", RunOptions{ReferenceDate: ref},
			[]string{StageStarted, StageScoring, StageComposing, StageRendering, StageDone}},
		{"archive", RunOptions{ReferenceDate: ref, Archive: true},
			[]string{StageStarted, StageScoring, StageComposing, StageRendering, StageArchiving, StageDone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			g := newGenerator(&stubRenderer{}, func(d *Deps) {
				d.Archiver = &stubArchiver{}
				d.Progress = rec
			})

			_, err := g.Generate(context.Background(), sampleRecords(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.stages())
		})
	}
}

func TestGenerateRejectsConcurrentRun(t *testing.T) {
	rend := &stubRenderer{started: make(chan struct{}), release: make(chan struct{})}
	g := newGenerator(rend, nil)

	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), sampleRecords(), RunOptions{ReferenceDate: ref})
		done <- err
	}()

	<-rend.started
	assert.True(t, g.Busy())

	_, err := g.Generate(context.Background(), sampleRecords(), RunOptions{ReferenceDate: ref})
	require.ErrorIs(t, err, ErrInFlight)

	close(rend.release)
	require.NoError(t, <-done)
	assert.False(t, g.Busy())
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
		mutate   func(*Deps)
		opts     RunOptions
		kind     Kind
		partial  bool
		message  string
	}{
		{
			name:     "computation panic",
			renderer: &stubRenderer{},
			mutate:   func(d *Deps) { d.Engine = panickyEngine{} },
			kind:     KindComputation,
			message:  "Error al generar el reporte: index out of range",
		},
		{
			name:     "rendering",
			renderer: &stubRenderer{err: errors.New("page 3 failed")},
			kind:     KindRendering,
			message:  "Error al generar el reporte: page 3 failed",
		},
		{
			name:     "archive",
			renderer: &stubRenderer{},
			mutate:   func(d *Deps) { d.Archiver = &stubArchiver{err: errors.New("bucket missing")} },
			opts:     RunOptions{Archive: true},
			kind:     KindDelivery,
			partial:  true,
			message:  "El reporte se generó pero no pudo ser entregado: archivo: bucket missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(tt.renderer, tt.mutate)
			tt.opts.ReferenceDate = ref

			res, err := g.Generate(context.Background(), sampleRecords(), tt.opts)
			require.Error(t, err)

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.message, ce.UserMessage())

			if tt.partial {
				require.NotNil(t, res)
				assert.NotEmpty(t, res.PDF)
			} else {
				assert.Nil(t, res)
			}
			assert.False(t, g.Busy())
		})
	}
}

func TestPeriodRecords(t *testing.T) {
	got := PeriodRecords(sampleRecords(), ref)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, "A", r.Advisor)
	}
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "2024/03/x.pdf", ArchiveKey(ref, "x.pdf"))
}

func TestUserMessageForPlainError(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Error al generar el reporte: boom", UserMessage(errors.New("boom")))
}

func TestScore(t *testing.T) {
	g := newGenerator(&stubRenderer{}, nil)

	agg, err := g.Score(sampleRecords(), ref)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Totals.PeriodCount)
	assert.False(t, g.Busy())

	_, err = g.Score(nil, ref)
	require.ErrorIs(t, err, ErrNoRecords)
}
