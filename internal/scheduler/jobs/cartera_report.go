package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tupakrantina/backoffice/internal/cartera"
	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/internal/scheduler"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// DefaultReportSchedule runs at 07:00 on the 1st of every month
const DefaultReportSchedule = "0 0 7 1 * *"

// RecordSource loads the loan records to report on
type RecordSource interface {
	ListRecords(ctx context.Context) ([]contracts.LoanRecord, error)
}

// ReportGenerator produces the cartera report
type ReportGenerator interface {
	Generate(ctx context.Context, records []contracts.LoanRecord, opts cartera.RunOptions) (*cartera.Result, error)
}

// CarteraReportJob generates, archives and mails the monthly report.
// It runs early in a month and reports on the month that just ended.
// ⭐ SSOT: the monthly report schedule lives in this job only
type CarteraReportJob struct {
	source    RecordSource
	generator ReportGenerator
	schedule  string
	location  *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// NewCarteraReportJob creates the monthly report job. An empty schedule
// uses DefaultReportSchedule.
func NewCarteraReportJob(source RecordSource, gen ReportGenerator, schedule string, loc *time.Location, log *logger.Logger) *CarteraReportJob {
	if schedule == "" {
		schedule = DefaultReportSchedule
	}
	if loc == nil {
		loc = time.Local
	}
	return &CarteraReportJob{
		source:    source,
		generator: gen,
		schedule:  schedule,
		location:  loc,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *CarteraReportJob) Name() string {
	return "monthly_cartera_report"
}

// Schedule returns the cron schedule (with seconds)
func (j *CarteraReportJob) Schedule() string {
	return j.schedule
}

// ReferenceDate is the last day of the month before now
func ReferenceDate(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, now.Location())
	return first.AddDate(0, 0, -1)
}

// Run executes the report generation
func (j *CarteraReportJob) Run(ctx context.Context) error {
	ref := ReferenceDate(j.now().In(j.location))
	log := j.logger.WithField("period", ref.Format("2006-01"))
	log.Info("Starting scheduled cartera report")

	records, err := j.source.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	res, err := j.generator.Generate(ctx, records, cartera.RunOptions{
		ReferenceDate: ref,
		Archive:       true,
		Email:         true,
	})
	if err != nil {
		var ce *cartera.Error
		if errors.As(err, &ce) && (ce.Kind == cartera.KindInputEmpty || ce.Kind == cartera.KindComputation) {
			return scheduler.Permanent(err)
		}
		return err
	}

	log.WithFields(map[string]interface{}{
		"file":     res.FileName,
		"pages":    res.PageCount,
		"archive":  res.ArchiveURL,
		"emailed":  res.Emailed,
		"duration": res.Elapsed,
	}).Info("Scheduled cartera report completed")

	return nil
}
