package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tupakrantina/backoffice/internal/scheduler"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// Pinger is a dependency that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckJob pings the backing services so an outage shows up in the
// logs before the monthly report needs them
type HealthCheckJob struct {
	checks  map[string]Pinger
	timeout time.Duration
	logger  *logger.Logger
}

// NewHealthCheckJob creates a health check over the named dependencies
func NewHealthCheckJob(checks map[string]Pinger, log *logger.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		checks:  checks,
		timeout: 5 * time.Second,
		logger:  log,
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *HealthCheckJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run pings every dependency and joins the failures. The next tick is
// the retry, so failures are never retried in place.
func (j *HealthCheckJob) Run(ctx context.Context) error {
	names := make([]string, 0, len(j.checks))
	for name := range j.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, j.timeout)
		err := j.checks[name].Ping(pingCtx)
		cancel()

		if err != nil {
			j.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		j.logger.WithField("dependency", name).Debug("Health check passed")
	}

	return scheduler.Permanent(errors.Join(errs...))
}
