package scheduler

import (
	"context"
	"errors"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: the scheduled job interface is defined here only
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field first
	// Examples: "0 0 7 1 * *" (07:00 on the 1st of every month)
	//           "@daily", "@every 5m"
	Schedule() string
}

// permanentError marks a failure that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the scheduler does not retry it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit is how many results a History keeps per job
const historyLimit = 100

// History is the bounded run log of one job, oldest first
type History struct {
	results []JobResult
}

// Record appends r, dropping the oldest entry past historyLimit
func (h *History) Record(r JobResult) {
	h.results = append(h.results, r)
	if over := len(h.results) - historyLimit; over > 0 {
		h.results = append(h.results[:0:0], h.results[over:]...)
	}
}

// Len is the number of kept results
func (h *History) Len() int { return len(h.results) }

// Results returns a copy of every kept result
func (h *History) Results() []JobResult {
	return append([]JobResult(nil), h.results...)
}

// Latest returns up to n of the most recent results
func (h *History) Latest(n int) []JobResult {
	if n > len(h.results) {
		n = len(h.results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return append([]JobResult(nil), h.results[len(h.results)-n:]...)
}

// Failures counts failed runs
func (h *History) Failures() int {
	n := 0
	for _, r := range h.results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate is successful runs over kept runs, 0 when empty
func (h *History) SuccessRate() float64 {
	if len(h.results) == 0 {
		return 0
	}
	return float64(len(h.results)-h.Failures()) / float64(len(h.results))
}

// Last returns the most recent result with the given outcome
func (h *History) Last(success bool) (JobResult, bool) {
	for i := len(h.results) - 1; i >= 0; i-- {
		if h.results[i].Success == success {
			return h.results[i], true
		}
	}
	return JobResult{}, false
}
