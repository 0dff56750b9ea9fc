package runner

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	errcollection "github.com/cebert/aws-lambda-performance-benchmarks/pkg/utils/err_collection"
)

// sweepResult tallies the configurations of one subject's sweep.
type sweepResult struct {
	completed int
	failed    int
	errs      []error
}

func (s *sweepResult) succeed() {
	s.completed++
}

func (s *sweepResult) fail(err error) {
	s.failed++
	s.errs = append(s.errs, err)
}

// progressTracker counts finished configurations across workers and
// logs an estimate of the remaining time after each sweep returns.
type progressTracker struct {
	mu        sync.Mutex
	total     int
	completed int
	failed    int
	errs      errcollection.ErrorCollection

	start time.Time
	now   func() time.Time
}

func newProgress(total int, start time.Time, now func() time.Time) *progressTracker {
	return &progressTracker{total: total, start: start, now: now}
}

// record accounts one finished sweep in a single batch, so the
// counters only ever move when a whole subject task has returned.
func (p *progressTracker) record(result sweepResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed += result.completed
	p.failed += result.failed
	for _, err := range result.errs {
		p.errs.Add(err)
	}

	done := p.completed + p.failed
	if done == 0 {
		return
	}
	elapsed := p.now().Sub(p.start)
	average := elapsed / time.Duration(done)
	remaining := average * time.Duration(p.total-done)

	logrus.Infof("Progress: %d/%d (%.1f%%) | Completed: %d | Failed: %d | Est. remaining: %.1fmin",
		done, p.total, 100*float64(done)/float64(p.total),
		p.completed, p.failed, remaining.Minutes())
}

// totals returns the configuration counters.
func (p *progressTracker) totals() (completed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.completed, p.failed
}

// errors returns the combined configuration errors, nil when all
// configurations succeeded.
func (p *progressTracker) errors() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.errs.GetErrIfAny()
}
