// Package runner coordinates a full benchmark run: it builds the test
// matrix from the discovered subjects, fans the subjects out over a
// bounded worker pool and records every measurement as it happens.
//
// Parallelism is per subject; the memory sweep of one subject always
// runs sequentially because concurrent configuration updates on the
// same function raise ResourceConflictException.
package runner

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/invoker"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/store"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/visualization"
)

// Invoker is the invocation surface the runner drives. Satisfied by
// *invoker.Invoker; tests supply fakes.
type Invoker interface {
	ForceColdStart(ctx context.Context, functionName string, targetMB int) error
	Invoke(ctx context.Context, subject benchmark.Subject) (invoker.Sample, error)
}

// Clients bundles the handles one worker task uses.
type Clients struct {
	Invoker Invoker
	Store   store.Store
}

// ClientFactory builds a fresh set of clients. The runner calls it once
// for its own control-plane work and once per worker task, so no client
// handle is ever shared between concurrent sweeps.
type ClientFactory func() (Clients, error)

// Report is the outcome of a benchmark run. Completed and Failed count
// configurations, not invocations.
type Report struct {
	RunID     string
	Completed int
	Failed    int
	Aborted   bool
	Elapsed   time.Duration
}

// Runner executes one benchmark run over a fixed set of subjects.
type Runner struct {
	config   benchmark.Config
	subjects []benchmark.Subject
	clients  ClientFactory
	region   string

	now func() time.Time
	out io.Writer
}

// New returns a Runner for the given subjects.
func New(config benchmark.Config, subjects []benchmark.Subject, clients ClientFactory, region string) *Runner {
	return &Runner{
		config:   config,
		subjects: subjects,
		clients:  clients,
		region:   region,
		now:      time.Now,
		out:      os.Stdout,
	}
}

// Run executes the full benchmark. Canceling the context stops
// scheduling further subjects; sweeps already in flight run to
// completion so no half-measured configuration is left behind, and the
// run record is marked failed with an abort note.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	runID := r.config.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	entries := r.matrixEntries()
	totalConfigurations := len(entries)
	if totalConfigurations == 0 {
		return Report{}, errors.New("no benchmark subjects matched, nothing to run")
	}
	matrix := benchmark.BuildMatrix(entries)

	logrus.Infof("Test run ID: %s", runID)
	logrus.Infof("Cold starts per configuration: %d", r.config.ColdStartsPerConfig)
	logrus.Infof("Warm starts per configuration: %d", r.config.WarmStartsPerConfig)
	logrus.Infof("Parallel workers: %d", r.config.MaxWorkers)
	logrus.Infof("Total test configurations: %d", totalConfigurations)
	visualization.MatrixTable(matrix).Draw(r.out)

	control, err := r.clients()
	if err != nil {
		return Report{}, err
	}

	start := r.now()
	err = control.Store.CreateTestRun(ctx, store.RunRecord{
		TestRunID:           runID,
		Timestamp:           start.UnixMilli(),
		Status:              store.StatusInProgress,
		StartTime:           start.UnixMilli(),
		Mode:                r.config.Mode(),
		Region:              r.region,
		TotalConfigurations: totalConfigurations,
		TotalInvocations:    r.config.TotalInvocations(totalConfigurations),
		ColdStartsPerConfig: r.config.ColdStartsPerConfig,
		WarmStartsPerConfig: r.config.WarmStartsPerConfig,
		Notes:               r.config.Notes,
		TestMatrix:          matrix,
	})
	if err != nil {
		return Report{}, err
	}

	progress := newProgress(totalConfigurations, start, r.now)

	semaphore := make(chan struct{}, r.config.MaxWorkers)
	var wg sync.WaitGroup
	aborted := false

scheduling:
	for _, subject := range r.subjects {
		if ctx.Err() != nil {
			aborted = true
			break
		}
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			aborted = true
			break scheduling
		}

		wg.Add(1)
		go func(subject benchmark.Subject) {
			defer wg.Done()
			defer func() { <-semaphore }()

			// In-flight sweeps finish even after an abort.
			r.benchmarkSubject(context.WithoutCancel(ctx), subject, runID, progress)
		}(subject)
	}
	wg.Wait()

	if aborted {
		logrus.Warn("Benchmark aborted by user")
	}

	completed, failed := progress.totals()
	if errs := progress.errors(); errs != nil {
		logrus.Warnf("Configuration errors: %v", errs)
	}

	completion := store.RunCompletion{
		Status:            store.StatusCompleted,
		EndTime:           r.now().UnixMilli(),
		FailedInvocations: failed,
	}
	switch {
	case aborted:
		completion.Status = store.StatusFailed
		completion.ErrorSummary = "aborted by user"
	case failed > 0:
		completion.ErrorSummary = errors.Errorf("%d configuration(s) failed during benchmark execution", failed).Error()
	}

	err = control.Store.CompleteTestRun(context.WithoutCancel(ctx), runID, completion)
	if err != nil {
		return Report{}, err
	}

	elapsed := r.now().Sub(start)
	logrus.Infof("Completed: %d/%d configurations in %.1f minutes", completed, totalConfigurations, elapsed.Minutes())
	if failed > 0 {
		logrus.Warnf("Failed: %d", failed)
	}

	return Report{
		RunID:     runID,
		Completed: completed,
		Failed:    failed,
		Aborted:   aborted,
		Elapsed:   elapsed,
	}, nil
}

// matrixEntries expands every subject into its memory sweep.
func (r *Runner) matrixEntries() []benchmark.MatrixEntry {
	var entries []benchmark.MatrixEntry
	for _, subject := range r.subjects {
		for _, memoryMB := range benchmark.MemorySizesFor(subject.WorkloadType, r.config.MemorySizeFilter) {
			entries = append(entries, benchmark.MatrixEntry{Subject: subject, MemoryMB: memoryMB})
		}
	}
	return entries
}
