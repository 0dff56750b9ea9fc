package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Memory is a Store kept entirely in process memory. Concurrent-safe;
// the runner tests inspect its contents after a run.
type Memory struct {
	mu         sync.Mutex
	runs       map[string]RunRecord
	samples    []SampleRecord
	aggregates []AggregateRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{runs: map[string]RunRecord{}}
}

// CreateTestRun records the run header.
func (m *Memory) CreateTestRun(ctx context.Context, run RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.PK = RunKey(run.TestRunID)
	run.SK = RunKey(run.TestRunID)
	run.ItemType = itemTypeTestRun
	m.runs[run.TestRunID] = run
	return nil
}

// PutSample records one invocation measurement.
func (m *Memory) PutSample(ctx context.Context, sample SampleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sample.ItemType = itemTypeResult
	m.samples = append(m.samples, sample)
	return nil
}

// PutAggregate records one statistics item.
func (m *Memory) PutAggregate(ctx context.Context, aggregate AggregateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	aggregate.ItemType = itemTypeSummary
	m.aggregates = append(m.aggregates, aggregate)
	return nil
}

// CompleteTestRun patches the recorded run header.
func (m *Memory) CompleteTestRun(ctx context.Context, runID string, completion RunCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return errors.Errorf("test run %q does not exist", runID)
	}
	run.Status = completion.Status
	run.EndTime = completion.EndTime
	run.FailedInvocations = completion.FailedInvocations
	run.ErrorSummary = completion.ErrorSummary
	m.runs[runID] = run
	return nil
}

// Run returns the recorded header of the given run.
func (m *Memory) Run(runID string) (RunRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	return run, ok
}

// Samples returns a copy of all recorded samples.
func (m *Memory) Samples() []SampleRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]SampleRecord(nil), m.samples...)
}

// Aggregates returns a copy of all recorded aggregates.
func (m *Memory) Aggregates() []AggregateRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]AggregateRecord(nil), m.aggregates...)
}
