package runner

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/invoker"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/stats"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/store"
)

// benchmarkSubject sweeps one subject through all its memory sizes. A
// failed configuration is recorded and the sweep moves on to the next
// size, so one bad memory setting does not void the whole subject.
func (r *Runner) benchmarkSubject(ctx context.Context, subject benchmark.Subject, runID string, progress *progressTracker) {
	memorySizes := benchmark.MemorySizesFor(subject.WorkloadType, r.config.MemorySizeFilter)

	var result sweepResult
	defer func() { progress.record(result) }()

	clients, err := r.clients()
	if err != nil {
		logrus.Errorf("Task failed for %s: %v", subject.Name, err)
		for range memorySizes {
			result.fail(err)
		}
		return
	}

	for _, memoryMB := range memorySizes {
		err := r.benchmarkConfiguration(ctx, clients, subject, memoryMB, runID)
		if err != nil {
			logrus.Errorf("  %s @ %dMB - ERROR: %v", subject.Name, memoryMB, err)
			result.fail(err)
			continue
		}
		result.succeed()
	}
}

// benchmarkConfiguration measures one subject at one memory size: the
// cold sample loop with a forced cold start before every sample, then
// the warm loop against the now warm environment. Every sample is
// persisted immediately after measurement.
func (r *Runner) benchmarkConfiguration(ctx context.Context, clients Clients, subject benchmark.Subject, memoryMB int, runID string) error {
	configID := benchmark.BuildConfigID(subject, memoryMB)
	logrus.Infof("  %s @ %dMB - starting", subject.Name, memoryMB)

	if err := clients.Invoker.ForceColdStart(ctx, subject.Name, memoryMB); err != nil {
		return err
	}

	var coldSamples []invoker.Sample
	for i := 1; i <= r.config.ColdStartsPerConfig; i++ {
		sample, err := clients.Invoker.Invoke(ctx, subject)
		if err != nil {
			return err
		}
		coldSamples = append(coldSamples, sample)

		record := r.sampleRecord(runID, configID, subject, memoryMB, benchmark.Cold, i, sample)
		if err := clients.Store.PutSample(ctx, record); err != nil {
			return err
		}

		if i < r.config.ColdStartsPerConfig {
			if err := clients.Invoker.ForceColdStart(ctx, subject.Name, memoryMB); err != nil {
				return err
			}
		}
	}
	aggregate := r.aggregateRecord(runID, configID, subject, memoryMB, benchmark.Cold, coldSamples)
	if err := clients.Store.PutAggregate(ctx, aggregate); err != nil {
		return err
	}

	var warmSamples []invoker.Sample
	for i := 1; i <= r.config.WarmStartsPerConfig; i++ {
		sample, err := clients.Invoker.Invoke(ctx, subject)
		if err != nil {
			return err
		}
		warmSamples = append(warmSamples, sample)

		record := r.sampleRecord(runID, configID, subject, memoryMB, benchmark.Warm, i, sample)
		if err := clients.Store.PutSample(ctx, record); err != nil {
			return err
		}
	}
	aggregate = r.aggregateRecord(runID, configID, subject, memoryMB, benchmark.Warm, warmSamples)
	if err := clients.Store.PutAggregate(ctx, aggregate); err != nil {
		return err
	}

	logrus.Infof("  %s @ %dMB - complete", subject.Name, memoryMB)
	return nil
}

func (r *Runner) sampleRecord(runID, configID string, subject benchmark.Subject, memoryMB int, invocationType benchmark.InvocationType, invocationNumber int, sample invoker.Sample) store.SampleRecord {
	record := store.SampleRecord{
		PK:               store.SamplePK(runID, configID),
		SK:               store.SampleSK(invocationType, invocationNumber),
		TestRunID:        runID,
		Timestamp:        r.now().UnixMilli(),
		ConfigID:         configID,
		Runtime:          subject.Runtime,
		Architecture:     subject.Architecture,
		WorkloadType:     subject.WorkloadType,
		MemorySizeMB:     memoryMB,
		InvocationType:   string(invocationType),
		InvocationNumber: invocationNumber,
		DurationMs:       sample.Metrics.DurationMs,
		BilledDurationMs: sample.Metrics.BilledDurationMs,
		MaxMemoryUsedMB:  sample.Metrics.MemoryUsedMB,
		FunctionName:     subject.Name,
		FunctionVersion:  subject.Version,
		LambdaRequestID:  sample.RequestID,
		Success:          sample.Success,
	}

	// The platform only reports init duration on cold starts.
	if invocationType == benchmark.Cold {
		record.InitDurationMs = sample.Metrics.InitDurationMs
	}

	return record
}

func (r *Runner) aggregateRecord(runID, configID string, subject benchmark.Subject, memoryMB int, invocationType benchmark.InvocationType, samples []invoker.Sample) store.AggregateRecord {
	var successful []invoker.Sample
	for _, sample := range samples {
		if sample.Success {
			successful = append(successful, sample)
		}
	}
	failedCount := len(samples) - len(successful)

	var durations, billed, memory, inits []float64
	for _, sample := range successful {
		if sample.Metrics.DurationMs != nil {
			durations = append(durations, *sample.Metrics.DurationMs)
		}
		if sample.Metrics.BilledDurationMs != nil {
			billed = append(billed, float64(*sample.Metrics.BilledDurationMs))
		}
		if sample.Metrics.MemoryUsedMB != nil {
			memory = append(memory, float64(*sample.Metrics.MemoryUsedMB))
		}
		if sample.Metrics.InitDurationMs != nil {
			inits = append(inits, *sample.Metrics.InitDurationMs)
		}
	}

	record := store.AggregateRecord{
		PK:                    store.RunKey(runID),
		SK:                    store.AggregateSK(configID, invocationType),
		TestRunID:             runID,
		Timestamp:             r.now().UnixMilli(),
		ConfigID:              configID,
		Runtime:               subject.Runtime,
		Architecture:          subject.Architecture,
		WorkloadType:          subject.WorkloadType,
		MemorySizeMB:          memoryMB,
		InvocationType:        string(invocationType),
		SampleCount:           len(successful),
		AllSuccessful:         failedCount == 0,
		FailedCount:           failedCount,
		DurationMsStats:       summarize(durations),
		BilledDurationMsStats: summarize(billed),
		MemoryMBStats:         summarize(memory),
	}

	if invocationType == benchmark.Cold {
		record.InitDurationMsStats = summarize(inits)
	}

	return record
}

func summarize(values []float64) *stats.Summary {
	if len(values) == 0 {
		return nil
	}
	summary := stats.Summarize(values, true)
	return &summary
}
