// Package store persists benchmark results. The canonical backend is a
// DynamoDB table with a composite key; an in-memory implementation
// backs the tests.
package store

import (
	"context"
	"fmt"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/conf"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/stats"
)

// ResultsTable represents the DynamoDB table receiving benchmark
// results.
var ResultsTable = conf.NewStringFlag("table", "DynamoDB table receiving benchmark results", "BenchmarkResults")

// Test run lifecycle states.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Item kinds stored in the results table.
const (
	itemTypeResult  = "result"
	itemTypeSummary = "aggregate"
	itemTypeTestRun = "test-run"
)

// SampleRecord is one raw invocation measurement. Metric fields stay
// nil when the REPORT line was missing or incomplete; nil fields are
// stripped from the stored item.
type SampleRecord struct {
	PK               string   `dynamodbav:"pk" json:"pk"`
	SK               string   `dynamodbav:"sk" json:"sk"`
	ItemType         string   `dynamodbav:"itemType" json:"itemType"`
	TestRunID        string   `dynamodbav:"testRunId" json:"testRunId"`
	Timestamp        int64    `dynamodbav:"timestamp" json:"timestamp"`
	ConfigID         string   `dynamodbav:"configId" json:"configId"`
	Runtime          string   `dynamodbav:"runtime" json:"runtime"`
	Architecture     string   `dynamodbav:"architecture" json:"architecture"`
	WorkloadType     string   `dynamodbav:"workloadType" json:"workloadType"`
	MemorySizeMB     int      `dynamodbav:"memorySizeMB" json:"memorySizeMB"`
	InvocationType   string   `dynamodbav:"invocationType" json:"invocationType"`
	InvocationNumber int      `dynamodbav:"invocationNumber" json:"invocationNumber"`
	DurationMs       *float64 `dynamodbav:"durationMs,omitempty" json:"durationMs,omitempty"`
	BilledDurationMs *int64   `dynamodbav:"billedDurationMs,omitempty" json:"billedDurationMs,omitempty"`
	MaxMemoryUsedMB  *int64   `dynamodbav:"maxMemoryUsedMB,omitempty" json:"maxMemoryUsedMB,omitempty"`
	InitDurationMs   *float64 `dynamodbav:"initDurationMs,omitempty" json:"initDurationMs,omitempty"`
	FunctionName     string   `dynamodbav:"functionName" json:"functionName"`
	FunctionVersion  string   `dynamodbav:"functionVersion" json:"functionVersion"`
	LambdaRequestID  string   `dynamodbav:"lambdaRequestId" json:"lambdaRequestId"`
	Success          bool     `dynamodbav:"success" json:"success"`
}

// AggregateRecord summarizes all samples of one configuration and
// invocation type. Statistics cover only the successful samples; a
// stats block stays nil when no successful sample carried that metric.
type AggregateRecord struct {
	PK                    string         `dynamodbav:"pk" json:"pk"`
	SK                    string         `dynamodbav:"sk" json:"sk"`
	ItemType              string         `dynamodbav:"itemType" json:"itemType"`
	TestRunID             string         `dynamodbav:"testRunId" json:"testRunId"`
	Timestamp             int64          `dynamodbav:"timestamp" json:"timestamp"`
	ConfigID              string         `dynamodbav:"configId" json:"configId"`
	Runtime               string         `dynamodbav:"runtime" json:"runtime"`
	Architecture          string         `dynamodbav:"architecture" json:"architecture"`
	WorkloadType          string         `dynamodbav:"workloadType" json:"workloadType"`
	MemorySizeMB          int            `dynamodbav:"memorySizeMB" json:"memorySizeMB"`
	InvocationType        string         `dynamodbav:"invocationType" json:"invocationType"`
	SampleCount           int            `dynamodbav:"sampleCount" json:"sampleCount"`
	AllSuccessful         bool           `dynamodbav:"allSuccessful" json:"allSuccessful"`
	FailedCount           int            `dynamodbav:"failedCount" json:"failedCount"`
	DurationMsStats       *stats.Summary `dynamodbav:"durationMsStats,omitempty" json:"durationMsStats,omitempty"`
	BilledDurationMsStats *stats.Summary `dynamodbav:"billedDurationMsStats,omitempty" json:"billedDurationMsStats,omitempty"`
	MemoryMBStats         *stats.Summary `dynamodbav:"memoryMBStats,omitempty" json:"memoryMBStats,omitempty"`
	InitDurationMsStats   *stats.Summary `dynamodbav:"initDurationMsStats,omitempty" json:"initDurationMsStats,omitempty"`
}

// RunRecord is the test run header item. It is written once at start
// with an in_progress status and patched to its terminal state at the
// end.
type RunRecord struct {
	PK                  string           `dynamodbav:"pk" json:"pk"`
	SK                  string           `dynamodbav:"sk" json:"sk"`
	ItemType            string           `dynamodbav:"itemType" json:"itemType"`
	TestRunID           string           `dynamodbav:"testRunId" json:"testRunId"`
	Timestamp           int64            `dynamodbav:"timestamp" json:"timestamp"`
	Status              string           `dynamodbav:"status" json:"status"`
	StartTime           int64            `dynamodbav:"startTime" json:"startTime"`
	EndTime             int64            `dynamodbav:"endTime,omitempty" json:"endTime,omitempty"`
	Mode                string           `dynamodbav:"mode" json:"mode"`
	Region              string           `dynamodbav:"region" json:"region"`
	TotalConfigurations int              `dynamodbav:"totalConfigurations" json:"totalConfigurations"`
	TotalInvocations    int              `dynamodbav:"totalInvocations" json:"totalInvocations"`
	ColdStartsPerConfig int              `dynamodbav:"coldStartsPerConfig" json:"coldStartsPerConfig"`
	WarmStartsPerConfig int              `dynamodbav:"warmStartsPerConfig" json:"warmStartsPerConfig"`
	FailedInvocations   int              `dynamodbav:"failedInvocations" json:"failedInvocations"`
	ErrorSummary        string           `dynamodbav:"errorSummary,omitempty" json:"errorSummary,omitempty"`
	Notes               string           `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	TestMatrix          benchmark.Matrix `dynamodbav:"testMatrix" json:"testMatrix"`
}

// RunCompletion patches the run header into its terminal state.
type RunCompletion struct {
	Status            string
	EndTime           int64
	FailedInvocations int
	ErrorSummary      string
}

// Store receives benchmark results as they are produced. Samples are
// persisted immediately after measurement so an aborted run keeps
// everything recorded up to the abort.
type Store interface {
	CreateTestRun(ctx context.Context, run RunRecord) error
	PutSample(ctx context.Context, sample SampleRecord) error
	PutAggregate(ctx context.Context, aggregate AggregateRecord) error
	CompleteTestRun(ctx context.Context, runID string, completion RunCompletion) error
}

// RunKey is the partition and sort key of a test run header item.
func RunKey(runID string) string {
	return "TESTRUN#" + runID
}

// SamplePK groups all samples of one configuration within a run.
func SamplePK(runID, configID string) string {
	return runID + "#" + configID
}

// SampleSK orders samples by invocation type and sequence number.
func SampleSK(invocationType benchmark.InvocationType, invocationNumber int) string {
	return fmt.Sprintf("%s#%d", invocationType, invocationNumber)
}

// AggregateSK keys one aggregate under its run header partition.
func AggregateSK(configID string, invocationType benchmark.InvocationType) string {
	return fmt.Sprintf("AGGREGATE#%s#%s", configID, invocationType)
}
