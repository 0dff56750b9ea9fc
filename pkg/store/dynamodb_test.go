package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/stats"
)

type fakeDynamo struct {
	items   []map[string]ddbtypes.AttributeValue
	updates []*dynamodb.UpdateItemInput
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

func stringAttr(item map[string]ddbtypes.AttributeValue, name string) string {
	attr, ok := item[name].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return attr.Value
}

func TestDynamoDBStore(t *testing.T) {
	Convey("While storing benchmark results in DynamoDB", t, func() {
		fake := &fakeDynamo{}
		db := NewDynamoDB(fake, "BenchmarkResults")

		Convey("A sample should be keyed by run, configuration and sequence", func() {
			duration := 123.456
			err := db.PutSample(context.Background(), SampleRecord{
				PK:               SamplePK("run-1", "python3.13-arm64-cpu-intensive-128"),
				SK:               SampleSK(benchmark.Cold, 3),
				TestRunID:        "run-1",
				ConfigID:         "python3.13-arm64-cpu-intensive-128",
				InvocationType:   string(benchmark.Cold),
				InvocationNumber: 3,
				DurationMs:       &duration,
				Success:          true,
			})

			So(err, ShouldBeNil)
			So(len(fake.items), ShouldEqual, 1)
			item := fake.items[0]
			So(stringAttr(item, "pk"), ShouldEqual, "run-1#python3.13-arm64-cpu-intensive-128")
			So(stringAttr(item, "sk"), ShouldEqual, "cold#3")
			So(stringAttr(item, "itemType"), ShouldEqual, "result")
		})

		Convey("A sample without metrics should not store nil metric fields", func() {
			err := db.PutSample(context.Background(), SampleRecord{
				PK: SamplePK("run-1", "cfg"),
				SK: SampleSK(benchmark.Warm, 1),
			})

			So(err, ShouldBeNil)
			item := fake.items[0]
			So(item, ShouldNotContainKey, "durationMs")
			So(item, ShouldNotContainKey, "initDurationMs")
			So(item, ShouldContainKey, "success")
		})

		Convey("An aggregate should nest its statistics blocks", func() {
			err := db.PutAggregate(context.Background(), AggregateRecord{
				PK:              RunKey("run-1"),
				SK:              AggregateSK("rust-x86-light-512", benchmark.Warm),
				TestRunID:       "run-1",
				SampleCount:     20,
				AllSuccessful:   true,
				DurationMsStats: &stats.Summary{Mean: 12.34, SampleCount: 20},
			})

			So(err, ShouldBeNil)
			item := fake.items[0]
			So(stringAttr(item, "pk"), ShouldEqual, "TESTRUN#run-1")
			So(stringAttr(item, "sk"), ShouldEqual, "AGGREGATE#rust-x86-light-512#warm")
			So(stringAttr(item, "itemType"), ShouldEqual, "aggregate")
			So(item, ShouldContainKey, "durationMsStats")
			So(item, ShouldNotContainKey, "initDurationMsStats")
		})

		Convey("The run header should use the TESTRUN key for both pk and sk", func() {
			err := db.CreateTestRun(context.Background(), RunRecord{
				TestRunID: "run-1",
				Status:    StatusInProgress,
				Mode:      "test",
			})

			So(err, ShouldBeNil)
			item := fake.items[0]
			So(stringAttr(item, "pk"), ShouldEqual, "TESTRUN#run-1")
			So(stringAttr(item, "sk"), ShouldEqual, "TESTRUN#run-1")
			So(stringAttr(item, "itemType"), ShouldEqual, "test-run")
			So(stringAttr(item, "status"), ShouldEqual, "in_progress")
		})

		Convey("Completing a run should alias the reserved status attribute", func() {
			err := db.CompleteTestRun(context.Background(), "run-1", RunCompletion{
				Status:            StatusCompleted,
				EndTime:           1700000000000,
				FailedInvocations: 2,
			})

			So(err, ShouldBeNil)
			So(len(fake.updates), ShouldEqual, 1)
			update := fake.updates[0]
			So(aws.ToString(update.TableName), ShouldEqual, "BenchmarkResults")
			So(stringAttr(update.Key, "pk"), ShouldEqual, "TESTRUN#run-1")
			So(update.ExpressionAttributeNames["#status"], ShouldEqual, "status")
			So(aws.ToString(update.UpdateExpression), ShouldNotContainSubstring, "errorSummary")
		})

		Convey("A failed run should carry its error summary", func() {
			err := db.CompleteTestRun(context.Background(), "run-1", RunCompletion{
				Status:       StatusFailed,
				EndTime:      1700000000000,
				ErrorSummary: "aborted by user",
			})

			So(err, ShouldBeNil)
			update := fake.updates[0]
			So(aws.ToString(update.UpdateExpression), ShouldContainSubstring, "errorSummary = :errorSummary")
			summary := update.ExpressionAttributeValues[":errorSummary"].(*ddbtypes.AttributeValueMemberS)
			So(summary.Value, ShouldEqual, "aborted by user")
		})
	})
}
