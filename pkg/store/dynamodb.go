package store

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
)

// DynamoAPI is the client surface the DynamoDB store needs. The real
// *dynamodb.Client satisfies it; tests supply fakes.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDB stores benchmark results in a single DynamoDB table.
type DynamoDB struct {
	api   DynamoAPI
	table string
}

// NewDynamoDB returns a store writing into the given table.
func NewDynamoDB(api DynamoAPI, table string) *DynamoDB {
	return &DynamoDB{api: api, table: table}
}

func (d *DynamoDB) putItem(ctx context.Context, record interface{}, kind string) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s item failed", kind)
	}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	return errors.Wrapf(err, "storing %s item failed", kind)
}

// CreateTestRun writes the run header item.
func (d *DynamoDB) CreateTestRun(ctx context.Context, run RunRecord) error {
	run.PK = RunKey(run.TestRunID)
	run.SK = RunKey(run.TestRunID)
	run.ItemType = itemTypeTestRun
	return d.putItem(ctx, run, itemTypeTestRun)
}

// PutSample writes one raw invocation measurement.
func (d *DynamoDB) PutSample(ctx context.Context, sample SampleRecord) error {
	sample.ItemType = itemTypeResult
	return d.putItem(ctx, sample, itemTypeResult)
}

// PutAggregate writes one per-configuration statistics item.
func (d *DynamoDB) PutAggregate(ctx context.Context, aggregate AggregateRecord) error {
	aggregate.ItemType = itemTypeSummary
	return d.putItem(ctx, aggregate, itemTypeSummary)
}

// CompleteTestRun patches the run header with its terminal status.
// status is a reserved word in DynamoDB update expressions, hence the
// name alias.
func (d *DynamoDB) CompleteTestRun(ctx context.Context, runID string, completion RunCompletion) error {
	update := "SET #status = :status, endTime = :endTime, failedInvocations = :failedInvocations"
	values := map[string]ddbtypes.AttributeValue{
		":status":            &ddbtypes.AttributeValueMemberS{Value: completion.Status},
		":endTime":           &ddbtypes.AttributeValueMemberN{Value: formatInt(completion.EndTime)},
		":failedInvocations": &ddbtypes.AttributeValueMemberN{Value: formatInt(int64(completion.FailedInvocations))},
	}
	if completion.ErrorSummary != "" {
		update += ", errorSummary = :errorSummary"
		values[":errorSummary"] = &ddbtypes.AttributeValueMemberS{Value: completion.ErrorSummary}
	}

	_, err := d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.table),
		Key: map[string]ddbtypes.AttributeValue{
			"pk": &ddbtypes.AttributeValueMemberS{Value: RunKey(runID)},
			"sk": &ddbtypes.AttributeValueMemberS{Value: RunKey(runID)},
		},
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	return errors.Wrapf(err, "updating test run %q status failed", runID)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
