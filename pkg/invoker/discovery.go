package invoker

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
)

const lambdaResourceType = "AWS::Lambda::Function"

// Discover lists the Lambda functions of the given CloudFormation
// stack and resolves each into a benchmark subject. Functions whose
// name does not contain nameFilter are skipped; an empty filter keeps
// everything. Subjects come back sorted by function name.
func Discover(ctx context.Context, stacks StackAPI, lambdas LambdaAPI, stackName, nameFilter string) ([]benchmark.Subject, error) {
	names := map[string]struct{}{}
	var nextToken *string
	for {
		out, err := stacks.ListStackResources(ctx, &cloudformation.ListStackResourcesInput{
			StackName: aws.String(stackName),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "listing resources of stack %q failed", stackName)
		}
		for _, summary := range out.StackResourceSummaries {
			if aws.ToString(summary.ResourceType) != lambdaResourceType {
				continue
			}
			names[aws.ToString(summary.PhysicalResourceId)] = struct{}{}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var subjects []benchmark.Subject
	for _, name := range sorted {
		if nameFilter != "" && !strings.Contains(name, nameFilter) {
			continue
		}

		runtime, architecture, workloadType, err := benchmark.ParseFunctionName(name)
		if err != nil {
			logrus.Warnf("Skipping function %q: %v", name, err)
			continue
		}

		cfg, err := lambdas.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
			FunctionName: aws.String(name),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "reading configuration of function %q failed", name)
		}

		subjects = append(subjects, benchmark.Subject{
			Name:            name,
			Runtime:         runtime,
			Architecture:    architecture,
			WorkloadType:    workloadType,
			CurrentMemoryMB: int(aws.ToInt32(cfg.MemorySize)),
			TimeoutSeconds:  int(aws.ToInt32(cfg.Timeout)),
			Version:         aws.ToString(cfg.Version),
		})
	}

	return subjects, nil
}
