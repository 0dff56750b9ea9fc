// Package invoker drives the test subjects: it forces cold starts
// through configuration toggles, invokes functions with tail logs and a
// retry policy, and discovers deployed subjects from their
// CloudFormation stack.
package invoker

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/conf"
)

// StackName represents the CloudFormation stack holding the deployed
// test subjects.
var StackName = conf.NewStringFlag("stack", "CloudFormation stack with the deployed benchmark functions", "LambdaBenchmarkStack")

// sdkMaxAttempts is the SDK-level retry ceiling for ordinary API
// calls. Invocation throttling is additionally handled by the explicit
// backoff loop in Invoke.
const sdkMaxAttempts = 10

// clientTimeout must exceed the longest function timeout so slow
// executions at low memory are not cut off by the HTTP client.
const clientTimeout = 250 * time.Second

// updateWaitTimeout bounds how long a configuration update may take to
// propagate before the cold-start sequence is considered failed.
const updateWaitTimeout = 5 * time.Minute

// LambdaAPI is the narrow Lambda client surface the invoker needs. The
// real *lambda.Client satisfies it; tests supply fakes.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
	UpdateFunctionConfiguration(ctx context.Context, params *lambda.UpdateFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error)
}

// StackAPI is the CloudFormation client surface used for discovery.
type StackAPI interface {
	ListStackResources(ctx context.Context, params *cloudformation.ListStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error)
}

// Invoker executes benchmark invocations against one set of client
// handles. Each worker task constructs its own Invoker; instances are
// never shared across workers.
type Invoker struct {
	api         LambdaAPI
	sleep       func(time.Duration)
	waitTimeout time.Duration
}

// New returns an Invoker on top of the given Lambda client surface.
func New(api LambdaAPI) *Invoker {
	return &Invoker{
		api:         api,
		sleep:       time.Sleep,
		waitTimeout: updateWaitTimeout,
	}
}

// LoadAWSConfig resolves the shared AWS configuration honoring the
// region flag, with a retry ceiling and an HTTP timeout sized for slow
// low-memory executions.
func LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(sdkMaxAttempts),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(clientTimeout)),
	}
	if region := conf.AWSRegion.Value(); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// clampMemory keeps a memory value inside the platform's legal range.
func clampMemory(memoryMB int) int {
	if memoryMB < benchmark.MemoryMinMB {
		return benchmark.MemoryMinMB
	}
	if memoryMB > benchmark.MemoryMaxMB {
		return benchmark.MemoryMaxMB
	}
	return memoryMB
}
