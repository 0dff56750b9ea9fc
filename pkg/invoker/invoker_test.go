package invoker

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
)

type invokeResult struct {
	out *lambda.InvokeOutput
	err error
}

type fakeLambda struct {
	memoryMB int32
	updates  []int32

	invokeResults []invokeResult
	invokeCalls   int
}

func (f *fakeLambda) GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error) {
	return &lambda.GetFunctionConfigurationOutput{
		FunctionName:     params.FunctionName,
		MemorySize:       aws.Int32(f.memoryMB),
		Timeout:          aws.Int32(60),
		Version:          aws.String("1"),
		LastUpdateStatus: types.LastUpdateStatusSuccessful,
		State:            types.StateActive,
	}, nil
}

func (f *fakeLambda) UpdateFunctionConfiguration(ctx context.Context, params *lambda.UpdateFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.memoryMB = aws.ToInt32(params.MemorySize)
	f.updates = append(f.updates, f.memoryMB)
	return &lambda.UpdateFunctionConfigurationOutput{MemorySize: params.MemorySize}, nil
}

func (f *fakeLambda) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	result := f.invokeResults[f.invokeCalls]
	f.invokeCalls++
	return result.out, result.err
}

func newTestInvoker(api LambdaAPI) (*Invoker, *[]time.Duration) {
	slept := &[]time.Duration{}
	invoker := New(api)
	invoker.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return invoker, slept
}

func TestForceColdStart(t *testing.T) {
	Convey("While forcing cold starts", t, func() {
		Convey("When the function already runs at another memory size", func() {
			fake := &fakeLambda{memoryMB: 256}
			invoker, _ := newTestInvoker(fake)

			err := invoker.ForceColdStart(context.Background(), "fn", 512)

			Convey("A single update to the target should be applied", func() {
				So(err, ShouldBeNil)
				So(fake.updates, ShouldResemble, []int32{512})
			})
		})

		Convey("When the function already sits at the target memory size", func() {
			fake := &fakeLambda{memoryMB: 512}
			invoker, _ := newTestInvoker(fake)

			err := invoker.ForceColdStart(context.Background(), "fn", 512)

			Convey("It should be toggled 64 MB up and then set back", func() {
				So(err, ShouldBeNil)
				So(fake.updates, ShouldResemble, []int32{576, 512})
			})
		})

		Convey("When the target is the platform maximum", func() {
			fake := &fakeLambda{memoryMB: benchmark.MemoryMaxMB}
			invoker, _ := newTestInvoker(fake)

			err := invoker.ForceColdStart(context.Background(), "fn", benchmark.MemoryMaxMB)

			Convey("The toggle should go downwards instead", func() {
				So(err, ShouldBeNil)
				So(fake.updates, ShouldResemble, []int32{benchmark.MemoryMaxMB - benchmark.MemoryToggleMB, benchmark.MemoryMaxMB})
			})
		})

		Convey("Every applied update should be followed by a stabilization pause", func() {
			fake := &fakeLambda{memoryMB: 512}
			invoker, slept := newTestInvoker(fake)

			So(invoker.ForceColdStart(context.Background(), "fn", 512), ShouldBeNil)
			So(*slept, ShouldResemble, []time.Duration{benchmark.StabilizationDelay, benchmark.StabilizationDelay})
		})
	})
}

func successfulInvoke(payload, logText string) invokeResult {
	return invokeResult{out: &lambda.InvokeOutput{
		StatusCode: 200,
		Payload:    []byte(payload),
		LogResult:  aws.String(base64.StdEncoding.EncodeToString([]byte(logText))),
	}}
}

func TestInvoke(t *testing.T) {
	subject := benchmark.Subject{
		Name:         "python3.13-arm64-cpu-intensive",
		Runtime:      "python3.13",
		Architecture: benchmark.ArchARM64,
		WorkloadType: benchmark.WorkloadCPUIntensive,
	}
	logText := "START RequestId: abc-123\n" +
		"REPORT RequestId: abc-123\tDuration: 101.50 ms\tBilled Duration: 102 ms\t" +
		"Memory Size: 128 MB\tMax Memory Used: 39 MB\tInit Duration: 250.00 ms\n"

	Convey("While invoking a benchmark subject", t, func() {
		Convey("A successful invocation should carry the parsed REPORT metrics", func() {
			fake := &fakeLambda{invokeResults: []invokeResult{successfulInvoke(`{"success": true}`, logText)}}
			invoker, _ := newTestInvoker(fake)

			sample, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldBeNil)
			So(sample.Success, ShouldBeTrue)
			So(sample.RequestID, ShouldEqual, "abc-123")
			So(*sample.Metrics.DurationMs, ShouldEqual, 101.50)
			So(*sample.Metrics.InitDurationMs, ShouldEqual, 250.00)
		})

		Convey("A missing REPORT line should fall back to the echoed request id", func() {
			fake := &fakeLambda{invokeResults: []invokeResult{
				successfulInvoke(`{"success": true, "requestId": "echo-456"}`, "START RequestId: echo-456\n"),
			}}
			invoker, _ := newTestInvoker(fake)

			sample, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldBeNil)
			So(sample.Success, ShouldBeTrue)
			So(sample.Metrics.Empty(), ShouldBeTrue)
			So(sample.RequestID, ShouldEqual, "echo-456")
		})

		Convey("Without either id source the sample stays unknown", func() {
			fake := &fakeLambda{invokeResults: []invokeResult{
				successfulInvoke(`{"success": true}`, ""),
			}}
			invoker, _ := newTestInvoker(fake)

			sample, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldBeNil)
			So(sample.RequestID, ShouldEqual, "unknown")
		})

		Convey("A function error should yield an unsuccessful sample without metrics", func() {
			fake := &fakeLambda{invokeResults: []invokeResult{{out: &lambda.InvokeOutput{
				StatusCode:    200,
				FunctionError: aws.String("Unhandled"),
				Payload:       []byte(`{"errorMessage": "boom"}`),
			}}}}
			invoker, _ := newTestInvoker(fake)

			sample, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldBeNil)
			So(sample.Success, ShouldBeFalse)
			So(sample.FunctionError, ShouldEqual, "Unhandled")
			So(sample.Metrics.Empty(), ShouldBeTrue)
			So(sample.RequestID, ShouldEqual, "unknown")
		})

		Convey("Throttling should be retried with doubling backoff", func() {
			throttled := invokeResult{err: &types.TooManyRequestsException{Message: aws.String("rate exceeded")}}
			fake := &fakeLambda{invokeResults: []invokeResult{
				throttled,
				throttled,
				successfulInvoke(`{"success": true}`, logText),
			}}
			invoker, slept := newTestInvoker(fake)

			sample, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldBeNil)
			So(sample.Success, ShouldBeTrue)
			So(fake.invokeCalls, ShouldEqual, 3)
			So(*slept, ShouldResemble, []time.Duration{
				benchmark.InvokeBackoffBase,
				2 * benchmark.InvokeBackoffBase,
			})
		})

		Convey("Persistent throttling should fail after the attempt budget", func() {
			throttled := invokeResult{err: &types.TooManyRequestsException{Message: aws.String("rate exceeded")}}
			fake := &fakeLambda{invokeResults: []invokeResult{throttled, throttled, throttled}}
			invoker, _ := newTestInvoker(fake)

			_, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldNotBeNil)
			So(fake.invokeCalls, ShouldEqual, benchmark.InvokeMaxAttempts)
		})

		Convey("Transient service errors should also be retried", func() {
			fake := &fakeLambda{invokeResults: []invokeResult{
				{err: &smithy.GenericAPIError{Code: "ServiceException", Message: "internal"}},
				successfulInvoke(`{"success": true}`, logText),
			}}
			invoker, _ := newTestInvoker(fake)

			_, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldBeNil)
			So(fake.invokeCalls, ShouldEqual, 2)
		})

		Convey("Other errors should propagate without retries", func() {
			denied := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}
			fake := &fakeLambda{invokeResults: []invokeResult{{err: denied}}}
			invoker, _ := newTestInvoker(fake)

			_, err := invoker.Invoke(context.Background(), subject)

			So(err, ShouldEqual, denied)
			So(fake.invokeCalls, ShouldEqual, 1)
		})
	})
}

type fakeStacks struct {
	pages []*cloudformation.ListStackResourcesOutput
	calls int
}

func (f *fakeStacks) ListStackResources(ctx context.Context, params *cloudformation.ListStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error) {
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func functionResource(name string) cfntypes.StackResourceSummary {
	return cfntypes.StackResourceSummary{
		ResourceType:       aws.String(lambdaResourceType),
		PhysicalResourceId: aws.String(name),
	}
}

func TestDiscover(t *testing.T) {
	Convey("While discovering benchmark subjects from a stack", t, func() {
		stacks := &fakeStacks{pages: []*cloudformation.ListStackResourcesOutput{
			{
				StackResourceSummaries: []cfntypes.StackResourceSummary{
					functionResource("nodejs22-x86-light"),
					{
						ResourceType:       aws.String("AWS::DynamoDB::Table"),
						PhysicalResourceId: aws.String("BenchmarkResults"),
					},
				},
				NextToken: aws.String("page2"),
			},
			{
				StackResourceSummaries: []cfntypes.StackResourceSummary{
					functionResource("python3-13-arm64-cpu-intensive"),
					functionResource("BenchmarkHelperFunction"),
				},
			},
		}}
		lambdas := &fakeLambda{memoryMB: 128}

		Convey("All pages should be walked and non-subject resources skipped", func() {
			subjects, err := Discover(context.Background(), stacks, lambdas, "stack", "")

			So(err, ShouldBeNil)
			So(stacks.calls, ShouldEqual, 2)
			So(len(subjects), ShouldEqual, 2)
			So(subjects[0].Name, ShouldEqual, "nodejs22-x86-light")
			So(subjects[0].Runtime, ShouldEqual, "nodejs22")
			So(subjects[0].Architecture, ShouldEqual, benchmark.ArchX86)
			So(subjects[0].CurrentMemoryMB, ShouldEqual, 128)
			So(subjects[1].Name, ShouldEqual, "python3-13-arm64-cpu-intensive")
			So(subjects[1].WorkloadType, ShouldEqual, benchmark.WorkloadCPUIntensive)
		})

		Convey("The name filter should restrict the result", func() {
			subjects, err := Discover(context.Background(), stacks, lambdas, "stack", "arm64")

			So(err, ShouldBeNil)
			So(len(subjects), ShouldEqual, 1)
			So(subjects[0].Name, ShouldEqual, "python3-13-arm64-cpu-intensive")
		})
	})
}
