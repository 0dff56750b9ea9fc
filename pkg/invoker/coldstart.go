package invoker

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
)

// ForceColdStart guarantees the next invocation of the function is a
// cold start by forcing a configuration change. When the function
// already sits at the target memory size it is first toggled away by
// 64 MB (downwards at the platform maximum) and then set back, so the
// final configuration always equals targetMB.
func (i *Invoker) ForceColdStart(ctx context.Context, functionName string, targetMB int) error {
	current, err := i.api.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		return errors.Wrapf(err, "reading configuration of function %q failed", functionName)
	}

	if int(aws.ToInt32(current.MemorySize)) == targetMB {
		toggleMB := targetMB + benchmark.MemoryToggleMB
		if targetMB >= benchmark.MemoryMaxMB {
			toggleMB = targetMB - benchmark.MemoryToggleMB
		}
		toggleMB = clampMemory(toggleMB)

		logrus.Debugf("Toggling %q to %d MB to force a cold start", functionName, toggleMB)
		if err := i.setMemory(ctx, functionName, toggleMB); err != nil {
			return err
		}
	}

	return i.setMemory(ctx, functionName, targetMB)
}

// setMemory applies a memory size and waits until the update has
// propagated. A short stabilization pause follows the waiter because
// the update status can flip to successful slightly before all
// execution environments have been recycled.
func (i *Invoker) setMemory(ctx context.Context, functionName string, memoryMB int) error {
	_, err := i.api.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(functionName),
		MemorySize:   aws.Int32(int32(memoryMB)),
	})
	if err != nil {
		return errors.Wrapf(err, "updating function %q to %d MB failed", functionName, memoryMB)
	}

	waiter := lambda.NewFunctionUpdatedWaiter(i.api)
	err = waiter.Wait(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(functionName),
	}, i.waitTimeout)
	if err != nil {
		return errors.Wrapf(err, "waiting for function %q to settle at %d MB failed", functionName, memoryMB)
	}

	i.sleep(benchmark.StabilizationDelay)

	return nil
}
