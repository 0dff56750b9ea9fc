package invoker

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/report"
)

// Sample is the outcome of a single benchmark invocation.
type Sample struct {
	// Success reflects the success field reported by the function's
	// own response payload. A function error always yields false.
	Success bool

	// FunctionError carries the Lambda function error kind (handled or
	// unhandled) when the execution failed inside the function.
	FunctionError string

	// RequestID identifies the execution, taken from the tail log
	// REPORT line, falling back to the id echoed in the response
	// payload. "unknown" when neither is available.
	RequestID string

	StatusCode int32

	// Metrics holds whatever the REPORT line carried. Empty when the
	// function errored or the tail log could not be parsed.
	Metrics report.Metrics
}

// Invoke performs a single synchronous invocation of the subject with
// its workload payload and tail logs enabled. Throttling and transient
// service errors are retried with exponential backoff; other errors
// propagate unmodified so the caller can classify them.
func (i *Invoker) Invoke(ctx context.Context, subject benchmark.Subject) (Sample, error) {
	payload, err := benchmark.WorkloadPayload(subject.WorkloadType)
	if err != nil {
		return Sample{}, err
	}

	out, err := i.invokeWithRetry(ctx, subject.Name, payload)
	if err != nil {
		return Sample{}, err
	}

	sample := Sample{
		RequestID:  "unknown",
		StatusCode: out.StatusCode,
	}

	if out.FunctionError != nil {
		sample.FunctionError = aws.ToString(out.FunctionError)
		logrus.Warnf("Function %q returned an error (%s): %s",
			subject.Name, sample.FunctionError, truncate(string(out.Payload), 256))
		return sample, nil
	}

	var response struct {
		Success   bool   `json:"success"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(out.Payload, &response); err != nil {
		return Sample{}, errors.Wrapf(err, "decoding response payload of function %q failed", subject.Name)
	}
	sample.Success = response.Success

	metrics, err := report.ParseBase64(aws.ToString(out.LogResult))
	if err != nil {
		logrus.Warnf("Could not parse tail log of function %q: %v", subject.Name, err)
	} else {
		sample.Metrics = metrics
	}
	// The platform REPORT line is authoritative; the id echoed in the
	// function's own response fills in when the tail log is unusable.
	switch {
	case sample.Metrics.RequestID != "":
		sample.RequestID = sample.Metrics.RequestID
	case response.RequestID != "":
		sample.RequestID = response.RequestID
	}

	return sample, nil
}

func (i *Invoker) invokeWithRetry(ctx context.Context, functionName string, payload []byte) (*lambda.InvokeOutput, error) {
	backoff := benchmark.InvokeBackoffBase
	for attempt := 1; ; attempt++ {
		out, err := i.api.Invoke(ctx, &lambda.InvokeInput{
			FunctionName:   aws.String(functionName),
			InvocationType: types.InvocationTypeRequestResponse,
			LogType:        types.LogTypeTail,
			Payload:        payload,
		})
		if err == nil {
			return out, nil
		}
		if attempt >= benchmark.InvokeMaxAttempts || !retryable(err) {
			return nil, err
		}

		logrus.Warnf("Invocation of %q failed with a retryable error, backing off %s (attempt %d of %d): %v",
			functionName, backoff, attempt, benchmark.InvokeMaxAttempts, err)
		i.sleep(backoff)
		backoff *= 2
	}
}

// retryable reports whether the invocation error is throttling or a
// transient service fault worth another attempt.
func retryable(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "TooManyRequestsException", "ServiceException":
		return true
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
