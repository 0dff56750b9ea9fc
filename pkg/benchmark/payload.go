package benchmark

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// WorkloadPayload builds the JSON invocation payload for a workload
// type. The cpu-intensive workload receives its hashing iteration
// count; the memory-intensive workload allocates a fixed buffer inside
// the handler and, like the light workload, takes an empty object.
func WorkloadPayload(workloadType string) ([]byte, error) {
	payload := map[string]interface{}{}
	if workloadType == WorkloadCPUIntensive {
		payload["iterations"] = CPUIntensiveIterations
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshalling payload for workload %q failed", workloadType)
	}
	return body, nil
}
