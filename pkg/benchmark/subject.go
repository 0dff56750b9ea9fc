package benchmark

import (
	"strings"

	"github.com/pkg/errors"
)

// Subject identifies one deployed, invocable Lambda function. Discovered
// once per run; immutable for the run's duration except for the live
// memory setting, which only the cold-start controller may change and
// only from a single worker at a time.
type Subject struct {
	Name            string
	Runtime         string
	Architecture    string
	WorkloadType    string
	CurrentMemoryMB int
	TimeoutSeconds  int
	Version         string
}

// ParseFunctionName extracts runtime, architecture and workload type
// from a deployed function name. Two naming patterns are supported:
//
//	python{major}-{minor}-{arch}-{workload}  e.g. python3-13-arm64-cpu-intensive
//	{runtime}-{arch}-{workload}              e.g. nodejs22-arm64-light, rust-x86-cpu-intensive
//
// Python runtimes have their version dots restored (python3-13 becomes
// python3.13).
func ParseFunctionName(name string) (runtime, architecture, workloadType string, err error) {
	parts := strings.Split(name, "-")

	if strings.HasPrefix(name, "python") {
		if len(parts) < 4 {
			return "", "", "", errors.Errorf("function name %q does not match the python naming pattern", name)
		}
		runtime = parts[0] + "." + parts[1]
		architecture = parts[2]
		workloadType = strings.Join(parts[3:], "-")
	} else {
		if len(parts) < 3 {
			return "", "", "", errors.Errorf("function name %q does not match the expected naming pattern", name)
		}
		runtime = parts[0]
		architecture = parts[1]
		workloadType = strings.Join(parts[2:], "-")
	}

	if !KnownArchitecture(architecture) {
		return "", "", "", errors.Errorf("function name %q carries unknown architecture %q", name, architecture)
	}

	return runtime, architecture, workloadType, nil
}
