package benchmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedConfigID signals an unrecoverable input-shape error when
// parsing a configuration identifier. Not retried.
var ErrMalformedConfigID = errors.New("malformed configuration id")

// ConfigIDParts is the decomposition of a configuration identifier.
type ConfigIDParts struct {
	Runtime      string
	Architecture string
	WorkloadType string
	MemorySizeMB int
}

// BuildConfigID generates the unique identifier of one configuration:
// {runtime}-{architecture}-{workloadType}-{memorySizeMB}, e.g.
// "python3.13-arm64-cpu-intensive-1769".
func BuildConfigID(subject Subject, memoryMB int) string {
	return fmt.Sprintf("%s-%s-%s-%d", subject.Runtime, subject.Architecture, subject.WorkloadType, memoryMB)
}

// ParseConfigID parses a configuration identifier back into its
// components. The memory size is anchored as the last delimited field.
// Workload types may themselves contain the delimiter, so the
// architecture is located as the first component belonging to the
// closed architecture set; everything before it is the runtime and
// everything between it and the memory size is, greedily, the workload
// type.
func ParseConfigID(id string) (ConfigIDParts, error) {
	parts := strings.Split(id, "-")
	if len(parts) < 4 {
		return ConfigIDParts{}, errors.Wrapf(ErrMalformedConfigID, "%q has fewer than four components", id)
	}

	memoryMB, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return ConfigIDParts{}, errors.Wrapf(ErrMalformedConfigID, "%q does not end with a memory size", id)
	}

	archIndex := -1
	for i := 1; i <= len(parts)-3; i++ {
		if KnownArchitecture(parts[i]) {
			archIndex = i
			break
		}
	}
	if archIndex < 0 {
		// No recognizable architecture token; fall back to the fixed
		// positional layout.
		archIndex = 1
	}

	return ConfigIDParts{
		Runtime:      strings.Join(parts[:archIndex], "-"),
		Architecture: parts[archIndex],
		WorkloadType: strings.Join(parts[archIndex+1:len(parts)-1], "-"),
		MemorySizeMB: memoryMB,
	}, nil
}
