// Package benchmark holds the domain model of the Lambda benchmark:
// test subjects, configuration identities, memory plans, workload
// payloads and the run configuration.
package benchmark

import "time"

// Lambda platform memory limits and the toggle delta used to force cold
// starts through configuration updates.
const (
	MemoryMinMB    = 128
	MemoryMaxMB    = 10240
	MemoryToggleMB = 64
)

// StabilizationDelay is the wait after a configuration update has been
// confirmed, giving the platform time to tear the execution environment
// down.
const StabilizationDelay = 50 * time.Millisecond

// Invocation retry policy for throttled or transiently failing calls.
const (
	InvokeMaxAttempts = 3
	InvokeBackoffBase = 1 * time.Second
)

// CPUIntensiveIterations is the hashing iteration count sent to the
// cpu-intensive workload.
const CPUIntensiveIterations = 500000

// Workload types of the deployed test subjects.
const (
	WorkloadCPUIntensive    = "cpu-intensive"
	WorkloadMemoryIntensive = "memory-intensive"
	WorkloadLight           = "light"
)

// Closed set of supported CPU architectures.
const (
	ArchARM64 = "arm64"
	ArchX86   = "x86"
)

// KnownArchitecture reports whether s names a supported architecture.
func KnownArchitecture(s string) bool {
	return s == ArchARM64 || s == ArchX86
}

// InvocationType distinguishes cold from warm samples.
type InvocationType string

// The two invocation types of the benchmark.
const (
	Cold InvocationType = "cold"
	Warm InvocationType = "warm"
)

// memoryPlans lists the memory sizes tested per workload type (MB).
// Powers of 2 plus 1769 MB (the 1 vCPU sweet spot). cpu-intensive and
// light stop at 2048 MB to verify the plateau; memory-intensive tests
// the full range for bandwidth and allocation effects.
var memoryPlans = map[string][]int{
	WorkloadCPUIntensive:    {128, 256, 512, 1024, 1769, 2048},
	WorkloadMemoryIntensive: {128, 256, 512, 1024, 1769, 2048, 4096, 8192, 10240},
	WorkloadLight:           {128, 256, 512, 1024, 1769, 2048},
}

// MemorySizesFor returns the memory configurations to test for the
// given workload type, restricted to the filter when one is given.
// Unknown workload types fall back to the single 1769 MB size.
func MemorySizesFor(workloadType string, filter []int) []int {
	plan, ok := memoryPlans[workloadType]
	if !ok {
		plan = []int{1769}
	}

	if len(filter) == 0 {
		return plan
	}

	wanted := map[int]bool{}
	for _, m := range filter {
		wanted[m] = true
	}

	var sizes []int
	for _, m := range plan {
		if wanted[m] {
			sizes = append(sizes, m)
		}
	}
	return sizes
}
