package visualization

import (
	"strconv"
	"strings"

	"github.com/cebert/aws-lambda-performance-benchmarks/pkg/benchmark"
)

// MatrixTable lays out the test matrix with one row per
// (runtime, architecture, workload) combination.
func MatrixTable(matrix benchmark.Matrix) *Table {
	headers := []string{"runtime", "architecture", "workload", "memory sizes [MB]"}

	data := make([][]string, 0, len(matrix.Configurations))
	for _, configuration := range matrix.Configurations {
		data = append(data, []string{
			configuration.Runtime,
			configuration.Architecture,
			configuration.WorkloadType,
			joinInts(configuration.MemorySizes),
		})
	}

	return NewTable(headers, data)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
