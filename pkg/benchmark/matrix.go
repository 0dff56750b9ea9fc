package benchmark

import "sort"

// MatrixEntry is one cell of the test matrix: a subject at one memory
// size.
type MatrixEntry struct {
	Subject  Subject
	MemoryMB int
}

// MatrixConfiguration groups the memory sizes tested for one
// (runtime, architecture, workloadType) combination.
type MatrixConfiguration struct {
	Runtime      string `json:"runtime" dynamodbav:"runtime"`
	Architecture string `json:"architecture" dynamodbav:"architecture"`
	WorkloadType string `json:"workloadType" dynamodbav:"workloadType"`
	MemorySizes  []int  `json:"memorySizes" dynamodbav:"memorySizes"`
}

// Matrix is the snapshot of the full test matrix stored with the run
// record.
type Matrix struct {
	Runtimes       []string              `json:"runtimes" dynamodbav:"runtimes"`
	Architectures  []string              `json:"architectures" dynamodbav:"architectures"`
	WorkloadTypes  []string              `json:"workloadTypes" dynamodbav:"workloadTypes"`
	Configurations []MatrixConfiguration `json:"configurations" dynamodbav:"configurations"`
}

// BuildMatrix groups the matrix entries by (runtime, architecture,
// workloadType) and aggregates the memory sizes of each combination.
func BuildMatrix(entries []MatrixEntry) Matrix {
	type key struct {
		runtime, architecture, workloadType string
	}

	groups := map[key][]int{}
	runtimes := map[string]bool{}
	architectures := map[string]bool{}
	workloadTypes := map[string]bool{}

	for _, entry := range entries {
		runtimes[entry.Subject.Runtime] = true
		architectures[entry.Subject.Architecture] = true
		workloadTypes[entry.Subject.WorkloadType] = true

		k := key{entry.Subject.Runtime, entry.Subject.Architecture, entry.Subject.WorkloadType}
		if !containsInt(groups[k], entry.MemoryMB) {
			groups[k] = append(groups[k], entry.MemoryMB)
		}
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].runtime != keys[j].runtime {
			return keys[i].runtime < keys[j].runtime
		}
		if keys[i].architecture != keys[j].architecture {
			return keys[i].architecture < keys[j].architecture
		}
		return keys[i].workloadType < keys[j].workloadType
	})

	configurations := make([]MatrixConfiguration, 0, len(keys))
	for _, k := range keys {
		sizes := groups[k]
		sort.Ints(sizes)
		configurations = append(configurations, MatrixConfiguration{
			Runtime:      k.runtime,
			Architecture: k.architecture,
			WorkloadType: k.workloadType,
			MemorySizes:  sizes,
		})
	}

	return Matrix{
		Runtimes:       sortedKeys(runtimes),
		Architectures:  sortedKeys(architectures),
		WorkloadTypes:  sortedKeys(workloadTypes),
		Configurations: configurations,
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsInt(values []int, v int) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
