package benchmark

// Config controls one benchmark run. It is a value struct constructed
// once and passed down explicitly.
type Config struct {
	// ColdStartsPerConfig is the number of cold samples taken per
	// configuration, each behind a forced cold start.
	ColdStartsPerConfig int
	// WarmStartsPerConfig is the number of back-to-back warm samples
	// per configuration.
	WarmStartsPerConfig int
	// MemorySizeFilter restricts the per-workload memory plans to the
	// listed sizes. Empty means the full plan.
	MemorySizeFilter []int
	// MaxWorkers bounds the number of subjects swept in parallel.
	MaxWorkers int
	// RunID reuses an existing run id; generated when empty.
	RunID string
	// NameFilter restricts discovery to functions whose name contains
	// the substring.
	NameFilter string
	// Notes is free-form text stored with the run record.
	Notes string
}

// Mode derives the run mode label from the cold sample count.
func (c Config) Mode() string {
	switch {
	case c.ColdStartsPerConfig >= 100:
		return "production"
	case c.ColdStartsPerConfig >= 50:
		return "balanced"
	default:
		return "test"
	}
}

// TotalInvocations returns the number of invocations a run over the
// given configuration count will perform.
func (c Config) TotalInvocations(totalConfigurations int) int {
	return totalConfigurations * (c.ColdStartsPerConfig + c.WarmStartsPerConfig)
}

// Predefined run configurations.
var (
	// TestConfig is for quick validation runs.
	TestConfig = Config{
		ColdStartsPerConfig: 2,
		WarmStartsPerConfig: 2,
		MaxWorkers:          12,
	}

	// BalancedConfig trades run time for tighter statistics.
	BalancedConfig = Config{
		ColdStartsPerConfig: 10,
		WarmStartsPerConfig: 20,
		MaxWorkers:          12,
	}

	// ProductionConfig maximizes statistical rigor; takes many hours.
	ProductionConfig = Config{
		ColdStartsPerConfig: 125,
		WarmStartsPerConfig: 500,
		MaxWorkers:          12,
	}
)
