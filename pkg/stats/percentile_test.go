package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	testCases := []struct {
		p        float64
		expected float64
	}{
		{0, 10},
		{0.25, 17.5},
		{0.5, 25},
		{0.75, 32.5},
		{1, 40},
	}

	for _, testCase := range testCases {
		assert.InDelta(t, testCase.expected, Percentile(sorted, testCase.p), 1e-9,
			"p=%v", testCase.p)
	}
}

func TestSummarizeRounding(t *testing.T) {
	summary := Summarize([]float64{1.004, 1.004, 2.006}, false)

	require.Equal(t, 3, summary.SampleCount)
	assert.Equal(t, 1.34, summary.Mean)
	assert.Equal(t, 1.0, summary.Mode)
	assert.Equal(t, 2.01, summary.Max)
}