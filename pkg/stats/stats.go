// Package stats implements the summary statistics used for benchmark
// aggregates: linear-interpolation percentiles and outlier-trimmed
// summaries.
package stats

import (
	"math"
	"sort"
)

// minSamplesForTrim is the smallest sample count for which outlier
// trimming is applied. Below it the sample is kept intact.
const minSamplesForTrim = 5

// Summary holds the aggregate statistics of one metric for one
// configuration and invocation type.
//
// When outlier trimming was applied, Min and Max still reflect the
// untrimmed extremes while the remaining statistics are computed from
// the trimmed set. SampleCount is always the untrimmed count.
type Summary struct {
	Mean            float64 `json:"mean" dynamodbav:"mean"`
	Median          float64 `json:"median" dynamodbav:"median"`
	Mode            float64 `json:"mode" dynamodbav:"mode"`
	Min             float64 `json:"min" dynamodbav:"min"`
	Max             float64 `json:"max" dynamodbav:"max"`
	Stdev           float64 `json:"stdev" dynamodbav:"stdev"`
	P50             float64 `json:"p50" dynamodbav:"p50"`
	P90             float64 `json:"p90" dynamodbav:"p90"`
	P95             float64 `json:"p95" dynamodbav:"p95"`
	P99             float64 `json:"p99" dynamodbav:"p99"`
	SampleCount     int     `json:"sampleCount" dynamodbav:"sampleCount"`
	OutliersRemoved bool    `json:"outliersRemoved" dynamodbav:"outliersRemoved"`
}

// Percentile calculates the p-th percentile (p in [0, 1]) of values
// sorted in ascending order, using linear interpolation between the two
// bracketing ranks. An empty input yields 0 and a single-element input
// yields that element; callers must treat empty statistics as "no data".
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	rank := p * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	if upper > n-1 {
		upper = n - 1
	}
	fraction := rank - float64(lower)

	return sorted[lower] + fraction*(sorted[upper]-sorted[lower])
}

// Summarize calculates the Summary of the given values.
//
// With trimOutliers set and at least 5 samples, exactly one minimum and
// one maximum element are removed before computing mean, median, mode,
// standard deviation and percentiles. This reduces the impact of network
// jitter on small sample sets; it intentionally removes only a single
// instance of each extreme regardless of sample count.
func Summarize(values []float64, trimOutliers bool) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	n := len(values)
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	trimmed := trimOutliers && n >= minSamplesForTrim
	calc := sorted
	if trimmed {
		calc = sorted[1 : n-1]
	}

	return Summary{
		Mean:            round2(mean(calc)),
		Median:          round2(median(calc)),
		Mode:            mode(calc),
		Min:             round2(sorted[0]),
		Max:             round2(sorted[n-1]),
		Stdev:           round2(stdev(calc)),
		P50:             round2(Percentile(calc, 0.50)),
		P90:             round2(Percentile(calc, 0.90)),
		P95:             round2(Percentile(calc, 0.95)),
		P99:             round2(Percentile(calc, 0.99)),
		SampleCount:     n,
		OutliersRemoved: trimmed,
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median assumes values are sorted in ascending order.
func median(values []float64) float64 {
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// mode returns the most frequent value after rounding to two decimal
// places. Ties are broken by the first-encountered value in the sorted
// input order. Assumes values are sorted and non-empty.
func mode(values []float64) float64 {
	counts := map[float64]int{}
	best := round2(values[0])
	bestCount := 0

	for _, v := range values {
		rounded := round2(v)
		counts[rounded]++
		if counts[rounded] > bestCount {
			best = rounded
			bestCount = counts[rounded]
		}
	}

	return best
}

// stdev returns the sample (n-1) standard deviation; zero when fewer
// than two values are present.
func stdev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	avg := mean(values)
	var sum float64
	for _, v := range values {
		diff := v - avg
		sum += diff * diff
	}

	return math.Sqrt(sum / float64(n-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
