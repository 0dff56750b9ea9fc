// Package report extracts performance metrics from the CloudWatch
// REPORT trailer that Lambda attaches to an invocation response when
// tail logs are requested. Collecting metrics from the trailer keeps
// the measured handlers free of any instrumentation overhead.
package report

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const reportMarker = "REPORT RequestId:"

// Metrics holds the fields extracted from a REPORT line. Every field is
// optional: a missing field leaves the corresponding pointer nil.
// InitDuration is only emitted by the platform on cold starts.
type Metrics struct {
	RequestID        string
	DurationMs       *float64
	BilledDurationMs *int64
	MemoryUsedMB     *int64
	InitDurationMs   *float64
}

// Empty reports whether no REPORT line was found at all.
func (m Metrics) Empty() bool {
	return m.RequestID == "" && m.DurationMs == nil && m.BilledDurationMs == nil &&
		m.MemoryUsedMB == nil && m.InitDurationMs == nil
}

// ParseBase64 decodes the base64 LogResult attached to an invocation
// response and parses the REPORT line from it.
func ParseBase64(logResult string) (Metrics, error) {
	if logResult == "" {
		return Metrics{}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(logResult)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "decoding invocation log result failed")
	}

	return Parse(string(decoded)), nil
}

// Parse scans the log text for the REPORT line and extracts its fields.
// Absence of the REPORT marker yields an empty result rather than an
// error; this is a recoverable degraded case, the sample is simply
// recorded without platform metrics.
func Parse(logText string) Metrics {
	start := strings.Index(logText, reportMarker)
	if start < 0 {
		return Metrics{}
	}

	line := logText[start:]
	if end := strings.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}

	metrics := Metrics{
		RequestID: firstToken(line[len(reportMarker):]),
	}

	if v, ok := scanFloat(line, "Duration:", "ms"); ok {
		metrics.DurationMs = &v
	}
	if v, ok := scanInt(line, "Billed Duration:", "ms"); ok {
		metrics.BilledDurationMs = &v
	}
	if v, ok := scanInt(line, "Max Memory Used:", "MB"); ok {
		metrics.MemoryUsedMB = &v
	}
	if v, ok := scanFloat(line, "Init Duration:", "ms"); ok {
		metrics.InitDurationMs = &v
	}

	return metrics
}

// firstToken returns the first whitespace-delimited token of s.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// fieldIndex locates key in line. The bare "Duration:" key also occurs
// inside "Billed Duration:" and "Init Duration:"; those occurrences are
// skipped.
func fieldIndex(line, key string) int {
	from := 0
	for {
		i := strings.Index(line[from:], key)
		if i < 0 {
			return -1
		}
		i += from

		if key == "Duration:" {
			prefix := line[:i]
			if strings.HasSuffix(prefix, "Billed ") || strings.HasSuffix(prefix, "Init ") {
				from = i + len(key)
				continue
			}
		}

		return i
	}
}

// numberAfter extracts the numeric token following key, requiring the
// given unit token right after the number.
func numberAfter(line, key, unit string) (string, bool) {
	i := fieldIndex(line, key)
	if i < 0 {
		return "", false
	}

	fields := strings.Fields(line[i+len(key):])
	if len(fields) < 2 || fields[1] != unit {
		return "", false
	}

	return fields[0], true
}

func scanFloat(line, key, unit string) (float64, bool) {
	token, ok := numberAfter(line, key, unit)
	if !ok {
		return 0, false
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func scanInt(line, key, unit string) (int64, bool) {
	token, ok := numberAfter(line, key, unit)
	if !ok {
		return 0, false
	}

	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
