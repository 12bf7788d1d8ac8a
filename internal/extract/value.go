// Package extract turns ping and iperf3 text reports into typed metrics.
//
// Every function here is pure. A metric that cannot be recovered from the
// text is returned as a Value carrying the reason in Err, which renders as
// the Sentinel; callers never see a panic or a returned error.
package extract

import (
	"errors"
	"strconv"
)

// Sentinel is the placeholder for a metric that is not available.
const Sentinel = "-"

var (
	ErrEmptyCapture  = errors.New("capture is empty")
	ErrNoMatch       = errors.New("pattern not found")
	ErrNoSummaryLine = errors.New("summary line not found")
	ErrInvalidNumber = errors.New("invalid number")
	// ErrSkipped marks a metric whose phase never ran.
	ErrSkipped = errors.New("phase skipped")
)

// Value is one extracted metric.
type Value struct {
	// Text is the rendered token including its unit suffix, e.g. "2.5ms".
	Text string
	// Num is the parsed value in ms, percent or bits/sec.
	Num float64
	// Err is the reason the metric is unavailable.
	Err error
}

// Missing returns an unavailable Value with the given reason.
func Missing(err error) Value {
	if err == nil {
		err = ErrNoMatch
	}
	return Value{Err: err}
}

// OK reports whether the value was parsed.
func (v Value) OK() bool {
	return v.Err == nil && v.Text != ""
}

// String renders the value or the Sentinel.
func (v Value) String() string {
	if !v.OK() {
		return Sentinel
	}
	return v.Text
}

func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

func percentValue(raw string) Value {
	n, err := parseNumber(raw)
	if err != nil {
		return Missing(err)
	}
	return Value{Text: strconv.FormatFloat(n, 'f', -1, 64) + "%", Num: n}
}

func millisValue(raw string) Value {
	n, err := parseNumber(raw)
	if err != nil {
		return Missing(err)
	}
	return Value{Text: raw + "ms", Num: n}
}
