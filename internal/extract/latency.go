package extract

import (
	"regexp"
	"strings"

	"github.com/NodePath81/fbperf/internal/platform"
)

var (
	posixRTTPattern = regexp.MustCompile(`rtt min/avg/max/mdev = ([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+)`)
	bsdRTTPattern   = regexp.MustCompile(`round-trip\s+min/avg/max/(?:stddev|std-dev)\s*=\s*([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+)`)
	lossPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)% packet loss`)
)

// Latency is the summary of one ping run.
type Latency struct {
	Avg  Value
	Loss Value
}

// ParseLatency reads the average round-trip time and the packet loss from a
// ping report. The rtt line is matched only with the rule for tag. Loss is
// matched independently so either field can succeed alone.
func ParseLatency(text string, tag platform.Tag) Latency {
	if strings.TrimSpace(text) == "" {
		return Latency{Avg: Missing(ErrEmptyCapture), Loss: Missing(ErrEmptyCapture)}
	}
	return Latency{
		Avg:  parseAvg(text, tag),
		Loss: ParseLoss(text),
	}
}

// ParseLoss reads "<n>% packet loss" from a ping report.
func ParseLoss(text string) Value {
	if strings.TrimSpace(text) == "" {
		return Missing(ErrEmptyCapture)
	}
	m := lossPattern.FindStringSubmatch(text)
	if m == nil {
		return Missing(ErrNoMatch)
	}
	return percentValue(m[1])
}

func parseAvg(text string, tag platform.Tag) Value {
	pattern := posixRTTPattern
	if tag == platform.BSD {
		pattern = bsdRTTPattern
	}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return Missing(ErrNoMatch)
	}
	return millisValue(m[2])
}
