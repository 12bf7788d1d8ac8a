package extract

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	bandwidthPattern = regexp.MustCompile(`(\d+(?:\.\d+)?) ([KMGT]?)bits/sec`)
	jitterPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s+ms\s+-?\d+/\d+`)
	udpLossPattern   = regexp.MustCompile(`\((\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)%\)`)
)

// UDP is the summary of one UDP throughput run.
type UDP struct {
	Bandwidth Value
	Jitter    Value
	Loss      Value
	// Line is the summary line the values were read from.
	Line string
}

// TCP is the summary of one TCP throughput run.
type TCP struct {
	Bandwidth Value
	Line      string
}

// ParseUDP reads bandwidth, jitter and loss from the summary line that
// describes dir. Each sub-field degrades on its own.
func ParseUDP(text string, dir Direction) UDP {
	line, err := summaryLine(text, dir)
	if err != nil {
		return UDP{Bandwidth: Missing(err), Jitter: Missing(err), Loss: Missing(err)}
	}
	out := UDP{Line: line, Bandwidth: parseBandwidth(line)}
	if m := jitterPattern.FindStringSubmatch(line); m != nil {
		out.Jitter = millisValue(m[1])
	} else {
		out.Jitter = Missing(ErrNoMatch)
	}
	if m := udpLossPattern.FindStringSubmatch(line); m != nil {
		out.Loss = percentValue(m[1])
	} else {
		out.Loss = Missing(ErrNoMatch)
	}
	return out
}

// ParseTCP reads the bandwidth from the first summary line that describes dir.
func ParseTCP(text string, dir Direction) TCP {
	line, err := summaryLine(text, dir)
	if err != nil {
		return TCP{Bandwidth: Missing(err)}
	}
	return TCP{Line: line, Bandwidth: parseBandwidth(line)}
}

// summaryLine returns the first line labelled with the role for dir that
// also carries a bits/sec rate. Later lines never replace an earlier match.
func summaryLine(text string, dir Direction) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCapture
	}
	role := dir.role()
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[len(fields)-1] != role {
			continue
		}
		if !bandwidthPattern.MatchString(line) {
			continue
		}
		return line, nil
	}
	return "", ErrNoSummaryLine
}

func parseBandwidth(line string) Value {
	m := bandwidthPattern.FindStringSubmatch(line)
	if m == nil {
		return Missing(ErrNoMatch)
	}
	n, err := parseNumber(m[1])
	if err != nil {
		return Missing(err)
	}
	return Value{
		Text: m[1] + " " + m[2] + "bits/sec",
		Num:  n * prefixMultiplier(m[2]),
	}
}

// prefixMultiplier maps the SI prefix iperf3 prints in front of "bits/sec".
func prefixMultiplier(prefix string) float64 {
	switch prefix {
	case "K":
		return 1e3
	case "M":
		return 1e6
	case "G":
		return 1e9
	case "T":
		return 1e12
	default:
		return 1
	}
}
