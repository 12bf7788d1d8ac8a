package extract

import (
	"fmt"
	"strings"
)

// Direction describes traffic flow relative to the client.
type Direction int

const (
	DirectionUpload Direction = iota
	DirectionDownload
)

func (d Direction) String() string {
	switch d {
	case DirectionDownload:
		return "download"
	default:
		return "upload"
	}
}

// ParseDirection accepts "upload" or "download"; empty means upload.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upload":
		return DirectionUpload, nil
	case "download":
		return DirectionDownload, nil
	default:
		return DirectionUpload, fmt.Errorf("direction must be upload or download, got %q", s)
	}
}

// role is the iperf3 summary label whose rate describes the measured direction.
// Reverse mode swaps which endpoint sends, so the client's own "sender"
// line carries the download rate.
func (d Direction) role() string {
	if d == DirectionDownload {
		return "sender"
	}
	return "receiver"
}
