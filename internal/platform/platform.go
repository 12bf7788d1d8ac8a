// Package platform selects the ping dialect once at startup.
//
// The latency extractor and the ping argument builders take an explicit Tag
// rather than re-detecting the host OS on every call.
package platform

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tag identifies the ping output and flag family.
type Tag int

const (
	// POSIX is iputils ping as shipped on Linux ("rtt min/avg/max/mdev").
	POSIX Tag = iota
	// BSD is the BSD ping found on macOS and the BSDs ("round-trip min/avg/max/stddev").
	BSD
)

// MTUProbePayload is the ICMP payload that fills a 1500 byte MTU with IPv4 headers.
const MTUProbePayload = 1472

func (t Tag) String() string {
	switch t {
	case BSD:
		return "bsd"
	default:
		return "posix"
	}
}

// Detect maps a GOOS value to a tag.
func Detect(goos string) (Tag, error) {
	switch goos {
	case "linux", "android":
		return POSIX, nil
	case "darwin", "ios", "freebsd", "openbsd", "netbsd", "dragonfly":
		return BSD, nil
	default:
		return POSIX, fmt.Errorf("cannot detect ping dialect for %q, set platform to linux or macos", goos)
	}
}

// Parse accepts the user-facing platform names.
func Parse(name string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linux", "posix":
		return POSIX, nil
	case "macos", "darwin", "bsd":
		return BSD, nil
	default:
		return POSIX, fmt.Errorf("unknown platform %q (want linux or macos)", name)
	}
}

// Resolve returns the configured tag, detecting it from goos when name is "auto" or empty.
func Resolve(name, goos string) (Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return Detect(goos)
	}
	return Parse(name)
}

// PingArgs builds arguments for a bounded probe of count echoes.
func (t Tag) PingArgs(host string, count int, interval time.Duration) []string {
	args := []string{"-c", strconv.Itoa(count)}
	args = append(args, intervalArgs(interval)...)
	return append(args, host)
}

// LiveArgs builds arguments for an unbounded probe that runs until signalled.
func (t Tag) LiveArgs(host string, interval time.Duration) []string {
	args := intervalArgs(interval)
	return append(args, host)
}

// MTUArgs builds a single don't-fragment echo of MTUProbePayload bytes.
func (t Tag) MTUArgs(host string) []string {
	size := strconv.Itoa(MTUProbePayload)
	if t == BSD {
		return []string{"-c", "1", "-D", "-s", size, host}
	}
	return []string{"-c", "1", "-M", "do", "-s", size, host}
}

func intervalArgs(interval time.Duration) []string {
	if interval <= 0 || interval == time.Second {
		return nil
	}
	return []string{"-i", strconv.FormatFloat(interval.Seconds(), 'f', -1, 64)}
}
