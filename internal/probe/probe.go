// Package probe sends native ICMP echo requests for the reachability check.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/NodePath81/fbperf/internal/util"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var ErrNoSocket = errors.New("icmp socket unavailable")

// Config controls one echo run.
type Config struct {
	Count    int
	Interval time.Duration
	Timeout  time.Duration
}

// Stats summarises an echo run.
type Stats struct {
	Sent     int
	Lost     int
	AvgRTTMs float64
	JitterMs float64
	HasRTT   bool
}

// LossPct is the percentage of echo requests without a reply.
func (s Stats) LossPct() float64 {
	if s.Sent == 0 {
		return 100
	}
	return clampFloat(float64(s.Lost)/float64(s.Sent)*100, 0, 100)
}

type probeWindow struct {
	samples int
	lost    int
	rttsMs  []float64
}

func (w *probeWindow) addSample(ok bool, rtt time.Duration) {
	w.samples++
	if !ok {
		w.lost++
		return
	}
	w.rttsMs = append(w.rttsMs, float64(rtt.Microseconds())/1000.0)
}

func (w *probeWindow) stats() Stats {
	var avg float64
	if len(w.rttsMs) > 0 {
		var sum float64
		for _, v := range w.rttsMs {
			sum += v
		}
		avg = sum / float64(len(w.rttsMs))
	}
	return Stats{
		Sent:     w.samples,
		Lost:     w.lost,
		AvgRTTMs: avg,
		JitterMs: computeJitter(w.rttsMs),
		HasRTT:   len(w.rttsMs) > 0,
	}
}

func computeJitter(samples []float64) float64 {
	// Jitter is mean absolute difference between consecutive RTT samples.
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(samples); i++ {
		diff := samples[i] - samples[i-1]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum / float64(len(samples)-1)
}

type family struct {
	network    string
	dgram      string
	proto      int
	echoType   icmp.Type
	echoReply  icmp.Type
	unprivAddr string
}

func familyFor(ip net.IP) family {
	if ip.To4() != nil {
		return family{
			network:    "ip4:icmp",
			dgram:      "udp4",
			proto:      1,
			echoType:   ipv4.ICMPTypeEcho,
			echoReply:  ipv4.ICMPTypeEchoReply,
			unprivAddr: "0.0.0.0",
		}
	}
	return family{
		network:    "ip6:ipv6-icmp",
		dgram:      "udp6",
		proto:      58,
		echoType:   ipv6.ICMPTypeEchoRequest,
		echoReply:  ipv6.ICMPTypeEchoReply,
		unprivAddr: "::",
	}
}

// listen opens a raw ICMP socket, falling back to the unprivileged datagram
// socket Linux and macOS offer to non-root users.
func listen(f family, logger util.Logger) (*icmp.PacketConn, bool, error) {
	conn, err := icmp.ListenPacket(f.network, "")
	if err == nil {
		return conn, false, nil
	}
	logger.Debug("raw icmp socket unavailable, trying datagram socket", "error", err)
	conn, dgErr := icmp.ListenPacket(f.dgram, f.unprivAddr)
	if dgErr != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrNoSocket, errors.Join(err, dgErr))
	}
	return conn, true, nil
}

// Echo sends cfg.Count echo requests to ip, one per interval, and waits up to
// cfg.Timeout for each reply.
func Echo(ctx context.Context, ip net.IP, cfg Config, logger util.Logger) (Stats, error) {
	if cfg.Count <= 0 {
		cfg.Count = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	f := familyFor(ip)
	conn, dgram, err := listen(f, logger)
	if err != nil {
		return Stats{}, err
	}
	defer conn.Close()

	var dst net.Addr = &net.IPAddr{IP: ip}
	if dgram {
		dst = &net.UDPAddr{IP: ip}
	}
	id := rand.Intn(0xffff)
	window := &probeWindow{}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for seq := 1; seq <= cfg.Count; seq++ {
		rtt, ok := sendPing(conn, dst, ip, id, uint16(seq), f, cfg.Timeout, dgram)
		window.addSample(ok, rtt)
		logger.Debug("icmp echo", "target", ip.String(), "seq", seq, "ok", ok, "rtt", rtt)
		if seq == cfg.Count {
			break
		}
		select {
		case <-ctx.Done():
			return window.stats(), ctx.Err()
		case <-ticker.C:
		}
	}
	return window.stats(), nil
}

func sendPing(conn *icmp.PacketConn, dst net.Addr, ip net.IP, id int, seq uint16, f family, timeout time.Duration, dgram bool) (time.Duration, bool) {
	msg := icmp.Message{
		Type: f.echoType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  int(seq),
			Data: []byte("fbperf"),
		},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return 0, false
	}
	start := time.Now()
	if _, err := conn.WriteTo(payload, dst); err != nil {
		return 0, false
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, false
	}
	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return 0, false
		}
		if !peerMatches(peer, ip) {
			continue
		}
		parsed, err := icmp.ParseMessage(f.proto, buf[:n])
		if err != nil {
			continue
		}
		if parsed.Type != f.echoReply {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		// The kernel rewrites the identifier on datagram sockets.
		if (dgram || echo.ID == id) && echo.Seq == int(seq) {
			return time.Since(start), true
		}
	}
}

func peerMatches(peer net.Addr, ip net.IP) bool {
	switch a := peer.(type) {
	case *net.IPAddr:
		return a.IP == nil || a.IP.Equal(ip)
	case *net.UDPAddr:
		return a.IP == nil || a.IP.Equal(ip)
	}
	return true
}

func clampFloat(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
