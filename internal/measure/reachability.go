package measure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/NodePath81/fbperf/internal/config"
	"github.com/NodePath81/fbperf/internal/extract"
	"github.com/NodePath81/fbperf/internal/probe"
	"github.com/NodePath81/fbperf/internal/util"
)

var (
	ErrUnresolved  = errors.New("server name does not resolve")
	ErrUnreachable = errors.New("server unreachable")
)

// Resolver looks up the target before any probe is sent.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// EchoFunc sends native ICMP echo requests.
type EchoFunc func(ctx context.Context, ip net.IP, cfg probe.Config, logger util.Logger) (probe.Stats, error)

// checkReachability resolves the target and measures loss with the
// configured method. It returns nil when loss is within the threshold.
func (c *Coordinator) checkReachability(ctx context.Context) error {
	rcfg := c.cfg.Reachability
	ctx, cancel := context.WithTimeout(ctx, rcfg.Timeout.Duration())
	defer cancel()

	host := c.cfg.Target.Host
	addrs, err := c.Resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		if err == nil {
			err = errors.New("no addresses")
		}
		return fmt.Errorf("%w: %s: %w", ErrUnresolved, host, err)
	}
	c.logger.Debug("target resolved", "target", host, "addrs", strings.Join(addrs, ","))

	var lossPct float64
	switch rcfg.Method {
	case config.ReachabilityICMP:
		ip := net.ParseIP(addrs[0])
		if ip == nil {
			return fmt.Errorf("%w: unusable address %q", ErrUnreachable, addrs[0])
		}
		stats, err := c.Echo(ctx, ip, probe.Config{
			Count:    rcfg.Count,
			Interval: c.cfg.Latency.Interval.Duration(),
			Timeout:  time.Second,
		}, c.logger)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		lossPct = stats.LossPct()
	default:
		out, err := c.runner.Run(ctx, c.cfg.Tools.Ping, c.tag.PingArgs(host, rcfg.Count, 0)...)
		c.save(captureCheck, out)
		loss := extract.ParseLoss(string(out))
		if !loss.OK() {
			if err == nil {
				err = loss.Err
			}
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		lossPct = loss.Num
	}

	threshold := rcfg.LossThreshold()
	c.logger.Info("reachability measured", "target", host, "method", rcfg.Method, "loss_pct", lossPct, "threshold_pct", threshold)
	if lossPct > threshold {
		return fmt.Errorf("%w: %s%% packet loss", ErrUnreachable, strconv.FormatFloat(lossPct, 'f', -1, 64))
	}
	return nil
}

// checkMTU sends one unfragmentable full-size echo. A too-small path MTU only
// produces a warning.
func (c *Coordinator) checkMTU(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Reachability.Timeout.Duration())
	defer cancel()
	out, err := c.runner.Run(ctx, c.cfg.Tools.Ping, c.tag.MTUArgs(c.cfg.Target.Host)...)
	c.save(captureMTUCheck, out)
	text := strings.ToLower(string(out))
	if strings.Contains(text, "frag needed") || strings.Contains(text, "message too long") {
		c.logger.Warn("path mtu below 1500, fragmentation may skew throughput", "target", c.cfg.Target.Host)
		return
	}
	if err != nil {
		c.logger.Debug("mtu check inconclusive", "target", c.cfg.Target.Host, "error", err)
		return
	}
	c.logger.Debug("mtu check passed", "target", c.cfg.Target.Host)
}

// DialFunc opens and closes one TCP connection, returning the connect time.
type DialFunc func(ctx context.Context, host string, port int, timeout time.Duration) (float64, bool)

// checkServerPort dials the throughput server once. A closed port only
// produces a warning; iperf3 reports the real failure.
func (c *Coordinator) checkServerPort(ctx context.Context) {
	if c.Dial == nil {
		return
	}
	rttMs, ok := c.Dial(ctx, c.cfg.Target.Host, c.cfg.Target.Port, c.cfg.Reachability.Timeout.Duration())
	if !ok {
		c.logger.Warn("throughput server port not accepting connections", "target", c.cfg.TargetAddr())
		return
	}
	c.logger.Debug("throughput server port open", "target", c.cfg.TargetAddr(), "connect_ms", rttMs)
}

func dialProbe(ctx context.Context, host string, port int, timeout time.Duration) (float64, bool) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, false
	}
	_ = conn.Close()
	return float64(time.Since(start)) / float64(time.Millisecond), true
}
