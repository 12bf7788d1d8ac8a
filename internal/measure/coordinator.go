// Package measure runs the test phases against one server and assembles the
// run record.
package measure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/NodePath81/fbperf/internal/capture"
	"github.com/NodePath81/fbperf/internal/command"
	"github.com/NodePath81/fbperf/internal/config"
	"github.com/NodePath81/fbperf/internal/extract"
	"github.com/NodePath81/fbperf/internal/platform"
	"github.com/NodePath81/fbperf/internal/probe"
	"github.com/NodePath81/fbperf/internal/summary"
	"github.com/NodePath81/fbperf/internal/util"
)

// Capture names, also used as file name prefixes by the capture store.
const (
	capturePing     = "ping"
	captureLive     = "ping_live"
	capturePost     = "ping_post"
	captureUDP      = "iperf3_udp"
	captureTCP      = "iperf3_tcp"
	captureCheck    = "ping_check"
	captureMTUCheck = "ping_mtu"
)

// Result is the outcome of one run. A record is always present.
type Result struct {
	Record summary.Record
	State  State
	// Err is why the run aborted or was cut short, nil for a complete run.
	Err error
}

type Coordinator struct {
	cfg    config.Config
	tag    platform.Tag
	runner command.Runner
	store  *capture.Store
	logger util.Logger
	state  State

	Resolver Resolver
	Echo     EchoFunc
	Dial     DialFunc
	Now      func() time.Time
}

func NewCoordinator(cfg config.Config, runner command.Runner, store *capture.Store, logger util.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		tag:      cfg.PlatformTag,
		runner:   runner,
		store:    store,
		logger:   logger,
		Resolver: net.DefaultResolver,
		Echo:     probe.Echo,
		Dial:     dialProbe,
		Now:      time.Now,
	}
}

// State is the last state entered.
func (c *Coordinator) State() State {
	return c.state
}

// Run executes every phase in order and returns the assembled record. An
// unreachable server yields a FAIL record; a cancelled ctx skips the
// remaining phases but still yields a record.
func (c *Coordinator) Run(ctx context.Context) Result {
	c.state = StateInit
	meta := summary.Meta{
		Timestamp: c.Now(),
		Host:      c.cfg.Target.Host,
		Port:      c.cfg.Target.Port,
		Duration:  c.cfg.Test.Duration.Duration(),
		Status:    summary.StatusFail,
	}

	done := c.enter(StateReachability)
	err := c.checkReachability(ctx)
	done()
	if err != nil {
		c.logger.Error("server unreachable, test aborted", "target", c.cfg.Target.Host, "error", err)
		c.enter(StateAborted)
		return Result{Record: summary.Assemble(meta, summary.Measurements{}), State: StateAborted, Err: err}
	}
	if c.cfg.MTUCheck.IsEnabled() {
		c.checkMTU(ctx)
	}
	meta.Status = summary.StatusOK
	m := summary.Skipped()

	done = c.enter(StateBaseline)
	m.Baseline = c.latencyPhase(ctx, capturePing, c.cfg.BaselineCount())
	done()

	done = c.enter(StateConcurrent)
	m.Live, m.UDP, m.TCP = c.concurrentPhase(ctx)
	done()

	done = c.enter(StatePost)
	m.Post = c.latencyPhase(ctx, capturePost, c.cfg.PostCount())
	done()

	c.enter(StateDone)
	res := Result{Record: summary.Assemble(meta, m), State: StateDone}
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("run interrupted: %w", err)
		c.logger.Warn("run interrupted, remaining phases skipped", "error", err)
	}
	return res
}

func (c *Coordinator) enter(s State) func() {
	c.state = s
	if s.Terminal() {
		c.logger.Info("run finished", "state", s.String())
		return func() {}
	}
	start := time.Now()
	c.logger.Info("phase started", "phase", s.String())
	return func() {
		c.logger.Info("phase finished", "phase", s.String(), "elapsed", time.Since(start).Round(time.Millisecond))
	}
}

func (c *Coordinator) latencyPhase(ctx context.Context, name string, count int) extract.Latency {
	if err := ctx.Err(); err != nil {
		return skippedLatency()
	}
	out, err := c.invoke(ctx, name, c.cfg.Tools.Ping, c.tag.PingArgs(c.cfg.Target.Host, count, c.cfg.Latency.Interval.Duration()))
	if err != nil {
		return failedLatency(err)
	}
	lat := extract.ParseLatency(out, c.tag)
	c.logger.Debug("latency extracted", "phase", name, "avg", lat.Avg.String(), "loss", lat.Loss.String())
	return lat
}

// concurrentPhase runs the live ping while the throughput tests run one after
// the other. The live ping is always stopped before its output is read; Stop
// returns only once the process has exited and its output is complete.
func (c *Coordinator) concurrentPhase(ctx context.Context) (extract.Latency, extract.UDP, extract.TCP) {
	live := skippedLatency()
	udp := skippedUDP()
	tcp := skippedTCP()
	if ctx.Err() != nil {
		return live, udp, tcp
	}
	c.checkServerPort(ctx)

	proc, err := c.runner.Start(ctx, c.cfg.Tools.Ping, c.tag.LiveArgs(c.cfg.Target.Host, c.cfg.Latency.Interval.Duration())...)
	if err != nil {
		c.logger.Error("live ping failed to start", "phase", captureLive, "error", err)
		live = failedLatency(err)
		proc = nil
	} else {
		defer func() { _ = proc.Stop() }()
	}

	udp = c.udpPhase(ctx)
	tcp = c.tcpPhase(ctx)

	if proc == nil {
		return live, udp, tcp
	}
	if stopErr := proc.Stop(); stopErr != nil {
		c.logger.Warn("live ping did not exit on interrupt", "phase", captureLive, "error", stopErr)
	}
	out, err := proc.Output()
	if err != nil {
		return failedLatency(err), udp, tcp
	}
	c.save(captureLive, out)
	c.debugCapture(captureLive, out)
	live = extract.ParseLatency(string(out), c.tag)
	c.logger.Debug("latency extracted", "phase", captureLive, "avg", live.Avg.String(), "loss", live.Loss.String())
	return live, udp, tcp
}

func (c *Coordinator) udpPhase(ctx context.Context) extract.UDP {
	if ctx.Err() != nil {
		return skippedUDP()
	}
	args := c.iperfArgs()
	args = append(args, "-u", "-b", strconv.FormatUint(c.cfg.Test.UDPBandwidthBits, 10))
	out, err := c.invoke(ctx, captureUDP, c.cfg.Tools.Iperf3, c.withDirection(args))
	if err != nil {
		v := extract.Missing(err)
		return extract.UDP{Bandwidth: v, Jitter: v, Loss: v}
	}
	udp := extract.ParseUDP(out, c.cfg.Direction)
	c.logger.Debug("udp summary line", "line", udp.Line, "bandwidth", udp.Bandwidth.String(), "jitter", udp.Jitter.String(), "loss", udp.Loss.String())
	return udp
}

func (c *Coordinator) tcpPhase(ctx context.Context) extract.TCP {
	if ctx.Err() != nil {
		return skippedTCP()
	}
	out, err := c.invoke(ctx, captureTCP, c.cfg.Tools.Iperf3, c.withDirection(c.iperfArgs()))
	if err != nil {
		return extract.TCP{Bandwidth: extract.Missing(err)}
	}
	tcp := extract.ParseTCP(out, c.cfg.Direction)
	c.logger.Debug("tcp summary line", "line", tcp.Line, "bandwidth", tcp.Bandwidth.String())
	return tcp
}

func (c *Coordinator) iperfArgs() []string {
	return []string{
		"-c", c.cfg.Target.Host,
		"-p", strconv.Itoa(c.cfg.Target.Port),
		"-t", strconv.Itoa(int(c.cfg.Test.Duration.Duration().Seconds())),
	}
}

func (c *Coordinator) withDirection(args []string) []string {
	if c.cfg.Direction == extract.DirectionDownload {
		return append(args, "-R")
	}
	return args
}

// invoke runs one bounded tool invocation under the phase timeout. A tool
// that exits non-zero but printed something is still parsed.
func (c *Coordinator) invoke(ctx context.Context, name, tool string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PhaseTimeout())
	defer cancel()
	c.logger.Debug("invoking tool", "phase", name, "command", tool+" "+strings.Join(args, " "))
	out, err := c.runner.Run(ctx, tool, args...)
	c.save(name, out)
	c.debugCapture(name, out)
	if err != nil {
		if command.IsExit(err) && len(out) > 0 {
			c.logger.Warn("tool exited with error, parsing its output", "phase", name, "error", err)
			return string(out), nil
		}
		c.logger.Error("tool invocation failed", "phase", name, "error", err)
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

func (c *Coordinator) save(name string, out []byte) {
	if c.store == nil || len(out) == 0 {
		return
	}
	path, err := c.store.Save(name, out)
	if err != nil {
		c.logger.Warn("capture not saved", "phase", name, "error", err)
		return
	}
	c.logger.Debug("capture saved", "phase", name, "path", path)
}

func (c *Coordinator) debugCapture(name string, out []byte) {
	if c.cfg.Debug {
		c.logger.Debug("raw capture", "phase", name, "output", string(out))
	}
}

func skippedLatency() extract.Latency {
	return failedLatency(extract.ErrSkipped)
}

func failedLatency(err error) extract.Latency {
	v := extract.Missing(err)
	return extract.Latency{Avg: v, Loss: v}
}

func skippedUDP() extract.UDP {
	v := extract.Missing(extract.ErrSkipped)
	return extract.UDP{Bandwidth: v, Jitter: v, Loss: v}
}

func skippedTCP() extract.TCP {
	return extract.TCP{Bandwidth: extract.Missing(extract.ErrSkipped)}
}

// IsSkipped reports whether a value is missing because its phase never ran.
func IsSkipped(v extract.Value) bool {
	return errors.Is(v.Err, extract.ErrSkipped)
}
