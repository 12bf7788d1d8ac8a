package measure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/NodePath81/fbperf/internal/command"
	"github.com/NodePath81/fbperf/internal/probe"
	"github.com/NodePath81/fbperf/internal/util"
)

type fakeResult struct {
	out string
	err error
}

// fakeRunner answers bounded invocations by phase and records the order of
// every call, including the live probe's Stop and Output.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]fakeResult
	events  []string
	args    map[string][]string
	live    *fakeProcess
	startFn func() error
	hook    func(phase string)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]fakeResult),
		args:    make(map[string][]string),
	}
}

func (f *fakeRunner) set(phase, out string, err error) {
	f.results[phase] = fakeResult{out: out, err: err}
}

func (f *fakeRunner) record(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeRunner) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func classify(name string, args []string) string {
	joined := " " + strings.Join(args, " ") + " "
	if name == "iperf3" {
		if strings.Contains(joined, " -u ") {
			return "udp"
		}
		return "tcp"
	}
	switch {
	case strings.Contains(joined, " -s 1472 "):
		return "mtu"
	case strings.Contains(joined, " -c 3 "):
		return "check"
	case strings.Contains(joined, " -c 5 "):
		return "baseline"
	case strings.Contains(joined, " -c 4 "):
		return "post"
	}
	return "ping?"
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	phase := classify(name, args)
	f.record("run " + phase)
	f.mu.Lock()
	f.args[phase] = append([]string(nil), args...)
	res, ok := f.results[phase]
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(phase)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errors.New("unexpected invocation"))
	}
	return []byte(res.out), res.err
}

func (f *fakeRunner) Start(ctx context.Context, name string, args ...string) (command.Process, error) {
	f.record("start live")
	if f.startFn != nil {
		if err := f.startFn(); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	f.args["live"] = append([]string(nil), args...)
	f.mu.Unlock()
	f.live = &fakeProcess{runner: f, out: f.results["live"].out, stopErr: f.results["live"].err}
	return f.live, nil
}

type fakeProcess struct {
	runner  *fakeRunner
	mu      sync.Mutex
	out     string
	stopErr error
	stopped bool
	stops   int
}

func (p *fakeProcess) Stop() error {
	p.mu.Lock()
	p.stops++
	first := !p.stopped
	p.stopped = true
	p.mu.Unlock()
	if first {
		p.runner.record("stop live")
	}
	return p.stopErr
}

func (p *fakeProcess) Output() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.runner.record("output live early")
		return nil, command.ErrNotStopped
	}
	p.runner.record("output live")
	return []byte(p.out), nil
}

type fakeResolver struct {
	addrs []string
	err   error
}

func (r fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return r.addrs, r.err
}

func fakeEcho(stats probe.Stats, err error) EchoFunc {
	return func(ctx context.Context, ip net.IP, cfg probe.Config, logger util.Logger) (probe.Stats, error) {
		return stats, err
	}
}
