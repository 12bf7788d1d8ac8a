// Package command invokes the external diagnostic tools.
//
// Bounded invocations run to completion or until their context expires.
// Background invocations run until Stop is called; their captured output is
// readable only after Stop has returned.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultStopGrace = 5 * time.Second
	// waitDelay bounds how long Wait blocks on output pipes after the process is gone.
	waitDelay = 2 * time.Second
)

var (
	// ErrNotStopped is returned by Output while the process may still be writing.
	ErrNotStopped = errors.New("background process not stopped")
	// ErrKilled is returned by Stop when the process ignored the interrupt.
	ErrKilled = errors.New("background process killed after grace period")
)

// Runner starts diagnostic tool processes.
type Runner interface {
	// Run executes name to completion and returns its combined stdout and stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches name in the background.
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// Process is a running background invocation.
type Process interface {
	// Stop interrupts the process and waits for it to exit.
	Stop() error
	// Output returns everything the process wrote. It fails with ErrNotStopped
	// until Stop has returned.
	Output() ([]byte, error)
}

// Exec runs tools with os/exec, each in its own process group.
type Exec struct {
	// StopGrace is how long a background process gets to exit after SIGINT.
	StopGrace time.Duration
}

// Run executes name and waits for it. When ctx expires the whole process
// group is killed and the context error is returned wrapped.
func (e Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s: %w", name, ctxErr)
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Start launches name in the background. The process is not bound to ctx's
// deadline; cancelling ctx stops it as if Stop had been called.
func (e Exec) Start(ctx context.Context, name string, args ...string) (Process, error) {
	grace := e.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	p := &background{
		cmd:   exec.Command(name, args...),
		grace: grace,
		done:  make(chan struct{}),
	}
	setProcessGroup(p.cmd)
	p.cmd.Stdout = &p.buf
	p.cmd.Stderr = &p.buf
	p.cmd.WaitDelay = waitDelay
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	p.group = g
	g.Go(func() error {
		// Wait returns only after the output copy has finished.
		_ = p.cmd.Wait()
		close(p.done)
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			p.terminate()
		case <-p.done:
		}
		return nil
	})
	return p, nil
}

// IsExit reports whether err only says the tool exited with a non-zero
// status. Such a tool still produced a report worth parsing.
func IsExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

type background struct {
	cmd   *exec.Cmd
	grace time.Duration
	buf   bytes.Buffer

	// group owns the process waiter and the context watcher.
	group *errgroup.Group
	done  chan struct{}

	termOnce sync.Once
	termErr  error
	stopped  atomic.Bool
}

// terminate interrupts the process group and kills it if it outlives the
// grace period. It returns once the process has exited.
func (p *background) terminate() {
	p.termOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		// ping prints its statistics on SIGINT; SIGKILL would lose them.
		_ = interruptGroup(p.cmd)
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			_ = killGroup(p.cmd)
			<-p.done
			p.termErr = ErrKilled
		}
	})
}

// Stop terminates the process and joins the waiter and watcher goroutines.
// After it returns the captured output is final.
func (p *background) Stop() error {
	p.terminate()
	_ = p.group.Wait()
	p.stopped.Store(true)
	return p.termErr
}

func (p *background) Output() ([]byte, error) {
	if !p.stopped.Load() {
		return nil, ErrNotStopped
	}
	out := make([]byte, p.buf.Len())
	copy(out, p.buf.Bytes())
	return out, nil
}
