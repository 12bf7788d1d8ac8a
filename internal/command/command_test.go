//go:build unix

package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCapturesCombinedOutput(t *testing.T) {
	requireShell(t)
	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "out") || !strings.Contains(string(out), "err") {
		t.Fatalf("output = %q, want stdout and stderr", out)
	}
}

func TestRunNonZeroExitIsExit(t *testing.T) {
	requireShell(t)
	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo partial; exit 1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsExit(err) {
		t.Fatalf("IsExit(%v) = false, want true", err)
	}
	if !strings.Contains(string(out), "partial") {
		t.Fatalf("output = %q, want partial", out)
	}
}

func TestRunTimeout(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := Exec{}.Run(ctx, "sh", "-c", "sleep 30")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if IsExit(err) {
		t.Fatalf("timeout must not look like a plain exit")
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("timeout did not kill the process group")
	}
}

func TestRunMissingTool(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "fbperf-no-such-tool")
	if err == nil || IsExit(err) {
		t.Fatalf("err = %v, want start failure", err)
	}
}

func TestBackgroundOutputRequiresStop(t *testing.T) {
	requireShell(t)
	p, err := Exec{StopGrace: time.Second}.Start(context.Background(), "sh", "-c", "echo ready; exec sleep 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Output(); !errors.Is(err, ErrNotStopped) {
		t.Fatalf("Output before Stop err = %v, want ErrNotStopped", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	out, err := p.Output()
	if err != nil {
		t.Fatalf("Output after Stop: %v", err)
	}
	if !strings.Contains(string(out), "ready") {
		t.Fatalf("output = %q, want ready", out)
	}
	// Stop is idempotent.
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestBackgroundStoppedByContext(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	p, err := Exec{StopGrace: time.Second}.Start(ctx, "sleep", "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	done := make(chan struct{})
	go func() {
		_ = p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("background process survived context cancellation")
	}
	if _, err := p.Output(); err != nil {
		t.Fatalf("Output: %v", err)
	}
}

func TestBackgroundConcurrentStopJoinsOnce(t *testing.T) {
	requireShell(t)
	p, err := Exec{StopGrace: time.Second}.Start(context.Background(), "sh", "-c", "echo ready; exec sleep 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Stop()
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Stop #%d: %v", i, err)
		}
	}
	out, err := p.Output()
	if err != nil || !strings.Contains(string(out), "ready") {
		t.Fatalf("Output = %q, %v", out, err)
	}
}

func TestBackgroundExitedBeforeStop(t *testing.T) {
	requireShell(t)
	p, err := Exec{StopGrace: time.Second}.Start(context.Background(), "sh", "-c", "echo first; echo second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if _, err := p.Output(); !errors.Is(err, ErrNotStopped) {
		t.Fatalf("Output before Stop err = %v, want ErrNotStopped", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	out, err := p.Output()
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if string(out) != "first\nsecond\n" {
		t.Fatalf("Output = %q, want both lines", out)
	}
}

func TestBackgroundKilledAfterGrace(t *testing.T) {
	requireShell(t)
	p, err := Exec{StopGrace: 200 * time.Millisecond}.Start(context.Background(),
		"sh", "-c", "trap '' INT; echo stubborn; while :; do sleep 1; done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := p.Stop(); !errors.Is(err, ErrKilled) {
		t.Fatalf("Stop err = %v, want ErrKilled", err)
	}
	out, err := p.Output()
	if err != nil || !strings.Contains(string(out), "stubborn") {
		t.Fatalf("Output = %q, %v", out, err)
	}
}
