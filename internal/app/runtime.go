package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/NodePath81/fbperf/internal/capture"
	"github.com/NodePath81/fbperf/internal/command"
	"github.com/NodePath81/fbperf/internal/config"
	"github.com/NodePath81/fbperf/internal/measure"
	"github.com/NodePath81/fbperf/internal/metrics"
	"github.com/NodePath81/fbperf/internal/summary"
	"github.com/NodePath81/fbperf/internal/util"
	"github.com/google/uuid"
)

// Runtime performs one run: coordinate the phases, append the record and
// export metrics.
type Runtime struct {
	cfg     config.Config
	logger  util.Logger
	runID   string
	sink    *summary.Sink
	metrics *metrics.Metrics

	// Runner and Resolver replace the real tool and DNS access when set.
	Runner   command.Runner
	Resolver measure.Resolver
	Now      func() time.Time
}

func NewRuntime(cfg config.Config, logger util.Logger) (*Runtime, error) {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	sinkCfg := summary.SinkConfig{
		Dir:        cfg.Log.Dir,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if sinkCfg.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		sinkCfg.Dir, sinkCfg.FallbackDir = summary.DefaultLogDirs(os.Geteuid(), home)
	}
	sink, err := summary.OpenSink(sinkCfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("summary log opened", "path", sink.Path())

	rt := &Runtime{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		sink:   sink,
		Runner: command.Exec{StopGrace: cfg.Run.StopGrace.Duration()},
		Now:    time.Now,
	}
	if cfg.Metrics.Textfile != "" {
		rt.metrics = metrics.NewMetrics()
	}
	return rt, nil
}

func (rt *Runtime) RunID() string {
	return rt.runID
}

// SummaryPath is the summary log the record is appended to.
func (rt *Runtime) SummaryPath() string {
	return rt.sink.Path()
}

// Run executes the test and appends its record. The record is returned even
// when appending fails.
func (rt *Runtime) Run(ctx context.Context) (summary.Record, error) {
	if limit := rt.cfg.Run.MaxRuntime.Duration(); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	start := rt.Now()
	store := capture.NewStore(rt.cfg.Capture.Dir, start.Format(summary.TimestampLayout), rt.cfg.KeepCaptures())
	defer func() {
		if err := store.Cleanup(); err != nil {
			rt.logger.Warn("capture cleanup failed", "error", err)
		}
	}()

	rt.logger.Info("test started",
		"target", rt.cfg.TargetAddr(),
		"duration", rt.cfg.Test.Duration.Duration(),
		"direction", rt.cfg.Direction.String(),
		"platform", rt.cfg.PlatformTag.String(),
	)
	coord := measure.NewCoordinator(rt.cfg, rt.Runner, store, rt.logger)
	if rt.Resolver != nil {
		coord.Resolver = rt.Resolver
	}
	coord.Now = func() time.Time { return start }
	res := coord.Run(ctx)

	if err := rt.sink.Append(res.Record); err != nil {
		return res.Record, err
	}
	rt.logger.Info("summary appended", "status", string(res.Record.Status()), "path", rt.sink.Path())
	if rt.cfg.KeepCaptures() {
		for _, p := range store.Paths() {
			rt.logger.Info("capture kept", "path", p)
		}
	}

	if rt.metrics != nil {
		rt.metrics.Observe(res.Record, rt.cfg.Direction)
		if err := rt.metrics.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
			rt.logger.Warn("metrics export failed", "error", err)
		}
	}
	return res.Record, nil
}

func (rt *Runtime) Close() error {
	if err := rt.sink.Close(); err != nil {
		return fmt.Errorf("close summary log: %w", err)
	}
	return nil
}
