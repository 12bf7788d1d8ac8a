package app

import (
	"context"
	"runtime"
	"time"

	"github.com/NodePath81/fbperf/internal/config"
	"github.com/NodePath81/fbperf/internal/summary"
	"github.com/NodePath81/fbperf/internal/util"
)

// Overrides are command line values layered over the config file. Zero
// values leave the file's setting alone.
type Overrides struct {
	Host         string
	Port         int
	Duration     time.Duration
	Direction    string
	UDPBandwidth string
	Platform     string
	Debug        bool
}

func (o Overrides) Apply(cfg *config.Config) {
	if o.Host != "" {
		cfg.Target.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Target.Port = o.Port
	}
	if o.Duration != 0 {
		cfg.Test.Duration = config.Duration(o.Duration)
	}
	if o.Direction != "" {
		cfg.Test.Direction = o.Direction
	}
	if o.UDPBandwidth != "" {
		cfg.Test.UDPBandwidth = o.UDPBandwidth
	}
	if o.Platform != "" {
		cfg.Platform = o.Platform
	}
	if o.Debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
}

// LoadConfig reads configPath when set, applies the overrides and validates
// the result for the host OS.
func LoadConfig(configPath string, o Overrides) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		var err error
		cfg, err = config.ReadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Finalize(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ResolvePlatform(runtime.GOOS); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Supervisor owns the lifecycle of a single run.
type Supervisor struct {
	cfg     config.Config
	logger  util.Logger
	runtime *Runtime
}

func NewSupervisor(cfg config.Config, logger util.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, logger: logger}
}

func (s *Supervisor) Start() error {
	rt, err := NewRuntime(s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.runtime = rt
	return nil
}

// Runtime is nil until Start succeeds.
func (s *Supervisor) Runtime() *Runtime {
	return s.runtime
}

// Run performs the test. ctx cancellation skips the remaining phases but a
// record is still written.
func (s *Supervisor) Run(ctx context.Context) (summary.Record, error) {
	if s.runtime == nil {
		if err := s.Start(); err != nil {
			return summary.Record{}, err
		}
	}
	return s.runtime.Run(ctx)
}

func (s *Supervisor) Stop() {
	if s.runtime == nil {
		return
	}
	if err := s.runtime.Close(); err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}
	s.runtime = nil
}
