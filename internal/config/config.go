package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NodePath81/fbperf/internal/extract"
	"github.com/NodePath81/fbperf/internal/platform"
	"github.com/NodePath81/fbperf/internal/util"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost         = "192.168.1.100"
	defaultPort         = 5201
	defaultDuration     = 60 * time.Second
	defaultDirection    = "upload"
	defaultUDPBandwidth = "1000m"
	defaultPlatform     = "auto"

	defaultReachabilityMethod    = ReachabilityPing
	defaultReachabilityCount     = 3
	defaultReachabilityThreshold = 1.0
	defaultReachabilityTimeout   = 10 * time.Second

	defaultLatencyInterval = 1 * time.Second

	defaultTimeoutMargin = 30 * time.Second
	defaultStopGrace     = 3 * time.Second

	defaultPingTool   = "ping"
	defaultIperf3Tool = "iperf3"

	defaultMTUCheckEnabled = true

	ReachabilityPing = "ping"
	ReachabilityICMP = "icmp"
)

// AllowedDurations are the supported test lengths.
var AllowedDurations = []time.Duration{60 * time.Second, 300 * time.Second, 600 * time.Second}

type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	switch value.Tag {
	case "!!int", "!!float":
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	default:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if raw == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Target       TargetConfig       `yaml:"target"`
	Test         TestConfig         `yaml:"test"`
	Platform     string             `yaml:"platform"`
	Reachability ReachabilityConfig `yaml:"reachability"`
	Latency      LatencyConfig      `yaml:"latency"`
	Run          RunConfig          `yaml:"run"`
	Tools        ToolsConfig        `yaml:"tools"`
	Log          LogConfig          `yaml:"log"`
	Capture      CaptureConfig      `yaml:"capture"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	MTUCheck     MTUCheckConfig     `yaml:"mtu_check"`
	Debug        bool               `yaml:"debug"`

	PlatformTag platform.Tag      `yaml:"-"`
	Direction   extract.Direction `yaml:"-"`
}

type TargetConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TestConfig struct {
	Duration     Duration `yaml:"duration"`
	Direction    string   `yaml:"direction"`
	UDPBandwidth string   `yaml:"udp_bandwidth"`

	UDPBandwidthBits uint64 `yaml:"-"`
}

type ReachabilityConfig struct {
	Method           string   `yaml:"method"`
	Count            int      `yaml:"count"`
	LossThresholdPct *float64 `yaml:"loss_threshold_pct"`
	Timeout          Duration `yaml:"timeout"`
}

type LatencyConfig struct {
	BaselineCount int      `yaml:"baseline_count"`
	PostCount     int      `yaml:"post_count"`
	Interval      Duration `yaml:"interval"`
}

type RunConfig struct {
	TimeoutMargin Duration `yaml:"timeout_margin"`
	StopGrace     Duration `yaml:"stop_grace"`
	MaxRuntime    Duration `yaml:"max_runtime"`
}

type ToolsConfig struct {
	Ping   string `yaml:"ping"`
	Iperf3 string `yaml:"iperf3"`
}

type LogConfig struct {
	Dir        string `yaml:"dir"`
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type CaptureConfig struct {
	Dir  string `yaml:"dir"`
	Keep *bool  `yaml:"keep"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type MTUCheckConfig struct {
	Enabled *bool `yaml:"enabled"`
}

func (m MTUCheckConfig) IsEnabled() bool {
	return util.BoolValue(m.Enabled, defaultMTUCheckEnabled)
}

// KeepCaptures reports whether raw captures survive the run. Debug runs keep
// them unless capture.keep says otherwise.
func (c Config) KeepCaptures() bool {
	return util.BoolValue(c.Capture.Keep, c.Debug)
}

// LossThreshold is the highest reachability loss, in percent, that still
// counts as reachable.
func (r ReachabilityConfig) LossThreshold() float64 {
	if r.LossThresholdPct == nil {
		return defaultReachabilityThreshold
	}
	return *r.LossThresholdPct
}

// BaselineCount is the number of baseline echo requests, half the test
// duration in seconds unless configured.
func (c Config) BaselineCount() int {
	if c.Latency.BaselineCount > 0 {
		return c.Latency.BaselineCount
	}
	return halfSeconds(c.Test.Duration.Duration())
}

func (c Config) PostCount() int {
	if c.Latency.PostCount > 0 {
		return c.Latency.PostCount
	}
	return c.BaselineCount()
}

// PhaseTimeout bounds one bounded invocation.
func (c Config) PhaseTimeout() time.Duration {
	return c.Test.Duration.Duration() + c.Run.TimeoutMargin.Duration()
}

func (c Config) TargetAddr() string {
	return util.NetJoin(c.Target.Host, c.Target.Port)
}

func halfSeconds(d time.Duration) int {
	n := int(d / time.Second / 2)
	if n < 1 {
		return 1
	}
	return n
}

// Default returns a validated configuration without reading a file.
func Default() (Config, error) {
	var cfg Config
	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadConfig decodes path without applying defaults, so command line
// overrides can be layered on before Finalize.
func ReadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Finalize fills defaults and validates. It is called again after command
// line overrides are applied.
func (c *Config) Finalize() error {
	c.setDefaults()
	return c.validate()
}

func (c *Config) setDefaults() {
	if strings.TrimSpace(c.Target.Host) == "" {
		c.Target.Host = defaultHost
	}
	if c.Target.Port == 0 {
		c.Target.Port = defaultPort
	}
	if c.Test.Duration == 0 {
		c.Test.Duration = Duration(defaultDuration)
	}
	if c.Test.Direction == "" {
		c.Test.Direction = defaultDirection
	}
	if c.Test.UDPBandwidth == "" {
		c.Test.UDPBandwidth = defaultUDPBandwidth
	}
	if c.Platform == "" {
		c.Platform = defaultPlatform
	}

	if c.Reachability.Method == "" {
		c.Reachability.Method = defaultReachabilityMethod
	}
	if c.Reachability.Count == 0 {
		c.Reachability.Count = defaultReachabilityCount
	}
	if c.Reachability.LossThresholdPct == nil {
		val := defaultReachabilityThreshold
		c.Reachability.LossThresholdPct = &val
	}
	if c.Reachability.Timeout == 0 {
		c.Reachability.Timeout = Duration(defaultReachabilityTimeout)
	}

	if c.Latency.Interval == 0 {
		c.Latency.Interval = Duration(defaultLatencyInterval)
	}

	if c.Run.TimeoutMargin == 0 {
		c.Run.TimeoutMargin = Duration(defaultTimeoutMargin)
	}
	if c.Run.StopGrace == 0 {
		c.Run.StopGrace = Duration(defaultStopGrace)
	}

	if c.Tools.Ping == "" {
		c.Tools.Ping = defaultPingTool
	}
	if c.Tools.Iperf3 == "" {
		c.Tools.Iperf3 = defaultIperf3Tool
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
		if c.Debug {
			c.Log.Level = "debug"
		}
	}

	if c.MTUCheck.Enabled == nil {
		val := defaultMTUCheckEnabled
		c.MTUCheck.Enabled = &val
	}
}

func (c *Config) validate() error {
	c.Target.Host = strings.TrimSpace(c.Target.Host)
	if strings.ContainsAny(c.Target.Host, " \t\r\n") {
		return fmt.Errorf("target.host must not contain whitespace: %q", c.Target.Host)
	}
	if c.Target.Port <= 0 || c.Target.Port > 65535 {
		return errors.New("target.port must be in 1..65535")
	}

	if !validDuration(c.Test.Duration.Duration()) {
		return fmt.Errorf("test.duration must be one of 60s, 300s, 600s (got %s)", c.Test.Duration.Duration())
	}
	dir, err := extract.ParseDirection(c.Test.Direction)
	if err != nil {
		return fmt.Errorf("test.direction: %w", err)
	}
	c.Direction = dir
	c.Test.Direction = dir.String()
	bits, err := ParseBandwidth(c.Test.UDPBandwidth)
	if err != nil {
		return fmt.Errorf("test.udp_bandwidth: %w", err)
	}
	if bits == 0 {
		return errors.New("test.udp_bandwidth must be > 0")
	}
	c.Test.UDPBandwidthBits = bits

	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	if c.Platform != "auto" {
		if _, err := platform.Parse(c.Platform); err != nil {
			return fmt.Errorf("platform: %w", err)
		}
	}

	c.Reachability.Method = strings.ToLower(strings.TrimSpace(c.Reachability.Method))
	if c.Reachability.Method != ReachabilityPing && c.Reachability.Method != ReachabilityICMP {
		return fmt.Errorf("reachability.method must be %s or %s", ReachabilityPing, ReachabilityICMP)
	}
	if c.Reachability.Count <= 0 {
		return errors.New("reachability.count must be > 0")
	}
	if t := c.Reachability.LossThreshold(); t < 0 || t > 100 {
		return errors.New("reachability.loss_threshold_pct must be in [0,100]")
	}
	if c.Reachability.Timeout.Duration() <= 0 {
		return errors.New("reachability.timeout must be > 0")
	}

	if c.Latency.BaselineCount < 0 || c.Latency.PostCount < 0 {
		return errors.New("latency.baseline_count and post_count must be >= 0")
	}
	if c.Latency.Interval.Duration() < 200*time.Millisecond {
		return errors.New("latency.interval must be >= 200ms")
	}

	if c.Run.TimeoutMargin.Duration() <= 0 || c.Run.StopGrace.Duration() <= 0 {
		return errors.New("run.timeout_margin and run.stop_grace must be > 0")
	}
	if c.Run.MaxRuntime.Duration() < 0 {
		return errors.New("run.max_runtime must be >= 0")
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return errors.New("log.max_size_mb and log.max_backups must be >= 0")
	}
	if c.Log.File != "" && filepath.Base(c.Log.File) != c.Log.File {
		return fmt.Errorf("log.file must be a file name, not a path: %q", c.Log.File)
	}
	return nil
}

func validDuration(d time.Duration) bool {
	for _, allowed := range AllowedDurations {
		if d == allowed {
			return true
		}
	}
	return false
}

// ResolvePlatform maps the platform setting to a tag, detecting from goos
// when it is auto.
func (c *Config) ResolvePlatform(goos string) error {
	tag, err := platform.Resolve(c.Platform, goos)
	if err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	c.PlatformTag = tag
	return nil
}
