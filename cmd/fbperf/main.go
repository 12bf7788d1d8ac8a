package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NodePath81/fbperf/internal/app"
	"github.com/NodePath81/fbperf/internal/config"
	"github.com/NodePath81/fbperf/internal/summary"
	"github.com/NodePath81/fbperf/internal/util"
	"github.com/NodePath81/fbperf/internal/version"
)

type runFlags struct {
	configPath   string
	overrides    app.Overrides
	durationSecs int
}

func newRunFlags(name string) (*flag.FlagSet, *runFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	rf := &runFlags{}
	fs.StringVar(&rf.configPath, "config", "", "Path to config file (optional)")
	fs.StringVar(&rf.overrides.Host, "server", "", "iperf3 server address")
	fs.IntVar(&rf.overrides.Port, "port", 0, "iperf3 server port")
	fs.IntVar(&rf.durationSecs, "duration", 0, "Test duration in seconds (60, 300 or 600)")
	fs.StringVar(&rf.overrides.Direction, "direction", "", "upload or download")
	fs.StringVar(&rf.overrides.UDPBandwidth, "udp-bandwidth", "", "UDP target bandwidth, e.g. 1000m")
	fs.StringVar(&rf.overrides.Platform, "os-mode", "", "Ping dialect: auto, linux or macos")
	fs.BoolVar(&rf.overrides.Debug, "debug", false, "Log raw tool output and keep captures")
	return fs, rf
}

func (rf *runFlags) load() (config.Config, error) {
	if rf.durationSecs != 0 {
		rf.overrides.Duration = time.Duration(rf.durationSecs) * time.Second
	}
	return app.LoadConfig(rf.configPath, rf.overrides)
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			fs, rf := newRunFlags("run")
			_ = fs.Parse(os.Args[2:])
			if rf.configPath == "" && fs.NArg() > 0 {
				rf.configPath = fs.Arg(0)
			}
			os.Exit(runTest(rf))
		case "check":
			fs, rf := newRunFlags("check")
			_ = fs.Parse(os.Args[2:])
			if rf.configPath == "" && fs.NArg() > 0 {
				rf.configPath = fs.Arg(0)
			}
			os.Exit(checkConfig(rf))
		case "help", "-h", "--help":
			printHelp()
			return
		case "version", "-v", "--version":
			fmt.Println(version.Version)
			return
		}
	}

	fs, rf := newRunFlags("fbperf")
	_ = fs.Parse(os.Args[1:])
	os.Exit(runTest(rf))
}

func runTest(rf *runFlags) int {
	cfg, err := rf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		return 1
	}
	logger := util.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor := app.NewSupervisor(cfg, logger)
	if err := supervisor.Start(); err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer supervisor.Stop()

	rec, err := supervisor.Run(ctx)
	return report(os.Stdout, rec, err, logger)
}

// report prints the record whenever one was produced, even if appending it
// to the summary log failed.
func report(w io.Writer, rec summary.Record, err error, logger util.Logger) int {
	if !rec.Timestamp().IsZero() {
		fmt.Fprintf(w, "[RESULT] %s\n", rec.Line())
	}
	if err != nil {
		logger.Error("summary not written", "error", err)
		return 1
	}
	return 0
}

func checkConfig(rf *runFlags) int {
	cfg, err := rf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		return 1
	}
	fmt.Printf("config valid: target %s, %s %s, platform %s, reachability %s\n",
		cfg.TargetAddr(), cfg.Test.Duration.Duration(), cfg.Direction, cfg.PlatformTag, cfg.Reachability.Method)
	return 0
}

func printHelp() {
	fmt.Print(`fbperf - network performance test (ping + iperf3)

Usage:
  fbperf run [flags]               Run one test and append the summary line
  fbperf check --config <path>     Validate config file and flags
  fbperf help                      Show this help
  fbperf version                   Print version

Flags:
  --config <path>         YAML config file
  --server <host>         iperf3 server (default 192.168.1.100)
  --port <n>              iperf3 port (default 5201)
  --duration <secs>       60, 300 or 600 (default 60)
  --direction <dir>       upload or download (default upload)
  --udp-bandwidth <bw>    UDP target rate (default 1000m)
  --os-mode <mode>        auto, linux or macos (default auto)
  --debug                 Log raw output and keep captures

Legacy:
  fbperf [flags]
`)
}
