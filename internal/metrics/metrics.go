// Package metrics exports the last run as Prometheus gauges in the node
// exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NodePath81/fbperf/internal/extract"
	"github.com/NodePath81/fbperf/internal/summary"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fbperf"

type Metrics struct {
	registry *prometheus.Registry

	lastRun   *prometheus.GaugeVec
	success   *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	latency   *prometheus.GaugeVec
	pingLoss  *prometheus.GaugeVec
	bandwidth *prometheus.GaugeVec
	jitter    *prometheus.GaugeVec
	udpLoss   *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}, []string{"server"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run reached the server, 0 otherwise.",
		}, []string{"server"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "test_duration_seconds",
			Help:      "Configured throughput test duration.",
		}, []string{"server"}),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latency_avg_ms",
			Help:      "Average ping round-trip time per phase.",
		}, []string{"server", "phase"}),
		pingLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ping_loss_percent",
			Help:      "Ping packet loss per phase.",
		}, []string{"server", "phase"}),
		bandwidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bandwidth_bits_per_second",
			Help:      "Throughput reported by iperf3.",
		}, []string{"server", "protocol", "direction"}),
		jitter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "udp_jitter_ms",
			Help:      "UDP jitter reported by iperf3.",
		}, []string{"server"}),
		udpLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "udp_loss_percent",
			Help:      "UDP datagram loss reported by iperf3.",
		}, []string{"server"}),
	}
	m.registry.MustRegister(m.lastRun, m.success, m.duration, m.latency, m.pingLoss, m.bandwidth, m.jitter, m.udpLoss)
	return m
}

// Observe records a run. Unavailable values leave their series absent.
func (m *Metrics) Observe(rec summary.Record, dir extract.Direction) {
	server := rec.Target()
	m.lastRun.WithLabelValues(server).Set(float64(rec.Timestamp().Unix()))
	m.duration.WithLabelValues(server).Set(rec.Duration().Seconds())
	if rec.Status() != summary.StatusOK {
		m.success.WithLabelValues(server).Set(0)
		return
	}
	m.success.WithLabelValues(server).Set(1)

	ms := rec.Measurements()
	phases := []struct {
		name string
		lat  extract.Latency
	}{
		{"baseline", ms.Baseline},
		{"live", ms.Live},
		{"post", ms.Post},
	}
	for _, p := range phases {
		setIfOK(m.latency, p.lat.Avg, server, p.name)
		setIfOK(m.pingLoss, p.lat.Loss, server, p.name)
	}
	setIfOK(m.bandwidth, ms.UDP.Bandwidth, server, "udp", dir.String())
	setIfOK(m.bandwidth, ms.TCP.Bandwidth, server, "tcp", dir.String())
	setIfOK(m.jitter, ms.UDP.Jitter, server)
	setIfOK(m.udpLoss, ms.UDP.Loss, server)
}

// setIfOK creates the series only when v parsed.
func setIfOK(vec *prometheus.GaugeVec, v extract.Value, labels ...string) {
	if v.OK() {
		vec.WithLabelValues(labels...).Set(v.Num)
	}
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile atomically replaces path with the current exposition.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %q: %w", path, err)
	}
	return nil
}
