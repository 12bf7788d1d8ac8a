// Package summary assembles the one-line run record and appends it to the
// summary log.
package summary

import (
	"strconv"
	"strings"
	"time"

	"github.com/NodePath81/fbperf/internal/extract"
	"github.com/NodePath81/fbperf/internal/util"
)

// TimestampLayout is the record timestamp format, also used to name captures.
const TimestampLayout = "2006-01-02_15-04-05"

// Status is the run outcome.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// Meta describes the run itself.
type Meta struct {
	Timestamp time.Time
	Host      string
	Port      int
	Duration  time.Duration
	Status    Status
}

// Measurements holds everything the extractors produced for one run.
type Measurements struct {
	Baseline extract.Latency
	Live     extract.Latency
	Post     extract.Latency
	UDP      extract.UDP
	TCP      extract.TCP
}

// Field is one key=value pair of the serialized record.
type Field struct {
	Key   string
	Value string
}

// Record is an assembled run summary. It has no exported fields and no
// mutating methods.
type Record struct {
	meta Meta
	m    Measurements
}

// Assemble builds a record. A run that is not OK carries no measurements.
func Assemble(meta Meta, m Measurements) Record {
	if meta.Status != StatusOK {
		meta.Status = StatusFail
		m = Skipped()
	}
	return Record{meta: meta, m: m}
}

// Skipped returns measurements whose every field is marked as not run.
func Skipped() Measurements {
	skipped := extract.Missing(extract.ErrSkipped)
	lat := extract.Latency{Avg: skipped, Loss: skipped}
	return Measurements{
		Baseline: lat,
		Live:     lat,
		Post:     lat,
		UDP:      extract.UDP{Bandwidth: skipped, Jitter: skipped, Loss: skipped},
		TCP:      extract.TCP{Bandwidth: skipped},
	}
}

func (r Record) Timestamp() time.Time { return r.meta.Timestamp }
func (r Record) Status() Status { return r.meta.Status }
func (r Record) Target() string { return util.NetJoin(r.meta.Host, r.meta.Port) }
func (r Record) Duration() time.Duration { return r.meta.Duration }
func (r Record) Measurements() Measurements { return r.m }
func (r Record) FormattedTimestamp() string { return r.meta.Timestamp.Format(TimestampLayout) }
func (r Record) durationToken() string { return strconv.Itoa(int(r.meta.Duration.Seconds())) + "s" }

// Fields returns the record in serialization order.
func (r Record) Fields() []Field {
	m := r.m
	return []Field{
		{"STATUS", string(r.meta.Status)},
		{"SERVER", r.Target()},
		{"DURATION", r.durationToken()},
		{"LATENCY", m.Baseline.Avg.String()},
		{"PING_LOSS", m.Baseline.Loss.String()},
		{"LIVE_LATENCY", m.Live.Avg.String()},
		{"LIVE_LOSS", m.Live.Loss.String()},
		{"POST_LATENCY", m.Post.Avg.String()},
		{"POST_LOSS", m.Post.Loss.String()},
		{"UDP_BW", m.UDP.Bandwidth.String()},
		{"UDP_JITTER", m.UDP.Jitter.String()},
		{"UDP_LOSS", m.UDP.Loss.String()},
		{"TCP_BW", m.TCP.Bandwidth.String()},
	}
}

// Line serializes the record without a trailing newline:
//
//	<timestamp> STATUS=.. SERVER=.. DURATION=..s LATENCY=.. PING_LOSS=.. LIVE_LATENCY=.. LIVE_LOSS=..
//	POST_LATENCY=.. POST_LOSS=.. UDP_BW=.. UDP_JITTER=.. UDP_LOSS=.. TCP_BW=..
func (r Record) Line() string {
	var b strings.Builder
	b.WriteString(r.FormattedTimestamp())
	for _, f := range r.Fields() {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(token(f.Value))
	}
	return b.String()
}

// token collapses whitespace runs so a value can never break the line apart.
// Bandwidths keep the single space between magnitude and unit.
func token(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return extract.Sentinel
	}
	return v
}
