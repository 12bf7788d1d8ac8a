package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NodePath81/fbperf/internal/summary"
	"github.com/NodePath81/fbperf/internal/util"
)

func testRecord() summary.Record {
	return summary.Assemble(summary.Meta{
		Timestamp: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		Host:      "192.0.2.10",
		Port:      5201,
		Duration:  time.Minute,
		Status:    summary.StatusFail,
	}, summary.Measurements{})
}

func TestReportPrintsRecord(t *testing.T) {
	var buf bytes.Buffer
	if code := report(&buf, testRecord(), nil, util.Discard()); code != 0 {
		t.Fatalf("report = %d, want 0", code)
	}
	if want := "[RESULT] " + testRecord().Line() + "\n"; buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestReportPrintsRecordWhenAppendFails(t *testing.T) {
	var buf bytes.Buffer
	code := report(&buf, testRecord(), errors.New("append summary: read-only file system"), util.Discard())
	if code != 1 {
		t.Fatalf("report = %d, want 1", code)
	}
	if !strings.HasPrefix(buf.String(), "[RESULT] 2024-03-05_14-07-09 STATUS=FAIL SERVER=192.0.2.10:5201 ") {
		t.Fatalf("output = %q, want the record", buf.String())
	}
}

func TestReportWithoutRecord(t *testing.T) {
	var buf bytes.Buffer
	if code := report(&buf, summary.Record{}, errors.New("open summary log"), util.Discard()); code != 1 {
		t.Fatalf("report = %d, want 1", code)
	}
	if buf.Len() != 0 {
		t.Fatalf("output = %q, want nothing", buf.String())
	}
}
