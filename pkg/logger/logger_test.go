package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithOrderID(context.Background(), "TL-123")
	ctx = logg.WithGateway(ctx, "payhere")
	logg.Info(ctx, "notification received")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["order_id"] != "TL-123" {
		t.Fatalf("order_id missing from log entry: %v", entry)
	}
	if entry["gateway"] != "payhere" {
		t.Fatalf("gateway missing from log entry: %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("service field missing: %v", entry)
	}
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: &buf})
	logg.Info(context.Background(), "should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %s", buf.String())
	}
	logg.Warn(context.Background(), "should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatal("warn line missing")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug not parsed")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty should default to info")
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("unknown should default to info")
	}
}
