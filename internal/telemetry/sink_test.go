package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "session.jsonl.zst")
	sink, err := NewSink(path)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}

	type record struct {
		Tick   int     `json:"tick"`
		AvgMs  float32 `json:"avg_ms"`
		Loaded int     `json:"loaded"`
	}
	want := []record{
		{Tick: 1, AvgMs: 8.2, Loaded: 10},
		{Tick: 2, AvgMs: 9.1, Loaded: 33},
		{Tick: 3, AvgMs: 7.7, Loaded: 33},
	}
	for _, r := range want {
		if err := sink.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open report file: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer zr.Close()

	var got []record
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var r record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal line %q: %v", sc.Text(), err)
		}
		got = append(got, r)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("record count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSinkWriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl.zst")
	sink, err := NewSink(path)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Write(map[string]int{"tick": 1}); err == nil {
		t.Fatal("write after close should fail")
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
