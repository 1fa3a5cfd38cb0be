package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Sink appends diagnostic reports to a zstd-compressed JSONL file, one
// report per line. Safe for concurrent writes.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	zw   *zstd.Encoder
}

// NewSink creates (or truncates) the report file at path, creating parent
// directories as needed.
func NewSink(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create report file: %w", err)
	}
	buf := bufio.NewWriterSize(f, 64*1024)
	zw, err := zstd.NewWriter(buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("telemetry: init zstd writer: %w", err)
	}
	return &Sink{file: f, buf: buf, zw: zw}, nil
}

// Write appends one report as a JSON line.
func (s *Sink) Write(report any) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("telemetry: marshal report: %w", err)
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.zw == nil {
		return fmt.Errorf("telemetry: sink closed")
	}
	if _, err := s.zw.Write(raw); err != nil {
		return fmt.Errorf("telemetry: write report: %w", err)
	}
	return nil
}

// Close flushes and closes the compressed stream and the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.zw == nil {
		return nil
	}
	zerr := s.zw.Close()
	s.zw = nil
	ferr := s.buf.Flush()
	cerr := s.file.Close()
	if zerr != nil {
		return fmt.Errorf("telemetry: close zstd writer: %w", zerr)
	}
	if ferr != nil {
		return fmt.Errorf("telemetry: flush report file: %w", ferr)
	}
	if cerr != nil {
		return fmt.Errorf("telemetry: close report file: %w", cerr)
	}
	return nil
}
