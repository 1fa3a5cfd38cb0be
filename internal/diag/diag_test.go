package diag

import (
	"encoding/json"
	"strings"
	"testing"

	"terrastream/internal/lod"
	"terrastream/internal/streaming"
	"terrastream/internal/voxel"
)

func TestHitchDetection(t *testing.T) {
	h := NewHitchDetector(16.67, 10)

	if h.RecordFrame(10) {
		t.Fatal("10ms frame should not be a hitch at a 16.67ms threshold")
	}
	if !h.RecordFrame(30) {
		t.Fatal("30ms frame should be a hitch")
	}
	if h.RecordFrame(16.67) {
		t.Fatal("frame exactly at the threshold is not a hitch")
	}
	if h.HitchCount() != 1 {
		t.Fatalf("hitch count: got %d, want 1", h.HitchCount())
	}
}

func TestHitchWindowEviction(t *testing.T) {
	h := NewHitchDetector(16.67, 4)
	h.RecordFrame(30) // hitch, will age out
	h.RecordFrame(10)
	h.RecordFrame(10)
	h.RecordFrame(10)
	if h.HitchCount() != 1 {
		t.Fatalf("hitch count before eviction: got %d, want 1", h.HitchCount())
	}

	// Window is full; this pushes the hitch frame out.
	h.RecordFrame(10)
	if h.HitchCount() != 0 {
		t.Fatalf("hitch count after eviction: got %d, want 0", h.HitchCount())
	}
	if h.SampleCount() != 4 {
		t.Fatalf("sample count: got %d, want 4", h.SampleCount())
	}
}

func TestHitchRate(t *testing.T) {
	h := NewHitchDetector(16.67, 100)
	for i := 0; i < 9; i++ {
		h.RecordFrame(10)
	}
	h.RecordFrame(30)
	if got := h.HitchRate(); got != 0.1 {
		t.Fatalf("hitch rate: got %v, want 0.1", got)
	}
}

func TestPercentilesNearestRank(t *testing.T) {
	h := NewHitchDetector(16.67, 100)
	// 99 fast frames and one slow: p99 is the 99th of 100 sorted values.
	for i := 0; i < 99; i++ {
		h.RecordFrame(10)
	}
	h.RecordFrame(100)

	if got := h.P99(); got != 10 {
		t.Fatalf("p99: got %v, want 10", got)
	}
	if got := h.Average(); got != 10.9 {
		t.Fatalf("average: got %v, want 10.9", got)
	}

	// With two slow frames the 99th rank lands on one of them.
	h2 := NewHitchDetector(16.67, 100)
	for i := 0; i < 98; i++ {
		h2.RecordFrame(10)
	}
	h2.RecordFrame(100)
	h2.RecordFrame(100)
	if got := h2.P99(); got != 100 {
		t.Fatalf("p99 with two outliers: got %v, want 100", got)
	}
}

func TestPercentileEmptyWindow(t *testing.T) {
	h := NewHitchDetector(16.67, 10)
	if h.P99() != 0 || h.Average() != 0 || h.HitchRate() != 0 {
		t.Fatal("empty window must report zeros")
	}
}

func TestMemoryPeakTracking(t *testing.T) {
	var m MemoryStats
	m.Update(100*1024*1024, 50*1024*1024)
	if got := m.TotalMB(); got != 150 {
		t.Fatalf("total: got %v MB, want 150", got)
	}
	if got := m.PeakMB(); got != 150 {
		t.Fatalf("peak: got %v MB, want 150", got)
	}

	// Usage halves; the peak must hold and the delta reflect the drop.
	m.Update(50*1024*1024, 25*1024*1024)
	if got := m.PeakMB(); got != 150 {
		t.Fatalf("peak after drop: got %v MB, want 150", got)
	}
	if got := m.DeltaFromPeakPercent(); got != 50 {
		t.Fatalf("delta from peak: got %v%%, want 50%%", got)
	}
}

func TestMemoryDeltaZeroWithoutPeak(t *testing.T) {
	var m MemoryStats
	if got := m.DeltaFromPeakPercent(); got != 0 {
		t.Fatalf("delta with no samples: got %v, want 0", got)
	}
}

func TestChunkStateOverlay(t *testing.T) {
	d := New(16.67, 240)

	a := voxel.Coord(0, 0, 0)
	b := voxel.Coord(1, 0, 0)
	c := voxel.Coord(2, 0, 0)
	d.UpdateChunkStates(
		[]voxel.ChunkCoord{a},
		[]voxel.ChunkCoord{b},
		[]voxel.ChunkCoord{c},
	)

	if s, ok := d.ChunkState(a); !ok || s != StateLoaded {
		t.Fatalf("chunk a: got %v/%v, want loaded", s, ok)
	}
	if s, ok := d.ChunkState(b); !ok || s != StateLoading {
		t.Fatalf("chunk b: got %v/%v, want loading", s, ok)
	}
	if s, ok := d.ChunkState(c); !ok || s != StatePending {
		t.Fatalf("chunk c: got %v/%v, want pending", s, ok)
	}
	if _, ok := d.ChunkState(voxel.Coord(9, 9, 9)); ok {
		t.Fatal("untracked chunk should report unloaded")
	}

	// Next tick: b finished loading, c started, a evicted.
	d.UpdateChunkStates(
		[]voxel.ChunkCoord{b},
		[]voxel.ChunkCoord{c},
		nil,
	)
	if _, ok := d.ChunkState(a); ok {
		t.Fatal("evicted chunk must leave the overlay")
	}
	if s, _ := d.ChunkState(b); s != StateLoaded {
		t.Fatal("chunk b should have advanced to loaded")
	}
}

func TestGenerateReport(t *testing.T) {
	d := New(16.67, 240)
	for i := 0; i < 10; i++ {
		d.RecordFrame(10)
	}
	d.RecordFrame(40)
	d.UpdateMemory(64*1024*1024, 16*1024*1024)
	d.UpdateChunkStates(
		[]voxel.ChunkCoord{voxel.Coord(0, 0, 0), voxel.Coord(1, 0, 0)},
		[]voxel.ChunkCoord{voxel.Coord(2, 0, 0)},
		nil,
	)
	d.SetStreamingStats(streaming.Stats{
		LoadedChunkCount: 2,
		ActiveLoadCount:  1,
		Throttled:        true,
	})
	d.SetLodStats([lod.NumLevels]int{2, 0, 0, 0}, 2)

	r := d.GenerateReport()
	if r.FrameStats.HitchCount != 1 {
		t.Fatalf("report hitch count: got %d, want 1", r.FrameStats.HitchCount)
	}
	if r.Memory.TotalMB != 80 {
		t.Fatalf("report memory: got %v, want 80", r.Memory.TotalMB)
	}
	if r.ChunkCounts.Loaded != 2 || r.ChunkCounts.Loading != 1 || r.ChunkCounts.Pending != 0 {
		t.Fatalf("report chunk counts: got %+v", r.ChunkCounts)
	}
	if !r.Streaming.Throttled {
		t.Fatal("report should carry the throttled flag")
	}
	if r.Lod.FullChunks != 2 {
		t.Fatalf("report lod full count: got %d, want 2", r.Lod.FullChunks)
	}
	if r.Timestamp.IsZero() {
		t.Fatal("report must be timestamped")
	}
}

func TestReportJSONShape(t *testing.T) {
	d := New(16.67, 240)
	d.RecordFrame(10)
	raw, err := json.Marshal(d.GenerateReport())
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	for _, key := range []string{"frame_stats", "memory", "streaming", "lod", "chunk_counts", "p99_ms", "hitch_count"} {
		if !strings.Contains(string(raw), `"`+key+`"`) {
			t.Fatalf("report json missing %q: %s", key, raw)
		}
	}
}

func TestReportSummaryLine(t *testing.T) {
	d := New(16.67, 240)
	d.RecordFrame(10)
	s := d.GenerateReport().Summary()
	if !strings.Contains(s, "loaded") || !strings.Contains(s, "MB") {
		t.Fatalf("summary missing expected fields: %q", s)
	}
}
