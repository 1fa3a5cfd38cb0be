package diag

import (
	"fmt"
	"time"

	"terrastream/internal/lod"
	"terrastream/internal/streaming"
	"terrastream/internal/voxel"
)

// ChunkState is the streaming lifecycle stage of a chunk as seen by the
// diagnostics overlay.
type ChunkState uint8

const (
	StateLoaded ChunkState = iota
	StateLoading
	StatePending
)

func (s ChunkState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateLoading:
		return "loading"
	case StatePending:
		return "pending"
	}
	return "unknown"
}

// Diagnostics aggregates frame timing, memory, streaming, and detail-tier
// telemetry into periodic reports. Updated once per tick from the driver;
// not safe for concurrent use.
type Diagnostics struct {
	hitches *HitchDetector
	memory  MemoryStats

	chunkStates map[voxel.ChunkCoord]ChunkState
	streaming   streaming.Stats
	lodCounts   [lod.NumLevels]int
	lodTracked  int
}

// New builds a diagnostics aggregator with the given hitch threshold and
// rolling frame window.
func New(hitchThresholdMs float32, frameWindow int) *Diagnostics {
	return &Diagnostics{
		hitches:     NewHitchDetector(hitchThresholdMs, frameWindow),
		chunkStates: make(map[voxel.ChunkCoord]ChunkState),
	}
}

// RecordFrame feeds a frame time into the rolling window and reports
// whether it was a hitch.
func (d *Diagnostics) RecordFrame(frameTimeMs float32) bool {
	return d.hitches.RecordFrame(frameTimeMs)
}

// UpdateMemory records current voxel and mesh byte counts.
func (d *Diagnostics) UpdateMemory(voxelBytes, meshBytes int) {
	d.memory.Update(voxelBytes, meshBytes)
}

// UpdateChunkStates rebuilds the per-chunk lifecycle overlay from the
// streamer's resident, in-flight, and queued sets.
func (d *Diagnostics) UpdateChunkStates(loaded, loading, pending []voxel.ChunkCoord) {
	next := make(map[voxel.ChunkCoord]ChunkState, len(loaded)+len(loading)+len(pending))
	for _, c := range loaded {
		next[c] = StateLoaded
	}
	for _, c := range loading {
		next[c] = StateLoading
	}
	for _, c := range pending {
		next[c] = StatePending
	}
	d.chunkStates = next
}

// ChunkState returns a chunk's lifecycle stage; false means the chunk is
// unloaded and untracked.
func (d *Diagnostics) ChunkState(coord voxel.ChunkCoord) (ChunkState, bool) {
	s, ok := d.chunkStates[coord]
	return s, ok
}

// SetStreamingStats records the latest streaming snapshot.
func (d *Diagnostics) SetStreamingStats(st streaming.Stats) {
	d.streaming = st
}

// SetLodStats records the latest per-tier chunk counts.
func (d *Diagnostics) SetLodStats(counts [lod.NumLevels]int, tracked int) {
	d.lodCounts = counts
	d.lodTracked = tracked
}

// FrameStatsReport summarizes the rolling frame window.
type FrameStatsReport struct {
	AverageMs  float32 `json:"average_ms"`
	P95Ms      float32 `json:"p95_ms"`
	P99Ms      float32 `json:"p99_ms"`
	HitchCount int     `json:"hitch_count"`
	HitchRate  float32 `json:"hitch_rate"`
	Samples    int     `json:"samples"`
}

// MemoryReport summarizes the memory footprint.
type MemoryReport struct {
	TotalMB              float32 `json:"total_mb"`
	PeakMB               float32 `json:"peak_mb"`
	DeltaFromPeakPercent float32 `json:"delta_from_peak_percent"`
}

// StreamingReport summarizes the streamer snapshot.
type StreamingReport struct {
	LoadedChunks         int     `json:"loaded_chunks"`
	PendingLoads         int     `json:"pending_loads"`
	ActiveLoads          int     `json:"active_loads"`
	FailedLoads          uint64  `json:"failed_loads"`
	MemoryUsageMB        float32 `json:"memory_usage_mb"`
	Throttled            bool    `json:"throttled"`
	EffectiveConcurrency int     `json:"effective_concurrency"`
}

// LodReport summarizes the detail-tier distribution.
type LodReport struct {
	FullChunks    int `json:"full_chunks"`
	HalfChunks    int `json:"half_chunks"`
	QuarterChunks int `json:"quarter_chunks"`
	SkyboxChunks  int `json:"skybox_chunks"`
	Tracked       int `json:"tracked"`
}

// ChunkCountsReport summarizes the lifecycle overlay.
type ChunkCountsReport struct {
	Loaded  int `json:"loaded"`
	Loading int `json:"loading"`
	Pending int `json:"pending"`
}

// Report is a point-in-time diagnostic snapshot, shaped for the telemetry
// sink.
type Report struct {
	Timestamp   time.Time         `json:"timestamp"`
	FrameStats  FrameStatsReport  `json:"frame_stats"`
	Memory      MemoryReport      `json:"memory"`
	Streaming   StreamingReport   `json:"streaming"`
	Lod         LodReport         `json:"lod"`
	ChunkCounts ChunkCountsReport `json:"chunk_counts"`
}

// GenerateReport snapshots all telemetry.
func (d *Diagnostics) GenerateReport() Report {
	var counts ChunkCountsReport
	for _, s := range d.chunkStates {
		switch s {
		case StateLoaded:
			counts.Loaded++
		case StateLoading:
			counts.Loading++
		case StatePending:
			counts.Pending++
		}
	}

	return Report{
		Timestamp: time.Now().UTC(),
		FrameStats: FrameStatsReport{
			AverageMs:  d.hitches.Average(),
			P95Ms:      d.hitches.P95(),
			P99Ms:      d.hitches.P99(),
			HitchCount: d.hitches.HitchCount(),
			HitchRate:  d.hitches.HitchRate(),
			Samples:    d.hitches.SampleCount(),
		},
		Memory: MemoryReport{
			TotalMB:              d.memory.TotalMB(),
			PeakMB:               d.memory.PeakMB(),
			DeltaFromPeakPercent: d.memory.DeltaFromPeakPercent(),
		},
		Streaming: StreamingReport{
			LoadedChunks:         d.streaming.LoadedChunkCount,
			PendingLoads:         d.streaming.PendingLoadCount,
			ActiveLoads:          d.streaming.ActiveLoadCount,
			FailedLoads:          d.streaming.FailedLoads,
			MemoryUsageMB:        d.streaming.MemoryUsageMB,
			Throttled:            d.streaming.Throttled,
			EffectiveConcurrency: d.streaming.EffectiveConcurrency,
		},
		Lod: LodReport{
			FullChunks:    d.lodCounts[lod.Full],
			HalfChunks:    d.lodCounts[lod.Half],
			QuarterChunks: d.lodCounts[lod.Quarter],
			SkyboxChunks:  d.lodCounts[lod.Skybox],
			Tracked:       d.lodTracked,
		},
		ChunkCounts: counts,
	}
}

// Summary renders a one-line digest for the session log.
func (r Report) Summary() string {
	return fmt.Sprintf("frames avg %.2fms p99 %.2fms hitches %d (%.1f%%) | chunks %d loaded %d loading %d pending | mem %.1fMB (peak %.1fMB) | lod %d/%d/%d/%d",
		r.FrameStats.AverageMs, r.FrameStats.P99Ms, r.FrameStats.HitchCount, r.FrameStats.HitchRate*100,
		r.ChunkCounts.Loaded, r.ChunkCounts.Loading, r.ChunkCounts.Pending,
		r.Memory.TotalMB, r.Memory.PeakMB,
		r.Lod.FullChunks, r.Lod.HalfChunks, r.Lod.QuarterChunks, r.Lod.SkyboxChunks)
}
