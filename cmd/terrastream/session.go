package main

import (
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"terrastream/internal/diag"
	"terrastream/internal/lod"
	"terrastream/internal/meshing"
	"terrastream/internal/profiling"
	"terrastream/internal/streaming"
	"terrastream/internal/telemetry"
	"terrastream/internal/voxel"
)

// reportEvery is the tick interval between diagnostic reports.
const reportEvery = 60

// Session drives the streaming pipeline tick by tick: camera movement,
// chunk residency, meshing, detail tiers, and diagnostics.
type Session struct {
	cfg      streaming.Config
	streamer *streaming.Streamer
	pool     *meshing.MeshPool
	lod      *lod.Manager
	diag     *diag.Diagnostics
	sink     *telemetry.Sink

	meshes    map[voxel.ChunkCoord]*meshing.ChunkMesh
	meshBytes int

	cameraPos mgl32.Vec3
	cameraDir mgl32.Vec3
	tick      int
}

// NewSession wires the pipeline together. sink may be nil when no report
// file was requested.
func NewSession(cfg streaming.Config, streamer *streaming.Streamer, pool *meshing.MeshPool, sink *telemetry.Sink) *Session {
	return &Session{
		cfg:      cfg,
		streamer: streamer,
		pool:     pool,
		lod:      lod.NewManager(cfg.ChunkSize, cfg.LodThresholds),
		diag:     diag.New(cfg.HitchThresholdMs, cfg.FrameHistory),
		sink:     sink,
		meshes:   make(map[voxel.ChunkCoord]*meshing.ChunkMesh),
	}
}

// moveCamera advances the viewpoint along a slow circuit over the terrain
// so the run exercises loading, prefetch, and eviction.
func (s *Session) moveCamera() {
	t := float32(s.tick) * 0.01
	radius := 6 * s.cfg.ChunkSize
	s.cameraPos = mgl32.Vec3{
		radius * float32(math.Cos(float64(t))),
		64,
		radius * float32(math.Sin(float64(t))),
	}
	s.cameraDir = mgl32.Vec3{
		-float32(math.Sin(float64(t))),
		0,
		float32(math.Cos(float64(t))),
	}
}

// Tick runs one frame of the pipeline.
func (s *Session) Tick() {
	start := time.Now()
	profiling.ResetFrame()
	s.tick++

	s.moveCamera()
	s.streamer.UpdateCamera(s.cameraPos, s.cameraDir)
	s.streamer.RequestChunksAroundCamera()
	s.streamer.ProcessLoadQueue()
	s.streamer.CollectCompleted()
	s.streamer.UnloadDistantChunks(s.cameraPos)

	s.submitDirtyChunks()
	s.collectMeshes()
	s.pruneMeshes()

	loaded := s.streamer.LoadedChunkCoords()
	s.lod.UpdateAll(loaded, s.cameraPos)

	s.diag.UpdateChunkStates(loaded, s.streamer.LoadingChunkCoords(), s.streamer.QueuedChunkCoords())
	s.diag.UpdateMemory(len(loaded)*voxel.BytesPerChunk, s.meshBytes)
	s.diag.SetStreamingStats(s.streamer.Stats())
	s.diag.SetLodStats(s.lod.Stats(), s.lod.Tracked())

	frameMs := float32(time.Since(start).Microseconds()) / 1000
	s.streamer.SetFrameTime(frameMs)
	if s.diag.RecordFrame(frameMs) {
		log.Printf("hitch: tick %d took %.2fms (%s)", s.tick, frameMs, profiling.TopN(3))
	}

	if s.tick%reportEvery == 0 {
		s.report()
	}
}

// submitDirtyChunks queues freshly loaded or edited chunks for remeshing.
// A full mesh queue just defers the chunk to the next tick.
func (s *Session) submitDirtyChunks() {
	defer profiling.Track("session.submitDirtyChunks")()
	store := s.streamer.Store()
	for _, c := range s.streamer.LoadedChunkCoords() {
		chunk := s.streamer.Chunk(c)
		if chunk == nil || !chunk.IsDirty() {
			continue
		}
		coord := c
		job := meshing.MeshJob{
			Chunk: chunk,
			Sample: func(x, y, z int) (voxel.Voxel, bool) {
				return store.VoxelRelative(coord, x, y, z)
			},
		}
		if s.pool.Submit(job) {
			chunk.MarkClean()
		}
	}
}

// collectMeshes drains finished meshes without blocking.
func (s *Session) collectMeshes() {
	defer profiling.Track("session.collectMeshes")()
	for {
		select {
		case res := <-s.pool.Results():
			if old, ok := s.meshes[res.Coord]; ok {
				s.meshBytes -= old.MemoryUsage()
			}
			s.meshes[res.Coord] = res.Mesh
			s.meshBytes += res.Mesh.MemoryUsage()
		default:
			return
		}
	}
}

// pruneMeshes drops meshes whose chunks were evicted.
func (s *Session) pruneMeshes() {
	defer profiling.Track("session.pruneMeshes")()
	for c, m := range s.meshes {
		if !s.streamer.IsLoaded(c) {
			s.meshBytes -= m.MemoryUsage()
			delete(s.meshes, c)
		}
	}
}

func (s *Session) report() {
	r := s.diag.GenerateReport()
	log.Printf("tick %d: %s", s.tick, r.Summary())
	if s.sink != nil {
		if err := s.sink.Write(r); err != nil {
			log.Printf("telemetry: %v", err)
		}
	}
}

// Run executes n ticks and emits a final report.
func (s *Session) Run(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
	s.report()
}
