package streaming

import (
	"log"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"terrastream/internal/profiling"
	"terrastream/internal/voxel"
)

// Generator produces voxel chunks on demand. Implementations must be safe
// for concurrent calls and deterministic for a given world seed; a call may
// be slow (hundreds of ms) and runs on its own goroutine.
type Generator interface {
	GenerateChunk(coord voxel.ChunkCoord) (*voxel.VoxelChunk, error)
}

// Stats is a snapshot of streaming health.
type Stats struct {
	LoadedChunkCount      int
	PendingLoadCount      int
	ActiveLoadCount       int
	MemoryUsageMB         float32
	ChunksLoadedThisTick  int
	ChunksEvictedThisTick int
	FailedLoads           uint64
	Throttled             bool
	EffectiveConcurrency  int
}

type loadRequest struct {
	coord    voxel.ChunkCoord
	distance float32
}

type completion struct {
	epoch uint64
	coord voxel.ChunkCoord
	chunk *voxel.VoxelChunk
	err   error
}

// Streamer schedules chunk residency around a moving camera: it computes
// the desired chunk set, runs generation under a bounded, adaptively
// throttled concurrency cap, integrates finished chunks, and evicts
// distant ones.
//
// All tick methods are called from a single logical driver per frame;
// generation tasks write only their private chunk and hand it off through
// the completion channel.
type Streamer struct {
	cfg   Config
	gen   Generator
	store *voxel.ChunkStore

	completed chan completion

	mu      sync.Mutex
	epoch   uint64
	queue   []loadRequest
	queued  map[voxel.ChunkCoord]struct{}
	active  map[voxel.ChunkCoord]struct{}

	lastAccess map[voxel.ChunkCoord]uint64
	accessTick uint64

	cameraPos mgl32.Vec3
	cameraDir mgl32.Vec3
	velocity  mgl32.Vec3

	emaFrameMs float32
	throttled  bool

	loadedThisTick  int
	evictedThisTick int
	failedLoads     uint64
}

// NewStreamer validates the config and builds a streamer. Configuration
// errors are fatal here, before any streaming begins.
func NewStreamer(cfg Config, gen Generator) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Streamer{
		cfg:        cfg,
		gen:        gen,
		store:      voxel.NewChunkStore(),
		completed:  make(chan completion, 4*cfg.MaxLoadedChunks),
		queued:     make(map[voxel.ChunkCoord]struct{}),
		active:     make(map[voxel.ChunkCoord]struct{}),
		lastAccess: make(map[voxel.ChunkCoord]uint64),
		cameraDir:  mgl32.Vec3{1, 0, 0},
	}, nil
}

// Store exposes the resident-chunk table for read-only collaborators (the
// mesher's neighbor sampler).
func (s *Streamer) Store() *voxel.ChunkStore {
	return s.store
}

// UpdateCamera records the latest viewpoint and derives the per-tick
// velocity used for prefetch prediction.
func (s *Streamer) UpdateCamera(position, direction mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.velocity = position.Sub(s.cameraPos)
	s.cameraPos = position
	if direction.Len() > 1e-6 {
		s.cameraDir = direction.Normalize()
	}
}

const (
	prefetchSecondsAhead = 2.0
	assumedForwardSpeed  = 10.0
	teleportSpeed        = 100.0
)

// predictedPosition extrapolates the camera along its velocity. A cold
// start falls back to the view direction; a teleport-sized jump disables
// prediction for the tick.
func (s *Streamer) predictedPosition() mgl32.Vec3 {
	v := s.velocity
	if v.Len() < 0.1 {
		v = s.cameraDir.Mul(assumedForwardSpeed)
	}
	if v.Len() > teleportSpeed {
		return s.cameraPos
	}
	return s.cameraPos.Add(v.Mul(prefetchSecondsAhead))
}

// RequestChunksAroundCamera computes the desired chunk set and enqueues
// every member that is neither resident nor in flight, closest first.
// Enqueuing never blocks.
func (s *Streamer) RequestChunksAroundCamera() {
	defer profiling.Track("streaming.RequestChunksAroundCamera")()
	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[voxel.ChunkCoord]struct{})
	for _, c := range voxel.CoordsInRadius(s.cameraPos, s.cfg.ViewDistance+s.cfg.PrefetchDistance, s.cfg.ChunkSize) {
		desired[c] = struct{}{}
	}
	// Prefetch ahead of the predicted position and along the view
	// direction.
	predicted := s.predictedPosition()
	for _, c := range voxel.CoordsInRadius(predicted, s.cfg.PrefetchDistance, s.cfg.ChunkSize) {
		desired[c] = struct{}{}
	}
	ahead := s.cameraPos.Add(s.cameraDir.Mul(float32(s.cfg.PrefetchDistance) * s.cfg.ChunkSize))
	for _, c := range voxel.CoordsInRadius(ahead, s.cfg.PrefetchDistance, s.cfg.ChunkSize) {
		desired[c] = struct{}{}
	}

	cameraChunk := voxel.CoordFromWorld(s.cameraPos, s.cfg.ChunkSize)
	for c := range desired {
		if s.store.Has(c) {
			continue
		}
		if _, ok := s.active[c]; ok {
			continue
		}
		if _, ok := s.queued[c]; ok {
			continue
		}
		s.queued[c] = struct{}{}
		s.queue = append(s.queue, loadRequest{coord: c, distance: c.DistanceTo(cameraChunk)})
	}

	// Closest-first; coordinate order breaks distance ties so request
	// order is deterministic.
	sort.Slice(s.queue, func(i, j int) bool {
		if s.queue[i].distance != s.queue[j].distance {
			return s.queue[i].distance < s.queue[j].distance
		}
		return s.queue[i].coord.Less(s.queue[j].coord)
	})
}

// effectiveConcurrencyLocked returns the current cap of the hysteretic
// throttle controller.
func (s *Streamer) effectiveConcurrencyLocked() int {
	if s.throttled {
		return s.cfg.ThrottledConcurrentLoads
	}
	return s.cfg.MaxConcurrentLoads
}

// ProcessLoadQueue starts generation tasks for the closest queued chunks,
// up to the effective concurrency cap. Each task is independent; one
// failure never affects the others.
func (s *Streamer) ProcessLoadQueue() {
	defer profiling.Track("streaming.ProcessLoadQueue")()
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.effectiveConcurrencyLocked() - len(s.active)
	for slots > 0 && len(s.queue) > 0 {
		req := s.queue[0]
		s.queue = s.queue[1:]
		delete(s.queued, req.coord)
		s.active[req.coord] = struct{}{}
		slots--

		go s.generate(s.epoch, req.coord)
	}
}

func (s *Streamer) generate(epoch uint64, coord voxel.ChunkCoord) {
	chunk, err := s.gen.GenerateChunk(coord)
	s.completed <- completion{epoch: epoch, coord: coord, chunk: chunk, err: err}
}

// CollectCompleted drains finished generation tasks without blocking and
// moves their chunks into the resident set, evicting over budget before
// each insert so the ceiling is never exceeded. Returns the number of
// chunks inserted.
func (s *Streamer) CollectCompleted() int {
	defer profiling.Track("streaming.CollectCompleted")()
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make(map[voxel.ChunkCoord]struct{})
	count := 0
	for {
		var c completion
		select {
		case c = <-s.completed:
		default:
			s.loadedThisTick += count
			return count
		}
		if c.epoch != s.epoch {
			continue // task outlived a Reset
		}
		delete(s.active, c.coord)

		if c.err != nil {
			// Released back to absent; eligible for re-request on the
			// next pass, which bounds retries to one per tick.
			s.failedLoads++
			log.Printf("streaming: generation failed for chunk %v: %v", c.coord, c.err)
			continue
		}

		for s.store.Len() >= s.cfg.MaxLoadedChunks {
			if !s.evictWorstLocked(inserted) {
				break
			}
		}
		if s.store.Len() >= s.cfg.MaxLoadedChunks {
			// Every resident chunk was inserted this pass, so nothing may
			// be evicted to make room. The surplus chunk goes back to
			// absent and is re-requested next tick instead of breaking
			// the resident ceiling.
			continue
		}
		if s.store.Add(c.chunk) {
			s.accessTick++
			s.lastAccess[c.coord] = s.accessTick
			inserted[c.coord] = struct{}{}
			count++
		}
	}
}

// evictWorstLocked removes the resident chunk farthest from the camera,
// breaking distance ties by least-recent access so near chunks are never
// aged out and equidistant ones cannot starve. Chunks inserted in the
// current pass are exempt.
func (s *Streamer) evictWorstLocked(exempt map[voxel.ChunkCoord]struct{}) bool {
	cameraChunk := voxel.CoordFromWorld(s.cameraPos, s.cfg.ChunkSize)

	found := false
	var worst voxel.ChunkCoord
	var worstDist float32
	var worstAccess uint64
	for _, c := range s.store.Coords() {
		if _, ok := exempt[c]; ok {
			continue
		}
		d := c.DistanceTo(cameraChunk)
		a := s.lastAccess[c]
		if !found || d > worstDist || (d == worstDist && a < worstAccess) {
			found = true
			worst, worstDist, worstAccess = c, d, a
		}
	}
	if !found {
		return false
	}
	s.store.Remove(worst)
	delete(s.lastAccess, worst)
	s.evictedThisTick++
	return true
}

// UnloadDistantChunks evicts every resident chunk beyond the view and
// prefetch radii plus the hysteresis margin, so boundary chunks do not
// flap. Returns the eviction count.
func (s *Streamer) UnloadDistantChunks(cameraPos mgl32.Vec3) int {
	defer profiling.Track("streaming.UnloadDistantChunks")()
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := float32(s.cfg.ViewDistance+s.cfg.PrefetchDistance) + s.cfg.HysteresisMargin
	center := voxel.CoordFromWorld(cameraPos, s.cfg.ChunkSize)

	count := 0
	for _, c := range s.store.Coords() {
		if c.DistanceTo(center) > ring {
			s.store.Remove(c)
			delete(s.lastAccess, c)
			count++
		}
	}
	s.evictedThisTick += count
	return count
}

const emaAlpha = 0.1

// SetFrameTime feeds the adaptive throttle. The smoothed frame time must
// rise above the threshold to enter the throttled state and fall below
// 80% of it to leave, so the controller cannot oscillate around the
// boundary.
func (s *Streamer) SetFrameTime(frameTimeMs float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emaFrameMs = (1-emaAlpha)*s.emaFrameMs + emaAlpha*frameTimeMs

	switch {
	case !s.throttled && s.emaFrameMs > s.cfg.AdaptiveThrottleThresholdMs:
		s.throttled = true
	case s.throttled && s.emaFrameMs < s.cfg.AdaptiveThrottleThresholdMs*0.8:
		s.throttled = false
	}
}

// IsLoading reports whether a chunk has an in-flight generation task.
func (s *Streamer) IsLoading(coord voxel.ChunkCoord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[coord]
	return ok
}

// IsLoaded reports whether a chunk is resident.
func (s *Streamer) IsLoaded(coord voxel.ChunkCoord) bool {
	return s.store.Has(coord)
}

// Chunk returns a resident chunk and touches its access time for the
// eviction tiebreaker.
func (s *Streamer) Chunk(coord voxel.ChunkCoord) *voxel.VoxelChunk {
	ch := s.store.Get(coord)
	if ch != nil {
		s.mu.Lock()
		s.accessTick++
		s.lastAccess[coord] = s.accessTick
		s.mu.Unlock()
	}
	return ch
}

// LoadedChunkCoords returns the coordinates of every resident chunk.
func (s *Streamer) LoadedChunkCoords() []voxel.ChunkCoord {
	return s.store.Coords()
}

// QueuedChunkCoords returns the coordinates waiting in the load queue,
// closest first.
func (s *Streamer) QueuedChunkCoords() []voxel.ChunkCoord {
	s.mu.Lock()
	defer s.mu.Unlock()
	coords := make([]voxel.ChunkCoord, len(s.queue))
	for i, r := range s.queue {
		coords[i] = r.coord
	}
	return coords
}

// LoadingChunkCoords returns the coordinates with in-flight tasks.
func (s *Streamer) LoadingChunkCoords() []voxel.ChunkCoord {
	s.mu.Lock()
	defer s.mu.Unlock()
	coords := make([]voxel.ChunkCoord, 0, len(s.active))
	for c := range s.active {
		coords = append(coords, c)
	}
	return coords
}

// Stats snapshots streaming health; the per-tick load/evict counters reset
// on each call.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		LoadedChunkCount:      s.store.Len(),
		PendingLoadCount:      len(s.queue),
		ActiveLoadCount:       len(s.active),
		MemoryUsageMB:         float32(s.store.Len()*voxel.BytesPerChunk) / (1024 * 1024),
		ChunksLoadedThisTick:  s.loadedThisTick,
		ChunksEvictedThisTick: s.evictedThisTick,
		FailedLoads:           s.failedLoads,
		Throttled:             s.throttled,
		EffectiveConcurrency:  s.effectiveConcurrencyLocked(),
	}
	s.loadedThisTick = 0
	s.evictedThisTick = 0
	return st
}

// Reset drops all residency and scheduling state. Tasks already in flight
// finish against the old epoch and their results are discarded.
func (s *Streamer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.store.Clear()
	s.queue = nil
	s.queued = make(map[voxel.ChunkCoord]struct{})
	s.active = make(map[voxel.ChunkCoord]struct{})
	s.lastAccess = make(map[voxel.ChunkCoord]uint64)
}
