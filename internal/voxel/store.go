package voxel

import "sync"

// ChunkStore is the resident-chunk table: the single mutable authority over
// which voxel chunks are in memory. Generation tasks build chunks privately
// and hand them off through Add; readers take the RLock path.
type ChunkStore struct {
	mu       sync.RWMutex
	chunks   map[ChunkCoord]*VoxelChunk
	modCount uint64 // increases on any add/remove
}

// NewChunkStore creates an empty store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[ChunkCoord]*VoxelChunk)}
}

// Has reports whether a chunk is resident.
func (s *ChunkStore) Has(coord ChunkCoord) bool {
	s.mu.RLock()
	_, ok := s.chunks[coord]
	s.mu.RUnlock()
	return ok
}

// Get returns the resident chunk, or nil.
func (s *ChunkStore) Get(coord ChunkCoord) *VoxelChunk {
	s.mu.RLock()
	ch := s.chunks[coord]
	s.mu.RUnlock()
	return ch
}

// Add inserts a pre-generated chunk. An existing chunk at the same
// coordinate is kept; the duplicate is dropped and Add returns false.
func (s *ChunkStore) Add(chunk *VoxelChunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[chunk.coord]; ok {
		return false
	}
	s.chunks[chunk.coord] = chunk
	s.modCount++
	return true
}

// Remove evicts a chunk, reporting whether it was resident.
func (s *ChunkStore) Remove(coord ChunkCoord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[coord]; !ok {
		return false
	}
	delete(s.chunks, coord)
	s.modCount++
	return true
}

// Len returns the resident chunk count.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Coords returns all resident chunk coordinates (unordered).
func (s *ChunkStore) Coords() []ChunkCoord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coords := make([]ChunkCoord, 0, len(s.chunks))
	for c := range s.chunks {
		coords = append(coords, c)
	}
	return coords
}

// ModCount returns the current modification count of the chunk map.
func (s *ChunkStore) ModCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modCount
}

// Clear drops every resident chunk.
func (s *ChunkStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) > 0 {
		s.modCount++
	}
	s.chunks = make(map[ChunkCoord]*VoxelChunk)
}

// MemoryUsage sums the footprint of all resident chunks.
func (s *ChunkStore) MemoryUsage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, ch := range s.chunks {
		total += ch.MemoryUsage()
	}
	return total
}

// VoxelRelative resolves a voxel by chunk-relative offset: local
// coordinates may fall outside [0, ChunkSize) and are normalized into the
// neighboring chunk. This is the read-only accessor the mesher uses at
// chunk boundaries; chunks never hold references to each other.
func (s *ChunkStore) VoxelRelative(coord ChunkCoord, x, y, z int) (Voxel, bool) {
	cx, lx := splitLocal(x)
	cy, ly := splitLocal(y)
	cz, lz := splitLocal(z)

	target := ChunkCoord{coord.X + cx, coord.Y + cy, coord.Z + cz}
	ch := s.Get(target)
	if ch == nil {
		return Voxel{}, false
	}
	return ch.Get(lx, ly, lz)
}

// splitLocal floor-divides a possibly out-of-range local coordinate into a
// chunk delta and an in-range local coordinate.
func splitLocal(v int) (int32, int) {
	d := v / ChunkSize
	l := v % ChunkSize
	if l < 0 {
		d--
		l += ChunkSize
	}
	return int32(d), l
}
