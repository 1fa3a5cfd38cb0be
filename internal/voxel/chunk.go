package voxel

// IsoLevel is the density threshold separating solid from empty space.
const IsoLevel = 0.5

// Voxel is a single sample of the terrain density field.
type Voxel struct {
	Density  float32
	Material uint16
}

// Solid reports whether the voxel is above the iso-level.
func (v Voxel) Solid() bool {
	return v.Density > IsoLevel
}

// Empty reports whether the voxel carries effectively no density.
func (v Voxel) Empty() bool {
	return v.Density < 0.01
}

// VoxelChunk owns a dense ChunkSize^3 voxel grid. The backing array is
// allocated on first write; an untouched chunk reads as all-empty.
type VoxelChunk struct {
	coord  ChunkCoord
	voxels []Voxel
	dirty  bool
}

// NewVoxelChunk creates an empty chunk at the given coordinate.
func NewVoxelChunk(coord ChunkCoord) *VoxelChunk {
	return &VoxelChunk{coord: coord}
}

// Coord returns the chunk's coordinate.
func (c *VoxelChunk) Coord() ChunkCoord {
	return c.coord
}

func voxelIndex(x, y, z int) int {
	return (z*ChunkSize+y)*ChunkSize + x
}

func inBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}

// Get returns the voxel at local coordinates. ok is false out of bounds or
// when the chunk has never been written.
func (c *VoxelChunk) Get(x, y, z int) (Voxel, bool) {
	if !inBounds(x, y, z) || c.voxels == nil {
		return Voxel{}, false
	}
	return c.voxels[voxelIndex(x, y, z)], true
}

// Set writes the voxel at local coordinates, allocating the grid on first
// use. Out-of-bounds writes are ignored.
func (c *VoxelChunk) Set(x, y, z int, v Voxel) {
	if !inBounds(x, y, z) {
		return
	}
	if c.voxels == nil {
		c.voxels = make([]Voxel, ChunkVolume)
	}
	c.voxels[voxelIndex(x, y, z)] = v
	c.dirty = true
}

// IsDirty reports whether the chunk changed since the last MarkClean.
func (c *VoxelChunk) IsDirty() bool {
	return c.dirty
}

// MarkClean clears the dirty flag, typically after remeshing.
func (c *VoxelChunk) MarkClean() {
	c.dirty = false
}

// Allocated reports whether the dense grid has been materialized.
func (c *VoxelChunk) Allocated() bool {
	return c.voxels != nil
}

// MemoryUsage returns the chunk's heap footprint in bytes.
func (c *VoxelChunk) MemoryUsage() int {
	// Voxel is a 4-byte float plus a 2-byte material, padded to 8.
	return len(c.voxels) * 8
}

// BytesPerChunk is the nominal footprint of a fully allocated chunk, used
// for memory budgeting before any chunk exists.
const BytesPerChunk = ChunkVolume * 8
