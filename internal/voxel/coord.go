package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ChunkSize is the edge length of a cubic chunk, in voxels.
	ChunkSize = 32

	// ChunkVolume is the number of voxels in a fully allocated chunk.
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

// ChunkCoord identifies a fixed-size cubic region of world space.
// It is a pure value type: hashable, comparable, never mutated.
type ChunkCoord struct {
	X, Y, Z int32
}

// Coord builds a chunk coordinate.
func Coord(x, y, z int32) ChunkCoord {
	return ChunkCoord{X: x, Y: y, Z: z}
}

// CoordFromWorld returns the coordinate of the chunk containing a world
// position. Uses floor division so negative positions land in the right
// chunk.
func CoordFromWorld(pos mgl32.Vec3, chunkSize float32) ChunkCoord {
	return ChunkCoord{
		X: int32(math.Floor(float64(pos.X() / chunkSize))),
		Y: int32(math.Floor(float64(pos.Y() / chunkSize))),
		Z: int32(math.Floor(float64(pos.Z() / chunkSize))),
	}
}

// WorldOrigin returns the world position of the chunk's minimum corner.
func (c ChunkCoord) WorldOrigin(chunkSize float32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(c.X) * chunkSize,
		float32(c.Y) * chunkSize,
		float32(c.Z) * chunkSize,
	}
}

// Center returns the world position of the chunk's center.
func (c ChunkCoord) Center(chunkSize float32) mgl32.Vec3 {
	half := chunkSize * 0.5
	return c.WorldOrigin(chunkSize).Add(mgl32.Vec3{half, half, half})
}

// Neighbors returns the six face-adjacent chunk coordinates in +X, -X,
// +Y, -Y, +Z, -Z order.
func (c ChunkCoord) Neighbors() [6]ChunkCoord {
	return [6]ChunkCoord{
		{c.X + 1, c.Y, c.Z},
		{c.X - 1, c.Y, c.Z},
		{c.X, c.Y + 1, c.Z},
		{c.X, c.Y - 1, c.Z},
		{c.X, c.Y, c.Z + 1},
		{c.X, c.Y, c.Z - 1},
	}
}

// DistanceTo returns the Euclidean distance to another coordinate, in
// chunk units.
func (c ChunkCoord) DistanceTo(o ChunkCoord) float32 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	dz := float64(c.Z - o.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// Less orders coordinates lexicographically (X, then Y, then Z). Used as a
// deterministic tiebreaker when two chunks are equidistant.
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// CoordsInRadius returns every chunk coordinate whose center-to-center
// distance from the chunk containing `center` is at most `radius` chunks.
// The result is a spherical neighborhood carved out of the enclosing cube,
// enumerated in deterministic X, Y, Z order.
func CoordsInRadius(center mgl32.Vec3, radius uint32, chunkSize float32) []ChunkCoord {
	cc := CoordFromWorld(center, chunkSize)
	r := int32(radius)
	rsq := float64(radius) * float64(radius)

	coords := make([]ChunkCoord, 0, (2*r+1)*(2*r+1))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if float64(dx*dx+dy*dy+dz*dz) > rsq {
					continue
				}
				coords = append(coords, ChunkCoord{cc.X + dx, cc.Y + dy, cc.Z + dz})
			}
		}
	}
	return coords
}
