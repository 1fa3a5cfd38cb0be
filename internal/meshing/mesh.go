package meshing

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshVertex is a single vertex of a terrain surface mesh.
type MeshVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Material uint16
}

// ChunkMesh is the triangle mesh generated for one voxel chunk. It is
// derived data: always regenerable from the source chunk and never
// persisted independently of it.
type ChunkMesh struct {
	Vertices []MeshVertex
	Indices  []uint32
}

// Empty reports whether the mesh has no geometry. An empty mesh is a valid
// result for a chunk with no iso-crossing, not an error.
func (m *ChunkMesh) Empty() bool {
	return len(m.Vertices) == 0 && len(m.Indices) == 0
}

// TriangleCount returns the number of triangles.
func (m *ChunkMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Validate checks the structural mesh invariants: triangle stride and
// index bounds.
func (m *ChunkMesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(m.Indices))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at position %d out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}

// MemoryUsage returns the mesh's heap footprint in bytes.
func (m *ChunkMesh) MemoryUsage() int {
	const vertexSize = 4*3 + 4*3 + 2 // position + normal + material
	return len(m.Vertices)*vertexSize + len(m.Indices)*4
}
