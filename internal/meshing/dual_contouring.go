package meshing

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"terrastream/internal/voxel"
)

// SampleFunc resolves a voxel by chunk-local coordinates that may fall
// outside [0, ChunkSize); implementations back it with the resident-chunk
// table so the mesher never holds neighbor references.
type SampleFunc func(x, y, z int) (voxel.Voxel, bool)

// Cube corner offsets, Marching Cubes convention.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// The 12 cube edges as corner index pairs.
var cubeEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DualContouring converts a voxel chunk into a triangle mesh by placing one
// vertex per active cell at the average of its edge crossings, then joining
// adjacent cell vertices into quads across sign-changing grid edges.
//
// The output is a pure function of the input densities: iteration order is
// fixed and no clock, randomness, or map-order state reaches the emitted
// vertex or index sequences.
type DualContouring struct {
	cellVerts map[[3]int]uint32
}

// NewDualContouring creates a mesher. Instances are not safe for concurrent
// use; the mesh pool gives each worker its own.
func NewDualContouring() *DualContouring {
	return &DualContouring{cellVerts: make(map[[3]int]uint32)}
}

// GenerateMesh meshes a chunk in isolation; voxels beyond the chunk read as
// empty.
func (dc *DualContouring) GenerateMesh(chunk *voxel.VoxelChunk) *ChunkMesh {
	return dc.GenerateMeshWithNeighbors(chunk, nil)
}

// GenerateMeshWithNeighbors meshes a chunk, resolving boundary voxels
// through the given sampler when one is provided. The sampler removes the
// false walls an isolated mesh grows at solid boundaries, but the output is
// still not watertight across chunks: quads dual to grid edges on the far
// boundary planes need cell vertices owned by the neighbor's mesh, which a
// per-chunk index buffer cannot reference.
func (dc *DualContouring) GenerateMeshWithNeighbors(chunk *voxel.VoxelChunk, sample SampleFunc) *ChunkMesh {
	mesh := &ChunkMesh{}
	clear(dc.cellVerts)

	origin := chunk.Coord().WorldOrigin(voxel.ChunkSize)

	density := func(x, y, z int) float32 {
		v, ok := chunk.Get(x, y, z)
		if !ok && sample != nil {
			v, ok = sample(x, y, z)
		}
		if !ok {
			return 0
		}
		d := v.Density
		// Corrupt densities are contained here: treated as empty so one
		// bad chunk cannot poison the whole surface.
		if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
			return 0
		}
		return d
	}
	materialAt := func(x, y, z int) uint16 {
		v, ok := chunk.Get(x, y, z)
		if !ok && sample != nil {
			v, _ = sample(x, y, z)
		}
		return v.Material
	}

	// Interior cells only when meshing in isolation; with a neighbor
	// sampler the boundary cells resolve their outer corners through it.
	cellLimit := voxel.ChunkSize - 1
	if sample != nil {
		cellLimit = voxel.ChunkSize
	}

	// Pass 1: place one vertex per active cell.
	for x := 0; x < cellLimit; x++ {
		for y := 0; y < cellLimit; y++ {
			for z := 0; z < cellLimit; z++ {
				dc.emitCellVertex(mesh, origin, x, y, z, density, materialAt)
			}
		}
	}
	if len(mesh.Vertices) == 0 {
		return mesh
	}

	// Pass 2: for every sign-changing grid edge, join the four cells
	// around it into a quad of their dual vertices.
	for x := 0; x < voxel.ChunkSize; x++ {
		for y := 0; y < voxel.ChunkSize; y++ {
			for z := 0; z < voxel.ChunkSize; z++ {
				dc.emitEdgeQuads(mesh, x, y, z, density)
			}
		}
	}
	return mesh
}

func solid(d float32) bool {
	return d > voxel.IsoLevel
}

func (dc *DualContouring) emitCellVertex(mesh *ChunkMesh, origin mgl32.Vec3, x, y, z int, density func(int, int, int) float32, materialAt func(int, int, int) uint16) {
	var d [8]float32
	mask := 0
	for i, off := range cornerOffsets {
		d[i] = density(x+off[0], y+off[1], z+off[2])
		if solid(d[i]) {
			mask |= 1 << i
		}
	}
	if mask == 0 || mask == 0xFF {
		return
	}

	// Average the iso crossings of all sign-changing edges: the
	// simplified one-vertex-per-cell QEF stand-in.
	var sum mgl32.Vec3
	crossings := 0
	for _, e := range cubeEdges {
		d0, d1 := d[e[0]], d[e[1]]
		if solid(d0) == solid(d1) {
			continue
		}
		t := (voxel.IsoLevel - d0) / (d1 - d0)
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			t = 0.5
		}
		t = mgl32.Clamp(t, 0, 1)
		c0 := cornerOffsets[e[0]]
		c1 := cornerOffsets[e[1]]
		sum = sum.Add(mgl32.Vec3{
			float32(x+c0[0]) + t*float32(c1[0]-c0[0]),
			float32(y+c0[1]) + t*float32(c1[1]-c0[1]),
			float32(z+c0[2]) + t*float32(c1[2]-c0[2]),
		})
		crossings++
	}
	if crossings == 0 {
		return
	}
	pos := sum.Mul(1 / float32(crossings))
	if !finiteVec(pos) {
		// Degenerate cell: pin the vertex to the cell center.
		pos = mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}
	}

	// Central-difference gradient at the cell center, from corner sums.
	grad := mgl32.Vec3{
		(d[1] + d[2] + d[5] + d[6]) - (d[0] + d[3] + d[4] + d[7]),
		(d[2] + d[3] + d[6] + d[7]) - (d[0] + d[1] + d[4] + d[5]),
		(d[4] + d[5] + d[6] + d[7]) - (d[0] + d[1] + d[2] + d[3]),
	}
	normal := mgl32.Vec3{0, 1, 0}
	if finiteVec(grad) && grad.Len() > 1e-6 {
		// Density grows into the solid; the surface faces the other way.
		normal = grad.Mul(-1).Normalize()
	}

	// Material comes from the densest solid corner, first corner wins
	// ties so the choice is deterministic.
	material := uint16(0)
	best := float32(math.Inf(-1))
	for i, off := range cornerOffsets {
		if mask&(1<<i) == 0 {
			continue
		}
		if d[i] > best {
			best = d[i]
			material = materialAt(x+off[0], y+off[1], z+off[2])
		}
	}

	dc.cellVerts[[3]int{x, y, z}] = uint32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, MeshVertex{
		Position: origin.Add(pos),
		Normal:   normal,
		Material: material,
	})
}

// For the grid edge at (x,y,z) along each axis, the four cells sharing the
// edge, wound counter-clockwise looking down the axis.
var edgeCellRings = [3][4][3]int{
	{{0, -1, -1}, {0, 0, -1}, {0, 0, 0}, {0, -1, 0}},  // X edge
	{{-1, 0, -1}, {-1, 0, 0}, {0, 0, 0}, {0, 0, -1}},  // Y edge
	{{-1, -1, 0}, {0, -1, 0}, {0, 0, 0}, {-1, 0, 0}},  // Z edge
}

var axisSteps = [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (dc *DualContouring) emitEdgeQuads(mesh *ChunkMesh, x, y, z int, density func(int, int, int) float32) {
	d0 := density(x, y, z)
	for axis := 0; axis < 3; axis++ {
		step := axisSteps[axis]
		d1 := density(x+step[0], y+step[1], z+step[2])
		if solid(d0) == solid(d1) {
			continue
		}

		var quad [4]uint32
		complete := true
		for i, rel := range edgeCellRings[axis] {
			idx, ok := dc.cellVerts[[3]int{x + rel[0], y + rel[1], z + rel[2]}]
			if !ok {
				complete = false
				break
			}
			quad[i] = idx
		}
		if !complete {
			continue
		}

		if solid(d0) {
			// Surface faces +axis.
			mesh.Indices = append(mesh.Indices,
				quad[0], quad[1], quad[2],
				quad[0], quad[2], quad[3])
		} else {
			mesh.Indices = append(mesh.Indices,
				quad[0], quad[2], quad[1],
				quad[0], quad[3], quad[2])
		}
	}
}

func finiteVec(v mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
