package worldgen

import (
	"github.com/ojrac/opensimplex-go"

	"terrastream/internal/voxel"
)

// Terrain materials, stored per voxel and carried through to mesh vertices.
const (
	MaterialAir     uint16 = 0
	MaterialGrass   uint16 = 1
	MaterialDirt    uint16 = 2
	MaterialStone   uint16 = 3
	MaterialBedrock uint16 = 4
)

const dirtDepth = 3

// NoiseGenerator produces terrain from a 3D density field instead of a
// heightmap, so overhangs and caves fall out naturally. Densities land in
// [0,1] with the surface at the iso level.
type NoiseGenerator struct {
	noise opensimplex.Noise32

	scale            float32
	baseHeight       float32
	gradientStrength float32
	octaves          int
	persistence      float32
	lacunarity       float32
}

// NewNoiseGenerator creates a generator for the given world seed. Equal
// seeds produce identical terrain.
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{
		noise:            opensimplex.New32(seed),
		scale:            1.0 / 64.0,
		baseHeight:       64,
		gradientStrength: 32,
		octaves:          4,
		persistence:      0.5,
		lacunarity:       2,
	}
}

// octaveNoise sums octaves of simplex noise, normalized to [-1,1].
func (g *NoiseGenerator) octaveNoise(x, y, z float32) float32 {
	var total, amplitude, maxValue float32 = 0, 1, 0
	frequency := float32(1)
	for i := 0; i < g.octaves; i++ {
		total += g.noise.Eval3(x*frequency, y*frequency, z*frequency) * amplitude
		maxValue += amplitude
		amplitude *= g.persistence
		frequency *= g.lacunarity
	}
	return total / maxValue
}

// DensityAt evaluates the field at a world position: octave noise plus an
// altitude gradient that pulls density toward solid below the base height
// and toward air above it, mapped into [0,1].
func (g *NoiseGenerator) DensityAt(worldX, worldY, worldZ float32) float32 {
	n := g.octaveNoise(worldX*g.scale, worldY*g.scale, worldZ*g.scale)
	gradient := (g.baseHeight - worldY) / g.gradientStrength
	d := 0.5 + 0.5*(n+gradient)
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// maxTerrainHeight is the world Y above which the gradient guarantees air.
func (g *NoiseGenerator) maxTerrainHeight() float32 {
	return g.baseHeight + g.gradientStrength
}

// GenerateChunk fills a chunk from the density field. Chunks entirely above
// the terrain ceiling come back unallocated, which the store treats as
// all air.
func (g *NoiseGenerator) GenerateChunk(coord voxel.ChunkCoord) (*voxel.VoxelChunk, error) {
	chunk := voxel.NewVoxelChunk(coord)
	origin := chunk.Coord().WorldOrigin(voxel.ChunkSize)
	if origin.Y() > g.maxTerrainHeight() {
		return chunk, nil
	}

	var densities [voxel.ChunkSize]float32
	for x := 0; x < voxel.ChunkSize; x++ {
		for z := 0; z < voxel.ChunkSize; z++ {
			worldX := origin.X() + float32(x)
			worldZ := origin.Z() + float32(z)
			for y := 0; y < voxel.ChunkSize; y++ {
				densities[y] = g.DensityAt(worldX, origin.Y()+float32(y), worldZ)
			}

			// Walk the column top-down so depth below the local surface is
			// known when materials are assigned.
			depth := -1
			if g.DensityAt(worldX, origin.Y()+voxel.ChunkSize, worldZ) > voxel.IsoLevel {
				// The column continues solid into the chunk above; there is
				// no surface inside this chunk from its top edge.
				depth = dirtDepth + 1
			}
			for y := voxel.ChunkSize - 1; y >= 0; y-- {
				d := densities[y]
				if d <= voxel.IsoLevel {
					depth = -1
					if d > 0 {
						chunk.Set(x, y, z, voxel.Voxel{Density: d, Material: MaterialAir})
					}
					continue
				}
				depth++
				chunk.Set(x, y, z, voxel.Voxel{Density: d, Material: g.materialFor(origin.Y()+float32(y), depth)})
			}
		}
	}
	return chunk, nil
}

func (g *NoiseGenerator) materialFor(worldY float32, depth int) uint16 {
	if worldY <= 0 {
		return MaterialBedrock
	}
	switch {
	case depth == 0:
		return MaterialGrass
	case depth <= dirtDepth:
		return MaterialDirt
	default:
		return MaterialStone
	}
}
