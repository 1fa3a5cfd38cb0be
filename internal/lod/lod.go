package lod

import (
	"github.com/go-gl/mathgl/mgl32"

	"terrastream/internal/voxel"
)

// Level is a detail tier assigned to a resident chunk by camera distance.
type Level uint8

const (
	Full Level = iota
	Half
	Quarter
	Skybox
)

func (l Level) String() string {
	switch l {
	case Full:
		return "full"
	case Half:
		return "half"
	case Quarter:
		return "quarter"
	case Skybox:
		return "skybox"
	}
	return "unknown"
}

// NumLevels is the number of detail tiers.
const NumLevels = int(Skybox) + 1

// Manager maps resident chunks to detail tiers. Thresholds are chunk-center
// distances in world units; a chunk beyond the last threshold clamps to the
// coarsest tier.
type Manager struct {
	chunkSize  float32
	thresholds []float32
	levels     map[voxel.ChunkCoord]Level
}

// NewManager builds a manager. Nil or empty thresholds fall back to the
// defaults. Threshold ordering is the caller's responsibility; streaming
// config validation enforces it before construction.
func NewManager(chunkSize float32, thresholds []float32) *Manager {
	if len(thresholds) == 0 {
		thresholds = []float32{64, 160, 320}
	}
	return &Manager{
		chunkSize:  chunkSize,
		thresholds: thresholds,
		levels:     make(map[voxel.ChunkCoord]Level),
	}
}

// levelFor buckets a distance into a tier, clamping to the coarsest tier
// when the config carries more thresholds than there are tiers.
func (m *Manager) levelFor(distance float32) Level {
	for i, limit := range m.thresholds {
		if distance < limit {
			if i >= NumLevels-1 {
				return Skybox
			}
			return Level(i)
		}
	}
	return Skybox
}

// UpdateAll reassigns tiers for the given resident set. Chunks absent from
// the set are dropped, so the table never outlives residency.
func (m *Manager) UpdateAll(coords []voxel.ChunkCoord, cameraPos mgl32.Vec3) {
	next := make(map[voxel.ChunkCoord]Level, len(coords))
	for _, c := range coords {
		d := c.Center(m.chunkSize).Sub(cameraPos).Len()
		next[c] = m.levelFor(d)
	}
	m.levels = next
}

// Level returns the tier assigned to a chunk, false when the chunk is not
// tracked.
func (m *Manager) Level(coord voxel.ChunkCoord) (Level, bool) {
	l, ok := m.levels[coord]
	return l, ok
}

// Stats returns the chunk count per tier, indexed by Level.
func (m *Manager) Stats() [NumLevels]int {
	var counts [NumLevels]int
	for _, l := range m.levels {
		if int(l) < NumLevels {
			counts[l]++
		}
	}
	return counts
}

// Tracked returns the number of chunks with an assigned tier.
func (m *Manager) Tracked() int {
	return len(m.levels)
}
