package lod

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"terrastream/internal/voxel"
)

func TestLevelBuckets(t *testing.T) {
	m := NewManager(32, []float32{64, 160, 320})
	camera := mgl32.Vec3{0, 0, 0}

	// Chunk centers at increasing distance along +X. Chunk c has center
	// (32c+16, 16, 16).
	cases := []struct {
		coord voxel.ChunkCoord
		want  Level
	}{
		{voxel.Coord(0, 0, 0), Full},     // ~27
		{voxel.Coord(1, 0, 0), Full},     // ~52
		{voxel.Coord(3, 0, 0), Half},     // ~113
		{voxel.Coord(6, 0, 0), Quarter},  // ~209
		{voxel.Coord(12, 0, 0), Skybox},  // ~401
		{voxel.Coord(100, 0, 0), Skybox}, // far beyond the last threshold
	}
	coords := make([]voxel.ChunkCoord, len(cases))
	for i, c := range cases {
		coords[i] = c.coord
	}
	m.UpdateAll(coords, camera)

	for _, tc := range cases {
		got, ok := m.Level(tc.coord)
		if !ok {
			t.Fatalf("chunk %v not tracked", tc.coord)
		}
		if got != tc.want {
			t.Fatalf("chunk %v: got %v, want %v", tc.coord, got, tc.want)
		}
	}
}

func TestUpdateAllDropsStaleChunks(t *testing.T) {
	m := NewManager(32, nil)
	camera := mgl32.Vec3{0, 0, 0}

	a := voxel.Coord(0, 0, 0)
	b := voxel.Coord(1, 0, 0)
	m.UpdateAll([]voxel.ChunkCoord{a, b}, camera)
	if m.Tracked() != 2 {
		t.Fatalf("tracked: got %d, want 2", m.Tracked())
	}

	m.UpdateAll([]voxel.ChunkCoord{a}, camera)
	if _, ok := m.Level(b); ok {
		t.Fatal("evicted chunk must be dropped from the tier table")
	}
	if m.Tracked() != 1 {
		t.Fatalf("tracked after shrink: got %d, want 1", m.Tracked())
	}
}

func TestTiersFollowCamera(t *testing.T) {
	m := NewManager(32, []float32{64, 160, 320})
	c := voxel.Coord(0, 0, 0)
	coords := []voxel.ChunkCoord{c}

	m.UpdateAll(coords, mgl32.Vec3{16, 16, 16})
	if got, _ := m.Level(c); got != Full {
		t.Fatalf("camera inside chunk: got %v, want %v", got, Full)
	}

	m.UpdateAll(coords, mgl32.Vec3{516, 16, 16})
	if got, _ := m.Level(c); got != Skybox {
		t.Fatalf("camera 500 units away: got %v, want %v", got, Skybox)
	}
}

func TestStatsCountsPerTier(t *testing.T) {
	m := NewManager(32, []float32{64, 160, 320})
	coords := []voxel.ChunkCoord{
		voxel.Coord(0, 0, 0),  // full
		voxel.Coord(1, 0, 0),  // full
		voxel.Coord(3, 0, 0),  // half
		voxel.Coord(12, 0, 0), // skybox
	}
	m.UpdateAll(coords, mgl32.Vec3{0, 0, 0})

	counts := m.Stats()
	if counts[Full] != 2 || counts[Half] != 1 || counts[Quarter] != 0 || counts[Skybox] != 1 {
		t.Fatalf("tier counts: got %v", counts)
	}
}

func TestExactThresholdIsCoarser(t *testing.T) {
	m := NewManager(1, []float32{10, 20, 30})
	// Chunk size 1: chunk c has center (c+0.5). Place the camera so the
	// distance lands exactly on a threshold.
	c := voxel.Coord(0, 0, 0)
	m.UpdateAll([]voxel.ChunkCoord{c}, mgl32.Vec3{10.5, 0.5, 0.5})
	if got, _ := m.Level(c); got != Half {
		t.Fatalf("distance equal to threshold should fall in the coarser tier, got %v", got)
	}
}

func TestLevelString(t *testing.T) {
	for l, want := range map[Level]string{Full: "full", Half: "half", Quarter: "quarter", Skybox: "skybox"} {
		if got := l.String(); got != want {
			t.Fatalf("Level(%d).String(): got %q, want %q", l, got, want)
		}
	}
}
