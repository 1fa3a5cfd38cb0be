package streaming

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"terrastream/internal/voxel"
)

// Config tunes the chunk streaming pipeline. Loaded once at session start
// and immutable thereafter.
type Config struct {
	// ChunkSize is the edge length of a chunk in world units.
	ChunkSize float32 `yaml:"chunk_size"`

	// ViewDistance is the radius, in chunks, that must be resident
	// around the camera.
	ViewDistance uint32 `yaml:"view_distance"`

	// PrefetchDistance is the extra radius loaded ahead of the camera's
	// predicted position.
	PrefetchDistance uint32 `yaml:"prefetch_distance"`

	// HysteresisMargin is the extra eviction distance, in chunks, that
	// keeps boundary chunks from load/unload flapping.
	HysteresisMargin float32 `yaml:"hysteresis_margin"`

	// MaxLoadedChunks caps the resident set.
	MaxLoadedChunks int `yaml:"max_loaded_chunks"`

	// MaxConcurrentLoads caps in-flight generation tasks.
	MaxConcurrentLoads int `yaml:"max_concurrent_loads"`

	// AdaptiveThrottleThresholdMs is the smoothed frame time above which
	// concurrency drops to ThrottledConcurrentLoads.
	AdaptiveThrottleThresholdMs float32 `yaml:"adaptive_throttle_threshold_ms"`

	// ThrottledConcurrentLoads is the reduced cap while throttled.
	ThrottledConcurrentLoads int `yaml:"throttled_concurrent_loads"`

	// LodThresholds are the ordered chunk-center distances (world units)
	// separating detail tiers; beyond the last entry chunks clamp to the
	// coarsest tier.
	LodThresholds []float32 `yaml:"lod_thresholds"`

	// HitchThresholdMs marks a frame as a hitch in diagnostics.
	HitchThresholdMs float32 `yaml:"hitch_threshold_ms"`

	// FrameHistory is the diagnostics rolling-window size.
	FrameHistory int `yaml:"frame_history"`
}

// DefaultConfig returns the tuning used when no config file is given.
func DefaultConfig() Config {
	return Config{
		ChunkSize:                   32.0,
		ViewDistance:                8,
		PrefetchDistance:            4,
		HysteresisMargin:            1.0,
		MaxLoadedChunks:             256,
		MaxConcurrentLoads:          8,
		AdaptiveThrottleThresholdMs: 10.0,
		ThrottledConcurrentLoads:    2,
		LodThresholds:               []float32{64, 160, 320},
		HitchThresholdMs:            16.67,
		FrameHistory:                240,
	}
}

// LoadConfig reads a yaml config file, filling unset fields from defaults.
// An empty path returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("streaming config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("streaming config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations that would break the streaming
// invariants. Called at construction time, before any streaming begins.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %v", c.ChunkSize)
	}
	if c.ChunkSize != voxel.ChunkSize {
		// Voxel spacing is fixed at one world unit, so a chunk's world
		// edge length is its voxel edge length. The mesher and generator
		// emit geometry on that grid; a different streaming chunk_size
		// would silently disagree with them.
		return fmt.Errorf("chunk_size must be %d, got %v", voxel.ChunkSize, c.ChunkSize)
	}
	if c.MaxLoadedChunks < 1 {
		return fmt.Errorf("max_loaded_chunks must be at least 1, got %d", c.MaxLoadedChunks)
	}
	if c.MaxConcurrentLoads < 1 {
		return fmt.Errorf("max_concurrent_loads must be at least 1, got %d", c.MaxConcurrentLoads)
	}
	if c.ThrottledConcurrentLoads < 1 {
		return fmt.Errorf("throttled_concurrent_loads must be at least 1, got %d", c.ThrottledConcurrentLoads)
	}
	if c.ThrottledConcurrentLoads > c.MaxConcurrentLoads {
		return fmt.Errorf("throttled_concurrent_loads (%d) exceeds max_concurrent_loads (%d)",
			c.ThrottledConcurrentLoads, c.MaxConcurrentLoads)
	}
	for i := 1; i < len(c.LodThresholds); i++ {
		if c.LodThresholds[i] <= c.LodThresholds[i-1] {
			return fmt.Errorf("lod_thresholds must be strictly increasing at index %d", i)
		}
	}
	return nil
}
