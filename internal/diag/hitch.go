package diag

import "sort"

// HitchDetector keeps a rolling window of frame times and counts frames
// that exceeded the hitch threshold.
type HitchDetector struct {
	thresholdMs float32
	window      int
	frames      []float32
	hitches     int
}

// NewHitchDetector builds a detector with the given threshold and rolling
// window size.
func NewHitchDetector(thresholdMs float32, window int) *HitchDetector {
	if window < 1 {
		window = 1
	}
	return &HitchDetector{
		thresholdMs: thresholdMs,
		window:      window,
		frames:      make([]float32, 0, window),
	}
}

// RecordFrame adds a frame time to the window and reports whether it was a
// hitch. When the window is full the oldest sample falls out; if that
// sample was itself a hitch the counter drops with it, so the count always
// describes the current window.
func (h *HitchDetector) RecordFrame(frameTimeMs float32) bool {
	if len(h.frames) == h.window {
		if h.frames[0] > h.thresholdMs {
			h.hitches--
		}
		copy(h.frames, h.frames[1:])
		h.frames = h.frames[:len(h.frames)-1]
	}
	h.frames = append(h.frames, frameTimeMs)

	hitch := frameTimeMs > h.thresholdMs
	if hitch {
		h.hitches++
	}
	return hitch
}

// Average returns the mean frame time over the window, zero when empty.
func (h *HitchDetector) Average() float32 {
	if len(h.frames) == 0 {
		return 0
	}
	var sum float32
	for _, f := range h.frames {
		sum += f
	}
	return sum / float32(len(h.frames))
}

// P99 returns the 99th percentile frame time over the window by the
// nearest-rank method, zero when empty.
func (h *HitchDetector) P99() float32 {
	return h.percentile(0.99)
}

// P95 returns the 95th percentile frame time over the window.
func (h *HitchDetector) P95() float32 {
	return h.percentile(0.95)
}

func (h *HitchDetector) percentile(p float64) float32 {
	n := len(h.frames)
	if n == 0 {
		return 0
	}
	sorted := make([]float32, n)
	copy(sorted, h.frames)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(p*float64(n)+0.9999999) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	return sorted[rank]
}

// HitchCount returns the number of hitch frames in the current window.
func (h *HitchDetector) HitchCount() int {
	return h.hitches
}

// HitchRate returns the fraction of window frames that were hitches.
func (h *HitchDetector) HitchRate() float32 {
	if len(h.frames) == 0 {
		return 0
	}
	return float32(h.hitches) / float32(len(h.frames))
}

// SampleCount returns the number of frames currently in the window.
func (h *HitchDetector) SampleCount() int {
	return len(h.frames)
}
