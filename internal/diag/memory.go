package diag

// MemoryStats tracks voxel and mesh memory, remembering the session peak
// so regressions from the high-water mark are visible.
type MemoryStats struct {
	voxelBytes int
	meshBytes  int
	peakBytes  int
}

// Update records the current voxel and mesh byte counts.
func (m *MemoryStats) Update(voxelBytes, meshBytes int) {
	m.voxelBytes = voxelBytes
	m.meshBytes = meshBytes
	if total := voxelBytes + meshBytes; total > m.peakBytes {
		m.peakBytes = total
	}
}

// TotalBytes returns the current combined footprint.
func (m *MemoryStats) TotalBytes() int {
	return m.voxelBytes + m.meshBytes
}

// TotalMB returns the current combined footprint in megabytes.
func (m *MemoryStats) TotalMB() float32 {
	return float32(m.TotalBytes()) / (1024 * 1024)
}

// PeakMB returns the session high-water mark in megabytes.
func (m *MemoryStats) PeakMB() float32 {
	return float32(m.peakBytes) / (1024 * 1024)
}

// DeltaFromPeakPercent returns how far current usage sits below the peak,
// as a percentage of the peak. Zero when no peak has been recorded.
func (m *MemoryStats) DeltaFromPeakPercent() float32 {
	if m.peakBytes == 0 {
		return 0
	}
	return float32(m.peakBytes-m.TotalBytes()) / float32(m.peakBytes) * 100
}
