package meshing

import (
	"context"
	"sync"

	"terrastream/internal/voxel"
)

// MeshJob asks the pool to mesh one chunk. Sample may be nil for isolated
// meshing.
type MeshJob struct {
	Chunk  *voxel.VoxelChunk
	Sample SampleFunc
}

// MeshResult is a finished mesh, tagged with its source chunk coordinate so
// the consumer can match geometry to voxel data.
type MeshResult struct {
	Coord voxel.ChunkCoord
	Mesh  *ChunkMesh
}

// MeshPool runs dual contouring on a fixed set of workers so mesh
// generation stays off the streaming tick. Each worker owns its own mesher.
type MeshPool struct {
	jobs    chan MeshJob
	results chan MeshResult
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMeshPool starts a pool with the given worker and queue sizes.
func NewMeshPool(workers, queueSize int) *MeshPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &MeshPool{
		jobs:    make(chan MeshJob, queueSize),
		results: make(chan MeshResult, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *MeshPool) worker() {
	defer p.wg.Done()
	dc := NewDualContouring()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			mesh := dc.GenerateMeshWithNeighbors(job.Chunk, job.Sample)
			select {
			case p.results <- MeshResult{Coord: job.Chunk.Coord(), Mesh: mesh}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job without blocking; returns false when the queue is
// full and the caller should retry next tick.
func (p *MeshPool) Submit(job MeshJob) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Results is the channel of finished meshes; drain it non-blockingly from
// the frame loop.
func (p *MeshPool) Results() <-chan MeshResult {
	return p.results
}

// Close stops the workers and waits for them to exit.
func (p *MeshPool) Close() {
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
}
