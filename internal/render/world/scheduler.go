package world

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/mesh"
	"voxelview.ai/internal/render/tasks"
	"voxelview.ai/internal/render/terrain"
)

// Job classes. Generation always runs before optimization.
const (
	ClassGeneration   uint8 = 0
	ClassOptimization uint8 = 1
)

// Executor runs meshing jobs off the frame goroutine.
type Executor interface {
	Submit(p tasks.Priority, fn func()) tasks.Handle
	CancelIfPending(h tasks.Handle) bool
}

type meshJob struct {
	handle tasks.Handle
	seq    uint64
	class  uint8
	frame  uint64
	// status the result is installed with. It drops below good when the
	// chunk or a neighbor changes while the job is running.
	installAs ChunkMeshStatus
}

type meshResult struct {
	pos  terrain.ChunkPos
	seq  uint64
	mesh mesh.MeshData
}

// SchedulerStats count scheduler work since the last ResetStats.
type SchedulerStats struct {
	Generation   int `json:"generation_jobs"`
	Optimization int `json:"optimization_jobs"`
	Cancelled    int `json:"cancelled_jobs"`
	Installed    int `json:"installed_meshes"`
	Superseded   int `json:"superseded_results"`
	Unloaded     int `json:"unloaded_results"`
}

// MeshScheduler keeps at most one meshing job per chunk and installs the
// results in the group table. Everything except the worker side of a job
// runs on the frame goroutine.
type MeshScheduler struct {
	store  terrain.Store
	groups *GroupTable
	exec   Executor
	mesher mesh.Func
	log    *log.Logger

	jobs    map[terrain.ChunkPos]*meshJob
	seq     uint64
	results chan meshResult

	closed    chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64

	frame  uint64
	camera mgl32.Vec3
	stats  SchedulerStats
}

func NewMeshScheduler(store terrain.Store, groups *GroupTable, exec Executor, mesher mesh.Func, resultBuffer int, logger *log.Logger) *MeshScheduler {
	if mesher == nil {
		mesher = mesh.Greedy
	}
	if resultBuffer <= 0 {
		resultBuffer = 256
	}
	return &MeshScheduler{
		store:   store,
		groups:  groups,
		exec:    exec,
		mesher:  mesher,
		log:     logger,
		jobs:    make(map[terrain.ChunkPos]*meshJob),
		results: make(chan meshResult, resultBuffer),
		closed:  make(chan struct{}),
	}
}

// BeginFrame sets the frame number and camera position used for new jobs.
func (s *MeshScheduler) BeginFrame(frame uint64, camera mgl32.Vec3) {
	s.frame = frame
	s.camera = camera
}

// RequestMeshUpdates submits a job for the chunk if its mesh is missing or
// stale and no job is already running for it.
func (s *MeshScheduler) RequestMeshUpdates(pos terrain.ChunkPos) {
	if _, busy := s.jobs[pos]; busy {
		return
	}
	switch s.groups.ChunkStatus(pos) {
	case NoMesh, HasOutdatedMesh:
		s.submit(pos, ClassGeneration)
	case HasSuboptimalMesh:
		s.submit(pos, ClassOptimization)
	}
}

// Priority returns the priority a job for pos would get this frame.
func (s *MeshScheduler) Priority(pos terrain.ChunkPos, class uint8) tasks.Priority {
	return tasks.Priority{Class: class, WithinClass: pos.Center().Sub(s.camera).LenSqr()}
}

func (s *MeshScheduler) submit(pos terrain.ChunkPos, class uint8) {
	s.cancel(pos)

	c, ok := s.store.Chunk(pos)
	if !ok {
		return
	}
	group := pos.Group().ChunkAt(0)
	translation := terrain.Vec3i(pos).Sub(terrain.Vec3i(group)).Scale(terrain.ChunkSize).Vec3()
	in := mesh.NewInput(c, translation, s.store)

	s.seq++
	seq := s.seq
	mesher := s.mesher
	h := s.exec.Submit(s.Priority(pos, class), func() {
		s.deliver(meshResult{pos: pos, seq: seq, mesh: mesher(in)})
	})
	if h == 0 {
		return
	}
	s.jobs[pos] = &meshJob{handle: h, seq: seq, class: class, frame: s.frame, installAs: HasGoodMesh}
	if class == ClassGeneration {
		s.stats.Generation++
	} else {
		s.stats.Optimization++
	}
}

func (s *MeshScheduler) cancel(pos terrain.ChunkPos) {
	j, ok := s.jobs[pos]
	if !ok {
		return
	}
	s.exec.CancelIfPending(j.handle)
	delete(s.jobs, pos)
	s.stats.Cancelled++
}

// deliver runs on a worker.
func (s *MeshScheduler) deliver(r meshResult) {
	select {
	case s.results <- r:
	case <-s.closed:
		s.dropped.Add(1)
		if s.log != nil {
			s.log.Printf("mesh result for chunk %v dropped: scheduler closed", r.pos)
		}
	}
}

// Drain installs every result that has arrived without waiting for more.
// It returns the number of meshes installed.
func (s *MeshScheduler) Drain() int {
	installed := 0
	for {
		select {
		case r := <-s.results:
			if s.install(r) {
				installed++
			}
		default:
			return installed
		}
	}
}

func (s *MeshScheduler) install(r meshResult) bool {
	j, ok := s.jobs[r.pos]
	if !ok || j.seq != r.seq {
		s.stats.Superseded++
		return false
	}
	delete(s.jobs, r.pos)
	if !s.store.HasChunk(r.pos) {
		s.stats.Unloaded++
		return false
	}
	gp := r.pos.Group()
	g := s.groups.GetOrCreate(gp)
	if g.SetMesh(r.pos.IndexInGroup(), r.mesh, j.installAs, j.frame) {
		s.groups.MarkDirty(gp)
	}
	s.stats.Installed++
	return true
}

// OnChunkLoaded marks the six neighbors suboptimal. They are remeshed the
// next time the search reaches them.
func (s *MeshScheduler) OnChunkLoaded(pos terrain.ChunkPos) {
	for _, f := range terrain.AllFaces {
		n := pos.Neighbor(f)
		if j, ok := s.jobs[n]; ok && j.installAs > HasSuboptimalMesh {
			j.installAs = HasSuboptimalMesh
		}
		if g, ok := s.groups.Get(n.Group()); ok {
			g.MarkSuboptimal(n.IndexInGroup())
		}
	}
}

// OnChunkUnloaded drops the chunk's job and mesh. The six neighbors are
// marked outdated since their border faces were culled against it.
func (s *MeshScheduler) OnChunkUnloaded(pos terrain.ChunkPos) {
	s.cancel(pos)
	gp := pos.Group()
	if g, ok := s.groups.Get(gp); ok && g.ClearMesh(pos.IndexInGroup()) {
		s.groups.MarkDirty(gp)
	}
	for _, f := range terrain.AllFaces {
		s.markOutdated(pos.Neighbor(f))
	}
}

// OnChunkModified marks the chunk outdated, and the neighbors sharing the
// edited block's boundary too.
func (s *MeshScheduler) OnChunkModified(pos terrain.ChunkPos, local terrain.LocalPos) {
	s.markOutdated(pos)
	for _, f := range touchedFaces(local) {
		s.markOutdated(pos.Neighbor(f))
	}
}

func (s *MeshScheduler) markOutdated(pos terrain.ChunkPos) {
	if j, ok := s.jobs[pos]; ok {
		j.installAs = HasOutdatedMesh
	}
	if g, ok := s.groups.Get(pos.Group()); ok {
		g.MarkOutdated(pos.IndexInGroup())
	}
}

func touchedFaces(l terrain.LocalPos) []terrain.Face {
	var out []terrain.Face
	last := terrain.ChunkSize - 1
	if l.X == 0 {
		out = append(out, terrain.FaceNegX)
	} else if l.X == last {
		out = append(out, terrain.FacePosX)
	}
	if l.Y == 0 {
		out = append(out, terrain.FaceNegY)
	} else if l.Y == last {
		out = append(out, terrain.FacePosY)
	}
	if l.Z == 0 {
		out = append(out, terrain.FaceNegZ)
	} else if l.Z == last {
		out = append(out, terrain.FacePosZ)
	}
	return out
}

// InFlight returns the number of tracked jobs.
func (s *MeshScheduler) InFlight() int { return len(s.jobs) }

// HasJob reports whether a job is tracked for pos, and its class.
func (s *MeshScheduler) HasJob(pos terrain.ChunkPos) (uint8, bool) {
	j, ok := s.jobs[pos]
	if !ok {
		return 0, false
	}
	return j.class, true
}

// Dropped returns the number of results workers could not deliver.
func (s *MeshScheduler) Dropped() int64 { return s.dropped.Load() }

func (s *MeshScheduler) Stats() SchedulerStats { return s.stats }

func (s *MeshScheduler) ResetStats() { s.stats = SchedulerStats{} }

// Close cancels pending jobs and makes workers still running drop their
// results instead of blocking on a full channel.
func (s *MeshScheduler) Close() {
	s.closeOnce.Do(func() {
		for pos := range s.jobs {
			s.cancel(pos)
		}
		close(s.closed)
	})
}
