// Package world decides each frame which render groups to draw and keeps
// their chunk meshes current.
package world

import (
	"log"
	"time"

	"voxelview.ai/internal/render/camera"
	"voxelview.ai/internal/render/cull"
	"voxelview.ai/internal/render/gfx"
	"voxelview.ai/internal/render/mesh"
	"voxelview.ai/internal/render/terrain"
)

type Config struct {
	RegionGrid     terrain.Vec3i
	RegionSize     terrain.Vec3i
	RenderDistance int
	ResultBuffer   int
	Mesher         mesh.Func
	VerboseRegions bool
}

func DefaultConfig() Config {
	return Config{
		RegionGrid:     terrain.Vec3i{X: 16, Y: 8, Z: 16},
		RegionSize:     terrain.Splat(4),
		RenderDistance: 16,
		ResultBuffer:   256,
		Mesher:         mesh.Greedy,
	}
}

// FrameStats describe one Prepare/Render pair.
type FrameStats struct {
	Frame         uint64            `json:"frame"`
	ChunksVisited int               `json:"chunks_visited"`
	DrawList      int               `json:"draw_list"`
	GroupsInView  int               `json:"groups_in_view"`
	Groups        int               `json:"groups"`
	GroupsRemoved int               `json:"groups_removed"`
	GroupsRebuilt int               `json:"groups_rebuilt"`
	MeshesDrained int               `json:"meshes_drained"`
	JobsInFlight  int               `json:"jobs_in_flight"`
	Events        int               `json:"terrain_events"`
	Scheduler     SchedulerStats    `json:"scheduler"`
	Device        gfx.FrameCounters `json:"device"`
	PrepareTime   time.Duration     `json:"prepare_ns"`
	RenderTime    time.Duration     `json:"render_ns"`
}

// WorldRenderer owns the culler, the group table and the mesh scheduler.
// Prepare and Render must be called from one goroutine.
type WorldRenderer struct {
	store   terrain.Store
	backend gfx.Backend
	log     *log.Logger

	culler *cull.RegionCuller
	groups *GroupTable
	sched  *MeshScheduler
	search *VisibilitySearch

	cam   camera.Camera
	draw  []DrawGroup
	frame uint64
	stats FrameStats
}

func New(cfg Config, store terrain.Store, exec Executor, backend gfx.Backend, logger *log.Logger) *WorldRenderer {
	def := DefaultConfig()
	if cfg.RegionGrid.Product() <= 0 {
		cfg.RegionGrid = def.RegionGrid
	}
	if cfg.RegionSize.Product() <= 0 {
		cfg.RegionSize = def.RegionSize
	}
	culler := cull.NewRegionCuller(cfg.RegionGrid, cfg.RegionSize, logger)
	culler.SetVerbose(cfg.VerboseRegions)
	groups := NewGroupTable(backend)
	return &WorldRenderer{
		store:   store,
		backend: backend,
		log:     logger,
		culler:  culler,
		groups:  groups,
		sched:   NewMeshScheduler(store, groups, exec, cfg.Mesher, cfg.ResultBuffer, logger),
		search:  NewVisibilitySearch(cfg.RenderDistance),
	}
}

// Prepare updates culling, applies terrain events, installs finished meshes
// and builds the draw list for cam.
func (r *WorldRenderer) Prepare(cam camera.Camera) FrameStats {
	start := time.Now()
	r.frame++
	r.cam = cam
	r.stats = FrameStats{Frame: r.frame}
	r.sched.ResetStats()

	r.culler.Update(cam)
	r.sched.BeginFrame(r.frame, cam.Position)

	events := r.store.DrainEvents()
	for _, ev := range events {
		switch ev.Kind {
		case terrain.ChunkLoaded:
			r.sched.OnChunkLoaded(ev.Pos)
		case terrain.ChunkUnloaded:
			r.sched.OnChunkUnloaded(ev.Pos)
		case terrain.ChunkModified:
			r.sched.OnChunkModified(ev.Pos, ev.Local)
		}
	}
	r.stats.Events = len(events)
	r.stats.MeshesDrained = r.sched.Drain()

	visited := 0
	r.draw = r.search.Run(terrain.ChunkContaining(cam.Position), r.store, r.culler, func(p terrain.ChunkPos) {
		visited++
		r.sched.RequestMeshUpdates(p)
	})
	r.stats.ChunksVisited = visited
	r.stats.DrawList = len(r.draw)

	r.stats.GroupsRemoved, r.stats.GroupsRebuilt = r.groups.Finish()
	r.stats.Groups = r.groups.Len()
	r.stats.JobsInFlight = r.sched.InFlight()
	r.stats.Scheduler = r.sched.Stats()
	r.stats.PrepareTime = time.Since(start)
	return r.stats
}

// Render draws every group of the draw list that is in view and has
// geometry, in draw-list order.
func (r *WorldRenderer) Render() FrameStats {
	start := time.Now()
	viewProj := r.cam.ProjectionMatrix().Mul4(r.cam.ViewMatrix())
	r.backend.BeginFrame(viewProj)
	inView := 0
	for _, d := range r.draw {
		if !d.InFrustum {
			continue
		}
		g, ok := r.groups.Get(d.Pos)
		if !ok || g.IndexCount() == 0 {
			continue
		}
		inView++
		r.backend.DrawIndexed(g.buffers)
	}
	r.stats.Device = r.backend.EndFrame()
	r.stats.GroupsInView = inView
	r.stats.RenderTime = time.Since(start)
	return r.stats
}

// IsChunkWithinFrustum tests a chunk against the frustum of the last
// Prepare.
func (r *WorldRenderer) IsChunkWithinFrustum(pos terrain.ChunkPos) bool {
	return r.culler.IsChunkWithinFrustum(pos)
}

// ChunkStatus returns the mesh status of a chunk.
func (r *WorldRenderer) ChunkStatus(pos terrain.ChunkPos) ChunkMeshStatus {
	return r.groups.ChunkStatus(pos)
}

func (r *WorldRenderer) Groups() *GroupTable        { return r.groups }
func (r *WorldRenderer) Scheduler() *MeshScheduler  { return r.sched }
func (r *WorldRenderer) Culler() *cull.RegionCuller { return r.culler }

// DrawList returns the groups of the last Prepare in draw order.
func (r *WorldRenderer) DrawList() []DrawGroup { return r.draw }

// Close stops result delivery and releases device resources. The executor
// is owned by the caller and should be closed afterwards.
func (r *WorldRenderer) Close() {
	if n := r.sched.InFlight(); n > 0 && r.log != nil {
		r.log.Printf("closing renderer with %d mesh jobs in flight", n)
	}
	r.sched.Close()
	r.groups.Close()
	r.draw = nil
}
