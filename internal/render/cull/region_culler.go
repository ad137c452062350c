package cull

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/camera"
	"voxelview.ai/internal/render/terrain"
)

// RegionCuller keeps a coarse grid of regions centered on the camera and
// caches which regions intersect the frustum, so most per-chunk queries are
// answered by one array lookup.
type RegionCuller struct {
	gridSize   terrain.Vec3i // regions per axis
	regionSize terrain.Vec3i // chunks per region per axis
	gridPos    terrain.Vec3i // chunk position of the grid's minimum corner

	visible []bool
	params  FrustumParams
	updated bool

	verbose bool
	log     *log.Logger
}

// NewRegionCuller panics if either size has a non-positive axis.
func NewRegionCuller(gridSize, regionSize terrain.Vec3i, logger *log.Logger) *RegionCuller {
	if gridSize.X <= 0 || gridSize.Y <= 0 || gridSize.Z <= 0 {
		panic("cull: grid size must be positive")
	}
	if regionSize.X <= 0 || regionSize.Y <= 0 || regionSize.Z <= 0 {
		panic("cull: region size must be positive")
	}
	return &RegionCuller{
		gridSize:   gridSize,
		regionSize: regionSize,
		visible:    make([]bool, gridSize.Product()),
		log:        logger,
	}
}

// SetVerbose enables a log line for every visible region on each update.
func (c *RegionCuller) SetVerbose(v bool) { c.verbose = v && c.log != nil }

func (c *RegionCuller) GridPos() terrain.Vec3i    { return c.gridPos }
func (c *RegionCuller) GridSize() terrain.Vec3i   { return c.gridSize }
func (c *RegionCuller) RegionSize() terrain.Vec3i { return c.regionSize }
func (c *RegionCuller) Params() FrustumParams     { return c.params }

// Update recenters the grid on the camera and retests every region. It
// returns the frustum parameters used for this frame.
func (c *RegionCuller) Update(cam camera.Camera) FrustumParams {
	c.params = ParamsFromCamera(cam)
	camChunk := terrain.Vec3i(terrain.ChunkContaining(cam.Position))
	extent := c.gridSize.Mul(c.regionSize)
	c.gridPos = camChunk.Sub(terrain.Vec3i{X: extent.X / 2, Y: extent.Y / 2, Z: extent.Z / 2})

	size := c.regionSize.Scale(terrain.ChunkSize).Vec3()
	visibleCount := 0
	for z := 0; z < c.gridSize.Z; z++ {
		for y := 0; y < c.gridSize.Y; y++ {
			for x := 0; x < c.gridSize.X; x++ {
				r := terrain.Vec3i{X: x, Y: y, Z: z}
				min := c.gridPos.Add(r.Mul(c.regionSize)).Scale(terrain.ChunkSize).Vec3()
				v := AABBIntersectsFrustum(c.params, min, size)
				c.visible[c.index(r)] = v
				if v {
					visibleCount++
					if c.verbose {
						c.log.Printf("region %v visible (min=%v)", r, min)
					}
				}
			}
		}
	}
	if c.verbose {
		c.log.Printf("regions visible: %d/%d", visibleCount, len(c.visible))
	}
	c.updated = true
	return c.params
}

func (c *RegionCuller) index(r terrain.Vec3i) int {
	return (r.Z*c.gridSize.Y+r.Y)*c.gridSize.X + r.X
}

// regionOf returns the grid cell of a chunk and whether it lies in the grid.
func (c *RegionCuller) regionOf(pos terrain.ChunkPos) (terrain.Vec3i, bool) {
	r := terrain.Vec3i(pos).Sub(c.gridPos).FloorDiv(c.regionSize)
	return r, r.Within(c.gridSize)
}

// RegionVisible reports the cached flag of the region containing pos. ok is
// false when pos lies outside the grid.
func (c *RegionCuller) RegionVisible(pos terrain.ChunkPos) (visible, ok bool) {
	r, in := c.regionOf(pos)
	if !in {
		return false, false
	}
	return c.visible[c.index(r)], true
}

// IsChunkWithinFrustum rejects chunks in invisible regions without further
// work and otherwise tests the chunk's own box. A region is flagged visible
// whenever one of its chunks could pass that test, so the coarse rejection
// never hides a chunk the corner test accepts. Before the first Update it
// answers true.
func (c *RegionCuller) IsChunkWithinFrustum(pos terrain.ChunkPos) bool {
	if !c.updated {
		return true
	}
	if visible, ok := c.RegionVisible(pos); ok && !visible {
		return false
	}
	const s = float32(terrain.ChunkSize)
	return AABBFrustumTest(c.params, pos.Origin(), mgl32.Vec3{s, s, s})
}

// IsBoxWithinFrustum tests an arbitrary world-space box against the frustum
// of the last update.
func (c *RegionCuller) IsBoxWithinFrustum(min, size mgl32.Vec3) bool {
	if !c.updated {
		return true
	}
	return AABBFrustumTest(c.params, min, size)
}
