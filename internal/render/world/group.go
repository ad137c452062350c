package world

import (
	"fmt"

	"voxelview.ai/internal/render/gfx"
	"voxelview.ai/internal/render/mesh"
	"voxelview.ai/internal/render/terrain"
)

const chunksPerGroup = terrain.RenderGroupSize * terrain.RenderGroupSize * terrain.RenderGroupSize

type ChunkMeshStatus uint8

const (
	NoMesh ChunkMeshStatus = iota
	HasOutdatedMesh
	HasSuboptimalMesh
	HasGoodMesh
)

func (s ChunkMeshStatus) String() string {
	switch s {
	case NoMesh:
		return "none"
	case HasOutdatedMesh:
		return "outdated"
	case HasSuboptimalMesh:
		return "suboptimal"
	case HasGoodMesh:
		return "good"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// chunkMesh is the installed mesh of one chunk. Status is tracked here and
// nowhere else.
type chunkMesh struct {
	status ChunkMeshStatus
	data   mesh.MeshData
	// frame the job that produced data was submitted in
	frame uint64
}

// RenderGroup batches the meshes of RenderGroupSize³ chunks into one
// device buffer. It exists only while at least one chunk in it has a mesh,
// empty meshes included.
type RenderGroup struct {
	pos     terrain.GroupPos
	buffers gfx.GroupBuffers
	chunks  [chunksPerGroup]*chunkMesh
	count   int
	slot    int // index in GroupTable.positions
}

func newRenderGroup(pos terrain.GroupPos, backend gfx.Backend) *RenderGroup {
	g := &RenderGroup{pos: pos, buffers: backend.NewGroupBuffers("group " + pos.String())}
	g.buffers.WriteUniform(pos.Origin())
	return g
}

func (g *RenderGroup) Pos() terrain.GroupPos { return g.pos }

// IsEmpty reports whether no chunk in the group has a mesh.
func (g *RenderGroup) IsEmpty() bool { return g.count == 0 }

// Chunks returns the number of chunks with a mesh.
func (g *RenderGroup) Chunks() int { return g.count }

// IndexCount is the size of the uploaded merged mesh.
func (g *RenderGroup) IndexCount() int { return g.buffers.IndexCount() }

func (g *RenderGroup) Status(index int) ChunkMeshStatus {
	if cm := g.chunks[index]; cm != nil {
		return cm.status
	}
	return NoMesh
}

// SubmittedFrame returns the frame the installed mesh was requested in.
func (g *RenderGroup) SubmittedFrame(index int) (uint64, bool) {
	if cm := g.chunks[index]; cm != nil {
		return cm.frame, true
	}
	return 0, false
}

// SetMesh installs a mesh and reports whether the drawn content changed.
func (g *RenderGroup) SetMesh(index int, data mesh.MeshData, status ChunkMeshStatus, frame uint64) bool {
	cm := g.chunks[index]
	if cm == nil {
		cm = &chunkMesh{}
		g.chunks[index] = cm
		g.count++
	}
	changed := !cm.data.IsEmpty() || !data.IsEmpty()
	cm.status = status
	cm.data = data
	cm.frame = frame
	return changed
}

// ClearMesh removes the chunk's mesh. It reports whether there was one.
func (g *RenderGroup) ClearMesh(index int) bool {
	if g.chunks[index] == nil {
		return false
	}
	g.chunks[index] = nil
	g.count--
	return true
}

// MarkSuboptimal downgrades a good mesh. Other states are left alone.
func (g *RenderGroup) MarkSuboptimal(index int) bool {
	cm := g.chunks[index]
	if cm == nil || cm.status != HasGoodMesh {
		return false
	}
	cm.status = HasSuboptimalMesh
	return true
}

// MarkOutdated flags an existing mesh for a full remesh.
func (g *RenderGroup) MarkOutdated(index int) bool {
	cm := g.chunks[index]
	if cm == nil {
		return false
	}
	cm.status = HasOutdatedMesh
	return true
}

// Rebuild merges every chunk mesh and uploads the result.
func (g *RenderGroup) Rebuild() {
	var merged mesh.MeshData
	for _, cm := range g.chunks {
		if cm != nil {
			merged.Append(&cm.data)
		}
	}
	g.buffers.Upload(&merged)
}

func (g *RenderGroup) release() { g.buffers.Release() }
