// Package gfx is the boundary to the graphics device. The world renderer
// only allocates group buffers, uploads merged meshes and issues indexed
// draws through it.
package gfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/mesh"
)

// GroupBuffers are the device resources of one render group: a uniform
// holding the group origin and one merged vertex/index buffer.
type GroupBuffers interface {
	WriteUniform(origin mgl32.Vec3)
	// Upload replaces the merged mesh. An empty mesh frees the device buffers.
	Upload(m *mesh.MeshData)
	IndexCount() int
	Release()
}

type Backend interface {
	NewGroupBuffers(label string) GroupBuffers
	BeginFrame(viewProj mgl32.Mat4)
	DrawIndexed(b GroupBuffers)
	EndFrame() FrameCounters
}

// FrameCounters summarize the device work of one frame.
type FrameCounters struct {
	Draws           int `json:"draws"`
	Indices         int `json:"indices"`
	Uploads         int `json:"uploads"`
	UploadedVerts   int `json:"uploaded_vertices"`
	LiveBuffers     int `json:"live_buffers"`
	ResidentIndices int `json:"resident_indices"`
}
