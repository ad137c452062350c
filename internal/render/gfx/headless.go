package gfx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/mesh"
)

// Headless is a Backend without a device. It keeps uploaded meshes in
// memory and records draw calls, which is enough for tools and tests.
// It must only be used from the frame goroutine.
type Headless struct {
	viewProj mgl32.Mat4
	inFrame  bool
	frame    FrameCounters
	live     map[*headlessBuffers]struct{}

	// Drawn lists the labels drawn in the current frame in call order.
	Drawn []string
}

func NewHeadless() *Headless {
	return &Headless{live: make(map[*headlessBuffers]struct{})}
}

type headlessBuffers struct {
	owner    *Headless
	label    string
	origin   mgl32.Vec3
	vertices int
	indices  int
	released bool
}

func (h *Headless) NewGroupBuffers(label string) GroupBuffers {
	b := &headlessBuffers{owner: h, label: label}
	h.live[b] = struct{}{}
	return b
}

func (b *headlessBuffers) WriteUniform(origin mgl32.Vec3) { b.origin = origin }

func (b *headlessBuffers) Upload(m *mesh.MeshData) {
	if b.released {
		panic(fmt.Sprintf("gfx: upload to released buffers %s", b.label))
	}
	b.vertices = len(m.Vertices)
	b.indices = len(m.Indices)
	b.owner.frame.Uploads++
	b.owner.frame.UploadedVerts += b.vertices
}

func (b *headlessBuffers) IndexCount() int { return b.indices }

func (b *headlessBuffers) Release() {
	if b.released {
		return
	}
	b.released = true
	delete(b.owner.live, b)
}

func (h *Headless) BeginFrame(viewProj mgl32.Mat4) {
	h.viewProj = viewProj
	h.inFrame = true
	h.Drawn = h.Drawn[:0]
	h.frame.Draws, h.frame.Indices = 0, 0
}

func (h *Headless) DrawIndexed(gb GroupBuffers) {
	b, ok := gb.(*headlessBuffers)
	if !ok || b.owner != h {
		panic("gfx: buffers from another backend")
	}
	if !h.inFrame {
		panic("gfx: draw outside of a frame")
	}
	if b.released {
		panic(fmt.Sprintf("gfx: draw of released buffers %s", b.label))
	}
	h.frame.Draws++
	h.frame.Indices += b.indices
	h.Drawn = append(h.Drawn, b.label)
}

// EndFrame returns the frame's counters. Upload counters accumulate from
// the previous EndFrame, so uploads done while preparing a frame are
// reported with it.
func (h *Headless) EndFrame() FrameCounters {
	h.inFrame = false
	out := h.frame
	out.LiveBuffers = len(h.live)
	for b := range h.live {
		out.ResidentIndices += b.indices
	}
	h.frame = FrameCounters{}
	return out
}

// LiveBuffers returns the number of group buffers not yet released.
func (h *Headless) LiveBuffers() int { return len(h.live) }
