// Package mesh turns the blocks of one chunk into triangle geometry.
//
// Meshing functions are pure: everything they read is copied into an Input
// before the call, so they are safe to run on worker goroutines.
package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/terrain"
)

type ChunkVertex struct {
	Position     [3]float32
	UV           [2]float32
	TextureIndex uint32
}

type MeshData struct {
	Vertices []ChunkVertex
	Indices  []uint32
}

func (m *MeshData) IsEmpty() bool { return len(m.Indices) == 0 }

// Append adds the geometry of o, offsetting its indices past the vertices
// already in m.
func (m *MeshData) Append(o *MeshData) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, o.Vertices...)
	for _, idx := range o.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// NeighborSide is the boundary layer of the adjacent chunk facing this one.
// Present is false when the neighbor is not loaded.
type NeighborSide struct {
	Present bool
	Side    terrain.ChunkSide
}

// Input is a self-contained snapshot of everything a meshing function reads.
type Input struct {
	Blocks      terrain.ChunkBlocks
	Translation mgl32.Vec3
	// Sides[f] holds the layer of the neighbor in direction f that touches
	// this chunk.
	Sides [terrain.FaceCount]NeighborSide
}

// NewInput copies a chunk and the facing sides of its loaded neighbors.
func NewInput(c *terrain.Chunk, translation mgl32.Vec3, store terrain.Store) *Input {
	in := &Input{Blocks: *c.Blocks(), Translation: translation}
	for _, f := range terrain.AllFaces {
		n, ok := store.Chunk(c.Pos().Neighbor(f))
		if !ok {
			continue
		}
		in.Sides[f] = NeighborSide{Present: true, Side: *n.Side(f.Opposite())}
	}
	return in
}

func (in *Input) block(axis, u, v, w int) terrain.BlockID {
	return in.Blocks[terrain.FaceLocal(axis, u, v, w).Index()]
}

// initialVisibility fills the face visibility of the first layer meshed in
// direction f. A face on the chunk border is hidden when the neighbor block
// across it has a face pointing back.
func (in *Input) initialVisibility(f terrain.Face, visible *[terrain.ChunkSizeSquared]bool) {
	side := &in.Sides[f]
	opp := f.Opposite()
	for i := range visible {
		visible[i] = !side.Present || !side.Side[i].HasFace(opp)
	}
}

// layerDepth walks the chunk from face f inward.
func layerDepth(f terrain.Face, layer int) int {
	if f.Negative() {
		return layer
	}
	return terrain.ChunkSize - 1 - layer
}

// Func is the signature shared by the meshing algorithms.
type Func func(in *Input) MeshData

// ByName resolves a meshing algorithm from configuration.
func ByName(name string) (Func, error) {
	switch name {
	case "", "greedy":
		return Greedy, nil
	case "culled":
		return Culled, nil
	default:
		return nil, fmt.Errorf("unknown mesher %q", name)
	}
}

var quadIndices = [6]uint32{0, 1, 2, 2, 3, 0}

// quadCorners returns the corner offsets of a face of direction f covering
// su cells along u and sv cells along v, counterclockwise seen from outside.
func quadCorners(f terrain.Face, su, sv float32) [4]mgl32.Vec3 {
	switch f {
	case terrain.FacePosX:
		return [4]mgl32.Vec3{{1, 0, su}, {1, 0, 0}, {1, sv, 0}, {1, sv, su}}
	case terrain.FacePosY:
		return [4]mgl32.Vec3{{0, 1, 0}, {0, 1, su}, {sv, 1, su}, {sv, 1, 0}}
	case terrain.FacePosZ:
		return [4]mgl32.Vec3{{0, 0, 1}, {su, 0, 1}, {su, sv, 1}, {0, sv, 1}}
	case terrain.FaceNegX:
		return [4]mgl32.Vec3{{0, 0, 0}, {0, 0, su}, {0, sv, su}, {0, sv, 0}}
	case terrain.FaceNegY:
		return [4]mgl32.Vec3{{sv, 0, 0}, {sv, 0, su}, {0, 0, su}, {0, 0, 0}}
	default:
		return [4]mgl32.Vec3{{su, 0, 0}, {0, 0, 0}, {0, sv, 0}, {su, sv, 0}}
	}
}

func addQuad(dst *MeshData, f terrain.Face, origin mgl32.Vec3, su, sv int, tex uint32) {
	fu, fv := float32(su), float32(sv)
	uvs := [4][2]float32{{0, fv}, {fu, fv}, {fu, 0}, {0, 0}}
	first := uint32(len(dst.Vertices))
	for i, c := range quadCorners(f, fu, fv) {
		p := origin.Add(c)
		dst.Vertices = append(dst.Vertices, ChunkVertex{
			Position:     [3]float32{p[0], p[1], p[2]},
			UV:           uvs[i],
			TextureIndex: tex,
		})
	}
	for _, idx := range quadIndices {
		dst.Indices = append(dst.Indices, first+idx)
	}
}

func cellOrigin(in *Input, axis, u, v, w int) mgl32.Vec3 {
	l := terrain.FaceLocal(axis, u, v, w)
	return mgl32.Vec3{float32(l.X), float32(l.Y), float32(l.Z)}.Add(in.Translation)
}
