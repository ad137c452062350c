package terrain

import "github.com/gammazero/deque"

// VisibilityGraph records which pairs of chunk faces are connected through
// non-occluding blocks. Bit a*6+b is set when a ray entering through face a
// may leave through face b; the relation is symmetric.
type VisibilityGraph uint64

// FullyVisible connects every pair of faces.
const FullyVisible VisibilityGraph = 1<<(FaceCount*FaceCount) - 1

func (g VisibilityGraph) CanSee(a, b Face) bool {
	return g&(1<<(uint(a)*FaceCount+uint(b))) != 0
}

func (g *VisibilityGraph) Connect(a, b Face) {
	*g |= 1 << (uint(a)*FaceCount + uint(b))
	*g |= 1 << (uint(b)*FaceCount + uint(a))
}

// CanSeeAny reports whether anything entering through face a can leave the
// chunk at all.
func (g VisibilityGraph) CanSeeAny(a Face) bool {
	return g&(((1<<FaceCount)-1)<<(uint(a)*FaceCount)) != 0
}

// ComputeVisibilityGraph flood-fills every connected region of
// non-occluding blocks and connects all faces that region touches.
func ComputeVisibilityGraph(blocks *ChunkBlocks) VisibilityGraph {
	var (
		g       VisibilityGraph
		visited [ChunkSizeCubed / 64]uint64
		todo    deque.Deque[int]
	)
	seen := func(i int) bool { return visited[i>>6]&(1<<(i&63)) != 0 }
	mark := func(i int) { visited[i>>6] |= 1 << (i & 63) }

	for start := 0; start < ChunkSizeCubed; start++ {
		if seen(start) || blocks[start].Occludes() {
			continue
		}
		var faces uint8
		mark(start)
		todo.PushBack(start)
		for todo.Len() > 0 {
			i := todo.PopFront()
			x := i % ChunkSize
			y := (i / ChunkSize) % ChunkSize
			z := i / ChunkSizeSquared
			faces |= boundaryFaces(x, y, z)

			try := func(nx, ny, nz int) {
				if nx < 0 || ny < 0 || nz < 0 || nx >= ChunkSize || ny >= ChunkSize || nz >= ChunkSize {
					return
				}
				n := LocalPos{nx, ny, nz}.Index()
				if seen(n) || blocks[n].Occludes() {
					return
				}
				mark(n)
				todo.PushBack(n)
			}
			try(x+1, y, z)
			try(x-1, y, z)
			try(x, y+1, z)
			try(x, y-1, z)
			try(x, y, z+1)
			try(x, y, z-1)
		}
		for a := 0; a < FaceCount; a++ {
			if faces&(1<<a) == 0 {
				continue
			}
			for b := a; b < FaceCount; b++ {
				if faces&(1<<b) != 0 {
					g.Connect(Face(a), Face(b))
				}
			}
		}
		if g == FullyVisible {
			break
		}
	}
	return g
}

func boundaryFaces(x, y, z int) uint8 {
	var m uint8
	if x == ChunkSize-1 {
		m |= 1 << FacePosX
	}
	if y == ChunkSize-1 {
		m |= 1 << FacePosY
	}
	if z == ChunkSize-1 {
		m |= 1 << FacePosZ
	}
	if x == 0 {
		m |= 1 << FaceNegX
	}
	if y == 0 {
		m |= 1 << FaceNegY
	}
	if z == 0 {
		m |= 1 << FaceNegZ
	}
	return m
}
