package terrain

// ChunkBlocks holds every block of a chunk, ordered by z, then y, then x.
// It is an array so assigning it copies the data.
type ChunkBlocks [ChunkSizeCubed]BlockID

// ChunkSide is the layer of blocks touching one face of a chunk, indexed
// v*ChunkSize+u in the face's tangent coordinates (see FaceLocal).
type ChunkSide [ChunkSizeSquared]BlockID

// FaceLocal converts tangent coordinates (u, v) and depth w along axis into
// a chunk-local position. Faces of the same axis share the mapping, so a
// side of one chunk lines up with the opposite side of its neighbor.
func FaceLocal(axis, u, v, w int) LocalPos {
	switch axis {
	case 0:
		return LocalPos{X: w, Y: v, Z: u}
	case 1:
		return LocalPos{X: v, Y: w, Z: u}
	default:
		return LocalPos{X: u, Y: v, Z: w}
	}
}

// BoundaryLayer returns the depth of the layer touching face f.
func BoundaryLayer(f Face) int {
	if f.Negative() {
		return 0
	}
	return ChunkSize - 1
}

// Chunk is an immutable loaded chunk together with the data derived from
// its blocks when it was built.
type Chunk struct {
	pos    ChunkPos
	blocks ChunkBlocks
	graph  VisibilityGraph
	sides  [FaceCount]ChunkSide
	empty  bool
}

// NewChunk copies blocks and precomputes the visibility graph and sides.
// It is expensive and meant to run off the frame goroutine.
func NewChunk(pos ChunkPos, blocks *ChunkBlocks) *Chunk {
	c := &Chunk{pos: pos, blocks: *blocks}
	c.derive()
	return c
}

func (c *Chunk) derive() {
	c.graph = ComputeVisibilityGraph(&c.blocks)
	for _, f := range AllFaces {
		axis := f.Axis()
		w := BoundaryLayer(f)
		side := &c.sides[f]
		for v := 0; v < ChunkSize; v++ {
			for u := 0; u < ChunkSize; u++ {
				side[v*ChunkSize+u] = c.blocks[FaceLocal(axis, u, v, w).Index()]
			}
		}
	}
	c.empty = true
	for _, b := range c.blocks {
		if b != BlockAir {
			c.empty = false
			break
		}
	}
}

func (c *Chunk) Pos() ChunkPos { return c.pos }

// Blocks returns the block array. Callers must not modify it.
func (c *Chunk) Blocks() *ChunkBlocks { return &c.blocks }

func (c *Chunk) Block(l LocalPos) BlockID { return c.blocks[l.Index()] }

func (c *Chunk) VisibilityGraph() VisibilityGraph { return c.graph }

// Side returns the boundary layer touching face f. Callers must not modify it.
func (c *Chunk) Side(f Face) *ChunkSide { return &c.sides[f] }

// IsEmpty reports whether the chunk holds only air.
func (c *Chunk) IsEmpty() bool { return c.empty }

// WithBlock returns a copy of the chunk with one block replaced.
func (c *Chunk) WithBlock(l LocalPos, id BlockID) *Chunk {
	n := &Chunk{pos: c.pos, blocks: c.blocks}
	n.blocks[l.Index()] = id
	n.derive()
	return n
}
