package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestChunkContainingFloors(t *testing.T) {
	cases := []struct {
		p    mgl32.Vec3
		want ChunkPos
	}{
		{mgl32.Vec3{0, 0, 0}, ChunkPos{0, 0, 0}},
		{mgl32.Vec3{31.9, 0, 0}, ChunkPos{0, 0, 0}},
		{mgl32.Vec3{32, 0, 0}, ChunkPos{1, 0, 0}},
		{mgl32.Vec3{-0.1, -32, -33}, ChunkPos{-1, -1, -2}},
	}
	for _, c := range cases {
		if got := ChunkContaining(c.p); got != c.want {
			t.Fatalf("ChunkContaining(%v)=%v want %v", c.p, got, c.want)
		}
	}
}

func TestGroupIndexRoundTrip(t *testing.T) {
	for _, p := range []ChunkPos{{0, 0, 0}, {3, 1, 2}, {-1, -5, 7}, {9, -4, -4}} {
		g := p.Group()
		if got := g.ChunkAt(p.IndexInGroup()); got != p {
			t.Fatalf("ChunkAt(IndexInGroup(%v)) = %v", p, got)
		}
	}
	if (ChunkPos{-1, 0, 0}).Group() != (GroupPos{-1, 0, 0}) {
		t.Fatalf("negative chunk should map to negative group")
	}
}

func TestFaceOpposite(t *testing.T) {
	for _, f := range AllFaces {
		if f.Opposite().Opposite() != f {
			t.Fatalf("opposite of opposite of %v", f)
		}
		if f.Offset().Add(f.Opposite().Offset()) != (Vec3i{}) {
			t.Fatalf("offsets of %v and its opposite do not cancel", f)
		}
	}
}

func TestVisibilityGraphSolidAndEmpty(t *testing.T) {
	var solid ChunkBlocks
	for i := range solid {
		solid[i] = BlockStone
	}
	if g := ComputeVisibilityGraph(&solid); g != 0 {
		t.Fatalf("solid chunk graph=%b want 0", g)
	}

	var air ChunkBlocks
	if g := ComputeVisibilityGraph(&air); g != FullyVisible {
		t.Fatalf("empty chunk graph=%b want all faces", g)
	}
}

func TestVisibilityGraphTunnel(t *testing.T) {
	var blocks ChunkBlocks
	for i := range blocks {
		blocks[i] = BlockStone
	}
	// Straight tunnel along x through the middle.
	for x := 0; x < ChunkSize; x++ {
		blocks[LocalPos{x, 16, 16}.Index()] = BlockAir
	}
	g := ComputeVisibilityGraph(&blocks)
	if !g.CanSee(FacePosX, FaceNegX) || !g.CanSee(FaceNegX, FacePosX) {
		t.Fatalf("tunnel should connect +x and -x")
	}
	if g.CanSee(FacePosX, FacePosY) || g.CanSeeAny(FacePosZ) {
		t.Fatalf("tunnel should not reach y or z faces: %b", g)
	}
}

func TestChunkSidesLineUp(t *testing.T) {
	var blocks ChunkBlocks
	blocks[LocalPos{ChunkSize - 1, 3, 5}.Index()] = BlockDirt
	blocks[LocalPos{0, 3, 5}.Index()] = BlockSand
	c := NewChunk(ChunkPos{}, &blocks)

	// Axis x maps (u, v) to (z, y).
	if got := c.Side(FacePosX)[3*ChunkSize+5]; got != BlockDirt {
		t.Fatalf("+x side = %d want dirt", got)
	}
	if got := c.Side(FaceNegX)[3*ChunkSize+5]; got != BlockSand {
		t.Fatalf("-x side = %d want sand", got)
	}
	if c.IsEmpty() {
		t.Fatalf("chunk with blocks reported empty")
	}

	n := c.WithBlock(LocalPos{0, 3, 5}, BlockAir)
	if n.Side(FaceNegX)[3*ChunkSize+5] != BlockAir {
		t.Fatalf("WithBlock did not refresh sides")
	}
	if c.Side(FaceNegX)[3*ChunkSize+5] != BlockSand {
		t.Fatalf("WithBlock mutated the original chunk")
	}
}
