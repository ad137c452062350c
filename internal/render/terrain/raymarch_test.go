package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type mapStore map[ChunkPos]*Chunk

func (m mapStore) Chunk(pos ChunkPos) (*Chunk, bool) {
	c, ok := m[pos]
	return c, ok
}

func (m mapStore) HasChunk(pos ChunkPos) bool {
	_, ok := m[pos]
	return ok
}

func (m mapStore) DrainEvents() []Event { return nil }

func chunkWith(pos ChunkPos, blocks ...LocalPos) *Chunk {
	var b ChunkBlocks
	for _, l := range blocks {
		b[l.Index()] = BlockStone
	}
	return NewChunk(pos, &b)
}

func TestChunkRaymarchHit(t *testing.T) {
	c := chunkWith(ChunkPos{}, LocalPos{10, 5, 5})
	hit, ok := c.Raymarch(mgl32.Vec3{0.5, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, nil, 64)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if hit.Local != (LocalPos{10, 5, 5}) {
		t.Fatalf("hit=%v want (10,5,5)", hit.Local)
	}
	if !hit.HasNormal || hit.Normal != (Vec3i{-1, 0, 0}) {
		t.Fatalf("normal=%v has=%v want (-1,0,0)", hit.Normal, hit.HasNormal)
	}

	// Ray from above enters through the +y face.
	hit, ok = c.Raymarch(mgl32.Vec3{10.5, 9.5, 5.5}, mgl32.Vec3{0, -1, 0}, nil, 64)
	if !ok || hit.Normal != (Vec3i{0, 1, 0}) {
		t.Fatalf("downward ray: ok=%v normal=%v", ok, hit.Normal)
	}
}

func TestChunkRaymarchMiss(t *testing.T) {
	c := chunkWith(ChunkPos{}, LocalPos{10, 5, 5})
	if hit, ok := c.Raymarch(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0, 1, 0}, nil, 64); ok {
		t.Fatalf("ray escaping the chunk hit %v", hit.Local)
	}
	// Distance limit stops short of the block.
	if _, ok := c.Raymarch(mgl32.Vec3{0.5, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, nil, 5); ok {
		t.Fatalf("hit beyond max distance")
	}
}

func TestChunkRaymarchNormalFromPreviousChunk(t *testing.T) {
	c := chunkWith(ChunkPos{}, LocalPos{0, 5, 5})
	hit, ok := c.Raymarch(mgl32.Vec3{0.2, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, nil, 64)
	if !ok || hit.HasNormal {
		t.Fatalf("first cell solid without previous chunk: ok=%v has=%v", ok, hit.HasNormal)
	}
	prev := ChunkPos{-1, 0, 0}
	hit, ok = c.Raymarch(mgl32.Vec3{0.2, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, &prev, 64)
	if !ok || !hit.HasNormal || hit.Normal != (Vec3i{-1, 0, 0}) {
		t.Fatalf("ok=%v normal=%v has=%v want (-1,0,0)", ok, hit.Normal, hit.HasNormal)
	}
}

func TestRaymarchCrossesChunks(t *testing.T) {
	s := mapStore{
		{1, 0, 0}: chunkWith(ChunkPos{1, 0, 0}, LocalPos{3, 5, 5}),
	}
	hit, ok := Raymarch(s, mgl32.Vec3{10.5, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatalf("expected a hit in the next chunk")
	}
	if hit.Chunk != (ChunkPos{1, 0, 0}) || hit.World() != (Vec3i{35, 5, 5}) || hit.Block != BlockStone {
		t.Fatalf("hit chunk=%v world=%v block=%d", hit.Chunk, hit.World(), hit.Block)
	}
	if hit.Adjacent() != (Vec3i{34, 5, 5}) {
		t.Fatalf("adjacent=%v want (34,5,5)", hit.Adjacent())
	}

	if _, ok := Raymarch(s, mgl32.Vec3{10.5, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, 20); ok {
		t.Fatalf("hit beyond max distance")
	}
	if _, ok := Raymarch(s, mgl32.Vec3{10.5, 5.5, 5.5}, mgl32.Vec3{-1, 0, 0}, 100); ok {
		t.Fatalf("ray away from the only chunk hit something")
	}
}

func TestRaymarchNormalAtChunkBoundary(t *testing.T) {
	s := mapStore{
		{0, 0, 0}: chunkWith(ChunkPos{0, 0, 0}),
		{1, 0, 0}: chunkWith(ChunkPos{1, 0, 0}, LocalPos{0, 5, 5}),
	}
	hit, ok := Raymarch(s, mgl32.Vec3{20.5, 5.5, 5.5}, mgl32.Vec3{1, 0, 0}, 100)
	if !ok || hit.World() != (Vec3i{32, 5, 5}) {
		t.Fatalf("ok=%v world=%v want (32,5,5)", ok, hit.World())
	}
	if !hit.HasNormal || hit.Normal != (Vec3i{-1, 0, 0}) {
		t.Fatalf("normal=%v has=%v want (-1,0,0) from the previous chunk", hit.Normal, hit.HasNormal)
	}
}
