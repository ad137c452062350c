package gen

import (
	"testing"

	"voxelview.ai/internal/render/terrain"
)

func TestGenerateChunkDeterministic(t *testing.T) {
	cfg := DefaultConfig(42)
	var a, b terrain.ChunkBlocks
	GenerateChunk(cfg, terrain.ChunkPos{X: 1, Y: 0, Z: -2}, &a)
	GenerateChunk(cfg, terrain.ChunkPos{X: 1, Y: 0, Z: -2}, &b)
	if a != b {
		t.Fatalf("same seed produced different chunks")
	}
}

func TestSurfaceLayering(t *testing.T) {
	cfg := DefaultConfig(7)
	cfg.CavePermille = 0
	h := HeightAt(cfg, 5, 9)
	if got := BlockAt(cfg, 5, h+1, 9); got != terrain.BlockAir {
		t.Fatalf("above surface = %d want air", got)
	}
	top := BlockAt(cfg, 5, h, 9)
	if top != terrain.BlockGrass && top != terrain.BlockSand {
		t.Fatalf("surface = %d want grass or sand", top)
	}
	if got := BlockAt(cfg, 5, h-10, 9); got != terrain.BlockStone {
		t.Fatalf("deep block = %d want stone", got)
	}
}

func TestHighChunkIsEmpty(t *testing.T) {
	cfg := DefaultConfig(1)
	var blocks terrain.ChunkBlocks
	GenerateChunk(cfg, terrain.ChunkPos{X: 0, Y: 4, Z: 0}, &blocks)
	c := terrain.NewChunk(terrain.ChunkPos{X: 0, Y: 4, Z: 0}, &blocks)
	if !c.IsEmpty() {
		t.Fatalf("chunk far above the height range should be air")
	}
}
