package store

import (
	"fmt"

	snapv1 "voxelview.ai/internal/persistence/snapshot"
	"voxelview.ai/internal/render/terrain"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(s *MemStore, keys []terrain.ChunkPos) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch, ok := s.Chunk(k)
		if !ok {
			continue
		}
		src := ch.Blocks()
		blocks := make([]uint16, len(src))
		for i, b := range src {
			blocks[i] = uint16(b)
		}
		out = append(out, snapv1.ChunkV1{
			Pos:    [3]int{k.X, k.Y, k.Z},
			Blocks: blocks,
		})
	}
	return out
}

// ImportChunks rebuilds a store from snapshot chunks. Every chunk produces a
// load event.
func ImportChunks(chunks []snapv1.ChunkV1) (*MemStore, error) {
	s := NewMemStore()
	for _, ch := range chunks {
		if len(ch.Blocks) != terrain.ChunkSizeCubed {
			return nil, fmt.Errorf("snapshot chunk blocks length mismatch: got %d want %d", len(ch.Blocks), terrain.ChunkSizeCubed)
		}
		var blocks terrain.ChunkBlocks
		for i, b := range ch.Blocks {
			if int(b) >= len(terrain.Blocks) {
				return nil, fmt.Errorf("snapshot chunk %v: unknown block id %d", ch.Pos, b)
			}
			blocks[i] = terrain.BlockID(b)
		}
		s.Insert(terrain.NewChunk(terrain.ChunkPos{X: ch.Pos[0], Y: ch.Pos[1], Z: ch.Pos[2]}, &blocks))
	}
	return s, nil
}
