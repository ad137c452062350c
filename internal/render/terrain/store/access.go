package store

import "voxelview.ai/internal/render/terrain"

// GetBlock returns the block at a world position, or air when the chunk is
// not loaded.
func (s *MemStore) GetBlock(x, y, z int) terrain.BlockID {
	cp, lp := terrain.SplitWorldPos(x, y, z)
	c, ok := s.Chunk(cp)
	if !ok {
		return terrain.BlockAir
	}
	return c.Block(lp)
}

// SetBlock replaces one block of a loaded chunk. The chunk is rebuilt
// copy-on-write so readers holding the old chunk are unaffected. It reports
// whether anything changed.
func (s *MemStore) SetBlock(x, y, z int, b terrain.BlockID) bool {
	cp, lp := terrain.SplitWorldPos(x, y, z)

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[cp]
	if !ok || c.Block(lp) == b {
		return false
	}
	s.chunks[cp] = c.WithBlock(lp, b)
	s.events = append(s.events, terrain.Event{Kind: terrain.ChunkModified, Pos: cp, Local: lp})
	return true
}
