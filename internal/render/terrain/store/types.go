package store

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"voxelview.ai/internal/render/terrain"
)

// MemStore is an in-memory terrain store. Loaders may insert and remove
// chunks from any goroutine; the renderer reads it from the frame goroutine.
type MemStore struct {
	mu     deadlock.RWMutex
	chunks map[terrain.ChunkPos]*terrain.Chunk
	events []terrain.Event
}

func NewMemStore() *MemStore {
	return &MemStore{
		chunks: map[terrain.ChunkPos]*terrain.Chunk{},
	}
}

func (s *MemStore) Chunk(pos terrain.ChunkPos) (*terrain.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[pos]
	return c, ok
}

func (s *MemStore) HasChunk(pos terrain.ChunkPos) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chunks[pos]
	return ok
}

func (s *MemStore) DrainEvents() []terrain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	out := s.events
	s.events = nil
	return out
}

// Insert adds or replaces a chunk. Replacing emits an unload followed by a
// load so consumers drop the old mesh.
func (s *MemStore) Insert(c *terrain.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := c.Pos()
	if _, ok := s.chunks[pos]; ok {
		s.events = append(s.events, terrain.Event{Kind: terrain.ChunkUnloaded, Pos: pos})
	}
	s.chunks[pos] = c
	s.events = append(s.events, terrain.Event{Kind: terrain.ChunkLoaded, Pos: pos})
}

// Remove unloads a chunk. It reports whether the chunk was loaded.
func (s *MemStore) Remove(pos terrain.ChunkPos) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[pos]; !ok {
		return false
	}
	delete(s.chunks, pos)
	s.events = append(s.events, terrain.Event{Kind: terrain.ChunkUnloaded, Pos: pos})
	return true
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// LoadedChunkKeys returns loaded positions sorted by x, then y, then z.
func (s *MemStore) LoadedChunkKeys() []terrain.ChunkPos {
	s.mu.RLock()
	keys := make([]terrain.ChunkPos, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].Z < keys[j].Z
	})
	return keys
}
