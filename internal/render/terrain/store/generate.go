package store

import (
	"sort"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"

	"voxelview.ai/internal/render/logic/mathx"
	"voxelview.ai/internal/render/terrain"
	"voxelview.ai/internal/render/terrain/gen"
)

// GenerateChunk builds the chunk at pos from the generator.
func GenerateChunk(cfg gen.Config, pos terrain.ChunkPos) *terrain.Chunk {
	var blocks terrain.ChunkBlocks
	gen.GenerateChunk(cfg, pos, &blocks)
	return terrain.NewChunk(pos, &blocks)
}

// Streamer generates chunks around a center on a worker pool and evicts
// chunks that fall out of range.
type Streamer struct {
	store   *MemStore
	gen     gen.Config
	pool    pond.Pool
	limiter *rate.Limiter

	mu         deadlock.Mutex
	pending    map[terrain.ChunkPos]struct{}
	maxPending int
	wg         sync.WaitGroup
}

// NewStreamer starts a pool of workers. limiter may be nil to load as fast
// as the pool allows.
func NewStreamer(s *MemStore, cfg gen.Config, workers int, limiter *rate.Limiter) *Streamer {
	if workers < 1 {
		workers = 1
	}
	return &Streamer{
		store:      s,
		gen:        cfg,
		pool:       pond.NewPool(workers),
		limiter:    limiter,
		pending:    map[terrain.ChunkPos]struct{}{},
		maxPending: 4096,
	}
}

// StreamAround queues every missing chunk within radius (horizontal,
// Chebyshev) and [yMin, yMax] of center, closest first. It returns the
// number of chunks queued.
func (st *Streamer) StreamAround(center terrain.ChunkPos, radius, yMin, yMax int) int {
	var want []terrain.ChunkPos
	for y := yMin; y <= yMax; y++ {
		for z := center.Z - radius; z <= center.Z+radius; z++ {
			for x := center.X - radius; x <= center.X+radius; x++ {
				p := terrain.ChunkPos{X: x, Y: y, Z: z}
				if !st.store.HasChunk(p) {
					want = append(want, p)
				}
			}
		}
	}
	sort.SliceStable(want, func(i, j int) bool {
		return distSq(want[i], center) < distSq(want[j], center)
	})

	queued := 0
	for _, p := range want {
		if !st.reserve(p) {
			continue
		}
		if st.limiter != nil && !st.limiter.Allow() {
			st.release(p)
			break
		}
		queued++
		st.wg.Add(1)
		pos := p
		st.pool.Submit(func() {
			defer st.wg.Done()
			st.load(pos)
		})
	}
	return queued
}

func (st *Streamer) reserve(p terrain.ChunkPos) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.pending[p]; ok {
		return false
	}
	if st.maxPending > 0 && len(st.pending) >= st.maxPending {
		return false
	}
	st.pending[p] = struct{}{}
	return true
}

func (st *Streamer) release(p terrain.ChunkPos) {
	st.mu.Lock()
	delete(st.pending, p)
	st.mu.Unlock()
}

func (st *Streamer) load(p terrain.ChunkPos) {
	if !st.store.HasChunk(p) {
		st.store.Insert(GenerateChunk(st.gen, p))
	}
	st.release(p)
}

// LoadAroundSync loads the same set as StreamAround on the calling goroutine.
func (st *Streamer) LoadAroundSync(center terrain.ChunkPos, radius, yMin, yMax int) int {
	n := 0
	for y := yMin; y <= yMax; y++ {
		for z := center.Z - radius; z <= center.Z+radius; z++ {
			for x := center.X - radius; x <= center.X+radius; x++ {
				p := terrain.ChunkPos{X: x, Y: y, Z: z}
				if st.store.HasChunk(p) {
					continue
				}
				st.store.Insert(GenerateChunk(st.gen, p))
				n++
			}
		}
	}
	return n
}

// EvictFar unloads chunks whose horizontal Chebyshev distance from center
// exceeds radius.
func (st *Streamer) EvictFar(center terrain.ChunkPos, radius int) int {
	removed := 0
	for _, k := range st.store.LoadedChunkKeys() {
		if mathx.AbsInt(k.X-center.X) > radius || mathx.AbsInt(k.Z-center.Z) > radius {
			if st.store.Remove(k) {
				removed++
			}
		}
	}
	return removed
}

func (st *Streamer) Pending() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending)
}

// Flush waits for every queued load to finish.
func (st *Streamer) Flush() { st.wg.Wait() }

func (st *Streamer) Close() {
	st.wg.Wait()
	st.pool.StopAndWait()
}

func distSq(a, b terrain.ChunkPos) int {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}
