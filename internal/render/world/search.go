package world

import (
	"github.com/gammazero/deque"

	"voxelview.ai/internal/render/logic/mathx"
	"voxelview.ai/internal/render/terrain"
)

// DrawGroup is one entry of the frame's draw list.
type DrawGroup struct {
	Pos terrain.GroupPos
	// InFrustum is set when any visited chunk of the group passed the
	// frustum test, or the group holds the camera.
	InFrustum bool
}

// FrustumQuery answers the per-chunk frustum test.
type FrustumQuery interface {
	IsChunkWithinFrustum(pos terrain.ChunkPos) bool
}

type frontierItem struct {
	pos   terrain.ChunkPos
	entry terrain.Face
	start bool
}

// VisibilitySearch walks loaded chunks breadth-first from the camera,
// crossing a chunk only between faces its visibility graph connects. The
// first visit to a group fixes its place in the draw order, so groups come
// out roughly front to back. Buffers are reused between frames.
type VisibilitySearch struct {
	// MaxDistance limits the walk to chunks within this Chebyshev distance
	// of the start chunk. Zero means unlimited.
	MaxDistance int

	frontier deque.Deque[frontierItem]
	visited  map[terrain.ChunkPos]struct{}
	groupAt  map[terrain.GroupPos]int
	order    []DrawGroup
}

func NewVisibilitySearch(maxDistance int) *VisibilitySearch {
	return &VisibilitySearch{
		MaxDistance: maxDistance,
		visited:     make(map[terrain.ChunkPos]struct{}),
		groupAt:     make(map[terrain.GroupPos]int),
	}
}

// Run performs one search and calls visit for every loaded chunk reached.
// The returned slice is valid until the next Run.
func (s *VisibilitySearch) Run(start terrain.ChunkPos, store terrain.Store, frustum FrustumQuery, visit func(terrain.ChunkPos)) []DrawGroup {
	s.frontier.Clear()
	clear(s.visited)
	clear(s.groupAt)
	s.order = s.order[:0]

	s.frontier.PushBack(frontierItem{pos: start, start: true})
	for s.frontier.Len() > 0 {
		it := s.frontier.PopFront()
		if _, ok := s.visited[it.pos]; ok {
			continue
		}
		s.visited[it.pos] = struct{}{}
		c, ok := store.Chunk(it.pos)
		if !ok {
			continue
		}

		gp := it.pos.Group()
		idx, seen := s.groupAt[gp]
		if !seen {
			idx = len(s.order)
			s.groupAt[gp] = idx
			s.order = append(s.order, DrawGroup{Pos: gp, InFrustum: it.start})
		}
		if !s.order[idx].InFrustum && frustum.IsChunkWithinFrustum(it.pos) {
			s.order[idx].InFrustum = true
		}
		visit(it.pos)

		graph := c.VisibilityGraph()
		for _, exit := range terrain.AllFaces {
			if !it.start && (exit == it.entry || !graph.CanSee(it.entry, exit)) {
				continue
			}
			next := it.pos.Neighbor(exit)
			if _, ok := s.visited[next]; ok {
				continue
			}
			if s.MaxDistance > 0 && chebyshev(start, next) > s.MaxDistance {
				continue
			}
			s.frontier.PushBack(frontierItem{pos: next, entry: exit.Opposite()})
		}
	}
	return s.order
}

func chebyshev(a, b terrain.ChunkPos) int {
	d := mathx.AbsInt(a.X - b.X)
	if dy := mathx.AbsInt(a.Y - b.Y); dy > d {
		d = dy
	}
	if dz := mathx.AbsInt(a.Z - b.Z); dz > d {
		d = dz
	}
	return d
}
