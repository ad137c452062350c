package world

import (
	"fmt"

	"voxelview.ai/internal/render/gfx"
	"voxelview.ai/internal/render/terrain"
)

// GroupTable owns every render group. The map and the position slice are
// only changed through insert and remove, which keep them in step.
type GroupTable struct {
	backend   gfx.Backend
	groups    map[terrain.GroupPos]*RenderGroup
	positions []terrain.GroupPos

	dirty    []terrain.GroupPos
	dirtySet map[terrain.GroupPos]struct{}
}

func NewGroupTable(backend gfx.Backend) *GroupTable {
	return &GroupTable{
		backend:  backend,
		groups:   make(map[terrain.GroupPos]*RenderGroup),
		dirtySet: make(map[terrain.GroupPos]struct{}),
	}
}

func (t *GroupTable) insert(g *RenderGroup) {
	if _, ok := t.groups[g.pos]; ok {
		panic(fmt.Sprintf("world: render group %v inserted twice", g.pos))
	}
	g.slot = len(t.positions)
	t.groups[g.pos] = g
	t.positions = append(t.positions, g.pos)
}

func (t *GroupTable) remove(pos terrain.GroupPos) {
	g, ok := t.groups[pos]
	if !ok {
		panic(fmt.Sprintf("world: removing missing render group %v", pos))
	}
	if g.slot >= len(t.positions) || t.positions[g.slot] != pos {
		panic(fmt.Sprintf("world: render group %v out of sync with position list", pos))
	}
	last := len(t.positions) - 1
	if g.slot != last {
		moved := t.positions[last]
		t.positions[g.slot] = moved
		t.groups[moved].slot = g.slot
	}
	t.positions = t.positions[:last]
	delete(t.groups, pos)
	g.release()
}

func (t *GroupTable) Get(pos terrain.GroupPos) (*RenderGroup, bool) {
	g, ok := t.groups[pos]
	return g, ok
}

// GetOrCreate returns the group at pos, creating it when absent.
func (t *GroupTable) GetOrCreate(pos terrain.GroupPos) *RenderGroup {
	if g, ok := t.groups[pos]; ok {
		return g
	}
	g := newRenderGroup(pos, t.backend)
	t.insert(g)
	return g
}

func (t *GroupTable) Len() int { return len(t.groups) }

// Positions returns the group positions. The slice is owned by the table.
func (t *GroupTable) Positions() []terrain.GroupPos { return t.positions }

// ChunkStatus returns the mesh status of a chunk.
func (t *GroupTable) ChunkStatus(pos terrain.ChunkPos) ChunkMeshStatus {
	g, ok := t.groups[pos.Group()]
	if !ok {
		return NoMesh
	}
	return g.Status(pos.IndexInGroup())
}

func (t *GroupTable) MarkDirty(pos terrain.GroupPos) {
	if _, ok := t.dirtySet[pos]; ok {
		return
	}
	t.dirtySet[pos] = struct{}{}
	t.dirty = append(t.dirty, pos)
}

// Finish ends the frame's table updates: empty groups are destroyed, dirty
// groups that remain are rebuilt and the dirty list is cleared.
func (t *GroupTable) Finish() (removed, rebuilt int) {
	for i := 0; i < len(t.positions); {
		pos := t.positions[i]
		if t.groups[pos].IsEmpty() {
			// remove swaps the last position into slot i.
			t.remove(pos)
			removed++
			continue
		}
		i++
	}
	for _, pos := range t.dirty {
		if g, ok := t.groups[pos]; ok {
			g.Rebuild()
			rebuilt++
		}
	}
	t.dirty = t.dirty[:0]
	clear(t.dirtySet)
	return removed, rebuilt
}

// Close releases every group.
func (t *GroupTable) Close() {
	for len(t.positions) > 0 {
		t.remove(t.positions[len(t.positions)-1])
	}
	t.dirty = t.dirty[:0]
	clear(t.dirtySet)
}

// check panics when the map and the position list disagree.
func (t *GroupTable) check() {
	if len(t.groups) != len(t.positions) {
		panic(fmt.Sprintf("world: %d groups but %d positions", len(t.groups), len(t.positions)))
	}
	for i, pos := range t.positions {
		g, ok := t.groups[pos]
		if !ok || g.slot != i {
			panic(fmt.Sprintf("world: position %v at %d not mapped", pos, i))
		}
	}
}
