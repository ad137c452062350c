package world

import (
	"testing"

	"voxelview.ai/internal/render/gfx"
	"voxelview.ai/internal/render/mesh"
	"voxelview.ai/internal/render/terrain"
)

func quad() mesh.MeshData {
	return mesh.MeshData{Vertices: make([]mesh.ChunkVertex, 4), Indices: []uint32{0, 1, 2, 2, 3, 0}}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestGroupTableKeepsPositionsInSync(t *testing.T) {
	backend := gfx.NewHeadless()
	tbl := NewGroupTable(backend)
	for x := 0; x < 6; x++ {
		g := tbl.GetOrCreate(terrain.GroupPos{X: x})
		if x%2 == 0 {
			g.SetMesh(0, quad(), HasGoodMesh, 1)
		}
	}
	if tbl.GetOrCreate(terrain.GroupPos{X: 2}) != tbl.groups[terrain.GroupPos{X: 2}] {
		t.Fatalf("GetOrCreate created a duplicate")
	}
	tbl.check()

	removed, _ := tbl.Finish()
	if removed != 3 || tbl.Len() != 3 || len(tbl.Positions()) != 3 {
		t.Fatalf("removed=%d len=%d positions=%d", removed, tbl.Len(), len(tbl.Positions()))
	}
	tbl.check()
	for _, pos := range tbl.Positions() {
		if pos.X%2 != 0 {
			t.Fatalf("empty group %v survived", pos)
		}
	}
	if backend.LiveBuffers() != 3 {
		t.Fatalf("live buffers = %d want 3", backend.LiveBuffers())
	}

	tbl.Close()
	if tbl.Len() != 0 || backend.LiveBuffers() != 0 {
		t.Fatalf("close left %d groups, %d buffers", tbl.Len(), backend.LiveBuffers())
	}
}

func TestGroupTableRebuildsDirtyOnce(t *testing.T) {
	backend := gfx.NewHeadless()
	tbl := NewGroupTable(backend)
	pos := terrain.GroupPos{Y: -1}
	g := tbl.GetOrCreate(pos)
	g.SetMesh(3, quad(), HasGoodMesh, 1)
	g.SetMesh(7, quad(), HasGoodMesh, 1)
	tbl.MarkDirty(pos)
	tbl.MarkDirty(pos)
	// Dirty positions without a group are ignored.
	tbl.MarkDirty(terrain.GroupPos{X: 9})

	if _, rebuilt := tbl.Finish(); rebuilt != 1 {
		t.Fatalf("rebuilt = %d want 1", rebuilt)
	}
	if g.IndexCount() != 12 {
		t.Fatalf("index count = %d want 12", g.IndexCount())
	}
	if _, rebuilt := tbl.Finish(); rebuilt != 0 {
		t.Fatalf("dirty list not cleared")
	}
}

func TestGroupTableInvariantViolationsPanic(t *testing.T) {
	tbl := NewGroupTable(gfx.NewHeadless())
	g := tbl.GetOrCreate(terrain.GroupPos{})
	expectPanic(t, "duplicate insert", func() { tbl.insert(newRenderGroup(g.pos, tbl.backend)) })
	expectPanic(t, "missing remove", func() { tbl.remove(terrain.GroupPos{Z: 4}) })
	tbl.positions = append(tbl.positions, terrain.GroupPos{Z: 5})
	expectPanic(t, "desync", tbl.check)
}

func TestRenderGroupStatusTransitions(t *testing.T) {
	g := newRenderGroup(terrain.GroupPos{}, gfx.NewHeadless())
	if g.Status(0) != NoMesh || g.MarkSuboptimal(0) || g.MarkOutdated(0) {
		t.Fatalf("marks on a missing mesh must be no-ops")
	}
	g.SetMesh(0, mesh.MeshData{}, HasGoodMesh, 4)
	if g.IsEmpty() {
		t.Fatalf("empty mesh should still count")
	}
	if !g.MarkSuboptimal(0) || g.Status(0) != HasSuboptimalMesh {
		t.Fatalf("good -> suboptimal failed")
	}
	if !g.MarkOutdated(0) || g.MarkSuboptimal(0) || g.Status(0) != HasOutdatedMesh {
		t.Fatalf("outdated must not be upgraded to suboptimal")
	}
	if f, ok := g.SubmittedFrame(0); !ok || f != 4 {
		t.Fatalf("submitted frame = %d %v", f, ok)
	}
	if !g.ClearMesh(0) || g.ClearMesh(0) || !g.IsEmpty() {
		t.Fatalf("clear mesh")
	}
}
