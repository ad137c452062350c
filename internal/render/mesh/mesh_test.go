package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/terrain"
	"voxelview.ai/internal/render/terrain/gen"
)

func set(in *Input, x, y, z int, id terrain.BlockID) {
	in.Blocks[terrain.LocalPos{X: x, Y: y, Z: z}.Index()] = id
}

func quads(m MeshData) int { return len(m.Indices) / 6 }

// area sums the face area covered by a mesh, read back from the UVs.
func area(m MeshData) float32 {
	var a float32
	for i := 0; i+3 < len(m.Vertices); i += 4 {
		uv := m.Vertices[i+1].UV
		a += uv[0] * uv[1]
	}
	return a
}

func checkIndices(t *testing.T, m MeshData) {
	t.Helper()
	if len(m.Indices)%6 != 0 || len(m.Vertices)%4 != 0 {
		t.Fatalf("mesh is not made of quads: %d vertices %d indices", len(m.Vertices), len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			t.Fatalf("index %d out of range (%d vertices)", idx, len(m.Vertices))
		}
	}
}

func TestEmptyChunkHasNoGeometry(t *testing.T) {
	in := &Input{}
	for name, fn := range map[string]Func{"greedy": Greedy, "culled": Culled} {
		m := fn(in)
		if !m.IsEmpty() || len(m.Vertices) != 0 {
			t.Fatalf("%s: air chunk produced %d vertices", name, len(m.Vertices))
		}
	}
}

func TestSingleBlockHasSixFaces(t *testing.T) {
	in := &Input{}
	set(in, 3, 4, 5, terrain.BlockStone)
	for name, fn := range map[string]Func{"greedy": Greedy, "culled": Culled} {
		m := fn(in)
		checkIndices(t, m)
		if len(m.Vertices) != 24 || len(m.Indices) != 36 {
			t.Fatalf("%s: got %d vertices %d indices, want 24/36", name, len(m.Vertices), len(m.Indices))
		}
		for _, v := range m.Vertices {
			p := v.Position
			if p[0] < 3 || p[0] > 4 || p[1] < 4 || p[1] > 5 || p[2] < 5 || p[2] > 6 {
				t.Fatalf("%s: vertex %v outside the block", name, p)
			}
			if v.TextureIndex != 1 {
				t.Fatalf("%s: texture = %d want stone", name, v.TextureIndex)
			}
		}
	}
}

func fill(in *Input, id terrain.BlockID) {
	for i := range in.Blocks {
		in.Blocks[i] = id
	}
}

func TestSolidChunkMergesToSixQuads(t *testing.T) {
	in := &Input{}
	fill(in, terrain.BlockStone)
	if q := quads(Greedy(in)); q != 6 {
		t.Fatalf("greedy quads = %d want 6", q)
	}
	if q := quads(Culled(in)); q != 6*terrain.ChunkSizeSquared {
		t.Fatalf("culled quads = %d want %d", q, 6*terrain.ChunkSizeSquared)
	}
}

func TestFlatLayer(t *testing.T) {
	in := &Input{}
	for z := 0; z < terrain.ChunkSize; z++ {
		for x := 0; x < terrain.ChunkSize; x++ {
			set(in, x, 0, z, terrain.BlockStone)
		}
	}
	g := Greedy(in)
	checkIndices(t, g)
	if q := quads(g); q != 6 {
		t.Fatalf("greedy quads = %d want 6", q)
	}
	c := Culled(in)
	if q := quads(c); q != 2*terrain.ChunkSizeSquared+4*terrain.ChunkSize {
		t.Fatalf("culled quads = %d", q)
	}
	if area(g) != area(c) {
		t.Fatalf("greedy area %v != culled area %v", area(g), area(c))
	}
}

func TestDifferentTexturesDoNotMerge(t *testing.T) {
	in := &Input{}
	for z := 0; z < terrain.ChunkSize; z++ {
		for x := 0; x < terrain.ChunkSize; x++ {
			id := terrain.BlockStone
			if x >= 16 {
				id = terrain.BlockDirt
			}
			set(in, x, 0, z, id)
		}
	}
	m := Greedy(in)
	top := 0
	for i := 0; i < len(m.Vertices); i += 4 {
		if m.Vertices[i].Position[1] == 1 {
			top++
		}
	}
	if top != 2 {
		t.Fatalf("top quads = %d want 2", top)
	}
}

func TestNeighborSideHidesBorderFaces(t *testing.T) {
	in := &Input{}
	fill(in, terrain.BlockStone)
	in.Sides[terrain.FacePosX].Present = true
	for i := range in.Sides[terrain.FacePosX].Side {
		in.Sides[terrain.FacePosX].Side[i] = terrain.BlockStone
	}
	if q := quads(Greedy(in)); q != 5 {
		t.Fatalf("greedy quads with +x neighbor = %d want 5", q)
	}
	if q := quads(Culled(in)); q != 5*terrain.ChunkSizeSquared {
		t.Fatalf("culled quads with +x neighbor = %d", q)
	}

	// A loaded neighbor made of air hides nothing.
	in.Sides[terrain.FacePosX].Side = terrain.ChunkSide{}
	if q := quads(Greedy(in)); q != 6 {
		t.Fatalf("greedy quads with air neighbor = %d want 6", q)
	}
}

func TestNeighborSideFromStore(t *testing.T) {
	var solid terrain.ChunkBlocks
	for i := range solid {
		solid[i] = terrain.BlockStone
	}
	s := fakeStore{
		{}:     terrain.NewChunk(terrain.ChunkPos{}, &solid),
		{X: 1}: terrain.NewChunk(terrain.ChunkPos{X: 1}, &solid),
	}
	in := NewInput(s[terrain.ChunkPos{}], mgl32.Vec3{}, s)
	if !in.Sides[terrain.FacePosX].Present || in.Sides[terrain.FaceNegX].Present {
		t.Fatalf("unexpected sides: +x=%v -x=%v", in.Sides[terrain.FacePosX].Present, in.Sides[terrain.FaceNegX].Present)
	}
	if q := quads(Greedy(in)); q != 5 {
		t.Fatalf("quads = %d want 5", q)
	}
}

func TestTranslationApplied(t *testing.T) {
	in := &Input{Translation: mgl32.Vec3{32, 64, 0}}
	set(in, 0, 0, 0, terrain.BlockGlass)
	for _, v := range Greedy(in).Vertices {
		p := v.Position
		if p[0] < 32 || p[0] > 33 || p[1] < 64 || p[1] > 65 {
			t.Fatalf("vertex %v not translated", p)
		}
	}
}

func TestGreedyCoversSameAreaAsCulled(t *testing.T) {
	cfg := gen.DefaultConfig(7)
	for _, pos := range []terrain.ChunkPos{{X: 0, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 2}, {X: 3, Y: -1, Z: 1}} {
		in := &Input{}
		gen.GenerateChunk(cfg, pos, &in.Blocks)
		g, c := Greedy(in), Culled(in)
		checkIndices(t, g)
		if area(g) != area(c) {
			t.Fatalf("chunk %v: greedy area %v != culled area %v", pos, area(g), area(c))
		}
		if len(g.Vertices) > len(c.Vertices) {
			t.Fatalf("chunk %v: greedy mesh larger than culled", pos)
		}
	}
}

func TestAppendOffsetsIndices(t *testing.T) {
	a := &Input{}
	set(a, 0, 0, 0, terrain.BlockStone)
	m := Greedy(a)
	o := Greedy(a)
	m.Append(&o)
	checkIndices(t, m)
	if m.Indices[36] != 24 {
		t.Fatalf("first appended index = %d want 24", m.Indices[36])
	}
}

func TestByName(t *testing.T) {
	if _, err := ByName("culled"); err != nil {
		t.Fatalf("culled: %v", err)
	}
	if _, err := ByName("marching"); err == nil {
		t.Fatalf("expected error for unknown mesher")
	}
}

type fakeStore map[terrain.ChunkPos]*terrain.Chunk

func (s fakeStore) Chunk(p terrain.ChunkPos) (*terrain.Chunk, bool) {
	c, ok := s[p]
	return c, ok
}
func (s fakeStore) HasChunk(p terrain.ChunkPos) bool { _, ok := s[p]; return ok }
func (s fakeStore) DrainEvents() []terrain.Event     { return nil }
