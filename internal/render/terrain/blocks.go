package terrain

type BlockID uint16

const (
	BlockAir BlockID = iota
	BlockStone
	BlockDirt
	BlockGrass
	BlockSand
	BlockLog
	BlockGlass
)

// Block describes how a block is drawn. A non-opaque block lets visibility
// pass through it but still draws the faces it has textures for.
type Block struct {
	Name     string
	Opaque   bool
	Textures [FaceCount]uint32
}

var Blocks = []Block{
	BlockAir:   {Name: "air"},
	BlockStone: {Name: "stone", Opaque: true, Textures: uniform(1)},
	BlockDirt:  {Name: "dirt", Opaque: true, Textures: uniform(2)},
	BlockGrass: {Name: "grass", Opaque: true, Textures: [FaceCount]uint32{4, 3, 4, 4, 2, 4}},
	BlockSand:  {Name: "sand", Opaque: true, Textures: uniform(5)},
	BlockLog:   {Name: "log", Opaque: true, Textures: [FaceCount]uint32{6, 7, 6, 6, 7, 6}},
	// Glass is drawn but does not block the chunk visibility graph.
	BlockGlass: {Name: "glass", Textures: uniform(8)},
}

func uniform(tex uint32) [FaceCount]uint32 {
	var t [FaceCount]uint32
	for i := range t {
		t[i] = tex
	}
	return t
}

// HasFace reports whether the block draws a face in direction f.
func (b BlockID) HasFace(f Face) bool {
	if int(b) >= len(Blocks) || b == BlockAir {
		return false
	}
	blk := &Blocks[b]
	return blk.Opaque || blk.Textures[f] != 0
}

// Texture returns the texture index of face f.
func (b BlockID) Texture(f Face) uint32 {
	if int(b) >= len(Blocks) {
		return 0
	}
	return Blocks[b].Textures[f]
}

// Occludes reports whether the block hides the faces of its neighbors and
// stops visibility propagation.
func (b BlockID) Occludes() bool {
	return int(b) < len(Blocks) && Blocks[b].Opaque
}

// BlockPalette returns block names indexed by id.
func BlockPalette() []string {
	out := make([]string, len(Blocks))
	for i, b := range Blocks {
		out[i] = b.Name
	}
	return out
}
