package gen

import (
	"math"

	"voxelview.ai/internal/render/logic/mathx"
	"voxelview.ai/internal/render/terrain"
)

type Config struct {
	Seed int64

	BaseHeight    int
	HeightAmp     int
	HeightCell    int // blocks between noise lattice points
	SandLevel     int
	CaveCell      int
	CavePermille  int
	CaveMinDepth  int
	DirtThickness int
}

func DefaultConfig(seed int64) Config {
	return Config{
		Seed:          seed,
		BaseHeight:    16,
		HeightAmp:     24,
		HeightCell:    48,
		SandLevel:     10,
		CaveCell:      8,
		CavePermille:  90,
		CaveMinDepth:  6,
		DirtThickness: 3,
	}
}

// HeightAt returns the surface height of column (x, z) in blocks.
func HeightAt(cfg Config, x, z int) int {
	cell := cfg.HeightCell
	if cell <= 0 {
		cell = 1
	}
	gx := mathx.FloorDiv(x, cell)
	gz := mathx.FloorDiv(z, cell)
	fx := float64(mathx.Mod(x, cell)) / float64(cell)
	fz := float64(mathx.Mod(z, cell)) / float64(cell)

	v00 := mathx.Unit(mathx.Hash2(cfg.Seed, gx, gz))
	v10 := mathx.Unit(mathx.Hash2(cfg.Seed, gx+1, gz))
	v01 := mathx.Unit(mathx.Hash2(cfg.Seed, gx, gz+1))
	v11 := mathx.Unit(mathx.Hash2(cfg.Seed, gx+1, gz+1))

	sx := smooth(fx)
	sz := smooth(fz)
	top := v00 + (v10-v00)*sx
	bot := v01 + (v11-v01)*sx
	n := top + (bot-top)*sz
	return cfg.BaseHeight + int(math.Round(n*float64(cfg.HeightAmp)))
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func inCave(cfg Config, x, y, z int) bool {
	if cfg.CaveCell <= 0 || cfg.CavePermille <= 0 {
		return false
	}
	cx := mathx.FloorDiv(x, cfg.CaveCell)
	cy := mathx.FloorDiv(y, cfg.CaveCell)
	cz := mathx.FloorDiv(z, cfg.CaveCell)
	return mathx.Hash3(cfg.Seed+17, cx, cy, cz)%1000 < uint64(mathx.ClampInt(cfg.CavePermille, 0, 1000))
}

// BlockAt returns the generated block at a world position.
func BlockAt(cfg Config, x, y, z int) terrain.BlockID {
	return blockInColumn(cfg, HeightAt(cfg, x, z), x, y, z)
}

func blockInColumn(cfg Config, h, x, y, z int) terrain.BlockID {
	if y > h {
		return terrain.BlockAir
	}
	if y < h-cfg.CaveMinDepth && inCave(cfg, x, y, z) {
		return terrain.BlockAir
	}
	switch {
	case y == h && h <= cfg.SandLevel:
		return terrain.BlockSand
	case y == h:
		return terrain.BlockGrass
	case y > h-cfg.DirtThickness:
		return terrain.BlockDirt
	default:
		return terrain.BlockStone
	}
}

// GenerateChunk fills dst with the blocks of the chunk at pos.
func GenerateChunk(cfg Config, pos terrain.ChunkPos, dst *terrain.ChunkBlocks) {
	base := terrain.Vec3i(pos).Scale(terrain.ChunkSize)
	for z := 0; z < terrain.ChunkSize; z++ {
		for x := 0; x < terrain.ChunkSize; x++ {
			wx, wz := base.X+x, base.Z+z
			h := HeightAt(cfg, wx, wz)
			for y := 0; y < terrain.ChunkSize; y++ {
				dst[terrain.LocalPos{X: x, Y: y, Z: z}.Index()] = blockInColumn(cfg, h, wx, base.Y+y, wz)
			}
		}
	}
}
