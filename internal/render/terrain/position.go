package terrain

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/logic/mathx"
)

const (
	ChunkSize        = 32
	ChunkSizeSquared = ChunkSize * ChunkSize
	ChunkSizeCubed   = ChunkSize * ChunkSize * ChunkSize

	// RenderGroupSize is the edge length of a render group, in chunks.
	RenderGroupSize = 4
)

// Vec3i is an integer vector used for grid sizes and offsets.
type Vec3i struct {
	X, Y, Z int
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3i) Mul(o Vec3i) Vec3i { return Vec3i{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }
func (v Vec3i) Scale(s int) Vec3i { return Vec3i{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3i) Product() int      { return v.X * v.Y * v.Z }

// FloorDiv divides each axis by the matching axis of d, rounding toward
// negative infinity.
func (v Vec3i) FloorDiv(d Vec3i) Vec3i {
	return Vec3i{mathx.FloorDiv(v.X, d.X), mathx.FloorDiv(v.Y, d.Y), mathx.FloorDiv(v.Z, d.Z)}
}

// Within reports whether 0 <= v < size on every axis.
func (v Vec3i) Within(size Vec3i) bool {
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0 && v.X < size.X && v.Y < size.Y && v.Z < size.Z
}

func (v Vec3i) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func (v Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

func Splat(n int) Vec3i { return Vec3i{n, n, n} }

// ChunkPos identifies a chunk in chunk units.
type ChunkPos Vec3i

func (p ChunkPos) Vec() Vec3i      { return Vec3i(p) }
func (p ChunkPos) String() string { return Vec3i(p).String() }

// Neighbor returns the adjacent chunk across the given face.
func (p ChunkPos) Neighbor(f Face) ChunkPos {
	return ChunkPos(Vec3i(p).Add(f.Offset()))
}

// Group returns the render group containing this chunk.
func (p ChunkPos) Group() GroupPos {
	return GroupPos(Vec3i(p).FloorDiv(Splat(RenderGroupSize)))
}

// IndexInGroup returns the chunk's flat index inside its render group.
func (p ChunkPos) IndexInGroup() int {
	x := mathx.Mod(p.X, RenderGroupSize)
	y := mathx.Mod(p.Y, RenderGroupSize)
	z := mathx.Mod(p.Z, RenderGroupSize)
	return (z*RenderGroupSize+y)*RenderGroupSize + x
}

// Origin returns the world-space position of the chunk's minimum corner.
func (p ChunkPos) Origin() mgl32.Vec3 {
	return Vec3i(p).Scale(ChunkSize).Vec3()
}

// Center returns the world-space center of the chunk.
func (p ChunkPos) Center() mgl32.Vec3 {
	half := float32(ChunkSize) / 2
	return p.Origin().Add(mgl32.Vec3{half, half, half})
}

// ChunkContaining returns the chunk that contains the world-space point.
func ChunkContaining(world mgl32.Vec3) ChunkPos {
	return ChunkPos{
		X: mathx.FloorDiv(int(math.Floor(float64(world.X()))), ChunkSize),
		Y: mathx.FloorDiv(int(math.Floor(float64(world.Y()))), ChunkSize),
		Z: mathx.FloorDiv(int(math.Floor(float64(world.Z()))), ChunkSize),
	}
}

// GroupPos identifies a render group in group units.
type GroupPos Vec3i

func (g GroupPos) String() string { return Vec3i(g).String() }

// ChunkAt returns the chunk with the given flat index inside this group.
func (g GroupPos) ChunkAt(index int) ChunkPos {
	x := index % RenderGroupSize
	y := (index / RenderGroupSize) % RenderGroupSize
	z := index / (RenderGroupSize * RenderGroupSize)
	base := Vec3i(g).Scale(RenderGroupSize)
	return ChunkPos(base.Add(Vec3i{x, y, z}))
}

// Origin returns the world-space position of the group's minimum corner.
func (g GroupPos) Origin() mgl32.Vec3 {
	return Vec3i(g).Scale(RenderGroupSize * ChunkSize).Vec3()
}

// LocalPos is a block position inside a chunk, each axis in [0, ChunkSize).
type LocalPos struct {
	X, Y, Z int
}

// Index returns the flat block index (ordered by z, then y, then x).
func (l LocalPos) Index() int {
	return ChunkSizeSquared*l.Z + ChunkSize*l.Y + l.X
}

func (l LocalPos) Valid() bool {
	return l.X >= 0 && l.Y >= 0 && l.Z >= 0 && l.X < ChunkSize && l.Y < ChunkSize && l.Z < ChunkSize
}

// SplitWorldPos splits a world block position into chunk and local parts.
func SplitWorldPos(x, y, z int) (ChunkPos, LocalPos) {
	c := ChunkPos{mathx.FloorDiv(x, ChunkSize), mathx.FloorDiv(y, ChunkSize), mathx.FloorDiv(z, ChunkSize)}
	l := LocalPos{mathx.Mod(x, ChunkSize), mathx.Mod(y, ChunkSize), mathx.Mod(z, ChunkSize)}
	return c, l
}
