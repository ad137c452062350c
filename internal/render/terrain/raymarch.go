package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// rayEps is the minimum step along a ray, so a march sitting exactly on a
// cell boundary always makes progress.
const rayEps = 1e-3

// ChunkHit is a non-air block hit by Chunk.Raymarch.
type ChunkHit struct {
	Local LocalPos
	// Normal points from the hit block toward the cell the ray came from.
	// HasNormal is false when the ray starts inside a solid block and
	// no previous chunk was given.
	Normal    Vec3i
	HasNormal bool
}

// Raymarch walks the blocks of the chunk along a ray and returns the first
// non-air block. origin is in chunk-local block units; dir need not be
// normalized, maxDist is measured in multiples of dir. prev is the chunk the
// ray left before entering this one, if any, and supplies the normal when
// the ray hits the first block it enters.
func (c *Chunk) Raymarch(origin, dir mgl32.Vec3, prev *ChunkPos, maxDist float32) (ChunkHit, bool) {
	step, recip := rayStep(dir)
	var last *LocalPos
	for t := float32(0); t < maxDist; {
		p := origin.Add(dir.Mul(t))
		l := LocalPos{X: floorInt(p.X()), Y: floorInt(p.Y()), Z: floorInt(p.Z())}
		if !l.Valid() {
			return ChunkHit{}, false
		}
		if c.Block(l) != BlockAir {
			hit := ChunkHit{Local: l}
			switch {
			case last != nil:
				hit.Normal = Vec3i{last.X - l.X, last.Y - l.Y, last.Z - l.Z}
				hit.HasNormal = true
			case prev != nil:
				hit.Normal = prev.Vec().Sub(c.pos.Vec())
				hit.HasNormal = true
			}
			return hit, true
		}
		t += nextBoundary(p, step, recip)
		last = &l
	}
	return ChunkHit{}, false
}

// RayHit is a block hit by Raymarch, in world block coordinates.
type RayHit struct {
	Chunk     ChunkPos
	Local     LocalPos
	Block     BlockID
	Normal    Vec3i
	HasNormal bool
	// Dist is the ray parameter at which the hit chunk was entered.
	Dist float32
}

// World returns the world block coordinates of the hit block.
func (h RayHit) World() Vec3i {
	return Vec3i(h.Chunk).Scale(ChunkSize).Add(Vec3i{h.Local.X, h.Local.Y, h.Local.Z})
}

// Adjacent returns the world block on the hit face, where a new block
// would be placed. It is the hit block itself when there is no normal.
func (h RayHit) Adjacent() Vec3i {
	return h.World().Add(h.Normal)
}

// Raymarch walks the chunks of s along a ray from a world-space origin and
// returns the first non-air block within maxDist. Chunks that are not
// loaded are skipped as if they were air.
func Raymarch(s Store, origin, dir mgl32.Vec3, maxDist float32) (RayHit, bool) {
	if dir.Len() == 0 {
		return RayHit{}, false
	}
	step, recip := rayStep(dir)
	var prev *ChunkPos
	for t := float32(0); t < maxDist; {
		p := origin.Add(dir.Mul(t))
		cp := ChunkContaining(p)
		if c, ok := s.Chunk(cp); ok && !c.IsEmpty() {
			local := p.Sub(cp.Origin())
			if hit, ok := c.Raymarch(local, dir, prev, maxDist-t); ok {
				return RayHit{
					Chunk:     cp,
					Local:     hit.Local,
					Block:     c.Block(hit.Local),
					Normal:    hit.Normal,
					HasNormal: hit.HasNormal,
					Dist:      t,
				}, true
			}
		}
		t += nextBoundary(p.Mul(1/float32(ChunkSize)), step, recip) * ChunkSize
		prev = &cp
	}
	return RayHit{}, false
}

func rayStep(dir mgl32.Vec3) (step, recip mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if dir[i] >= 0 {
			step[i] = 1
		}
		recip[i] = 1 / dir[i]
	}
	return step, recip
}

// nextBoundary returns the ray distance from p to the next cell boundary on
// any axis, at least rayEps.
func nextBoundary(p, step, recip mgl32.Vec3) float32 {
	best := float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		frac := p[i] - float32(math.Floor(float64(p[i])))
		d := (step[i] - frac) * recip[i]
		if d == d && d < best {
			best = d
		}
	}
	if best < rayEps {
		best = rayEps
	}
	return best
}

func floorInt(f float32) int {
	return int(math.Floor(float64(f)))
}
