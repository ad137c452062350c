package cull

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/camera"
)

// FrustumParams is the per-frame camera state needed to test boxes against
// a symmetric perspective frustum.
type FrustumParams struct {
	InvRotation mgl32.Mat3
	Translation mgl32.Vec3
	// Projection packs the x scale, y scale, z scale and the depth offset
	// applied to the view-space w (which is always 1).
	Projection mgl32.Vec4
}

// ParamsFromCamera extracts the frustum parameters of a camera.
func ParamsFromCamera(cam camera.Camera) FrustumParams {
	m := cam.ProjectionMatrix()
	return FrustumParams{
		InvRotation: cam.Rotation.Normalize().Conjugate().Mat4().Mat3(),
		Translation: cam.Position,
		Projection:  mgl32.Vec4{m.At(0, 0), m.At(1, 1), m.At(2, 2), m.At(2, 3)},
	}
}

// AABBFrustumTest reports whether any corner of the box lies inside the
// frustum. Boxes that straddle the frustum with every corner outside are
// rejected, so it is not an exact intersection test.
func AABBFrustumTest(p FrustumParams, min, size mgl32.Vec3) bool {
	for i := 0; i < 8; i++ {
		corner := min
		if i&1 != 0 {
			corner[0] += size[0]
		}
		if i&2 != 0 {
			corner[1] += size[1]
		}
		if i&4 != 0 {
			corner[2] += size[2]
		}
		if cornerInside(p, corner) {
			return true
		}
	}
	return false
}

// planeSlack widens every frustum plane slightly so rounding never lets the
// coarse test reject a corner the exact corner test accepts.
const planeSlack = 1e-2

// AABBIntersectsFrustum reports whether the box may intersect the frustum.
// A box is rejected only when all eight corners lie outside the same plane,
// so it is accepted whenever any point inside it passes the corner test.
func AABBIntersectsFrustum(p FrustumParams, min, size mgl32.Vec3) bool {
	var outside [6]int
	for i := 0; i < 8; i++ {
		corner := min
		if i&1 != 0 {
			corner[0] += size[0]
		}
		if i&2 != 0 {
			corner[1] += size[1]
		}
		if i&4 != 0 {
			corner[2] += size[2]
		}
		x, y, z, w := clip(p, corner)
		planes := [6]float32{w + x, w - x, w + y, w - y, z, w - z}
		for k, d := range planes {
			if d < -planeSlack {
				outside[k]++
			}
		}
	}
	for _, n := range outside {
		if n == 8 {
			return false
		}
	}
	return true
}

func clip(p FrustumParams, corner mgl32.Vec3) (x, y, z, w float32) {
	v := p.InvRotation.Mul3x1(corner.Sub(p.Translation))
	x = p.Projection[0] * v[0]
	y = p.Projection[1] * v[1]
	z = p.Projection[2]*v[2] + p.Projection[3]
	w = v[2]
	return x, y, z, w
}

func cornerInside(p FrustumParams, corner mgl32.Vec3) bool {
	x, y, z, w := clip(p, corner)
	return -w <= x && x <= w &&
		-w <= y && y <= w &&
		0 <= z && z <= w
}
