package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective is a left-handed perspective projection with depth mapped to
// [0, 1]. View space looks down +Z.
type Perspective struct {
	FovY   float32 // radians
	Aspect float32
	Near   float32
	Far    float32
}

// Matrix returns the column-major projection matrix.
func (p Perspective) Matrix() mgl32.Mat4 {
	h := 1 / float32(math.Tan(float64(p.FovY)/2))
	w := h / p.Aspect
	r := p.Far / (p.Far - p.Near)
	return mgl32.Mat4{
		w, 0, 0, 0,
		0, h, 0, 0,
		0, 0, r, 1,
		0, 0, -r * p.Near, 0,
	}
}

type Camera struct {
	Position   mgl32.Vec3
	Rotation   mgl32.Quat
	Projection Perspective
}

func New(pos mgl32.Vec3, proj Perspective) Camera {
	return Camera{Position: pos, Rotation: mgl32.QuatIdent(), Projection: proj}
}

// DefaultPerspective matches a 70 degree vertical field of view.
func DefaultPerspective(aspect float32) Perspective {
	return Perspective{FovY: mgl32.DegToRad(70), Aspect: aspect, Near: 0.01, Far: 1000}
}

// Transform returns the camera-to-world matrix.
func (c Camera) Transform() mgl32.Mat4 {
	return mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).Mul4(c.Rotation.Normalize().Mat4())
}

// ViewMatrix returns the world-to-camera matrix.
func (c Camera) ViewMatrix() mgl32.Mat4 {
	return c.Transform().Inv()
}

func (c Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.Projection.Matrix()
}

// Forward returns the world-space view direction.
func (c Camera) Forward() mgl32.Vec3 {
	return c.Rotation.Normalize().Rotate(mgl32.Vec3{0, 0, 1})
}

// Resize updates the aspect ratio after the surface changes size.
func (c *Camera) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Projection.Aspect = float32(width) / float32(height)
}

// SetYawPitch orients the camera. Yaw turns around +Y starting from +Z,
// pitch tilts up.
func (c *Camera) SetYawPitch(yaw, pitch float32) {
	qy := mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0})
	qp := mgl32.QuatRotate(-pitch, mgl32.Vec3{1, 0, 0})
	c.Rotation = qy.Mul(qp)
}

// LookAt turns the camera toward target, keeping +Y up.
func (c *Camera) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	yaw := float32(math.Atan2(float64(d.X()), float64(d.Z())))
	pitch := float32(math.Asin(float64(mgl32.Clamp(d.Y(), -1, 1))))
	c.SetYawPitch(yaw, pitch)
}
