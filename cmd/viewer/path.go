package main

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelview.ai/internal/render/camera"
	"voxelview.ai/internal/render/terrain/gen"
)

// flightPath places the camera for a frame. Altitude is kept above the
// generated surface so the camera never starts inside solid terrain.
type flightPath struct {
	kind     string
	start    mgl32.Vec3
	speed    float32 // blocks per frame
	radius   float32 // orbit only
	altitude float32 // blocks above the surface
	gen      gen.Config
}

func newFlightPath(kind string, start mgl32.Vec3, speed, radius, altitude float32, cfg gen.Config) (*flightPath, error) {
	switch kind {
	case "line", "orbit", "still":
	default:
		return nil, fmt.Errorf("unknown path %q (want line, orbit or still)", kind)
	}
	if radius <= 0 {
		radius = 64
	}
	return &flightPath{kind: kind, start: start, speed: speed, radius: radius, altitude: altitude, gen: cfg}, nil
}

// Place moves cam to its position for frame and turns it along the path.
func (p *flightPath) Place(cam *camera.Camera, frame uint64) {
	t := float32(frame)
	var pos, ahead mgl32.Vec3
	switch p.kind {
	case "line":
		pos = p.start.Add(mgl32.Vec3{t * p.speed, 0, 0})
		ahead = pos.Add(mgl32.Vec3{16, 0, 0})
	case "orbit":
		a := float64(t*p.speed) / float64(p.radius)
		pos = p.start.Add(mgl32.Vec3{p.radius * float32(math.Cos(a)), 0, p.radius * float32(math.Sin(a))})
		ahead = p.start
	default:
		pos = p.start
		ahead = pos.Add(mgl32.Vec3{16, 0, 16})
	}
	pos[1] = p.groundAt(pos) + p.altitude
	ahead[1] = p.groundAt(ahead)
	cam.Position = pos
	cam.LookAt(ahead)
}

func (p *flightPath) groundAt(v mgl32.Vec3) float32 {
	x := int(math.Floor(float64(v.X())))
	z := int(math.Floor(float64(v.Z())))
	return float32(gen.HeightAt(p.gen, x, z))
}
