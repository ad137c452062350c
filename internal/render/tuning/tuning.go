package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelview.ai/internal/render/mesh"
	"voxelview.ai/internal/render/terrain"
	"voxelview.ai/internal/render/terrain/gen"
	"voxelview.ai/internal/render/world"
)

type Tuning struct {
	RegionGrid     []int  `yaml:"region_grid"`
	RegionSize     []int  `yaml:"region_size"`
	RenderDistance int    `yaml:"render_distance"`
	Mesher         string `yaml:"mesher"`
	MeshWorkers    int    `yaml:"mesh_workers"`
	ResultBuffer   int    `yaml:"result_buffer"`
	VerboseRegions bool   `yaml:"verbose_regions"`

	Camera   Camera   `yaml:"camera"`
	Stream   Stream   `yaml:"stream"`
	WorldGen WorldGen `yaml:"worldgen"`
	Observer Observer `yaml:"observer"`
}

type Camera struct {
	FovDeg float32 `yaml:"fov_deg"`
	Near   float32 `yaml:"near"`
	Far    float32 `yaml:"far"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// Stream controls chunk loading around the camera.
type Stream struct {
	Radius         int     `yaml:"radius"`
	EvictRadius    int     `yaml:"evict_radius"`
	YMin           int     `yaml:"y_min"`
	YMax           int     `yaml:"y_max"`
	Workers        int     `yaml:"workers"`
	LoadsPerSecond float64 `yaml:"loads_per_second"`
	Burst          int     `yaml:"burst"`
}

type WorldGen struct {
	BaseHeight    int `yaml:"base_height"`
	HeightAmp     int `yaml:"height_amp"`
	HeightCell    int `yaml:"height_cell"`
	SandLevel     int `yaml:"sand_level"`
	CaveCell      int `yaml:"cave_cell"`
	CavePermille  int `yaml:"cave_permille"`
	CaveMinDepth  int `yaml:"cave_min_depth"`
	DirtThickness int `yaml:"dirt_thickness"`
}

type Observer struct {
	MaxFPS float64 `yaml:"max_fps"`
	Burst  int     `yaml:"burst"`
}

func Defaults() Tuning {
	g := gen.DefaultConfig(0)
	return Tuning{
		RegionGrid:     []int{16, 8, 16},
		RegionSize:     []int{4, 4, 4},
		RenderDistance: 12,
		Mesher:         "greedy",
		ResultBuffer:   256,
		Camera:         Camera{FovDeg: 70, Near: 0.01, Far: 1000, Width: 1280, Height: 720},
		Stream: Stream{
			Radius:         8,
			EvictRadius:    10,
			YMin:           -2,
			YMax:           3,
			Workers:        4,
			LoadsPerSecond: 512,
			Burst:          64,
		},
		WorldGen: WorldGen{
			BaseHeight:    g.BaseHeight,
			HeightAmp:     g.HeightAmp,
			HeightCell:    g.HeightCell,
			SandLevel:     g.SandLevel,
			CaveCell:      g.CaveCell,
			CavePermille:  g.CavePermille,
			CaveMinDepth:  g.CaveMinDepth,
			DirtThickness: g.DirtThickness,
		},
		Observer: Observer{MaxFPS: 10, Burst: 2},
	}
}

// Load reads a tuning file. Keys missing from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if _, err := vec3("region_grid", t.RegionGrid); err != nil {
		return err
	}
	if _, err := vec3("region_size", t.RegionSize); err != nil {
		return err
	}
	if _, err := mesh.ByName(t.Mesher); err != nil {
		return err
	}
	if t.RenderDistance < 0 {
		return fmt.Errorf("render_distance must be >= 0")
	}
	if t.Stream.YMin > t.Stream.YMax {
		return fmt.Errorf("stream.y_min %d > y_max %d", t.Stream.YMin, t.Stream.YMax)
	}
	if t.Stream.EvictRadius != 0 && t.Stream.EvictRadius < t.Stream.Radius {
		return fmt.Errorf("stream.evict_radius %d < radius %d", t.Stream.EvictRadius, t.Stream.Radius)
	}
	if t.Camera.Near <= 0 || t.Camera.Far <= t.Camera.Near {
		return fmt.Errorf("camera near/far out of order: %v/%v", t.Camera.Near, t.Camera.Far)
	}
	return nil
}

func vec3(name string, v []int) (terrain.Vec3i, error) {
	if len(v) != 3 {
		return terrain.Vec3i{}, fmt.Errorf("%s must have 3 entries, got %d", name, len(v))
	}
	out := terrain.Vec3i{X: v[0], Y: v[1], Z: v[2]}
	if out.X <= 0 || out.Y <= 0 || out.Z <= 0 {
		return terrain.Vec3i{}, fmt.Errorf("%s entries must be positive: %v", name, v)
	}
	return out, nil
}

// RendererConfig converts the tuning into a world.Config.
func (t Tuning) RendererConfig() (world.Config, error) {
	grid, err := vec3("region_grid", t.RegionGrid)
	if err != nil {
		return world.Config{}, err
	}
	size, err := vec3("region_size", t.RegionSize)
	if err != nil {
		return world.Config{}, err
	}
	mesher, err := mesh.ByName(t.Mesher)
	if err != nil {
		return world.Config{}, err
	}
	return world.Config{
		RegionGrid:     grid,
		RegionSize:     size,
		RenderDistance: t.RenderDistance,
		ResultBuffer:   t.ResultBuffer,
		Mesher:         mesher,
		VerboseRegions: t.VerboseRegions,
	}, nil
}

// GenConfig returns the terrain generator settings for seed.
func (t Tuning) GenConfig(seed int64) gen.Config {
	return gen.Config{
		Seed:          seed,
		BaseHeight:    t.WorldGen.BaseHeight,
		HeightAmp:     t.WorldGen.HeightAmp,
		HeightCell:    t.WorldGen.HeightCell,
		SandLevel:     t.WorldGen.SandLevel,
		CaveCell:      t.WorldGen.CaveCell,
		CavePermille:  t.WorldGen.CavePermille,
		CaveMinDepth:  t.WorldGen.CaveMinDepth,
		DirtThickness: t.WorldGen.DirtThickness,
	}
}
