package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/time/rate"

	"voxelview.ai/internal/observerproto"
	"voxelview.ai/internal/persistence/indexdb"
	persistlog "voxelview.ai/internal/persistence/log"
	"voxelview.ai/internal/persistence/snapshot"
	"voxelview.ai/internal/render/camera"
	"voxelview.ai/internal/render/gfx"
	"voxelview.ai/internal/render/tasks"
	"voxelview.ai/internal/render/terrain"
	"voxelview.ai/internal/render/terrain/gen"
	"voxelview.ai/internal/render/terrain/store"
	"voxelview.ai/internal/render/tuning"
	"voxelview.ai/internal/render/world"
	"voxelview.ai/internal/transport/observer"
)

// editReach is how far, in blocks, the edit ray reaches from the camera.
const editReach = 8

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address for metrics and the observer (empty to disable)")
		seed       = flag.Int64("seed", 1337, "terrain seed (used only when starting a fresh world)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite frame index")

		snapPath   = flag.String("snapshot", "", "terrain snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", false, "load the latest snapshot from the data dir when -snapshot is empty")
		saveSnap   = flag.Bool("save_snapshot", false, "write a terrain snapshot on exit")

		frames    = flag.Uint64("frames", 600, "frames to render (0 = until interrupted)")
		fps       = flag.Float64("fps", 60, "frame rate cap (0 = unthrottled)")
		pathKind  = flag.String("path", "line", "camera path: line, orbit or still")
		speed     = flag.Float64("speed", 0.5, "camera speed in blocks per frame")
		orbitR    = flag.Float64("orbit_radius", 96, "orbit radius in blocks")
		altitude  = flag.Float64("altitude", 12, "camera height above the surface in blocks")
		editEvery = flag.Uint64("edit_every", 0, "place a block in front of the camera every N frames (0 = never)")
		logEvery  = flag.Uint64("log_every", 60, "log a frame summary every N frames")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[viewer] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	rcfg, err := tune.RendererConfig()
	if err != nil {
		logger.Fatalf("renderer config: %v", err)
	}

	runID := indexdb.NewRunID()
	runDir := filepath.Join(*dataDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}
	logger.Printf("run %s mesher=%s grid=%v region=%v distance=%d", runID, tune.Mesher, rcfg.RegionGrid, rcfg.RegionSize, rcfg.RenderDistance)

	// Terrain: fresh from the generator or resumed from a snapshot.
	genCfg := tune.GenConfig(*seed)
	mem := store.NewMemStore()
	var startFrame uint64
	start := mgl32.Vec3{0, 0, 0}
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(filepath.Join(*dataDir, "snapshots"))
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.ChunkSize != terrain.ChunkSize {
			logger.Fatalf("snapshot chunk size %d, viewer uses %d", snap.ChunkSize, terrain.ChunkSize)
		}
		mem, err = store.ImportChunks(snap.Chunks)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		genCfg = genFromSnapshot(snap, genCfg)
		startFrame = snap.Header.Frame
		start = mgl32.Vec3{snap.Camera.Pos[0], 0, snap.Camera.Pos[2]}
		logger.Printf("resumed from snapshot=%s frame=%d chunks=%d", filepath.Base(snapshotToLoad), startFrame, mem.Len())
	}

	var limiter *rate.Limiter
	if tune.Stream.LoadsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(tune.Stream.LoadsPerSecond), max(tune.Stream.Burst, 1))
	}
	streamer := store.NewStreamer(mem, genCfg, tune.Stream.Workers, limiter)
	defer streamer.Close()

	workers := tune.MeshWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	exec := tasks.NewExecutor(workers)
	defer exec.Close()

	backend := gfx.NewHeadless()
	renderer := world.New(rcfg, mem, exec, backend, logger)
	defer renderer.Close()

	path, err := newFlightPath(*pathKind, start, float32(*speed), float32(*orbitR), float32(*altitude), genCfg)
	if err != nil {
		logger.Fatalf("camera path: %v", err)
	}
	cam := camera.New(mgl32.Vec3{}, camera.Perspective{
		FovY:   mgl32.DegToRad(tune.Camera.FovDeg),
		Near:   tune.Camera.Near,
		Far:    tune.Camera.Far,
		Aspect: 1,
	})
	cam.Resize(tune.Camera.Width, tune.Camera.Height)

	// Optional: read-model index (the frame logs stay the source of truth).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "viewer.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}
	run := indexdb.Run{ID: runID, StartedAt: time.Now(), Seed: genCfg.Seed, Mesher: tune.Mesher, Tuning: tune}
	if err := idx.RecordRun(run); err != nil {
		logger.Printf("index: record run: %v", err)
	}

	frameLog := persistlog.NewFrameLogger(runDir)
	defer func() {
		if err := frameLog.Close(); err != nil {
			logger.Printf("frame log close: %v", err)
		}
	}()

	var latest latestFrame
	var obsSrv *observer.Server
	ctx, cancel := signalContext()
	defer cancel()

	if *addr != "" {
		var obsLimiter *rate.Limiter
		if tune.Observer.MaxFPS > 0 {
			obsLimiter = rate.NewLimiter(rate.Limit(tune.Observer.MaxFPS), max(tune.Observer.Burst, 1))
		}
		obsSrv = observer.NewServer(func() observerproto.BootstrapResponse {
			return observerproto.BootstrapResponse{
				RunID: runID,
				Frame: latest.get().Frame,
				ViewerParams: observerproto.ViewerParams{
					ChunkSize:       terrain.ChunkSize,
					RenderGroupSize: terrain.RenderGroupSize,
					RegionGrid:      [3]int{rcfg.RegionGrid.X, rcfg.RegionGrid.Y, rcfg.RegionGrid.Z},
					RegionSize:      [3]int{rcfg.RegionSize.X, rcfg.RegionSize.Y, rcfg.RegionSize.Z},
					RenderDistance:  rcfg.RenderDistance,
					Mesher:          tune.Mesher,
					Seed:            genCfg.Seed,
				},
			}
		}, obsLimiter, logger)
		srv := startHTTP(*addr, runID, &latest, obsSrv, mem, logger)
		defer func() {
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
	}

	// Warm up: load the chunks around the start before the first frame.
	path.Place(&cam, startFrame)
	camChunk := terrain.ChunkContaining(cam.Position)
	yMin, yMax := streamRange(tune.Stream, camChunk)
	streamer.StreamAround(camChunk, tune.Stream.Radius, yMin, yMax)
	streamer.Flush()
	logger.Printf("warm-up loaded %d chunks around %v", mem.Len(), camChunk)

	var tick <-chan time.Time
	if *fps > 0 {
		t := time.NewTicker(time.Duration(float64(time.Second) / *fps))
		defer t.Stop()
		tick = t.C
	}

	var rendered uint64
	lastChunk := camChunk
loop:
	for *frames == 0 || rendered < *frames {
		if tick != nil {
			select {
			case <-ctx.Done():
				break loop
			case <-tick:
			}
		} else if ctx.Err() != nil {
			break
		}

		frame := startFrame + rendered + 1
		path.Place(&cam, frame)
		camChunk = terrain.ChunkContaining(cam.Position)
		if camChunk != lastChunk {
			yMin, yMax = streamRange(tune.Stream, camChunk)
			streamer.StreamAround(camChunk, tune.Stream.Radius, yMin, yMax)
			if tune.Stream.EvictRadius > 0 {
				streamer.EvictFar(camChunk, tune.Stream.EvictRadius)
			}
			lastChunk = camChunk
		}
		if *editEvery > 0 && frame%*editEvery == 0 {
			placeBlockAhead(mem, cam)
		}

		renderer.Prepare(cam)
		st := renderer.Render()
		rendered++

		pos := [3]float32{cam.Position.X(), cam.Position.Y(), cam.Position.Z()}
		latest.set(st)
		if err := frameLog.WriteFrame(persistlog.FrameLogEntry{RunID: runID, Time: time.Now().UTC(), Camera: pos, FrameStats: st}); err != nil {
			logger.Printf("frame log: %v", err)
		}
		idx.RecordFrame(runID, st)
		if obsSrv != nil {
			obsSrv.Publish(observer.FrameFromStats(runID, pos, st, renderer.DrawList()))
		}
		if *logEvery > 0 && frame%*logEvery == 0 {
			logger.Printf("frame=%d visited=%d draw=%d in_view=%d groups=%d jobs=%d gen=%d opt=%d prepare=%s",
				st.Frame, st.ChunksVisited, st.DrawList, st.GroupsInView, st.Groups, st.JobsInFlight,
				st.Scheduler.Generation, st.Scheduler.Optimization, st.PrepareTime)
		}
	}
	logger.Printf("rendered %d frames", rendered)

	run.Frames = int(rendered)
	if err := idx.RecordRun(run); err != nil {
		logger.Printf("index: record run: %v", err)
	}

	if *saveSnap {
		snap := snapshot.SnapshotV1{
			Header:        snapshot.Header{Version: snapshot.Version, WorldID: runID, Frame: startFrame + rendered},
			ChunkSize:     terrain.ChunkSize,
			Seed:          genCfg.Seed,
			BaseHeight:    genCfg.BaseHeight,
			HeightAmp:     genCfg.HeightAmp,
			HeightCell:    genCfg.HeightCell,
			SandLevel:     genCfg.SandLevel,
			CaveCell:      genCfg.CaveCell,
			CavePermille:  genCfg.CavePermille,
			CaveMinDepth:  genCfg.CaveMinDepth,
			DirtThickness: genCfg.DirtThickness,
			Camera:        snapshot.CameraV1{Pos: [3]float32{cam.Position.X(), cam.Position.Y(), cam.Position.Z()}},
		}
		streamer.Flush()
		snap.Chunks = store.ExportLoadedChunks(mem, mem.LoadedChunkKeys())
		p := filepath.Join(*dataDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Frame))
		if err := snapshot.WriteSnapshot(p, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
		} else {
			logger.Printf("snapshot written: %s (%d chunks)", p, len(snap.Chunks))
			idx.RecordSnapshot(runID, snap.Header.Frame, p, snap.Seed, len(snap.Chunks))
		}
	}
}

// streamRange widens the configured vertical band so the camera's own chunk
// is always loaded.
func streamRange(s tuning.Stream, cam terrain.ChunkPos) (int, int) {
	yMin, yMax := s.YMin, s.YMax
	if cam.Y < yMin {
		yMin = cam.Y
	}
	if cam.Y > yMax {
		yMax = cam.Y
	}
	return yMin, yMax
}

func genFromSnapshot(snap snapshot.SnapshotV1, fallback gen.Config) gen.Config {
	cfg := fallback
	cfg.Seed = snap.Seed
	if snap.HeightCell != 0 {
		cfg.BaseHeight = snap.BaseHeight
		cfg.HeightAmp = snap.HeightAmp
		cfg.HeightCell = snap.HeightCell
		cfg.SandLevel = snap.SandLevel
		cfg.CaveCell = snap.CaveCell
		cfg.CavePermille = snap.CavePermille
		cfg.CaveMinDepth = snap.CaveMinDepth
		cfg.DirtThickness = snap.DirtThickness
	}
	return cfg
}

// placeBlockAhead aims along the camera's view ray. A log block that is hit
// is removed, anything else gets a log placed on the face that was hit.
func placeBlockAhead(s *store.MemStore, cam camera.Camera) bool {
	hit, ok := terrain.Raymarch(s, cam.Position, cam.Forward(), editReach)
	if !ok {
		return false
	}
	if hit.Block == terrain.BlockLog {
		w := hit.World()
		return s.SetBlock(w.X, w.Y, w.Z, terrain.BlockAir)
	}
	if !hit.HasNormal {
		return false
	}
	a := hit.Adjacent()
	return s.SetBlock(a.X, a.Y, a.Z, terrain.BlockLog)
}

type latestFrame struct {
	mu sync.Mutex
	st world.FrameStats
}

func (l *latestFrame) set(st world.FrameStats) {
	l.mu.Lock()
	l.st = st
	l.mu.Unlock()
}

func (l *latestFrame) get() world.FrameStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestFrame uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		frame, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || frame > bestFrame {
			bestFrame = frame
			best = filepath.Join(dir, name)
		}
	}
	return best
}
