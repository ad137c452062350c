package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voxelview.ai/internal/persistence/indexdb"
	persistlog "voxelview.ai/internal/persistence/log"
	"voxelview.ai/internal/persistence/snapshot"
)

func main() {
	var (
		runDir    = flag.String("run", "", "run directory containing frames/frames-*.jsonl.zst")
		snapPath  = flag.String("snapshot", "", "path to .snap.zst to describe (optional)")
		indexPath = flag.String("index", "", "viewer.sqlite to summarize the run from (optional)")
		fromFrame = flag.Uint64("from_frame", 0, "first frame to include (inclusive, optional)")
		toFrame   = flag.Uint64("to_frame", 0, "last frame to include (inclusive, optional)")
	)
	flag.Parse()

	if *runDir == "" && *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -run or -snapshot")
		os.Exit(2)
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d run=%s frame=%d seed=%d chunk_size=%d chunks=%d camera=%v\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Frame, snap.Seed, snap.ChunkSize, len(snap.Chunks), snap.Camera.Pos)
	}
	if *runDir == "" {
		return
	}

	files, err := persistlog.ListFrameFiles(filepath.Join(*runDir, "frames"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list frames:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no frame logs found in", *runDir)
		os.Exit(1)
	}

	var sum summary
	for _, path := range files {
		err := persistlog.ReadFrames(path, func(e persistlog.FrameLogEntry) error {
			if e.Frame < *fromFrame || (*toFrame != 0 && e.Frame > *toFrame) {
				return nil
			}
			return sum.add(e)
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read frames:", err)
			os.Exit(1)
		}
	}
	sum.print(os.Stdout)

	if *indexPath != "" && sum.runID != "" {
		idx, err := indexdb.OpenSQLite(*indexPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
		defer idx.Close()
		rs, err := idx.Summary(context.Background(), sum.runID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "index summary:", err)
			os.Exit(1)
		}
		fmt.Printf("index: frames=%d mesher=%s avg_visited=%.1f avg_draw=%.1f avg_in_view=%.1f max_in_flight=%d gen=%d opt=%d avg_prepare=%s\n",
			rs.Frames, rs.Mesher, rs.AvgVisited, rs.AvgDrawList, rs.AvgInView, rs.MaxInFlight, rs.GenJobs, rs.OptJobs,
			time.Duration(rs.AvgPrepareNs))
	}
}
