package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	persistlog "voxelview.ai/internal/persistence/log"
)

// summary accumulates frame log entries of a single run.
type summary struct {
	runID     string
	frames    int
	first     uint64
	last      uint64
	gaps      int
	visited   int
	drawList  int
	inView    int
	maxJobs   int
	genJobs   int
	optJobs   int
	installed int
	prepare   []time.Duration
}

func (s *summary) add(e persistlog.FrameLogEntry) error {
	if s.runID == "" {
		s.runID = e.RunID
	} else if e.RunID != s.runID {
		return fmt.Errorf("frame %d belongs to run %s, expected %s", e.Frame, e.RunID, s.runID)
	}
	if s.frames == 0 {
		s.first = e.Frame
	} else {
		if e.Frame <= s.last {
			return fmt.Errorf("frame %d after %d: log out of order", e.Frame, s.last)
		}
		if e.Frame != s.last+1 {
			s.gaps++
		}
	}
	s.last = e.Frame
	s.frames++
	s.visited += e.ChunksVisited
	s.drawList += e.DrawList
	s.inView += e.GroupsInView
	s.genJobs += e.Scheduler.Generation
	s.optJobs += e.Scheduler.Optimization
	s.installed += e.Scheduler.Installed
	if e.JobsInFlight > s.maxJobs {
		s.maxJobs = e.JobsInFlight
	}
	s.prepare = append(s.prepare, e.PrepareTime)
	return nil
}

// percentile returns the p-th percentile (0..100) of prepare times.
func (s *summary) percentile(p int) time.Duration {
	if len(s.prepare) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), s.prepare...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	i := (len(sorted) - 1) * p / 100
	return sorted[i]
}

func (s *summary) print(w io.Writer) {
	if s.frames == 0 {
		fmt.Fprintln(w, "no frames in range")
		return
	}
	n := float64(s.frames)
	fmt.Fprintf(w, "run=%s frames=%d (%d..%d, gaps=%d)\n", s.runID, s.frames, s.first, s.last, s.gaps)
	fmt.Fprintf(w, "avg visited=%.1f draw_list=%.1f in_view=%.1f max_jobs_in_flight=%d\n",
		float64(s.visited)/n, float64(s.drawList)/n, float64(s.inView)/n, s.maxJobs)
	fmt.Fprintf(w, "mesh jobs gen=%d opt=%d installed=%d\n", s.genJobs, s.optJobs, s.installed)
	fmt.Fprintf(w, "prepare p50=%s p95=%s max=%s\n", s.percentile(50), s.percentile(95), s.percentile(100))
}
