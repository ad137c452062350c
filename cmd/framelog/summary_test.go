package main

import (
	"strings"
	"testing"
	"time"

	persistlog "voxelview.ai/internal/persistence/log"
	"voxelview.ai/internal/render/world"
)

func entry(run string, frame uint64, prepare time.Duration) persistlog.FrameLogEntry {
	return persistlog.FrameLogEntry{RunID: run, FrameStats: world.FrameStats{Frame: frame, ChunksVisited: 10, DrawList: 4, JobsInFlight: int(frame), PrepareTime: prepare}}
}

func TestSummaryCountsGapsAndPercentiles(t *testing.T) {
	var s summary
	for i, f := range []uint64{1, 2, 4, 5} {
		if err := s.add(entry("r", f, time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("add %d: %v", f, err)
		}
	}
	if s.frames != 4 || s.gaps != 1 || s.maxJobs != 5 {
		t.Fatalf("summary = %+v", s)
	}
	if s.percentile(50) != 2*time.Millisecond || s.percentile(100) != 4*time.Millisecond {
		t.Fatalf("percentiles p50=%s max=%s", s.percentile(50), s.percentile(100))
	}
	var b strings.Builder
	s.print(&b)
	if !strings.Contains(b.String(), "frames=4 (1..5, gaps=1)") {
		t.Fatalf("output:\n%s", b.String())
	}
}

func TestSummaryRejectsMixedRunsAndDisorder(t *testing.T) {
	var s summary
	_ = s.add(entry("a", 3, 0))
	if err := s.add(entry("b", 4, 0)); err == nil {
		t.Fatalf("expected run mismatch")
	}
	if err := s.add(entry("a", 3, 0)); err == nil {
		t.Fatalf("expected out-of-order error")
	}
}
