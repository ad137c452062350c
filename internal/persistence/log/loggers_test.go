package log

import (
	"path/filepath"
	"testing"
	"time"

	"voxelview.ai/internal/render/world"
)

func TestFrameLoggerRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewFrameLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for i := 1; i <= 3; i++ {
		if i == 3 {
			clock = clock.Add(2 * time.Minute)
		}
		e := FrameLogEntry{RunID: "r1", Camera: [3]float32{1, 2, 3}, FrameStats: world.FrameStats{Frame: uint64(i), DrawList: i * 2}}
		if err := l.WriteFrame(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFrameFiles(filepath.Join(dir, "frames"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v want 2", files)
	}
	if filepath.Base(files[0]) != "frames-2026-03-01-10.jsonl.zst" {
		t.Fatalf("first file = %s", files[0])
	}

	var frames []uint64
	for _, path := range files {
		err := ReadFrames(path, func(e FrameLogEntry) error {
			if e.RunID != "r1" || e.DrawList != int(e.Frame)*2 || e.Camera[2] != 3 {
				t.Fatalf("entry mismatch: %+v", e)
			}
			frames = append(frames, e.Frame)
			return nil
		})
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
	}
	if len(frames) != 3 || frames[0] != 1 || frames[2] != 3 {
		t.Fatalf("frames = %v", frames)
	}
}

func TestFlushMakesLinesReadable(t *testing.T) {
	dir := t.TempDir()
	l := NewFrameLogger(dir)
	defer l.Close()
	if err := l.WriteFrame(FrameLogEntry{FrameStats: world.FrameStats{Frame: 9}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	files, err := ListFrameFiles(filepath.Join(dir, "frames"))
	if err != nil || len(files) != 1 {
		t.Fatalf("list: %v %v", files, err)
	}
	n := 0
	_ = ReadFrames(files[0], func(e FrameLogEntry) error {
		if e.Frame == 9 {
			n++
		}
		return nil
	})
	if n != 1 {
		t.Fatalf("flushed entry not readable")
	}
}
