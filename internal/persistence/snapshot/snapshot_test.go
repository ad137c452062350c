package snapshot

import (
	"errors"
	"path/filepath"
	"testing"
)

var errDiskFull = errors.New("disk full")

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errDiskFull
}

func TestWriteReadSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "12.snap.zst")
	blocks := make([]uint16, 8)
	blocks[3] = 2
	in := SnapshotV1{
		Header:    Header{Version: Version, WorldID: "w", Frame: 12},
		ChunkSize: 32,
		Seed:      99,
		Camera:    CameraV1{Pos: [3]float32{1, 2, 3}, Yaw: 0.5},
		Chunks:    []ChunkV1{{Pos: [3]int{1, -2, 3}, Blocks: blocks}},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Header != in.Header || out.Seed != 99 || out.Camera != in.Camera {
		t.Fatalf("header mismatch: %+v", out)
	}
	if len(out.Chunks) != 1 || out.Chunks[0].Pos != [3]int{1, -2, 3} || out.Chunks[0].Blocks[3] != 2 {
		t.Fatalf("chunk mismatch: %+v", out.Chunks)
	}
}

func TestReadSnapshotRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestEncodeSnapshotReportsDeferredWriteError(t *testing.T) {
	// A small snapshot fits the buffers, so the writer is first touched
	// when the stream is flushed and closed.
	w := &failingWriter{}
	err := encodeSnapshot(w, SnapshotV1{Header: Header{Version: Version}, ChunkSize: 32})
	if err == nil {
		t.Fatalf("write error was dropped")
	}
	if w.writes == 0 {
		t.Fatalf("writer never called")
	}
}
