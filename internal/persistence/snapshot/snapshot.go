package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Frame   uint64 `json:"frame"`
}

// SnapshotV1 is a saved terrain: generator parameters plus every chunk that
// was loaded when it was written.
type SnapshotV1 struct {
	Header Header `json:"header"`

	ChunkSize int   `json:"chunk_size"`
	Seed      int64 `json:"seed"`

	// Generator tuning, so a resumed world streams matching terrain.
	BaseHeight    int `json:"base_height,omitempty"`
	HeightAmp     int `json:"height_amp,omitempty"`
	HeightCell    int `json:"height_cell,omitempty"`
	SandLevel     int `json:"sand_level,omitempty"`
	CaveCell      int `json:"cave_cell,omitempty"`
	CavePermille  int `json:"cave_permille,omitempty"`
	CaveMinDepth  int `json:"cave_min_depth,omitempty"`
	DirtThickness int `json:"dirt_thickness,omitempty"`

	Camera CameraV1 `json:"camera"`

	Chunks []ChunkV1 `json:"chunks"`
}

type CameraV1 struct {
	Pos [3]float32 `json:"pos"`
	Yaw float32    `json:"yaw"`
}

type ChunkV1 struct {
	Pos    [3]int   `json:"pos"`
	Blocks []uint16 `json:"blocks"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encodeSnapshot(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// encodeSnapshot writes the zstd stream and reports errors surfaced by the
// final flush and close, which is where small snapshots reach w.
func encodeSnapshot(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := writeSnapshotBody(bw, &snap); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

func writeSnapshotBody(bw *bufio.Writer, snap *SnapshotV1) error {
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap, nil
}
