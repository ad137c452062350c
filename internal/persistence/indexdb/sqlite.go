package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"voxelview.ai/internal/render/world"
)

// SQLiteIndex is a queryable read model of viewer runs. Frame rows are
// written by a single goroutine and dropped when it falls behind; the frame
// logs stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type reqKind int

const (
	reqFrame reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	runID    string
	frame    world.FrameStats
	snapshot snapshotRow
}

type snapshotRow struct {
	Frame  uint64
	Path   string
	Seed   int64
	Chunks int
}

// Run describes one viewer session.
type Run struct {
	ID        string
	StartedAt time.Time
	Seed      int64
	Mesher    string
	Frames    int
	Tuning    any
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			mesher TEXT NOT NULL,
			frames INTEGER NOT NULL,
			tuning_digest TEXT NOT NULL,
			tuning_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			chunks_visited INTEGER NOT NULL,
			draw_list INTEGER NOT NULL,
			groups_in_view INTEGER NOT NULL,
			groups_total INTEGER NOT NULL,
			meshes_drained INTEGER NOT NULL,
			jobs_in_flight INTEGER NOT NULL,
			generation_jobs INTEGER NOT NULL,
			optimization_jobs INTEGER NOT NULL,
			draws INTEGER NOT NULL,
			indices INTEGER NOT NULL,
			prepare_ns INTEGER NOT NULL,
			render_ns INTEGER NOT NULL,
			PRIMARY KEY (run_id, frame)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			PRIMARY KEY (run_id, frame)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordRun upserts the run row synchronously. Call it again at shutdown to
// store the final frame count.
func (s *SQLiteIndex) RecordRun(r Run) error {
	if s == nil {
		return nil
	}
	if r.ID == "" {
		return fmt.Errorf("run without id")
	}
	b, err := json.Marshal(r.Tuning)
	if err != nil {
		return fmt.Errorf("tuning json: %w", err)
	}
	sum := sha256.Sum256(b)
	_, err = s.db.ExecContext(context.Background(),
		`INSERT OR REPLACE INTO runs(run_id,started_at,seed,mesher,frames,tuning_digest,tuning_json) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Seed, r.Mesher, r.Frames, hex.EncodeToString(sum[:]), string(b))
	return err
}

// RecordFrame queues one frame row.
func (s *SQLiteIndex) RecordFrame(runID string, st world.FrameStats) {
	s.enqueue(req{kind: reqFrame, runID: runID, frame: st})
}

func (s *SQLiteIndex) RecordSnapshot(runID string, frame uint64, path string, seed int64, chunks int) {
	s.enqueue(req{kind: reqSnapshot, runID: runID, snapshot: snapshotRow{Frame: frame, Path: path, Seed: seed, Chunks: chunks}})
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of rows discarded because the writer was behind.
func (s *SQLiteIndex) Dropped() int64 { return s.dropped.Load() }

// RunSummary aggregates the frame rows of one run.
type RunSummary struct {
	RunID        string
	Mesher       string
	Frames       int
	AvgVisited   float64
	AvgDrawList  float64
	AvgInView    float64
	MaxInFlight  int
	GenJobs      int
	OptJobs      int
	AvgPrepareNs float64
}

func (s *SQLiteIndex) Summary(ctx context.Context, runID string) (RunSummary, error) {
	out := RunSummary{RunID: runID}
	err := s.db.QueryRowContext(ctx, `
		SELECT r.mesher, COUNT(f.frame),
			COALESCE(AVG(f.chunks_visited),0), COALESCE(AVG(f.draw_list),0), COALESCE(AVG(f.groups_in_view),0),
			COALESCE(MAX(f.jobs_in_flight),0), COALESCE(SUM(f.generation_jobs),0), COALESCE(SUM(f.optimization_jobs),0),
			COALESCE(AVG(f.prepare_ns),0)
		FROM runs r LEFT JOIN frames f ON f.run_id = r.run_id
		WHERE r.run_id = ?
		GROUP BY r.run_id`, runID).Scan(
		&out.Mesher, &out.Frames,
		&out.AvgVisited, &out.AvgDrawList, &out.AvgInView,
		&out.MaxInFlight, &out.GenJobs, &out.OptJobs,
		&out.AvgPrepareNs,
	)
	if err == sql.ErrNoRows {
		return out, fmt.Errorf("run %s not found", runID)
	}
	return out, err
}

// RunIDs lists runs, newest first.
func (s *SQLiteIndex) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertFrame, _ := s.db.Prepare(`INSERT OR REPLACE INTO frames(run_id,frame,chunks_visited,draw_list,groups_in_view,groups_total,meshes_drained,jobs_in_flight,generation_jobs,optimization_jobs,draws,indices,prepare_ns,render_ns) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,frame,path,seed,chunks) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertFrame != nil {
			_ = insertFrame.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	end := func(commit bool) {
		if tx == nil {
			return
		}
		if commit {
			_ = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.dropped.Add(1)
			continue
		}
		var err error
		switch r.kind {
		case reqFrame:
			if insertFrame == nil {
				err = fmt.Errorf("frames insert not prepared")
				break
			}
			f := r.frame
			_, err = tx.Stmt(insertFrame).Exec(
				r.runID,
				int64(f.Frame),
				f.ChunksVisited,
				f.DrawList,
				f.GroupsInView,
				f.Groups,
				f.MeshesDrained,
				f.JobsInFlight,
				f.Scheduler.Generation,
				f.Scheduler.Optimization,
				f.Device.Draws,
				f.Device.Indices,
				f.PrepareTime.Nanoseconds(),
				f.RenderTime.Nanoseconds(),
			)
		case reqSnapshot:
			if insertSnapshot == nil {
				err = fmt.Errorf("snapshots insert not prepared")
				break
			}
			sn := r.snapshot
			_, err = tx.Stmt(insertSnapshot).Exec(r.runID, int64(sn.Frame), sn.Path, sn.Seed, sn.Chunks)
		}
		if err != nil {
			s.dropped.Add(int64(opCount) + 1)
			end(false)
			continue
		}
		opCount++
		// The pool holds one connection, so the tx must not stay open while
		// the queue is idle or RecordRun and queries would wait on it.
		if opCount >= commitEvery || len(s.ch) == 0 || time.Since(lastCommit) >= commitMaxWait {
			end(true)
		}
	}
	end(true)
}
