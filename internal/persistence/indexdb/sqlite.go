// Package indexdb keeps a queryable sqlite index of evaluation decisions,
// tier edits and snapshot saves. It is a secondary index: writes are
// buffered through a single writer goroutine and dropped under
// backpressure; the JSONL logs remain the source of truth.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"advancedentitylimit/internal/limits"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqDecision reqKind = iota + 1
	reqEdit
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	decision limits.DecisionRecord
	edit     editRow
	snapshot snapshotRow
	done     chan struct{}
}

type editRow struct {
	At       string
	Actor    uint64
	Tier     string
	Category string
	Field    string
	Value    string
}

type snapshotRow struct {
	At    string
	Path  string
	Tiers int
}

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
		// High buffer: evaluation bursts must never stall on the indexer.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			tier TEXT,
			allowed INTEGER NOT NULL,
			max_allowed INTEGER NOT NULL,
			live_count INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_user_at ON decisions(user_id, at);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_category_at ON decisions(category, at);`,
		`CREATE TABLE IF NOT EXISTS tier_edits (
			at TEXT NOT NULL,
			actor INTEGER NOT NULL,
			tier TEXT NOT NULL,
			category TEXT,
			field TEXT NOT NULL,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tier_edits_tier_at ON tier_edits(tier, at);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			at TEXT NOT NULL,
			path TEXT NOT NULL,
			tiers INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
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

// RecordDecision implements limits.DecisionSink.
func (s *SQLiteIndex) RecordDecision(rec limits.DecisionRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqDecision, decision: rec}:
	default:
		// Drop if the indexer falls behind.
	}
}

// RecordEdit indexes one tier mutation from the admin surface.
func (s *SQLiteIndex) RecordEdit(actor uint64, tier, category, field, value string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := editRow{
		At:       time.Now().UTC().Format(time.RFC3339Nano),
		Actor:    actor,
		Tier:     tier,
		Category: category,
		Field:    field,
		Value:    value,
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: r}:
	default:
	}
}

// RecordSnapshot indexes one tier-document save.
func (s *SQLiteIndex) RecordSnapshot(path string, tiers int) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		At:    time.Now().UTC().Format(time.RFC3339Nano),
		Path:  path,
		Tiers: tiers,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// Sync blocks until every write queued before it has been applied.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqSync, done: done}
	<-done
}

// CountDecisions reports indexed decisions for a user (0 = all users).
func (s *SQLiteIndex) CountDecisions(user uint64) (int, error) {
	var n int
	var err error
	if user == 0 {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM decisions`).Scan(&n)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM decisions WHERE user_id = ?`, user).Scan(&n)
	}
	return n, err
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqDecision:
			d := r.decision
			_, err := s.db.Exec(
				`INSERT OR REPLACE INTO decisions (id, at, user_id, category, tier, allowed, max_allowed, live_count)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				d.ID, d.At.Format(time.RFC3339Nano), int64(d.User), d.Category, d.Tier,
				boolInt(d.Allowed), d.Limit, d.Count,
			)
			_ = err
		case reqEdit:
			e := r.edit
			_, _ = s.db.Exec(
				`INSERT INTO tier_edits (at, actor, tier, category, field, value) VALUES (?, ?, ?, ?, ?, ?)`,
				e.At, int64(e.Actor), e.Tier, e.Category, e.Field, e.Value,
			)
		case reqSnapshot:
			sn := r.snapshot
			_, _ = s.db.Exec(
				`INSERT INTO snapshots (at, path, tiers) VALUES (?, ?, ?)`,
				sn.At, sn.Path, sn.Tiers,
			)
		case reqSync:
			close(r.done)
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
