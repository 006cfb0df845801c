// Package indexdb maintains a secondary sqlite index over profile saves and
// audited actions. It is an index, not the source of truth: profile files and
// the JSONL audit logs remain authoritative, so writes here are fire-and-forget
// through a single writer goroutine.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"jetgo.dev/internal/content"
	auditlog "jetgo.dev/internal/persistence/log"
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
	reqSave reqKind = iota + 1
	reqAudit
)

type req struct {
	kind reqKind

	save  saveRow
	audit auditlog.AuditEntry
}

type saveRow struct {
	ProfileID string
	SavedAt   int64
	Items     int
	Digest    string
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
		// High buffer: action batches can fan out many audit rows without
		// stalling the session goroutines.
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
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profile_saves (
			profile_id TEXT NOT NULL,
			saved_at INTEGER NOT NULL,
			items INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (profile_id, saved_at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_profile ON profile_saves(profile_id, saved_at DESC);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at INTEGER NOT NULL,
			profile_id TEXT NOT NULL,
			action TEXT NOT NULL,
			code TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_profile_at ON audits(profile_id, at);`,
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

// RecordSave notes that a profile snapshot was written to disk.
func (s *SQLiteIndex) RecordSave(profileID string, savedAt int64, items int, digest string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := saveRow{ProfileID: profileID, SavedAt: savedAt, Items: items, Digest: digest}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		// Drop if the indexer falls behind; profile files remain the source of truth.
	}
}

func (s *SQLiteIndex) WriteAudit(entry auditlog.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
	}
	return nil
}

// UpsertCatalogs records the digests of the content the server is running,
// so operators can correlate saves and audits with a content revision.
func (s *SQLiteIndex) UpsertCatalogs(c *content.Content) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
	}
	rows := []kv{
		{name: "templates", digest: c.Templates.Digest},
		{name: "presets", digest: c.Presets.Digest},
		{name: "traders", digest: c.Traders.Digest},
		{name: "quests", digest: c.Quests.Digest},
		{name: "hideout", digest: c.Hideout.Digest},
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,updated_at) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO profile_saves(profile_id,saved_at,items,digest) VALUES(?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(at,profile_id,action,code,raw_json) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
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
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(sv.ProfileID, sv.SavedAt, sv.Items, sv.Digest); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				if _, err := tx.Stmt(insertAudit).Exec(a.At, a.ProfileID, a.Action, a.Code, string(raw)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
