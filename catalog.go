package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// catalogSchema creates the catalog tables on first open.
//
// Transfer progress has no column on purpose: it is meaningful only
// while a transfer goroutine is alive, so a restarted process must
// always come up with every record idle.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS models (
	file_name     TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL DEFAULT '',
	kind          TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	sha256        TEXT NOT NULL DEFAULT '',
	primary_url   TEXT NOT NULL DEFAULT '',
	mirror_urls   TEXT NOT NULL DEFAULT '[]',
	downloaded    INTEGER NOT NULL DEFAULT 0,
	last_error    TEXT NOT NULL DEFAULT '',
	is_default    INTEGER NOT NULL DEFAULT 0,
	is_deprecated INTEGER NOT NULL DEFAULT 0,
	notes         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_models_kind ON models(kind);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
PRAGMA journal_mode=WAL;
PRAGMA synchronous=NORMAL;
`

// catalog is the local system of record for model artifacts.
//
// It keeps an in-memory view of the SQLite database guarded by a single
// mutex; every mutation from every goroutine (transfer progress,
// reconciliation, deletion) passes through that mutex, which is the
// serialization point that keeps a stale progress update from ever
// overwriting a later terminal state.
//
// Mutations accumulate in memory and hit disk on Commit, one
// transaction per mutation batch.
type catalog struct {
	db     *sql.DB
	hub    *signalHub
	logger Logger

	mu      sync.RWMutex
	records map[string]*ModelRecord
	meta    map[string]string

	// dirty tracks record keys awaiting a commit; removed tracks keys
	// deleted since the last commit.
	dirty     map[string]struct{}
	removed   map[string]struct{}
	metaDirty map[string]struct{}
}

// openCatalog opens (creating if necessary) the catalog database at
// path and loads it into memory.
func openCatalog(path string, hub *signalHub, logger Logger) (*catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening catalog: %v", ErrStorage, err)
	}

	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing catalog: %v", ErrStorage, err)
	}

	c := &catalog{
		db:        db,
		hub:       hub,
		logger:    logger,
		records:   make(map[string]*ModelRecord),
		meta:      make(map[string]string),
		dirty:     make(map[string]struct{}),
		removed:   make(map[string]struct{}),
		metaDirty: make(map[string]struct{}),
	}

	if err := c.load(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// load reads all records and meta rows into memory.
func (c *catalog) load() error {
	rows, err := c.db.Query(`
		SELECT file_name, display_name, kind, size_bytes, sha256,
		       primary_url, mirror_urls, downloaded, last_error,
		       is_default, is_deprecated, notes
		FROM models`)
	if err != nil {
		return fmt.Errorf("%w: reading catalog: %v", ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     ModelRecord
			mirrors string
		)
		if err := rows.Scan(
			&rec.FileName, &rec.DisplayName, &rec.Kind, &rec.SizeBytes,
			&rec.SHA256, &rec.PrimaryURL, &mirrors, &rec.Downloaded,
			&rec.LastError, &rec.IsDefault, &rec.IsDeprecated, &rec.Notes,
		); err != nil {
			return fmt.Errorf("%w: scanning catalog row: %v", ErrStorage, err)
		}
		if err := json.Unmarshal([]byte(mirrors), &rec.MirrorURLs); err != nil {
			// A corrupt mirror list costs the mirrors, not the record.
			if c.logger != nil {
				c.logger.Warn("dropping corrupt mirror list", "fileName", rec.FileName, "error", err)
			}
			rec.MirrorURLs = nil
		}
		c.records[rec.FileName] = &rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: reading catalog: %v", ErrStorage, err)
	}

	metaRows, err := c.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return fmt.Errorf("%w: reading catalog meta: %v", ErrStorage, err)
	}
	defer metaRows.Close()

	for metaRows.Next() {
		var k, v string
		if err := metaRows.Scan(&k, &v); err != nil {
			return fmt.Errorf("%w: scanning meta row: %v", ErrStorage, err)
		}
		c.meta[k] = v
	}
	return metaRows.Err()
}

// get returns a copy of the record for fileName.
func (c *catalog) get(fileName string) (ModelRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[fileName]
	if !ok {
		return ModelRecord{}, false
	}
	return rec.clone(), true
}

// list returns copies of all records, ordered by kind then file name.
func (c *catalog) list() []ModelRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ModelRecord, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].FileName < out[j].FileName
	})
	return out
}

// isEmpty reports whether the catalog holds no records.
func (c *catalog) isEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records) == 0
}

// insert adds a new record, replacing any record with the same key.
// The change is staged until the next commit.
func (c *catalog) insert(rec ModelRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := rec.clone()
	stored.Progress = nil
	c.records[rec.FileName] = &stored
	c.dirty[rec.FileName] = struct{}{}
	delete(c.removed, rec.FileName)
}

// update applies fn to the record for fileName under the catalog lock
// and stages it for the next commit. Returns false if no such record
// exists.
func (c *catalog) update(fileName string, fn func(*ModelRecord)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[fileName]
	if !ok {
		return false
	}
	fn(rec)
	c.dirty[fileName] = struct{}{}
	return true
}

// updateTransient applies fn to the record for fileName without staging
// a disk write, and fires the change signal. Used for transfer progress,
// which is deliberately never persisted.
func (c *catalog) updateTransient(fileName string, fn func(*ModelRecord)) bool {
	c.mu.Lock()
	rec, ok := c.records[fileName]
	if ok {
		fn(rec)
	}
	c.mu.Unlock()

	if ok {
		c.hub.publishChange()
	}
	return ok
}

// remove deletes the record for fileName, staged until the next commit.
func (c *catalog) remove(fileName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[fileName]; !ok {
		return false
	}
	delete(c.records, fileName)
	delete(c.dirty, fileName)
	c.removed[fileName] = struct{}{}
	return true
}

// getMeta returns the meta value for key, empty if unset.
func (c *catalog) getMeta(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta[key]
}

// setMeta stages a meta key/value pair for the next commit.
func (c *catalog) setMeta(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.meta[key] = value
	c.metaDirty[key] = struct{}{}
}

// commit flushes all staged mutations to disk in one transaction and
// fires the change signal. A failed commit leaves the staging sets
// intact so a later commit can retry.
func (c *catalog) commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.dirty) == 0 && len(c.removed) == 0 && len(c.metaDirty) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning catalog commit: %v", ErrStorage, err)
	}
	defer tx.Rollback()

	for fileName := range c.dirty {
		rec := c.records[fileName]
		if rec == nil {
			continue
		}
		mirrors, err := json.Marshal(rec.MirrorURLs)
		if err != nil {
			return fmt.Errorf("%w: encoding mirror list: %v", ErrStorage, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO models (file_name, display_name, kind, size_bytes,
				sha256, primary_url, mirror_urls, downloaded, last_error,
				is_default, is_deprecated, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(file_name) DO UPDATE SET
				display_name = excluded.display_name,
				kind = excluded.kind,
				size_bytes = excluded.size_bytes,
				sha256 = excluded.sha256,
				primary_url = excluded.primary_url,
				mirror_urls = excluded.mirror_urls,
				downloaded = excluded.downloaded,
				last_error = excluded.last_error,
				is_default = excluded.is_default,
				is_deprecated = excluded.is_deprecated,
				notes = excluded.notes`,
			rec.FileName, rec.DisplayName, string(rec.Kind), rec.SizeBytes,
			rec.SHA256, rec.PrimaryURL, string(mirrors), rec.Downloaded,
			rec.LastError, rec.IsDefault, rec.IsDeprecated, rec.Notes,
		); err != nil {
			return fmt.Errorf("%w: writing record %s: %v", ErrStorage, rec.FileName, err)
		}
	}

	for fileName := range c.removed {
		if _, err := tx.Exec(`DELETE FROM models WHERE file_name = ?`, fileName); err != nil {
			return fmt.Errorf("%w: deleting record %s: %v", ErrStorage, fileName, err)
		}
	}

	for key := range c.metaDirty {
		if _, err := tx.Exec(`
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, c.meta[key],
		); err != nil {
			return fmt.Errorf("%w: writing meta %s: %v", ErrStorage, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing catalog: %v", ErrStorage, err)
	}

	c.dirty = make(map[string]struct{})
	c.removed = make(map[string]struct{})
	c.metaDirty = make(map[string]struct{})

	c.hub.publishChange()
	return nil
}

// close closes the underlying database. Staged but uncommitted
// mutations are lost.
func (c *catalog) close() error {
	return c.db.Close()
}
