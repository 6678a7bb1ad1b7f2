// Package buildcache stores generated class files keyed by what they were
// generated from, so unchanged modules skip code generation.
package buildcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"

	"github.com/funvibe/sasquach/internal/codegen"
)

// Cache is a build cache backed by a sqlite database.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

type entry struct {
	Module    string     `cbor:"1,keyasint"`
	Artifacts []artifact `cbor:"2,keyasint"`
}

type artifact struct {
	Name  string `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

// Open opens or creates the cache database at path. Use ":memory:" for a
// cache that lives as long as the Cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening build cache: %w", err)
	}
	// One connection, so that ":memory:" is a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		key TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		data BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Cache{db: db, path: path}, nil
}

func (c *Cache) Path() string { return c.path }

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the artifacts stored under key. ok is false on a miss.
func (c *Cache) Get(key Digest) (artifacts []codegen.Artifact, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	err = c.db.QueryRow("SELECT data FROM builds WHERE key = ?", key.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying build cache: %w", err)
	}
	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("buildcache: unmarshal entry %s: %w", key, err)
	}
	artifacts = make([]codegen.Artifact, len(e.Artifacts))
	for i, a := range e.Artifacts {
		artifacts[i] = codegen.Artifact{Name: a.Name, Bytes: a.Bytes}
	}
	return artifacts, true, nil
}

// Put stores the artifacts of module under key, replacing any earlier entry.
func (c *Cache) Put(key Digest, module string, artifacts []codegen.Artifact) error {
	e := entry{Module: module, Artifacts: make([]artifact, len(artifacts))}
	for i, a := range artifacts {
		e.Artifacts[i] = artifact{Name: a.Name, Bytes: a.Bytes}
	}
	data, err := cborEncMode.Marshal(&e)
	if err != nil {
		return fmt.Errorf("buildcache: encoding entry for %s: %w", module, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO builds (key, module, data, created) VALUES (?, ?, ?, ?)",
		key.String(), module, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving build of %s: %w", module, err)
	}
	return nil
}

// Prune deletes every entry of module except the one under keep.
func (c *Cache) Prune(module string, keep Digest) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.Exec("DELETE FROM builds WHERE module = ? AND key <> ?", module, keep.String())
	if err != nil {
		return 0, fmt.Errorf("pruning build cache: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored builds.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM builds").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting build cache: %w", err)
	}
	return n, nil
}
