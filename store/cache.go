// Package store implements a content-addressed cache of compiled chunks
// in SQLite. The key is the SHA-256 of the source text, so an unchanged
// script never recompiles and any edit invalidates its entry naturally.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/loxa-lang/loxa/bytecode"
)

// ErrNotFound indicates the requested source has no cached chunk.
var ErrNotFound = errors.New("chunk not found in cache")

// Cache handles SQLite storage for compiled chunks.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	log  commonlog.Logger
}

// Open creates or opens a chunk cache at the given path, creating parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash TEXT PRIMARY KEY,
		bytecode BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, path: path, log: commonlog.GetLogger("loxa.cache")}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key returns the content address for a source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached chunk for a source text, or ErrNotFound.
// Corrupt or version-skewed blobs are evicted and reported as misses so
// the caller falls back to compiling.
func (c *Cache) Get(source string) (*bytecode.Chunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(source)

	var blob []byte
	err := c.db.QueryRow("SELECT bytecode FROM chunks WHERE hash = ?", key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying cache: %w", err)
	}

	chunk, err := bytecode.UnmarshalChunk(blob)
	if err != nil {
		c.log.Debugf("evicting corrupt chunk %s: %v", key, err)
		if _, derr := c.db.Exec("DELETE FROM chunks WHERE hash = ?", key); derr != nil {
			c.log.Debugf("evicting chunk %s failed: %v", key, derr)
		}
		return nil, ErrNotFound
	}
	return chunk, nil
}

// Put stores a compiled chunk under its source's content address.
func (c *Cache) Put(source string, chunk *bytecode.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("encoding chunk: %w", err)
	}

	_, err = c.db.Exec("INSERT OR REPLACE INTO chunks (hash, bytecode) VALUES (?, ?)", Key(source), blob)
	if err != nil {
		return fmt.Errorf("storing chunk: %w", err)
	}
	return nil
}

// Len returns the number of cached chunks.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
