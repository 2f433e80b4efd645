package dataset

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores fetched shards on disk, indexed by a small sqlite table so
// stale or corrupted entries can be detected and refetched. Filenames are the
// SHA-1 of the source URL; the index records the SHA-256 of the content.
type Cache struct {
	dir string
	db  *sql.DB
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS shards (
	url        TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	sha256     TEXT NOT NULL,
	fetched_at TIMESTAMP NOT NULL
);`

// DefaultCacheDir returns the shard cache directory, overridable via
// DEMO2RULE_CACHE.
func DefaultCacheDir() string {
	if dir := os.Getenv("DEMO2RULE_CACHE"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "demo2rule")
}

// OpenCache opens (creating if needed) a shard cache rooted at dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "shards.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache index: %w", err)
	}
	return &Cache{dir: dir, db: db}, nil
}

// Close closes the cache index.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Fetch returns the content of url, reading from the cache when a valid
// entry exists and downloading (and recording) it otherwise. Repeated calls
// for the same URL return byte-identical data.
func (c *Cache) Fetch(ctx context.Context, client Doer, url string) ([]byte, error) {
	if data, ok := c.lookup(url); ok {
		return data, nil
	}
	data, err := c.download(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if err := c.store(url, data); err != nil {
		return nil, err
	}
	return data, nil
}

// lookup returns a cached entry if it exists and its digest still matches.
func (c *Cache) lookup(url string) ([]byte, bool) {
	var path, digest string
	err := c.db.QueryRow(`SELECT path, sha256 FROM shards WHERE url = ?`, url).Scan(&path, &digest)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != digest {
		// Corrupted file: drop the entry and refetch.
		c.db.Exec(`DELETE FROM shards WHERE url = ?`, url)
		return nil, false
	}
	return data, true
}

func (c *Cache) download(ctx context.Context, client Doer, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Cache) store(url string, data []byte) error {
	name := sha1.Sum([]byte(url))
	path := filepath.Join(c.dir, hex.EncodeToString(name[:])+".shard")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cached shard: %w", err)
	}
	sum := sha256.Sum256(data)
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO shards (url, path, sha256, fetched_at) VALUES (?, ?, ?, ?)`,
		url, path, hex.EncodeToString(sum[:]), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record cached shard: %w", err)
	}
	return nil
}
