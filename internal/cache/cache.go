// Package cache implements the TTL key-value store collectors consult
// before enrichment round-trips: an in-memory expirable LRU tier in front
// of md5-named JSON files on disk. Entries are idempotently re-derivable,
// so concurrent writers to one key resolve last-writer-wins.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type fileEntry struct {
	ExpiresAt int64  `json:"expires_at"`
	Data      []byte `json:"data"`
}

// FileCache is the default port.Cache implementation.
type FileCache struct {
	dir     string
	enabled bool
	mem     *expirable.LRU[string, []byte]
	nowFunc func() time.Time
}

// New creates a cache rooted at dir. A disabled cache is a valid no-op
// implementation, used by --force-refresh runs.
func New(dir string, enabled bool, memEntries int, memTTL time.Duration) (*FileCache, error) {
	if enabled {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	if memEntries <= 0 {
		memEntries = 1024
	}
	return &FileCache{
		dir:     dir,
		enabled: enabled,
		mem:     expirable.NewLRU[string, []byte](memEntries, nil, memTTL),
		nowFunc: time.Now,
	}, nil
}

// Key derives a deterministic cache key from a source name and its
// parameters: sorted "k=v" pairs joined after the source.
func Key(source string, params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return source + ":" + strings.Join(pairs, ",")
}

func (c *FileCache) path(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the cached value for key, or false when absent or expired.
// Expired disk entries are removed on read.
func (c *FileCache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	if data, ok := c.mem.Get(key); ok {
		return data, true
	}

	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	if c.nowFunc().Unix() > entry.ExpiresAt {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	c.mem.Add(key, entry.Data)
	return entry.Data, true
}

// Set stores value under key for ttl. Write failures are swallowed: the
// pipeline continues uncached rather than failing a run over cache I/O.
func (c *FileCache) Set(key string, value []byte, ttl time.Duration) {
	if !c.enabled {
		return
	}
	c.mem.Add(key, value)

	entry := fileEntry{
		ExpiresAt: c.nowFunc().Add(ttl).Unix(),
		Data:      value,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path(key), raw, 0o644)
}

// Clear removes every entry from both tiers.
func (c *FileCache) Clear() error {
	c.mem.Purge()
	if !c.enabled {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
