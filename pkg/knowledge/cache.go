package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// Cache persists fetched knowledge sources on disk, one JSON file per URL
// keyed by the URL's SHA-256. The cache is shared across jobs on a host:
// writes go through a temp file and atomic rename, and readers treat
// missing or corrupt entries as misses.
type Cache struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a disk cache rooted at dir. A nil return means caching is
// disabled (empty dir or the directory cannot be created).
func NewCache(dir string, ttl time.Duration, logger *slog.Logger) *Cache {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("Knowledge cache disabled: cannot create cache directory",
			"dir", dir, "error", err)
		return nil
	}
	return &Cache{dir: dir, ttl: ttl, logger: logger}
}

// Get returns the cached source for url if present and unexpired.
// Failed fetches are not served from cache so transient errors get retried.
func (c *Cache) Get(url string) (*models.KnowledgeSource, bool) {
	if c == nil {
		return nil, false
	}
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Knowledge cache read failed, treating as miss", "url", url, "error", err)
		}
		return nil, false
	}

	var src models.KnowledgeSource
	if err := json.Unmarshal(data, &src); err != nil {
		c.logger.Warn("Knowledge cache entry corrupt, treating as miss", "url", url, "error", err)
		return nil, false
	}
	if src.URL != url || src.Failed() {
		return nil, false
	}
	if time.Since(src.FetchedAt) > c.ttl {
		return nil, false
	}
	return &src, true
}

// Put stores a successfully fetched source. Write errors are logged and
// otherwise ignored.
func (c *Cache) Put(src *models.KnowledgeSource) {
	if c == nil || src == nil || src.Failed() {
		return
	}
	data, err := json.Marshal(src)
	if err != nil {
		c.logger.Warn("Knowledge cache marshal failed", "url", src.URL, "error", err)
		return
	}

	target := c.path(src.URL)
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		c.logger.Warn("Knowledge cache write failed", "url", src.URL, "error", err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		c.logger.Warn("Knowledge cache write failed", "url", src.URL, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		c.logger.Warn("Knowledge cache write failed", "url", src.URL, "error", err)
		return
	}
	// Atomic rename so concurrent readers never see a partial entry.
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		c.logger.Warn("Knowledge cache rename failed", "url", src.URL, "error", err)
	}
}

func (c *Cache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, fmt.Sprintf("%s.json", hex.EncodeToString(sum[:])))
}
