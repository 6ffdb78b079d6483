package catalog

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var errEmptyCacheKey = errors.New("catalog cache: empty key")

// fileCache keeps normalised catalog records (movie details, video lists) on
// disk as JSON, one file per key. Each file records when it was stored.
type fileCache struct {
	fs  afero.Afero
	dir string
	ttl time.Duration
	now func() time.Time
}

type cacheEntry struct {
	StoredAt time.Time       `json:"storedAt"`
	Payload  json.RawMessage `json:"payload"`
}

func newFileCache(base afero.Fs, dir string, ttlHours int) *fileCache {
	if base == nil {
		base = afero.NewOsFs()
	}
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &fileCache{
		fs:  afero.Afero{Fs: base},
		dir: dir,
		ttl: time.Duration(ttlHours) * time.Hour,
		now: time.Now,
	}
}

func cacheKey(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(h[:])
}

// jitteredTTL staggers expiry between ttl and ttl+6h, derived from the key hash
// so a key always gets the same lifetime.
func (c *fileCache) jitteredTTL(key string) time.Duration {
	h := sha256.Sum256([]byte(key))
	n := binary.BigEndian.Uint64(h[:8])
	return c.ttl + time.Duration(n%uint64(6*time.Hour))
}

func (c *fileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// get decodes the record stored under key into v. Expired or unreadable
// records are removed and reported as a miss.
func (c *fileCache) get(key string, v any) (bool, error) {
	if key == "" {
		return false, errEmptyCacheKey
	}
	path := c.path(key)
	data, err := c.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.StoredAt.IsZero() {
		_ = c.fs.Remove(path)
		return false, nil
	}
	if c.now().Sub(entry.StoredAt) > c.jitteredTTL(key) {
		_ = c.fs.Remove(path)
		return false, nil
	}
	if err := json.Unmarshal(entry.Payload, v); err != nil {
		_ = c.fs.Remove(path)
		return false, nil
	}
	return true, nil
}

// set stores v under key, replacing any earlier record in one rename.
func (c *fileCache) set(key string, v any) error {
	if key == "" {
		return errEmptyCacheKey
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cacheEntry{StoredAt: c.now().UTC(), Payload: payload})
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	path := c.path(key)
	tmp := path + ".tmp"
	if err := c.fs.WriteFile(tmp, data, 0o644); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return c.fs.Rename(tmp, path)
}
