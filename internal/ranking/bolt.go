package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"marquee/models"
)

var bucketTerms = []byte("search_terms")

// BoltStore keeps one JSON document per term in a bbolt bucket. bbolt runs
// read-write transactions one at a time, which makes each increment atomic.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ranking: bolt path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTerms)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	log.Printf("[ranking] bolt store ready path=%s", path)
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) IncrementTerm(ctx context.Context, term string, movie models.RepresentativeMovie) (models.RankingEntry, error) {
	if term == "" {
		return models.RankingEntry{}, ErrEmptyTerm
	}
	if err := ctx.Err(); err != nil {
		return models.RankingEntry{}, err
	}
	var entry models.RankingEntry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTerms)
		now := s.now().UTC()
		if raw := b.Get([]byte(term)); raw != nil {
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			entry.Count++
		} else {
			entry = models.RankingEntry{Term: term, Count: 1, Movie: movie, CreatedAt: now}
		}
		entry.UpdatedAt = now
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		return b.Put([]byte(term), raw)
	})
	if err != nil {
		return models.RankingEntry{}, fmt.Errorf("increment %q: %w", term, err)
	}
	return entry, nil
}

func (s *BoltStore) ListTop(ctx context.Context, n int) ([]models.RankingEntry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []models.RankingEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTerms).ForEach(func(_, v []byte) error {
			var entry models.RankingEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list top: %w", err)
	}
	sortEntries(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	if entries == nil {
		entries = []models.RankingEntry{}
	}
	return entries, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)
