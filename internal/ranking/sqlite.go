package ranking

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"marquee/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps the ranking in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ranking: sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers inside this process; cross-process
	// writers are serialised by SQLite's own locking and the busy timeout.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Printf("[ranking] sqlite store ready path=%s", path)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(context.Background())
	return err
}

func (s *SQLiteStore) IncrementTerm(ctx context.Context, term string, movie models.RepresentativeMovie) (models.RankingEntry, error) {
	if term == "" {
		return models.RankingEntry{}, ErrEmptyTerm
	}
	now := s.now().UTC().UnixNano()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO search_terms (term, count, movie_id, movie_title, poster_url, created_at, updated_at)
		VALUES (?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT(term) DO UPDATE SET
			count = search_terms.count + 1,
			updated_at = excluded.updated_at
		RETURNING term, count, movie_id, movie_title, poster_url, created_at, updated_at
	`, term, movie.ID, movie.Title, movie.PosterURL, now, now)

	entry, err := scanEntry(row)
	if err != nil {
		return models.RankingEntry{}, fmt.Errorf("increment %q: %w", term, err)
	}
	return entry, nil
}

func (s *SQLiteStore) ListTop(ctx context.Context, n int) ([]models.RankingEntry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count, movie_id, movie_title, poster_url, created_at, updated_at
		FROM search_terms
		ORDER BY count DESC, updated_at DESC, term ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("list top: %w", err)
	}
	defer rows.Close()

	entries := make([]models.RankingEntry, 0, n)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list top: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list top: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.RankingEntry, error) {
	var (
		entry            models.RankingEntry
		created, updated int64
	)
	if err := row.Scan(&entry.Term, &entry.Count, &entry.Movie.ID, &entry.Movie.Title, &entry.Movie.PosterURL, &created, &updated); err != nil {
		return models.RankingEntry{}, err
	}
	entry.CreatedAt = time.Unix(0, created).UTC()
	entry.UpdatedAt = time.Unix(0, updated).UTC()
	return entry, nil
}

var _ Store = (*SQLiteStore)(nil)
