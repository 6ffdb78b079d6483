// Package ranking persists how often each search term produced results.
//
// Both backends make IncrementTerm a single atomic create-or-increment at the
// storage layer, so concurrent searches for the same term never lose counts.
// The representative movie is written when a term is first seen and left
// untouched by later increments.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"marquee/models"
)

const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

var (
	ErrEmptyTerm    = errors.New("ranking: empty term")
	ErrInvalidLimit = errors.New("ranking: limit must be positive")
)

// Store is the durable popularity ranking of search terms.
type Store interface {
	// IncrementTerm creates term with count 1 and the given representative,
	// or adds one to an existing entry. The resulting entry is returned.
	IncrementTerm(ctx context.Context, term string, movie models.RepresentativeMovie) (models.RankingEntry, error)
	// ListTop returns at most n entries ordered by count descending, most
	// recently updated first on ties.
	ListTop(ctx context.Context, n int) ([]models.RankingEntry, error)
	Close() error
}

// Open opens the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite:
		return OpenSQLite(path)
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("ranking: unknown backend %q", backend)
	}
}

// sortEntries applies the ListTop ordering in place.
func sortEntries(entries []models.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.Term < b.Term
	})
}
