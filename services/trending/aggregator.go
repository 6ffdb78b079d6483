// Package trending records successful searches in the ranking store and
// serves the most popular terms back as a result stream.
package trending

import (
	"context"
	"errors"
	"fmt"
	"log"

	"marquee/models"
	"marquee/services/catalog"
	"marquee/services/state"
)

const (
	DefaultTopN = 5

	MsgLoadFailed = "We can't load current movies"
)

var ErrEmptyTerm = errors.New("trending: empty search term")

// AggregationWriteError is a failed ranking write. It never reaches the user.
type AggregationWriteError struct {
	Term string
	Err  error
}

func (e *AggregationWriteError) Error() string {
	return fmt.Sprintf("record search %q: %v", e.Term, e.Err)
}

func (e *AggregationWriteError) Unwrap() error { return e.Err }

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks marquee/services/trending Store

// Store is the part of the ranking store the aggregator uses.
type Store interface {
	IncrementTerm(ctx context.Context, term string, movie models.RepresentativeMovie) (models.RankingEntry, error)
	ListTop(ctx context.Context, n int) ([]models.RankingEntry, error)
}

type Aggregator struct {
	store  Store
	stream *state.Stream[[]models.RankingEntry]
	topN   int
}

type Option func(*Aggregator)

// WithTopN changes how many entries LoadTop returns when asked for n <= 0.
func WithTopN(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topN = n
		}
	}
}

func New(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		stream: state.NewStream[[]models.RankingEntry]("trending"),
		topN:   DefaultTopN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordSearch counts one successful search for term, keeping movie as the
// term's representative when the term is new. Store failures are logged and
// returned as *AggregationWriteError; callers decide whether to wait on it.
func (a *Aggregator) RecordSearch(ctx context.Context, term string, movie models.MovieSummary) error {
	term = models.NormalizeTerm(term)
	if term == "" {
		return ErrEmptyTerm
	}
	rep := models.RepresentativeMovie{
		ID:        movie.ID,
		Title:     movie.Title,
		PosterURL: catalog.PosterURL(movie.PosterPath),
	}
	entry, err := a.store.IncrementTerm(ctx, term, rep)
	if err != nil {
		werr := &AggregationWriteError{Term: term, Err: err}
		log.Printf("[trending] %v", werr)
		return werr
	}
	log.Printf("[trending] recorded term=%q count=%d", entry.Term, entry.Count)
	return nil
}

// LoadTop refreshes the trending stream with the n most searched terms.
func (a *Aggregator) LoadTop(ctx context.Context, n int) models.QueryState[[]models.RankingEntry] {
	if n <= 0 {
		n = a.topN
	}
	tok := a.stream.Begin()
	entries, err := a.store.ListTop(ctx, n)

	var result models.QueryState[[]models.RankingEntry]
	switch {
	case err != nil:
		log.Printf("[trending] load top %d failed: %v", n, err)
		result = models.Failed[[]models.RankingEntry](MsgLoadFailed)
	case len(entries) == 0:
		result = models.Empty[[]models.RankingEntry]()
	default:
		if len(entries) > n {
			entries = entries[:n]
		}
		result = models.Success(entries)
	}
	a.stream.Settle(tok, result)
	return result
}

func (a *Aggregator) State() models.QueryState[[]models.RankingEntry] {
	return a.stream.Current()
}

func (a *Aggregator) Subscribe(fn state.Listener[[]models.RankingEntry]) func() {
	return a.stream.Subscribe(fn)
}
