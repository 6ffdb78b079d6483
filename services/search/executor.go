// Package search turns committed search input into catalog queries and
// publishes their outcome on a result stream.
package search

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"marquee/models"
	"marquee/services/catalog"
	"marquee/services/state"
)

// User facing messages. Raw transport errors only go to the log.
const (
	MsgFetchError   = "Error fetching movies. Please try again later."
	MsgSearchFailed = "Failed to fetch movies"
)

// Catalog is the subset of the catalog client the executor needs.
type Catalog interface {
	SearchMovies(ctx context.Context, query string) ([]models.MovieSummary, error)
	DiscoverMovies(ctx context.Context, sortBy string) ([]models.MovieSummary, error)
}

// Recorder receives every successful non-empty search. Its error is its own:
// the executor never turns it into a search failure.
type Recorder interface {
	RecordSearch(ctx context.Context, term string, movie models.MovieSummary) error
}

// Executor runs one catalog query per committed term. The visible state always
// reflects the most recently dispatched query.
type Executor struct {
	catalog  Catalog
	recorder Recorder
	stream   *state.Stream[[]models.MovieSummary]
	timeout  time.Duration
	sortBy   string

	runs    sync.WaitGroup
	records sync.WaitGroup
}

type ExecutorOption func(*Executor)

// WithTimeout bounds each catalog call. Zero leaves it to the transport.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithSortBy changes the order of the default listing.
func WithSortBy(sortBy string) ExecutorOption {
	return func(e *Executor) { e.sortBy = sortBy }
}

// NewExecutor builds an executor. recorder may be nil.
func NewExecutor(c Catalog, recorder Recorder, opts ...ExecutorOption) *Executor {
	e := &Executor{
		catalog:  c,
		recorder: recorder,
		stream:   state.NewStream[[]models.MovieSummary]("search"),
		sortBy:   catalog.SortPopularityDesc,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the visible search state.
func (e *Executor) State() models.QueryState[[]models.MovieSummary] {
	return e.stream.Current()
}

// Subscribe forwards every state transition to fn. See state.Stream.Subscribe.
func (e *Executor) Subscribe(fn state.Listener[[]models.MovieSummary]) func() {
	return e.stream.Subscribe(fn)
}

// Run dispatches term and blocks until its outcome is known. The returned
// state is this request's outcome even if a newer request has since replaced
// it on the stream.
func (e *Executor) Run(ctx context.Context, term string) models.QueryState[[]models.MovieSummary] {
	tok := e.stream.Begin()
	return e.resolve(ctx, tok, term)
}

// Dispatch moves the stream to loading immediately and resolves term in the
// background. Successive calls are ordered by when Dispatch was called.
func (e *Executor) Dispatch(ctx context.Context, term string) state.Token {
	tok := e.stream.Begin()
	e.runs.Add(1)
	go func() {
		defer e.runs.Done()
		e.resolve(ctx, tok, term)
	}()
	return tok
}

// Wait blocks until dispatched queries and the search records they triggered
// have finished.
func (e *Executor) Wait() {
	e.runs.Wait()
	e.records.Wait()
}

func (e *Executor) resolve(ctx context.Context, tok state.Token, raw string) models.QueryState[[]models.MovieSummary] {
	term := models.NormalizeTerm(raw)

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var (
		movies []models.MovieSummary
		err    error
	)
	if term == "" {
		movies, err = e.catalog.DiscoverMovies(callCtx, e.sortBy)
	} else {
		movies, err = e.catalog.SearchMovies(callCtx, term)
	}
	if err != nil {
		log.Printf("[search] query failed term=%q token=%d err=%v", term, tok, err)
	}
	result := classify(movies, err)
	e.stream.Settle(tok, result)

	if result.Status == models.StatusSuccess && term != "" && e.recorder != nil {
		e.record(ctx, term, movies[0])
	}
	return result
}

func (e *Executor) record(ctx context.Context, term string, first models.MovieSummary) {
	ctx = context.WithoutCancel(ctx)
	e.records.Add(1)
	go func() {
		defer e.records.Done()
		// Errors are logged by the recorder and deliberately dropped here.
		_ = e.recorder.RecordSearch(ctx, term, first)
	}()
}

func classify(movies []models.MovieSummary, err error) models.QueryState[[]models.MovieSummary] {
	if err != nil {
		var appErr *catalog.ApplicationError
		if errors.As(err, &appErr) {
			if appErr.Message != "" {
				return models.Failed[[]models.MovieSummary](appErr.Message)
			}
			return models.Failed[[]models.MovieSummary](MsgSearchFailed)
		}
		return models.Failed[[]models.MovieSummary](MsgFetchError)
	}
	if len(movies) == 0 {
		return models.Empty[[]models.MovieSummary]()
	}
	return models.Success(movies)
}
