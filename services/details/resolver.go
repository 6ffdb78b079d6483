// Package details loads the detail view of one movie together with its
// trailer. The trailer is best effort: its absence or failure only hides the
// trailer and never changes the detail state.
package details

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"marquee/models"
	"marquee/services/catalog"
	"marquee/services/state"
)

const (
	MsgDetailFailed   = "Error fetching movie details."
	MsgTrailerMissing = "Trailer unavailable"
)

type Catalog interface {
	GetMovie(ctx context.Context, id int64) (*models.MovieDetail, error)
	GetVideos(ctx context.Context, id int64) ([]models.Video, error)
}

// View is what the detail screen renders. Detail.Data carries the trailer key
// once the trailer stream has succeeded for the same movie.
type View struct {
	MovieID int64                                  `json:"movieId"`
	Detail  models.QueryState[*models.MovieDetail] `json:"detail"`
	Trailer models.QueryState[string]              `json:"trailer"`
}

type Resolver struct {
	catalog Catalog
	detail  *state.Stream[*models.MovieDetail]
	trailer *state.Stream[string]
	timeout time.Duration

	movie atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
}

type Option func(*Resolver)

// WithTimeout bounds the detail and video calls. Zero leaves it to the transport.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func NewResolver(c Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog: c,
		detail:  state.NewStream[*models.MovieDetail]("details"),
		trailer: state.NewStream[string]("trailer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches movie id and its videos concurrently and blocks until both
// streams have settled or been superseded. Calling Load again cancels the
// previous load; its late results are ignored.
func (r *Resolver) Load(ctx context.Context, id int64) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.movie.Store(id)
	detailTok := r.detail.Begin()
	trailerTok := r.trailer.Begin()
	r.mu.Unlock()

	if id <= 0 {
		log.Printf("[details] ignoring invalid movie id %d", id)
		r.detail.Settle(detailTok, models.Empty[*models.MovieDetail]())
		r.trailer.Settle(trailerTok, models.Empty[string]())
		return
	}

	if r.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.timeout)
		defer cancelTimeout()
	}

	p := pool.New()
	p.Go(func() {
		r.detail.Settle(detailTok, r.fetchDetail(ctx, id))
	})
	p.Go(func() {
		r.trailer.Settle(trailerTok, r.fetchTrailer(ctx, id))
	})
	p.Wait()
}

func (r *Resolver) fetchDetail(ctx context.Context, id int64) models.QueryState[*models.MovieDetail] {
	detail, err := r.catalog.GetMovie(ctx, id)
	switch {
	case catalog.IsNotFound(err):
		log.Printf("[details] movie %d not found: %v", id, err)
		return models.Failed[*models.MovieDetail](MsgDetailFailed)
	case err != nil:
		log.Printf("[details] movie %d failed: %v", id, err)
		return models.Failed[*models.MovieDetail](MsgDetailFailed)
	case detail == nil:
		return models.Empty[*models.MovieDetail]()
	}
	return models.Success(detail)
}

func (r *Resolver) fetchTrailer(ctx context.Context, id int64) models.QueryState[string] {
	videos, err := r.catalog.GetVideos(ctx, id)
	if err != nil {
		log.Printf("[details] videos for movie %d failed: %v", id, err)
		return models.Failed[string](MsgTrailerMissing)
	}
	key, ok := SelectTrailer(videos)
	if !ok {
		return models.Empty[string]()
	}
	return models.Success(key)
}

// SelectTrailer returns the key of the first YouTube trailer in videos.
func SelectTrailer(videos []models.Video) (string, bool) {
	for _, v := range videos {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			return v.Key, true
		}
	}
	return "", false
}

// View returns the current detail and trailer states. The detail is a copy
// with TrailerKey filled in when a trailer was found.
func (r *Resolver) View() View {
	v := View{
		MovieID: r.movie.Load(),
		Detail:  r.detail.Current(),
		Trailer: r.trailer.Current(),
	}
	if v.Detail.HasData() && v.Detail.Data != nil {
		merged := *v.Detail.Data
		merged.TrailerKey = nil
		if v.Trailer.HasData() {
			key := v.Trailer.Data
			merged.TrailerKey = &key
		}
		v.Detail = models.Success(&merged)
	}
	return v
}

// Subscribe calls fn with the merged view after every transition of either
// stream, starting with one replay per stream. The returned func removes both.
func (r *Resolver) Subscribe(fn func(View)) func() {
	stopDetail := r.detail.Subscribe(func(models.QueryState[*models.MovieDetail]) { fn(r.View()) })
	stopTrailer := r.trailer.Subscribe(func(models.QueryState[string]) { fn(r.View()) })
	return func() {
		stopDetail()
		stopTrailer()
	}
}
