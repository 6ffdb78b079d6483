package sessions

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"marquee/models"
	"marquee/services/details"
	"marquee/services/search"
	"marquee/services/trending"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrShutdown        = errors.New("sessions service shut down")
)

const (
	// DefaultIdleTimeout is how long a session may go untouched before cleanup closes it.
	DefaultIdleTimeout = 30 * time.Minute

	defaultCleanupInterval = time.Minute
)

// Catalog is everything the per-session pipelines need from the catalog client.
type Catalog interface {
	search.Catalog
	details.Catalog
}

type Options struct {
	Debounce        time.Duration
	RequestTimeout  time.Duration
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	TopN            int
}

// Service owns the live pipeline of every connected client.
type Service struct {
	catalog Catalog
	store   trending.Store
	opts    Options
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	stop     chan struct{}
	loopDone chan struct{}
}

// NewService starts the idle cleanup loop. Call Shutdown to stop it.
func NewService(c Catalog, store trending.Store, opts Options) *Service {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	svc := &Service{
		catalog:  c,
		store:    store,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go svc.cleanupLoop()
	return svc
}

// Create starts a session: the default listing and the trending list begin
// loading immediately, and typed input is debounced into searches.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ctx:       sessCtx,
		cancel:    cancel,
	}
	sess.lastSeen.Store(now.UnixNano())

	sess.Trending = trending.New(s.store, trending.WithTopN(s.opts.TopN))
	sess.Search = search.NewExecutor(s.catalog, sess.Trending, search.WithTimeout(s.opts.RequestTimeout))
	sess.Details = details.NewResolver(s.catalog, details.WithTimeout(s.opts.RequestTimeout))
	sess.debouncer = search.NewDebouncer(s.opts.Debounce, func(term string) {
		sess.Search.Dispatch(sessCtx, term)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	sess.Search.Dispatch(sessCtx, "")
	sess.goTask(func() { sess.Trending.LoadTop(sessCtx, 0) })

	log.Printf("[sessions] created id=%s", sess.ID)
	return sess, nil
}

// Get returns the session with id and marks it as active.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen.Store(s.now().UnixNano())
	return sess, nil
}

// Close tears the session down. No commit fires after Close returns.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.close()
	log.Printf("[sessions] closed id=%s", id)
	return nil
}

// Cleanup closes every session idle for longer than the idle timeout and
// returns how many were closed.
func (s *Service) Cleanup() int {
	cutoff := s.now().Add(-s.opts.IdleTimeout).UnixNano()

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	if len(expired) > 0 {
		log.Printf("[sessions] expired %d idle sessions", len(expired))
	}
	return len(expired)
}

// Count returns the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown stops the cleanup loop and closes every session, waiting for
// in-flight work, including pending ranking writes, to finish.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	close(s.stop)
	<-s.loopDone
	for _, sess := range all {
		sess.close()
	}
	log.Printf("[sessions] shut down, closed %d sessions", len(all))
}

func (s *Service) cleanupLoop() {
	defer close(s.loopDone)
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}

// Session is one client's pipeline: debounced input feeding the search
// executor, the trending list and the detail resolver.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Search   *search.Executor     `json:"-"`
	Trending *trending.Aggregator `json:"-"`
	Details  *details.Resolver    `json:"-"`

	debouncer *search.Debouncer
	ctx       context.Context
	cancel    context.CancelFunc
	lastSeen  atomic.Int64
	closeOnce sync.Once

	taskMu  sync.Mutex
	closing bool
	tasks   sync.WaitGroup
}

// Observe feeds one raw input value to the debouncer.
func (s *Session) Observe(raw string) {
	s.debouncer.Observe(raw)
}

// LoadDetails starts loading movie id in the background.
func (s *Session) LoadDetails(id int64) {
	s.goTask(func() { s.Details.Load(s.ctx, id) })
}

// RefreshTrending reloads the trending list in the background.
func (s *Session) RefreshTrending() {
	s.goTask(func() { s.Trending.LoadTop(s.ctx, 0) })
}

// Snapshot is the full visible state of a session.
type Snapshot struct {
	ID       string                                   `json:"id"`
	Search   models.QueryState[[]models.MovieSummary] `json:"search"`
	Trending models.QueryState[[]models.RankingEntry] `json:"trending"`
	Details  details.View                             `json:"details"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:       s.ID,
		Search:   s.Search.State(),
		Trending: s.Trending.State(),
		Details:  s.Details.View(),
	}
}

func (s *Session) goTask(fn func()) {
	s.taskMu.Lock()
	if s.closing {
		s.taskMu.Unlock()
		return
	}
	s.tasks.Add(1)
	s.taskMu.Unlock()
	go func() {
		defer s.tasks.Done()
		fn()
	}()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.taskMu.Lock()
		s.closing = true
		s.taskMu.Unlock()

		s.debouncer.Stop()
		s.cancel()
		s.Search.Wait()
		s.tasks.Wait()
	})
}
