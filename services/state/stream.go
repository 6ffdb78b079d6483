// Package state holds the result state machine shared by the search, trending
// and detail pipelines.
//
// A Stream moves idle -> loading -> {success|empty|error} and back to loading
// on every new request. Each Begin hands out a token; only the most recently
// issued token may settle the stream, so a late response for a superseded
// request is dropped no matter when it arrives.
package state

import (
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"marquee/models"
)

// Token identifies one request dispatched on a Stream.
type Token uint64

// Listener receives every state a Stream publishes, in order.
type Listener[T any] func(models.QueryState[T])

type subscription[T any] struct {
	id int
	fn Listener[T]
}

// Stream owns the visible QueryState of one result pipeline.
//
// Lock order is mu then emitMu. subsMu only guards subs and is never held
// while waiting on another lock, so listeners may unsubscribe.
type Stream[T any] struct {
	name string

	mu     sync.Mutex
	latest Token

	emitMu sync.Mutex

	subsMu  sync.Mutex
	subs    []subscription[T]
	nextSub int

	current atomic.Pointer[models.QueryState[T]]
}

// NewStream returns an idle stream. The name only appears in log lines.
func NewStream[T any](name string) *Stream[T] {
	s := &Stream[T]{name: name}
	idle := models.Idle[T]()
	s.current.Store(&idle)
	return s
}

// Current returns the visible state. Safe to call from listeners.
func (s *Stream[T]) Current() models.QueryState[T] {
	return *s.current.Load()
}

// Begin starts a new request: the stream moves to loading, any earlier token
// becomes stale, and the new token is returned.
func (s *Stream[T]) Begin() Token {
	s.mu.Lock()
	s.latest++
	tok := s.latest
	s.publishAndUnlock(models.Loading[T]())
	return tok
}

// Settle publishes a terminal state for tok. It returns false and leaves the
// stream untouched when tok has been superseded, was already settled, or next
// is not a terminal state.
func (s *Stream[T]) Settle(tok Token, next models.QueryState[T]) bool {
	if !next.Status.Terminal() {
		log.Printf("[state] %s: refusing non-terminal settle status=%s", s.name, next.Status)
		return false
	}
	s.mu.Lock()
	if tok != s.latest {
		latest := s.latest
		s.mu.Unlock()
		log.Printf("[state] %s: dropping superseded result token=%d latest=%d", s.name, tok, latest)
		return false
	}
	if s.current.Load().Status != models.StatusLoading {
		s.mu.Unlock()
		return false
	}
	s.publishAndUnlock(next)
	return true
}

// Superseded reports whether a newer request has been dispatched after tok.
func (s *Stream[T]) Superseded(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok != s.latest
}

// Subscribe registers fn and immediately replays the current state to it.
// Listeners run synchronously on the transitioning goroutine, in publish
// order. They must not block or call Begin, Settle or Subscribe; calling the
// returned unsubscribe func from a listener is fine. A listener removed while
// a publish is under way may still see that one state.
func (s *Stream[T]) Subscribe(fn Listener[T]) func() {
	s.mu.Lock()
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})
	s.subsMu.Unlock()

	s.emitMu.Lock()
	s.mu.Unlock()
	fn(*s.current.Load())
	s.emitMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			s.subs = slices.DeleteFunc(slices.Clone(s.subs), func(sub subscription[T]) bool {
				return sub.id == id
			})
		})
	}
}

// publishAndUnlock stores next and delivers it to a snapshot of the
// listeners. It must be called with mu held; mu is released once emitMu is
// taken, so deliveries keep transition order without blocking unsubscribe.
func (s *Stream[T]) publishAndUnlock(next models.QueryState[T]) {
	s.current.Store(&next)
	s.subsMu.Lock()
	subs := s.subs
	s.subsMu.Unlock()

	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	for _, sub := range subs {
		sub.fn(next)
	}
}
