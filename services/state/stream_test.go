package state

import (
	"sync"
	"testing"
	"time"

	"marquee/models"
)

func TestStreamStartsIdle(t *testing.T) {
	s := NewStream[[]int]("test")
	if got := s.Current().Status; got != models.StatusIdle {
		t.Fatalf("expected idle, got %s", got)
	}
}

func TestStreamBeginThenSettle(t *testing.T) {
	s := NewStream[[]int]("test")
	var seen []models.Status
	s.Subscribe(func(q models.QueryState[[]int]) { seen = append(seen, q.Status) })

	tok := s.Begin()
	if !s.Settle(tok, models.Success([]int{1, 2})) {
		t.Fatal("expected settle to apply")
	}
	want := []models.Status{models.StatusIdle, models.StatusLoading, models.StatusSuccess}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
	if got := s.Current(); len(got.Data) != 2 {
		t.Fatalf("expected data to be visible, got %+v", got)
	}
}

func TestStreamDropsSupersededResult(t *testing.T) {
	s := NewStream[string]("test")
	first := s.Begin()
	second := s.Begin()

	// Newer request resolves first, older one arrives late.
	if !s.Settle(second, models.Success("second")) {
		t.Fatal("expected newest token to settle")
	}
	if s.Settle(first, models.Success("first")) {
		t.Fatal("expected superseded token to be dropped")
	}
	if got := s.Current(); got.Data != "second" {
		t.Fatalf("expected second result to stay visible, got %+v", got)
	}
	if !s.Superseded(first) || s.Superseded(second) {
		t.Fatal("unexpected superseded report")
	}
}

func TestStreamLateOlderResultWhileNewerLoading(t *testing.T) {
	s := NewStream[string]("test")
	first := s.Begin()
	s.Begin()

	if s.Settle(first, models.Failed[string]("boom")) {
		t.Fatal("expected stale error to be dropped")
	}
	if got := s.Current().Status; got != models.StatusLoading {
		t.Fatalf("expected stream to remain loading, got %s", got)
	}
}

func TestStreamRejectsNonTerminalAndDoubleSettle(t *testing.T) {
	s := NewStream[string]("test")
	tok := s.Begin()
	if s.Settle(tok, models.Loading[string]()) {
		t.Fatal("expected non-terminal settle to be rejected")
	}
	if !s.Settle(tok, models.Empty[string]()) {
		t.Fatal("expected empty settle to apply")
	}
	if s.Settle(tok, models.Success("again")) {
		t.Fatal("expected second settle for same token to be rejected")
	}
	if got := s.Current().Status; got != models.StatusEmpty {
		t.Fatalf("expected empty, got %s", got)
	}
}

func TestStreamUnsubscribe(t *testing.T) {
	s := NewStream[int]("test")
	calls := 0
	cancel := s.Subscribe(func(models.QueryState[int]) { calls++ })
	cancel()
	cancel()
	s.Begin()
	if calls != 1 {
		t.Fatalf("expected only the replayed state, got %d calls", calls)
	}
}

func TestStreamConcurrentRequestsLastDispatchWins(t *testing.T) {
	s := NewStream[int]("test")
	tokens := make([]Token, 50)
	for i := range tokens {
		tokens[i] = s.Begin()
	}

	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func(i int, tok Token) {
			defer wg.Done()
			s.Settle(tok, models.Success(i))
		}(i, tok)
	}
	wg.Wait()

	if got := s.Current(); got.Status != models.StatusSuccess || got.Data != len(tokens)-1 {
		t.Fatalf("expected last dispatched result, got %+v", got)
	}
}

func TestStreamListenerMayUnsubscribeItself(t *testing.T) {
	s := NewStream[int]("test")
	var statuses []models.Status
	var stop func()
	stop = s.Subscribe(func(q models.QueryState[int]) {
		statuses = append(statuses, q.Status)
		if q.Status == models.StatusLoading {
			stop()
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		tok := s.Begin()
		s.Settle(tok, models.Success(7))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribing from a listener deadlocked the stream")
	}

	want := []models.Status{models.StatusIdle, models.StatusLoading}
	if len(statuses) != len(want) || statuses[0] != want[0] || statuses[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, statuses)
	}
	if s.Current().Status != models.StatusSuccess {
		t.Fatalf("expected success after settle, got %s", s.Current().Status)
	}
}
