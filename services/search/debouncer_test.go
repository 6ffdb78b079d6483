package search

import (
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeAfter collects scheduled callbacks so tests decide when time passes.
type fakeAfter struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeAfter) after(_ time.Duration, fn func()) stopper {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// elapse fires every timer that has not been stopped.
func (f *fakeAfter) elapse() {
	f.mu.Lock()
	pending := append([]*fakeTimer(nil), f.timers...)
	f.timers = nil
	f.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.fn()
		}
	}
}

type commitLog struct {
	mu     sync.Mutex
	values []string
}

func (c *commitLog) add(v string) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
}

func (c *commitLog) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.values...)
}

func newFakeDebouncer(commits *commitLog, opts ...DebouncerOption) (*Debouncer, *fakeAfter) {
	clock := &fakeAfter{}
	d := NewDebouncer(time.Second, commits.add, opts...)
	d.after = clock.after
	return d, clock
}

func TestDebouncerCommitsLastValueOfBurst(t *testing.T) {
	commits := &commitLog{}
	d, clock := newFakeDebouncer(commits)

	d.Observe("b")
	d.Observe("ba")
	d.Observe("bat")
	clock.elapse()

	got := commits.get()
	if len(got) != 1 || got[0] != "bat" {
		t.Fatalf("expected a single commit of bat, got %v", got)
	}
}

func TestDebouncerSeparateBurstsCommitSeparately(t *testing.T) {
	commits := &commitLog{}
	d, clock := newFakeDebouncer(commits)

	d.Observe("alien")
	clock.elapse()
	d.Observe("alie")
	d.Observe("alien")
	d.Observe("aliens")
	clock.elapse()

	got := commits.get()
	if len(got) != 2 || got[0] != "alien" || got[1] != "aliens" {
		t.Fatalf("unexpected commits %v", got)
	}
}

func TestDebouncerSuppressesInitialValueUntilSomethingCommits(t *testing.T) {
	commits := &commitLog{}
	d, clock := newFakeDebouncer(commits)

	d.Observe("x")
	d.Observe("")
	clock.elapse()
	if got := commits.get(); len(got) != 0 {
		t.Fatalf("expected no commit for the initial value, got %v", got)
	}

	d.Observe("up")
	clock.elapse()
	d.Observe("")
	clock.elapse()
	got := commits.get()
	if len(got) != 2 || got[0] != "up" || got[1] != "" {
		t.Fatalf("expected clearing to commit after a real term, got %v", got)
	}
}

func TestDebouncerArmedCommitsInitialValue(t *testing.T) {
	commits := &commitLog{}
	d, clock := newFakeDebouncer(commits, WithArmed())

	d.Observe("")
	clock.elapse()
	if got := commits.get(); len(got) != 1 || got[0] != "" {
		t.Fatalf("expected armed debouncer to commit the empty term, got %v", got)
	}

	commits2 := &commitLog{}
	d2, clock2 := newFakeDebouncer(commits2, WithInitialValue("dune"))
	d2.Observe("dune")
	clock2.elapse()
	if got := commits2.get(); len(got) != 0 {
		t.Fatalf("expected unarmed debouncer to hold back its initial value, got %v", got)
	}
	d2.Arm()
	d2.Observe("dune")
	clock2.elapse()
	if got := commits2.get(); len(got) != 1 || got[0] != "dune" {
		t.Fatalf("expected commit after Arm, got %v", got)
	}
}

func TestDebouncerStopDropsPendingCommit(t *testing.T) {
	commits := &commitLog{}
	d, clock := newFakeDebouncer(commits)

	d.Observe("heat")
	d.Stop()
	clock.elapse()
	d.Observe("jaws")
	clock.elapse()

	if got := commits.get(); len(got) != 0 {
		t.Fatalf("expected no commits after Stop, got %v", got)
	}
}

func TestDebouncerRealTimer(t *testing.T) {
	done := make(chan string, 4)
	d := NewDebouncer(20*time.Millisecond, func(v string) { done <- v })
	defer d.Stop()

	d.Observe("h")
	d.Observe("he")
	d.Observe("her")

	select {
	case v := <-done:
		if v != "her" {
			t.Fatalf("expected her, got %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for commit")
	}
	select {
	case v := <-done:
		t.Fatalf("unexpected extra commit %q", v)
	case <-time.After(60 * time.Millisecond):
	}
}
