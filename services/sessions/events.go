package sessions

import (
	"marquee/models"
	"marquee/services/details"
)

const (
	EventSearch   = "search"
	EventTrending = "trending"
	EventDetails  = "details"
)

// Event is one state transition of a session pipeline.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscribe calls fn for every transition of the session's search, trending
// and detail streams, after replaying the current state of each. fn runs on
// the transitioning goroutine and must not block.
func (s *Session) Subscribe(fn func(Event)) func() {
	stops := []func(){
		s.Search.Subscribe(func(q models.QueryState[[]models.MovieSummary]) {
			fn(Event{Type: EventSearch, Data: q})
		}),
		s.Trending.Subscribe(func(q models.QueryState[[]models.RankingEntry]) {
			fn(Event{Type: EventTrending, Data: q})
		}),
		s.Details.Subscribe(func(v details.View) {
			fn(Event{Type: EventDetails, Data: v})
		}),
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}
