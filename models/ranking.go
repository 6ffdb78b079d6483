package models

import "time"

// RepresentativeMovie is the catalog item stored alongside a search term so the
// trending list has something to show for it.
type RepresentativeMovie struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"posterUrl,omitempty"`
}

// RankingEntry is one persisted search term and how often it produced results.
type RankingEntry struct {
	Term      string              `json:"term"`
	Count     int64               `json:"count"`
	Movie     RepresentativeMovie `json:"movie"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}
