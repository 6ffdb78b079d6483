package models

import (
	"encoding/json"
	"testing"
)

func TestQueryStateConstructors(t *testing.T) {
	if s := Idle[[]MovieSummary](); s.Status != StatusIdle || s.Data != nil || s.Error != "" {
		t.Fatalf("unexpected idle state: %+v", s)
	}
	if s := Loading[[]MovieSummary](); !s.IsLoading() || s.HasData() {
		t.Fatalf("unexpected loading state: %+v", s)
	}
	s := Success([]MovieSummary{{ID: 1, Title: "Dune"}})
	if !s.HasData() || len(s.Data) != 1 || s.Error != "" {
		t.Fatalf("unexpected success state: %+v", s)
	}
	if e := Empty[[]MovieSummary](); e.Status != StatusEmpty || e.HasData() {
		t.Fatalf("unexpected empty state: %+v", e)
	}
	f := Failed[[]MovieSummary]("boom")
	if f.Status != StatusError || f.Error != "boom" || f.Data != nil {
		t.Fatalf("unexpected error state: %+v", f)
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := map[Status]bool{
		StatusIdle:    false,
		StatusLoading: false,
		StatusSuccess: true,
		StatusEmpty:   true,
		StatusError:   true,
	}
	for status, expect := range tests {
		if got := status.Terminal(); got != expect {
			t.Fatalf("%s.Terminal() = %v, want %v", status, got, expect)
		}
	}
}

func TestQueryStateJSONOmitsAbsentFields(t *testing.T) {
	raw, err := json.Marshal(Empty[[]MovieSummary]())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"status":"empty"}` {
		t.Fatalf("unexpected json: %s", raw)
	}
	raw, err = json.Marshal(Failed[[]MovieSummary]("Failed to fetch movies"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"status":"error","error":"Failed to fetch movies"}` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestNormalizeTerm(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"   ":              "",
		" Dune ":           "Dune",
		"the   matrix":     "the matrix",
		"Ame\u0301lie":     "Am\u00e9lie",
		"\tBlade Runner\n": "Blade Runner",
	}
	for input, expect := range tests {
		if got := NormalizeTerm(input); got != expect {
			t.Fatalf("NormalizeTerm(%q) = %q, want %q", input, got, expect)
		}
	}
}
