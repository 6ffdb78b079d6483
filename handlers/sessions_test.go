package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"marquee/api"
	"marquee/internal/ranking"
	"marquee/models"
	"marquee/services/sessions"
)

type fakeCatalog struct{}

func (fakeCatalog) SearchMovies(_ context.Context, query string) ([]models.MovieSummary, error) {
	if query == "nothing" {
		return []models.MovieSummary{}, nil
	}
	return []models.MovieSummary{{ID: 603, Title: "The Matrix", PosterPath: "/m.jpg"}}, nil
}

func (fakeCatalog) DiscoverMovies(context.Context, string) ([]models.MovieSummary, error) {
	return []models.MovieSummary{{ID: 550, Title: "Fight Club"}}, nil
}

func (fakeCatalog) GetMovie(_ context.Context, id int64) (*models.MovieDetail, error) {
	return &models.MovieDetail{MovieSummary: models.MovieSummary{ID: id, Title: "The Matrix"}}, nil
}

func (fakeCatalog) GetVideos(context.Context, int64) ([]models.Video, error) {
	return []models.Video{{Key: "vKQi3bBA1y8", Site: "YouTube", Type: "Trailer"}}, nil
}

func newTestRouter(t *testing.T, limit rate.Limit, burst int) *mux.Router {
	t.Helper()
	store, err := ranking.OpenSQLite(filepath.Join(t.TempDir(), "ranking.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := sessions.NewService(fakeCatalog{}, store, sessions.Options{Debounce: 5 * time.Millisecond})
	t.Cleanup(svc.Shutdown)

	limiter := api.NewIPRateLimiter(limit, burst)
	t.Cleanup(limiter.Stop)

	r := api.NewRouter(nil)
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(limiter.Middleware())
	NewSessionsHandler(svc).Register(apiRouter)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.1.1.1:4000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID == "" {
		t.Fatal("expected session id in response")
	}
	return body.ID
}

func pollSearch(t *testing.T, r http.Handler, id string, done func(models.QueryState[[]models.MovieSummary]) bool) models.QueryState[[]models.MovieSummary] {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := do(t, r, http.MethodGet, "/api/sessions/"+id+"/search", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var state models.QueryState[[]models.MovieSummary]
		if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if done(state) {
			return state
		}
		if time.Now().After(deadline) {
			t.Fatalf("search never settled, last state %+v", state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRouter(t, rate.Inf, 1)
	id := createSession(t, r)

	listing := pollSearch(t, r, id, func(s models.QueryState[[]models.MovieSummary]) bool { return s.Status.Terminal() })
	if listing.Status != models.StatusSuccess || listing.Data[0].Title != "Fight Club" {
		t.Fatalf("expected discover listing, got %+v", listing)
	}

	rec := do(t, r, http.MethodPut, "/api/sessions/"+id+"/query", `{"query":"nothing"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	empty := pollSearch(t, r, id, func(s models.QueryState[[]models.MovieSummary]) bool { return s.Status == models.StatusEmpty })
	if empty.Data != nil || empty.Error != "" {
		t.Fatalf("empty state must carry no data or error, got %+v", empty)
	}

	rec = do(t, r, http.MethodDelete, "/api/sessions/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, "/api/sessions/"+id+"/search", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	r := newTestRouter(t, rate.Inf, 1)
	for _, path := range []string{"/search", "/trending", "/details", "/events", ""} {
		rec := do(t, r, http.MethodGet, "/api/sessions/does-not-exist"+path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", path, rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] != "session not found" {
			t.Fatalf("GET %s: unexpected body %q", path, rec.Body.String())
		}
	}
}

func TestQueryRejectsBadBody(t *testing.T) {
	r := newTestRouter(t, rate.Inf, 1)
	id := createSession(t, r)
	rec := do(t, r, http.MethodPut, "/api/sessions/"+id+"/query", `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoadDetails(t *testing.T) {
	r := newTestRouter(t, rate.Inf, 1)
	id := createSession(t, r)

	if rec := do(t, r, http.MethodPost, "/api/sessions/"+id+"/details/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad movie id, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/sessions/"+id+"/details/603", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := do(t, r, http.MethodGet, "/api/sessions/"+id+"/details", "")
		var view struct {
			MovieID int64                                  `json:"movieId"`
			Detail  models.QueryState[*models.MovieDetail] `json:"detail"`
			Trailer models.QueryState[string]              `json:"trailer"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if view.Detail.Status.Terminal() && view.Trailer.Status.Terminal() {
			if view.MovieID != 603 || view.Detail.Data.TrailerKey == nil || *view.Detail.Data.TrailerKey != "vKQi3bBA1y8" {
				t.Fatalf("unexpected view %+v", view)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("details never settled: %+v", view)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRateLimitedSurface(t *testing.T) {
	r := newTestRouter(t, rate.Every(time.Minute), 2)
	createSession(t, r)
	do(t, r, http.MethodGet, "/api/sessions/x/search", "")
	rec := do(t, r, http.MethodGet, "/api/sessions/x/search", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// Health sits outside the limited subrouter.
	if rec := do(t, r, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	r := newTestRouter(t, rate.Inf, 1)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/sessions/"+created.ID+"/events", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %q", ct)
	}

	seen := map[string]bool{}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			seen[name] = true
		}
		if seen[sessions.EventSearch] && seen[sessions.EventTrending] && seen[sessions.EventDetails] {
			return
		}
	}
	t.Fatalf("expected an event for every stream, saw %v", seen)
}
