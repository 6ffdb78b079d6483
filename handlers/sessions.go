package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"marquee/api"
	"marquee/services/sessions"
)

const (
	maxQueryBodySize = 4 << 10
	eventBufferSize  = 32
	keepAliveEvery   = 25 * time.Second
)

type sessionService interface {
	Create(ctx context.Context) (*sessions.Session, error)
	Get(id string) (*sessions.Session, error)
	Close(id string) error
}

// SessionsHandler exposes per-client search pipelines over HTTP.
type SessionsHandler struct {
	svc sessionService
}

func NewSessionsHandler(svc sessionService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// Register mounts the session routes on r.
func (h *SessionsHandler) Register(r *mux.Router) {
	r.HandleFunc("/sessions", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.Snapshot).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.Close).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/query", h.Query).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/trending", h.Trending).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/trending/refresh", h.RefreshTrending).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/details/{movieID}", h.LoadDetails).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/details", h.Details).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/events", h.Events).Methods(http.MethodGet)
}

func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Create(r.Context())
	if err != nil {
		log.Printf("[http] create session: %v", err)
		api.WriteError(w, http.StatusServiceUnavailable, "unable to start session")
		return
	}
	api.WriteJSON(w, http.StatusCreated, sess)
}

func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(mux.Vars(r)["id"]); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, http.StatusOK, sess.Snapshot())
}

type queryRequest struct {
	Query string `json:"query"`
}

// Query feeds the raw search box value to the session's debouncer.
func (h *SessionsHandler) Query(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodySize)).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess.Observe(req.Query)
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionsHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, http.StatusOK, sess.Search.State())
}

func (h *SessionsHandler) Trending(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, http.StatusOK, sess.Trending.State())
}

func (h *SessionsHandler) RefreshTrending(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	sess.RefreshTrending()
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionsHandler) LoadDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	movieID, err := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)["movieID"]), 10, 64)
	if err != nil || movieID <= 0 {
		api.WriteError(w, http.StatusBadRequest, "invalid movie id")
		return
	}
	sess.LoadDetails(movieID)
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionsHandler) Details(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, http.StatusOK, sess.Details.View())
}

// Events streams every state transition of the session as server-sent events
// until the client goes away.
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan sessions.Event, eventBufferSize)
	stop := sess.Subscribe(func(e sessions.Event) {
		select {
		case events <- e:
		default:
			log.Printf("[http] session %s: event buffer full, dropping %s", sess.ID, e.Type)
		}
	})
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := writeSSEEvent(w, flusher, e.Type, e.Data); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	sess, err := h.svc.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return sess, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrSessionNotFound) {
		api.WriteError(w, http.StatusNotFound, "session not found")
		return
	}
	log.Printf("[http] session error: %v", err)
	api.WriteError(w, http.StatusInternalServerError, "internal error")
}
