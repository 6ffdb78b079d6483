package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter constructs the base mux router with request logging, CORS and a
// health check.
func NewRouter(allowedOrigins []string) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger())
	r.Use(CORS(allowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}
