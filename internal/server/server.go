package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// New builds the HTTP handler exposing the liveness probe used by external
// uptime monitors.
func New() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", aliveHandler).Methods(http.MethodGet)
	return r
}

func aliveHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] write response: %v", err)
	}
}
