package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Events
	r.HandleFunc("/api/events", deps.Handler.GetEvents).Methods("GET")
	r.HandleFunc("/api/events", deps.Handler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/events/export.ics", deps.Handler.ExportICS).Methods("GET")
	r.HandleFunc("/api/events/position/{position:[0-9]+}", deps.Handler.UpdateEventAtPosition).Methods("PUT")
	r.HandleFunc("/api/events/position/{position:[0-9]+}", deps.Handler.DeleteEventAtPosition).Methods("DELETE")
	r.HandleFunc("/api/events/{eventUid}", deps.Handler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/events/{eventUid}", deps.Handler.DeleteEvent).Methods("DELETE")

	// Health
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
}
