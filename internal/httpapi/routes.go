package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter creates the HTTP router. metrics, when non-nil, is served at
// /metrics.
func NewRouter(handler *Handler, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.Use(RecoveryMiddleware)

	router.HandleFunc("/api/runs", handler.HandleCreateRun).Methods(http.MethodPost)
	router.HandleFunc("/api/runs", handler.HandleListRuns).Methods(http.MethodGet)
	router.HandleFunc("/api/runs/{run_id}", handler.HandleGetRun).Methods(http.MethodGet)
	router.HandleFunc("/api/runs/{run_id}/events", handler.HandleEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/runs/{run_id}/stream", handler.HandleStream).Methods(http.MethodGet)
	router.HandleFunc("/api/models", handler.HandleModels).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	return router
}
