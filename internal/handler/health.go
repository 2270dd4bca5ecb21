package handler

import (
	"net/http"
	"time"
)

// ConnectionChecker reports broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

// StatusHandler confirms the API is up.
func StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "API working",
			"time":    time.Now().UTC(),
		})
	}
}

// HealthHandler reports backend and broker status.
func HealthHandler(broker ConnectionChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{
			"backend": true,
			"mqtt":    broker != nil && broker.IsConnected(),
		})
	}
}
