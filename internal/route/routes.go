package route

import (
	"net/http"

	"smartdate/internal/config"
	"smartdate/internal/handler"
	"smartdate/internal/logger"
	"smartdate/internal/middleware"
	"smartdate/internal/repository"
	"smartdate/internal/service/websocket"

	"github.com/gorilla/mux"
)

// Deps bundles what the HTTP API reads from.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Broker    handler.ConnectionChecker
	Cache     repository.LatestCache
	History   repository.DetectionRepository // nil when no history store is configured
	Snapshots handler.SnapshotSource         // nil when snapshots are disabled
	Hub       *websocket.HubService
}

// SetupRoutes registers the API endpoints and wraps the router with the
// token middleware.
func SetupRoutes(d Deps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api", handler.StatusHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handler.HealthHandler(d.Broker)).Methods(http.MethodGet)
	api.HandleFunc("/latest", handler.LatestHandler(d.Cache, d.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/history", handler.HistoryHandler(d.History, d.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/stats", handler.StatsHandler(d.History, d.Logger)).Methods(http.MethodGet)

	if d.Snapshots != nil {
		api.HandleFunc("/snapshots/{name}", handler.SnapshotHandler(d.Snapshots)).Methods(http.MethodGet)
	}
	if d.Hub != nil {
		api.HandleFunc("/view", handler.ViewWebsocketHandler(d.Hub, d.Logger))
	}

	// Log endpoints
	api.HandleFunc("/logs/{level}", handler.ShowLogsHandler(d.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(d.Logger)).Methods(http.MethodPost)

	return middleware.AuthMiddleware(d.Config.Server.APIToken)(r)
}
