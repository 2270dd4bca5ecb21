package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"smartdate/internal/dto"
	"smartdate/internal/logger"
	"smartdate/internal/repository"
)

// LatestHandler returns the last accepted record with its recommendation.
func LatestHandler(cache repository.LatestCache, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok, err := cache.Latest(r.Context())
		if err != nil {
			logger.Error("Error reading latest detection: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data yet"})
			return
		}
		writeJSON(w, http.StatusOK, dto.NewLatestDetection(rec))
	}
}

// HistoryHandler returns stored records newest first. Without a history
// store it returns an empty list.
func HistoryHandler(repo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			writeJSON(w, http.StatusOK, []struct{}{})
			return
		}

		q := r.URL.Query()
		filter := dto.HistoryFilter{
			Label: q.Get("label"),
			Limit: atoiDefault(q.Get("limit"), dto.MaxHistoryLimit),
		}

		records, err := repo.Recent(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying history: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// StatsHandler returns totals over the history store. Without a history
// store it returns an empty object.
func StatsHandler(repo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		stats, err := repo.Stats(r.Context(), startOfDay(time.Now()))
		if err != nil {
			logger.Error("Error computing stats: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
