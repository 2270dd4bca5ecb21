package handler

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

// SnapshotSource locates stored and still-buffered crops.
type SnapshotSource interface {
	Path(name string) (string, bool)
	Pending(name string) ([]byte, bool)
}

// SnapshotHandler serves a stored JPEG crop by name.
func SnapshotHandler(store SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]

		path, ok := store.Path(name)
		if !ok {
			http.Error(w, "Invalid snapshot name", http.StatusBadRequest)
			return
		}

		if data, ok := store.Pending(name); ok {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(data)
			return
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}
}
