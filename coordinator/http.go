package coordinator

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

// Router builds the coordinator's HTTP control surface: the external POST
// that raises the trigger, the coarse status the UI polls, and result
// artifact retrieval after the run terminates.
func (c *Coordinator) Router() *mux.Router {
	routes := mux.NewRouter()

	routes.HandleFunc("/run/trigger", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("run %s: trigger request received", c.runID)

		if err := c.gate.Set(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "triggered"})
	}).Methods(http.MethodPost)

	routes.HandleFunc("/run/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"run_id": c.runID,
			"state":  c.State().String(),
			"status": CoarseStatus(c),
		})
	}).Methods(http.MethodGet)

	routes.HandleFunc("/run/results", func(w http.ResponseWriter, r *http.Request) {
		result, ok := c.Result()
		if !ok {
			http.Error(w, "run not terminated", http.StatusNotFound)
			return
		}
		if _, err := os.Stat(result.ArtifactPath); err != nil {
			http.Error(w, "result artifact not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, result.ArtifactPath)
	}).Methods(http.MethodGet)

	return routes
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
