package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
)

// SetupOpsEndpoints registers the liveness probe and the metrics scrape endpoint
func SetupOpsEndpoints(router *mux.Router, gatherer prometheus.Gatherer) {
	router.HandleFunc("/healthz", handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		log.Error("❌ Failed to encode health response: %v", err)
	}
}
