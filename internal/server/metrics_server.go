package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/logger"
)

// StartMetricsServer boots the Prometheus scrape endpoint.
func StartMetricsServer(cfg *config.Config) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
}
