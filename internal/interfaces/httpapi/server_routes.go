package httpapi

import (
	"net/http"

	"github.com/riskibarqy/h2h-insight/internal/platform/metrics"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool, recorder *metrics.Recorder) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if recorder != nil {
		mux.Handle("GET /metrics", recorder.Handler())
	}
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerStatsRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/fixtures/stats", handler.GetFixtureStats)
}
