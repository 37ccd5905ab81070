package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brisa-labs/media-gateway/internal/circuitbreaker"
	"github.com/brisa-labs/media-gateway/internal/logging"
	"github.com/brisa-labs/media-gateway/internal/metrics"
	"github.com/brisa-labs/media-gateway/upstreams"
)

// extractHandler dispatches GET /api/{upstream} to the matching integration.
// Query parameters are passed through to the extractor unchanged.
func extractHandler(registry *upstreams.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "upstream")
		extractor, ok := registry.Get(name)
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Serviço não encontrado: "+name)
			return
		}

		start := time.Now()
		res, err := extractor.Extract(r.Context(), r.URL.Query())
		elapsed := time.Since(start)
		metrics.UpstreamDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		if err != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues(name, upstreamResult(err)).Inc()
			logging.FromContext(r.Context()).Warn("upstream extraction failed",
				"upstream", name,
				"error", err,
			)
			switch {
			case errors.Is(err, upstreams.ErrBadInput):
				writeAPIError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, circuitbreaker.ErrCircuitOpen):
				writeAPIError(w, http.StatusServiceUnavailable, "Serviço temporariamente indisponível. Tente novamente em instantes.")
			default:
				writeAPIError(w, http.StatusBadGateway, "Falha ao consultar serviço externo")
			}
			return
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(name, "success").Inc()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

func upstreamResult(err error) string {
	switch {
	case errors.Is(err, upstreams.ErrBadInput):
		return "bad_input"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "error"
	}
}

// writeAPIError writes the standard JSON failure body.
func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
