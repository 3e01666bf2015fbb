// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/playview/pkg/metrics"
)

// MetricsMiddleware wraps a handler to record request counts, latency and
// error classes under endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)

		if rec.status < http.StatusBadRequest {
			return
		}
		kind, severity := classifyStatus(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
		metrics.RecordErrorByType(kind, severity)
		metrics.RecordErrorLatency("http", kind, ms)
	}
}

// classifyStatus maps an error status to a metric label and severity.
func classifyStatus(status int) (kind, severity string) {
	switch {
	case status == http.StatusBadGateway:
		return "upstream_error", "high"
	case status >= http.StatusInternalServerError:
		return "server_error", "high"
	case status == http.StatusNotFound:
		return "not_found", "medium"
	case status == http.StatusConflict:
		return "conflict", "low"
	case status >= http.StatusBadRequest:
		return "client_error", "medium"
	default:
		return "unknown", "low"
	}
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
