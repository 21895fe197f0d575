package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netedge_http_requests_total",
		Help: "API requests by method, route and response status",
	}, []string{"method", "route", "status"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netedge_http_request_duration_seconds",
		Help:    "API request latency by method and route",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	apiInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netedge_http_requests_in_flight",
		Help: "API requests currently being served",
	})
)

// Metrics records request counts and latency per chi route pattern, so ids
// in the URL do not create new series. Unrouted requests count as "unmatched".
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		apiRequests.WithLabelValues(r.Method, route, strconv.Itoa(responseStatus(ww))).Inc()
		apiLatency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
	})
}

// responseStatus reports 200 for handlers that wrote a body without an
// explicit status.
func responseStatus(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
