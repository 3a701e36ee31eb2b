package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/citysky/weather-lookup-service/internal/observability"
)

// NewRouter wires the full routing table: the weather lookup, the four admin
// read queries, admin sign-in, health, metrics, and a catch-all 404. Pass a
// nil limiter to disable rate limiting on the weather subtree.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/request_count", h.GetRequestCount).Methods("GET")
	admin.HandleFunc("/successful_request_count", h.GetSuccessfulRequestCount).Methods("GET")
	admin.HandleFunc("/last_hour_requests", h.GetLastHourRequests).Methods("GET")
	admin.HandleFunc("/city_request_count", h.GetCityRequestCount).Methods("GET")
	admin.HandleFunc("/signin", h.PostSignIn).Methods("POST")

	weather := router.PathPrefix("/weather").Subrouter()
	weather.Use(RateLimitMiddleware(limiter))
	// The city pattern swallows the rest of the path; the handler strips any
	// remaining slashes rather than treating them as segments.
	weather.HandleFunc("/{city:.*}", h.GetWeather).Methods("GET")

	// mux skips router middleware for unmatched requests, so the catch-all
	// handlers log with the handler's own logger.
	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.NotFound)

	return router
}
