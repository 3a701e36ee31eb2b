package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/citysky/weather-lookup-service/internal/lifecycle"
	"github.com/citysky/weather-lookup-service/internal/observability"
	"github.com/citysky/weather-lookup-service/internal/service"
	"github.com/citysky/weather-lookup-service/internal/store"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	lookups *service.LookupService
	store   *store.Store
	logger  *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(lookups *service.LookupService, st *store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		lookups: lookups,
		store:   st,
		logger:  logger,
	}
}

// GetWeather handles GET /weather/{city}. The transport status is always 200:
// failures are encoded in the payload status field, which is what clients of
// this endpoint read. City names are free-form; any slash left in the path
// segment is stripped, not decoded.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.ReplaceAll(mux.Vars(r)["city"], "/", "")

	outcome, err := h.lookups.CityWeather(r.Context(), city)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// GetRequestCount handles GET /admin/request_count.
func (h *Handler) GetRequestCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.RequestCount()
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// GetSuccessfulRequestCount handles GET /admin/successful_request_count.
func (h *Handler) GetSuccessfulRequestCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.SuccessfulRequestCount()
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// GetLastHourRequests handles GET /admin/last_hour_requests. Each entry is a
// [city, "YYYY-MM-DD HH:MM:SS"] pair.
func (h *Handler) GetLastHourRequests(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.LastHourRequests()
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	requests := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		requests = append(requests, []interface{}{rec.City, rec.At})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// GetCityRequestCount handles GET /admin/city_request_count. Each entry is a
// [city, count] pair; only cities with successful lookups appear.
func (h *Handler) GetCityRequestCount(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CityRequestCount()
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	requests := make([][]interface{}, 0, len(counts))
	for _, cc := range counts {
		requests = append(requests, []interface{}{cc.City, cc.Count})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PostSignIn handles POST /admin/signin. The body is decoded as a plain JSON
// object; credentials never pass through anything executable. An unknown user
// answers exactly like a wrong password.
func (h *Handler) PostSignIn(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)
	logger.Info("admin login attempt")

	var creds signInRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		return
	}

	granted := false
	stored, err := h.store.AdminPassword(creds.Username)
	switch {
	case err == nil:
		granted = stored == creds.Password
	case errors.Is(err, store.ErrUnknownUser):
	default:
		writeStorageError(w, r, err)
		return
	}

	if granted {
		observability.SignInAttemptsTotal.WithLabelValues("granted").Inc()
	} else {
		observability.SignInAttemptsTotal.WithLabelValues("denied").Inc()
		logger.Warn("admin login denied", zap.String("username", creds.Username))
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"auth": granted})
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := make(map[string]string)

	switch {
	case lifecycle.IsShuttingDown():
		status = "shutting-down"
		statusCode = http.StatusServiceUnavailable
	default:
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			checks["storage"] = "unhealthy"
		} else {
			checks["storage"] = "healthy"
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "weather-lookup-service",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFound answers every unmatched route or method with a flat error body.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("unmatched route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
}

// requestLogger returns the correlation-scoped logger when middleware provided
// one, the handler's own logger otherwise.
func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value("logger").(*zap.Logger); ok && l != nil {
		return l
	}
	return h.logger
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeStorageError answers 500 for a failed storage operation and logs the
// underlying error. Storage failures are never silently swallowed.
func writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusInternalServerError, "STORAGE_FAILURE", "storage operation failed")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Error("storage error", zap.Error(err))
	}
}
