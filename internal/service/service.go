package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/citysky/weather-lookup-service/internal/client"
	"github.com/citysky/weather-lookup-service/internal/models"
	"github.com/citysky/weather-lookup-service/internal/observability"
)

// AuditLog is the slice of the storage layer the lookup flow writes to.
type AuditLog interface {
	SaveRequest(city string, at time.Time) (int64, error)
	SaveResponse(requestID int64, outcome models.LookupOutcome) error
}

// LookupService orchestrates one weather lookup. The request row is written
// before the upstream call so every attempt is auditable even when the
// provider fails or hangs; the outcome row follows once the call resolves.
type LookupService struct {
	client client.WeatherClient
	audit  AuditLog
}

func NewLookupService(client client.WeatherClient, audit AuditLog) *LookupService {
	return &LookupService{
		client: client,
		audit:  audit,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// CityWeather records the pending request, performs the upstream lookup, and
// records the outcome. The returned error is always a storage error; upstream
// failures never surface as errors, they are encoded in the outcome itself.
func (s *LookupService) CityWeather(ctx context.Context, city string) (models.LookupOutcome, error) {
	logger := loggerFromContext(ctx)

	requestID, err := s.audit.SaveRequest(city, time.Now())
	if err != nil {
		return models.LookupOutcome{}, fmt.Errorf("recording request for %q: %w", city, err)
	}

	outcome := s.client.Lookup(ctx, city)
	observability.LookupsTotal.WithLabelValues(outcomeLabel(outcome)).Inc()
	if logger != nil {
		logger.Debug("lookup resolved",
			zap.String("city", city),
			zap.Int64("request_id", requestID),
			zap.Int("status", outcome.Status))
	}

	if err := s.audit.SaveResponse(requestID, outcome); err != nil {
		// The lookup already resolved on its own terms; a lost audit row is
		// reported but does not change what the caller sees.
		observability.AuditWriteFailuresTotal.Inc()
		if logger != nil {
			logger.Error("recording response", zap.Int64("request_id", requestID), zap.Error(err))
		}
	}

	return outcome, nil
}

func outcomeLabel(outcome models.LookupOutcome) string {
	switch {
	case outcome.OK():
		return "success"
	case outcome.Status == http.StatusRequestTimeout:
		return "timeout"
	default:
		return "failure"
	}
}
