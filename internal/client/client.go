package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/citysky/weather-lookup-service/internal/models"
	"github.com/citysky/weather-lookup-service/internal/observability"
)

// WeatherClient resolves a city name to a LookupOutcome. Implementations must
// not let upstream failures escape as errors: every outcome, including
// timeouts, is encoded in the result.
type WeatherClient interface {
	Lookup(ctx context.Context, city string) models.LookupOutcome
}

var ErrInvalidAPIKey = errors.New("invalid API key")

// DefaultLookupTimeout is the fixed upstream budget. A timeout is detected
// only after this interval elapses; the in-flight call is not pre-emptively
// cancelled earlier.
const DefaultLookupTimeout = 8 * time.Second

// OpenWeatherClient calls the OpenWeatherMap current-conditions endpoint.
// Exactly one upstream call per Lookup invocation; no retries.
type OpenWeatherClient struct {
	apiKey  string
	apiURL  string
	units   string
	timeout time.Duration
	logger  *zap.Logger
	client  *http.Client
}

func NewOpenWeatherClient(apiKey, apiURL, units string, timeout time.Duration, logger *zap.Logger) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if units == "" {
		units = "metric"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		units:   units,
		timeout: timeout,
		logger:  logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type openWeatherResponse struct {
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	DT int64 `json:"dt"`
}

// Lookup performs one upstream call and maps every possible result to an
// outcome: 200 with weather fields on success, the upstream status verbatim on
// an error response or a body without a main block, 408 when the fixed timeout
// elapses, 502 when the provider is unreachable.
func (c *OpenWeatherClient) Lookup(ctx context.Context, city string) models.LookupOutcome {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, city)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		c.logger.Error("build upstream request", zap.String("city", city), zap.Error(err))
		return models.Failure(http.StatusInternalServerError)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		if isTimeout(err) {
			observability.UpstreamCallsTotal.WithLabelValues("timeout").Inc()
			observability.UpstreamCallDuration.WithLabelValues("timeout").Observe(duration)
			c.logger.Error("upstream timeout", zap.String("city", city), zap.Duration("budget", c.timeout))
			return models.Failure(http.StatusRequestTimeout)
		}
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		observability.UpstreamCallDuration.WithLabelValues("error").Observe(duration)
		c.logger.Error("upstream request failed", zap.String("city", city), zap.Error(err))
		return models.Failure(http.StatusBadGateway)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(status).Inc()
	observability.UpstreamCallDuration.WithLabelValues(status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("upstream error response", zap.String("city", city), zap.Int("status", resp.StatusCode))
		return models.Failure(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("read upstream body", zap.String("city", city), zap.Error(err))
		return models.Failure(http.StatusBadGateway)
	}

	var apiResp openWeatherResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		c.logger.Error("parse upstream body", zap.String("city", city), zap.Error(err))
		return models.Failure(http.StatusBadGateway)
	}

	if apiResp.Main == nil {
		// The provider answered without a weather block; report its status
		// verbatim, with no weather fields.
		return models.Failure(resp.StatusCode)
	}

	lastUpdate := time.Unix(apiResp.DT, 0).Format(time.DateTime)
	return models.Success(apiResp.Main.Temp, apiResp.Main.FeelsLike, lastUpdate)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}
