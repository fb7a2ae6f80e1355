package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dashgo/internal/domain"
	"dashgo/pkg/logger"
	"dashgo/pkg/metrics"

	"golang.org/x/time/rate"
)

// implements domain.Geocoder against the Geonames search API
type GeonamesClient struct {
	client    *http.Client
	baseURL   string
	username  string
	cityLimit int
	limiter   *rate.Limiter
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// creates a new Geonames client. delay paces the per-city lookups; cityLimit
// bounds the fan-out for one Resolve call.
func NewGeonamesClient(
	baseURL, username string,
	timeout time.Duration,
	delay time.Duration,
	cityLimit int,
	log *logger.Logger,
	m *metrics.Metrics,
) *GeonamesClient {
	return &GeonamesClient{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		username:  username,
		cityLimit: cityLimit,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    log,
		metrics:   m,
	}
}

// Resolve looks up coordinates for the first cityLimit cities, in the order
// given. Cities that cannot be resolved are absent from the result; Resolve
// itself never fails.
func (g *GeonamesClient) Resolve(ctx context.Context, cities []string) map[string]domain.Coordinate {
	resolved := make(map[string]domain.Coordinate)

	limit := len(cities)
	if limit > g.cityLimit {
		limit = g.cityLimit
	}

	for _, city := range cities[:limit] {
		if err := g.limiter.Wait(ctx); err != nil {
			g.metrics.RecordExternalAPIFailure("geonames", "rate_limit")
			break
		}

		coord, ok := g.lookup(ctx, city)
		if ok {
			resolved[city] = coord
		}
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"cities":   len(cities),
		"resolved": len(resolved),
	}).Info("Resolved city coordinates")

	return resolved
}

// lookup resolves one city. All failures are logged and reported as a miss.
func (g *GeonamesClient) lookup(ctx context.Context, city string) (domain.Coordinate, bool) {
	lookupURL := fmt.Sprintf("%s/searchJSON?q=%s&country=BR&maxRows=1&username=%s",
		g.baseURL, url.QueryEscape(city), url.QueryEscape(g.username))

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		g.metrics.RecordExternalAPIFailure("geonames", "request_creation")
		return domain.Coordinate{}, false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.RecordExternalAPIFailure("geonames", "network_error")
		g.logger.WithContext(ctx).WithError(err).WithField("city", city).Warn("Geocoding lookup failed")
		return domain.Coordinate{}, false
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		g.metrics.RecordExternalAPICall("geonames", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return domain.Coordinate{}, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.metrics.RecordExternalAPIFailure("geonames", "read_body")
		return domain.Coordinate{}, false
	}

	var page domain.GeonamesPage
	if err := json.Unmarshal(body, &page); err != nil {
		g.metrics.RecordExternalAPIFailure("geonames", "json_parse")
		g.logger.WithContext(ctx).WithError(err).WithField("city", city).Warn("Malformed geocoding response")
		return domain.Coordinate{}, false
	}

	if len(page.Geonames) == 0 {
		g.metrics.RecordExternalAPICall("geonames", "empty", duration)
		return domain.Coordinate{}, false
	}

	lat, latErr := strconv.ParseFloat(page.Geonames[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(page.Geonames[0].Lng, 64)
	if latErr != nil || lngErr != nil {
		g.metrics.RecordExternalAPIFailure("geonames", "coordinate_parse")
		return domain.Coordinate{}, false
	}

	g.metrics.RecordExternalAPICall("geonames", "success", duration)
	return domain.Coordinate{Lat: lat, Lng: lng}, true
}
