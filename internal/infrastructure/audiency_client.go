package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"dashgo/internal/domain"
	"dashgo/pkg/logger"
	"dashgo/pkg/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// non-2xx upstream response
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.code)
}

// implements domain.CampaignAPI and domain.ExecutionAPI against the Audiency
// advertiser REST API
type AudiencyClient struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	pageSize    int
	maxPages    int
	pageLimiter *rate.Limiter
	execLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]byte]
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// creates a new Audiency client. pageDelay and execDelay pace the campaign
// pagination and the per-campaign execution lookups respectively.
func NewAudiencyClient(
	baseURL, apiKey string,
	timeout time.Duration,
	pageSize, maxPages int,
	pageDelay, execDelay time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *AudiencyClient {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "audiency",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state change")
		},
	})

	return &AudiencyClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     baseURL,
		apiKey:      apiKey,
		pageSize:    pageSize,
		maxPages:    maxPages,
		pageLimiter: rate.NewLimiter(rate.Every(pageDelay), 1),
		execLimiter: rate.NewLimiter(rate.Every(execDelay), 1),
		breaker:     breaker,
		logger:      log,
		metrics:     m,
	}
}

// FetchCampaigns pages through the month's campaigns, up to maxPages pages of
// pageSize records. A short page ends pagination naturally; a failing page
// aborts it and returns whatever was accumulated. Only a malformed payload is
// reported as an error.
func (c *AudiencyClient) FetchCampaigns(ctx context.Context, year int, month time.Month) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign

	for page := 1; page <= c.maxPages; page++ {
		url := fmt.Sprintf("%s/campaigns?page=%d&limit=%d&orderBy=name-asc&month=%02d&year=%d",
			c.baseURL, page, c.pageSize, int(month), year)

		body, err := c.get(ctx, "campaigns", url, c.pageLimiter)
		if err != nil {
			c.logger.WithContext(ctx).WithError(err).WithField("page", page).
				Warn("Campaign page fetch failed, returning accumulated pages")
			break
		}

		var pageData domain.CampaignPage
		if err := json.Unmarshal(body, &pageData); err != nil {
			c.metrics.RecordExternalAPIFailure("campaigns", "json_parse")
			return nil, fmt.Errorf("failed to parse campaigns page %d: %w", page, err)
		}

		lines := pageData.Data.Lines
		campaigns = append(campaigns, lines...)

		if len(lines) < c.pageSize {
			break
		}
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"year":      year,
		"month":     int(month),
		"campaigns": len(campaigns),
	}).Info("Fetched month campaigns")

	return campaigns, nil
}

// FetchExecutions returns the insertions reported for one campaign on one
// date. Single page; upstream call failures yield an empty list.
func (c *AudiencyClient) FetchExecutions(ctx context.Context, campaignID int64, date time.Time) ([]domain.Insertion, error) {
	day := date.Format("2006-01-02")

	// stationDate is passed twice; that is how the upstream contract has it
	url := fmt.Sprintf("%s/reports/common/advertiser-execution?page=1&limit=%d&countryId=1&campaignId=%d&stationDate=%s&stationDate=%s",
		c.baseURL, c.pageSize, campaignID, day, day)

	body, err := c.get(ctx, "executions", url, c.execLimiter)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("campaign_id", campaignID).
			Warn("Execution fetch failed, counting zero insertions")
		return nil, nil
	}

	var pageData domain.ExecutionPage
	if err := json.Unmarshal(body, &pageData); err != nil {
		c.metrics.RecordExternalAPIFailure("executions", "json_parse")
		return nil, fmt.Errorf("failed to parse executions for campaign %d: %w", campaignID, err)
	}

	insertions := make([]domain.Insertion, 0, len(pageData.Data.Lines))
	for _, line := range pageData.Data.Lines {
		insertions = append(insertions, line.Insertion())
	}

	return insertions, nil
}

// get performs one rate-limited, breaker-guarded GET and returns the body.
func (c *AudiencyClient) get(ctx context.Context, api, url string, limiter *rate.Limiter) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		c.metrics.RecordExternalAPIFailure(api, "rate_limit")
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("apiKey", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return nil, &statusError{code: resp.StatusCode}
		}

		return io.ReadAll(resp.Body)
	})

	duration := time.Since(start)

	if err != nil {
		var se *statusError
		switch {
		case errors.As(err, &se):
			c.metrics.RecordExternalAPICall(api, fmt.Sprintf("error_%d", se.code), duration)
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			c.metrics.RecordExternalAPIFailure(api, "breaker_open")
		default:
			c.metrics.RecordExternalAPIFailure(api, "network_error")
		}
		return nil, err
	}

	c.metrics.RecordExternalAPICall(api, "success", duration)
	return body, nil
}
