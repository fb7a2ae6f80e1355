package delivery

import (
	"net/http"
	"strconv"
	"time"

	"dashgo/internal/domain"
	"dashgo/internal/usecase"
	"dashgo/pkg/logger"
	"dashgo/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// cacheControl is the public caching directive carried by every dashboard
// response so intermediary caches can shortcut repeated polling.
const cacheControl = "public, max-age=60"

// handles HTTP requests
type HTTPHandlers struct {
	dashboard *usecase.DashboardService
	cache     domain.SnapshotCache
	freshness time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	dashboard *usecase.DashboardService,
	cache domain.SnapshotCache,
	freshness time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		dashboard: dashboard,
		cache:     cache,
		freshness: freshness,
		logger:    log,
		metrics:   m,
	}
}

// wire shape consumed by the dashboard poller
type dashboardResponse struct {
	Success          bool                     `json:"success"`
	Timestamp        string                   `json:"timestamp"`
	FromCache        bool                     `json:"fromCache"`
	CacheAge         int64                    `json:"cacheAge"`
	Metrics          domain.Metrics           `json:"metricas"`
	Coordinates      []domain.CoordinateEntry `json:"coordenadas"`
	RecentInsertions []domain.Insertion       `json:"insercoesRecentes"`
	Debug            domain.DebugInfo         `json:"debug"`
}

func newDashboardResponse(snapshot *domain.MetricsSnapshot, fromCache bool, cacheAge time.Duration) dashboardResponse {
	return dashboardResponse{
		Success:          true,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		FromCache:        fromCache,
		CacheAge:         int64(cacheAge.Seconds()),
		Metrics:          snapshot.Metrics,
		Coordinates:      snapshot.Coordinates,
		RecentInsertions: snapshot.RecentInsertions,
		Debug:            snapshot.Debug,
	}
}

// GetDashboard serves today's metrics snapshot: cached when fresh, freshly
// aggregated otherwise. refresh=1 bypasses the freshness check.
func (h *HTTPHandlers) GetDashboard(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	now := time.Now()
	key := domain.DateKey(now)

	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	if !refresh {
		entry, err := h.cache.Get(ctx, key)
		switch {
		case err != nil:
			// unavailable cache is just a miss
			h.metrics.RecordCacheRead("error")
			log.WithError(err).Warn("Snapshot cache read failed")
		case entry == nil:
			h.metrics.RecordCacheRead("miss")
		default:
			age := entry.Age(now)
			if age < h.freshness {
				h.metrics.RecordCacheRead("hit")
				log.WithField("cache_age", age).Info("Serving cached snapshot")

				c.Header("X-Cache-Status", "HIT")
				c.Header("Cache-Control", cacheControl)
				c.JSON(http.StatusOK, newDashboardResponse(&entry.Snapshot, true, age))
				return
			}
			h.metrics.RecordCacheRead("stale")
		}
	}

	snapshot, err := h.dashboard.BuildSnapshot(ctx, now)
	if err != nil {
		log.WithError(err).Error("Aggregation run failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if err := h.cache.Put(ctx, key, snapshot); err != nil {
		// a failed write only costs the next request a re-aggregation
		h.metrics.RecordCacheWrite("failed")
		log.WithError(err).Warn("Snapshot cache write failed")
	} else {
		h.metrics.RecordCacheWrite("success")
	}

	c.Header("X-Cache-Status", "MISS")
	c.Header("Cache-Control", cacheControl)
	c.JSON(http.StatusOK, newDashboardResponse(snapshot, false, 0))
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "dashgo",
		"version":    "1.0.0",
		"request_id": requestID,
	})
}
