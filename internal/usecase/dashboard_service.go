package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"dashgo/internal/domain"
	"dashgo/pkg/logger"
	"dashgo/pkg/metrics"
)

// DashboardService runs the aggregation pipeline: month campaigns, per-sample
// execution reports, coordinate resolution, projection, snapshot assembly.
type DashboardService struct {
	campaigns   domain.CampaignAPI
	executions  domain.ExecutionAPI
	geocoder    domain.Geocoder
	logger      *logger.Logger
	metrics     *metrics.Metrics
	sampleLimit int
	recentLimit int
}

// creates a new dashboard service
func NewDashboardService(
	campaigns domain.CampaignAPI,
	executions domain.ExecutionAPI,
	geocoder domain.Geocoder,
	log *logger.Logger,
	m *metrics.Metrics,
	sampleLimit, recentLimit int,
) *DashboardService {
	return &DashboardService{
		campaigns:   campaigns,
		executions:  executions,
		geocoder:    geocoder,
		logger:      log,
		metrics:     m,
		sampleLimit: sampleLimit,
		recentLimit: recentLimit,
	}
}

// BuildSnapshot produces one immutable metrics snapshot for the given
// business day. Partial upstream failures degrade to zero contributions;
// only malformed payloads fail the run.
func (s *DashboardService) BuildSnapshot(ctx context.Context, day time.Time) (*domain.MetricsSnapshot, error) {
	start := time.Now()
	s.metrics.IncAggregationsInProgress()
	defer s.metrics.DecAggregationsInProgress()

	log := s.logger.WithContext(ctx)
	log.WithField("day", day.Format("2006-01-02")).Info("Starting aggregation run")

	// 1. month campaigns
	monthCampaigns, err := s.campaigns.FetchCampaigns(ctx, day.Year(), day.Month())
	if err != nil {
		s.metrics.RecordAggregationRun("failed", time.Since(start))
		return nil, fmt.Errorf("failed to fetch campaigns: %w", err)
	}

	// 2. campaigns whose interval covers today
	active := FilterActiveOn(monthCampaigns, day)

	// 3. bounded execution sample, upstream order preserved
	sample := active
	if len(sample) > s.sampleLimit {
		sample = sample[:s.sampleLimit]
	}
	s.metrics.RecordCampaignsSampled(len(sample))

	// 4. accumulate insertions and distinct stations/cities
	insertions, stations, cities, err := s.collectInsertions(ctx, sample, day)
	if err != nil {
		s.metrics.RecordAggregationRun("failed", time.Since(start))
		return nil, err
	}
	s.metrics.RecordInsertionsCollected(len(insertions))

	// 5. most-recent-hour-first, bounded
	SortRecentFirst(insertions)
	recent := insertions
	if len(recent) > s.recentLimit {
		recent = recent[:s.recentLimit]
	}
	if recent == nil {
		// the poller expects an array, not null
		recent = []domain.Insertion{}
	}

	// 6. project the sampled count up to the active population
	factor := ProjectionFactor(len(active), len(sample))
	projected := ProjectInsertions(len(insertions), factor)

	// 7. best-effort coordinates for the distinct cities
	resolved := s.geocoder.Resolve(ctx, cities)
	coordinates := CoordinateEntries(cities, resolved)

	// 8. assemble
	snapshot := &domain.MetricsSnapshot{
		Metrics: domain.Metrics{
			CampaignsThisMonth:       len(monthCampaigns),
			ActiveCampaignsToday:     len(active),
			ActiveStationsToday:      len(stations),
			ProjectedInsertionsToday: projected,
			ActiveCitiesToday:        len(cities),
		},
		Coordinates:      coordinates,
		RecentInsertions: recent,
		Debug: domain.DebugInfo{
			CampaignsProcessed:   len(sample),
			RawInsertionsCounted: len(insertions),
			ProjectionFactor:     factor,
			CoordinatesResolved:  len(coordinates),
		},
		GeneratedAt: time.Now().UTC(),
	}

	duration := time.Since(start)
	s.metrics.RecordAggregationRun("success", duration)

	log.WithFields(map[string]any{
		"duration":          duration,
		"campaigns_month":   len(monthCampaigns),
		"campaigns_active":  len(active),
		"campaigns_sampled": len(sample),
		"insertions_raw":    len(insertions),
		"projection_factor": factor,
		"cities":            len(cities),
		"coordinates":       len(coordinates),
	}).Info("Aggregation run completed")

	return snapshot, nil
}

// collectInsertions fetches today's executions for each sampled campaign and
// accumulates all insertions plus the distinct station and city names, cities
// in first-seen order.
func (s *DashboardService) collectInsertions(ctx context.Context, sample []domain.Campaign, day time.Time) ([]domain.Insertion, map[string]struct{}, []string, error) {
	var insertions []domain.Insertion
	stations := make(map[string]struct{})
	citySet := make(map[string]struct{})
	var cities []string

	for _, campaign := range sample {
		items, err := s.executions.FetchExecutions(ctx, campaign.ID, day)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to fetch executions: %w", err)
		}

		for _, item := range items {
			insertions = append(insertions, item)

			if item.StationName != "" {
				stations[item.StationName] = struct{}{}
			}
			if item.City != "" {
				if _, seen := citySet[item.City]; !seen {
					citySet[item.City] = struct{}{}
					cities = append(cities, item.City)
				}
			}
		}

		if len(items) > 0 {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"campaign_id": campaign.ID,
				"insertions":  len(items),
				"last_hour":   items[len(items)-1].Hour,
			}).Debug("Collected campaign executions")
		}
	}

	return insertions, stations, cities, nil
}

// FilterActiveOn keeps the campaigns whose closed date interval covers day.
func FilterActiveOn(campaigns []domain.Campaign, day time.Time) []domain.Campaign {
	var active []domain.Campaign
	for _, c := range campaigns {
		if c.ActiveOn(day) {
			active = append(active, c)
		}
	}
	return active
}

// SortRecentFirst orders insertions by hour descending. Hours are zero-padded
// HH:MM strings, so lexicographic comparison is chronological; an empty hour
// sorts as midnight.
func SortRecentFirst(insertions []domain.Insertion) {
	sort.SliceStable(insertions, func(i, j int) bool {
		return hourOrMidnight(insertions[i].Hour) > hourOrMidnight(insertions[j].Hour)
	})
}

func hourOrMidnight(hour string) string {
	if hour == "" {
		return "00:00"
	}
	return hour
}

// ProjectionFactor scales a sampled count up to the active population.
// A zero sample yields factor 0, which projects a count of 0.
func ProjectionFactor(activeCount, sampleSize int) float64 {
	if sampleSize == 0 {
		return 0
	}
	return float64(activeCount) / float64(sampleSize)
}

// ProjectInsertions estimates the full-population insertion count.
func ProjectInsertions(rawCount int, factor float64) int {
	return int(math.Round(float64(rawCount) * factor))
}

// CoordinateEntries builds the map pin list from the resolution result,
// preserving city order and dropping unresolved cities.
func CoordinateEntries(cities []string, resolved map[string]domain.Coordinate) []domain.CoordinateEntry {
	entries := make([]domain.CoordinateEntry, 0, len(resolved))
	for _, city := range cities {
		coord, ok := resolved[city]
		if !ok {
			continue
		}
		entries = append(entries, domain.CoordinateEntry{
			City: city,
			Lat:  coord.Lat,
			Lng:  coord.Lng,
		})
	}
	return entries
}
