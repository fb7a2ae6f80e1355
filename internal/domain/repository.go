package domain

import (
	"context"
	"time"
)

// interface for the campaigns API
type CampaignAPI interface {
	// FetchCampaigns returns the campaigns reported for the given calendar
	// month. A failing page aborts pagination and returns what was
	// accumulated; only a malformed payload is an error.
	FetchCampaigns(ctx context.Context, year int, month time.Month) ([]Campaign, error)
}

// interface for the execution report API
type ExecutionAPI interface {
	// FetchExecutions returns the insertions reported for one campaign on
	// one date. Upstream call failures yield an empty list, not an error.
	FetchExecutions(ctx context.Context, campaignID int64, date time.Time) ([]Insertion, error)
}

// interface for city coordinate lookups
type Geocoder interface {
	// Resolve maps city names to coordinates. Best effort: cities that
	// cannot be resolved are absent from the result. Never fails.
	Resolve(ctx context.Context, cities []string) map[string]Coordinate
}

// interface for the per-day snapshot store
type SnapshotCache interface {
	// Get returns the entry for the key, or nil when absent.
	Get(ctx context.Context, key string) (*CacheEntry, error)
	// Put overwrites the entry for the key, stamped with the current time.
	Put(ctx context.Context, key string, snapshot *MetricsSnapshot) error
}
