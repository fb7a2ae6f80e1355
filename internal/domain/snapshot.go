package domain

import "time"

// dashboard KPI block
type Metrics struct {
	CampaignsThisMonth       int `json:"campanhasDoMes"`
	ActiveCampaignsToday     int `json:"campanhasAtivasHoje"`
	ActiveStationsToday      int `json:"emissorasAtivasHoje"`
	ProjectedInsertionsToday int `json:"insercoesHoje"`
	ActiveCitiesToday        int `json:"cidadesAtivasHoje"`
}

// observability block exposed alongside the metrics
type DebugInfo struct {
	CampaignsProcessed   int     `json:"campanhasProcessadas"`
	RawInsertionsCounted int     `json:"insercoesReaisContadas"`
	ProjectionFactor     float64 `json:"fatorProjecao"`
	CoordinatesResolved  int     `json:"coordenadasObtidas"`
}

// MetricsSnapshot is the immutable result of one aggregation run. It is the
// unit of caching and the unit returned to clients.
type MetricsSnapshot struct {
	Metrics          Metrics           `json:"metricas"`
	Coordinates      []CoordinateEntry `json:"coordenadas"`
	RecentInsertions []Insertion       `json:"insercoesRecentes"`
	Debug            DebugInfo         `json:"debug"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// CacheEntry wraps a snapshot with its write time, keyed by business day.
type CacheEntry struct {
	Snapshot  MetricsSnapshot `json:"snapshot"`
	WrittenAt time.Time       `json:"writtenAt"`
}

// Age returns how long ago the entry was written.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}

// DateKey builds the cache key for the business day of t.
func DateKey(t time.Time) string {
	return "insercoes-" + t.Format("2006-01-02")
}
