package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"dashgo/internal/domain"
	"dashgo/pkg/logger"
	"dashgo/pkg/metrics"
)

// one metrics registry per test binary; promauto registers globally
var testMetrics = metrics.New()

func testLogger() *logger.Logger {
	return logger.New("error")
}

type fakeCampaignAPI struct {
	campaigns []domain.Campaign
	err       error
}

func (f *fakeCampaignAPI) FetchCampaigns(ctx context.Context, year int, month time.Month) ([]domain.Campaign, error) {
	return f.campaigns, f.err
}

type fakeExecutionAPI struct {
	byCampaign map[int64][]domain.Insertion
	err        error
	queried    []int64
}

func (f *fakeExecutionAPI) FetchExecutions(ctx context.Context, campaignID int64, date time.Time) ([]domain.Insertion, error) {
	f.queried = append(f.queried, campaignID)
	if f.err != nil {
		return nil, f.err
	}
	return f.byCampaign[campaignID], nil
}

type fakeGeocoder struct {
	coords map[string]domain.Coordinate
}

func (f *fakeGeocoder) Resolve(ctx context.Context, cities []string) map[string]domain.Coordinate {
	resolved := make(map[string]domain.Coordinate)
	for _, city := range cities {
		if coord, ok := f.coords[city]; ok {
			resolved[city] = coord
		}
	}
	return resolved
}

func activeCampaigns(n int) []domain.Campaign {
	campaigns := make([]domain.Campaign, 0, n)
	for i := 0; i < n; i++ {
		campaigns = append(campaigns, domain.Campaign{
			ID:        int64(i + 1),
			Name:      fmt.Sprintf("Campaign %d", i+1),
			StartDate: "2025-08-01",
			EndDate:   "2025-08-31",
		})
	}
	return campaigns
}

func insertions(n int, city string) []domain.Insertion {
	items := make([]domain.Insertion, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.Insertion{
			StationName: fmt.Sprintf("Station %d", i%3),
			Hour:        fmt.Sprintf("%02d:%02d", i%24, i%60),
			City:        city,
		})
	}
	return items
}

func newService(c domain.CampaignAPI, e domain.ExecutionAPI, g domain.Geocoder, sampleLimit int) *DashboardService {
	return NewDashboardService(c, e, g, testLogger(), testMetrics, sampleLimit, 50)
}

func testDay() time.Time {
	return time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC)
}

func TestBuildSnapshotFullSampleProjection(t *testing.T) {
	// 3 active campaigns, all sampled, 30 raw insertions: factor 1.0
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{
		1: insertions(10, "Manaus"),
		2: insertions(10, "Manaus"),
		3: insertions(10, "Manaus"),
	}}
	svc := newService(&fakeCampaignAPI{campaigns: activeCampaigns(3)}, execs, &fakeGeocoder{}, 10)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Metrics.ProjectedInsertionsToday != 30 {
		t.Errorf("projected: got %d, want 30", snapshot.Metrics.ProjectedInsertionsToday)
	}
	if snapshot.Debug.ProjectionFactor != 1.0 {
		t.Errorf("factor: got %v, want 1.0", snapshot.Debug.ProjectionFactor)
	}
	if snapshot.Debug.RawInsertionsCounted != 30 {
		t.Errorf("raw: got %d, want 30", snapshot.Debug.RawInsertionsCounted)
	}
}

func TestBuildSnapshotScalesUpToActivePopulation(t *testing.T) {
	// 9 active campaigns, sample capped at 3, 30 raw insertions: projected 90
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{
		1: insertions(10, "Recife"),
		2: insertions(10, "Recife"),
		3: insertions(10, "Recife"),
	}}
	svc := newService(&fakeCampaignAPI{campaigns: activeCampaigns(9)}, execs, &fakeGeocoder{}, 3)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Metrics.ProjectedInsertionsToday != 90 {
		t.Errorf("projected: got %d, want 90", snapshot.Metrics.ProjectedInsertionsToday)
	}
	if snapshot.Debug.CampaignsProcessed != 3 {
		t.Errorf("sample size: got %d, want 3", snapshot.Debug.CampaignsProcessed)
	}
	if len(execs.queried) != 3 {
		t.Errorf("campaigns queried: got %d, want 3", len(execs.queried))
	}
}

func TestBuildSnapshotSampleKeepsUpstreamOrder(t *testing.T) {
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{}}
	svc := newService(&fakeCampaignAPI{campaigns: activeCampaigns(5)}, execs, &fakeGeocoder{}, 3)

	if _, err := svc.BuildSnapshot(context.Background(), testDay()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int64{1, 2, 3}
	if len(execs.queried) != len(want) {
		t.Fatalf("queried: got %v, want %v", execs.queried, want)
	}
	for i, id := range want {
		if execs.queried[i] != id {
			t.Errorf("queried[%d]: got %d, want %d", i, execs.queried[i], id)
		}
	}
}

func TestBuildSnapshotEmptyCampaignListYieldsZeroes(t *testing.T) {
	// the campaign fetcher returns what it accumulated before a page failed,
	// here nothing; every metric degrades to zero without an error
	svc := newService(&fakeCampaignAPI{}, &fakeExecutionAPI{}, &fakeGeocoder{}, 10)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := snapshot.Metrics
	if m.CampaignsThisMonth != 0 || m.ActiveCampaignsToday != 0 || m.ActiveStationsToday != 0 ||
		m.ProjectedInsertionsToday != 0 || m.ActiveCitiesToday != 0 {
		t.Errorf("metrics not all zero: %+v", m)
	}
	if snapshot.Debug.ProjectionFactor != 0 {
		t.Errorf("factor: got %v, want 0", snapshot.Debug.ProjectionFactor)
	}
}

func TestBuildSnapshotCampaignFetchErrorPropagates(t *testing.T) {
	svc := newService(&fakeCampaignAPI{err: errors.New("malformed payload")}, &fakeExecutionAPI{}, &fakeGeocoder{}, 10)

	if _, err := svc.BuildSnapshot(context.Background(), testDay()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildSnapshotExecutionErrorPropagates(t *testing.T) {
	svc := newService(
		&fakeCampaignAPI{campaigns: activeCampaigns(1)},
		&fakeExecutionAPI{err: errors.New("malformed payload")},
		&fakeGeocoder{},
		10,
	)

	if _, err := svc.BuildSnapshot(context.Background(), testDay()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildSnapshotUnresolvedCityStillCounted(t *testing.T) {
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{
		1: {
			{StationName: "A", Hour: "10:00", City: "Manaus", Region: "AM"},
			{StationName: "B", Hour: "11:00", City: "Curitiba", Region: "PR"},
		},
	}}
	geo := &fakeGeocoder{coords: map[string]domain.Coordinate{
		"Curitiba": {Lat: -25.43, Lng: -49.27},
	}}
	svc := newService(&fakeCampaignAPI{campaigns: activeCampaigns(1)}, execs, geo, 10)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Metrics.ActiveCitiesToday != 2 {
		t.Errorf("active cities: got %d, want 2", snapshot.Metrics.ActiveCitiesToday)
	}
	if len(snapshot.Coordinates) != 1 {
		t.Fatalf("coordinates: got %d, want 1", len(snapshot.Coordinates))
	}
	if snapshot.Coordinates[0].City != "Curitiba" {
		t.Errorf("coordinate city: got %q", snapshot.Coordinates[0].City)
	}
	if snapshot.Debug.CoordinatesResolved != 1 {
		t.Errorf("coordinates resolved: got %d, want 1", snapshot.Debug.CoordinatesResolved)
	}
}

func TestBuildSnapshotCoordinatesHaveNoDuplicates(t *testing.T) {
	// the same city across campaigns yields one coordinate entry
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{
		1: {{StationName: "A", Hour: "10:00", City: "Salvador", Region: "BA"}},
		2: {{StationName: "B", Hour: "11:00", City: "Salvador", Region: "BA"}},
	}}
	geo := &fakeGeocoder{coords: map[string]domain.Coordinate{
		"Salvador": {Lat: -12.97, Lng: -38.50},
	}}
	svc := newService(&fakeCampaignAPI{campaigns: activeCampaigns(2)}, execs, geo, 10)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot.Coordinates) != 1 {
		t.Errorf("coordinates: got %d, want 1", len(snapshot.Coordinates))
	}
	if snapshot.Metrics.ActiveCitiesToday != 1 {
		t.Errorf("active cities: got %d, want 1", snapshot.Metrics.ActiveCitiesToday)
	}
}

func TestBuildSnapshotRecentInsertionsSortedAndBounded(t *testing.T) {
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{
		1: insertions(60, "Fortaleza"),
	}}
	svc := newService(&fakeCampaignAPI{campaigns: activeCampaigns(1)}, execs, &fakeGeocoder{}, 10)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recent := snapshot.RecentInsertions
	if len(recent) != 50 {
		t.Fatalf("recent: got %d, want 50", len(recent))
	}
	if !sort.SliceIsSorted(recent, func(i, j int) bool {
		return recent[i].Hour > recent[j].Hour
	}) {
		t.Error("recent insertions not sorted by hour descending")
	}
}

func TestBuildSnapshotFiltersInactiveCampaigns(t *testing.T) {
	campaigns := []domain.Campaign{
		{ID: 1, StartDate: "2025-08-01", EndDate: "2025-08-31"},
		{ID: 2, StartDate: "2025-08-01", EndDate: "2025-08-10"}, // ended before the day
		{ID: 3, StartDate: "2025-08-20", EndDate: "2025-08-31"}, // starts after the day
	}
	execs := &fakeExecutionAPI{byCampaign: map[int64][]domain.Insertion{}}
	svc := newService(&fakeCampaignAPI{campaigns: campaigns}, execs, &fakeGeocoder{}, 10)

	snapshot, err := svc.BuildSnapshot(context.Background(), testDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Metrics.CampaignsThisMonth != 3 {
		t.Errorf("month campaigns: got %d, want 3", snapshot.Metrics.CampaignsThisMonth)
	}
	if snapshot.Metrics.ActiveCampaignsToday != 1 {
		t.Errorf("active today: got %d, want 1", snapshot.Metrics.ActiveCampaignsToday)
	}
	if len(execs.queried) != 1 || execs.queried[0] != 1 {
		t.Errorf("queried: got %v, want [1]", execs.queried)
	}
}

func TestProjectionFactor(t *testing.T) {
	if got := ProjectionFactor(9, 3); got != 3.0 {
		t.Errorf("ProjectionFactor(9, 3): got %v, want 3.0", got)
	}
	if got := ProjectionFactor(3, 3); got != 1.0 {
		t.Errorf("ProjectionFactor(3, 3): got %v, want 1.0", got)
	}
	if got := ProjectionFactor(5, 0); got != 0 {
		t.Errorf("ProjectionFactor(5, 0): got %v, want 0", got)
	}
}

func TestProjectInsertionsRounds(t *testing.T) {
	// 10 * 7/3 = 23.33 rounds down, 11 * 7/3 = 25.67 rounds up
	if got := ProjectInsertions(10, ProjectionFactor(7, 3)); got != 23 {
		t.Errorf("got %d, want 23", got)
	}
	if got := ProjectInsertions(11, ProjectionFactor(7, 3)); got != 26 {
		t.Errorf("got %d, want 26", got)
	}
	if got := ProjectInsertions(30, 0); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestSortRecentFirstEmptyHourSortsAsMidnight(t *testing.T) {
	items := []domain.Insertion{
		{StationName: "A", Hour: ""},
		{StationName: "B", Hour: "23:59"},
		{StationName: "C", Hour: "00:01"},
	}
	SortRecentFirst(items)

	if items[0].StationName != "B" || items[1].StationName != "C" || items[2].StationName != "A" {
		t.Errorf("order: got %s %s %s", items[0].StationName, items[1].StationName, items[2].StationName)
	}
}
