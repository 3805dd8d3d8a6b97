package mtapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu      sync.Mutex
	records []gtfsrt.TripUpdateRecord
	err     error
	calls   int
}

func (f *fakeFetcher) FetchRecords(ctx context.Context) ([]gtfsrt.TripUpdateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]gtfsrt.TripUpdateRecord(nil), f.records...), nil
}

func (f *fakeFetcher) set(records []gtfsrt.TripUpdateRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testIndex(t *testing.T) *stations.Index {
	t.Helper()
	ix, err := stations.NewIndex([]stations.Station{
		{ID: "A02", Name: "Inwood-207 St", Latitude: 40.868072, Longitude: -73.919899, Routes: []string{"A"}},
		{ID: "A03", Name: "Dyckman St", Latitude: 40.865491, Longitude: -73.927271, Routes: []string{"A"}},
		{ID: "L01", Name: "8 Av", Latitude: 40.739777, Longitude: -74.002578, Routes: []string{"L"}},
		{ID: "L03", Name: "14 St-Union Sq", Latitude: 40.734789, Longitude: -73.990730, Routes: []string{"L"}},
		{ID: "635", Name: "14 St-Union Sq", Latitude: 40.734673, Longitude: -73.989951, Routes: []string{"4", "5", "6"}},
		{ID: "902", Name: "Times Sq-42 St", Latitude: 40.755477, Longitude: -73.987691, Routes: []string{"GS"}},
	}, nil)
	require.NoError(t, err)
	return ix
}

func record(trip, route, stop string, at time.Time, ts time.Time) gtfsrt.TripUpdateRecord {
	return gtfsrt.TripUpdateRecord{TripID: trip, RouteID: route, StopID: stop, Arrival: at, Timestamp: ts}
}

func sampleRecords(now time.Time) []gtfsrt.TripUpdateRecord {
	return []gtfsrt.TripUpdateRecord{
		record("A1", "A", "A02S", now.Add(2*time.Minute), now.Add(-40*time.Second)),
		record("A2", "A", "A03S", now.Add(4*time.Minute), now.Add(-20*time.Second)),
		record("L1", "L", "L01N", now.Add(1*time.Minute), now.Add(-10*time.Second)),
		record("L2", "L", "L03S", now.Add(3*time.Minute), now.Add(-30*time.Second)),
		record("61", "6", "635N", now.Add(5*time.Minute), now.Add(-5*time.Second)),
	}
}

type engineOpt func(*Options)

func newTestEngine(t *testing.T, f Fetcher, c *clock, opts ...engineOpt) *Engine {
	t.Helper()
	o := Options{
		MaxTrains:         10,
		MaxMinutes:        30 * time.Minute,
		RefreshInterval:   time.Minute,
		FetchTimeout:      time.Second,
		ResponseCacheSize: 16,
		Now:               c.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := NewWithIndex(testIndex(t), f, o)
	require.NoError(t, err)
	return e
}
