package mtapi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
)

func TestNewWithIndex_Validation(t *testing.T) {
	ix := testIndex(t)
	valid := Options{MaxTrains: 10, MaxMinutes: time.Minute, RefreshInterval: time.Minute, Threaded: true}

	tests := []struct {
		name    string
		fetcher Fetcher
		mutate  func(*Options)
		nilIdx  bool
	}{
		{"nil index", &fakeFetcher{}, func(*Options) {}, true},
		{"nil fetcher", nil, func(*Options) {}, false},
		{"zero max trains", &fakeFetcher{}, func(o *Options) { o.MaxTrains = 0 }, false},
		{"negative max minutes", &fakeFetcher{}, func(o *Options) { o.MaxMinutes = -time.Minute }, false},
		{"threaded without interval", &fakeFetcher{}, func(o *Options) { o.RefreshInterval = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			idx := ix
			if tt.nilIdx {
				idx = nil
			}
			_, err := NewWithIndex(idx, tt.fetcher, o)
			var ce *ConfigError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func writeStations(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.json")
	data := `[{"id":"L01","name":"8 Av","lat":40.739777,"lon":-74.002578,"routes":["L"]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestNew_FromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Feed.StationsFile = writeStations(t)
	cfg.Feed.URLs = []string{"https://example.invalid/feed"}
	cfg.Feed.APIKey = "key"

	e, err := New(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Index().Len())
}

func TestNew_ConfigErrors(t *testing.T) {
	stationsPath := writeStations(t)

	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{"missing stations file", func(c *config.AppConfig) {
			c.Feed.StationsFile = filepath.Join(t.TempDir(), "nope.json")
			c.Feed.URLs = []string{"feed.pb"}
		}},
		{"remote feed without key", func(c *config.AppConfig) {
			c.Feed.StationsFile = stationsPath
			c.Feed.URLs = []string{"https://example.invalid/feed"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(&cfg)
			_, err := New(&cfg, nil)
			var ce *ConfigError
			assert.True(t, errors.As(err, &ce))
		})
	}

	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestRefresh_MonotonicGeneration(t *testing.T) {
	c := &clock{now: baseTime}
	f := &fakeFetcher{records: sampleRecords(baseTime)}
	e := newTestEngine(t, f, c)

	for i := 1; i <= 3; i++ {
		c.Set(baseTime.Add(time.Duration(i) * time.Minute))
		require.NoError(t, e.Refresh(context.Background()))
		assert.Equal(t, uint64(i), e.Generation())
	}

	// a clock stepping backwards never moves last update backwards
	c.Set(baseTime.Add(-time.Hour))
	require.NoError(t, e.Refresh(context.Background()))
	lu, ok := e.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, baseTime.Add(3*time.Minute), lu)
	assert.Equal(t, uint64(4), e.Generation())
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	e, f, c := refreshedEngine(t)
	before, err := e.GetByRoute("L")
	require.NoError(t, err)
	prevUpdate, _ := e.LastUpdate()

	c.Set(baseTime.Add(time.Minute))
	f.set(nil, &gtfsrt.FetchError{URL: "https://example.invalid", Err: errors.New("boom")})
	err = e.Refresh(context.Background())
	require.Error(t, err)

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, uint64(1), e.Generation())

	after, err := e.GetByRoute("L")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	lu, _ := e.LastUpdate()
	assert.Equal(t, prevUpdate, lu)
}

func TestRefresh_PlainErrorBecomesFetchError(t *testing.T) {
	c := &clock{now: baseTime}
	e := newTestEngine(t, &fakeFetcher{err: errors.New("connection refused")}, c)

	err := e.Refresh(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, uint64(0), e.Generation())
}

type stuckFetcher struct{ release chan struct{} }

func (s *stuckFetcher) FetchRecords(ctx context.Context) ([]gtfsrt.TripUpdateRecord, error) {
	<-s.release
	return nil, nil
}

func TestRefresh_TimeoutIsFailure(t *testing.T) {
	c := &clock{now: baseTime}
	stuck := &stuckFetcher{release: make(chan struct{})}
	defer close(stuck.release)
	e := newTestEngine(t, stuck, c, func(o *Options) { o.FetchTimeout = 20 * time.Millisecond })

	start := time.Now()
	err := e.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, uint64(0), e.Generation())
}

func TestStart_NotThreaded(t *testing.T) {
	c := &clock{now: baseTime}
	f := &fakeFetcher{records: sampleRecords(baseTime)}
	e := newTestEngine(t, f, c)

	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, uint64(1), e.Generation())

	// queries never fetch
	_, _ = e.GetByRoute("A")
	_ = e.GetByPoint(40.7, -73.9, 3)
	assert.Equal(t, 1, f.callCount())
	e.Stop()
}

func TestStart_Threaded(t *testing.T) {
	c := &clock{now: baseTime}
	f := &fakeFetcher{records: sampleRecords(baseTime)}
	e := newTestEngine(t, f, c, func(o *Options) {
		o.Threaded = true
		o.RefreshInterval = 10 * time.Millisecond
	})

	require.NoError(t, e.Start(context.Background()))
	require.Eventually(t, func() bool { return e.Generation() >= 3 }, 2*time.Second, 5*time.Millisecond)
	e.Stop()

	gen := e.Generation()
	calls := f.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, gen, e.Generation(), "no refresh after Stop")
	assert.Equal(t, calls, f.callCount())

	_, ok := e.LastUpdate()
	assert.True(t, ok, "snapshot survives Stop")
	e.Stop()
}

func TestConcurrentQueriesSeeOneSnapshot(t *testing.T) {
	c := &clock{now: baseTime}
	f := &fakeFetcher{records: sampleRecords(baseTime)}
	e := newTestEngine(t, f, c, func(o *Options) { o.ResponseCacheSize = 0 })
	require.NoError(t, e.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for i := 1; ctx.Err() == nil; i++ {
			now := baseTime.Add(time.Duration(i) * time.Second)
			c.Set(now)
			f.set(sampleRecords(now), nil)
			_ = e.Refresh(ctx)
		}
	}()

	var readers sync.WaitGroup
	for r := 0; r < 8; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 200; i++ {
				env := e.GetByPoint(40.8, -73.95, 0)
				for _, d := range env.Data {
					assert.Equal(t, env.Data[0].Generation, d.Generation)
				}
				byRoute, err := e.GetByRoute("L")
				if assert.NoError(t, err) {
					assert.Equal(t, byRoute.Data[0].Generation, byRoute.Data[1].Generation)
				}
			}
		}()
	}
	readers.Wait()
	cancel()
	writer.Wait()
}
