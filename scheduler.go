package mtapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/internal/logger"
	"github.com/theoremus-urban-solutions/mtapi/snapshot"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Fetcher retrieves the raw records of one feed cycle
type Fetcher interface {
	FetchRecords(ctx context.Context) ([]gtfsrt.TripUpdateRecord, error)
}

// Scheduler runs fetch and build cycles and publishes their snapshots
type Scheduler struct {
	mu       sync.Mutex // one cycle at a time
	fetcher  Fetcher
	index    *stations.Index
	cache    *FeedCache
	opts     snapshot.Options
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      logger.Logger
}

// RunOnce performs one cycle. On failure the published snapshot is left as
// it was and the error is returned.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	records, err := s.fetch(ctx)
	if err != nil {
		s.log.Error("Feed refresh failed, keeping previous snapshot", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}

	fetchedAt := s.now()
	generation := uint64(1)
	if prev := s.cache.Load(); prev != nil {
		generation = prev.Generation + 1
		if fetchedAt.Before(prev.FetchedAt) {
			fetchedAt = prev.FetchedAt
		}
	}
	snap := snapshot.Build(records, s.index, s.opts, fetchedAt, generation)
	s.cache.Publish(snap)

	s.log.Info("Feed refreshed",
		"generation", generation,
		"records", snap.Stats.Records,
		"unknown_stops", snap.Stats.UnknownStops,
		"arrivals", snap.Stats.Kept,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// fetch bounds the fetcher by the cycle timeout even when it ignores ctx
func (s *Scheduler) fetch(ctx context.Context) ([]gtfsrt.TripUpdateRecord, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		records []gtfsrt.TripUpdateRecord
		err     error
	}
	done := make(chan result, 1)
	go func() {
		recs, err := s.fetcher.FetchRecords(ctx)
		done <- result{recs, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			var fe *FetchError
			if !errors.As(res.err, &fe) {
				return nil, &FetchError{Err: res.err}
			}
			return nil, res.err
		}
		return res.records, nil
	case <-ctx.Done():
		return nil, &FetchError{Err: ctx.Err()}
	}
}

// Run performs a cycle immediately and then once per interval until ctx is
// cancelled. A slow cycle delays the next one.
func (s *Scheduler) Run(ctx context.Context) {
	_ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}
