package mtapi

import (
	"bytes"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"

	"github.com/theoremus-urban-solutions/mtapi/snapshot"
)

// FeedCache holds the currently published snapshot
type FeedCache struct {
	current atomic.Pointer[snapshot.Snapshot]
}

// Load returns the published snapshot, or nil before the first successful fetch
func (c *FeedCache) Load() *snapshot.Snapshot { return c.current.Load() }

// Publish replaces the published snapshot
func (c *FeedCache) Publish(s *snapshot.Snapshot) { c.current.Store(s) }

// LastUpdate returns the fetch time of the published snapshot
func (c *FeedCache) LastUpdate() (time.Time, bool) {
	s := c.current.Load()
	if s == nil {
		return time.Time{}, false
	}
	return s.FetchedAt, true
}

// responseMemo caches built route results per snapshot generation. A nil
// memo never hits.
type responseMemo struct {
	cache gcache.Cache
}

func newResponseMemo(size int, ttl time.Duration) *responseMemo {
	if size <= 0 {
		return nil
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &responseMemo{cache: b.Build()}
}

func memoKey(generation uint64, args ...string) string {
	var b bytes.Buffer
	b.WriteString(strconv.FormatUint(generation, 10))
	for _, a := range args {
		b.WriteByte('|')
		b.WriteString(a)
	}
	return b.String()
}

func (m *responseMemo) get(key string) ([]StationArrivals, bool) {
	if m == nil {
		return nil, false
	}
	v, err := m.cache.Get(key)
	if err != nil {
		return nil, false
	}
	entries, ok := v.([]StationArrivals)
	return entries, ok
}

func (m *responseMemo) set(key string, entries []StationArrivals) {
	if m == nil {
		return
	}
	_ = m.cache.Set(key, entries)
}
