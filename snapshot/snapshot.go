package snapshot

import (
	"sort"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Options bounds the arrivals kept per station
type Options struct {
	MaxTrains  int
	MaxMinutes time.Duration
}

// Arrival is one predicted train at a station
type Arrival struct {
	TripID     string    `json:"trip_id,omitempty"`
	Route      string    `json:"route"`
	Direction  string    `json:"direction,omitempty"`
	StopID     string    `json:"stop_id"`
	Time       time.Time `json:"time"`
	LastUpdate time.Time `json:"-"`
}

// Stats counts what happened to the records of one build
type Stats struct {
	Records      int
	Resolved     int
	UnknownStops int
	OutOfWindow  int
	Kept         int
}

// Snapshot is the immutable result of one fetch and build cycle
type Snapshot struct {
	Generation uint64
	FetchedAt  time.Time
	Stats      Stats

	arrivals   map[string][]Arrival // station_id -> arrivals, time ascending
	lastUpdate map[string]time.Time // station_id -> newest record timestamp
	routeStops map[string][]string  // route_id -> station_ids
}

// Arrivals returns a copy of the arrivals at a station
func (s *Snapshot) Arrivals(stationID string) []Arrival {
	if s == nil {
		return []Arrival{}
	}
	src := s.arrivals[stationID]
	out := make([]Arrival, len(src))
	copy(out, src)
	return out
}

// LastUpdate returns the newest record timestamp seen for a station
func (s *Snapshot) LastUpdate(stationID string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	t, ok := s.lastUpdate[stationID]
	return t, ok
}

// RouteStops returns the station ids served by a route
func (s *Snapshot) RouteStops(route string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.routeStops[route]...)
}

// Build resolves records against the index, filters them to the window
// [fetchedAt, fetchedAt+MaxMinutes], sorts each station's arrivals and caps
// them at MaxTrains.
func Build(records []gtfsrt.TripUpdateRecord, index *stations.Index, opts Options, fetchedAt time.Time, generation uint64) *Snapshot {
	s := &Snapshot{
		Generation: generation,
		FetchedAt:  fetchedAt,
		arrivals:   map[string][]Arrival{},
		lastUpdate: map[string]time.Time{},
		routeStops: map[string][]string{},
	}
	s.Stats.Records = len(records)

	horizon := fetchedAt.Add(opts.MaxMinutes)
	for _, rec := range records {
		stationID, dir, ok := index.Resolve(rec.StopID)
		if !ok {
			s.Stats.UnknownStops++
			continue
		}
		s.Stats.Resolved++
		if !rec.Timestamp.IsZero() {
			if prev, seen := s.lastUpdate[stationID]; !seen || rec.Timestamp.After(prev) {
				s.lastUpdate[stationID] = rec.Timestamp
			}
		}
		if rec.Arrival.Before(fetchedAt) || rec.Arrival.After(horizon) {
			s.Stats.OutOfWindow++
			continue
		}
		if dir == "" {
			dir = rec.Direction
		}
		s.arrivals[stationID] = append(s.arrivals[stationID], Arrival{
			TripID:     rec.TripID,
			Route:      rec.RouteID,
			Direction:  dir,
			StopID:     rec.StopID,
			Time:       rec.Arrival,
			LastUpdate: rec.Timestamp,
		})
	}

	for id, list := range s.arrivals {
		sort.SliceStable(list, func(i, j int) bool { return arrivalLess(list[i], list[j]) })
		if opts.MaxTrains > 0 && len(list) > opts.MaxTrains {
			list = list[:opts.MaxTrains:opts.MaxTrains]
		}
		s.arrivals[id] = list
		s.Stats.Kept += len(list)
	}

	for _, r := range index.Routes() {
		s.routeStops[r] = index.RouteStations(r)
	}
	return s
}

func arrivalLess(a, b Arrival) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.Route != b.Route {
		return a.Route < b.Route
	}
	if a.Direction != b.Direction {
		return a.Direction < b.Direction
	}
	return a.TripID < b.TripID
}
