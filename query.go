package mtapi

import (
	"time"

	"github.com/theoremus-urban-solutions/mtapi/snapshot"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// NormalizeRoute uppercases single-letter route ids ("l" -> "L"). Anything
// else, including multi-letter ids like "GS" or "6X", is returned unchanged.
func NormalizeRoute(route string) string {
	if len(route) == 1 && route[0] >= 'a' && route[0] <= 'z' {
		return string(route[0] - 'a' + 'A')
	}
	return route
}

// GetRoutes returns every route id known to the station index, sorted
func (e *Engine) GetRoutes() []string {
	return e.index.Routes()
}

// LastUpdate returns the time of the last successful fetch. ok is false
// until the first one.
func (e *Engine) LastUpdate() (time.Time, bool) {
	return e.cache.LastUpdate()
}

// GetByRoute returns one entry per station served by the route
func (e *Engine) GetByRoute(route string) (Envelope, error) {
	r := NormalizeRoute(route)
	if !e.index.HasRoute(r) {
		return Envelope{}, &NotFoundError{Kind: "route", ID: route}
	}

	snap := e.cache.Load()
	gen := generationOf(snap)
	key := memoKey(gen, "route", r)
	if entries, ok := e.memo.get(key); ok {
		return MakeEnvelope(copyEntries(entries)), nil
	}

	ids := e.index.RouteStations(r)
	if snap != nil {
		ids = snap.RouteStops(r)
	}
	entries := make([]StationArrivals, 0, len(ids))
	for _, id := range ids {
		st, err := e.index.Get(id)
		if err != nil {
			continue
		}
		entries = append(entries, stationEntry(st, snap))
	}
	e.memo.set(key, entries)
	return MakeEnvelope(copyEntries(entries)), nil
}

// GetByID returns one entry per requested station id, in request order.
// Any unknown id fails the whole call.
func (e *Engine) GetByID(ids []string) (Envelope, error) {
	snap := e.cache.Load()
	entries := make([]StationArrivals, 0, len(ids))
	for _, id := range ids {
		st, err := e.index.Get(id)
		if err != nil {
			return Envelope{}, &NotFoundError{Kind: "station", ID: id}
		}
		entries = append(entries, stationEntry(st, snap))
	}
	return MakeEnvelope(entries), nil
}

// GetByPoint returns the limit stations nearest to the coordinate, each with
// its distance in km. limit <= 0 returns every station.
func (e *Engine) GetByPoint(lat, lon float64, limit int) Envelope {
	snap := e.cache.Load()
	near := e.index.Nearest(lat, lon, limit)
	entries := make([]StationArrivals, 0, len(near))
	for _, n := range near {
		entry := stationEntry(n.Station, snap)
		d := n.DistanceKM
		entry.Distance = &d
		entries = append(entries, entry)
	}
	return MakeEnvelope(entries)
}

// stationEntry reads a station's arrivals from exactly one snapshot
func stationEntry(st stations.Station, snap *snapshot.Snapshot) StationArrivals {
	entry := StationArrivals{
		ID:         st.ID,
		Name:       st.Name,
		Location:   [2]float64{st.Latitude, st.Longitude},
		Routes:     st.Routes,
		Arrivals:   snap.Arrivals(st.ID),
		Generation: generationOf(snap),
	}
	if lu, ok := snap.LastUpdate(st.ID); ok {
		entry.LastUpdate = &lu
	}
	return entry
}

func generationOf(snap *snapshot.Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	return snap.Generation
}

// copyEntries deep-copies entries handed out from the memo
func copyEntries(in []StationArrivals) []StationArrivals {
	out := make([]StationArrivals, len(in))
	for i, e := range in {
		e.Routes = append([]string(nil), e.Routes...)
		e.Arrivals = append([]snapshot.Arrival{}, e.Arrivals...)
		if e.LastUpdate != nil {
			t := *e.LastUpdate
			e.LastUpdate = &t
		}
		out[i] = e
	}
	return out
}
