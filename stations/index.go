package stations

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned for unknown station ids
	ErrNotFound = errors.New("station not found")
	// ErrInvalidSource wraps every load or validation failure
	ErrInvalidSource = errors.New("invalid stations source")
)

// Station is a fixed, geocoded stop
type Station struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Routes    []string `json:"routes"`
}

// Neighbor is a station paired with its distance from a query point
type Neighbor struct {
	Station    Station
	DistanceKM float64
}

// Index stores stations in memory for fast lookups
type Index struct {
	stations      []Station           // sorted by id
	byID          map[string]int      // station_id -> position in stations
	aliases       map[string]string   // platform stop_id -> station_id
	routeStations map[string][]string // route_id -> sorted station_ids
	routes        []string            // sorted route ids
}

// NewIndex validates stations and builds the lookup tables. aliases maps
// extra stop ids (platforms) onto station ids and may be nil.
func NewIndex(list []Station, aliases map[string]string) (*Index, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no stations", ErrInvalidSource)
	}
	ix := &Index{
		stations:      make([]Station, 0, len(list)),
		byID:          make(map[string]int, len(list)),
		aliases:       map[string]string{},
		routeStations: map[string][]string{},
	}
	for _, st := range list {
		st.ID = strings.TrimSpace(st.ID)
		if st.ID == "" {
			return nil, fmt.Errorf("%w: station with empty id", ErrInvalidSource)
		}
		if _, dup := ix.byID[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate station id %q", ErrInvalidSource, st.ID)
		}
		if !validCoordinate(st.Latitude, st.Longitude) {
			return nil, fmt.Errorf("%w: station %q has invalid coordinates (%v, %v)", ErrInvalidSource, st.ID, st.Latitude, st.Longitude)
		}
		st.Routes = uniqueSorted(st.Routes)
		ix.byID[st.ID] = -1
		ix.stations = append(ix.stations, st)
	}
	sort.Slice(ix.stations, func(i, j int) bool { return ix.stations[i].ID < ix.stations[j].ID })
	for i, st := range ix.stations {
		ix.byID[st.ID] = i
		for _, r := range st.Routes {
			ix.routeStations[r] = append(ix.routeStations[r], st.ID)
		}
	}
	for stopID, stationID := range aliases {
		if _, ok := ix.byID[stationID]; !ok {
			return nil, fmt.Errorf("%w: stop %q refers to unknown station %q", ErrInvalidSource, stopID, stationID)
		}
		if _, ok := ix.byID[stopID]; ok {
			continue
		}
		ix.aliases[stopID] = stationID
	}
	ix.routes = make([]string, 0, len(ix.routeStations))
	for r := range ix.routeStations {
		ix.routes = append(ix.routes, r)
	}
	sort.Strings(ix.routes)
	return ix, nil
}

// Len returns the number of stations
func (ix *Index) Len() int { return len(ix.stations) }

// Get returns a copy of the station with the given id
func (ix *Index) Get(id string) (Station, error) {
	i, ok := ix.byID[id]
	if !ok {
		return Station{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ix.stations[i].clone(), nil
}

// Has reports whether id is a known station id
func (ix *Index) Has(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// All returns copies of every station ordered by id
func (ix *Index) All() []Station {
	out := make([]Station, len(ix.stations))
	for i, st := range ix.stations {
		out[i] = st.clone()
	}
	return out
}

// Resolve maps a realtime stop id to a station id. The direction is the
// trailing N or S of a directional platform id, or empty.
func (ix *Index) Resolve(stopID string) (stationID, direction string, ok bool) {
	if _, found := ix.byID[stopID]; found {
		return stopID, "", true
	}
	base, dir := splitDirection(stopID)
	if sid, found := ix.aliases[stopID]; found {
		return sid, dir, true
	}
	if dir == "" {
		return "", "", false
	}
	if _, found := ix.byID[base]; found {
		return base, dir, true
	}
	if sid, found := ix.aliases[base]; found {
		return sid, dir, true
	}
	return "", "", false
}

// Nearest returns up to n stations ordered by ascending distance from the
// point, ties broken by station id. n <= 0 or n beyond the station count
// returns every station.
func (ix *Index) Nearest(lat, lon float64, n int) []Neighbor {
	all := make([]Neighbor, len(ix.stations))
	for i, st := range ix.stations {
		all[i] = Neighbor{Station: st, DistanceKM: DistanceKM(lat, lon, st.Latitude, st.Longitude)}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].DistanceKM != all[j].DistanceKM {
			return all[i].DistanceKM < all[j].DistanceKM
		}
		return all[i].Station.ID < all[j].Station.ID
	})
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	for i := range all {
		all[i].Station = all[i].Station.clone()
	}
	return all
}

// Routes returns every route id served by at least one station, sorted
func (ix *Index) Routes() []string {
	out := make([]string, len(ix.routes))
	copy(out, ix.routes)
	return out
}

// HasRoute reports whether the route serves any station
func (ix *Index) HasRoute(route string) bool {
	_, ok := ix.routeStations[route]
	return ok
}

// RouteStations returns the ids of stations served by the route, sorted
func (ix *Index) RouteStations(route string) []string {
	ids := ix.routeStations[route]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (st Station) clone() Station {
	st.Routes = append([]string(nil), st.Routes...)
	return st
}

// splitDirection strips a trailing N/S direction marker from ids like "A02N"
func splitDirection(stopID string) (string, string) {
	if len(stopID) < 2 {
		return stopID, ""
	}
	switch last := stopID[len(stopID)-1]; last {
	case 'N', 'S':
		return stopID[:len(stopID)-1], string(last)
	}
	return stopID, ""
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
