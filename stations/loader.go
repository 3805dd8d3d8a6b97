package stations

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadFile loads an Index from a JSON stations file, a GTFS static zip or a
// gob cache written by SerializeIndexToFile, chosen by file extension. Every
// failure wraps ErrInvalidSource.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return ParseGTFSZip(data)
	case ".gob":
		return DeserializeIndex(data)
	default:
		return ParseJSON(data)
	}
}

type legacyStation struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location []float64 `json:"location"`
	Routes   []string  `json:"routes"`
}

// ParseJSON reads the array or id-keyed object form of a stations file
func ParseJSON(data []byte) (*Index, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty stations file", ErrInvalidSource)
	}
	var list []Station
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
	case '{':
		var keyed map[string]legacyStation
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		for key, ls := range keyed {
			if len(ls.Location) != 2 {
				return nil, fmt.Errorf("%w: station %q location must be [lat, lon]", ErrInvalidSource, key)
			}
			id := ls.ID
			if id == "" {
				id = key
			}
			list = append(list, Station{
				ID:        id,
				Name:      ls.Name,
				Latitude:  ls.Location[0],
				Longitude: ls.Location[1],
				Routes:    ls.Routes,
			})
		}
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrInvalidSource)
	}
	return NewIndex(list, nil)
}

type gtfsStop struct {
	id, name, parent string
	lat, lon         float64
	locationType     int
}

// ParseGTFSZip builds an Index from the stops, trips and stop_times of a GTFS
// static archive.
func ParseGTFSZip(data []byte) (*Index, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	tables := map[string][][]string{}
	for _, f := range zr.File {
		name := strings.ToLower(filepath.Base(f.Name))
		if name == "stops.txt" || name == "trips.txt" || name == "stop_times.txt" {
			rec, err := readCSV(f)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSource, name, err)
			}
			tables[name] = rec
		}
	}
	if len(tables["stops.txt"]) < 2 {
		return nil, fmt.Errorf("%w: stops.txt missing or empty", ErrInvalidSource)
	}

	stops, err := parseStops(tables["stops.txt"])
	if err != nil {
		return nil, err
	}
	tripRoute := parseTrips(tables["trips.txt"])

	// station_id for every stop: parents map to themselves, platforms to their parent
	stationOf := map[string]string{}
	for id, s := range stops {
		if s.parent != "" {
			if _, ok := stops[s.parent]; ok {
				stationOf[id] = s.parent
				continue
			}
		}
		stationOf[id] = id
	}

	routes := map[string]map[string]struct{}{}
	if rec := tables["stop_times.txt"]; len(rec) > 1 {
		idx := columnIndex(rec[0])
		tID, sID := idx("trip_id"), idx("stop_id")
		if tID >= 0 && sID >= 0 {
			for _, row := range rec[1:] {
				if tID >= len(row) || sID >= len(row) {
					continue
				}
				route, ok := tripRoute[row[tID]]
				if !ok {
					continue
				}
				station, ok := stationOf[row[sID]]
				if !ok {
					continue
				}
				if routes[station] == nil {
					routes[station] = map[string]struct{}{}
				}
				routes[station][route] = struct{}{}
			}
		}
	}

	list := make([]Station, 0, len(stops))
	aliases := map[string]string{}
	for id, s := range stops {
		if stationOf[id] != id {
			aliases[id] = stationOf[id]
			continue
		}
		st := Station{ID: id, Name: s.name, Latitude: s.lat, Longitude: s.lon}
		for r := range routes[id] {
			st.Routes = append(st.Routes, r)
		}
		list = append(list, st)
	}
	return NewIndex(list, aliases)
}

func readCSV(f *zip.File) ([][]string, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	rec, err := csvr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rec) > 0 && len(rec[0]) > 0 {
		// strip a UTF-8 BOM from the header
		rec[0][0] = strings.TrimPrefix(rec[0][0], "\ufeff")
	}
	return rec, nil
}

func columnIndex(head []string) func(string) int {
	return func(col string) int {
		for i, h := range head {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return i
			}
		}
		return -1
	}
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseStops(rec [][]string) (map[string]gtfsStop, error) {
	idx := columnIndex(rec[0])
	sID, sN := idx("stop_id"), idx("stop_name")
	sLat, sLon := idx("stop_lat"), idx("stop_lon")
	lt, ps := idx("location_type"), idx("parent_station")
	if sID < 0 || sLat < 0 || sLon < 0 {
		return nil, fmt.Errorf("%w: stops.txt needs stop_id, stop_lat and stop_lon", ErrInvalidSource)
	}
	stops := make(map[string]gtfsStop, len(rec)-1)
	for _, row := range rec[1:] {
		id := field(row, sID)
		if id == "" {
			continue
		}
		lat, err := strconv.ParseFloat(field(row, sLat), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: stop %q: bad stop_lat: %v", ErrInvalidSource, id, err)
		}
		lon, err := strconv.ParseFloat(field(row, sLon), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: stop %q: bad stop_lon: %v", ErrInvalidSource, id, err)
		}
		s := gtfsStop{id: id, name: field(row, sN), parent: field(row, ps), lat: lat, lon: lon}
		if v := field(row, lt); v != "" {
			s.locationType, _ = strconv.Atoi(v)
		}
		// entrances, generic nodes and boarding areas are not stations
		if s.locationType >= 2 {
			continue
		}
		stops[id] = s
	}
	return stops, nil
}

func parseTrips(rec [][]string) map[string]string {
	out := map[string]string{}
	if len(rec) < 2 {
		return out
	}
	idx := columnIndex(rec[0])
	tID, rID := idx("trip_id"), idx("route_id")
	if tID < 0 || rID < 0 {
		return out
	}
	for _, row := range rec[1:] {
		if t, r := field(row, tID), field(row, rID); t != "" && r != "" {
			out[t] = r
		}
	}
	return out
}
