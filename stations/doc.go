/*
Package stations provides the static, geocoded station directory.

An Index is loaded once at startup and never mutated afterwards, so it is safe
for concurrent use without locking. It answers three kinds of questions:

  - lookup by station id, including resolution of realtime feed stop ids
    (platform ids and NYCT-style N/S direction suffixes) to their station
  - nearest-N stations to a coordinate, by great-circle distance
  - which stations a route serves

# Sources

LoadFile accepts either a JSON stations file or a GTFS static zip:

	index, err := stations.LoadFile("data/stations.json")
	if err != nil {
	    log.Fatal(err)
	}
	st, err := index.Get("A02")
	near := index.Nearest(40.7527, -73.9772, 5)

JSON files are an array of {"id","name","lat","lon","routes"} objects, or an
object keyed by station id whose values carry "name", "location" ([lat, lon])
and "routes".

GTFS archives contribute stops.txt, trips.txt and stop_times.txt. Parent
stations (location_type=1) and parentless stops become stations; platform
stops are registered as aliases of their parent and their routes roll up.
*/
package stations
