package gtfsrt

import (
	"fmt"
	"strconv"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Decode parses a protobuf FeedMessage and returns its trip update records
func Decode(data []byte) ([]TripUpdateRecord, error) {
	fm := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, fm); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}
	return Records(fm), nil
}

// Records flattens every stop time update in the message. Updates without a
// stop id or without any predicted time are skipped.
func Records(fm *gtfs.FeedMessage) []TripUpdateRecord {
	if fm == nil {
		return nil
	}
	var headerTS time.Time
	if ts := fm.GetHeader().GetTimestamp(); ts > 0 {
		headerTS = time.Unix(int64(ts), 0).UTC()
	}

	var out []TripUpdateRecord
	for _, e := range fm.GetEntity() {
		tu := e.GetTripUpdate()
		if tu == nil {
			continue
		}
		trip := tu.GetTrip()
		ts := headerTS
		if v := tu.GetTimestamp(); v > 0 {
			ts = time.Unix(int64(v), 0).UTC()
		}
		dir := ""
		if trip != nil && trip.DirectionId != nil {
			dir = strconv.FormatUint(uint64(trip.GetDirectionId()), 10)
		}
		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() == "" {
				continue
			}
			at, ok := eventTime(stu.GetArrival())
			if !ok {
				if at, ok = eventTime(stu.GetDeparture()); !ok {
					continue
				}
			}
			out = append(out, TripUpdateRecord{
				TripID:    trip.GetTripId(),
				RouteID:   trip.GetRouteId(),
				StopID:    stu.GetStopId(),
				Direction: dir,
				Arrival:   at,
				Timestamp: ts,
			})
		}
	}
	return out
}

func eventTime(ev *gtfs.TripUpdate_StopTimeEvent) (time.Time, bool) {
	if ev == nil || ev.Time == nil || ev.GetTime() <= 0 {
		return time.Time{}, false
	}
	return time.Unix(ev.GetTime(), 0).UTC(), true
}
