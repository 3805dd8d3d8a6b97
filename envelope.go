package mtapi

import (
	"time"

	"github.com/theoremus-urban-solutions/mtapi/snapshot"
)

// StationArrivals is one station in a query result
type StationArrivals struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Location   [2]float64         `json:"location"` // lat, lon
	Routes     []string           `json:"routes"`
	Arrivals   []snapshot.Arrival `json:"arrivals"`
	LastUpdate *time.Time         `json:"last_update"`
	Distance   *float64           `json:"distance,omitempty"` // km, point queries only

	// Generation of the snapshot this entry was read from
	Generation uint64 `json:"-"`
}

// Envelope pairs query results with the oldest freshness timestamp among them
type Envelope struct {
	Data    []StationArrivals `json:"data"`
	Updated *time.Time        `json:"updated"`
}

// MakeEnvelope wraps entries. Updated is the minimum LastUpdate over the
// entries that have one, or nil when none do.
func MakeEnvelope(entries []StationArrivals) Envelope {
	if entries == nil {
		entries = []StationArrivals{}
	}
	var updated *time.Time
	for i := range entries {
		lu := entries[i].LastUpdate
		if lu == nil {
			continue
		}
		if updated == nil || lu.Before(*updated) {
			t := *lu
			updated = &t
		}
	}
	return Envelope{Data: entries, Updated: updated}
}
