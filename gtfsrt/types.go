package gtfsrt

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoFeeds is returned when a Client has no feed URLs configured
	ErrNoFeeds = errors.New("no feed urls configured")
	// ErrFeedTooLarge is returned when a feed exceeds the client's size limit
	ErrFeedTooLarge = errors.New("feed exceeds size limit")
)

// TripUpdateRecord is one predicted stop time from a trip update
type TripUpdateRecord struct {
	TripID    string
	RouteID   string
	StopID    string    // as given in the feed, may carry a direction suffix
	Direction string    // GTFS direction_id as "0"/"1", empty if absent
	Arrival   time.Time // arrival time, or departure time when arrival is missing
	Timestamp time.Time // trip update timestamp, falls back to the feed header
}

// FetchError reports a failed retrieval or decode of one feed
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is a non-200 HTTP response
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Temporary reports whether a retry may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
