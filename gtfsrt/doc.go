// Package gtfsrt fetches GTFS-Realtime trip update feeds and flattens them
// into per-stop arrival records.
//
// A Client holds the feed URLs (or local file paths), the API key and the
// retry policy. FetchRecords retrieves every feed and returns either all
// decoded records or a *FetchError; a single failing feed fails the whole
// fetch.
package gtfsrt
