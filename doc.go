// Package mtapi serves live subway arrivals from a GTFS-Realtime feed.
//
// An Engine owns a static station index, a feed client and a scheduler that
// periodically fetches the feed, builds an immutable snapshot and publishes
// it. Queries (GetRoutes, GetByRoute, GetByID, GetByPoint, LastUpdate) only
// read the currently published snapshot and never trigger a fetch.
//
// Server exposes the same read contract over HTTP as JSON envelopes.
package mtapi
