// Package snapshot joins decoded trip update records with the station index
// into an immutable, per-station view of upcoming arrivals.
//
// A Snapshot is built once per successful fetch and never modified after
// Build returns, so it can be shared freely between goroutines.
package snapshot
