package domain

import "time"

// Snapshot is an atomic, immutable read-only view of the live engine's
// state at the close of one update cycle. It is produced at cycle close
// and is meant to be consumed (copied) by downstream observers before the
// next cycle's snapshot is emitted.
type Snapshot struct {
	SessionID      string
	UpdateCount    int
	Timestamp      time.Time
	// HasPrice is false for a no-data cycle (no 1m close was stored yet,
	// or elimination failed); LatestPrice is meaningless when HasPrice is
	// false.
	HasPrice        bool
	LatestPrice     float64
	PathsEliminated int
	PathsActive     int
	PathsTotal      int
	// SurvivalRate is PathsActive / PathsTotal; 0 when PathsTotal is 0.
	SurvivalRate float64
	ReversalZones []Zone
}
