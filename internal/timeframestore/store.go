// Package timeframestore holds per-timeframe bar series in memory and
// answers the queries the Parameter Estimator and Path Generator need:
// latest close, HTF return series, and idempotent append of new bars.
package timeframestore

import (
	"sort"
	"sync"

	"gbmwave/internal/domain"
)

// Store holds one ordered bar series per timeframe for a single symbol.
// All methods are safe for concurrent use; the Live Updater's poll step
// may write while other goroutines read.
type Store struct {
	mu     sync.RWMutex
	symbol string
	series map[domain.Timeframe][]domain.Bar
}

// New creates an empty Store for symbol.
func New(symbol string) *Store {
	return &Store{
		symbol: symbol,
		series: make(map[domain.Timeframe][]domain.Bar, len(domain.AllTimeframes)),
	}
}

// Symbol returns the symbol this store was created for.
func (s *Store) Symbol() string { return s.symbol }

// Append adds bars to tf's series, skipping any bar whose timestamp
// already exists. The series is kept sorted by timestamp, so append is
// idempotent and safe to call repeatedly on overlapping fetch windows.
func (s *Store) Append(tf domain.Timeframe, bars []domain.Bar) {
	if len(bars) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.series[tf]
	seen := make(map[int64]bool, len(existing))
	for _, b := range existing {
		seen[b.Timestamp.UnixNano()] = true
	}
	changed := false
	for _, b := range bars {
		ts := b.Timestamp.UnixNano()
		if seen[ts] {
			continue
		}
		seen[ts] = true
		existing = append(existing, b)
		changed = true
	}
	if changed {
		sort.Slice(existing, func(i, j int) bool {
			return existing[i].Timestamp.Before(existing[j].Timestamp)
		})
	}
	s.series[tf] = existing
}

// Series returns a copy of tf's bars, oldest first.
func (s *Store) Series(tf domain.Timeframe) []domain.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.series[tf]
	out := make([]domain.Bar, len(src))
	copy(out, src)
	return out
}

// LatestClose returns the close of the most recent bar in tf's series,
// or (0, false) if tf has no bars yet.
func (s *Store) LatestClose(tf domain.Timeframe) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars := s.series[tf]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

// LatestCloseAcrossLTF returns the latest close of the finest timeframe
// that has data, preferring 1-minute bars and falling back through 5m,
// 15m, 1h, 4h and 1d in that order when finer data is unavailable.
func (s *Store) LatestCloseAcrossLTF() (float64, bool) {
	for _, tf := range []domain.Timeframe{
		domain.Timeframe1Min,
		domain.Timeframe5Min,
		domain.Timeframe15Min,
		domain.Timeframe1Hour,
		domain.Timeframe4Hour,
		domain.Timeframe1Day,
	} {
		if price, ok := s.LatestClose(tf); ok {
			return price, true
		}
	}
	return 0, false
}
