package barsource

import (
	"context"
	"sort"
	"time"

	"gbmwave/internal/domain"
)

// Compile-time interface check.
var _ BarSource = (*ReplayBarSource)(nil)

// ReplayBarSource is a deterministic, in-memory BarSource over a fixed set
// of bars, used by tests and by gbm-server when no Alpaca credentials are
// configured. It never performs network I/O and never fails transiently.
type ReplayBarSource struct {
	bySymbolTF map[string][]domain.Bar
}

// NewReplayBarSource creates an empty ReplayBarSource. Bars are added per
// (symbol, timeframe) via AddBars.
func NewReplayBarSource() *ReplayBarSource {
	return &ReplayBarSource{bySymbolTF: make(map[string][]domain.Bar)}
}

func replayKey(symbol string, tf domain.Timeframe) string {
	return symbol + "|" + string(tf)
}

// AddBars appends bars for a given symbol/timeframe, keeping the series
// sorted by timestamp and dropping duplicate timestamps (idempotent by
// timestamp, matching the Timeframe Store's own append rule).
func (r *ReplayBarSource) AddBars(symbol string, tf domain.Timeframe, bars []domain.Bar) {
	key := replayKey(symbol, tf)
	existing := r.bySymbolTF[key]

	seen := make(map[int64]bool, len(existing))
	for _, b := range existing {
		seen[b.Timestamp.UnixNano()] = true
	}
	for _, b := range bars {
		ts := b.Timestamp.UnixNano()
		if seen[ts] {
			continue
		}
		seen[ts] = true
		existing = append(existing, b)
	}
	sort.Slice(existing, func(i, j int) bool {
		return existing[i].Timestamp.Before(existing[j].Timestamp)
	})
	r.bySymbolTF[key] = existing
}

// FetchBars returns the bars in [start, end) for symbol/timeframe.
func (r *ReplayBarSource) FetchBars(_ context.Context, symbol string, tf domain.Timeframe, start, end time.Time, limit int) ([]domain.Bar, error) {
	all := r.bySymbolTF[replayKey(symbol, tf)]
	out := make([]domain.Bar, 0, len(all))
	for _, b := range all {
		if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
			out = append(out, b)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// LatestBar returns the last bar in the stored series for symbol/timeframe.
func (r *ReplayBarSource) LatestBar(_ context.Context, symbol string, tf domain.Timeframe) (domain.Bar, bool, error) {
	all := r.bySymbolTF[replayKey(symbol, tf)]
	if len(all) == 0 {
		return domain.Bar{}, false, nil
	}
	return all[len(all)-1], true, nil
}
