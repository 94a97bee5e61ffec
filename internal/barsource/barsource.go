// Package barsource defines the abstract market-data contract the core
// engine depends on, plus concrete adapters. The core never imports a
// vendor SDK directly; it only ever calls through the BarSource interface.
package barsource

import (
	"context"
	"time"

	"gbmwave/internal/domain"
)

// BarSource is the minimal contract the engine assumes of an external
// market-data vendor. Implementations may surface subscription/feed
// restrictions as errors wrapping domain.ErrTransientFetch; the engine
// treats those as per-timeframe skips, never as fatal.
type BarSource interface {
	// FetchBars returns historical bars for symbol/timeframe within
	// [start, end), oldest first. limit, if non-zero, caps the result.
	FetchBars(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time, limit int) ([]domain.Bar, error)

	// LatestBar returns the most recent bar for symbol/timeframe, or
	// (domain.Bar{}, false, nil) if none is currently available.
	LatestBar(ctx context.Context, symbol string, tf domain.Timeframe) (domain.Bar, bool, error)
}
