// Package estimator computes annualized drift and volatility from
// historical-timeframe return series.
package estimator

import (
	"math"

	"gbmwave/internal/domain"
)

// htfPreference is the selection order when more than one higher
// timeframe has enough bars: daily first, then 4-hour, then hourly.
var htfPreference = []domain.Timeframe{
	domain.Timeframe1Day,
	domain.Timeframe4Hour,
	domain.Timeframe1Hour,
}

// SeriesSource supplies the closed bar series an estimator reads from.
// timeframestore.Store satisfies this directly.
type SeriesSource interface {
	Series(tf domain.Timeframe) []domain.Bar
}

// Result holds annualized (mu, sigma) for every higher timeframe with at
// least two bars, and the one selected per htfPreference. Selected.Source
// is the zero Timeframe if no series had enough data, in which case the
// caller must treat this as domain.ErrDataUnavailable.
type Result struct {
	PerTimeframe map[domain.Timeframe]domain.Parameters
	Selected     domain.Parameters
}

// Estimate computes Parameters from src's higher-timeframe series. It
// returns an empty mapping (Selected.Source == "") when no timeframe has
// enough bars, matching the "fatal for this session" policy the Live
// Updater applies to an empty estimate.
func Estimate(src SeriesSource) Result {
	result := Result{PerTimeframe: make(map[domain.Timeframe]domain.Parameters)}

	for _, tf := range domain.HTFTimeframes {
		bars := src.Series(tf)
		if len(bars) < 2 {
			continue
		}
		mu, sigma := annualizedParams(bars, domain.PeriodsPerYear(tf))
		result.PerTimeframe[tf] = domain.Parameters{Mu: mu, Sigma: sigma, Source: tf}
	}

	for _, tf := range htfPreference {
		if p, ok := result.PerTimeframe[tf]; ok {
			result.Selected = p
			return result
		}
	}
	return result
}

// annualizedParams computes simple per-bar returns, then annualizes their
// mean and sample standard deviation by periodsPerYear.
func annualizedParams(bars []domain.Bar, periodsPerYear float64) (mu, sigma float64) {
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, bars[i].Close/prev-1)
	}
	if len(returns) == 0 {
		return 0, 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	if len(returns) > 1 {
		for _, r := range returns {
			d := r - mean
			variance += d * d
		}
		variance /= float64(len(returns) - 1)
	}

	mu = mean * periodsPerYear
	sigma = math.Sqrt(variance) * math.Sqrt(periodsPerYear)
	return mu, sigma
}
