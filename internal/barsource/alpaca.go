package barsource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"gbmwave/internal/domain"
	"gbmwave/internal/util"
)

// Compile-time interface check.
var _ BarSource = (*AlpacaBarSource)(nil)

// httpClientTimeout bounds every Alpaca HTTP call, including paginated
// bar fetches. The SDK's own default is 10s, which the vendor's gather
// client elsewhere in the stack notes is too short for paginated history
// calls; the marketdata.Client API takes no context.Context, so this
// http.Client timeout is the only deadline a call actually gets.
const httpClientTimeout = 30 * time.Second

// fetchMaxAttempts/fetchBaseDelay bound retrying a transient Alpaca
// failure before it is surfaced as domain.ErrTransientFetch.
const (
	fetchMaxAttempts = 3
	fetchBaseDelay   = 250 * time.Millisecond
	ratePerMinute    = 200
)

// AlpacaBarSource implements BarSource against the Alpaca market-data API.
// It supports NASDAQ futures proxies (e.g. "NQ" normalized to "QQQ") or
// direct equity tickers.
type AlpacaBarSource struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
}

// NewAlpacaBarSource creates an AlpacaBarSource using the given API
// credentials and (optional) data-feed base URL override.
func NewAlpacaBarSource(apiKey, apiSecret, dataURL string) *AlpacaBarSource {
	opts := marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: &http.Client{Timeout: httpClientTimeout},
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaBarSource{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMinute),
	}
}

// NormalizeTicker remaps futures symbols Alpaca cannot serve directly to
// an ETF proxy. This is deliberately a bar-source-only concern, per
// spec.md's Open Question: the core never sees or normalizes a ticker.
func NormalizeTicker(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "NQ" {
		return "QQQ"
	}
	return ticker
}

// alpacaTimeFrame maps a domain.Timeframe onto the nearest Alpaca
// TimeFrame the SDK supports natively. Sub-minute-native frames (5m, 15m,
// 4h) are approximated by the nearest coarser/finer native frame the
// vendor offers. The returned bars are stored under the requested
// timeframe as they are; nothing resamples them to that resolution.
func alpacaTimeFrame(tf domain.Timeframe) marketdata.TimeFrame {
	switch tf {
	case domain.Timeframe1Day:
		return marketdata.OneDay
	case domain.Timeframe1Hour, domain.Timeframe4Hour:
		return marketdata.OneHour
	default:
		return marketdata.OneMin
	}
}

// FetchBars fetches historical bars for symbol/timeframe from Alpaca,
// rate-limited and retried with exponential backoff on transient failure.
func (a *AlpacaBarSource) FetchBars(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time, limit int) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	symbol = NormalizeTicker(symbol)

	req := marketdata.GetBarsRequest{
		TimeFrame: alpacaTimeFrame(tf),
		Start:     start,
		End:       end,
		Feed:      "sip",
	}
	if limit > 0 {
		req.TotalLimit = limit
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var abars []marketdata.Bar
	err := util.Retry(ctx, fetchMaxAttempts, fetchBaseDelay, func() error {
		var fetchErr error
		abars, fetchErr = a.client.GetBars(symbol, req)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: alpaca GetBars(%s, %s): %v", domain.ErrTransientFetch, symbol, tf, err)
	}

	bars := make([]domain.Bar, 0, len(abars))
	for _, ab := range abars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars, nil
}

// LatestBar fetches the most recent bar for symbol/timeframe from Alpaca,
// rate-limited and retried with exponential backoff on transient failure.
func (a *AlpacaBarSource) LatestBar(ctx context.Context, symbol string, tf domain.Timeframe) (domain.Bar, bool, error) {
	if ctx.Err() != nil {
		return domain.Bar{}, false, ctx.Err()
	}
	symbol = NormalizeTicker(symbol)

	if err := a.limiter.Wait(ctx); err != nil {
		return domain.Bar{}, false, err
	}

	var ab *marketdata.Bar
	err := util.Retry(ctx, fetchMaxAttempts, fetchBaseDelay, func() error {
		var fetchErr error
		ab, fetchErr = a.client.GetLatestBar(symbol, marketdata.GetLatestBarRequest{Feed: "sip"})
		return fetchErr
	})
	if err != nil {
		return domain.Bar{}, false, fmt.Errorf("%w: alpaca GetLatestBar(%s, %s): %v", domain.ErrTransientFetch, symbol, tf, err)
	}
	if ab == nil {
		return domain.Bar{}, false, nil
	}

	return domain.Bar{
		Symbol:     symbol,
		Timestamp:  ab.Timestamp,
		Open:       ab.Open,
		High:       ab.High,
		Low:        ab.Low,
		Close:      ab.Close,
		Volume:     int64(ab.Volume),
		TradeCount: int64(ab.TradeCount),
		VWAP:       ab.VWAP,
	}, true, nil
}
