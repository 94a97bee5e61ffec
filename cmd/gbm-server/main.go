// Command gbm-server wires a live GBM forecasting session end to end:
// config, bar source, timeframe store, parameter estimation, path
// generation, the live updater loop, and the HTTP/gRPC session API.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gbmwave/internal/archive"
	"gbmwave/internal/barsource"
	"gbmwave/internal/calendar"
	"gbmwave/internal/config"
	"gbmwave/internal/domain"
	"gbmwave/internal/estimator"
	"gbmwave/internal/live"
	"gbmwave/internal/population"
	"gbmwave/internal/sessionapi"
	"gbmwave/internal/simulate"
	"gbmwave/internal/timeframestore"
	"gbmwave/internal/util"
)

func main() {
	cfgPath := "config/gbmwave.yaml"
	if p := os.Getenv("GBM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gbm-server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	symbol := barsource.NormalizeTicker(cfg.Session.Ticker)

	var source barsource.BarSource
	if cfg.Alpaca.APIKey != "" {
		source = barsource.NewAlpacaBarSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	} else {
		logger.Warn("no alpaca credentials configured, running against an empty replay bar source")
		source = barsource.NewReplayBarSource()
	}

	store := timeframestore.New(symbol)

	var cache *timeframestore.BarCache
	if cfg.Storage.SQLitePath != "" {
		c, err := timeframestore.OpenBarCache(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("open bar cache: %w", err)
		}
		defer c.Close()
		cache = c
	}

	if err := seedHistory(ctx, cfg, symbol, source, store, cache, logger); err != nil {
		return fmt.Errorf("%w: seed history: %v", domain.ErrDataUnavailable, err)
	}

	est := estimator.Estimate(store)
	if est.Selected.Source == "" {
		return fmt.Errorf("%w: parameter estimator found no usable timeframe", domain.ErrDataUnavailable)
	}
	logger.Info("estimated parameters",
		"symbol", symbol, "mu", est.Selected.Mu, "sigma", est.Selected.Sigma, "source", est.Selected.Source)

	anchorPrice, anchorTime, err := resolveAnchor(cfg.Session.StartingPrice, store)
	if err != nil {
		return fmt.Errorf("%w: resolve anchor: %v", domain.ErrDataUnavailable, err)
	}
	logger.Info("resolved anchor", "price", anchorPrice, "time", anchorTime)

	seed := rand.Uint64()
	if cfg.Session.Seed != nil {
		seed = *cfg.Session.Seed
	}

	matrix := simulate.Generate(simulate.Request{
		StartingPrice: anchorPrice,
		Mu:            est.Selected.Mu,
		Sigma:         est.Selected.Sigma,
		HorizonMin:    cfg.Session.ForecastHorizonMinutes,
		NumPaths:      cfg.Session.NumPaths,
		Seed:          seed,
		AnchorTime:    anchorTime,
	})
	pop := population.New(matrix)

	updaterCfg := live.Config{
		Symbol:         symbol,
		Tolerance:      cfg.Session.Tolerance,
		UpdateInterval: time.Duration(cfg.Session.UpdateIntervalSeconds) * time.Second,
		TopKZones:      cfg.Session.TopKZones,
	}
	updater := live.New(updaterCfg, store, pop, source, logger)
	updater.Start(ctx)
	defer func() {
		updater.Stop()
		fmt.Println(util.FormatFinalSummary(updater.LatestSnapshot()))
	}()

	go printCycleSummaries(ctx, updater)

	if cfg.Storage.DataDir != "" {
		go runArchiver(ctx, updater, archive.New(cfg.Storage.DataDir), logger)
	}

	srv := sessionapi.NewServer(cfg.Server.HTTPAddr, cfg.Server.GRPCAddr, updater, logger)
	return srv.ListenAndServe(ctx)
}

// printCycleSummaries prints the one-line-per-cycle summary to stdout for
// every snapshot the updater publishes, per the user-visible behavior
// the engine is required to provide.
func printCycleSummaries(ctx context.Context, updater *live.Updater) {
	id, ch := updater.Subscribe(16)
	defer updater.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			fmt.Println(util.FormatCycleSummary(snap))
		}
	}
}

// seedHistory loads history_days of bars for every timeframe: first from
// the local BarCache, then from the live bar source, writing fetched bars
// back into the cache for next time.
func seedHistory(ctx context.Context, cfg *config.Config, symbol string, source barsource.BarSource, store *timeframestore.Store, cache *timeframestore.BarCache, logger *slog.Logger) error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -cfg.Session.HistoryDays)

	for _, tf := range domain.AllTimeframes {
		if cache != nil {
			if cached, err := cache.Get(ctx, symbol, tf, start, end); err == nil && len(cached) > 0 {
				store.Append(tf, cached)
			}
		}

		bars, err := source.FetchBars(ctx, symbol, tf, start, end, 0)
		if err != nil {
			logger.Warn("history fetch failed for timeframe, continuing with cached data", "timeframe", tf, "err", err)
			continue
		}
		store.Append(tf, bars)
		if cache != nil && len(bars) > 0 {
			if err := cache.Put(ctx, symbol, tf, bars); err != nil {
				logger.Warn("bar cache write failed", "timeframe", tf, "err", err)
			}
		}
	}
	return nil
}

// resolveAnchor interprets the starting_price configuration option:
// "weekly-open" / "daily-open" resolve via the market calendar against the
// daily series already loaded into store; a numeric literal is used as-is
// anchored to now.
func resolveAnchor(startingPrice string, store *timeframestore.Store) (price float64, anchor time.Time, err error) {
	now := time.Now().UTC()

	switch startingPrice {
	case "weekly-open":
		mkt := calendar.New()
		anchor = mkt.WeeklyOpen(now)
		price, ok := closestDailyClose(store, anchor)
		if !ok {
			return 0, time.Time{}, fmt.Errorf("no daily bar available at or before weekly open %s", anchor)
		}
		return price, anchor, nil

	case "daily-open":
		mkt := calendar.New()
		anchor = mkt.DailyOpen(now)
		price, ok := closestDailyClose(store, anchor)
		if !ok {
			return 0, time.Time{}, fmt.Errorf("no daily bar available at or before daily open %s", anchor)
		}
		return price, anchor, nil

	default:
		p, parseErr := strconv.ParseFloat(startingPrice, 64)
		if parseErr != nil {
			return 0, time.Time{}, fmt.Errorf("unparsable starting_price %q: %w", startingPrice, parseErr)
		}
		return p, now, nil
	}
}

// closestDailyClose returns the close of the most recent daily bar at or
// before ts.
func closestDailyClose(store *timeframestore.Store, ts time.Time) (float64, bool) {
	bars := store.Series(domain.Timeframe1Day)
	var best *domain.Bar
	for i := range bars {
		if bars[i].Timestamp.After(ts) {
			continue
		}
		if best == nil || bars[i].Timestamp.After(best.Timestamp) {
			best = &bars[i]
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Close, true
}

// runArchiver persists every published snapshot to Parquet until ctx is
// cancelled. Archive failures are logged and do not affect the live loop.
func runArchiver(ctx context.Context, updater *live.Updater, archiver *archive.Archiver, logger *slog.Logger) {
	id, ch := updater.Subscribe(16)
	defer updater.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := archiver.Write(snap); err != nil {
				logger.Warn("archive write failed", "session", snap.SessionID, "err", err)
			}
		}
	}
}
