package live

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"gbmwave/internal/barsource"
	"gbmwave/internal/domain"
	"gbmwave/internal/population"
	"gbmwave/internal/simulate"
	"gbmwave/internal/timeframestore"
	"gbmwave/internal/util"
)

// erroringSource fails LatestBar for every timeframe in failOn, and defers
// to the wrapped ReplayBarSource for everything else.
type erroringSource struct {
	*barsource.ReplayBarSource
	failOn map[domain.Timeframe]bool
}

func (e *erroringSource) LatestBar(ctx context.Context, symbol string, tf domain.Timeframe) (domain.Bar, bool, error) {
	if e.failOn[tf] {
		return domain.Bar{}, false, errors.New("simulated upstream failure")
	}
	return e.ReplayBarSource.LatestBar(ctx, symbol, tf)
}

func newTestUpdater(t *testing.T) (*Updater, *barsource.ReplayBarSource) {
	t.Helper()
	anchor := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)

	m := simulate.Generate(simulate.Request{
		StartingPrice: 100,
		Mu:            0,
		Sigma:         0,
		HorizonMin:    10,
		NumPaths:      20,
		Seed:          1,
		AnchorTime:    anchor,
	})
	pop := population.New(m)
	store := timeframestore.New("QQQ")
	source := barsource.NewReplayBarSource()
	source.AddBars("QQQ", domain.Timeframe1Min, []domain.Bar{
		{Symbol: "QQQ", Timestamp: anchor, Close: 100},
	})

	cfg := Config{
		Symbol:         "QQQ",
		Tolerance:      0.01,
		UpdateInterval: 10 * time.Millisecond,
		TopKZones:      5,
	}
	u := New(cfg, store, pop, source, util.NewLogger("error"))
	return u, source
}

func TestUpdaterStartStopLifecycle(t *testing.T) {
	u, _ := newTestUpdater(t)
	if u.State() != Stopped {
		t.Fatalf("initial state = %v, want Stopped", u.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	if u.State() != Running {
		t.Fatalf("state after Start = %v, want Running", u.State())
	}

	u.Stop()
	if u.State() != Stopped {
		t.Fatalf("state after Stop = %v, want Stopped", u.State())
	}
}

func TestUpdaterStartIsIdempotent(t *testing.T) {
	u, _ := newTestUpdater(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u.Start(ctx)
	u.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	u.Stop()
}

func TestUpdaterPublishesSnapshotsToSubscribers(t *testing.T) {
	u, _ := newTestUpdater(t)
	id, ch := u.Subscribe(4)
	defer u.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u.Start(ctx)
	defer u.Stop()

	select {
	case snap := <-ch:
		if snap.SessionID != u.SessionID() {
			t.Errorf("snapshot SessionID = %q, want %q", snap.SessionID, u.SessionID())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestUpdaterNoDataSnapshotWhenPriceUnavailable(t *testing.T) {
	anchor := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	m := simulate.Generate(simulate.Request{StartingPrice: 100, HorizonMin: 5, NumPaths: 5, Seed: 0, AnchorTime: anchor})
	pop := population.New(m)
	store := timeframestore.New("QQQ")
	source := barsource.NewReplayBarSource() // no bars loaded

	cfg := Config{Symbol: "QQQ", Tolerance: 0.01, UpdateInterval: time.Hour}
	u := New(cfg, store, pop, source, slog.Default())

	u.runCycle(context.Background())
	snap := u.LatestSnapshot()
	if snap.HasPrice {
		t.Error("expected HasPrice = false with no bars available")
	}
	if snap.PathsEliminated != 0 {
		t.Errorf("PathsEliminated = %d, want 0", snap.PathsEliminated)
	}
}

func TestRefreshLatestBarIsolatesPerTimeframeFailure(t *testing.T) {
	anchor := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	replay := barsource.NewReplayBarSource()
	replay.AddBars("QQQ", domain.Timeframe1Min, []domain.Bar{
		{Symbol: "QQQ", Timestamp: anchor, Close: 123.45},
	})
	source := &erroringSource{
		ReplayBarSource: replay,
		failOn: map[domain.Timeframe]bool{
			domain.Timeframe1Day:  true,
			domain.Timeframe4Hour: true,
			domain.Timeframe1Hour: true,
		},
	}

	m := simulate.Generate(simulate.Request{StartingPrice: 100, HorizonMin: 5, NumPaths: 5, Seed: 0, AnchorTime: anchor})
	pop := population.New(m)
	store := timeframestore.New("QQQ")
	cfg := Config{Symbol: "QQQ", Tolerance: 0.01, UpdateInterval: time.Hour}
	u := New(cfg, store, pop, source, slog.Default())

	err := u.refreshLatestBar(context.Background())
	if err == nil {
		t.Fatal("expected a non-nil error reporting the failed timeframes")
	}

	price, ok := store.LatestClose(domain.Timeframe1Min)
	if !ok {
		t.Fatal("expected 1m close to be populated despite earlier timeframe failures")
	}
	if price != 123.45 {
		t.Errorf("LatestClose(1m) = %v, want 123.45", price)
	}
}

func TestUpdaterSessionIDIsUniquePerInstance(t *testing.T) {
	u1, _ := newTestUpdater(t)
	u2, _ := newTestUpdater(t)
	if u1.SessionID() == u2.SessionID() {
		t.Error("expected distinct session IDs across Updater instances")
	}
}
