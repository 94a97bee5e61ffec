// Package live implements the update loop that polls for new market
// data, eliminates implausible simulated paths, re-derives reversal
// zones, and publishes snapshots to subscribers.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gbmwave/internal/barsource"
	"gbmwave/internal/domain"
	"gbmwave/internal/population"
	"gbmwave/internal/timeframestore"
	"gbmwave/internal/zones"
)

// State is the Updater's lifecycle state.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Config holds the per-session parameters the cycle loop needs beyond
// the population and store it was constructed with.
type Config struct {
	Symbol             string
	Tolerance          float64
	UpdateInterval     time.Duration
	TopKZones          int
	ReversalLookback   time.Duration
	ConvergenceHorizon time.Duration
}

// Updater owns a Population and a Store for the lifetime of a session
// and drives the poll -> eliminate -> detect -> snapshot cycle.
type Updater struct {
	cfg    Config
	store  *timeframestore.Store
	pop    *population.Population
	source barsource.BarSource
	log    *slog.Logger

	sessionID string

	mu           sync.Mutex
	state        State
	updateCount  int
	lastSnapshot domain.Snapshot

	subsMu sync.Mutex
	subs   map[int]chan domain.Snapshot
	nextID int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an Updater bound to pop/store/source for cfg.Symbol. The
// session is assigned a fresh UUID, used to correlate snapshots across
// observers and, by the snapshot archiver, to partition archive files.
func New(cfg Config, store *timeframestore.Store, pop *population.Population, source barsource.BarSource, log *slog.Logger) *Updater {
	if cfg.TopKZones <= 0 {
		cfg.TopKZones = 5
	}
	if cfg.ReversalLookback <= 0 {
		cfg.ReversalLookback = 60 * time.Minute
	}
	if cfg.ConvergenceHorizon <= 0 {
		cfg.ConvergenceHorizon = 240 * time.Minute
	}
	return &Updater{
		cfg:       cfg,
		store:     store,
		pop:       pop,
		source:    source,
		log:       log,
		sessionID: uuid.NewString(),
		subs:      make(map[int]chan domain.Snapshot),
	}
}

// SessionID returns the UUID assigned to this updater at construction.
func (u *Updater) SessionID() string { return u.sessionID }

// State returns the current lifecycle state.
func (u *Updater) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Start transitions Stopped -> Running and begins the periodic cycle
// loop in a new goroutine. Start is a no-op if already running. The
// loop exits when ctx is cancelled or Stop is called; both are
// cooperative — the in-flight cycle always completes first.
func (u *Updater) Start(ctx context.Context) {
	u.mu.Lock()
	if u.state == Running {
		u.mu.Unlock()
		return
	}
	u.state = Running
	u.stopCh = make(chan struct{})
	u.doneCh = make(chan struct{})
	u.mu.Unlock()

	go u.loop(ctx)
}

// Stop requests the loop to exit after its current cycle and sleep are
// interrupted, then blocks until it has exited.
func (u *Updater) Stop() {
	u.mu.Lock()
	if u.state != Running {
		u.mu.Unlock()
		return
	}
	stopCh := u.stopCh
	doneCh := u.doneCh
	u.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Subscribe registers a new snapshot observer with the given buffer
// size. Delivery is non-blocking: a slow subscriber misses snapshots
// rather than stalling the cycle loop.
func (u *Updater) Subscribe(bufSize int) (id int, ch <-chan domain.Snapshot) {
	u.subsMu.Lock()
	defer u.subsMu.Unlock()
	id = u.nextID
	u.nextID++
	c := make(chan domain.Snapshot, bufSize)
	u.subs[id] = c
	return id, c
}

// Unsubscribe removes and closes a subscription.
func (u *Updater) Unsubscribe(id int) {
	u.subsMu.Lock()
	defer u.subsMu.Unlock()
	if ch, ok := u.subs[id]; ok {
		close(ch)
		delete(u.subs, id)
	}
}

// LatestSnapshot returns the most recently published snapshot.
func (u *Updater) LatestSnapshot() domain.Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastSnapshot
}

func (u *Updater) loop(ctx context.Context) {
	defer close(u.doneCh)
	defer func() {
		u.mu.Lock()
		u.state = Stopped
		u.mu.Unlock()
	}()

	for {
		u.runCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-u.stopCh:
			return
		case <-time.After(u.cfg.UpdateInterval):
		}
	}
}

// runCycle executes exactly one poll -> eliminate -> detect -> snapshot
// step. Errors are absorbed and the loop continues: a bar-refresh error
// is logged and the cycle proceeds with the latest stored 1m close, and a
// no-data snapshot is emitted when no 1m close is stored or elimination
// fails.
func (u *Updater) runCycle(ctx context.Context) {
	u.mu.Lock()
	u.updateCount++
	count := u.updateCount
	u.mu.Unlock()

	now := time.Now().UTC()

	if err := u.refreshLatestBar(ctx); err != nil {
		u.log.Warn("bar refresh failed, cycle continues with cached data",
			"session", u.sessionID, "cycle", count, "err", err)
	}

	price, ok := u.store.LatestClose(domain.Timeframe1Min)
	if !ok {
		snap := domain.Snapshot{SessionID: u.sessionID, UpdateCount: count, Timestamp: now, HasPrice: false}
		u.publish(snap)
		return
	}

	eliminated, err := u.pop.Eliminate(price, now, u.cfg.Tolerance)
	if err != nil {
		u.log.Error("eliminate failed", "session", u.sessionID, "cycle", count, "err", err)
		snap := domain.Snapshot{SessionID: u.sessionID, UpdateCount: count, Timestamp: now, HasPrice: false}
		u.publish(snap)
		return
	}

	detected := zones.DetectZones(u.pop, now)
	if len(detected) > u.cfg.TopKZones {
		detected = detected[:u.cfg.TopKZones]
	}

	stats := u.pop.Statistics()
	snap := domain.Snapshot{
		SessionID:       u.sessionID,
		UpdateCount:     count,
		Timestamp:       now,
		HasPrice:        true,
		LatestPrice:     price,
		PathsEliminated: eliminated,
		PathsActive:     stats.Live,
		PathsTotal:      stats.Total,
		SurvivalRate:    stats.SurvivalRate,
		ReversalZones:   detected,
	}
	u.publish(snap)
}

// refreshLatestBar polls every timeframe for its latest bar. Per-timeframe
// failure is non-fatal: a stuck or erroring fetch for one timeframe must
// not starve the others, since 1m — last in domain.AllTimeframes — is the
// one runCycle actually depends on via store.LatestClose.
func (u *Updater) refreshLatestBar(ctx context.Context) error {
	var firstErr error
	for _, tf := range domain.AllTimeframes {
		bar, ok, err := u.source.LatestBar(ctx, u.cfg.Symbol, tf)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("latest bar for %s: %w", tf, err)
			}
			continue
		}
		if ok {
			u.store.Append(tf, []domain.Bar{bar})
		}
	}
	return firstErr
}

// publish records the snapshot as the latest and fans it out to every
// subscriber without blocking on any one of them.
func (u *Updater) publish(snap domain.Snapshot) {
	u.mu.Lock()
	u.lastSnapshot = snap
	u.mu.Unlock()

	u.subsMu.Lock()
	for _, ch := range u.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	u.subsMu.Unlock()
}
