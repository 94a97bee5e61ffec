// Package population owns the dense price matrix a simulate.Matrix
// produces and tracks which paths remain plausible as observed prices
// arrive.
package population

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gbmwave/internal/domain"
	"gbmwave/internal/simulate"
)

// Statistics summarizes the live/dead split of a Population.
type Statistics struct {
	Total        int
	Live         int
	Dead         int
	SurvivalRate float64
}

// Bounds summarizes the live prices at a single time step.
type Bounds struct {
	Min, Max, Mean, Median, Stdev float64
}

// Population owns a simulate.Matrix and the shrinking set of path
// indices still considered plausible. The live set is represented as a
// compacted slice with swap-remove, not a hash set: this is the hot loop
// elimination walks every cycle, and a slice keeps it allocation-free and
// cache-friendly.
type Population struct {
	matrix simulate.Matrix

	// live holds exactly the indices still in L, in no particular order.
	// liveSlot[i] is the position of path i within live, or -1 if path i
	// has been eliminated; this lets Eliminate remove in O(1) per path
	// via swap-with-last instead of a linear scan.
	live     []int
	liveSlot []int

	eliminatedAt map[int]time.Time
}

// New wraps matrix in a fresh Population with every path initially live.
func New(matrix simulate.Matrix) *Population {
	p := &Population{
		matrix:       matrix,
		live:         make([]int, matrix.Rows),
		liveSlot:     make([]int, matrix.Rows),
		eliminatedAt: make(map[int]time.Time),
	}
	for i := 0; i < matrix.Rows; i++ {
		p.live[i] = i
		p.liveSlot[i] = i
	}
	return p
}

// stepIndex converts a timestamp to the nearest time-grid column by
// rounding the minute offset from the anchor, clamping to the grid's
// bounds rather than failing for timestamps past the horizon.
func (p *Population) stepIndex(ts time.Time) (int, bool) {
	grid := p.matrix.TimeGrid
	if len(grid) == 0 {
		return 0, false
	}
	offsetMin := ts.Sub(grid[0]).Minutes()
	if offsetMin < -1 {
		return 0, false
	}
	s := int(math.Round(offsetMin))
	if s < 0 {
		s = 0
	}
	if s >= len(grid) {
		s = len(grid) - 1
	}
	return s, true
}

// ValueAt returns the price of path i at the grid step nearest ts. ok is
// false if i is out of range or ts lies more than one step before the
// anchor.
func (p *Population) ValueAt(i int, ts time.Time) (price float64, ok bool) {
	if i < 0 || i >= p.matrix.Rows {
		return 0, false
	}
	s, ok := p.stepIndex(ts)
	if !ok {
		return 0, false
	}
	return p.matrix.At(i, s), true
}

// AllLiveAt returns the prices of every live path at the grid step
// nearest ts, in live-set iteration order (unordered per the contract).
func (p *Population) AllLiveAt(ts time.Time) []float64 {
	s, ok := p.stepIndex(ts)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(p.live))
	for _, i := range p.live {
		out = append(out, p.matrix.At(i, s))
	}
	return out
}

// LiveIndices returns a snapshot of the currently live path indices.
func (p *Population) LiveIndices() []int {
	out := make([]int, len(p.live))
	copy(out, p.live)
	return out
}

// SegmentAt returns the prices of path i over the grid steps nearest
// [from, to], inclusive, along with the timestamps of those steps. Used
// by the zone detector's reversal-point scan, which needs a live path's
// full trajectory over a lookback window rather than a single point.
func (p *Population) SegmentAt(i int, from, to time.Time) ([]float64, []time.Time) {
	if i < 0 || i >= p.matrix.Rows {
		return nil, nil
	}
	fromStep, ok := p.stepIndex(from)
	if !ok {
		fromStep = 0
	}
	toStep, ok := p.stepIndex(to)
	if !ok {
		toStep = len(p.matrix.TimeGrid) - 1
	}
	if fromStep > toStep {
		fromStep, toStep = toStep, fromStep
	}

	prices := make([]float64, 0, toStep-fromStep+1)
	times := make([]time.Time, 0, toStep-fromStep+1)
	for s := fromStep; s <= toStep; s++ {
		prices = append(prices, p.matrix.At(i, s))
		times = append(times, p.matrix.TimeGrid[s])
	}
	return prices, times
}

// BoundsAt summarizes the live prices at ts. ok is false if no paths are
// live or ts cannot be resolved to a grid step.
func (p *Population) BoundsAt(ts time.Time) (Bounds, bool) {
	prices := p.AllLiveAt(ts)
	if len(prices) == 0 {
		return Bounds{}, false
	}
	return computeBounds(prices), true
}

func computeBounds(prices []float64) Bounds {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	min, max := sorted[0], sorted[len(sorted)-1]
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(sorted))

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	return Bounds{Min: min, Max: max, Mean: mean, Median: median, Stdev: math.Sqrt(variance)}
}

// Eliminate removes every live path whose price at ts deviates from
// observed by more than tolerance (relative), and returns the count
// removed. Calling it twice with identical arguments removes zero the
// second time, since only currently-live paths are ever inspected.
func (p *Population) Eliminate(observed float64, ts time.Time, tolerance float64) (int, error) {
	if observed <= 0 {
		return 0, fmt.Errorf("%w: observed price must be positive, got %v", domain.ErrInvalidInput, observed)
	}
	s, ok := p.stepIndex(ts)
	if !ok {
		return 0, nil
	}

	removed := 0
	// Walk live back-to-front so swap-remove doesn't skip the element
	// moved into the current slot.
	for idx := len(p.live) - 1; idx >= 0; idx-- {
		i := p.live[idx]
		price := p.matrix.At(i, s)
		deviation := math.Abs(price-observed) / observed
		if deviation > tolerance {
			p.removeAt(idx, ts)
			removed++
		}
	}
	return removed, nil
}

// removeAt swap-removes the live-slice entry at position idx.
func (p *Population) removeAt(idx int, ts time.Time) {
	i := p.live[idx]
	last := len(p.live) - 1
	p.live[idx] = p.live[last]
	p.liveSlot[p.live[idx]] = idx
	p.live = p.live[:last]
	p.liveSlot[i] = -1
	p.eliminatedAt[i] = ts
}

// Statistics reports the current live/dead split.
func (p *Population) Statistics() Statistics {
	total := p.matrix.Rows
	live := len(p.live)
	dead := total - live
	rate := 0.0
	if total > 0 {
		rate = float64(live) / float64(total)
	}
	return Statistics{Total: total, Live: live, Dead: dead, SurvivalRate: rate}
}

// LiveCount returns the number of currently live paths.
func (p *Population) LiveCount() int { return len(p.live) }

// IsLive reports whether path i is still live.
func (p *Population) IsLive(i int) bool {
	if i < 0 || i >= len(p.liveSlot) {
		return false
	}
	return p.liveSlot[i] != -1
}

// TimeGrid returns the underlying matrix's time grid.
func (p *Population) TimeGrid() []time.Time { return p.matrix.TimeGrid }
