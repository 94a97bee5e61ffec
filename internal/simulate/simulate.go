// Package simulate generates Monte Carlo Geometric Brownian Motion price
// paths from a starting price and a (mu, sigma) pair.
package simulate

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"
)

// tradingMinuteDt is the GBM time step in annualized units: one trading
// minute out of 252 trading days * 6.5 trading hours * 60 minutes. The
// produced time grid, by contrast, steps in wall-clock minutes — this
// mismatch is deliberate, not a bug; see Matrix.TimeGrid.
const tradingMinuteDt = 1.0 / (252 * 6.5 * 60)

// Request describes one path-generation call.
type Request struct {
	StartingPrice float64
	Mu            float64
	Sigma         float64
	HorizonMin    int
	NumPaths      int
	Seed          uint64
	AnchorTime    time.Time
}

// Matrix is the dense output of Generate: N paths of HorizonMin+1 prices
// each, plus the wall-clock time grid shared by every path.
type Matrix struct {
	Prices   []float64 // row-major, N rows of (HorizonMin+1) columns
	Rows     int
	Cols     int
	TimeGrid []time.Time
}

// At returns the price of path i at grid step s.
func (m Matrix) At(i, s int) float64 {
	return m.Prices[i*m.Cols+s]
}

// Generate produces req.NumPaths independent GBM trajectories of
// req.HorizonMin one-minute steps, deterministic under req.Seed.
//
// Random draws are consumed in canonical order: path 0's steps 1..H
// first, then path 1's, and so on — this is part of the contract tests
// assert. To make that ordering reproducible under goroutine fan-out,
// each path draws from its own PCG stream seeded by deriveSeed(req.Seed, i)
// rather than sharing one global stream; this preserves determinism
// without serializing path generation.
func Generate(req Request) Matrix {
	cols := req.HorizonMin + 1
	m := Matrix{
		Prices:   make([]float64, req.NumPaths*cols),
		Rows:     req.NumPaths,
		Cols:     cols,
		TimeGrid: make([]time.Time, cols),
	}
	for s := 0; s < cols; s++ {
		m.TimeGrid[s] = req.AnchorTime.Add(time.Duration(s) * time.Minute)
	}

	workers := min(runtime.GOMAXPROCS(0), req.NumPaths)
	if workers < 1 {
		workers = 1
	}

	indexCh := make(chan int, req.NumPaths)
	for i := 0; i < req.NumPaths; i++ {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				generatePath(m.Prices[i*cols:(i+1)*cols], req, i)
			}
		}()
	}
	wg.Wait()

	return m
}

// generatePath fills dst (length req.HorizonMin+1) with one GBM path
// using a PCG stream seeded deterministically from (req.Seed, pathIndex).
func generatePath(dst []float64, req Request, pathIndex int) {
	s1, s2 := deriveSeed(req.Seed, pathIndex)
	rng := rand.New(rand.NewPCG(s1, s2))

	dst[0] = req.StartingPrice
	driftTerm := (req.Mu - 0.5*req.Sigma*req.Sigma) * tradingMinuteDt
	sqrtDt := math.Sqrt(tradingMinuteDt)

	for s := 1; s < len(dst); s++ {
		eps := rng.NormFloat64()
		dW := eps * sqrtDt
		dst[s] = dst[s-1] * math.Exp(driftTerm+req.Sigma*dW)
	}
}

// deriveSeed splits a single uint64 session seed plus a path index into
// the two-word seed math/rand/v2's PCG source requires, using splitmix64
// to decorrelate adjacent path indices.
func deriveSeed(seed uint64, pathIndex int) (uint64, uint64) {
	mix := func(x uint64) uint64 {
		x += 0x9e3779b97f4a7c15
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		return x ^ (x >> 31)
	}
	base := seed + uint64(pathIndex)*0x9e3779b97f4a7c15
	return mix(base), mix(base + 1)
}
