package zones

import (
	"math"
	"testing"
	"time"

	"gbmwave/internal/domain"
	"gbmwave/internal/population"
	"gbmwave/internal/simulate"
)

func syntheticPopulation(t *testing.T, prices []float64) (*population.Population, time.Time) {
	t.Helper()
	anchor := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	m := simulate.Matrix{
		Rows:     len(prices),
		Cols:     2,
		Prices:   make([]float64, len(prices)*2),
		TimeGrid: []time.Time{anchor, anchor.Add(time.Minute)},
	}
	for i, p := range prices {
		m.Prices[i*2] = p
		m.Prices[i*2+1] = p
	}
	return population.New(m), m.TimeGrid[1]
}

func repeat(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestDetectZonesScenarioFive(t *testing.T) {
	var prices []float64
	prices = append(prices, repeat(99.0, 10)...)
	prices = append(prices, repeat(100.0, 200)...)
	prices = append(prices, repeat(101.0, 10)...)

	pop, ts := syntheticPopulation(t, prices)
	zones := DetectZones(pop, ts)
	if len(zones) == 0 {
		t.Fatal("expected at least one zone")
	}

	top := zones[0]
	if math.Abs(top.Probability-200.0/220.0) > 0.01 {
		t.Errorf("top zone probability = %v, want ~%v", top.Probability, 200.0/220.0)
	}
	// With the default 50 bins over [99, 101], the 100.0 prices land in
	// the bin [100, 100.04], whose midpoint 100.02 lies above the mean of
	// exactly 100, so the zone is labeled resistance.
	if top.ZoneType != domain.ZoneResistance {
		t.Errorf("top zone type = %v, want resistance (bin midpoint above mean)", top.ZoneType)
	}
}

func TestDetectZonesEmptyBelowMinPaths(t *testing.T) {
	pop, ts := syntheticPopulation(t, repeat(100, 5))
	if zones := DetectZones(pop, ts); zones != nil {
		t.Errorf("expected nil zones below min_paths, got %v", zones)
	}
}

func TestDetectZonesProbabilitiesSumToAtMostOne(t *testing.T) {
	var prices []float64
	prices = append(prices, repeat(90, 50)...)
	prices = append(prices, repeat(100, 50)...)
	prices = append(prices, repeat(110, 50)...)

	pop, ts := syntheticPopulation(t, prices)
	zones := DetectZones(pop, ts)

	sum := 0.0
	for _, z := range zones {
		if z.Probability < 0 || z.Probability > 1 {
			t.Fatalf("probability out of range: %v", z.Probability)
		}
		if z.PriceLow > z.PriceLevel || z.PriceLevel > z.PriceHigh {
			t.Fatalf("price_level not within [low, high]: %+v", z)
		}
		sum += z.Probability
	}
	if sum > 1.0001 {
		t.Errorf("sum of probabilities = %v, want <= 1", sum)
	}
}

func TestGetConvergenceZonesTopK(t *testing.T) {
	var prices []float64
	for i := 0; i < 200; i++ {
		prices = append(prices, 100+float64(i)*0.1)
	}
	pop, ts := syntheticPopulation(t, prices)

	zones := GetConvergenceZones(pop, ts, time.Minute, 2)
	if len(zones) > 2 {
		t.Fatalf("len(zones) = %d, want <= 2", len(zones))
	}
	for _, z := range zones {
		if z.ZoneType != domain.ZoneConvergence {
			t.Errorf("zone type = %v, want convergence", z.ZoneType)
		}
	}
}

func TestDetectReversalPointsEmptyWithNoLivePaths(t *testing.T) {
	pop, ts := syntheticPopulation(t, repeat(100, 20))
	pop.Eliminate(1000, ts, 0.0001)

	if zones := DetectReversalPoints(pop, ts, time.Minute); zones != nil {
		t.Errorf("expected nil reversal zones with no live paths, got %v", zones)
	}
}
