package population

import (
	"errors"
	"testing"
	"time"

	"gbmwave/internal/domain"
	"gbmwave/internal/simulate"
)

func degenerateMatrix(n, h int, price float64) simulate.Matrix {
	anchor := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	return simulate.Generate(simulate.Request{
		StartingPrice: price,
		Mu:            0,
		Sigma:         0,
		HorizonMin:    h,
		NumPaths:      n,
		Seed:          0,
		AnchorTime:    anchor,
	})
}

func TestDeterministicTinyRunScenario(t *testing.T) {
	m := degenerateMatrix(3, 2, 100)
	p := New(m)

	removed, err := p.Eliminate(105, m.TimeGrid[1], 0.01)
	if err != nil {
		t.Fatalf("Eliminate: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	stats := p.Statistics()
	if stats.Live != 0 {
		t.Errorf("Live = %d, want 0", stats.Live)
	}
}

func TestEliminateIdempotent(t *testing.T) {
	m := degenerateMatrix(10, 5, 100)
	p := New(m)

	first, _ := p.Eliminate(105, m.TimeGrid[1], 0.01)
	second, _ := p.Eliminate(105, m.TimeGrid[1], 0.01)

	if first == 0 {
		t.Fatal("expected nonzero elimination on first call")
	}
	if second != 0 {
		t.Errorf("second call removed %d, want 0", second)
	}
}

func TestEliminateRejectsNonPositiveObserved(t *testing.T) {
	m := degenerateMatrix(3, 2, 100)
	p := New(m)

	_, err := p.Eliminate(0, m.TimeGrid[1], 0.01)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestEliminateKeepsExactMatchRegardlessOfTolerance(t *testing.T) {
	m := degenerateMatrix(1, 2, 100)
	p := New(m)

	removed, err := p.Eliminate(100, m.TimeGrid[1], 0.0)
	if err != nil {
		t.Fatalf("Eliminate: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 for exact match", removed)
	}
	if p.Statistics().Live != 1 {
		t.Errorf("expected path to survive exact-match elimination")
	}
}

func TestLiveSetShrinksMonotonically(t *testing.T) {
	m := degenerateMatrix(500, 10, 100)
	p := New(m)

	prev := p.Statistics().Live
	for s := 1; s <= 10; s++ {
		// vary observed price slightly each step to eliminate a few more
		observed := 100 + float64(s)*2
		p.Eliminate(observed, m.TimeGrid[s], 0.01)
		cur := p.Statistics().Live
		if cur > prev {
			t.Fatalf("live count increased at step %d: %d -> %d", s, prev, cur)
		}
		prev = cur
	}
}

func TestStatisticsTotalsConserved(t *testing.T) {
	m := degenerateMatrix(50, 5, 100)
	p := New(m)
	p.Eliminate(200, m.TimeGrid[1], 0.01)

	stats := p.Statistics()
	if stats.Live+stats.Dead != stats.Total {
		t.Errorf("live + dead = %d, want %d", stats.Live+stats.Dead, stats.Total)
	}
}

func TestBoundsAtEmptyWhenAllEliminated(t *testing.T) {
	m := degenerateMatrix(3, 2, 100)
	p := New(m)
	p.Eliminate(500, m.TimeGrid[1], 0.01)

	if _, ok := p.BoundsAt(m.TimeGrid[1]); ok {
		t.Error("expected BoundsAt to report no bounds once population is empty")
	}
}

func TestValueAtOutOfRangeIndex(t *testing.T) {
	m := degenerateMatrix(3, 2, 100)
	p := New(m)

	if _, ok := p.ValueAt(99, m.TimeGrid[0]); ok {
		t.Error("expected ValueAt to fail for out-of-range path index")
	}
}

func TestSingleStepHorizonHasTwoGridPoints(t *testing.T) {
	m := degenerateMatrix(2, 1, 100)
	if len(m.TimeGrid) != 2 {
		t.Fatalf("len(TimeGrid) = %d, want 2", len(m.TimeGrid))
	}
}
