package util

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gbmwave/internal/domain"
)

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	l := NewLogger("bogus-level")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryReturnsLastErrorAfterExhaustion(t *testing.T) {
	wantErr := errors.New("persistent")
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Second, func() error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRateLimiterAllowsImmediateFirstCall(t *testing.T) {
	rl := NewRateLimiter(60)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestFormatCycleSummaryNoPrice(t *testing.T) {
	s := domain.Snapshot{UpdateCount: 5, HasPrice: false}
	out := FormatCycleSummary(s)
	if !strings.Contains(out, "no price data") {
		t.Errorf("FormatCycleSummary = %q, want mention of missing data", out)
	}
}

func TestFormatCycleSummaryWithPrice(t *testing.T) {
	s := domain.Snapshot{
		UpdateCount:  12,
		HasPrice:     true,
		LatestPrice:  101.25,
		PathsActive:  480,
		PathsTotal:   500,
		SurvivalRate: 0.96,
		ReversalZones: []domain.Zone{
			{ZoneType: domain.ZoneSupport, PriceLevel: 99, Probability: 0.1},
		},
	}
	out := FormatCycleSummary(s)
	if !strings.Contains(out, "101.25") || !strings.Contains(out, "480") {
		t.Errorf("FormatCycleSummary = %q, missing expected fields", out)
	}
}
