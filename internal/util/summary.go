package util

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"gbmwave/internal/domain"
)

// FormatCycleSummary renders the one-line-per-cycle summary the engine
// prints: price, live/total, eliminated this cycle, survival rate, and
// the top zones.
func FormatCycleSummary(s domain.Snapshot) string {
	if !s.HasPrice {
		return fmt.Sprintf("cycle %s: no price data available", humanize.Comma(int64(s.UpdateCount)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s | price $%.2f | live %s/%s (%.1f%%) | eliminated %s",
		humanize.Comma(int64(s.UpdateCount)),
		s.LatestPrice,
		humanize.Comma(int64(s.PathsActive)),
		humanize.Comma(int64(s.PathsTotal)),
		s.SurvivalRate*100,
		humanize.Comma(int64(s.PathsEliminated)),
	)

	if len(s.ReversalZones) > 0 {
		b.WriteString(" | zones:")
		for _, z := range s.ReversalZones {
			fmt.Fprintf(&b, " %s@$%.2f(%.0f%%)", z.ZoneType, z.PriceLevel, z.Probability*100)
		}
	}
	return b.String()
}

// FormatFinalSummary renders the terminal summary emitted when a session
// stops.
func FormatFinalSummary(s domain.Snapshot) string {
	return fmt.Sprintf(
		"session ended after %s cycles | final survival rate %.1f%% (%s/%s live)",
		humanize.Comma(int64(s.UpdateCount)),
		s.SurvivalRate*100,
		humanize.Comma(int64(s.PathsActive)),
		humanize.Comma(int64(s.PathsTotal)),
	)
}
