package domain

// ZoneType classifies a Zone relative to the live population's mean price
// at the moment it was derived.
type ZoneType string

const (
	ZoneSupport     ZoneType = "support"
	ZoneResistance  ZoneType = "resistance"
	ZoneConvergence ZoneType = "convergence"
)

// Zone is a probability-weighted price interval derived from the live
// population at a reference time. It has no lifetime beyond the Snapshot
// it is part of.
type Zone struct {
	PriceLevel float64
	PriceLow   float64
	PriceHigh  float64
	// Probability is the fraction of sampled live paths that fall in
	// [PriceLow, PriceHigh]; always in [0, 1].
	Probability float64
	// PathCount is the number of live paths contributing to this zone;
	// always >= 1 for a zone that was emitted at all.
	PathCount int
	ZoneType  ZoneType
}
