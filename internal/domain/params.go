package domain

// Parameters is an annualized drift/volatility pair derived from one
// timeframe's historical returns. Sigma is always non-negative; both
// fields are required to be finite.
type Parameters struct {
	Mu    float64
	Sigma float64
	// Source is the timeframe the estimate was derived from.
	Source Timeframe
}
