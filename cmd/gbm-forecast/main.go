// Command gbm-forecast is the legacy one-shot single-path forecaster: it
// generates exactly one GBM path from flag-supplied parameters and prints
// a table of prices over the forecast horizon. It does not run the live
// elimination loop and is intentionally out of the core engine's scope.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"gbmwave/internal/simulate"
)

func main() {
	startingPrice := flag.Float64("price", 100, "starting price")
	mu := flag.Float64("mu", 0, "annualized drift")
	sigma := flag.Float64("sigma", 0.2, "annualized volatility")
	horizon := flag.Int("horizon", 60, "forecast horizon in minutes")
	seed := flag.Uint64("seed", 0, "RNG seed (0 picks a random seed)")
	flag.Parse()

	s := *seed
	if s == 0 {
		s = rand.Uint64()
	}

	matrix := simulate.Generate(simulate.Request{
		StartingPrice: *startingPrice,
		Mu:            *mu,
		Sigma:         *sigma,
		HorizonMin:    *horizon,
		NumPaths:      1,
		Seed:          s,
		AnchorTime:    time.Now().UTC(),
	})

	fmt.Printf("%-25s %s\n", "timestamp", "price")
	for step := 0; step < matrix.Cols; step++ {
		fmt.Printf("%-25s %.4f\n", matrix.TimeGrid[step].Format(time.RFC3339), matrix.At(0, step))
	}
}
