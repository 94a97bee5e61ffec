// Command gbm-cli is a thin HTTP client for a running gbm-server session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"gbmwave/pkg/gbmwave"
)

const version = "0.1.0"

func main() {
	addr := flag.String("addr", "http://localhost:8080", "gbm-server HTTP address")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gbm-cli [-addr url] <command>\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  status     Show session health\n")
		fmt.Fprintf(os.Stderr, "  snapshot   Print the latest snapshot summary\n")
		fmt.Fprintf(os.Stderr, "  zones      List the current reversal zones\n")
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := gbmwave.NewClient(*addr)

	switch args[0] {
	case "version":
		fmt.Printf("gbm-cli %s\n", version)

	case "status":
		ok, err := client.Healthy(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
		if ok {
			fmt.Println("status: healthy")
		} else {
			fmt.Println("status: not ready")
			os.Exit(1)
		}

	case "snapshot":
		snap, err := client.Snapshot(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			os.Exit(1)
		}
		if !snap.HasPrice {
			fmt.Println("no price data available yet")
			return
		}
		fmt.Printf("cycle %d @ %s: price=%.2f live=%s/%s (%.1f%%) eliminated=%d\n",
			snap.UpdateCount, snap.Timestamp.Format(time.RFC3339), snap.LatestPrice,
			humanize.Comma(int64(snap.PathsActive)), humanize.Comma(int64(snap.PathsTotal)),
			snap.SurvivalRate*100, snap.PathsEliminated)

	case "zones":
		zones, err := client.Zones(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zones: %v\n", err)
			os.Exit(1)
		}
		if len(zones) == 0 {
			fmt.Println("no zones detected yet")
			return
		}
		for _, z := range zones {
			fmt.Printf("%-11s level=%.2f [%.2f, %.2f] p=%.3f paths=%d\n",
				z.ZoneType, z.PriceLevel, z.PriceLow, z.PriceHigh, z.Probability, z.PathCount)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}
