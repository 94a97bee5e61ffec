// Package archive persists snapshots to Parquet files for offline
// analysis. It is a pure consumer of the Live Updater's snapshot
// pub/sub hub: nothing in the core engine depends on it.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"gbmwave/internal/domain"
)

// ZoneRecord is the Parquet schema for a single archived zone, flattened
// one row per (snapshot, zone) pair so a snapshot with no zones still
// produces one row with zero-valued zone fields.
type ZoneRecord struct {
	SessionID       string  `parquet:"session_id"`
	UpdateCount     int64   `parquet:"update_count"`
	Timestamp       int64   `parquet:"timestamp,timestamp(millisecond)"`
	HasPrice        bool    `parquet:"has_price"`
	LatestPrice     float64 `parquet:"latest_price"`
	PathsEliminated int64   `parquet:"paths_eliminated"`
	PathsActive     int64   `parquet:"paths_active"`
	PathsTotal      int64   `parquet:"paths_total"`
	SurvivalRate    float64 `parquet:"survival_rate"`
	ZonePriceLevel  float64 `parquet:"zone_price_level"`
	ZonePriceLow    float64 `parquet:"zone_price_low"`
	ZonePriceHigh   float64 `parquet:"zone_price_high"`
	ZoneProbability float64 `parquet:"zone_probability"`
	ZonePathCount   int64   `parquet:"zone_path_count"`
	ZoneType        string  `parquet:"zone_type"`
}

// Archiver writes Snapshot values to Parquet files on disk, partitioned
// by session and calendar year.
type Archiver struct {
	DataDir string
}

// New creates an Archiver rooted at dataDir.
func New(dataDir string) *Archiver {
	return &Archiver{DataDir: dataDir}
}

// Write appends snap's rows to the session's current-year Parquet file,
// merging with any existing rows for that file so repeated writes within
// the same year accumulate rather than overwrite.
func (a *Archiver) Write(snap domain.Snapshot) error {
	records := toRecords(snap)
	path := a.path(snap.SessionID, snap.Timestamp)

	existing, _ := readFile(path)
	merged := mergeRecords(existing, records)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive write: mkdir: %w", err)
	}
	if err := parquet.WriteFile(path, merged); err != nil {
		return fmt.Errorf("archive write: %w", err)
	}
	return nil
}

func toRecords(snap domain.Snapshot) []ZoneRecord {
	base := ZoneRecord{
		SessionID:       snap.SessionID,
		UpdateCount:     int64(snap.UpdateCount),
		Timestamp:       snap.Timestamp.UnixMilli(),
		HasPrice:        snap.HasPrice,
		LatestPrice:     snap.LatestPrice,
		PathsEliminated: int64(snap.PathsEliminated),
		PathsActive:     int64(snap.PathsActive),
		PathsTotal:      int64(snap.PathsTotal),
		SurvivalRate:    snap.SurvivalRate,
	}
	if len(snap.ReversalZones) == 0 {
		return []ZoneRecord{base}
	}

	records := make([]ZoneRecord, len(snap.ReversalZones))
	for i, z := range snap.ReversalZones {
		r := base
		r.ZonePriceLevel = z.PriceLevel
		r.ZonePriceLow = z.PriceLow
		r.ZonePriceHigh = z.PriceHigh
		r.ZoneProbability = z.Probability
		r.ZonePathCount = int64(z.PathCount)
		r.ZoneType = string(z.ZoneType)
		records[i] = r
	}
	return records
}

func (a *Archiver) path(sessionID string, ts time.Time) string {
	year := fmt.Sprintf("%d", ts.Year())
	return filepath.Join(a.DataDir, strings.ToUpper(sessionID), year+".parquet")
}

func readFile(path string) ([]ZoneRecord, error) {
	rows, err := parquet.ReadFile[ZoneRecord](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeRecords deduplicates by (update_count, zone_price_level),
// preferring incoming records over existing ones, and sorts by
// (update_count, zone_price_level) for deterministic file contents.
func mergeRecords(existing, incoming []ZoneRecord) []ZoneRecord {
	type key struct {
		updateCount int64
		priceLevel  float64
	}
	seen := make(map[key]ZoneRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.UpdateCount, r.ZonePriceLevel}] = r
	}
	for _, r := range incoming {
		seen[key{r.UpdateCount, r.ZonePriceLevel}] = r
	}

	merged := make([]ZoneRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sortRecords(merged)
	return merged
}

func sortRecords(records []ZoneRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].UpdateCount != records[j].UpdateCount {
			return records[i].UpdateCount < records[j].UpdateCount
		}
		return records[i].ZonePriceLevel < records[j].ZonePriceLevel
	})
}
