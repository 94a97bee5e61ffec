package timeframestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gbmwave/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// BarCache persists fetched bars to a local SQLite database so a restart
// does not require re-fetching a full history window from the vendor.
// It is a write-through cache: the engine always reads from Store, and
// only consults BarCache to seed Store at startup.
type BarCache struct {
	db *sql.DB
}

// OpenBarCache opens (creating if necessary) a SQLite database at path
// and ensures its schema exists.
func OpenBarCache(path string) (*BarCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open bar cache: %w", err)
	}
	c := &BarCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *BarCache) migrate() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	ts INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER NOT NULL,
	trade_count INTEGER NOT NULL,
	vwap REAL NOT NULL,
	PRIMARY KEY (symbol, timeframe, ts)
)`)
	return err
}

// Close closes the underlying database connection.
func (c *BarCache) Close() error {
	return c.db.Close()
}

// Put upserts bars for symbol/timeframe. Existing rows with the same
// (symbol, timeframe, ts) are replaced.
func (c *BarCache) Put(ctx context.Context, symbol string, tf domain.Timeframe, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bar cache put: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO bars
	(symbol, timeframe, ts, open, high, low, close, volume, trade_count, vwap)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("bar cache put: prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, string(tf), b.Timestamp.UnixNano(),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.TradeCount, b.VWAP); err != nil {
			return fmt.Errorf("bar cache put: exec: %w", err)
		}
	}
	return tx.Commit()
}

// Get returns the cached bars for symbol/timeframe within [start, end),
// oldest first.
func (c *BarCache) Get(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time) ([]domain.Bar, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT ts, open, high, low, close, volume, trade_count, vwap
FROM bars
WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts < ?
ORDER BY ts ASC`, symbol, string(tf), start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("bar cache get: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Bar
	for rows.Next() {
		var tsNano int64
		b := domain.Bar{Symbol: symbol}
		if err := rows.Scan(&tsNano, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.TradeCount, &b.VWAP); err != nil {
			return nil, fmt.Errorf("bar cache get: scan: %w", err)
		}
		b.Timestamp = time.Unix(0, tsNano).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}
