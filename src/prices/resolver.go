// Package prices resolves closing prices against the cached daily
// history and fills post-trade performance snapshots.
package prices

import (
	"time"

	"insidertracker/src/model"
)

const dateLayout = "2006-01-02"

// DefaultMaxOffset bounds the nearest-trading-day search for ad hoc
// lookups; snapshot filling widens it to SnapshotMaxOffset.
const (
	DefaultMaxOffset  = 4
	SnapshotMaxOffset = 5
)

// PriceMap is a ticker-scoped date -> close lookup, keyed YYYY-MM-DD.
type PriceMap map[string]float64

// BuildPriceMap indexes cached price rows by date.
func BuildPriceMap(rows []model.StockPrice) PriceMap {
	m := make(PriceMap, len(rows))
	for i := range rows {
		m[rows[i].PriceDate.Format(dateLayout)] = rows[i].Close
	}
	return m
}

// Resolve returns the close on the target date, or the nearest day
// within maxOffset calendar days. Offsets are tried in the fixed order
// +1, -1, +2, -2, ... so the search approximates "nearest trading day"
// without a market calendar, tolerating weekends and holidays. The
// second return is false when nothing matches; missing price data is an
// expected steady state, not an error.
func (m PriceMap) Resolve(target time.Time, maxOffset int) (float64, bool) {
	if len(m) == 0 {
		return 0, false
	}
	if maxOffset <= 0 {
		maxOffset = DefaultMaxOffset
	}
	if close, ok := m[target.Format(dateLayout)]; ok {
		return close, true
	}
	for delta := 1; delta <= maxOffset; delta++ {
		if close, ok := m[target.AddDate(0, 0, delta).Format(dateLayout)]; ok {
			return close, true
		}
		if close, ok := m[target.AddDate(0, 0, -delta).Format(dateLayout)]; ok {
			return close, true
		}
	}
	return 0, false
}
