package prices

import (
	"testing"
	"time"

	"insidertracker/src/model"
)

func priceRow(ticker string, date time.Time, close float64) model.StockPrice {
	return model.StockPrice{Ticker: ticker, PriceDate: date, Close: close}
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestResolveExactDate(t *testing.T) {
	pm := BuildPriceMap([]model.StockPrice{
		priceRow("AAPL", d(2024, time.June, 10), 100),
		priceRow("AAPL", d(2024, time.June, 11), 101),
	})

	got, ok := pm.Resolve(d(2024, time.June, 10), DefaultMaxOffset)
	if !ok || got != 100 {
		t.Fatalf("exact date: got %v/%v want 100/true", got, ok)
	}
}

func TestResolvePrefersPlusOneOverMinusOne(t *testing.T) {
	// Both neighbors exist; the fixed search order tries +1 first.
	pm := PriceMap{
		"2024-06-09": 90,
		"2024-06-11": 110,
	}
	got, ok := pm.Resolve(d(2024, time.June, 10), DefaultMaxOffset)
	if !ok || got != 110 {
		t.Fatalf("offset order: got %v/%v want 110/true", got, ok)
	}
}

func TestResolveWeekendFallsBackToFriday(t *testing.T) {
	// Saturday target, only the Friday close cached.
	pm := PriceMap{"2024-06-07": 55.5}
	got, ok := pm.Resolve(d(2024, time.June, 8), DefaultMaxOffset)
	if !ok || got != 55.5 {
		t.Fatalf("weekend fallback: got %v/%v want 55.5/true", got, ok)
	}
}

func TestResolveOutsideWindow(t *testing.T) {
	// Last cached day is 10 days before the target; nothing within +/-4.
	pm := PriceMap{"2024-06-01": 70}
	if _, ok := pm.Resolve(d(2024, time.June, 11), DefaultMaxOffset); ok {
		t.Fatal("expected not-found beyond the offset bound")
	}
	// The wider snapshot window still misses.
	if _, ok := pm.Resolve(d(2024, time.June, 11), SnapshotMaxOffset); ok {
		t.Fatal("expected not-found beyond the snapshot offset bound")
	}
	// A 5-day gap is reachable only with the snapshot window.
	if _, ok := pm.Resolve(d(2024, time.June, 6), DefaultMaxOffset); ok {
		t.Fatal("5-day gap should be out of reach at +/-4")
	}
	if got, ok := pm.Resolve(d(2024, time.June, 6), SnapshotMaxOffset); !ok || got != 70 {
		t.Fatalf("5-day gap at +/-5: got %v/%v want 70/true", got, ok)
	}
}

func TestResolveEmptyMap(t *testing.T) {
	pm := PriceMap{}
	if _, ok := pm.Resolve(d(2024, time.June, 1), DefaultMaxOffset); ok {
		t.Fatal("empty map must not resolve")
	}
}
