package prices

import (
	"testing"
	"time"

	"insidertracker/src/model"
)

// full year of weekday closes at a fixed price so every horizon resolves.
func flatHistory(from time.Time, days int, close float64) PriceMap {
	pm := make(PriceMap)
	for i := 0; i <= days; i++ {
		day := from.AddDate(0, 0, i)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		pm[day.Format("2006-01-02")] = close
	}
	return pm
}

func TestFillMissingAllHorizons(t *testing.T) {
	tradeDate := d(2023, time.January, 10)
	trade := &model.MyTrade{Ticker: "AAPL", TradeDate: tradeDate, Price: 100}
	perf := &model.Performance{Ticker: "AAPL", PriceAtTrade: 100}
	pm := flatHistory(tradeDate, 400, 110)
	today := tradeDate.AddDate(2, 0, 0)

	filled := FillMissing(perf, trade, pm, today)
	if filled != 6 {
		t.Fatalf("filled: got %d want 6", filled)
	}
	for _, p := range []*float64{perf.Price1W, perf.Price2W, perf.Price1M, perf.Price3M, perf.Price6M, perf.Price1Y} {
		if p == nil || *p != 110 {
			t.Fatalf("expected every price slot at 110, got %+v", perf)
		}
	}
	for _, r := range []*float64{perf.Return1W, perf.Return2W, perf.Return1M, perf.Return3M, perf.Return6M, perf.Return1Y} {
		if r == nil || *r != 10 {
			t.Fatalf("expected every return at 10%%, got %+v", perf)
		}
	}
}

func TestFillMissingSkipsFutureHorizons(t *testing.T) {
	tradeDate := d(2024, time.March, 1)
	trade := &model.MyTrade{Ticker: "AAPL", TradeDate: tradeDate, Price: 100}
	perf := &model.Performance{Ticker: "AAPL", PriceAtTrade: 100}
	pm := flatHistory(tradeDate, 400, 105)

	// 20 days later only the 1w and 2w horizons have passed.
	today := tradeDate.AddDate(0, 0, 20)
	filled := FillMissing(perf, trade, pm, today)
	if filled != 2 {
		t.Fatalf("filled: got %d want 2", filled)
	}
	if perf.Price1W == nil || perf.Price2W == nil {
		t.Fatalf("1w/2w should be filled, got %+v", perf)
	}
	if perf.Price1M != nil || perf.Price1Y != nil {
		t.Fatalf("future horizons must stay null, got %+v", perf)
	}
}

func TestFillMissingIsIdempotent(t *testing.T) {
	tradeDate := d(2023, time.May, 2)
	trade := &model.MyTrade{Ticker: "MSFT", TradeDate: tradeDate, Price: 50}
	perf := &model.Performance{Ticker: "MSFT", PriceAtTrade: 50}
	pm := flatHistory(tradeDate, 400, 60)
	today := tradeDate.AddDate(2, 0, 0)

	first := FillMissing(perf, trade, pm, today)
	if first == 0 {
		t.Fatal("first run should fill slots")
	}
	snapshot := *perf

	second := FillMissing(perf, trade, pm, today)
	if second != 0 {
		t.Fatalf("second run filled %d slots, want 0", second)
	}
	if *perf != snapshot {
		t.Fatalf("second run mutated the record: %+v vs %+v", perf, snapshot)
	}
}

func TestFillMissingNeverOverwrites(t *testing.T) {
	tradeDate := d(2023, time.May, 2)
	trade := &model.MyTrade{Ticker: "MSFT", TradeDate: tradeDate, Price: 50}
	manual := 99.0
	manualRet := 98.0
	perf := &model.Performance{Ticker: "MSFT", PriceAtTrade: 50, Price1W: &manual, Return1W: &manualRet}
	pm := flatHistory(tradeDate, 400, 60)

	FillMissing(perf, trade, pm, tradeDate.AddDate(2, 0, 0))
	if *perf.Price1W != 99 || *perf.Return1W != 98 {
		t.Fatalf("pre-filled slot was overwritten: %+v", perf)
	}
}

func TestFillMissingNoPriceData(t *testing.T) {
	tradeDate := d(2023, time.May, 2)
	trade := &model.MyTrade{Ticker: "MSFT", TradeDate: tradeDate, Price: 50}
	perf := &model.Performance{Ticker: "MSFT", PriceAtTrade: 50}

	// Cache ends well before the first horizon date.
	pm := PriceMap{"2023-05-02": 50}
	filled := FillMissing(perf, trade, pm, tradeDate.AddDate(1, 0, 0))
	if filled != 0 {
		t.Fatalf("nothing should fill without resolvable prices, got %d", filled)
	}
	if perf.Price1W != nil || perf.Return1W != nil {
		t.Fatalf("slots must stay null, got %+v", perf)
	}
}

func TestFillMissingZeroEntryLeavesReturnNull(t *testing.T) {
	tradeDate := d(2023, time.May, 2)
	trade := &model.MyTrade{Ticker: "MSFT", TradeDate: tradeDate, Price: 0}
	perf := &model.Performance{Ticker: "MSFT", PriceAtTrade: 0}
	pm := flatHistory(tradeDate, 400, 60)

	filled := FillMissing(perf, trade, pm, tradeDate.AddDate(2, 0, 0))
	if filled == 0 {
		t.Fatal("prices should still fill with a zero entry price")
	}
	if perf.Price1W == nil {
		t.Fatal("price slot should be set")
	}
	if perf.Return1W != nil {
		t.Fatalf("return must stay null when entry price is zero, got %v", *perf.Return1W)
	}
}

func TestCalcReturn(t *testing.T) {
	tests := []struct {
		entry, current float64
		want           *float64
	}{
		{100, 110, f(10)},
		{100, 90, f(-10)},
		{3, 10, f(233.33)},
		{0, 10, nil},
		{-5, 10, nil},
	}
	for _, tt := range tests {
		got := CalcReturn(tt.entry, tt.current)
		switch {
		case tt.want == nil && got != nil:
			t.Fatalf("CalcReturn(%v, %v) = %v, want nil", tt.entry, tt.current, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Fatalf("CalcReturn(%v, %v) = %v, want %v", tt.entry, tt.current, got, *tt.want)
		}
	}
}

func TestApplyManualUpdate(t *testing.T) {
	old := 80.0
	perf := &model.Performance{PriceAtTrade: 100, Price1M: &old}
	p1m := 120.0
	ApplyManualUpdate(perf, &model.UpdatePerformancePayload{Price1M: &p1m})

	if perf.Price1M == nil || *perf.Price1M != 120 {
		t.Fatalf("manual update should overwrite, got %+v", perf.Price1M)
	}
	if perf.Return1M == nil || *perf.Return1M != 20 {
		t.Fatalf("return should be recomputed, got %+v", perf.Return1M)
	}
	if perf.Price1W != nil {
		t.Fatal("untouched slots must stay null")
	}
}

func f(v float64) *float64 { return &v }
