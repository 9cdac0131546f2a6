package prices

import (
	"math"
	"time"

	"insidertracker/src/model"
)

// snapshot horizons in days, mapped onto the performance columns.
const (
	horizon1W = 7
	horizon2W = 14
	horizon1M = 30
	horizon3M = 90
	horizon6M = 180
	horizon1Y = 365
)

type slot struct {
	days  int
	price **float64
	ret   **float64
}

func slots(p *model.Performance) []slot {
	return []slot{
		{horizon1W, &p.Price1W, &p.Return1W},
		{horizon2W, &p.Price2W, &p.Return2W},
		{horizon1M, &p.Price1M, &p.Return1M},
		{horizon3M, &p.Price3M, &p.Return3M},
		{horizon6M, &p.Price6M, &p.Return6M},
		{horizon1Y, &p.Price1Y, &p.Return1Y},
	}
}

// CalcReturn computes the percentage return from entry to current,
// rounded to two decimals. Nil when the entry price is unusable.
func CalcReturn(entry, current float64) *float64 {
	if entry <= 0 {
		return nil
	}
	r := math.Round((current-entry)/entry*100*100) / 100
	return &r
}

// FillMissing populates empty price/return slots on a performance
// record from the cached price history and reports how many slots were
// filled. Horizons whose target date is still in the future are
// skipped, as are slots that already hold a price, so re-running the
// backfill over all trades is always safe. A horizon with no resolvable
// price within the ±5 day window stays null until more history arrives.
func FillMissing(perf *model.Performance, trade *model.MyTrade, pm PriceMap, today time.Time) int {
	filled := 0
	entry := perf.PriceAtTrade

	for _, s := range slots(perf) {
		target := trade.TradeDate.AddDate(0, 0, s.days)
		if target.After(today) {
			continue
		}
		if *s.price != nil {
			continue
		}
		close, ok := pm.Resolve(target, SnapshotMaxOffset)
		if !ok {
			continue
		}
		v := close
		*s.price = &v
		*s.ret = CalcReturn(entry, close)
		filled++
	}
	return filled
}

// ApplyManualUpdate overwrites the provided snapshot slots with
// caller-supplied prices and recomputes their returns. Unlike
// FillMissing this does overwrite: it exists for manual corrections.
func ApplyManualUpdate(perf *model.Performance, updates *model.UpdatePerformancePayload) {
	entry := perf.PriceAtTrade
	apply := func(dst **float64, ret **float64, src *float64) {
		if src == nil {
			return
		}
		v := *src
		*dst = &v
		*ret = CalcReturn(entry, v)
	}
	apply(&perf.Price1W, &perf.Return1W, updates.Price1W)
	apply(&perf.Price2W, &perf.Return2W, updates.Price2W)
	apply(&perf.Price1M, &perf.Return1M, updates.Price1M)
	apply(&perf.Price3M, &perf.Return3M, updates.Price3M)
	apply(&perf.Price6M, &perf.Return6M, updates.Price6M)
	apply(&perf.Price1Y, &perf.Return1Y, updates.Price1Y)
}
