package signals

import (
	"testing"

	"insidertracker/src/model"
)

func saleFiling(ticker, name string, value float64, daysAgo int) model.InsiderTrade {
	f := filing(ticker, name, "CEO", value, daysAgo)
	f.TransactionType = model.TxSale
	return f
}

func noTotals(string) (int, int) { return 1, 0 }

func TestBuildScreenerRanksByScore(t *testing.T) {
	filings := []model.InsiderTrade{
		filing("BIG", "Alice Smith", "CEO", 500_000, 1),
		filing("BIG", "Bob Jones", "CFO", 300_000, 2),
		filing("SML", "Carol White", "Director", 50_000, 3),
	}

	rows := BuildScreener(filings, noTotals, nil, ScreenerOptions{Limit: 10}, testToday)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Ticker != "BIG" || rows[1].Ticker != "SML" {
		t.Fatalf("unexpected order: %s, %s", rows[0].Ticker, rows[1].Ticker)
	}
	if !rows[0].IsCluster {
		t.Fatal("BIG has two distinct buyers, expected cluster flag")
	}
	if rows[1].IsCluster {
		t.Fatal("SML has one buyer, cluster flag must be false")
	}
	if rows[0].TotalValue != 800_000 {
		t.Fatalf("BIG total value: got %v want 800000", rows[0].TotalValue)
	}
	if rows[0].LatestInsider != "Alice Smith" {
		t.Fatalf("latest insider: got %s want Alice Smith", rows[0].LatestInsider)
	}
}

func TestBuildScreenerIgnoresSales(t *testing.T) {
	filings := []model.InsiderTrade{
		saleFiling("DMP", "Alice Smith", 900_000, 1),
	}
	rows := BuildScreener(filings, noTotals, nil, ScreenerOptions{Limit: 10}, testToday)
	if len(rows) != 0 {
		t.Fatalf("sale-only ticker should not appear, got %+v", rows)
	}
}

func TestBuildScreenerFilters(t *testing.T) {
	filings := []model.InsiderTrade{
		filing("AAA", "Alice Smith", "CEO", 400_000, 1),
		filing("BBB", "Bob Jones", "Director", 40_000, 1),
		filing("BBB", "Carol White", "Director", 40_000, 1),
	}

	rows := BuildScreener(filings, noTotals, nil, ScreenerOptions{MinBuyers: 2, Limit: 10}, testToday)
	if len(rows) != 1 || rows[0].Ticker != "BBB" {
		t.Fatalf("MinBuyers filter failed: %+v", rows)
	}

	rows = BuildScreener(filings, noTotals, nil, ScreenerOptions{MinValue: 100_000, Limit: 10}, testToday)
	if len(rows) != 1 || rows[0].Ticker != "AAA" {
		t.Fatalf("MinValue filter failed: %+v", rows)
	}

	rows = BuildScreener(filings, noTotals, nil, ScreenerOptions{MinScore: 1000, Limit: 10}, testToday)
	if len(rows) != 0 {
		t.Fatalf("MinScore filter failed: %+v", rows)
	}

	rows = BuildScreener(filings, noTotals, nil, ScreenerOptions{RoleFilter: []string{"ceo"}, Limit: 10}, testToday)
	if len(rows) != 1 || rows[0].Ticker != "AAA" {
		t.Fatalf("RoleFilter failed: %+v", rows)
	}
}

func TestBuildScreenerSortKeysAndLimit(t *testing.T) {
	filings := []model.InsiderTrade{
		filing("OLD", "Alice Smith", "CEO", 900_000, 300),
		filing("NEW", "Bob Jones", "Director", 10_000, 1),
		filing("MID", "Carol White", "Director", 50_000, 30),
		filing("MID", "Dan Green", "Director", 50_000, 30),
	}

	byValue := BuildScreener(filings, noTotals, nil, ScreenerOptions{SortBy: SortByValue, Limit: 10}, testToday)
	if byValue[0].Ticker != "OLD" {
		t.Fatalf("sort by value: got %s first", byValue[0].Ticker)
	}

	byBuyers := BuildScreener(filings, noTotals, nil, ScreenerOptions{SortBy: SortByBuyers, Limit: 10}, testToday)
	if byBuyers[0].Ticker != "MID" {
		t.Fatalf("sort by buyers: got %s first", byBuyers[0].Ticker)
	}

	byDate := BuildScreener(filings, noTotals, nil, ScreenerOptions{SortBy: SortByDate, Limit: 10}, testToday)
	if byDate[0].Ticker != "NEW" {
		t.Fatalf("sort by date: got %s first", byDate[0].Ticker)
	}

	limited := BuildScreener(filings, noTotals, nil, ScreenerOptions{Limit: 1}, testToday)
	if len(limited) != 1 {
		t.Fatalf("limit not applied, got %d rows", len(limited))
	}
}

func TestBuildScreenerUsesTotalsAndPrice(t *testing.T) {
	filings := []model.InsiderTrade{
		filing("ACME", "Alice Smith", "CEO", 100_000, 0),
	}
	totals := func(ticker string) (int, int) { return 7, 3 }
	px := 42.5
	price := func(ticker string) *float64 { return &px }

	rows := BuildScreener(filings, totals, price, ScreenerOptions{Limit: 10}, testToday)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].TotalBuysEver != 7 || rows[0].TotalSellsEver != 3 {
		t.Fatalf("totals not carried through: %+v", rows[0])
	}
	if rows[0].Price == nil || *rows[0].Price != 42.5 {
		t.Fatalf("price not carried through: %+v", rows[0].Price)
	}
	// penalty: sells 3 of 10 -> multiplier 0.7, score 3.0 * 0.7 = 2.1
	if rows[0].ConvictionScore != 2.1 {
		t.Fatalf("score with penalty: got %v want 2.1", rows[0].ConvictionScore)
	}
}

func TestDetectClusterBuys(t *testing.T) {
	filings := []model.InsiderTrade{
		filing("CLU", "Alice Smith", "CEO", 100_000, 5),
		filing("CLU", "Bob Jones", "CFO", 200_000, 2),
		filing("CLU", "Carol White", "Director", 50_000, 9),
		filing("DUO", "Dan Green", "Director", 80_000, 4),
		filing("DUO", "Eve Black", "Director", 70_000, 6),
		filing("SOLO", "Frank Gray", "CEO", 999_000, 1),
		saleFiling("CLU", "Gary Blue", 500_000, 1),
	}

	results := DetectClusterBuys(filings, nil, ClusterOptions{MinInsiders: 2})
	if len(results) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(results), results)
	}
	if results[0].Ticker != "CLU" || results[0].DistinctBuyers != 3 {
		t.Fatalf("first cluster should be CLU with 3 buyers, got %+v", results[0])
	}
	if results[0].TotalValue != 350_000 {
		t.Fatalf("CLU total value: got %v want 350000 (sale excluded)", results[0].TotalValue)
	}
	if *results[0].FirstBuy >= *results[0].LastBuy {
		t.Fatalf("first/last buy window wrong: %s .. %s", *results[0].FirstBuy, *results[0].LastBuy)
	}
	// insiders listed by descending value
	if results[0].Insiders[0].Name != "Bob Jones" {
		t.Fatalf("insiders should be sorted by value, got %s first", results[0].Insiders[0].Name)
	}

	strict := DetectClusterBuys(filings, nil, ClusterOptions{MinInsiders: 3})
	if len(strict) != 1 || strict[0].Ticker != "CLU" {
		t.Fatalf("MinInsiders=3 should keep only CLU, got %+v", strict)
	}

	raised := DetectClusterBuys(filings, nil, ClusterOptions{MinInsiders: 0})
	if len(raised) != 2 {
		t.Fatalf("MinInsiders below 2 should be raised to 2, got %d", len(raised))
	}
}
