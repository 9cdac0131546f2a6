package signals

import (
	"sort"
	"strings"
	"time"

	"insidertracker/src/model"
)

// TotalsFunc returns the all-time purchase and sale filing counts for a
// ticker, used for the sell-pressure penalty.
type TotalsFunc func(ticker string) (buys, sells int)

// PriceFunc returns the latest cached close for a ticker, nil when no
// price data exists. Absence of a price never fails the screener.
type PriceFunc func(ticker string) *float64

// Screener sort keys.
const (
	SortByConviction = "conviction"
	SortByValue      = "value"
	SortByBuyers     = "buyers"
	SortByDate       = "date"
)

// ScreenerOptions filter and order the per-ticker results. Zero values
// mean "no constraint" except Limit, which callers should always set.
type ScreenerOptions struct {
	MinScore   float64
	MinBuyers  int
	MinValue   float64
	RoleFilter []string // lowercase title substrings, any-match
	SortBy     string   // one of the SortBy constants, default conviction
	Limit      int
}

// ScreenerRow is one ranked ticker in the screener output.
type ScreenerRow struct {
	Ticker          string   `json:"ticker"`
	CompanyName     string   `json:"company_name"`
	ConvictionScore float64  `json:"conviction_score"`
	DistinctBuyers  int      `json:"distinct_buyers"`
	TotalTrades     int      `json:"total_trades"`
	TotalValue      float64  `json:"total_value"`
	TotalBuysEver   int      `json:"total_buys_ever"`
	TotalSellsEver  int      `json:"total_sells_ever"`
	LatestTradeDate *string  `json:"latest_trade_date"`
	LatestInsider   string   `json:"latest_insider"`
	LatestTitle     string   `json:"latest_title"`
	Price           *float64 `json:"price"`
	IsCluster       bool     `json:"is_cluster"`
}

// InsiderSummary is one buyer inside a cluster-buy result.
type InsiderSummary struct {
	Name  string   `json:"name"`
	Title string   `json:"title"`
	Value *float64 `json:"value"`
	Date  *string  `json:"date"`
}

// ClusterBuy reports a ticker where several distinct insiders bought
// within the window. No scoring is applied here.
type ClusterBuy struct {
	Ticker         string           `json:"ticker"`
	CompanyName    string           `json:"company_name"`
	DistinctBuyers int              `json:"distinct_buyers"`
	TotalTrades    int              `json:"total_trades"`
	TotalValue     float64          `json:"total_value"`
	FirstBuy       *string          `json:"first_buy"`
	LastBuy        *string          `json:"last_buy"`
	Price          *float64         `json:"price"`
	Insiders       []InsiderSummary `json:"insiders"`
}

// GroupByTicker partitions filings into per-ticker buckets. Each bucket
// is independent afterwards, so scoring can run per ticker in isolation.
func GroupByTicker(filings []model.InsiderTrade) map[string][]model.InsiderTrade {
	byTicker := make(map[string][]model.InsiderTrade)
	for i := range filings {
		byTicker[filings[i].Ticker] = append(byTicker[filings[i].Ticker], filings[i])
	}
	return byTicker
}

// BuildScreener groups the window's filings by ticker, scores each
// ticker's purchases and returns the filtered, sorted, truncated rows.
// Both the /signals/conviction and /signals/screener endpoints are views
// over this.
func BuildScreener(filings []model.InsiderTrade, totals TotalsFunc, price PriceFunc, opts ScreenerOptions, today time.Time) []ScreenerRow {
	rows := make([]ScreenerRow, 0)

	for ticker, trades := range GroupByTicker(filings) {
		buys := filterPurchases(trades)
		if len(opts.RoleFilter) > 0 {
			buys = filterByRole(buys, opts.RoleFilter)
		}
		if len(buys) == 0 {
			continue
		}

		distinct := DistinctBuyers(buys)
		if distinct < opts.MinBuyers {
			continue
		}

		totalValue := 0.0
		for i := range buys {
			totalValue += buys[i].AbsValue()
		}
		if opts.MinValue > 0 && totalValue < opts.MinValue {
			continue
		}

		totalBuys, totalSells := 0, 0
		if totals != nil {
			totalBuys, totalSells = totals(ticker)
		}

		score := Score(buys, totalBuys, totalSells, today)
		if score < opts.MinScore {
			continue
		}

		latest := latestFiling(buys)
		row := ScreenerRow{
			Ticker:          ticker,
			CompanyName:     trades[0].CompanyName,
			ConvictionScore: score,
			DistinctBuyers:  distinct,
			TotalTrades:     len(buys),
			TotalValue:      totalValue,
			TotalBuysEver:   totalBuys,
			TotalSellsEver:  totalSells,
			LatestInsider:   latest.InsiderName,
			LatestTitle:     latest.InsiderTitle,
			IsCluster:       distinct >= 2,
		}
		if latest.TradeDate != nil {
			ds := latest.TradeDate.Format("2006-01-02")
			row.LatestTradeDate = &ds
		}
		if price != nil {
			row.Price = price(ticker)
		}
		rows = append(rows, row)
	}

	sortRows(rows, opts.SortBy)

	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows
}

// ClusterOptions filter cluster-buy detection. MinInsiders below 2 is
// raised to 2; a single buyer is not a cluster.
type ClusterOptions struct {
	MinInsiders int
	MinValue    float64
}

// DetectClusterBuys finds tickers with at least MinInsiders distinct
// insiders purchasing within the window. Results are ordered by buyer
// count, then aggregate value, both descending.
func DetectClusterBuys(filings []model.InsiderTrade, price PriceFunc, opts ClusterOptions) []ClusterBuy {
	if opts.MinInsiders < 2 {
		opts.MinInsiders = 2
	}

	results := make([]ClusterBuy, 0)
	for ticker, trades := range GroupByTicker(filings) {
		buys := filterPurchases(trades)
		if len(buys) == 0 {
			continue
		}

		distinct := DistinctBuyers(buys)
		if distinct < opts.MinInsiders {
			continue
		}

		totalValue := 0.0
		var first, last *time.Time
		for i := range buys {
			totalValue += buys[i].AbsValue()
			if d := buys[i].TradeDate; d != nil {
				if first == nil || d.Before(*first) {
					first = d
				}
				if last == nil || d.After(*last) {
					last = d
				}
			}
		}
		if opts.MinValue > 0 && totalValue < opts.MinValue {
			continue
		}

		// largest purchases first in the insider detail list
		sort.SliceStable(buys, func(i, j int) bool {
			return buys[i].AbsValue() > buys[j].AbsValue()
		})
		insiders := make([]InsiderSummary, 0, len(buys))
		for i := range buys {
			s := InsiderSummary{
				Name:  buys[i].InsiderName,
				Title: buys[i].InsiderTitle,
				Value: buys[i].Value,
			}
			if d := buys[i].TradeDate; d != nil {
				ds := d.Format("2006-01-02")
				s.Date = &ds
			}
			insiders = append(insiders, s)
		}

		cb := ClusterBuy{
			Ticker:         ticker,
			CompanyName:    trades[0].CompanyName,
			DistinctBuyers: distinct,
			TotalTrades:    len(buys),
			TotalValue:     totalValue,
			FirstBuy:       formatDate(first),
			LastBuy:        formatDate(last),
			Insiders:       insiders,
		}
		if price != nil {
			cb.Price = price(ticker)
		}
		results = append(results, cb)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistinctBuyers != results[j].DistinctBuyers {
			return results[i].DistinctBuyers > results[j].DistinctBuyers
		}
		return results[i].TotalValue > results[j].TotalValue
	})
	return results
}

func filterPurchases(trades []model.InsiderTrade) []model.InsiderTrade {
	buys := make([]model.InsiderTrade, 0, len(trades))
	for i := range trades {
		if model.IsPurchase(trades[i].TransactionType) {
			buys = append(buys, trades[i])
		}
	}
	return buys
}

func filterByRole(trades []model.InsiderTrade, roles []string) []model.InsiderTrade {
	out := make([]model.InsiderTrade, 0, len(trades))
	for i := range trades {
		title := strings.ToLower(trades[i].InsiderTitle)
		for _, r := range roles {
			if r != "" && strings.Contains(title, r) {
				out = append(out, trades[i])
				break
			}
		}
	}
	return out
}

func latestFiling(trades []model.InsiderTrade) *model.InsiderTrade {
	latest := &trades[0]
	for i := 1; i < len(trades); i++ {
		a, b := trades[i].TradeDate, latest.TradeDate
		if b == nil || (a != nil && a.After(*b)) {
			latest = &trades[i]
		}
	}
	return latest
}

func sortRows(rows []ScreenerRow, sortBy string) {
	less := func(i, j int) bool {
		return rows[i].ConvictionScore > rows[j].ConvictionScore
	}
	switch sortBy {
	case SortByValue:
		less = func(i, j int) bool { return rows[i].TotalValue > rows[j].TotalValue }
	case SortByBuyers:
		less = func(i, j int) bool { return rows[i].DistinctBuyers > rows[j].DistinctBuyers }
	case SortByDate:
		less = func(i, j int) bool {
			return derefStr(rows[i].LatestTradeDate) > derefStr(rows[j].LatestTradeDate)
		}
	}
	sort.SliceStable(rows, less)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
