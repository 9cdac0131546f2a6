// Package portfolio replays a user's personal trade log into per-ticker
// positions using average-cost-basis accounting.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
)

// ErrInvalidTrade is returned when a trade carries a non-finite or
// negative shares/price value. Malformed numbers are a contract
// violation and fail fast; data-quality issues (oversells) never error.
var ErrInvalidTrade = errors.New("invalid trade input")

// Quote is the latest known close for a ticker.
type Quote struct {
	Close float64
	Date  time.Time
}

// QuoteFunc resolves the latest cached price for a ticker. The second
// return is false when no price is known; the position is then reported
// with null market value rather than failing.
type QuoteFunc func(ticker string) (Quote, bool)

// Position is the derived state of one ticker after replaying all trades.
// It is computed on demand and never persisted.
type Position struct {
	Ticker        string   `json:"ticker"`
	Shares        float64  `json:"shares"`
	AvgCost       float64  `json:"avg_cost"`
	CostBasis     float64  `json:"cost_basis"`
	CurrentPrice  *float64 `json:"current_price"`
	PriceDate     *string  `json:"price_date"`
	CurrentValue  *float64 `json:"current_value"`
	UnrealizedPnl *float64 `json:"unrealized_pnl"`
	UnrealizedPct *float64 `json:"unrealized_pct"`
	RealizedPnl   float64  `json:"realized_pnl"`
	TotalPnl      float64  `json:"total_pnl"`
	TradeCount    int      `json:"trade_count"`
	FirstBuyDate  *string  `json:"first_buy_date"`
	LastTradeDate *string  `json:"last_trade_date"`
	IsOpen        bool     `json:"is_open"`
}

// Summary aggregates the whole portfolio for the dashboard header.
type Summary struct {
	TotalPortfolioValue float64 `json:"total_portfolio_value"`
	TotalCostBasis      float64 `json:"total_cost_basis"`
	TotalUnrealizedPnl  float64 `json:"total_unrealized_pnl"`
	TotalUnrealizedPct  float64 `json:"total_unrealized_pct"`
	TotalRealizedPnl    float64 `json:"total_realized_pnl"`
	TotalPnl            float64 `json:"total_pnl"`
	OpenPositions       int     `json:"open_positions"`
	ClosedPositions     int     `json:"closed_positions"`
}

// running holding state per ticker, unrounded until output.
type holding struct {
	shares      float64
	costBasis   float64
	realizedPnl float64
	tradeCount  int
	firstBuy    *time.Time
	lastTrade   *time.Time
}

// ComputePositions folds trades into one Position per ticker.
//
// Trades are replayed in ascending trade_date order, ties broken by
// ascending record ID, i.e. insertion order. Same-day buy-then-sell
// therefore realizes P&L against the basis including that day's earlier
// entries. Sells beyond the held share count are clamped to what is
// held: the source data may be missing older buys, so an oversell is a
// data anomaly, not an error.
func ComputePositions(trades []model.MyTrade, quote QuoteFunc) ([]Position, error) {
	for i := range trades {
		if err := validateTrade(&trades[i]); err != nil {
			return nil, err
		}
	}

	ordered := make([]model.MyTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TradeDate.Equal(ordered[j].TradeDate) {
			return ordered[i].TradeDate.Before(ordered[j].TradeDate)
		}
		return ordered[i].ID < ordered[j].ID
	})

	holdings := make(map[string]*holding)
	for i := range ordered {
		t := &ordered[i]
		h := holdings[t.Ticker]
		if h == nil {
			h = &holding{}
			holdings[t.Ticker] = h
		}
		h.tradeCount++
		d := t.TradeDate
		h.lastTrade = &d

		switch t.TradeType {
		case model.TradeTypeBuy:
			h.shares += t.Shares
			h.costBasis += t.Shares * t.Price
			if h.firstBuy == nil {
				h.firstBuy = &d
			}
		case model.TradeTypeSell:
			if h.shares <= 0 {
				logger.WithFields(logger.Fields{
					"ticker":    t.Ticker,
					"requested": t.Shares,
					"held":      h.shares,
				}).Warn("sell against empty position skipped")
				continue
			}
			avgCost := h.costBasis / h.shares
			soldQty := math.Min(t.Shares, h.shares)
			if soldQty < t.Shares {
				logger.WithFields(logger.Fields{
					"ticker":    t.Ticker,
					"requested": t.Shares,
					"held":      h.shares,
				}).Warn("oversell clamped to held shares")
			}
			h.realizedPnl += soldQty * (t.Price - avgCost)
			h.costBasis -= soldQty * avgCost
			h.shares -= soldQty
			// absorb floating point drift
			h.shares = math.Max(h.shares, 0)
			h.costBasis = math.Max(h.costBasis, 0)
		}
	}

	positions := make([]Position, 0, len(holdings))
	for ticker, h := range holdings {
		positions = append(positions, buildPosition(ticker, h, quote))
	}

	// Open positions first by descending market value, closed ones
	// after by descending realized P&L.
	sort.SliceStable(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.IsOpen != b.IsOpen {
			return a.IsOpen
		}
		if a.IsOpen {
			return deref(a.CurrentValue) > deref(b.CurrentValue)
		}
		return a.RealizedPnl > b.RealizedPnl
	})

	return positions, nil
}

// Summarize rolls positions up into the portfolio totals. Only open
// positions contribute to value and cost basis; realized P&L counts all.
func Summarize(positions []Position) Summary {
	var s Summary
	var value, cost, realized float64
	for i := range positions {
		p := &positions[i]
		if p.IsOpen {
			s.OpenPositions++
			value += deref(p.CurrentValue)
			cost += p.CostBasis
		} else {
			s.ClosedPositions++
		}
		realized += p.RealizedPnl
	}
	unrealized := round2(value - cost)
	s.TotalPortfolioValue = round2(value)
	s.TotalCostBasis = round2(cost)
	s.TotalUnrealizedPnl = unrealized
	if cost > 0 {
		s.TotalUnrealizedPct = round2(unrealized / cost * 100)
	}
	s.TotalRealizedPnl = round2(realized)
	s.TotalPnl = round2(unrealized + realized)
	return s
}

func buildPosition(ticker string, h *holding, quote QuoteFunc) Position {
	p := Position{
		Ticker:        ticker,
		Shares:        round6(h.shares),
		CostBasis:     round2(h.costBasis),
		RealizedPnl:   round2(h.realizedPnl),
		TradeCount:    h.tradeCount,
		FirstBuyDate:  dateString(h.firstBuy),
		LastTradeDate: dateString(h.lastTrade),
	}
	p.IsOpen = p.Shares > 0
	if p.Shares > 0 {
		p.AvgCost = round4(p.CostBasis / p.Shares)
	}

	if quote != nil {
		if q, ok := quote(ticker); ok {
			price := q.Close
			p.CurrentPrice = &price
			ds := q.Date.Format("2006-01-02")
			p.PriceDate = &ds
			if p.Shares > 0 {
				value := round2(p.Shares * price)
				p.CurrentValue = &value
				unreal := round2(value - p.CostBasis)
				p.UnrealizedPnl = &unreal
				if p.CostBasis > 0 {
					pct := round2(unreal / p.CostBasis * 100)
					p.UnrealizedPct = &pct
				}
			}
		}
	}

	p.TotalPnl = round2(deref(p.UnrealizedPnl) + h.realizedPnl)
	return p
}

func validateTrade(t *model.MyTrade) error {
	if t.Shares <= 0 || math.IsNaN(t.Shares) || math.IsInf(t.Shares, 0) {
		return fmt.Errorf("%w: trade %d has shares %v", ErrInvalidTrade, t.ID, t.Shares)
	}
	if t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("%w: trade %d has price %v", ErrInvalidTrade, t.ID, t.Price)
	}
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
