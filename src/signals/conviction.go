// Package signals aggregates insider filings per ticker into ranked
// screener output: a conviction score weighing trade value, insider
// seniority, recency, cluster effect and sell pressure.
package signals

import (
	"math"
	"strings"
	"time"

	"insidertracker/src/model"
)

// roleWeight pairs a title keyword with its seniority multiplier.
// The table is checked in order and the first substring match wins, so
// "ceo" outranks "officer" for a title like "CEO & Chief Officer".
type roleWeight struct {
	keyword string
	weight  float64
}

var roleWeights = []roleWeight{
	{"ceo", 3.0},
	{"cfo", 2.5},
	{"president", 2.5},
	{"coo", 2.0},
	{"director", 1.5},
	{"officer", 1.2},
	{"vp", 1.2},
}

const defaultRoleWeight = 1.0

// RoleWeight maps an insider title to its seniority multiplier.
func RoleWeight(title string) float64 {
	if title == "" {
		return defaultRoleWeight
	}
	t := strings.ToLower(title)
	for _, rw := range roleWeights {
		if strings.Contains(t, rw.keyword) {
			return rw.weight
		}
	}
	return defaultRoleWeight
}

// RecencyFactor decays linearly over a year, floored at 0.1. Filings
// without a trade date count as a year old.
func RecencyFactor(tradeDate *time.Time, today time.Time) float64 {
	daysAgo := 365.0
	if tradeDate != nil {
		daysAgo = today.Sub(*tradeDate).Hours() / 24
	}
	return math.Max(0.1, 1.0-daysAgo/365.0)
}

// Score computes the conviction score for one ticker's purchase filings
// within the look-back window.
//
// Per-filing contribution is (|value| / 100k) x role weight x recency.
// The sum gets a cluster bonus for multiple distinct buyers (x1.5 for
// three or more, x1.2 for exactly two) and a sell-pressure penalty of
// max(0.3, 1 - sells/(buys+sells)) computed over all-time counts.
func Score(filings []model.InsiderTrade, totalBuys, totalSells int, today time.Time) float64 {
	if len(filings) == 0 {
		return 0
	}

	score := 0.0
	buyers := make(map[string]struct{})
	for i := range filings {
		f := &filings[i]
		buyers[f.InsiderName] = struct{}{}
		score += (f.AbsValue() / 100_000) * RoleWeight(f.InsiderTitle) * RecencyFactor(f.TradeDate, today)
	}

	switch {
	case len(buyers) >= 3:
		score *= 1.5
	case len(buyers) == 2:
		score *= 1.2
	}

	if totalSells > 0 && totalBuys > 0 {
		sellRatio := float64(totalSells) / float64(totalBuys+totalSells)
		score *= math.Max(0.3, 1.0-sellRatio)
	}

	return math.Round(score*100) / 100
}

// DistinctBuyers counts unique insider names among filings.
func DistinctBuyers(filings []model.InsiderTrade) int {
	buyers := make(map[string]struct{}, len(filings))
	for i := range filings {
		buyers[filings[i].InsiderName] = struct{}{}
	}
	return len(buyers)
}
