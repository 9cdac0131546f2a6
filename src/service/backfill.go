package service

import (
	"context"
	"time"

	"insidertracker/src/model"
	"insidertracker/src/prices"
	"insidertracker/src/repository"

	logger "github.com/sirupsen/logrus"
)

type tradeLister interface {
	ListAll(ctx context.Context) ([]model.MyTrade, error)
}

type performanceSaver interface {
	Save(ctx context.Context, perf *model.Performance) error
}

type priceMapper interface {
	PriceMap(ctx context.Context, ticker string) (prices.PriceMap, error)
}

// BackfillResult summarizes one snapshot backfill run.
type BackfillResult struct {
	TradesChecked int `json:"trades_checked"`
	TradesUpdated int `json:"trades_updated"`
	SlotsFilled   int `json:"slots_filled"`
	Errors        int `json:"errors"`
}

// BackfillService walks every personal trade and fills whatever
// performance snapshot slots its price history can now answer. Safe to
// run repeatedly; filled slots are never touched again.
type BackfillService struct {
	trades       tradeLister
	performances performanceSaver
	priceMaps    priceMapper
	now          func() time.Time
}

func NewBackfillService(trades *repository.MyTradeRepository, performances *repository.PerformanceRepository, priceService *PriceService) *BackfillService {
	logger.WithField("component", "BackfillService").
		Info("Creating new BackfillService")

	return &BackfillService{
		trades:       trades,
		performances: performances,
		priceMaps:    priceService,
		now:          time.Now,
	}
}

// Run executes the backfill sequentially. Price maps are loaded once
// per ticker; a ticker whose history cannot be loaded is skipped and
// counted, never fatal.
func (s *BackfillService) Run(ctx context.Context) (*BackfillResult, error) {
	trades, err := s.trades.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{}
	today := s.now()
	maps := map[string]prices.PriceMap{}

	for i := range trades {
		trade := &trades[i]
		if trade.Performance == nil {
			continue
		}
		result.TradesChecked++

		pm, ok := maps[trade.Ticker]
		if !ok {
			pm, err = s.priceMaps.PriceMap(ctx, trade.Ticker)
			if err != nil {
				logger.WithError(err).WithField("ticker", trade.Ticker).
					Warn("[BackfillService] could not load price history, skipping ticker")
				pm = prices.PriceMap{}
				result.Errors++
			}
			maps[trade.Ticker] = pm
		}

		filled := prices.FillMissing(trade.Performance, trade, pm, today)
		if filled == 0 {
			continue
		}
		if err := s.performances.Save(ctx, trade.Performance); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"trade_id": trade.ID,
				"ticker":   trade.Ticker,
			}).Error("[BackfillService] failed to persist snapshot")
			result.Errors++
			continue
		}
		result.TradesUpdated++
		result.SlotsFilled += filled
	}

	logger.WithFields(logger.Fields{
		"component": "BackfillService",
		"checked":   result.TradesChecked,
		"updated":   result.TradesUpdated,
		"filled":    result.SlotsFilled,
		"errors":    result.Errors,
	}).Info("Snapshot backfill completed")

	return result, nil
}
