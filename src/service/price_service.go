package service

import (
	"context"
	"sync"
	"time"

	"insidertracker/src/model"
	"insidertracker/src/prices"
	"insidertracker/src/repository"

	logger "github.com/sirupsen/logrus"
)

// FreshnessTTL is how long a ticker's cached history counts as fresh.
const FreshnessTTL = 24 * time.Hour

// BarFetcher is the slice of the market-data client the price service
// needs. Satisfied by connectors.AlphaVantageClient.
type BarFetcher interface {
	FetchDaily(ticker, outputSize string) ([]model.DailyBar, error)
}

// priceStore is the repository surface the service reads and writes.
type priceStore interface {
	History(ctx context.Context, ticker string) ([]model.StockPrice, error)
	LatestClose(ctx context.Context, ticker string) (*model.StockPrice, error)
	IsFresh(ctx context.Context, ticker string, maxAge time.Duration, now time.Time) (bool, error)
	UpsertBars(ctx context.Context, ticker string, bars []model.DailyBar, fetchedAt time.Time) error
}

// PriceService serves price history cache-first, refreshing stale
// tickers from the upstream provider. A per-ticker lock keeps
// concurrent requests for the same ticker down to one upstream fetch.
type PriceService struct {
	store   priceStore
	fetcher BarFetcher
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPriceService(store *repository.StockPriceRepository, fetcher BarFetcher) *PriceService {
	logger.WithField("component", "PriceService").
		Info("Creating new PriceService")

	return &PriceService{
		store:   store,
		fetcher: fetcher,
		now:     time.Now,
		locks:   map[string]*sync.Mutex{},
	}
}

func (s *PriceService) tickerLock(ticker string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[ticker]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ticker] = l
	}
	return l
}

// History returns the daily history for a ticker, fetching from the
// provider when the cache is stale or empty. When the upstream fails
// the stale cache is served instead; only a cold cache plus a failed
// fetch yields an empty result.
func (s *PriceService) History(ctx context.Context, ticker string) ([]model.StockPrice, error) {
	lock := s.tickerLock(ticker)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	fresh, err := s.store.IsFresh(ctx, ticker, FreshnessTTL, now)
	if err != nil {
		return nil, err
	}
	if fresh {
		return s.store.History(ctx, ticker)
	}

	if err := s.refreshLocked(ctx, ticker, "full", now); err != nil {
		logger.WithError(err).WithField("ticker", ticker).
			Warn("[PriceService] upstream fetch failed, serving cached history")
	}
	return s.store.History(ctx, ticker)
}

// Refresh forces an upstream fetch regardless of cache freshness.
func (s *PriceService) Refresh(ctx context.Context, ticker string) (int, error) {
	lock := s.tickerLock(ticker)
	lock.Lock()
	defer lock.Unlock()

	if err := s.refreshLocked(ctx, ticker, "full", s.now()); err != nil {
		return 0, err
	}
	rows, err := s.store.History(ctx, ticker)
	return len(rows), err
}

func (s *PriceService) refreshLocked(ctx context.Context, ticker, outputSize string, now time.Time) error {
	bars, err := s.fetcher.FetchDaily(ticker, outputSize)
	if err != nil {
		return err
	}
	if err := s.store.UpsertBars(ctx, ticker, bars, now); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"component": "PriceService",
		"ticker":    ticker,
		"bars":      len(bars),
	}).Info("Refreshed price cache")

	return nil
}

// LatestClose returns the newest cached close for a ticker, refreshing
// first if stale. Nil when no price is known at all.
func (s *PriceService) LatestClose(ctx context.Context, ticker string) (*model.StockPrice, error) {
	if _, err := s.History(ctx, ticker); err != nil {
		return nil, err
	}
	return s.store.LatestClose(ctx, ticker)
}

// PriceMap loads the cached history for a ticker as a date lookup,
// refreshing first when stale.
func (s *PriceService) PriceMap(ctx context.Context, ticker string) (prices.PriceMap, error) {
	rows, err := s.History(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return prices.BuildPriceMap(rows), nil
}
