package repository

import (
	"context"
	"errors"
	"time"

	"insidertracker/src/database"
	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockPriceRepository is the cache layer for daily price history.
type StockPriceRepository struct {
	db *gorm.DB
}

func NewStockPriceRepository() *StockPriceRepository {
	logger.WithField("component", "StockPriceRepository").
		Info("Creating new StockPriceRepository with MainDB")

	return &StockPriceRepository{db: database.MainDB}
}

func (r *StockPriceRepository) WithDB(db *gorm.DB) *StockPriceRepository {
	return &StockPriceRepository{db: db}
}

// History returns all cached bars for a ticker in date order.
func (r *StockPriceRepository) History(ctx context.Context, ticker string) ([]model.StockPrice, error) {
	var rows []model.StockPrice
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("price_date").
		Find(&rows).Error
	return rows, err
}

// LatestClose returns the most recent cached bar for a ticker, nil when
// the cache has never seen it.
func (r *StockPriceRepository) LatestClose(ctx context.Context, ticker string) (*model.StockPrice, error) {
	var row model.StockPrice
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("price_date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// IsFresh reports whether the ticker was fetched within maxAge. A
// ticker with no rows is never fresh.
func (r *StockPriceRepository) IsFresh(ctx context.Context, ticker string, maxAge time.Duration, now time.Time) (bool, error) {
	var row model.StockPrice
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("fetched_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Sub(row.FetchedAt) < maxAge, nil
}

// UpsertBars bulk-writes fetched daily bars, replacing any existing row
// for the same (ticker, price_date) and refreshing its fetch timestamp.
func (r *StockPriceRepository) UpsertBars(ctx context.Context, ticker string, bars []model.DailyBar, fetchedAt time.Time) error {
	if len(bars) == 0 {
		return nil
	}

	rows := make([]model.StockPrice, 0, len(bars))
	for i := range bars {
		b := bars[i]
		open, high, low, volume := b.Open, b.High, b.Low, b.Volume
		rows = append(rows, model.StockPrice{
			Ticker:    ticker,
			PriceDate: b.Date,
			Open:      &open,
			High:      &high,
			Low:       &low,
			Close:     b.Close,
			Volume:    &volume,
			FetchedAt: fetchedAt,
		})
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}, {Name: "price_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "fetched_at"}),
		}).
		CreateInBatches(rows, 500).Error
}
