package repository

import (
	"context"
	"time"

	"insidertracker/src/database"
	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MyTradeRepository handles the user's personal trade log and the
// performance records that hang off it.
type MyTradeRepository struct {
	db *gorm.DB
}

func NewMyTradeRepository() *MyTradeRepository {
	logger.WithField("component", "MyTradeRepository").
		Info("Creating new MyTradeRepository with MainDB")

	return &MyTradeRepository{db: database.MainDB}
}

func (r *MyTradeRepository) WithDB(db *gorm.DB) *MyTradeRepository {
	return &MyTradeRepository{db: db}
}

type MyTradeSearchOptions struct {
	UserID    uint
	Ticker    string
	TradeType string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// Search lists a user's trades with filters, most recent first, each
// with its performance record preloaded.
func (r *MyTradeRepository) Search(ctx context.Context, opts MyTradeSearchOptions) ([]model.MyTrade, error) {
	q := r.db.WithContext(ctx).
		Preload("Performance").
		Where("user_id = ?", opts.UserID)
	if opts.Ticker != "" {
		q = q.Where("ticker = ?", opts.Ticker)
	}
	if opts.TradeType != "" {
		q = q.Where("trade_type = ?", opts.TradeType)
	}
	if opts.DateFrom != nil {
		q = q.Where("trade_date >= ?", *opts.DateFrom)
	}
	if opts.DateTo != nil {
		q = q.Where("trade_date <= ?", *opts.DateTo)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var rows []model.MyTrade
	err := q.Order("trade_date DESC").Offset(opts.Offset).Find(&rows).Error
	return rows, err
}

// ListForUser returns all of a user's trades in chronological order,
// the replay input for the position ledger.
func (r *MyTradeRepository) ListForUser(ctx context.Context, userID uint) ([]model.MyTrade, error) {
	var rows []model.MyTrade
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("trade_date, id").
		Find(&rows).Error
	return rows, err
}

// ListByTicker returns a user's trades for one ticker, oldest first.
func (r *MyTradeRepository) ListByTicker(ctx context.Context, userID uint, ticker string) ([]model.MyTrade, error) {
	var rows []model.MyTrade
	err := r.db.WithContext(ctx).
		Preload("Performance").
		Where("user_id = ? AND ticker = ?", userID, ticker).
		Order("trade_date, id").
		Find(&rows).Error
	return rows, err
}

// FindByID fetches one trade scoped to its owner.
func (r *MyTradeRepository) FindByID(ctx context.Context, id, userID uint) (*model.MyTrade, error) {
	var row model.MyTrade
	err := r.db.WithContext(ctx).
		Preload("Performance").
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateWithPerformance inserts the trade and its performance record in
// one transaction so the pair either exists completely or not at all.
func (r *MyTradeRepository) CreateWithPerformance(ctx context.Context, trade *model.MyTrade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		perf := &model.Performance{
			MyTradeID:    trade.ID,
			Ticker:       trade.Ticker,
			PriceAtTrade: trade.Price,
		}
		if err := tx.Create(perf).Error; err != nil {
			return err
		}
		trade.Performance = perf
		return nil
	})
}

// Correct applies a post-hoc fix to shares, price or notes. Total value
// is recomputed and a price change propagates to the performance entry
// price, all within one transaction.
func (r *MyTradeRepository) Correct(ctx context.Context, trade *model.MyTrade, updates *model.UpdateMyTradePayload) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if updates.Notes != nil {
			trade.Notes = *updates.Notes
		}
		if updates.Shares != nil {
			trade.Shares = *updates.Shares
		}
		if updates.Price != nil {
			trade.Price = *updates.Price
		}
		trade.TotalValue = model.ComputeTotalValue(trade.Shares, trade.Price)

		if err := tx.Save(trade).Error; err != nil {
			return err
		}

		if updates.Price != nil && trade.Performance != nil {
			trade.Performance.PriceAtTrade = *updates.Price
			if err := tx.Save(trade.Performance).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a trade and its performance record together.
func (r *MyTradeRepository) Delete(ctx context.Context, trade *model.MyTrade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("my_trade_id = ?", trade.ID).Delete(&model.Performance{}).Error; err != nil {
			return err
		}
		return tx.Delete(trade).Error
	})
}

// ListAll returns every trade with its performance record, the working
// set for the snapshot backfill job.
func (r *MyTradeRepository) ListAll(ctx context.Context) ([]model.MyTrade, error) {
	var rows []model.MyTrade
	err := r.db.WithContext(ctx).
		Preload("Performance").
		Order("ticker, trade_date").
		Find(&rows).Error
	return rows, err
}

// CountAll counts all personal trades across users.
func (r *MyTradeRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.MyTrade{}).Count(&count).Error
	return count, err
}

// DistinctTickerCount counts tickers with at least one personal trade.
func (r *MyTradeRepository) DistinctTickerCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MyTrade{}).
		Distinct("ticker").
		Count(&count).Error
	return count, err
}
