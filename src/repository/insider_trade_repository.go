package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"insidertracker/src/database"
	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Spellings used by openinsider.com for the two transaction types the
// signal queries care about.
var (
	PurchaseTypes = []string{"P", "P - Purchase", "Purchase"}
	SaleTypes     = []string{"S", "S - Sale", "Sale"}
)

// InsiderTradeRepository handles reads and ingestion writes for scraped
// SEC Form 4 filings.
type InsiderTradeRepository struct {
	db *gorm.DB
}

func NewInsiderTradeRepository() *InsiderTradeRepository {
	logger.WithField("component", "InsiderTradeRepository").
		Info("Creating new InsiderTradeRepository with MainDB")

	return &InsiderTradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *InsiderTradeRepository) WithDB(db *gorm.DB) *InsiderTradeRepository {
	return &InsiderTradeRepository{db: db}
}

// InsiderTradeSearchOptions are the optional filters for Search and
// Count. Nil / zero fields are skipped.
type InsiderTradeSearchOptions struct {
	Ticker          string
	InsiderName     string
	TransactionType string
	DateFrom        *time.Time
	DateTo          *time.Time
	MinValue        *float64
	MaxValue        *float64
	Limit           int
	Offset          int
}

func (o *InsiderTradeSearchOptions) apply(q *gorm.DB) *gorm.DB {
	if o.Ticker != "" {
		q = q.Where("ticker = ?", o.Ticker)
	}
	if o.InsiderName != "" {
		q = q.Where("LOWER(insider_name) LIKE ?", "%"+strings.ToLower(o.InsiderName)+"%")
	}
	if o.TransactionType != "" {
		q = q.Where("transaction_type = ?", o.TransactionType)
	}
	if o.DateFrom != nil {
		q = q.Where("trade_date >= ?", *o.DateFrom)
	}
	if o.DateTo != nil {
		q = q.Where("trade_date <= ?", *o.DateTo)
	}
	if o.MinValue != nil {
		q = q.Where("value >= ?", *o.MinValue)
	}
	if o.MaxValue != nil {
		q = q.Where("value <= ?", *o.MaxValue)
	}
	return q
}

// Search lists filings matching the filters, most recent trade first.
func (r *InsiderTradeRepository) Search(ctx context.Context, opts InsiderTradeSearchOptions) ([]model.InsiderTrade, error) {
	var rows []model.InsiderTrade
	q := opts.apply(r.db.WithContext(ctx).Model(&model.InsiderTrade{}))
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	err := q.Order("trade_date DESC").Offset(opts.Offset).Find(&rows).Error
	return rows, err
}

// Count returns the number of filings matching the filters.
func (r *InsiderTradeRepository) Count(ctx context.Context, opts InsiderTradeSearchOptions) (int64, error) {
	var count int64
	err := opts.apply(r.db.WithContext(ctx).Model(&model.InsiderTrade{})).Count(&count).Error
	return count, err
}

// FindByID fetches a single filing.
func (r *InsiderTradeRepository) FindByID(ctx context.Context, id uint) (*model.InsiderTrade, error) {
	var row model.InsiderTrade
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Tickers returns every distinct ticker with at least one filing.
func (r *InsiderTradeRepository) Tickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.WithContext(ctx).
		Model(&model.InsiderTrade{}).
		Distinct("ticker").
		Order("ticker").
		Pluck("ticker", &tickers).Error
	return tickers, err
}

// ByTicker returns all filings for one ticker in chronological order.
func (r *InsiderTradeRepository) ByTicker(ctx context.Context, ticker string) ([]model.InsiderTrade, error) {
	var rows []model.InsiderTrade
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("trade_date").
		Find(&rows).Error
	return rows, err
}

// WindowOptions select the filing window the signal endpoints score.
type WindowOptions struct {
	Since         time.Time
	OfficerOnly   bool
	MinValue      *float64
	PurchasesOnly bool
}

// Window returns the filings feeding the screener: purchases (and
// optionally sales) with a trade date inside the look-back window.
func (r *InsiderTradeRepository) Window(ctx context.Context, opts WindowOptions) ([]model.InsiderTrade, error) {
	types := PurchaseTypes
	if !opts.PurchasesOnly {
		types = append(append([]string{}, PurchaseTypes...), SaleTypes...)
	}

	q := r.db.WithContext(ctx).
		Where("transaction_type IN ?", types).
		Where("trade_date >= ?", opts.Since)
	if opts.OfficerOnly {
		q = q.Where("is_officer = ?", "1")
	}
	if opts.MinValue != nil {
		q = q.Where("value >= ?", *opts.MinValue)
	}

	var rows []model.InsiderTrade
	err := q.Order("trade_date DESC").Find(&rows).Error
	return rows, err
}

// TickerTotals counts all-time purchase and sale filings for a ticker,
// the inputs to the sell-pressure penalty.
func (r *InsiderTradeRepository) TickerTotals(ctx context.Context, ticker string) (buys, sells int64, err error) {
	if err = r.db.WithContext(ctx).
		Model(&model.InsiderTrade{}).
		Where("ticker = ? AND transaction_type IN ?", ticker, PurchaseTypes).
		Count(&buys).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&model.InsiderTrade{}).
		Where("ticker = ? AND transaction_type IN ?", ticker, SaleTypes).
		Count(&sells).Error
	return buys, sells, err
}

// Upsert inserts scraped filings, skipping rows whose dedup tuple
// (ticker, trade_date, insider_name, transaction_type) already exists.
// Returns the number of newly inserted rows.
func (r *InsiderTradeRepository) Upsert(ctx context.Context, trades []model.InsiderTrade) (int, error) {
	inserted := 0
	for i := range trades {
		t := &trades[i]
		var existing model.InsiderTrade
		err := r.db.WithContext(ctx).
			Where("ticker = ? AND trade_date = ? AND insider_name = ? AND transaction_type = ?",
				t.Ticker, t.TradeDate, t.InsiderName, t.TransactionType).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return inserted, err
		}
		if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
			return inserted, err
		}
		inserted++
	}

	logger.WithFields(logger.Fields{
		"component": "InsiderTradeRepository",
		"scraped":   len(trades),
		"inserted":  inserted,
	}).Info("Upserted scraped filings")

	return inserted, nil
}
