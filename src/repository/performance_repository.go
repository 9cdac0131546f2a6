package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"insidertracker/src/database"
	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PerformanceRepository reads and persists post-trade performance
// snapshots.
type PerformanceRepository struct {
	db *gorm.DB
}

func NewPerformanceRepository() *PerformanceRepository {
	logger.WithField("component", "PerformanceRepository").
		Info("Creating new PerformanceRepository with MainDB")

	return &PerformanceRepository{db: database.MainDB}
}

func (r *PerformanceRepository) WithDB(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// List returns performance records, most recently updated first.
func (r *PerformanceRepository) List(ctx context.Context, ticker string, limit, offset int) ([]model.Performance, error) {
	q := r.db.WithContext(ctx).Model(&model.Performance{})
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []model.Performance
	err := q.Order("updated_at DESC").Offset(offset).Find(&rows).Error
	return rows, err
}

// FindByTradeID fetches the performance record for one personal trade.
func (r *PerformanceRepository) FindByTradeID(ctx context.Context, myTradeID uint) (*model.Performance, error) {
	var row model.Performance
	err := r.db.WithContext(ctx).
		Where("my_trade_id = ?", myTradeID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save persists a filled or corrected performance record.
func (r *PerformanceRepository) Save(ctx context.Context, perf *model.Performance) error {
	return r.db.WithContext(ctx).Save(perf).Error
}

// DashboardStats is the homepage summary block.
type DashboardStats struct {
	TotalInsiderTrades  int64    `json:"total_insider_trades"`
	TotalMyTrades       int64    `json:"total_my_trades"`
	TickersTracked      int64    `json:"tickers_tracked"`
	BestPerformingTrade *string  `json:"best_performing_trade"`
	AvgReturn1MAll      *float64 `json:"avg_return_1m_all"`
}

// Dashboard aggregates high-level stats: totals, the best trade by
// one-month return, and the average one-month return across trades.
func (r *PerformanceRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := r.db.WithContext(ctx).Model(&model.InsiderTrade{}).Count(&stats.TotalInsiderTrades).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.MyTrade{}).Count(&stats.TotalMyTrades).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.MyTrade{}).Distinct("ticker").Count(&stats.TickersTracked).Error; err != nil {
		return nil, err
	}

	var best struct {
		Ticker   string  `gorm:"column:ticker"`
		Return1M float64 `gorm:"column:return_1m"`
	}
	err := r.db.WithContext(ctx).
		Model(&model.Performance{}).
		Select("my_trades.ticker AS ticker, performance.return_1m AS return_1m").
		Joins("JOIN my_trades ON my_trades.id = performance.my_trade_id").
		Where("performance.return_1m IS NOT NULL").
		Order("performance.return_1m DESC").
		Limit(1).
		Scan(&best).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if best.Ticker != "" {
		label := fmt.Sprintf("%s (%+.2f%% 1m)", best.Ticker, best.Return1M)
		stats.BestPerformingTrade = &label
	}

	var avg *float64
	err = r.db.WithContext(ctx).
		Model(&model.Performance{}).
		Select("AVG(return_1m)").
		Where("return_1m IS NOT NULL").
		Scan(&avg).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if avg != nil {
		rounded := math.Round(*avg*100) / 100
		stats.AvgReturn1MAll = &rounded
	}

	return stats, nil
}
