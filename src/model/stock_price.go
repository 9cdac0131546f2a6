package model

import "time"

// StockPrice is one cached daily bar for a ticker, fetched from the
// market-data provider. (ticker, price_date) is unique; FetchedAt drives
// the 24h freshness check.
type StockPrice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Ticker    string    `gorm:"size:20;not null;uniqueIndex:uq_stock_price" json:"ticker"`
	PriceDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_stock_price" json:"price_date"`
	Open      *float64  `json:"open,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Close     float64   `gorm:"not null" json:"close"`
	Volume    *int64    `gorm:"type:bigint" json:"volume,omitempty"`
	FetchedAt time.Time `gorm:"autoCreateTime" json:"fetched_at"`
}

func (StockPrice) TableName() string {
	return "stock_prices"
}

// DailyBar is one OHLCV day as returned by the market-data connector,
// already parsed into numbers at the boundary.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
