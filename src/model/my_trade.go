package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeTypeBuy  = "buy"
	TradeTypeSell = "sell"
)

// MyTrade is one entry in the user's personal buy/sell log.
// Each trade owns exactly one Performance record, created in the same
// transaction and deleted with it.
type MyTrade struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Ticker     string    `gorm:"size:10;not null;index" json:"ticker"`
	TradeType  string    `gorm:"size:10;not null" json:"trade_type"`
	TradeDate  time.Time `gorm:"type:date;not null;index" json:"trade_date"`
	Shares     float64   `gorm:"not null" json:"shares"`
	Price      float64   `gorm:"not null" json:"price"`
	TotalValue float64   `json:"total_value"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Optional link to the insider filing that motivated this trade.
	RelatedInsiderTradeID *uint `gorm:"index" json:"related_insider_trade_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Performance *Performance `gorm:"foreignKey:MyTradeID;constraint:OnDelete:CASCADE" json:"performance,omitempty"`
}

func (MyTrade) TableName() string {
	return "my_trades"
}

// ComputeTotalValue returns shares*price rounded to cents. Decimal keeps
// the stored dollar amount exact for inputs like 0.1 shares at $3.30.
func ComputeTotalValue(shares, price float64) float64 {
	total, _ := decimal.NewFromFloat(shares).
		Mul(decimal.NewFromFloat(price)).
		Round(2).
		Float64()
	return total
}

// CreateMyTradePayload is the request body for logging a new trade.
type CreateMyTradePayload struct {
	Ticker                string  `json:"ticker"`
	TradeType             string  `json:"trade_type"`
	TradeDate             string  `json:"trade_date"` // YYYY-MM-DD
	Shares                float64 `json:"shares"`
	Price                 float64 `json:"price"`
	Notes                 string  `json:"notes,omitempty"`
	RelatedInsiderTradeID *uint   `json:"related_insider_trade_id,omitempty"`
}

// UpdateMyTradePayload corrects an existing trade. Nil fields are left
// untouched; a price correction propagates to the performance entry price.
type UpdateMyTradePayload struct {
	Notes  *string  `json:"notes,omitempty"`
	Shares *float64 `json:"shares,omitempty"`
	Price  *float64 `json:"price,omitempty"`
}
