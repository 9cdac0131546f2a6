package model

import "time"

// Performance tracks how a ticker moved after one of the user's trades.
// Price slots are filled in by the snapshot backfill job as the horizon
// dates pass; a return is present iff its paired price is present.
type Performance struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	MyTradeID uint `gorm:"uniqueIndex;not null" json:"my_trade_id"`

	Ticker       string  `gorm:"size:10;index" json:"ticker"`
	PriceAtTrade float64 `json:"price_at_trade"`

	Price1W *float64 `json:"price_1w,omitempty"`
	Price2W *float64 `json:"price_2w,omitempty"`
	Price1M *float64 `json:"price_1m,omitempty"`
	Price3M *float64 `json:"price_3m,omitempty"`
	Price6M *float64 `json:"price_6m,omitempty"`
	Price1Y *float64 `json:"price_1y,omitempty"`

	Return1W *float64 `json:"return_1w,omitempty"`
	Return2W *float64 `json:"return_2w,omitempty"`
	Return1M *float64 `json:"return_1m,omitempty"`
	Return3M *float64 `json:"return_3m,omitempty"`
	Return6M *float64 `json:"return_6m,omitempty"`
	Return1Y *float64 `json:"return_1y,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (Performance) TableName() string {
	return "performance"
}

// UpdatePerformancePayload carries manual price snapshot overrides.
// Returns are recomputed server-side, never accepted from the client.
type UpdatePerformancePayload struct {
	Price1W *float64 `json:"price_1w,omitempty"`
	Price2W *float64 `json:"price_2w,omitempty"`
	Price1M *float64 `json:"price_1m,omitempty"`
	Price3M *float64 `json:"price_3m,omitempty"`
	Price6M *float64 `json:"price_6m,omitempty"`
	Price1Y *float64 `json:"price_1y,omitempty"`
}
