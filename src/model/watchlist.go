package model

import "time"

// Watchlist is a named collection of tickers to keep an eye on.
type Watchlist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []WatchlistItem `gorm:"foreignKey:WatchlistID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Watchlist) TableName() string {
	return "watchlists"
}

type WatchlistItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WatchlistID uint      `gorm:"not null;uniqueIndex:uq_watchlist_ticker" json:"watchlist_id"`
	Ticker      string    `gorm:"size:20;not null;uniqueIndex:uq_watchlist_ticker" json:"ticker"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	AddedAt     time.Time `gorm:"autoCreateTime" json:"added_at"`
}

func (WatchlistItem) TableName() string {
	return "watchlist_items"
}

type WatchlistCreatePayload struct {
	Name string `json:"name"`
}

type WatchlistItemPayload struct {
	Ticker string `json:"ticker"`
	Notes  string `json:"notes,omitempty"`
}
