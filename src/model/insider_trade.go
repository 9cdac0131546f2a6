package model

import (
	"strings"
	"time"
)

// Transaction type codes as they appear on SEC Form 4 filings
// scraped from openinsider.com.
const (
	TxPurchase        = "P - Purchase"
	TxSale            = "S - Sale"
	TxTax             = "F - Tax"
	TxDisposition     = "D - Disposition"
	TxGift            = "G - Gift"
	TxExercise        = "X - Exercise"
	TxOptionsExercise = "M - Options Exercise"
	TxConversion      = "C - Conversion"
	TxWill            = "W - Will/Inheritance"
	TxHoldings        = "H - Holdings"
	TxOther           = "O - Other"
)

// InsiderTrade mirrors one row of openinsider.com SEC Form 4 data.
// Rows are immutable once ingested; the unique index on
// (ticker, trade_date, insider_name, transaction_type) is what the
// scraper dedups against.
type InsiderTrade struct {
	ID uint `gorm:"primaryKey" json:"id"`

	FilingDate *time.Time `gorm:"type:date;index" json:"filing_date,omitempty"`
	TradeDate  *time.Time `gorm:"type:date;index:idx_insider_dedup,unique" json:"trade_date,omitempty"`

	Ticker      string `gorm:"size:10;not null;index;index:idx_insider_dedup,unique" json:"ticker"`
	CompanyName string `gorm:"size:255" json:"company_name"`

	InsiderName   string `gorm:"size:255;index:idx_insider_dedup,unique" json:"insider_name"`
	InsiderTitle  string `gorm:"size:255" json:"insider_title"`
	IsDirector    string `gorm:"size:1" json:"is_director"`
	IsOfficer     string `gorm:"size:1" json:"is_officer"`
	IsTenPctOwner string `gorm:"size:1" json:"is_ten_pct_owner"`

	TransactionType string   `gorm:"size:50;index;index:idx_insider_dedup,unique" json:"transaction_type"`
	Price           *float64 `json:"price,omitempty"`
	Qty             *float64 `json:"qty,omitempty"`
	Owned           *float64 `json:"owned,omitempty"`
	DeltaOwn        string   `gorm:"size:20" json:"delta_own"`
	Value           *float64 `gorm:"index" json:"value,omitempty"`

	ScrapedAt time.Time `gorm:"autoCreateTime" json:"scraped_at"`
}

func (InsiderTrade) TableName() string {
	return "insider_trades"
}

// IsPurchase reports whether a transaction type string describes an open
// market purchase. Filings use several spellings ("P", "P - Purchase",
// "Purchase"), so matching is case-insensitive on the code prefix or the
// word itself.
func IsPurchase(transactionType string) bool {
	t := strings.ToLower(strings.TrimSpace(transactionType))
	return t == "p" || strings.HasPrefix(t, "p -") || strings.Contains(t, "purchase")
}

// IsSale reports whether a transaction type string describes a sale.
func IsSale(transactionType string) bool {
	t := strings.ToLower(strings.TrimSpace(transactionType))
	return t == "s" || strings.HasPrefix(t, "s -") || strings.Contains(t, "sale")
}

// AbsValue returns the unsigned USD magnitude of the filing. Scraped
// values carry a sign for dispositions; scoring only cares about size.
func (t *InsiderTrade) AbsValue() float64 {
	if t.Value == nil {
		return 0
	}
	if *t.Value < 0 {
		return -*t.Value
	}
	return *t.Value
}
