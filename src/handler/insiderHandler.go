package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"insidertracker/src/auth"
	"insidertracker/src/model"
	"insidertracker/src/repository"
	"insidertracker/src/scraper"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type insiderReader interface {
	Search(ctx context.Context, opts repository.InsiderTradeSearchOptions) ([]model.InsiderTrade, error)
	Count(ctx context.Context, opts repository.InsiderTradeSearchOptions) (int64, error)
	FindByID(ctx context.Context, id uint) (*model.InsiderTrade, error)
	Tickers(ctx context.Context) ([]string, error)
}

type insiderWriter interface {
	Upsert(ctx context.Context, trades []model.InsiderTrade) (int, error)
}

type tickerScraper interface {
	ScrapeTicker(ticker string, years int) ([]model.InsiderTrade, error)
}

type myTradesByTicker interface {
	ListByTicker(ctx context.Context, userID uint, ticker string) ([]model.MyTrade, error)
}

// SearchInsiderTradesHandler lists filings with the full filter set.
func SearchInsiderTradesHandler(repo insiderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		if limit > 500 {
			limit = 500
		}
		opts := repository.InsiderTradeSearchOptions{
			Ticker:          strings.ToUpper(r.URL.Query().Get("ticker")),
			InsiderName:     r.URL.Query().Get("insider_name"),
			TransactionType: r.URL.Query().Get("transaction_type"),
			DateFrom:        queryDate(r, "date_from"),
			DateTo:          queryDate(r, "date_to"),
			MinValue:        queryFloat(r, "min_value"),
			MaxValue:        queryFloat(r, "max_value"),
			Limit:           limit,
			Offset:          queryInt(r, "offset", 0),
		}

		trades, err := repo.Search(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to search insider trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// CountInsiderTradesHandler returns the filing count for the filters.
func CountInsiderTradesHandler(repo insiderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := repository.InsiderTradeSearchOptions{
			Ticker:          strings.ToUpper(r.URL.Query().Get("ticker")),
			TransactionType: r.URL.Query().Get("transaction_type"),
			DateFrom:        queryDate(r, "date_from"),
			DateTo:          queryDate(r, "date_to"),
		}
		count, err := repo.Count(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to count insider trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": count})
	}
}

// TrackedTickersHandler lists every ticker with at least one filing.
func TrackedTickersHandler(repo insiderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tickers, err := repo.Tickers(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list tickers")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, tickers)
	}
}

// GetInsiderTradeHandler fetches one filing by id.
func GetInsiderTradeHandler(repo insiderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		trade, err := repo.FindByID(r.Context(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch insider trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trade)
	}
}

// FetchResult is the response of a scrape-and-load run.
type FetchResult struct {
	Ticker   string `json:"ticker"`
	Scraped  int    `json:"scraped"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

// FetchTickerHandler scrapes openinsider.com for a ticker and loads the
// rows, skipping duplicates.
func FetchTickerHandler(scr tickerScraper, repo insiderWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
		years := queryInt(r, "years", 5)
		if years < 1 || years > 20 {
			http.Error(w, "years must be between 1 and 20", http.StatusBadRequest)
			return
		}

		trades, err := scr.ScrapeTicker(ticker, years)
		if err != nil {
			logger.WithError(err).WithField("ticker", ticker).Error("scrape failed")
			http.Error(w, "Failed to scrape openinsider.com", http.StatusBadGateway)
			return
		}
		if len(trades) == 0 {
			writeJSON(w, http.StatusOK, FetchResult{
				Ticker:  ticker,
				Message: fmt.Sprintf("No insider trades found for %s on openinsider.com", ticker),
			})
			return
		}

		inserted, err := repo.Upsert(r.Context(), trades)
		if err != nil {
			logger.WithError(err).Error("failed to store scraped trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		skipped := len(trades) - inserted
		writeJSON(w, http.StatusOK, FetchResult{
			Ticker:   ticker,
			Scraped:  len(trades),
			Inserted: inserted,
			Skipped:  skipped,
			Message:  fmt.Sprintf("Fetched %s: %d new trades added, %d duplicates skipped.", ticker, inserted, skipped),
		})
	}
}

// TickerSummary aggregates a ticker's insider activity alongside the
// user's own trade returns on it.
type TickerSummary struct {
	Ticker                    string   `json:"ticker"`
	TotalInsiderPurchases     int      `json:"total_insider_purchases"`
	TotalInsiderSales         int      `json:"total_insider_sales"`
	TotalInsiderPurchaseValue float64  `json:"total_insider_purchase_value"`
	TotalInsiderSaleValue     float64  `json:"total_insider_sale_value"`
	MyTradeCount              int      `json:"my_trade_count"`
	AvgReturn1M               *float64 `json:"avg_return_1m"`
	AvgReturn3M               *float64 `json:"avg_return_3m"`
}

// TickerSummaryHandler builds the per-ticker summary block.
func TickerSummaryHandler(repo companyFilings, myTrades myTradesByTicker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
		filings, err := repo.ByTicker(r.Context(), ticker)
		if err != nil {
			logger.WithError(err).Error("failed to load filings")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if len(filings) == 0 {
			http.Error(w, fmt.Sprintf("No insider trades found for %s", ticker), http.StatusNotFound)
			return
		}

		summary := TickerSummary{Ticker: ticker}
		for i := range filings {
			f := &filings[i]
			switch {
			case model.IsPurchase(f.TransactionType):
				summary.TotalInsiderPurchases++
				summary.TotalInsiderPurchaseValue += f.AbsValue()
			case model.IsSale(f.TransactionType):
				summary.TotalInsiderSales++
				summary.TotalInsiderSaleValue += f.AbsValue()
			}
		}

		mine, err := myTrades.ListByTicker(r.Context(), user.ID, ticker)
		if err != nil {
			logger.WithError(err).Error("failed to load personal trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		summary.MyTradeCount = len(mine)
		summary.AvgReturn1M = avgReturn(mine, func(p *model.Performance) *float64 { return p.Return1M })
		summary.AvgReturn3M = avgReturn(mine, func(p *model.Performance) *float64 { return p.Return3M })

		writeJSON(w, http.StatusOK, summary)
	}
}

func avgReturn(trades []model.MyTrade, pick func(*model.Performance) *float64) *float64 {
	var sum float64
	var n int
	for i := range trades {
		if trades[i].Performance == nil {
			continue
		}
		if v := pick(trades[i].Performance); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func DefaultSearchInsiderTradesHandler() http.HandlerFunc {
	return SearchInsiderTradesHandler(repository.NewInsiderTradeRepository())
}

func DefaultCountInsiderTradesHandler() http.HandlerFunc {
	return CountInsiderTradesHandler(repository.NewInsiderTradeRepository())
}

func DefaultTrackedTickersHandler() http.HandlerFunc {
	return TrackedTickersHandler(repository.NewInsiderTradeRepository())
}

func DefaultGetInsiderTradeHandler() http.HandlerFunc {
	return GetInsiderTradeHandler(repository.NewInsiderTradeRepository())
}

func DefaultFetchTickerHandler() http.HandlerFunc {
	config := scraper.GetConfig()
	return FetchTickerHandler(
		scraper.NewClient(config.OpenInsiderBaseURL, config.UserAgent),
		repository.NewInsiderTradeRepository(),
	)
}

func DefaultTickerSummaryHandler() http.HandlerFunc {
	return TickerSummaryHandler(repository.NewInsiderTradeRepository(), repository.NewMyTradeRepository())
}
