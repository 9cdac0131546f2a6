package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"insidertracker/src/auth"
	"insidertracker/src/connectors"
	"insidertracker/src/model"
	"insidertracker/src/prices"
	"insidertracker/src/repository"
	"insidertracker/src/service"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

type priceProvider interface {
	History(ctx context.Context, ticker string) ([]model.StockPrice, error)
	Refresh(ctx context.Context, ticker string) (int, error)
}

type companyFilings interface {
	ByTicker(ctx context.Context, ticker string) ([]model.InsiderTrade, error)
}

// CompanyInsiderTrade is a filing annotated with the market close
// nearest its trade date.
type CompanyInsiderTrade struct {
	ID              uint     `json:"id"`
	Date            *string  `json:"date"`
	PriceAtDate     *float64 `json:"price_at_date"`
	InsiderName     string   `json:"insider_name"`
	InsiderTitle    string   `json:"insider_title"`
	TransactionType string   `json:"transaction_type"`
	Price           *float64 `json:"price"`
	Qty             *float64 `json:"qty"`
	Value           *float64 `json:"value"`
}

// CompanyMyTrade is one of the user's trades annotated the same way.
type CompanyMyTrade struct {
	ID          uint     `json:"id"`
	Date        string   `json:"date"`
	PriceAtDate *float64 `json:"price_at_date"`
	TradeType   string   `json:"trade_type"`
	Shares      float64  `json:"shares"`
	Price       float64  `json:"price"`
	TotalValue  float64  `json:"total_value"`
	Notes       string   `json:"notes,omitempty"`
	Return1M    *float64 `json:"return_1m"`
	Return3M    *float64 `json:"return_3m"`
}

// CompanySummary counts the ticker's insider and personal activity.
type CompanySummary struct {
	TotalInsiderPurchases     int     `json:"total_insider_purchases"`
	TotalInsiderSales         int     `json:"total_insider_sales"`
	TotalInsiderPurchaseValue float64 `json:"total_insider_purchase_value"`
	TotalInsiderSaleValue     float64 `json:"total_insider_sale_value"`
	MyTradeCount              int     `json:"my_trade_count"`
	MyBuyCount                int     `json:"my_buy_count"`
	MySellCount               int     `json:"my_sell_count"`
}

// CompanyResponse is the full single-ticker view.
type CompanyResponse struct {
	Ticker        string                `json:"ticker"`
	YahooURL      string                `json:"yahoo_url"`
	Prices        []model.StockPrice    `json:"prices"`
	PriceCount    int                   `json:"price_count"`
	InsiderTrades []CompanyInsiderTrade `json:"insider_trades"`
	MyTrades      []CompanyMyTrade      `json:"my_trades"`
	Summary       CompanySummary        `json:"summary"`
}

// CompanyHandler assembles the single-ticker view: cached-or-fetched
// price history, the ticker's filings and the user's trades, each
// annotated with the close nearest its trade date. Missing price data
// degrades to null annotations; the trade data still renders.
func CompanyHandler(priceService priceProvider, filings companyFilings, myTrades myTradesByTicker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

		history, err := priceService.History(r.Context(), ticker)
		if err != nil {
			logger.WithError(err).WithField("ticker", ticker).Warn("price history unavailable")
			history = nil
		}
		pm := prices.BuildPriceMap(history)

		insiderRows, err := filings.ByTicker(r.Context(), ticker)
		if err != nil {
			logger.WithError(err).Error("failed to load filings")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		mine, err := myTrades.ListByTicker(r.Context(), user.ID, ticker)
		if err != nil {
			logger.WithError(err).Error("failed to load personal trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		resp := CompanyResponse{
			Ticker:        ticker,
			YahooURL:      fmt.Sprintf("https://finance.yahoo.com/quote/%s", ticker),
			Prices:        history,
			PriceCount:    len(history),
			InsiderTrades: make([]CompanyInsiderTrade, 0, len(insiderRows)),
			MyTrades:      make([]CompanyMyTrade, 0, len(mine)),
		}

		for i := range insiderRows {
			t := &insiderRows[i]
			row := CompanyInsiderTrade{
				ID:              t.ID,
				InsiderName:     t.InsiderName,
				InsiderTitle:    t.InsiderTitle,
				TransactionType: t.TransactionType,
				Price:           t.Price,
				Qty:             t.Qty,
				Value:           t.Value,
			}
			if t.TradeDate != nil {
				ds := t.TradeDate.Format(dateLayout)
				row.Date = &ds
				if close, ok := pm.Resolve(*t.TradeDate, prices.DefaultMaxOffset); ok {
					row.PriceAtDate = &close
				}
			}
			switch {
			case model.IsPurchase(t.TransactionType):
				resp.Summary.TotalInsiderPurchases++
				resp.Summary.TotalInsiderPurchaseValue += t.AbsValue()
			case model.IsSale(t.TransactionType):
				resp.Summary.TotalInsiderSales++
				resp.Summary.TotalInsiderSaleValue += t.AbsValue()
			}
			resp.InsiderTrades = append(resp.InsiderTrades, row)
		}

		for i := range mine {
			t := &mine[i]
			row := CompanyMyTrade{
				ID:         t.ID,
				Date:       t.TradeDate.Format(dateLayout),
				TradeType:  t.TradeType,
				Shares:     t.Shares,
				Price:      t.Price,
				TotalValue: t.TotalValue,
				Notes:      t.Notes,
			}
			if close, ok := pm.Resolve(t.TradeDate, prices.DefaultMaxOffset); ok {
				row.PriceAtDate = &close
			}
			if t.Performance != nil {
				row.Return1M = t.Performance.Return1M
				row.Return3M = t.Performance.Return3M
			}
			resp.Summary.MyTradeCount++
			switch t.TradeType {
			case model.TradeTypeBuy:
				resp.Summary.MyBuyCount++
			case model.TradeTypeSell:
				resp.Summary.MySellCount++
			}
			resp.MyTrades = append(resp.MyTrades, row)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// RefreshPricesHandler forces a provider fetch for a ticker.
func RefreshPricesHandler(priceService priceProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
		cached, err := priceService.Refresh(r.Context(), ticker)
		if err != nil {
			logger.WithError(err).WithField("ticker", ticker).Error("price refresh failed")
			http.Error(w, "Failed to refresh prices", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ticker":  ticker,
			"cached":  cached,
			"message": fmt.Sprintf("Refreshed %d days of price data", cached),
		})
	}
}

func defaultPriceService() *service.PriceService {
	config := connectors.GetConfig()
	return service.NewPriceService(
		repository.NewStockPriceRepository(),
		connectors.NewAlphaVantageClient(config.AlphaVantageAPIKey, config.AlphaVantageBaseURL),
	)
}

func DefaultCompanyHandler() http.HandlerFunc {
	return CompanyHandler(defaultPriceService(), repository.NewInsiderTradeRepository(), repository.NewMyTradeRepository())
}

func DefaultRefreshPricesHandler() http.HandlerFunc {
	return RefreshPricesHandler(defaultPriceService())
}
