package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"insidertracker/src/model"
	"insidertracker/src/repository"
	"insidertracker/src/signals"

	logger "github.com/sirupsen/logrus"
)

type filingWindow interface {
	Window(ctx context.Context, opts repository.WindowOptions) ([]model.InsiderTrade, error)
	TickerTotals(ctx context.Context, ticker string) (buys, sells int64, err error)
}

func windowSince(r *http.Request, defDays, maxDays int) time.Time {
	days := queryInt(r, "days", defDays)
	if days < 1 {
		days = defDays
	}
	if days > maxDays {
		days = maxDays
	}
	return time.Now().AddDate(0, 0, -days)
}

func cachedPriceFunc(ctx context.Context, quotes latestCloser) signals.PriceFunc {
	return func(ticker string) *float64 {
		row, err := quotes.LatestClose(ctx, ticker)
		if err != nil || row == nil {
			return nil
		}
		close := row.Close
		return &close
	}
}

func rolesParam(r *http.Request) []string {
	var roles []string
	if raw := r.URL.Query().Get("roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
				roles = append(roles, role)
			}
		}
	}
	return roles
}

func totalsFunc(ctx context.Context, filings filingWindow) signals.TotalsFunc {
	return func(ticker string) (int, int) {
		buys, sells, err := filings.TickerTotals(ctx, ticker)
		if err != nil {
			logger.WithError(err).WithField("ticker", ticker).Warn("ticker totals lookup failed")
			return 0, 0
		}
		return int(buys), int(sells)
	}
}

// ClusterBuysHandler reports tickers where several distinct insiders
// bought within the window.
func ClusterBuysHandler(filings filingWindow, quotes latestCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := windowSince(r, 30, 365)
		rows, err := filings.Window(r.Context(), repository.WindowOptions{
			Since:         since,
			PurchasesOnly: true,
		})
		if err != nil {
			logger.WithError(err).Error("failed to load filing window")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		minValue := 0.0
		if v := queryFloat(r, "min_value"); v != nil {
			minValue = *v
		}
		results := signals.DetectClusterBuys(rows, cachedPriceFunc(r.Context(), quotes), signals.ClusterOptions{
			MinInsiders: queryInt(r, "min_insiders", 2),
			MinValue:    minValue,
		})
		writeJSON(w, http.StatusOK, results)
	}
}

// ScreenerHandler ranks recent insider buying by conviction score.
func ScreenerHandler(filings filingWindow, quotes latestCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := windowSince(r, 90, 365)
		rows, err := filings.Window(r.Context(), repository.WindowOptions{
			Since:         since,
			PurchasesOnly: true,
			MinValue:      queryFloat(r, "min_trade_value"),
			OfficerOnly:   r.URL.Query().Get("officer_only") == "true",
		})
		if err != nil {
			logger.WithError(err).Error("failed to load filing window")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		roles := rolesParam(r)
		minScore := 0.0
		if v := queryFloat(r, "min_score"); v != nil {
			minScore = *v
		}
		minValue := 0.0
		if v := queryFloat(r, "min_value"); v != nil {
			minValue = *v
		}
		limit := queryInt(r, "limit", 50)
		if limit > 200 {
			limit = 200
		}

		results := signals.BuildScreener(
			rows,
			totalsFunc(r.Context(), filings),
			cachedPriceFunc(r.Context(), quotes),
			signals.ScreenerOptions{
				MinScore:   minScore,
				MinBuyers:  queryInt(r, "min_buyers", 0),
				MinValue:   minValue,
				RoleFilter: roles,
				SortBy:     r.URL.Query().Get("sort_by"),
				Limit:      limit,
			},
			time.Now(),
		)
		writeJSON(w, http.StatusOK, results)
	}
}

// ConvictionHandler is the screener restricted to high-conviction rows.
func ConvictionHandler(filings filingWindow, quotes latestCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := windowSince(r, 90, 365)
		rows, err := filings.Window(r.Context(), repository.WindowOptions{
			Since:         since,
			PurchasesOnly: true,
			OfficerOnly:   r.URL.Query().Get("officer_only") == "true",
		})
		if err != nil {
			logger.WithError(err).Error("failed to load filing window")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		minScore := 1.0
		if v := queryFloat(r, "min_score"); v != nil {
			minScore = *v
		}
		minValue := 0.0
		if v := queryFloat(r, "min_value"); v != nil {
			minValue = *v
		}
		limit := queryInt(r, "limit", 25)
		if limit > 200 {
			limit = 200
		}

		results := signals.BuildScreener(
			rows,
			totalsFunc(r.Context(), filings),
			cachedPriceFunc(r.Context(), quotes),
			signals.ScreenerOptions{
				MinScore:   minScore,
				MinValue:   minValue,
				RoleFilter: rolesParam(r),
				SortBy:     signals.SortByConviction,
				Limit:      limit,
			},
			time.Now(),
		)
		writeJSON(w, http.StatusOK, results)
	}
}

func DefaultClusterBuysHandler() http.HandlerFunc {
	return ClusterBuysHandler(repository.NewInsiderTradeRepository(), repository.NewStockPriceRepository())
}

func DefaultScreenerHandler() http.HandlerFunc {
	return ScreenerHandler(repository.NewInsiderTradeRepository(), repository.NewStockPriceRepository())
}

func DefaultConvictionHandler() http.HandlerFunc {
	return ConvictionHandler(repository.NewInsiderTradeRepository(), repository.NewStockPriceRepository())
}
