package handler

import (
	"context"
	"errors"
	"net/http"

	"insidertracker/src/auth"
	"insidertracker/src/model"
	"insidertracker/src/portfolio"
	"insidertracker/src/repository"

	logger "github.com/sirupsen/logrus"
)

type tradeLister interface {
	ListForUser(ctx context.Context, userID uint) ([]model.MyTrade, error)
}

type latestCloser interface {
	LatestClose(ctx context.Context, ticker string) (*model.StockPrice, error)
}

// PortfolioResponse is the full ledger view: per-ticker positions plus
// the roll-up summary.
type PortfolioResponse struct {
	Positions []portfolio.Position `json:"positions"`
	Summary   portfolio.Summary    `json:"summary"`
}

// PortfolioHandler replays the user's trade log into positions. Prices
// come from the local cache only; a ticker without cached data shows a
// null market value rather than blocking on an upstream fetch.
func PortfolioHandler(trades tradeLister, quotes latestCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		rows, err := trades.ListForUser(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to load trade log")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		quote := func(ticker string) (portfolio.Quote, bool) {
			row, err := quotes.LatestClose(r.Context(), ticker)
			if err != nil {
				logger.WithError(err).WithField("ticker", ticker).Warn("price lookup failed")
				return portfolio.Quote{}, false
			}
			if row == nil {
				return portfolio.Quote{}, false
			}
			return portfolio.Quote{Close: row.Close, Date: row.PriceDate}, true
		}

		positions, err := portfolio.ComputePositions(rows, quote)
		if errors.Is(err, portfolio.ErrInvalidTrade) {
			logger.WithError(err).WithField("user_id", user.ID).Error("trade log contains invalid rows")
			http.Error(w, "Trade log contains invalid entries", http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to compute positions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, PortfolioResponse{
			Positions: positions,
			Summary:   portfolio.Summarize(positions),
		})
	}
}

func DefaultPortfolioHandler() http.HandlerFunc {
	return PortfolioHandler(repository.NewMyTradeRepository(), repository.NewStockPriceRepository())
}
