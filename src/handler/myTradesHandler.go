package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"insidertracker/src/auth"
	"insidertracker/src/model"
	"insidertracker/src/repository"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type myTradeStore interface {
	Search(ctx context.Context, opts repository.MyTradeSearchOptions) ([]model.MyTrade, error)
	FindByID(ctx context.Context, id, userID uint) (*model.MyTrade, error)
	CreateWithPerformance(ctx context.Context, trade *model.MyTrade) error
	Correct(ctx context.Context, trade *model.MyTrade, updates *model.UpdateMyTradePayload) error
	Delete(ctx context.Context, trade *model.MyTrade) error
}

// ListMyTradesHandler lists the user's trades with filters.
func ListMyTradesHandler(repo myTradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		limit := queryInt(r, "limit", 100)
		if limit > 500 {
			limit = 500
		}
		trades, err := repo.Search(r.Context(), repository.MyTradeSearchOptions{
			UserID:    user.ID,
			Ticker:    strings.ToUpper(r.URL.Query().Get("ticker")),
			TradeType: r.URL.Query().Get("trade_type"),
			DateFrom:  queryDate(r, "date_from"),
			DateTo:    queryDate(r, "date_to"),
			Limit:     limit,
			Offset:    queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list my trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// CreateMyTradeHandler logs a new trade. The performance record is
// created in the same transaction with the entry price snapshotted.
func CreateMyTradeHandler(repo myTradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload model.CreateMyTradePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid trade payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		ticker := strings.ToUpper(strings.TrimSpace(payload.Ticker))
		if ticker == "" {
			http.Error(w, "ticker is required", http.StatusBadRequest)
			return
		}
		if payload.TradeType != model.TradeTypeBuy && payload.TradeType != model.TradeTypeSell {
			http.Error(w, "trade_type must be buy or sell", http.StatusBadRequest)
			return
		}
		if payload.Shares <= 0 || payload.Price <= 0 {
			http.Error(w, "shares and price must be positive", http.StatusBadRequest)
			return
		}
		tradeDate, err := time.Parse(dateLayout, payload.TradeDate)
		if err != nil {
			http.Error(w, "trade_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		trade := &model.MyTrade{
			UserID:                user.ID,
			Ticker:                ticker,
			TradeType:             payload.TradeType,
			TradeDate:             tradeDate,
			Shares:                payload.Shares,
			Price:                 payload.Price,
			TotalValue:            model.ComputeTotalValue(payload.Shares, payload.Price),
			Notes:                 payload.Notes,
			RelatedInsiderTradeID: payload.RelatedInsiderTradeID,
		}
		if err := repo.CreateWithPerformance(r.Context(), trade); err != nil {
			logger.WithError(err).Error("failed to create trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, trade)
	}
}

// GetMyTradeHandler fetches one of the user's trades.
func GetMyTradeHandler(repo myTradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		trade, err := repo.FindByID(r.Context(), id, user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trade)
	}
}

// UpdateMyTradeHandler corrects shares, price or notes on a trade.
func UpdateMyTradeHandler(repo myTradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var payload model.UpdateMyTradePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid trade update payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		if payload.Shares != nil && *payload.Shares <= 0 {
			http.Error(w, "shares must be positive", http.StatusBadRequest)
			return
		}
		if payload.Price != nil && *payload.Price <= 0 {
			http.Error(w, "price must be positive", http.StatusBadRequest)
			return
		}

		trade, err := repo.FindByID(r.Context(), id, user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := repo.Correct(r.Context(), trade, &payload); err != nil {
			logger.WithError(err).Error("failed to update trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trade)
	}
}

// DeleteMyTradeHandler removes a trade and its performance record.
func DeleteMyTradeHandler(repo myTradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		trade, err := repo.FindByID(r.Context(), id, user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := repo.Delete(r.Context(), trade); err != nil {
			logger.WithError(err).Error("failed to delete trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func DefaultListMyTradesHandler() http.HandlerFunc {
	return ListMyTradesHandler(repository.NewMyTradeRepository())
}

func DefaultCreateMyTradeHandler() http.HandlerFunc {
	return CreateMyTradeHandler(repository.NewMyTradeRepository())
}

func DefaultGetMyTradeHandler() http.HandlerFunc {
	return GetMyTradeHandler(repository.NewMyTradeRepository())
}

func DefaultUpdateMyTradeHandler() http.HandlerFunc {
	return UpdateMyTradeHandler(repository.NewMyTradeRepository())
}

func DefaultDeleteMyTradeHandler() http.HandlerFunc {
	return DeleteMyTradeHandler(repository.NewMyTradeRepository())
}
