package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"insidertracker/src/model"
	"insidertracker/src/repository"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type watchlistStore interface {
	List(ctx context.Context) ([]model.Watchlist, error)
	FindByID(ctx context.Context, id uint) (*model.Watchlist, error)
	Create(ctx context.Context, wl *model.Watchlist) error
	Delete(ctx context.Context, wl *model.Watchlist) error
	AddItem(ctx context.Context, item *model.WatchlistItem) error
	RemoveItem(ctx context.Context, watchlistID uint, ticker string) (int64, error)
}

type insiderCounter interface {
	Count(ctx context.Context, opts repository.InsiderTradeSearchOptions) (int64, error)
}

// WatchlistItemView is a watchlist entry enriched with the latest
// cached price and recent insider activity.
type WatchlistItemView struct {
	model.WatchlistItem
	LatestPrice      *float64 `json:"latest_price"`
	PriceDate        *string  `json:"price_date"`
	InsiderTrades90D int64    `json:"insider_trades_90d"`
}

// WatchlistView is one watchlist with enriched items.
type WatchlistView struct {
	model.Watchlist
	Items []WatchlistItemView `json:"items"`
}

// ListWatchlistsHandler returns every watchlist with enriched items.
func ListWatchlistsHandler(repo watchlistStore, quotes latestCloser, filings insiderCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lists, err := repo.List(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list watchlists")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		views := make([]WatchlistView, 0, len(lists))
		for i := range lists {
			views = append(views, enrichWatchlist(r.Context(), &lists[i], quotes, filings))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// GetWatchlistHandler returns one watchlist with enriched items.
func GetWatchlistHandler(repo watchlistStore, quotes latestCloser, filings insiderCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		wl, err := repo.FindByID(r.Context(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Watchlist not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch watchlist")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, enrichWatchlist(r.Context(), wl, quotes, filings))
	}
}

func enrichWatchlist(ctx context.Context, wl *model.Watchlist, quotes latestCloser, filings insiderCounter) WatchlistView {
	since := time.Now().AddDate(0, 0, -90)
	view := WatchlistView{Watchlist: *wl, Items: make([]WatchlistItemView, 0, len(wl.Items))}
	view.Watchlist.Items = nil

	for i := range wl.Items {
		item := WatchlistItemView{WatchlistItem: wl.Items[i]}
		if row, err := quotes.LatestClose(ctx, item.Ticker); err == nil && row != nil {
			close := row.Close
			item.LatestPrice = &close
			ds := row.PriceDate.Format(dateLayout)
			item.PriceDate = &ds
		}
		if count, err := filings.Count(ctx, repository.InsiderTradeSearchOptions{
			Ticker:   item.Ticker,
			DateFrom: &since,
		}); err == nil {
			item.InsiderTrades90D = count
		}
		view.Items = append(view.Items, item)
	}
	return view
}

// CreateWatchlistHandler creates an empty named watchlist.
func CreateWatchlistHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.WatchlistCreatePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid watchlist payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(payload.Name)
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		wl := &model.Watchlist{Name: name}
		if err := repo.Create(r.Context(), wl); err != nil {
			logger.WithError(err).Error("failed to create watchlist")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, wl)
	}
}

// DeleteWatchlistHandler removes a watchlist and its items.
func DeleteWatchlistHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		wl, err := repo.FindByID(r.Context(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Watchlist not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch watchlist")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if err := repo.Delete(r.Context(), wl); err != nil {
			logger.WithError(err).Error("failed to delete watchlist")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// AddWatchlistItemHandler appends a ticker to a watchlist.
func AddWatchlistItemHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var payload model.WatchlistItemPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid watchlist item payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		ticker := strings.ToUpper(strings.TrimSpace(payload.Ticker))
		if ticker == "" {
			http.Error(w, "ticker is required", http.StatusBadRequest)
			return
		}

		if _, err := repo.FindByID(r.Context(), id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "Watchlist not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("failed to fetch watchlist")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		item := &model.WatchlistItem{
			WatchlistID: id,
			Ticker:      ticker,
			Notes:       payload.Notes,
		}
		if err := repo.AddItem(r.Context(), item); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				http.Error(w, "Ticker already on watchlist", http.StatusConflict)
				return
			}
			logger.WithError(err).Error("failed to add watchlist item")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// RemoveWatchlistItemHandler drops a ticker from a watchlist.
func RemoveWatchlistItemHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

		removed, err := repo.RemoveItem(r.Context(), id, ticker)
		if err != nil {
			logger.WithError(err).Error("failed to remove watchlist item")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if removed == 0 {
			http.Error(w, "Ticker not on watchlist", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

func DefaultListWatchlistsHandler() http.HandlerFunc {
	return ListWatchlistsHandler(repository.NewWatchlistRepository(), repository.NewStockPriceRepository(), repository.NewInsiderTradeRepository())
}

func DefaultGetWatchlistHandler() http.HandlerFunc {
	return GetWatchlistHandler(repository.NewWatchlistRepository(), repository.NewStockPriceRepository(), repository.NewInsiderTradeRepository())
}

func DefaultCreateWatchlistHandler() http.HandlerFunc {
	return CreateWatchlistHandler(repository.NewWatchlistRepository())
}

func DefaultDeleteWatchlistHandler() http.HandlerFunc {
	return DeleteWatchlistHandler(repository.NewWatchlistRepository())
}

func DefaultAddWatchlistItemHandler() http.HandlerFunc {
	return AddWatchlistItemHandler(repository.NewWatchlistRepository())
}

func DefaultRemoveWatchlistItemHandler() http.HandlerFunc {
	return RemoveWatchlistItemHandler(repository.NewWatchlistRepository())
}
