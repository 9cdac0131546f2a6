package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"insidertracker/src/connectors"
	"insidertracker/src/model"
	"insidertracker/src/prices"
	"insidertracker/src/repository"
	"insidertracker/src/service"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type performanceStore interface {
	List(ctx context.Context, ticker string, limit, offset int) ([]model.Performance, error)
	FindByTradeID(ctx context.Context, myTradeID uint) (*model.Performance, error)
	Save(ctx context.Context, perf *model.Performance) error
	Dashboard(ctx context.Context) (*repository.DashboardStats, error)
}

type backfillRunner interface {
	Run(ctx context.Context) (*service.BackfillResult, error)
}

// ListPerformanceHandler lists snapshot records, newest update first.
func ListPerformanceHandler(repo performanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 100)
		if limit > 500 {
			limit = 500
		}
		rows, err := repo.List(r.Context(), strings.ToUpper(r.URL.Query().Get("ticker")), limit, queryInt(r, "offset", 0))
		if err != nil {
			logger.WithError(err).Error("failed to list performance records")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// GetPerformanceByTradeHandler fetches the snapshot for one trade.
func GetPerformanceByTradeHandler(repo performanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "tradeId"))
		if !ok {
			http.Error(w, "invalid trade id", http.StatusBadRequest)
			return
		}
		perf, err := repo.FindByTradeID(r.Context(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Performance record not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch performance record")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, perf)
	}
}

// UpdatePerformanceHandler applies manual snapshot price corrections.
// Returns are recomputed from the entry price, never trusted from the
// client.
func UpdatePerformanceHandler(repo performanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUint(chi.URLParam(r, "tradeId"))
		if !ok {
			http.Error(w, "invalid trade id", http.StatusBadRequest)
			return
		}

		var payload model.UpdatePerformancePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid performance update payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		perf, err := repo.FindByTradeID(r.Context(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Performance record not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch performance record")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		prices.ApplyManualUpdate(perf, &payload)
		if err := repo.Save(r.Context(), perf); err != nil {
			logger.WithError(err).Error("failed to save performance record")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, perf)
	}
}

// DashboardHandler returns the homepage stat block.
func DashboardHandler(repo performanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.Dashboard(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to build dashboard stats")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// BackfillHandler runs the snapshot backfill job synchronously and
// reports what it filled.
func BackfillHandler(job backfillRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		result, err := job.Run(r.Context())
		if err != nil {
			logger.WithError(err).Error("backfill run failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		logger.WithField("took", time.Since(started).String()).Info("backfill finished")
		writeJSON(w, http.StatusOK, result)
	}
}

func DefaultListPerformanceHandler() http.HandlerFunc {
	return ListPerformanceHandler(repository.NewPerformanceRepository())
}

func DefaultGetPerformanceByTradeHandler() http.HandlerFunc {
	return GetPerformanceByTradeHandler(repository.NewPerformanceRepository())
}

func DefaultUpdatePerformanceHandler() http.HandlerFunc {
	return UpdatePerformanceHandler(repository.NewPerformanceRepository())
}

func DefaultDashboardHandler() http.HandlerFunc {
	return DashboardHandler(repository.NewPerformanceRepository())
}

func DefaultBackfillHandler() http.HandlerFunc {
	config := connectors.GetConfig()
	priceService := service.NewPriceService(
		repository.NewStockPriceRepository(),
		connectors.NewAlphaVantageClient(config.AlphaVantageAPIKey, config.AlphaVantageBaseURL),
	)
	return BackfillHandler(service.NewBackfillService(
		repository.NewMyTradeRepository(),
		repository.NewPerformanceRepository(),
		priceService,
	))
}
