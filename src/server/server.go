package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insidertracker/src/auth"
	"insidertracker/src/handler"
	"insidertracker/src/repository"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

func StartServer(port string) {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})
	r.Post("/auth/register", handler.DefaultRegisterHandler())
	r.Post("/auth/login", handler.DefaultLoginHandler())

	// Everything else requires a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(repository.NewUserRepository()))

		r.Get("/auth/me", handler.MeHandler())
		r.Post("/auth/logout", handler.DefaultLogoutHandler())

		r.Route("/insider", func(r chi.Router) {
			r.Get("/", handler.DefaultSearchInsiderTradesHandler())
			r.Get("/count", handler.DefaultCountInsiderTradesHandler())
			r.Get("/tickers", handler.DefaultTrackedTickersHandler())
			r.Post("/fetch/{ticker}", handler.DefaultFetchTickerHandler())
			r.Get("/ticker/{ticker}/summary", handler.DefaultTickerSummaryHandler())
			r.Get("/{id}", handler.DefaultGetInsiderTradeHandler())
		})

		r.Route("/my-trades", func(r chi.Router) {
			r.Get("/", handler.DefaultListMyTradesHandler())
			r.Post("/", handler.DefaultCreateMyTradeHandler())
			r.Get("/{id}", handler.DefaultGetMyTradeHandler())
			r.Patch("/{id}", handler.DefaultUpdateMyTradeHandler())
			r.Delete("/{id}", handler.DefaultDeleteMyTradeHandler())
		})

		r.Route("/performance", func(r chi.Router) {
			r.Get("/", handler.DefaultListPerformanceHandler())
			r.Get("/dashboard", handler.DefaultDashboardHandler())
			r.Post("/backfill", handler.DefaultBackfillHandler())
			r.Get("/trade/{tradeId}", handler.DefaultGetPerformanceByTradeHandler())
			r.Patch("/trade/{tradeId}", handler.DefaultUpdatePerformanceHandler())
		})

		r.Get("/portfolio", handler.DefaultPortfolioHandler())

		r.Route("/signals", func(r chi.Router) {
			r.Get("/cluster-buys", handler.DefaultClusterBuysHandler())
			r.Get("/conviction", handler.DefaultConvictionHandler())
			r.Get("/screener", handler.DefaultScreenerHandler())
		})

		r.Route("/watchlists", func(r chi.Router) {
			r.Get("/", handler.DefaultListWatchlistsHandler())
			r.Post("/", handler.DefaultCreateWatchlistHandler())
			r.Get("/{id}", handler.DefaultGetWatchlistHandler())
			r.Delete("/{id}", handler.DefaultDeleteWatchlistHandler())
			r.Post("/{id}/items", handler.DefaultAddWatchlistItemHandler())
			r.Delete("/{id}/items/{ticker}", handler.DefaultRemoveWatchlistItemHandler())
		})

		r.Route("/company", func(r chi.Router) {
			r.Post("/prices/refresh/{ticker}", handler.DefaultRefreshPricesHandler())
			r.Get("/{ticker}", handler.DefaultCompanyHandler())
		})
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
