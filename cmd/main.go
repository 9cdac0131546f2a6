package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"insidertracker/src/connectors"
	"insidertracker/src/database"
	"insidertracker/src/repository"
	"insidertracker/src/scraper"
	"insidertracker/src/service"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "insidertracker CMD"
	app.Usage = "The insidertracker command line interface"

	app.Commands = []cli.Command{
		fetchCMD,
		pricesCMD,
		backfillCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	fetchCMD = cli.Command{
		Name:      "fetch",
		Usage:     "scrape openinsider.com filings for a ticker into the database",
		Action:    fetchAction,
		ArgsUsage: "TICKER",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "years", Value: 5, Usage: "look-back window in years"},
		},
		Description: `Scrape SEC Form 4 filings for one ticker and load them, skipping duplicates`,
	}
	pricesCMD = cli.Command{
		Name:        "prices",
		Usage:       "refresh the cached daily price history for a ticker",
		Action:      pricesAction,
		ArgsUsage:   "TICKER",
		Flags:       []cli.Flag{},
		Description: `Force a fetch of daily OHLCV history from the market-data provider`,
	}
	backfillCMD = cli.Command{
		Name:        "backfill",
		Usage:       "fill missing post-trade performance snapshots",
		Action:      backfillAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the snapshot backfill job over every personal trade`,
	}
)

func fetchAction(c *cli.Context) error {
	ticker := strings.ToUpper(c.Args().First())
	if ticker == "" {
		return fmt.Errorf("usage: fetch TICKER")
	}

	logrus.WithField("cmd", "fetch").Info("Starting fetch CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	config := scraper.GetConfig()
	client := scraper.NewClient(config.OpenInsiderBaseURL, config.UserAgent)
	trades, err := client.ScrapeTicker(ticker, c.Int("years"))
	if err != nil {
		logrus.WithError(err).Error("Scrape failed")
		return err
	}

	inserted, err := repository.NewInsiderTradeRepository().Upsert(context.Background(), trades)
	if err != nil {
		logrus.WithError(err).Error("Failed to store scraped filings")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"ticker":   ticker,
		"scraped":  len(trades),
		"inserted": inserted,
	}).Info("Fetch completed")
	return nil
}

func pricesAction(c *cli.Context) error {
	ticker := strings.ToUpper(c.Args().First())
	if ticker == "" {
		return fmt.Errorf("usage: prices TICKER")
	}

	logrus.WithField("cmd", "prices").Info("Starting prices CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	cached, err := newPriceService().Refresh(context.Background(), ticker)
	if err != nil {
		logrus.WithError(err).Error("Price refresh failed")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"ticker": ticker,
		"cached": cached,
	}).Info("Price refresh completed")
	return nil
}

func backfillAction(_ *cli.Context) error {
	logrus.WithField("cmd", "backfill").Info("Starting backfill CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	job := service.NewBackfillService(
		repository.NewMyTradeRepository(),
		repository.NewPerformanceRepository(),
		newPriceService(),
	)
	result, err := job.Run(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Backfill failed")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"checked": result.TradesChecked,
		"updated": result.TradesUpdated,
		"filled":  result.SlotsFilled,
		"errors":  result.Errors,
	}).Info("Backfill completed")
	return nil
}

func newPriceService() *service.PriceService {
	config := connectors.GetConfig()
	return service.NewPriceService(
		repository.NewStockPriceRepository(),
		connectors.NewAlphaVantageClient(config.AlphaVantageAPIKey, config.AlphaVantageBaseURL),
	)
}
