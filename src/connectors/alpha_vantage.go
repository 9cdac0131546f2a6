package connectors

// REST client for the Alpha Vantage daily time series endpoint.
// RESTY ONLY + INTERNAL RETRY

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"insidertracker/src/model"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultAlphaVantageBaseURL = "https://www.alphavantage.co"

	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// Sentinel errors. The free tier returns HTTP 200 with a "Note" body
// when throttled and an "Error Message" body for unknown symbols, so
// callers need these to tell the cases apart.
var (
	ErrRateLimited    = errors.New("alpha vantage: rate limited")
	ErrTickerNotFound = errors.New("alpha vantage: ticker not found")
)

type alphaVantageDay struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type alphaVantageDailyResponse struct {
	Note         string                     `json:"Note,omitempty"`
	Information  string                     `json:"Information,omitempty"`
	ErrorMessage string                     `json:"Error Message,omitempty"`
	TimeSeries   map[string]alphaVantageDay `json:"Time Series (Daily)"`
}

type AlphaVantageClient struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

func NewAlphaVantageClient(apiKey, baseURL string) *AlphaVantageClient {
	retryCount := defaultRetryAttempts - 1

	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAlphaVantageBaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &AlphaVantageClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    httpClient,
	}
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == 429 || code >= 500
}

// FetchDaily pulls the daily OHLCV series for a ticker, oldest day
// first. outputSize is "compact" (last 100 days) or "full".
func (c *AlphaVantageClient) FetchDaily(ticker, outputSize string) ([]model.DailyBar, error) {
	if strings.TrimSpace(ticker) == "" {
		return nil, errors.New("ticker is required")
	}
	if outputSize == "" {
		outputSize = "compact"
	}

	resp, err := c.http.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": outputSize,
			"apikey":     c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, err
	}

	raw := resp.Body()
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(raw))
	}

	var body alphaVantageDailyResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w. raw=%s", err, string(raw))
	}

	// Throttling and premium-endpoint notices come back as HTTP 200
	// with an explanatory message instead of a series.
	if body.Note != "" || body.Information != "" {
		logger.WithFields(logger.Fields{
			"ticker": ticker,
			"note":   body.Note + body.Information,
		}).Warn("[AlphaVantage] request throttled")
		return nil, ErrRateLimited
	}
	if body.ErrorMessage != "" {
		return nil, ErrTickerNotFound
	}
	if len(body.TimeSeries) == 0 {
		return nil, fmt.Errorf("alpha vantage: empty time series for %s", ticker)
	}

	bars := make([]model.DailyBar, 0, len(body.TimeSeries))
	for dateStr, day := range body.TimeSeries {
		bar, err := parseDay(dateStr, day)
		if err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"ticker": ticker,
				"date":   dateStr,
			}).Warn("[AlphaVantage] skipping malformed bar")
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpha vantage: no parseable bars for %s", ticker)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

func parseDay(dateStr string, day alphaVantageDay) (model.DailyBar, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("bad date %q: %w", dateStr, err)
	}
	open, err := strconv.ParseFloat(day.Open, 64)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("bad open %q: %w", day.Open, err)
	}
	high, err := strconv.ParseFloat(day.High, 64)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("bad high %q: %w", day.High, err)
	}
	low, err := strconv.ParseFloat(day.Low, 64)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("bad low %q: %w", day.Low, err)
	}
	closePx, err := strconv.ParseFloat(day.Close, 64)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("bad close %q: %w", day.Close, err)
	}
	volume, err := strconv.ParseInt(day.Volume, 10, 64)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("bad volume %q: %w", day.Volume, err)
	}

	return model.DailyBar{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
	}, nil
}
