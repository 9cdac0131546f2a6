package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"insidertracker/src/model"
)

type mockScraper struct {
	trades []model.InsiderTrade
	err    error
	ticker string
	years  int
}

func (m *mockScraper) ScrapeTicker(ticker string, years int) ([]model.InsiderTrade, error) {
	m.ticker = ticker
	m.years = years
	return m.trades, m.err
}

type mockInsiderWriter struct {
	inserted int
	received []model.InsiderTrade
}

func (m *mockInsiderWriter) Upsert(_ context.Context, trades []model.InsiderTrade) (int, error) {
	m.received = trades
	return m.inserted, nil
}

type mockFilings struct {
	byTicker []model.InsiderTrade
}

func (m *mockFilings) ByTicker(_ context.Context, _ string) ([]model.InsiderTrade, error) {
	return m.byTicker, nil
}

type mockMyTradesByTicker struct {
	trades []model.MyTrade
}

func (m *mockMyTradesByTicker) ListByTicker(_ context.Context, _ uint, _ string) ([]model.MyTrade, error) {
	return m.trades, nil
}

func TestFetchTickerHandler_Success(t *testing.T) {
	tradeDate := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	scr := &mockScraper{trades: []model.InsiderTrade{
		{Ticker: "AAPL", TradeDate: &tradeDate, InsiderName: "Cook Timothy", TransactionType: "P - Purchase"},
		{Ticker: "AAPL", TradeDate: &tradeDate, InsiderName: "Maestri Luca", TransactionType: "S - Sale"},
	}}
	writer := &mockInsiderWriter{inserted: 1}
	handler := FetchTickerHandler(scr, writer)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/insider/fetch/aapl?years=3", nil), "ticker", "aapl")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if scr.ticker != "AAPL" || scr.years != 3 {
		t.Fatalf("scraper called with %q/%d", scr.ticker, scr.years)
	}

	var resp FetchResult
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Scraped != 2 || resp.Inserted != 1 || resp.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", resp)
	}
}

func TestFetchTickerHandler_InvalidYears(t *testing.T) {
	handler := FetchTickerHandler(&mockScraper{}, &mockInsiderWriter{})

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/insider/fetch/AAPL?years=25", nil), "ticker", "AAPL")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestFetchTickerHandler_ScrapeFailure(t *testing.T) {
	handler := FetchTickerHandler(&mockScraper{err: errors.New("blocked")}, &mockInsiderWriter{})

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/insider/fetch/AAPL", nil), "ticker", "AAPL")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rr.Code)
	}
}

func TestTickerSummaryHandler_NotFound(t *testing.T) {
	handler := TickerSummaryHandler(&mockFilings{}, &mockMyTradesByTicker{})

	req := asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/insider/ticker/NOPE/summary", nil), "ticker", "NOPE"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestTickerSummaryHandler_Aggregates(t *testing.T) {
	buyValue, sellValue := 500000.0, 200000.0
	ret1m1, ret1m2 := 10.0, 20.0
	filings := &mockFilings{byTicker: []model.InsiderTrade{
		{Ticker: "AAPL", TransactionType: "P - Purchase", Value: &buyValue},
		{Ticker: "AAPL", TransactionType: "S - Sale", Value: &sellValue},
		{Ticker: "AAPL", TransactionType: "G - Gift"},
	}}
	mine := &mockMyTradesByTicker{trades: []model.MyTrade{
		{ID: 1, Ticker: "AAPL", Performance: &model.Performance{Return1M: &ret1m1}},
		{ID: 2, Ticker: "AAPL", Performance: &model.Performance{Return1M: &ret1m2}},
		{ID: 3, Ticker: "AAPL"},
	}}
	handler := TickerSummaryHandler(filings, mine)

	req := asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/insider/ticker/AAPL/summary", nil), "ticker", "AAPL"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp TickerSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.TotalInsiderPurchases != 1 || resp.TotalInsiderSales != 1 {
		t.Fatalf("gifts must not count as buys or sells: %+v", resp)
	}
	if resp.TotalInsiderPurchaseValue != buyValue || resp.TotalInsiderSaleValue != sellValue {
		t.Fatalf("unexpected values: %+v", resp)
	}
	if resp.MyTradeCount != 3 {
		t.Fatalf("expected 3 personal trades, got %d", resp.MyTradeCount)
	}
	if resp.AvgReturn1M == nil || *resp.AvgReturn1M != 15.0 {
		t.Fatalf("expected avg 1m return 15, got %v", resp.AvgReturn1M)
	}
	if resp.AvgReturn3M != nil {
		t.Fatalf("expected nil 3m average, got %v", resp.AvgReturn3M)
	}
}
