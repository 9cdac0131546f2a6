package connectors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const dailyBody = `{
  "Meta Data": {"2. Symbol": "AAPL"},
  "Time Series (Daily)": {
    "2024-03-14": {"1. open": "172.10", "2. high": "174.00", "3. low": "171.50", "4. close": "173.00", "5. volume": "60432100"},
    "2024-03-13": {"1. open": "170.00", "2. high": "172.50", "3. low": "169.80", "4. close": "171.13", "5. volume": "52488700"}
  }
}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY" {
			t.Errorf("unexpected function %q", got)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchDailyParsesAndSorts(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, dailyBody)
	defer srv.Close()

	client := NewAlphaVantageClient("demo", srv.URL)
	bars, err := client.FetchDaily("AAPL", "compact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Fatalf("expected bars sorted oldest first")
	}
	if bars[0].Close != 171.13 {
		t.Fatalf("expected first close 171.13, got %v", bars[0].Close)
	}
	if bars[1].Volume != 60432100 {
		t.Fatalf("expected volume 60432100, got %d", bars[1].Volume)
	}
}

func TestFetchDailyRateLimited(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	defer srv.Close()

	client := NewAlphaVantageClient("demo", srv.URL)
	_, err := client.FetchDaily("AAPL", "")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFetchDailyInformationIsRateLimited(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"Information": "This is a premium endpoint."}`)
	defer srv.Close()

	client := NewAlphaVantageClient("demo", srv.URL)
	_, err := client.FetchDaily("AAPL", "")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFetchDailyUnknownTicker(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"Error Message": "Invalid API call."}`)
	defer srv.Close()

	client := NewAlphaVantageClient("demo", srv.URL)
	_, err := client.FetchDaily("NOPE", "")
	if !errors.Is(err, ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound, got %v", err)
	}
}

func TestFetchDailyRequiresTicker(t *testing.T) {
	client := NewAlphaVantageClient("demo", "http://localhost:1")
	if _, err := client.FetchDaily("", ""); err == nil {
		t.Fatal("expected error for empty ticker")
	}
}

func TestIsRetryableResp(t *testing.T) {
	if !isRetryableResp(nil, errors.New("conn refused")) {
		t.Fatal("transport errors should be retryable")
	}
	if isRetryableResp(nil, nil) {
		t.Fatal("nil response without error should not be retryable")
	}
}
