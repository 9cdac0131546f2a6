package scraper

// Screen-scrapes SEC Form 4 filings from openinsider.com. The site has
// no API; filings live in a single <table class="tinytable"> whose
// column set occasionally shifts, so rows are keyed by header text
// rather than position.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"insidertracker/src/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const defaultYears = 5

type Client struct {
	baseURL   string
	userAgent string
	http      *resty.Client
}

func NewClient(baseURL, userAgent string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", userAgent)

	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      httpClient,
	}
}

// ScrapeTicker pulls up to 500 filings for a ticker going back the
// given number of years. Rows without a parseable trade date are
// dropped, matching what the dedup index can key on.
func (c *Client) ScrapeTicker(ticker string, years int) ([]model.InsiderTrade, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if years <= 0 {
		years = defaultYears
	}

	now := time.Now()
	dateFrom := now.AddDate(0, 0, -365*years).Format("01/02/2006")
	dateTo := now.Format("01/02/2006")

	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"s":      ticker,
			"fd":     "-1",
			"fdr":    dateFrom + " - " + dateTo,
			"cnt":    "500",
			"action": "6",
		}).
		Get("/screener")
	if err != nil {
		return nil, fmt.Errorf("openinsider request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("openinsider returned HTTP %d", resp.StatusCode())
	}

	trades, err := parseScreener(resp.Body(), ticker)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"component": "scraper",
		"ticker":    ticker,
		"rows":      len(trades),
	}).Info("Scraped openinsider screener")

	return trades, nil
}

func parseScreener(html []byte, ticker string) ([]model.InsiderTrade, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse openinsider html: %w", err)
	}

	table := doc.Find("table.tinytable").First()
	if table.Length() == 0 {
		return nil, nil
	}

	var headers []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})

	var trades []model.InsiderTrade
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		row := map[string]string{}
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(td.Text())
			}
		})
		if len(row) == 0 {
			return
		}

		tradeDate := parseDate(pick(row, "Trade Date", "TradeDate"))
		if tradeDate == nil {
			return
		}

		trades = append(trades, model.InsiderTrade{
			FilingDate:      parseDate(pick(row, "Filing Date", "FilingDate")),
			TradeDate:       tradeDate,
			Ticker:          ticker,
			CompanyName:     pick(row, "Issuer", "Company Name"),
			InsiderName:     pick(row, "Insider Name", "InsiderName"),
			InsiderTitle:    pick(row, "Title"),
			TransactionType: pick(row, "Trade Type", "TradeType"),
			Price:           cleanPrice(pick(row, "Price")),
			Qty:             cleanQty(pick(row, "Qty")),
			Owned:           cleanQty(pick(row, "Owned")),
			DeltaOwn:        pick(row, "ΔOwn", "DeltaOwn"),
			Value:           cleanValue(pick(row, "Value")),
		})
	})

	return trades, nil
}

func pick(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// cleanPrice strips "$" and thousands separators.
func cleanPrice(val string) *float64 {
	return parseFloat(strings.NewReplacer("$", "", ",", "").Replace(val))
}

// cleanQty strips the explicit "+" sign openinsider puts on buys.
func cleanQty(val string) *float64 {
	return parseFloat(strings.NewReplacer("+", "", ",", "").Replace(val))
}

// cleanValue strips sign and currency markers, leaving the magnitude.
func cleanValue(val string) *float64 {
	return parseFloat(strings.NewReplacer("+", "", "-", "", "$", "", ",", "").Replace(val))
}

func parseFloat(val string) *float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

var dateFormats = []string{"2006-01-02", "01/02/2006", "01/02/06"}

func parseDate(val string) *time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	// Filing dates carry a time component on some pages.
	if i := strings.IndexByte(val, ' '); i > 0 {
		val = val[:i]
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, val); err == nil {
			return &t
		}
	}
	return nil
}
