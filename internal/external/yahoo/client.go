package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/httputil"
	"github.com/wonny/quantdash/pkg/logger"
	"github.com/wonny/quantdash/pkg/numeric"
)

// SourceName tags bars delivered by this provider
const SourceName = "yahoo"

// Client handles communication with the Yahoo Finance chart API
// ⭐ SSOT: Yahoo 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "yahoo"),
		baseURL:    "https://query1.finance.yahoo.com",
	}
}

// WithBaseURL overrides the API host (tests)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Name implements collector.Provider
func (c *Client) Name() string { return SourceName }

// chartResponse is the response structure of /v8/finance/chart
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Daily fetches daily bars in [from, to) ordered by date
// An unknown symbol or an empty window returns no bars and no error
func (c *Client) Daily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history",
		c.baseURL, url.PathEscape(symbol), from.Unix(), to.Unix())

	body, err := c.httpClient.GetBody(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}

	return parseChart(symbol, body)
}

func parseChart(symbol string, body []byte) ([]contracts.Bar, error) {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]contracts.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		open, high, low, close := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if open == nil || high == nil || low == nil || close == nil {
			continue // holidays / partial rows
		}

		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		var volume int64
		if v := at(quote.Volume, i); v != nil {
			volume = int64(*v)
		}

		bars = append(bars, contracts.Bar{
			Symbol:    symbol,
			TradeDate: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Open:      numeric.Price(*open),
			High:      numeric.Price(*high),
			Low:       numeric.Price(*low),
			Close:     numeric.Price(*close),
			Volume:    volume,
			Source:    SourceName,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TradeDate.Before(bars[j].TradeDate) })
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
