package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/httputil"
	"github.com/wonny/quantdash/pkg/logger"
	"github.com/wonny/quantdash/pkg/numeric"
)

// SourceName tags bars delivered by this provider
const SourceName = "stooq"

// Client downloads daily history CSV from stooq.com
// ⭐ SSOT: Stooq 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Stooq client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "stooq"),
		baseURL:    "https://stooq.com",
	}
}

// WithBaseURL overrides the host (tests)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Name implements collector.Provider
func (c *Client) Name() string { return SourceName }

// Daily fetches the full daily history and keeps bars in [from, to)
func (c *Client) Daily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	u := fmt.Sprintf("%s/q/d/l/?s=%s.us&i=d", c.baseURL, strings.ToLower(symbol))

	body, err := c.httpClient.GetBody(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch %s: %w", symbol, err)
	}

	bars, err := parseCSV(symbol, body)
	if err != nil {
		return nil, err
	}

	out := bars[:0]
	for _, b := range bars {
		if !b.TradeDate.Before(from) && b.TradeDate.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// parseCSV reads Date,Open,High,Low,Close,Volume rows; "No data" yields nothing
func parseCSV(symbol string, body []byte) ([]contracts.Bar, error) {
	if bytes.Contains(body, []byte("No data")) || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("stooq header %s: %w", symbol, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("stooq %s: missing column %q", symbol, col)
		}
	}

	var bars []contracts.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stooq read %s: %w", symbol, err)
		}

		bar, ok := parseRecord(symbol, rec, idx)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TradeDate.Before(bars[j].TradeDate) })
	return bars, nil
}

func parseRecord(symbol string, rec []string, idx map[string]int) (contracts.Bar, bool) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, err := time.Parse("2006-01-02", field("date"))
	if err != nil {
		return contracts.Bar{}, false
	}

	prices := make([]float64, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return contracts.Bar{}, false
		}
		prices[i] = numeric.Price(v)
	}

	var volume int64
	if v, err := strconv.ParseFloat(field("volume"), 64); err == nil {
		volume = int64(v)
	}

	return contracts.Bar{
		Symbol:    symbol,
		TradeDate: date,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
		Source:    SourceName,
	}, true
}
