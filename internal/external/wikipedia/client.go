package wikipedia

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/quantdash/pkg/httputil"
	"github.com/wonny/quantdash/pkg/logger"
)

// SP500Path is the constituents article
const SP500Path = "/wiki/List_of_S%26P_500_companies"

// Constituent is one row of the S&P 500 constituents table
type Constituent struct {
	Symbol string
	Sector string
}

// Client scrapes index membership tables from Wikipedia
// ⭐ SSOT: Wikipedia 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Wikipedia client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "wikipedia"),
		baseURL:    "https://en.wikipedia.org",
	}
}

// WithBaseURL overrides the host (tests)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// SP500 returns the constituents in table order
func (c *Client) SP500(ctx context.Context) ([]Constituent, error) {
	body, err := c.httpClient.GetBody(ctx, c.baseURL+SP500Path)
	if err != nil {
		return nil, fmt.Errorf("fetch s&p 500 table: %w", err)
	}

	rows, err := parseConstituents(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(rows)).Debug("Parsed S&P 500 constituents")
	return rows, nil
}

// parseConstituents reads the first table that has a Symbol header
func parseConstituents(html []byte) ([]Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tables := doc.Find("table#constituents")
	if tables.Length() == 0 {
		tables = doc.Find("table.wikitable")
	}

	var (
		out   []Constituent
		found bool
	)
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		symbolCol, sectorCol := -1, -1
		table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
			switch strings.TrimSpace(th.Text()) {
			case "Symbol", "Ticker symbol", "Ticker":
				symbolCol = i
			case "GICS Sector":
				sectorCol = i
			}
		})
		if symbolCol < 0 {
			return true
		}

		found = true
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= symbolCol {
				return
			}
			symbol := strings.TrimSpace(cells.Eq(symbolCol).Text())
			if symbol == "" {
				return
			}
			sector := "Unknown"
			if sectorCol >= 0 && cells.Length() > sectorCol {
				if s := strings.TrimSpace(cells.Eq(sectorCol).Text()); s != "" {
					sector = s
				}
			}
			out = append(out, Constituent{Symbol: symbol, Sector: sector})
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("s&p 500 table not found")
	}
	return out, nil
}
