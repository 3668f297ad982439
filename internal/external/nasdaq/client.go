package nasdaq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/quantdash/pkg/httputil"
	"github.com/wonny/quantdash/pkg/logger"
)

// Symbol directory files published by nasdaqtrader.com
const (
	NasdaqListedPath = "/dynamic/symdir/nasdaqlisted.txt"
	OtherListedPath  = "/dynamic/symdir/otherlisted.txt"
)

// Client downloads the pipe-delimited US symbol directories
// ⭐ SSOT: nasdaqtrader 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new symbol directory client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "nasdaq"),
		baseURL:    "https://www.nasdaqtrader.com",
	}
}

// WithBaseURL overrides the host (tests)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Directories returns the raw symbols of each directory file, in file order
func (c *Client) Directories(ctx context.Context) ([][]string, error) {
	var out [][]string
	for _, path := range []string{NasdaqListedPath, OtherListedPath} {
		body, err := c.httpClient.GetBody(ctx, c.baseURL+path)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", path, err)
		}

		symbols, err := parseDirectory(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		c.logger.WithFields(map[string]interface{}{
			"path":  path,
			"count": len(symbols),
		}).Debug("Parsed symbol directory")
		out = append(out, symbols)
	}
	return out, nil
}

// parseDirectory reads the Symbol (or ACT Symbol) column
// The trailing "File Creation Time" line is skipped
func parseDirectory(body []byte) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = '|'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "Symbol" {
			col = i
			break
		}
		if h == "ACT Symbol" && col < 0 {
			col = i
		}
	}
	if col < 0 {
		return nil, nil
	}

	var symbols []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) == 0 || strings.HasPrefix(rec[0], "File Creation Time") {
			continue
		}
		if col < len(rec) {
			symbols = append(symbols, strings.TrimSpace(rec[col]))
		}
	}
	return symbols, nil
}
