package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/pkg/httputil"
	"github.com/wonny/quantdash/pkg/logger"
)

const csvFixture = `Date,Open,High,Low,Close,Volume
2024-01-03,184.22,185.88,183.43,184.25,58414500
2024-01-02,187.15,188.44,183.885,185.639,82488700
2024-01-04,bad,1,1,1,1
2024-01-05,181.99,182.76,180.17,181.18,62379700
`

func TestParseCSV(t *testing.T) {
	bars, err := parseCSV("AAPL", []byte(csvFixture))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].TradeDate)
	assert.Equal(t, 185.64, bars[0].Close)
	assert.Equal(t, 183.89, bars[0].Low)
	assert.Equal(t, int64(82488700), bars[0].Volume)
	assert.Equal(t, SourceName, bars[2].Source)
}

func TestParseCSV_NoData(t *testing.T) {
	bars, err := parseCSV("ZZZZ", []byte("No data"))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := parseCSV("AAPL", []byte("Date,Open\n2024-01-02,1\n"))
	assert.Error(t, err)
}

func TestDaily_FiltersWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "aapl.us", r.URL.Query().Get("s"))
		assert.Equal(t, "d", r.URL.Query().Get("i"))
		_, _ = w.Write([]byte(csvFixture))
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.NewNop()).DisableRetry(), logger.NewNop()).WithBaseURL(server.URL)

	bars, err := client.Daily(context.Background(), "AAPL",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 184.25, bars[0].Close)
}
