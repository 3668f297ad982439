package dashboard

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/logger"
	"github.com/wonny/quantdash/pkg/redis"
)

func scored(symbol, sector string, short, mid, long int) contracts.ScoredSymbol {
	hs := func(v int) contracts.HorizonScore {
		return contracts.HorizonScore{Score: v, Signal: contracts.SignalFrom(v >= contracts.BuyThreshold)}
	}
	return contracts.ScoredSymbol{
		Symbol: symbol, Sector: sector, Source: "yahoo",
		TradeDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Close:     100,
		Short:     hs(short), Mid: hs(mid), Long: hs(long),
	}
}

func TestSectors(t *testing.T) {
	in := []contracts.ScoredSymbol{
		scored("A", "Technology", 0, 0, 0),
		scored("B", "Energy", 0, 0, 0),
		scored("C", "Technology", 0, 0, 0),
		scored("D", "", 0, 0, 0),
	}
	assert.Equal(t, []string{"Energy", "Technology"}, Sectors(in))
	assert.Equal(t, []string{}, Sectors(nil))
}

func TestHorizonTable(t *testing.T) {
	in := []contracts.ScoredSymbol{
		scored("B", "X", 50, 70, 10),
		scored("A", "X", 50, 20, 90),
		scored("C", "X", 80, 70, 40),
	}

	short := HorizonTable(in, contracts.HorizonShort)
	assert.Equal(t, []string{"C", "A", "B"}, symbols(short))
	assert.Equal(t, contracts.SignalBuy, short[0].Signal)
	assert.Equal(t, "yahoo", short[0].Source)

	assert.Equal(t, []string{"B", "C", "A"}, symbols(HorizonTable(in, contracts.HorizonMid)))
	assert.Equal(t, []string{"A", "C", "B"}, symbols(HorizonTable(in, contracts.HorizonLong)))
}

func symbols(entries []contracts.HorizonEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}

func TestBuild_EmptyCollectionsEncodeAsArrays(t *testing.T) {
	d := Build(Input{RunID: "r1", Timezone: "UTC"})
	data, err := json.Marshal(d)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"latest_metrics", "scored", "recommendations", "sectors", "recent_runs"} {
		assert.Equal(t, []interface{}{}, doc[key], key)
	}
	assert.Equal(t, map[string]interface{}{}, doc["details"])
	horizons := doc["horizons"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, horizons["short"])
}

func TestExporter_WritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data", "latest.json")
	e := NewExporter(path, nil, logger.NewNop())

	generated := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	d := Build(Input{
		RunID:       "abc",
		GeneratedAt: generated,
		Timezone:    "UTC",
		Details:     map[string]interface{}{"price_rows": 3},
		Scored:      []contracts.ScoredSymbol{scored("AAPL", "Technology", 60, 60, 60)},
	})

	data, err := e.Export(d)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	var decoded contracts.Dashboard
	require.NoError(t, json.Unmarshal(onDisk, &decoded))
	assert.Equal(t, "abc", decoded.RunID)
	assert.True(t, decoded.GeneratedAt.Equal(generated))
	assert.Equal(t, []string{"Technology"}, decoded.Sectors)
	require.Len(t, decoded.Horizons.Long, 1)
	assert.Contains(t, string(onDisk), `"generated_at": "2024-03-01T18:00:00Z"`)

	// overwritten wholesale, no temp files left behind
	d.RunID = "def"
	_, err = e.Export(d)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "latest.json", entries[0].Name())

	data, err = Load(context.Background(), path, redis.NewCache(redis.Disabled(), "quantdash"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "def"`)
}

func TestExporter_WithPath(t *testing.T) {
	e := NewExporter("a.json", nil, logger.NewNop())
	other := e.WithPath("b.json")
	assert.Equal(t, "a.json", e.Path())
	assert.Equal(t, "b.json", other.Path())
}

func TestExporter_PublishWithoutCache(t *testing.T) {
	e := NewExporter("a.json", nil, logger.NewNop())
	assert.NoError(t, e.Publish(context.Background(), []byte("{}")))

	e = NewExporter("a.json", redis.NewCache(redis.Disabled(), "quantdash"), logger.NewNop())
	assert.NoError(t, e.Publish(context.Background(), []byte("{}")))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.json"), nil)
	assert.Error(t, err)
}
