package s0_data

import (
	"context"
	"fmt"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/database"
)

// MetricsTable is quant_metrics
var MetricsTable = Table{
	Name:    "quant_metrics",
	Key:     []string{"symbol", "trade_date"},
	Columns: []string{"close", "sma_5", "sma_20", "sma_60", "sma_200", "momentum_5d", "signal"},
}

type metricsRecord struct {
	contracts.IndicatorRow
}

func (r metricsRecord) Key() string {
	return r.Symbol + "|" + r.TradeDate.Format(database.DateLayout)
}

func (r metricsRecord) Values(d database.Dialect) []any {
	return []any{
		r.Symbol, d.Date(r.TradeDate),
		r.Close, r.SMA5, r.SMA20, r.SMA60, r.SMA200, r.Momentum5D, string(r.Signal),
	}
}

// MetricsRepository is the Metrics Store
// ⭐ SSOT: 지표 저장소는 여기서만
type MetricsRepository struct {
	upserter Upserter
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(upserter Upserter) *MetricsRepository {
	return &MetricsRepository{upserter: upserter}
}

const metricsColumns = `symbol, trade_date, close, sma_5, sma_20, sma_60, sma_200, momentum_5d, signal`

// Upsert writes indicator rows; returns the number of distinct keys
func (r *MetricsRepository) Upsert(ctx context.Context, tx database.Tx, rows []contracts.IndicatorRow) (int, error) {
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = metricsRecord{row}
	}
	return r.upserter.Upsert(ctx, tx, MetricsTable, records)
}

// History returns every stored row ordered by (symbol, trade_date)
func (r *MetricsRepository) History(ctx context.Context, q database.Querier) ([]contracts.IndicatorRow, error) {
	return r.query(ctx, q, `SELECT `+metricsColumns+` FROM quant_metrics ORDER BY symbol, trade_date`)
}

// LatestPerSymbol returns the most recent row of each symbol, ordered by symbol
func (r *MetricsRepository) LatestPerSymbol(ctx context.Context, q database.Querier) ([]contracts.IndicatorRow, error) {
	return r.query(ctx, q, `
		SELECT m.symbol, m.trade_date, m.close, m.sma_5, m.sma_20, m.sma_60, m.sma_200, m.momentum_5d, m.signal
		FROM quant_metrics m
		JOIN (
			SELECT symbol, MAX(trade_date) AS trade_date
			FROM quant_metrics
			GROUP BY symbol
		) latest ON latest.symbol = m.symbol AND latest.trade_date = m.trade_date
		ORDER BY m.symbol
	`)
}

func (r *MetricsRepository) query(ctx context.Context, q database.Querier, query string, args ...any) ([]contracts.IndicatorRow, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []contracts.IndicatorRow
	for rows.Next() {
		row, err := ScanIndicatorRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return out, nil
}

// ScanIndicatorRow scans the metricsColumns projection
func ScanIndicatorRow(rows database.Rows, extra ...any) (contracts.IndicatorRow, error) {
	var (
		row       contracts.IndicatorRow
		tradeDate database.NullTime
		signal    string
	)
	dest := append([]any{
		&row.Symbol, &tradeDate, &row.Close,
		&row.SMA5, &row.SMA20, &row.SMA60, &row.SMA200, &row.Momentum5D, &signal,
	}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return row, fmt.Errorf("scan metrics row: %w", err)
	}
	row.TradeDate = tradeDate.Time
	row.Signal = contracts.Signal(signal)
	return row, nil
}
