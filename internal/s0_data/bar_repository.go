package s0_data

import (
	"context"
	"fmt"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/database"
)

// BarTable is price_data
var BarTable = Table{
	Name:    "price_data",
	Key:     []string{"symbol", "trade_date"},
	Columns: []string{"open", "high", "low", "close", "volume", "source"},
}

type barRecord struct {
	contracts.Bar
}

func (r barRecord) Key() string {
	return r.Symbol + "|" + r.TradeDate.Format(database.DateLayout)
}

func (r barRecord) Values(d database.Dialect) []any {
	return []any{r.Symbol, d.Date(r.TradeDate), r.Open, r.High, r.Low, r.Close, r.Volume, r.Source}
}

// BarRepository is the Bar Store
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type BarRepository struct {
	upserter Upserter
}

// NewBarRepository creates a new bar repository
func NewBarRepository(upserter Upserter) *BarRepository {
	return &BarRepository{upserter: upserter}
}

// Upsert writes bars; returns the number of distinct (symbol, trade_date) keys
func (r *BarRepository) Upsert(ctx context.Context, tx database.Tx, bars []contracts.Bar) (int, error) {
	records := make([]Record, len(bars))
	for i, b := range bars {
		records[i] = barRecord{b}
	}
	return r.upserter.Upsert(ctx, tx, BarTable, records)
}

// ForSymbols loads the full stored history of symbols ordered by (symbol, trade_date)
func (r *BarRepository) ForSymbols(ctx context.Context, q database.Querier, symbols []string) ([]contracts.Bar, error) {
	var bars []contracts.Bar

	for _, chunk := range chunkStrings(symbols, maxInParams) {
		query := fmt.Sprintf(`
			SELECT symbol, trade_date, open, high, low, close, volume, source, updated_at
			FROM price_data
			WHERE symbol IN (%s)
			ORDER BY symbol, trade_date
		`, database.Placeholders(len(chunk)))

		rows, err := q.Query(ctx, query, toArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("query bars: %w", err)
		}

		for rows.Next() {
			var (
				b         contracts.Bar
				tradeDate database.NullTime
				updatedAt database.NullTime
			)
			if err := rows.Scan(&b.Symbol, &tradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Source, &updatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan bar: %w", err)
			}
			b.TradeDate = tradeDate.Time
			b.UpdatedAt = updatedAt.Time
			bars = append(bars, b)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate bars: %w", err)
		}
	}

	return bars, nil
}

// Count returns the number of stored bars
func (r *BarRepository) Count(ctx context.Context, q database.Querier) (int64, error) {
	return countRows(ctx, q, "SELECT COUNT(*) FROM price_data")
}

const maxInParams = 500

func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for len(items) > 0 {
		n := size
		if len(items) < n {
			n = len(items)
		}
		chunks = append(chunks, items[:n])
		items = items[n:]
	}
	return chunks
}

func toArgs(items []string) []any {
	args := make([]any, len(items))
	for i, s := range items {
		args[i] = s
	}
	return args
}

func countRows(ctx context.Context, q database.Querier, query string, args ...any) (int64, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
