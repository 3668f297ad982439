package s0_data

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/database"
)

// Upsert modes (storage.upsert_mode)
const (
	UpsertNative       = "native"
	UpsertDeleteInsert = "delete_insert"
)

// Table describes an upsert target. Columns excludes the key and updated_at
type Table struct {
	Name    string
	Key     []string
	Columns []string
}

// Record is one row destined for a Table
type Record interface {
	// Key identifies the row within a batch
	Key() string
	// Values returns key values then column values, in Table order
	Values(d database.Dialect) []any
}

// Upserter writes records so that existing keys are overwritten and new keys inserted
// It runs on the caller's transaction and never commits
// ⭐ SSOT: 모든 쓰기는 upsert로만 수행 (raw insert 금지)
type Upserter interface {
	Upsert(ctx context.Context, tx database.Tx, table Table, records []Record) (int, error)
}

// NewUpserter returns the implementation for mode
func NewUpserter(mode string, clk clock.Clock) (Upserter, error) {
	switch mode {
	case "", UpsertNative:
		return &NativeUpserter{clock: clk}, nil
	case UpsertDeleteInsert:
		return &DeleteInsertUpserter{clock: clk}, nil
	default:
		return nil, fmt.Errorf("unknown upsert mode: %q", mode)
	}
}

// NativeUpserter uses INSERT ... ON CONFLICT DO UPDATE (Postgres, SQLite)
type NativeUpserter struct {
	clock clock.Clock
}

// Upsert implements Upserter
func (u *NativeUpserter) Upsert(ctx context.Context, tx database.Tx, table Table, records []Record) (int, error) {
	rows := dedupeLast(records)
	if len(rows) == 0 {
		return 0, nil
	}

	d := tx.Dialect()
	query := nativeUpsertSQL(table)
	now := d.Timestamp(u.clock.Now())

	for _, r := range rows {
		args := append(r.Values(d), now)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert %s key=%s: %w: %w", table.Name, r.Key(), contracts.ErrPersistence, err)
		}
	}
	return len(rows), nil
}

// DeleteInsertUpserter deletes by key then inserts, for backends without native upsert
// Atomic only because both statements share the caller's transaction
type DeleteInsertUpserter struct {
	clock clock.Clock
}

// Upsert implements Upserter
func (u *DeleteInsertUpserter) Upsert(ctx context.Context, tx database.Tx, table Table, records []Record) (int, error) {
	rows := dedupeLast(records)
	if len(rows) == 0 {
		return 0, nil
	}

	d := tx.Dialect()
	deleteQuery := deleteByKeySQL(table)
	insertQuery := insertSQL(table)
	now := d.Timestamp(u.clock.Now())
	nKey := len(table.Key)

	for _, r := range rows {
		values := r.Values(d)
		if _, err := tx.Exec(ctx, deleteQuery, values[:nKey]...); err != nil {
			return 0, fmt.Errorf("delete %s key=%s: %w: %w", table.Name, r.Key(), contracts.ErrPersistence, err)
		}
		if _, err := tx.Exec(ctx, insertQuery, append(values, now)...); err != nil {
			return 0, fmt.Errorf("insert %s key=%s: %w: %w", table.Name, r.Key(), contracts.ErrPersistence, err)
		}
	}
	return len(rows), nil
}

// dedupeLast keeps the last occurrence of each key, in batch order
func dedupeLast(records []Record) []Record {
	last := make(map[string]int, len(records))
	for i, r := range records {
		last[r.Key()] = i
	}

	out := make([]Record, 0, len(last))
	for i, r := range records {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}

func allColumns(t Table) []string {
	cols := make([]string, 0, len(t.Key)+len(t.Columns)+1)
	cols = append(cols, t.Key...)
	cols = append(cols, t.Columns...)
	return append(cols, "updated_at")
}

func insertSQL(t Table) string {
	cols := allColumns(t)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), database.Placeholders(len(cols)))
}

func nativeUpsertSQL(t Table) string {
	sets := make([]string, 0, len(t.Columns)+1)
	for _, c := range append(append([]string{}, t.Columns...), "updated_at") {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		insertSQL(t), strings.Join(t.Key, ", "), strings.Join(sets, ", "))
}

func deleteByKeySQL(t Table) string {
	conds := make([]string, len(t.Key))
	for i, k := range t.Key {
		conds[i] = k + " = ?"
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", t.Name, strings.Join(conds, " AND "))
}
