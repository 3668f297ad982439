package database

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_data (
		symbol      TEXT    NOT NULL,
		trade_date  TEXT    NOT NULL,
		open        REAL    NOT NULL,
		high        REAL    NOT NULL,
		low         REAL    NOT NULL,
		close       REAL    NOT NULL,
		volume      INTEGER NOT NULL DEFAULT 0,
		source      TEXT    NOT NULL DEFAULT '',
		updated_at  TEXT    NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS quant_metrics (
		symbol      TEXT NOT NULL,
		trade_date  TEXT NOT NULL,
		close       REAL NOT NULL,
		sma_5       REAL NOT NULL,
		sma_20      REAL NOT NULL,
		sma_60      REAL NOT NULL,
		sma_200     REAL NOT NULL,
		momentum_5d REAL NOT NULL,
		signal      TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS dashboard_snapshot (
		snapshot_id  TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		trade_date   TEXT NOT NULL,
		close        REAL NOT NULL,
		sma_5        REAL NOT NULL,
		sma_20       REAL NOT NULL,
		sma_60       REAL NOT NULL,
		sma_200      REAL NOT NULL,
		momentum_5d  REAL NOT NULL,
		signal       TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, symbol)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dashboard_snapshot_generated_at ON dashboard_snapshot (generated_at)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id        TEXT    PRIMARY KEY,
		started_at    TEXT    NOT NULL,
		finished_at   TEXT,
		status        TEXT    NOT NULL,
		rows_written  INTEGER NOT NULL DEFAULT 0,
		details       TEXT,
		error_message TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs (started_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_data (
		symbol      VARCHAR(32)      NOT NULL,
		trade_date  DATE             NOT NULL,
		open        DOUBLE PRECISION NOT NULL,
		high        DOUBLE PRECISION NOT NULL,
		low         DOUBLE PRECISION NOT NULL,
		close       DOUBLE PRECISION NOT NULL,
		volume      BIGINT           NOT NULL DEFAULT 0,
		source      VARCHAR(32)      NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ      NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS quant_metrics (
		symbol      VARCHAR(32)      NOT NULL,
		trade_date  DATE             NOT NULL,
		close       DOUBLE PRECISION NOT NULL,
		sma_5       DOUBLE PRECISION NOT NULL,
		sma_20      DOUBLE PRECISION NOT NULL,
		sma_60      DOUBLE PRECISION NOT NULL,
		sma_200     DOUBLE PRECISION NOT NULL,
		momentum_5d DOUBLE PRECISION NOT NULL,
		signal      VARCHAR(8)       NOT NULL,
		updated_at  TIMESTAMPTZ      NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS dashboard_snapshot (
		snapshot_id  VARCHAR(64)      NOT NULL,
		symbol       VARCHAR(32)      NOT NULL,
		trade_date   DATE             NOT NULL,
		close        DOUBLE PRECISION NOT NULL,
		sma_5        DOUBLE PRECISION NOT NULL,
		sma_20       DOUBLE PRECISION NOT NULL,
		sma_60       DOUBLE PRECISION NOT NULL,
		sma_200      DOUBLE PRECISION NOT NULL,
		momentum_5d  DOUBLE PRECISION NOT NULL,
		signal       VARCHAR(8)       NOT NULL,
		generated_at TIMESTAMPTZ      NOT NULL,
		PRIMARY KEY (snapshot_id, symbol)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dashboard_snapshot_generated_at ON dashboard_snapshot (generated_at)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id        VARCHAR(64) PRIMARY KEY,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ,
		status        VARCHAR(16) NOT NULL,
		rows_written  BIGINT      NOT NULL DEFAULT 0,
		details       JSONB,
		error_message TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs (started_at)`,
}

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, db DB) error {
	stmts := sqliteSchema
	if db.Dialect() == Postgres {
		stmts = postgresSchema
	}

	return WithTx(ctx, db, func(tx Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
			}
		}
		return nil
	})
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
