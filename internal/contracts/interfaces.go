package contracts

import (
	"context"
)

// BarFetcher retrieves daily bars from external providers
// ⭐ SSOT: 시세 수집 인터페이스
type BarFetcher interface {
	FetchBars(ctx context.Context, symbols []string, lookbackDays int) ([]Bar, error)
}

// UniverseResolver produces the symbols for a run and their metadata
// ⭐ SSOT: 유니버스 결정 인터페이스
type UniverseResolver interface {
	Resolve(ctx context.Context) ([]string, map[string]SymbolMeta, error)
}
