package s1_universe

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/external/wikipedia"
	"github.com/wonny/quantdash/pkg/logger"
)

// Universe modes (pipeline.universe)
const (
	ModeManual = "manual"
	ModeSP500  = "sp500"
	ModeAllUS  = "all_us"
)

// SP500Source lists index constituents
type SP500Source interface {
	SP500(ctx context.Context) ([]wikipedia.Constituent, error)
}

// DirectorySource lists raw symbols per exchange directory file
type DirectorySource interface {
	Directories(ctx context.Context) ([][]string, error)
}

// Config holds resolver settings
type Config struct {
	Mode       string
	Symbols    []string
	MaxSymbols int
}

// Resolver turns the configured universe descriptor into symbols and metadata
// ⭐ SSOT: 유니버스 결정은 여기서만
type Resolver struct {
	config    Config
	sp500     SP500Source
	directory DirectorySource
	logger    *logger.Logger
}

// NewResolver creates a new Resolver; sources may be nil for manual mode
func NewResolver(cfg Config, sp500 SP500Source, directory DirectorySource, log *logger.Logger) *Resolver {
	return &Resolver{
		config:    cfg,
		sp500:     sp500,
		directory: directory,
		logger:    log.WithField("module", "universe"),
	}
}

// Resolve implements contracts.UniverseResolver
func (r *Resolver) Resolve(ctx context.Context) ([]string, map[string]contracts.SymbolMeta, error) {
	mode := strings.ToLower(strings.TrimSpace(r.config.Mode))
	limit := r.config.MaxSymbols
	if limit <= 0 {
		limit = 1
	}

	var (
		symbols []string
		meta    map[string]contracts.SymbolMeta
		err     error
	)
	switch mode {
	case ModeManual:
		symbols, meta = resolveManual(r.config.Symbols, limit)
	case ModeSP500:
		symbols, meta, err = r.resolveSP500(ctx, limit)
	case ModeAllUS:
		r.logger.WithField("max_symbols", limit).Warn("all_us mode is broad; capped at max_symbols")
		symbols, meta, err = r.resolveAllUS(ctx, limit)
	default:
		return nil, nil, fmt.Errorf("unsupported universe mode: %q", r.config.Mode)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s universe: %w", mode, err)
	}

	r.logger.WithFields(map[string]interface{}{
		"mode":    mode,
		"symbols": len(symbols),
	}).Info("Universe resolved")
	return symbols, meta, nil
}

// Normalize upper-cases a ticker and maps share-class dots to dashes (BRK.B → BRK-B)
func Normalize(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), ".", "-")
}

func resolveManual(raw []string, limit int) ([]string, map[string]contracts.SymbolMeta) {
	symbols := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		if len(symbols) >= limit {
			break
		}
		s = Normalize(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}

	meta := make(map[string]contracts.SymbolMeta, len(symbols))
	for _, s := range symbols {
		meta[s] = contracts.SymbolMeta{Sector: contracts.SectorManual, Source: ModeManual}
	}
	return symbols, meta
}

func (r *Resolver) resolveSP500(ctx context.Context, limit int) ([]string, map[string]contracts.SymbolMeta, error) {
	if r.sp500 == nil {
		return nil, nil, fmt.Errorf("no s&p 500 source configured")
	}
	rows, err := r.sp500.SP500(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("empty s&p 500 table")
	}

	symbols := make([]string, 0, limit)
	meta := make(map[string]contracts.SymbolMeta, limit)
	for _, row := range rows {
		s := Normalize(row.Symbol)
		if s == "" {
			continue
		}
		if _, dup := meta[s]; !dup {
			symbols = append(symbols, s)
		}
		meta[s] = contracts.SymbolMeta{Sector: row.Sector, Source: ModeSP500}
		if len(symbols) >= limit {
			break
		}
	}
	return symbols, meta, nil
}

func (r *Resolver) resolveAllUS(ctx context.Context, limit int) ([]string, map[string]contracts.SymbolMeta, error) {
	if r.directory == nil {
		return nil, nil, fmt.Errorf("no symbol directory source configured")
	}
	dirs, err := r.directory.Directories(ctx)
	if err != nil {
		return nil, nil, err
	}

	symbols := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, dir := range dirs {
		for _, raw := range dir {
			if len(symbols) >= limit {
				break
			}
			s := Normalize(raw)
			if s == "" || seen[s] || strings.Contains(s, "$") {
				continue
			}
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	meta := make(map[string]contracts.SymbolMeta, len(symbols))
	for _, s := range symbols {
		meta[s] = contracts.SymbolMeta{Sector: contracts.SectorUnknown, Source: ModeAllUS}
	}
	return symbols, meta, nil
}
