package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/logger"
	"github.com/wonny/quantdash/pkg/redis"
)

// Input is everything a dashboard document is assembled from
type Input struct {
	RunID           string
	GeneratedAt     time.Time
	Timezone        string
	Details         map[string]interface{}
	LatestMetrics   []contracts.IndicatorRow
	Scored          []contracts.ScoredSymbol
	Recommendations []contracts.Recommendation
	RecentRuns      []contracts.Run
}

// Build assembles the dashboard document (pure)
func Build(in Input) contracts.Dashboard {
	d := contracts.Dashboard{
		RunID:           in.RunID,
		GeneratedAt:     in.GeneratedAt,
		Timezone:        in.Timezone,
		Details:         in.Details,
		LatestMetrics:   orEmpty(in.LatestMetrics),
		Scored:          orEmpty(in.Scored),
		Recommendations: orEmpty(in.Recommendations),
		Sectors:         Sectors(in.Scored),
		Horizons: contracts.HorizonTables{
			Short: HorizonTable(in.Scored, contracts.HorizonShort),
			Mid:   HorizonTable(in.Scored, contracts.HorizonMid),
			Long:  HorizonTable(in.Scored, contracts.HorizonLong),
		},
		RecentRuns: orEmpty(in.RecentRuns),
	}
	if d.Details == nil {
		d.Details = map[string]interface{}{}
	}
	return d
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Sectors returns the distinct sectors of scored, sorted
func Sectors(scored []contracts.ScoredSymbol) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, s := range scored {
		if s.Sector == "" || seen[s.Sector] {
			continue
		}
		seen[s.Sector] = true
		out = append(out, s.Sector)
	}
	sort.Strings(out)
	return out
}

// HorizonTable ranks scored by one horizon's score desc, then symbol
func HorizonTable(scored []contracts.ScoredSymbol, h contracts.Horizon) []contracts.HorizonEntry {
	out := make([]contracts.HorizonEntry, 0, len(scored))
	for i := range scored {
		s := &scored[i]
		hs := s.Horizon(h)
		out = append(out, contracts.HorizonEntry{
			Symbol:    s.Symbol,
			TradeDate: s.TradeDate,
			Close:     s.Close,
			Score:     hs.Score,
			Signal:    hs.Signal,
			Source:    s.Source,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Exporter writes the dashboard file and publishes it to the cache
// ⭐ SSOT: 대시보드 JSON 출력은 여기서만
type Exporter struct {
	path   string
	cache  *redis.Cache
	logger *logger.Logger
}

// NewExporter creates a new exporter; cache may be nil
func NewExporter(path string, cache *redis.Cache, log *logger.Logger) *Exporter {
	return &Exporter{
		path:   path,
		cache:  cache,
		logger: log.WithField("module", "dashboard"),
	}
}

// Path returns the output file path
func (e *Exporter) Path() string {
	return e.path
}

// WithPath returns a copy writing to path
func (e *Exporter) WithPath(path string) *Exporter {
	c := *e
	c.path = path
	return &c
}

// Export encodes d and replaces the output file atomically; returns the encoded bytes
func (e *Exporter) Export(d contracts.Dashboard) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode dashboard: %w", err)
	}
	if err := WriteFileAtomic(e.path, data); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"path":            e.path,
		"run_id":          d.RunID,
		"symbols":         len(d.Scored),
		"recommendations": len(d.Recommendations),
	}).Info("Dashboard exported")
	return data, nil
}

// Publish stores data as the latest dashboard in Redis; no-op without a cache
func (e *Exporter) Publish(ctx context.Context, data []byte) error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.SetRaw(ctx, redis.DashboardLatestKey(), data, redis.TTLDaily); err != nil {
		return fmt.Errorf("publish dashboard: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it over path
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Load reads a dashboard document from the cache, falling back to the file
func Load(ctx context.Context, path string, cache *redis.Cache) ([]byte, error) {
	if cache != nil {
		data, ok, err := cache.GetRaw(ctx, redis.DashboardLatestKey())
		if err == nil && ok {
			return data, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dashboard %s: %w", path, err)
	}
	return data, nil
}
