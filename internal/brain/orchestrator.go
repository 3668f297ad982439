package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/quantdash/internal/audit"
	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/dashboard"
	"github.com/wonny/quantdash/internal/s0_data"
	"github.com/wonny/quantdash/internal/s0_data/collector"
	"github.com/wonny/quantdash/internal/s0_data/quality"
	"github.com/wonny/quantdash/internal/s2_signals"
	"github.com/wonny/quantdash/internal/selection"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/database"
	"github.com/wonny/quantdash/pkg/logger"
)

// Config holds per-run parameters
type Config struct {
	LookbackDays       int
	RetentionDays      int
	TargetAnnualReturn float64
	MaxRecommendations int
	RecentRunsLimit    int
	Timezone           string
}

// Deps are the stage components the orchestrator drives
type Deps struct {
	DB          database.DB
	Clock       clock.Clock
	Universe    contracts.UniverseResolver
	Fetcher     contracts.BarFetcher
	Bars        *s0_data.BarRepository
	Metrics     *s0_data.MetricsRepository
	Ledger      *audit.RunLedger
	Snapshots   *audit.Snapshotter
	Recommender *selection.Recommender
	Exporter    *dashboard.Exporter
}

// RunOutcome is the result of one pipeline invocation
type RunOutcome struct {
	RunID       string
	Status      contracts.RunStatus
	RowsWritten int64
	Details     map[string]interface{}
	Stage       contracts.Stage // stage that failed; empty on success
	Err         error
	Duration    time.Duration
}

// Orchestrator runs the pipeline as one tracked, all-or-nothing unit
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	mu     sync.Mutex
	deps   Deps
	config Config
	logger *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Deps, cfg Config, log *logger.Logger) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	return &Orchestrator{
		deps:   deps,
		config: cfg,
		logger: log.WithField("module", "brain"),
	}
}

// WithExporter returns an orchestrator sharing deps but exporting through e
func (o *Orchestrator) WithExporter(e *dashboard.Exporter) *Orchestrator {
	deps := o.deps
	deps.Exporter = e
	return NewOrchestrator(deps, o.config, o.logger)
}

// stageError tags an error with the stage it came from
type stageError struct {
	stage contracts.Stage
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

func failAt(stage contracts.Stage, err error) error {
	return &stageError{stage: stage, err: err}
}

// runState accumulates what a failed run still records
type runState struct {
	rowsWritten int64
	details     map[string]interface{}
	exported    []byte
}

// Run executes one pipeline invocation
// The ledger row is committed first; everything else commits together or not at all
func (o *Orchestrator) Run(ctx context.Context) (RunOutcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	started := time.Now()

	runID, err := o.deps.Ledger.Start(ctx)
	if err != nil {
		return RunOutcome{Status: contracts.RunFailed, Stage: contracts.StageLedger, Err: err}, err
	}

	log := o.logger.WithField("run_id", runID)
	log.Info("Starting pipeline run")

	state := &runState{details: map[string]interface{}{}}
	err = o.execute(ctx, runID, state, log)

	outcome := RunOutcome{
		RunID:       runID,
		RowsWritten: state.rowsWritten,
		Details:     state.details,
		Duration:    time.Since(started),
	}

	if err != nil {
		outcome.Status = contracts.RunFailed
		outcome.Err = err
		var se *stageError
		if errors.As(err, &se) {
			outcome.Stage = se.stage
		}

		// fresh context: the run context may be what failed
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if ferr := o.deps.Ledger.FinishFailed(finishCtx, runID, state.rowsWritten, state.details, err); ferr != nil {
			log.WithError(ferr).Error("Failed to record FAILED run")
		}

		log.WithFields(map[string]interface{}{
			"stage":    string(outcome.Stage),
			"duration": outcome.Duration.String(),
		}).WithError(err).Error("Pipeline run failed")
		return outcome, err
	}

	outcome.Status = contracts.RunSuccess

	// cache publish happens after commit; a miss is not a run failure
	if perr := o.deps.Exporter.Publish(ctx, state.exported); perr != nil {
		log.WithError(perr).Warn("Dashboard publish failed")
	}

	log.WithFields(map[string]interface{}{
		"rows_written": outcome.RowsWritten,
		"duration":     outcome.Duration.String(),
		"details":      outcome.Details,
	}).Info("Pipeline run succeeded")
	return outcome, nil
}

func (o *Orchestrator) execute(ctx context.Context, runID string, state *runState, log *logger.Logger) error {
	d := o.deps

	// S0: universe
	symbols, meta, err := d.Universe.Resolve(ctx)
	if err != nil {
		return failAt(contracts.StageUniverse, err)
	}
	if len(symbols) == 0 {
		return failAt(contracts.StageUniverse, fmt.Errorf("%w: universe resolved to no symbols", contracts.ErrUpstreamData))
	}

	// S1: fetch outside the transaction
	fetched, err := d.Fetcher.FetchBars(ctx, symbols, o.config.LookbackDays)
	if err != nil {
		return failAt(contracts.StageData, err)
	}
	if len(fetched) == 0 {
		return failAt(contracts.StageData, fmt.Errorf("%w: no market data fetched from providers", contracts.ErrUpstreamData))
	}
	sourceBySymbol := collector.LatestSourceBySymbol(fetched)

	report := quality.Check(symbols, fetched)
	qlog := log.WithFields(map[string]interface{}{
		"requested":     report.Requested,
		"price_covered": report.PriceCovered,
		"quality_score": report.QualityScore,
	})
	if report.Complete() {
		qlog.Info("Fetch coverage")
	} else {
		qlog.WithField("missing", report.MissingSymbols).Warn("Fetch coverage incomplete")
	}

	tx, err := d.DB.Begin(ctx)
	if err != nil {
		return failAt(contracts.StageData, fmt.Errorf("%w: begin: %w", contracts.ErrPersistence, err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	priceRows, err := d.Bars.Upsert(ctx, tx, fetched)
	if err != nil {
		return failAt(contracts.StageData, err)
	}
	state.details["price_rows"] = priceRows

	// S2: indicators over the full stored history of touched symbols
	touched := touchedSymbols(fetched)
	history, err := d.Bars.ForSymbols(ctx, tx, touched)
	if err != nil {
		return failAt(contracts.StageSignals, err)
	}
	indicators := s2_signals.ComputeIndicators(history)
	metricRows, err := d.Metrics.Upsert(ctx, tx, indicators)
	if err != nil {
		return failAt(contracts.StageSignals, err)
	}
	state.details["metric_rows"] = metricRows
	state.details["source_by_symbol"] = sourceBySymbol

	// S3: scoring from the Metrics Store
	metricHistory, err := d.Metrics.History(ctx, tx)
	if err != nil {
		return failAt(contracts.StageScoring, err)
	}
	scored := s2_signals.Score(metricHistory, s2_signals.ScoreInput{
		Meta:               meta,
		SourceBySymbol:     sourceBySymbol,
		TargetAnnualReturn: o.config.TargetAnnualReturn,
	})
	recommendations := d.Recommender.Recommend(scored)

	// S4: snapshot + retention
	snap, err := d.Snapshots.Refresh(ctx, tx, runID, o.config.RetentionDays)
	if err != nil {
		return failAt(contracts.StageSnapshot, err)
	}
	state.details["snapshot_rows"] = snap.SnapshotRows
	state.details["deleted_old_snapshots"] = snap.DeletedOldSnapshots
	state.details["symbols"] = len(touched)
	state.details["recommendations"] = len(recommendations)
	state.rowsWritten = int64(priceRows + metricRows + snap.SnapshotRows)

	// S5: close the ledger inside the same transaction
	if err := d.Ledger.Finish(ctx, tx, runID, contracts.RunSuccess, state.rowsWritten, state.details, ""); err != nil {
		return failAt(contracts.StageLedger, err)
	}

	// S6: export before commit; a write failure fails the run
	latest, err := d.Metrics.LatestPerSymbol(ctx, tx)
	if err != nil {
		return failAt(contracts.StageExport, err)
	}
	recent, err := d.Ledger.Recent(ctx, tx, o.config.RecentRunsLimit)
	if err != nil {
		return failAt(contracts.StageExport, err)
	}
	doc := dashboard.Build(dashboard.Input{
		RunID:           runID,
		GeneratedAt:     d.Clock.Now(),
		Timezone:        o.config.Timezone,
		Details:         state.details,
		LatestMetrics:   latest,
		Scored:          scored,
		Recommendations: recommendations,
		RecentRuns:      recent,
	})
	state.exported, err = d.Exporter.Export(doc)
	if err != nil {
		return failAt(contracts.StageExport, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return failAt(contracts.StageLedger, fmt.Errorf("%w: commit: %w", contracts.ErrPersistence, err))
	}
	committed = true

	log.WithFields(map[string]interface{}{
		"symbols":         len(touched),
		"price_rows":      priceRows,
		"metric_rows":     metricRows,
		"scored":          len(scored),
		"recommendations": len(recommendations),
	}).Info("Pipeline stages completed")
	return nil
}

func touchedSymbols(bars []contracts.Bar) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range bars {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			out = append(out, b.Symbol)
		}
	}
	return out
}
