package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/quantdash/internal/audit"
	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/database"
	"github.com/wonny/quantdash/pkg/logger"
)

// MaxRunsLimit caps ?limit on the runs endpoint
const MaxRunsLimit = 500

// RunsHandler serves the run ledger
type RunsHandler struct {
	db           database.DB
	ledger       *audit.RunLedger
	defaultLimit int
	logger       *logger.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(db database.DB, ledger *audit.RunLedger, defaultLimit int, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		db:           db,
		ledger:       ledger,
		defaultLimit: defaultLimit,
		logger:       log,
	}
}

// List returns recent runs, newest first
// GET /api/runs?limit=N
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > MaxRunsLimit {
		limit = MaxRunsLimit
	}

	var runs []contracts.Run
	err := database.WithTx(r.Context(), h.db, func(tx database.Tx) error {
		var err error
		runs, err = h.ledger.Recent(r.Context(), tx, limit)
		return err
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get returns one run
// GET /api/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	var run *contracts.Run
	err := database.WithTx(r.Context(), h.db, func(tx database.Tx) error {
		var err error
		run, err = h.ledger.Get(r.Context(), tx, runID)
		return err
	})
	if errors.Is(err, contracts.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
