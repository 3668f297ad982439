package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/wonny/quantdash/internal/dashboard"
	"github.com/wonny/quantdash/pkg/logger"
	"github.com/wonny/quantdash/pkg/redis"
)

// DashboardHandler serves the latest exported dashboard
// ⭐ SSOT: 대시보드 API 핸들러는 여기서만
type DashboardHandler struct {
	path   string
	cache  *redis.Cache
	logger *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler; cache may be nil
func NewDashboardHandler(path string, cache *redis.Cache, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		path:   path,
		cache:  cache,
		logger: log,
	}
}

// GetLatest returns the most recent dashboard document
// GET /api/dashboard
func (h *DashboardHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	data, err := dashboard.Load(r.Context(), h.path, h.cache)
	if errors.Is(err, fs.ErrNotExist) {
		respondError(w, http.StatusNotFound, "No dashboard exported yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dashboard")
		respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	respondRawJSON(w, http.StatusOK, data)
}
