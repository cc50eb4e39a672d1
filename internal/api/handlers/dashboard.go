package handlers

import (
	"context"
	"net/http"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/dashboard"
	"github.com/rs/zerolog"
)

// DashboardService is implemented by *dashboard.Service.
type DashboardService interface {
	Snapshot(ctx context.Context, userID string) (*dashboard.Snapshot, error)
}

// DashboardHandler serves the home screen.
type DashboardHandler struct {
	dash DashboardService
	log  zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dash DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dash: dash, log: log}
}

// GetDashboard handles GET /api/dashboard.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.dash.Snapshot(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}
