package handlers

import (
	"context"
	"net/http"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// GoalStore is implemented by *goal.Store.
type GoalStore interface {
	Get(ctx context.Context, userID string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, userID string, goal decimal.Decimal) error
	Clear(ctx context.Context, userID string) error
}

// GoalHandler handles the savings goal.
type GoalHandler struct {
	goals GoalStore
	log   zerolog.Logger
}

// NewGoalHandler creates a new goal handler.
func NewGoalHandler(goals GoalStore, log zerolog.Logger) *GoalHandler {
	return &GoalHandler{goals: goals, log: log}
}

type goalResponse struct {
	Goal *decimal.Decimal `json:"goal"`
	Set  bool             `json:"set"`
}

// GetGoal handles GET /api/goal.
func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	g, set, err := h.goals.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load goal")
		return
	}
	resp := goalResponse{Set: set}
	if set {
		resp.Goal = &g
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// SetGoal handles PUT /api/goal with {"goal": "1500.00"}.
func (h *GoalHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Goal decimal.Decimal `json:"goal"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.goals.Set(r.Context(), userID, req.Goal); err != nil {
		writeServiceError(w, h.log, err, "Failed to save goal")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, goalResponse{Goal: &req.Goal, Set: true})
}

// ClearGoal handles DELETE /api/goal.
func (h *GoalHandler) ClearGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.goals.Clear(r.Context(), userID); err != nil {
		writeServiceError(w, h.log, err, "Failed to clear goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
