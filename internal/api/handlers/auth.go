package handlers

import (
	"context"
	"net/http"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/domain"
	"github.com/rs/zerolog"
)

// AuthService is the account API the handlers need. *auth.Service
// implements it.
type AuthService interface {
	Signup(ctx context.Context, email, username, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthHandler handles signup, login and the current user.
type AuthHandler struct {
	svc AuthService
	log zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Signup handles POST /api/auth/signup and logs the new user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	if _, err := h.svc.Signup(ctx, req.Email, req.Username, req.Password); err != nil {
		writeServiceError(w, h.log, err, "Failed to sign up")
		return
	}
	user, token, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to log in")
		return
	}

	h.log.Info().Str("user_id", user.ID).Msg("User signed up")
	middleware.WriteJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to log in")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load user")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}
