// Package handlers implements the JSON endpoints of the Scales API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/auth"
	"github.com/fblacp/scales/internal/currency"
	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/goal"
	"github.com/fblacp/scales/internal/jobs"
	"github.com/fblacp/scales/internal/store"
	"github.com/rs/zerolog"
)

const maxJSONBody = 1 << 20

// ChangeNotifier is told when a user's transactions changed.
type ChangeNotifier interface {
	TransactionsChanged(ctx context.Context, userID string)
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidSignup),
		errors.Is(err, domain.ErrInvalidTransaction),
		errors.Is(err, goal.ErrInvalidGoal),
		errors.Is(err, currency.ErrUnsupportedCurrency):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs unexpected errors and answers with the mapped
// status. Client errors carry the error text, server errors carry msg.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	middleware.WriteError(w, status, clientMessage(err))
}

// clientMessage reduces a wrapped error to the part a client can act on.
func clientMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrInvalidTransaction) {
		if i := strings.Index(msg, domain.ErrInvalidTransaction.Error()); i >= 0 {
			return msg[i:]
		}
	}
	for _, sentinel := range clientErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return msg
}

var clientErrors = []error{
	store.ErrNotFound,
	store.ErrDuplicateEmail,
	jobs.ErrJobNotFound,
	auth.ErrInvalidCredentials,
	auth.ErrInvalidToken,
	auth.ErrInvalidSignup,
	goal.ErrInvalidGoal,
	currency.ErrUnsupportedCurrency,
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// requireUser returns the authenticated user ID or answers 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
	}
	return userID, ok
}
