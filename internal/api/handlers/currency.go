package handlers

import (
	"context"
	"net/http"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/currency"
	"github.com/rs/zerolog"
)

// CurrencyPreferences is implemented by *currency.Preferences.
type CurrencyPreferences interface {
	Get(ctx context.Context, userID string) (currency.Currency, error)
}

// CurrencyChanger is implemented by *currency.Service.
type CurrencyChanger interface {
	ChangeCurrency(ctx context.Context, userID, code string) (*currency.Change, error)
}

// CurrencyHandler reads and switches the user's currency.
type CurrencyHandler struct {
	prefs    CurrencyPreferences
	changer  CurrencyChanger
	notifier ChangeNotifier
	log      zerolog.Logger
}

// NewCurrencyHandler creates a new currency handler. notifier may be nil.
func NewCurrencyHandler(prefs CurrencyPreferences, changer CurrencyChanger, notifier ChangeNotifier, log zerolog.Logger) *CurrencyHandler {
	return &CurrencyHandler{prefs: prefs, changer: changer, notifier: notifier, log: log}
}

// GetCurrency handles GET /api/currency.
func (h *CurrencyHandler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cur, err := h.prefs.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load currency")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"currency":  cur,
		"supported": currency.Supported(),
	})
}

// SetCurrency handles PUT /api/currency with {"code": "EUR"}. The goal and
// all stored amounts are converted at the current rate.
func (h *CurrencyHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	change, err := h.changer.ChangeCurrency(r.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to change currency")
		return
	}
	if h.notifier != nil && change.From.Code != change.To.Code {
		h.notifier.TransactionsChanged(r.Context(), userID)
	}
	middleware.WriteJSON(w, http.StatusOK, change)
}
