package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/store"
	"github.com/fblacp/scales/internal/summary"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo     store.TransactionRepository
	notifier ChangeNotifier
	loc      *time.Location
	log      zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler. notifier may
// be nil.
func NewTransactionsHandler(repo store.TransactionRepository, notifier ChangeNotifier, loc *time.Location, log zerolog.Logger) *TransactionsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionsHandler{repo: repo, notifier: notifier, loc: loc, log: log}
}

// transactionRequest is the body of create and update calls. With Type
// set, Amount is taken as a magnitude and signed accordingly.
type transactionRequest struct {
	Title            string                 `json:"title"`
	Amount           decimal.Decimal        `json:"amount"`
	Type             domain.TransactionType `json:"type,omitempty"`
	Date             string                 `json:"date"`
	Category         string                 `json:"category"`
	IsRecurring      bool                   `json:"is_recurring"`
	RecurringType    domain.RecurringType   `json:"recurring_type,omitempty"`
	RecurringEndDate string                 `json:"recurring_end_date,omitempty"`
	Comment          string                 `json:"comment,omitempty"`
	ReceiptImage     string                 `json:"receipt_image,omitempty"`
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{domain.ErrInvalidTransaction}, args...)...)
}

func (req transactionRequest) toTransaction(userID string, loc *time.Location) (domain.Transaction, error) {
	tx := domain.Transaction{
		UserID:        userID,
		Title:         strings.TrimSpace(req.Title),
		Amount:        req.Amount,
		Category:      strings.TrimSpace(req.Category),
		IsRecurring:   req.IsRecurring,
		RecurringType: req.RecurringType,
		Comment:       req.Comment,
		ReceiptImage:  req.ReceiptImage,
	}

	switch req.Type {
	case "":
	case domain.TypeIncome:
		tx.Amount = req.Amount.Abs()
	case domain.TypeExpense:
		tx.Amount = req.Amount.Abs().Neg()
	default:
		return tx, invalidf("unknown type %q", req.Type)
	}

	date, err := domain.ParseDate(req.Date, loc)
	if err != nil {
		return tx, invalidf("date %q is not a valid date", req.Date)
	}
	tx.Date = date

	if req.RecurringEndDate != "" {
		end, err := domain.ParseDate(req.RecurringEndDate, loc)
		if err != nil {
			return tx, invalidf("recurring_end_date %q is not a valid date", req.RecurringEndDate)
		}
		tx.RecurringEndDate = &end
	}

	if err := tx.Validate(); err != nil {
		return tx, err
	}
	return tx, nil
}

// ListTransactions handles GET /api/transactions. With start_date and
// end_date only that range is returned; the order is newest first.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	transactions, err := h.repo.GetTransactions(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to query transactions")
		return
	}

	query := r.URL.Query()
	if query.Get("start_date") != "" || query.Get("end_date") != "" {
		rng, err := queryRange(r, time.Now(), h.loc)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		transactions, _ = summary.Filter(transactions, rng)
	}

	// Return array directly for frontend compatibility
	transactions = summary.SortRecent(transactions)
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST /api/transactions.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := req.toTransaction(userID, h.loc)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid transaction")
		return
	}

	ctx := r.Context()
	created, err := h.repo.AddTransaction(ctx, tx)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create transaction")
		return
	}
	h.changed(r, userID)
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateTransaction handles PUT /api/transactions/{id}.
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := req.toTransaction(userID, h.loc)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid transaction")
		return
	}
	tx.ID = id
	tx.ApplyDefaults()

	if err := h.repo.UpdateTransaction(r.Context(), tx); err != nil {
		writeServiceError(w, h.log, err, "Failed to update transaction")
		return
	}
	h.changed(r, userID)
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteTransaction(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete transaction")
		return
	}
	h.changed(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionsHandler) changed(r *http.Request, userID string) {
	if h.notifier != nil {
		h.notifier.TransactionsChanged(r.Context(), userID)
	}
}
