package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/currency"
	"github.com/fblacp/scales/internal/export"
	"github.com/fblacp/scales/internal/store"
	"github.com/fblacp/scales/internal/summary"
	"github.com/rs/zerolog"
)

// ReportPublisher is implemented by *export.Publisher.
type ReportPublisher interface {
	Publish(ctx context.Context, name string, data []byte, contentType string) (*export.Published, error)
}

// SummaryHandler serves the summary screen and its exports.
type SummaryHandler struct {
	repo      store.TransactionRepository
	prefs     CurrencyPreferences
	publisher ReportPublisher
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewSummaryHandler creates a new summary handler. publisher may be nil,
// which disables publish=true exports.
func NewSummaryHandler(repo store.TransactionRepository, prefs CurrencyPreferences, publisher ReportPublisher, loc *time.Location, log zerolog.Logger) *SummaryHandler {
	if loc == nil {
		loc = time.Local
	}
	return &SummaryHandler{repo: repo, prefs: prefs, publisher: publisher, loc: loc, now: time.Now, log: log}
}

// queryRange reads start_date and end_date. A missing bound defaults to
// the current month so far.
func queryRange(r *http.Request, now time.Time, loc *time.Location) (summary.Range, error) {
	def := summary.MonthToDate(now, loc)
	start, end := r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date")
	if start == "" {
		start = def.Start.String()
	}
	if end == "" {
		end = def.End.String()
	}
	return summary.ParseRange(start, end, loc)
}

func (h *SummaryHandler) aggregate(w http.ResponseWriter, r *http.Request, userID string) (summary.Result, bool) {
	rng, err := queryRange(r, h.now(), h.loc)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return summary.Result{}, false
	}
	txs, err := h.repo.GetTransactions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to query transactions")
		return summary.Result{}, false
	}
	return summary.Aggregate(r.Context(), txs, rng), true
}

// GetSummary handles GET /api/summary?start_date&end_date.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	result, ok := h.aggregate(w, r, userID)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Export handles GET /api/export?start_date&end_date&format=csv|html|pdf.
// With publish=true the report is stored in the bucket and a download
// link is returned instead of the file.
func (h *SummaryHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	publish, _ := strconv.ParseBool(query.Get("publish"))
	if publish && h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Report publishing is not configured")
		return
	}

	result, ok := h.aggregate(w, r, userID)
	if !ok {
		return
	}
	code := currency.USD
	if cur, err := h.prefs.Get(r.Context(), userID); err == nil {
		code = cur.Code
	} else {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("Using default currency for export")
	}
	report := export.BuildReport(result, code)

	var buf bytes.Buffer
	if err := export.Write(&buf, report, format); err != nil {
		h.log.Error().Err(err).Str("format", string(format)).Msg("Failed to render report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}
	filename := report.Filename(format)

	if publish {
		pub, err := h.publisher.Publish(r.Context(), userID+"/"+filename, buf.Bytes(), format.ContentType())
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to publish report")
			middleware.WriteError(w, http.StatusBadGateway, "Failed to publish report")
			return
		}
		middleware.WriteJSON(w, http.StatusCreated, pub)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
